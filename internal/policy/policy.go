// Package policy holds the per-kind staleness policy and the pure
// classification function that decides what a sweep does with a resource.
// The classifier takes no dependencies beyond the resource snapshot, the
// policy, and the clock, so it can be tested exhaustively offline.
package policy

import (
	"time"

	"github.com/stalesweep/stalesweep/internal/tracker"
)

// Action is the lifecycle decision for one resource in one sweep.
type Action int

const (
	// NoAction leaves the resource untouched.
	NoAction Action = iota
	// MarkStale applies the stale label and posts the stale message.
	MarkStale
	// Close posts the close message (if any) and closes the resource.
	Close
	// Reset removes the stale label; fresh activity or a newly applied
	// exempt label cleared the mark.
	Reset
)

func (a Action) String() string {
	switch a {
	case NoAction:
		return "no-action"
	case MarkStale:
		return "mark-stale"
	case Close:
		return "close"
	case Reset:
		return "reset"
	default:
		return "unknown"
	}
}

// Policy is the immutable per-kind configuration for one run.
type Policy struct {
	// StaleAfter is the inactivity window before a resource is marked
	// stale. CloseAfter is the additional window after marking before the
	// resource is closed, absent further activity.
	StaleAfter time.Duration
	CloseAfter time.Duration

	// ExemptLabels unconditionally suspend staleness evaluation. An
	// exempt label on an already-marked resource clears the mark.
	ExemptLabels []string

	// ExemptUnlessAnyLabel, when non-empty, restricts staleness to
	// resources carrying at least one of these labels. Issues only.
	ExemptUnlessAnyLabel []string

	// StaleLabel is the marker label this reaper owns.
	StaleLabel string

	// StaleMessage is posted when marking. CloseMessage is posted when
	// closing; empty means close silently.
	StaleMessage string
	CloseMessage string
}

// Classify maps a resource snapshot to a lifecycle action. Thresholds are
// inclusive: inactivity exactly equal to the window triggers the
// transition.
func Classify(res tracker.Resource, pol Policy, now time.Time) Action {
	if hasAny(res.Labels, pol.ExemptLabels) {
		// A human applied an exemption; retroactively clear any mark.
		if res.StaleMarked() {
			return Reset
		}
		return NoAction
	}

	if len(pol.ExemptUnlessAnyLabel) > 0 && !hasAny(res.Labels, pol.ExemptUnlessAnyLabel) {
		return NoAction
	}

	if !res.StaleMarked() {
		if now.Sub(res.LastActivityAt) >= pol.StaleAfter {
			return MarkStale
		}
		return NoAction
	}

	markedAt := *res.StaleMarkedAt
	if res.LastActivityAt.After(markedAt) {
		return Reset
	}
	if now.Sub(markedAt) >= pol.CloseAfter {
		return Close
	}
	return NoAction
}

func hasAny(labels, wanted []string) bool {
	for _, w := range wanted {
		for _, l := range labels {
			if l == w {
				return true
			}
		}
	}
	return false
}
