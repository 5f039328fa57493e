package tracker

import (
	"fmt"
	"time"
)

// Kind distinguishes the two resource kinds a sweep can target.
type Kind string

const (
	KindIssue       Kind = "issue"
	KindPullRequest Kind = "pull_request"
)

// Kinds lists all sweepable kinds in sweep order.
var Kinds = []Kind{KindIssue, KindPullRequest}

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	return k == KindIssue || k == KindPullRequest
}

// Resource is one open issue or pull request as seen by the reaper.
// Only labels, the stale marker, and the open/closed state are ever
// mutated, and only toward closure; the reaper never reopens anything.
type Resource struct {
	ID             string    // stable opaque identifier, e.g. "issue#42"
	Number         int       // repository-scoped number
	Kind           Kind
	Title          string
	Labels         []string
	LastActivityAt time.Time // tracker-reported last update

	// StaleMarkedAt is non-nil once the stale label has been applied.
	// Populated lazily via StaleDetails for resources carrying the label.
	StaleMarkedAt *time.Time
}

// StaleMarked reports whether the resource carries a resolved stale mark.
func (r Resource) StaleMarked() bool {
	return r.StaleMarkedAt != nil
}

// HasLabel reports whether the resource carries the given label.
// Label comparison is exact; GitHub label names are case-preserving.
func (r Resource) HasLabel(label string) bool {
	for _, l := range r.Labels {
		if l == label {
			return true
		}
	}
	return false
}

func (r Resource) String() string {
	if r.ID != "" {
		return r.ID
	}
	return fmt.Sprintf("%s#%d", r.Kind, r.Number)
}

// StaleDetails carries the timestamps needed to classify a stale-labeled
// resource: when the stale label was applied and when the last human
// activity occurred.
type StaleDetails struct {
	// MarkedAt is when the stale label was last applied. Zero when the
	// label event could not be recovered; callers should then fall back
	// to the tracker-reported last update.
	MarkedAt time.Time

	// LastActivityAt is the last activity timestamp, with bot-authored
	// activity excluded when the adapter was asked to exclude it. Zero
	// when no qualifying activity was found.
	LastActivityAt time.Time
}
