package reaper

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Summary accumulates the outcome of one run across all sweeps. Workers
// record into it concurrently; every mutator takes the internal lock.
type Summary struct {
	mu sync.Mutex

	Inspected   int      `json:"inspected"`
	MarkedStale int      `json:"marked_stale"`
	Closed      int      `json:"closed"`
	Reset       int      `json:"reset"`
	Skipped     int      `json:"skipped"`
	Errors      int      `json:"errors"`
	Failed      []string `json:"failed,omitempty"` // resource IDs whose mutations failed

	// Truncated is set when cancellation stopped the run before all
	// candidates were examined.
	Truncated bool `json:"truncated,omitempty"`

	// DryRun is set when actions were decided but not applied.
	DryRun bool `json:"dry_run,omitempty"`

	Duration time.Duration `json:"duration_ns"`
}

func (s *Summary) recordInspected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Inspected++
}

func (s *Summary) recordMarked() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MarkedStale++
}

func (s *Summary) recordClosed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed++
}

func (s *Summary) recordReset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Reset++
}

func (s *Summary) recordSkipped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Skipped++
}

func (s *Summary) recordFailure(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Errors++
	s.Failed = append(s.Failed, id)
}

func (s *Summary) markTruncated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Truncated = true
}

// Clean reports whether every attempted mutation succeeded.
func (s *Summary) Clean() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Errors == 0
}

// String renders a human-readable run summary.
func (s *Summary) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "inspected %d, marked stale %d, closed %d, reset %d, skipped %d, errors %d",
		s.Inspected, s.MarkedStale, s.Closed, s.Reset, s.Skipped, s.Errors)
	if s.DryRun {
		b.WriteString(" (dry run)")
	}
	if s.Truncated {
		b.WriteString(" (truncated)")
	}
	if len(s.Failed) > 0 {
		failed := make([]string, len(s.Failed))
		copy(failed, s.Failed)
		sort.Strings(failed)
		fmt.Fprintf(&b, "\nfailed: %s", strings.Join(failed, ", "))
	}
	return b.String()
}
