// Package tracker defines the adapter boundary between the reaper and an
// external issue tracker. Each backend (GitHub today, potentially GitLab or
// Gitea later) provides an adapter implementing the Tracker interface. The
// reaper engine is written entirely against this interface so the staleness
// logic never touches HTTP.
package tracker

import "context"

// Tracker is the adapter interface a tracker backend must implement.
// All mutating operations are idempotent except PostComment; callers gate
// comments on the resource's stale-marker state to avoid duplicates.
type Tracker interface {
	// Name returns the lowercase identifier for this backend (e.g. "github").
	Name() string

	// Validate performs a cheap authenticated call to verify credentials
	// and repository access. An AuthError here aborts the run before any
	// sweep starts.
	Validate(ctx context.Context) error

	// ListCandidates returns one page of open resources of the given kind
	// in creation order. page starts at 1; nextPage is 0 when there are no
	// further pages. Listing is resumable: a crashed run may re-list from
	// page 1 because every downstream mutation is idempotent.
	ListCandidates(ctx context.Context, kind Kind, page int) (resources []Resource, nextPage int, err error)

	// AddLabel applies a label. Adding an already-present label is a no-op.
	AddLabel(ctx context.Context, res Resource, label string) error

	// RemoveLabel removes a label. Removing an absent label is a no-op,
	// not an error.
	RemoveLabel(ctx context.Context, res Resource, label string) error

	// PostComment posts a comment on the resource. Not idempotent.
	PostComment(ctx context.Context, res Resource, body string) error

	// Close closes the resource. Closing an already-closed resource is a
	// no-op.
	Close(ctx context.Context, res Resource) error

	// StaleDetails resolves the stale-marker timestamp and the effective
	// last-activity timestamp for a resource that carries the stale label.
	// When excludeLogin is non-empty, activity authored by that account
	// (the bot itself) does not count.
	StaleDetails(ctx context.Context, res Resource, staleLabel, excludeLogin string) (StaleDetails, error)
}
