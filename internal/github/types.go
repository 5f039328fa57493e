// Package github implements the tracker adapter for the GitHub REST API.
//
// The adapter handles authentication, pagination, and mapping of GitHub's
// wire types onto the reaper's tracker.Resource model. It classifies every
// failure into the tracker error taxonomy (rate-limited, transient,
// not-found, auth) and leaves retry policy to the caller.
package github

import (
	"net/http"
	"time"
)

// API configuration constants.
const (
	// DefaultAPIEndpoint is the GitHub REST API base URL.
	DefaultAPIEndpoint = "https://api.github.com"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxPageSize is the maximum number of resources to fetch per page.
	MaxPageSize = 100

	// MaxPages is the maximum number of pages to fetch before stopping.
	// This prevents infinite loops from malformed Link headers.
	MaxPages = 1000
)

// Client provides tracker operations against the GitHub REST API.
type Client struct {
	Token      string       // GitHub token; used for the Authorization header only
	Owner      string       // Repository owner (user or org)
	Repo       string       // Repository name
	BaseURL    string       // API base URL (default: https://api.github.com)
	HTTPClient *http.Client // Optional custom HTTP client
}

// Issue represents an issue from the GitHub API. The issues endpoint also
// returns pull requests; PullRequest is non-nil for those.
type Issue struct {
	ID          int        `json:"id"`
	Number      int        `json:"number"`
	Title       string     `json:"title"`
	State       string     `json:"state"` // "open" or "closed"
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
	Labels      []Label    `json:"labels"`
	User        *User      `json:"user,omitempty"`
	PullRequest *PullRef   `json:"pull_request,omitempty"`
}

// PullRequest represents a pull request from the pulls endpoint.
type PullRequest struct {
	ID        int        `json:"id"`
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	State     string     `json:"state"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
	Labels    []Label    `json:"labels"`
	User      *User      `json:"user,omitempty"`
}

// PullRef indicates an issue is actually a pull request.
type PullRef struct {
	URL string `json:"url,omitempty"`
}

// User represents a GitHub user.
type User struct {
	ID    int    `json:"id"`
	Login string `json:"login"`
}

// Label represents a GitHub label.
type Label struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// IssueEvent represents an entry from the issue events endpoint. Only the
// fields the reaper consumes are mapped: label application recovers the
// stale-mark timestamp, and actor/created_at drive the activity clock.
type IssueEvent struct {
	ID        int        `json:"id"`
	Event     string     `json:"event"` // "labeled", "unlabeled", "reopened", ...
	Actor     *User      `json:"actor,omitempty"`
	Label     *Label     `json:"label,omitempty"`
	CreatedAt *time.Time `json:"created_at"`
}

// Comment represents an issue comment.
type Comment struct {
	ID        int        `json:"id"`
	User      *User      `json:"user,omitempty"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// LabelNames extracts label name strings from a slice of Label structs.
func LabelNames(labels []Label) []string {
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = l.Name
	}
	return names
}
