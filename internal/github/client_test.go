package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stalesweep/stalesweep/internal/tracker"
)

// TestNewClient verifies the constructor creates a properly configured client.
func TestNewClient(t *testing.T) {
	client := NewClient("test-token", "owner", "repo")

	if client.Token != "test-token" {
		t.Errorf("Token = %q, want %q", client.Token, "test-token")
	}
	if client.Owner != "owner" {
		t.Errorf("Owner = %q, want %q", client.Owner, "owner")
	}
	if client.Repo != "repo" {
		t.Errorf("Repo = %q, want %q", client.Repo, "repo")
	}
	if client.BaseURL != DefaultAPIEndpoint {
		t.Errorf("BaseURL = %q, want %q", client.BaseURL, DefaultAPIEndpoint)
	}
	if client.HTTPClient == nil {
		t.Error("HTTPClient is nil, want non-nil default client")
	}
	if client.Name() != "github" {
		t.Errorf("Name() = %q, want %q", client.Name(), "github")
	}
}

// TestClientWithBaseURL verifies custom base URL setting.
func TestClientWithBaseURL(t *testing.T) {
	client := NewClient("token", "owner", "repo").WithBaseURL("https://github.example.com/api/v3")

	if client.BaseURL != "https://github.example.com/api/v3" {
		t.Errorf("BaseURL = %q, want custom URL", client.BaseURL)
	}
	if client.Owner != "owner" {
		t.Errorf("Owner = %q, want %q", client.Owner, "owner")
	}
}

// newTestClient returns a client pointed at a test server.
func newTestClient(server *httptest.Server) *Client {
	return NewClient("test-token", "owner", "repo").WithBaseURL(server.URL)
}

func timeRef(t time.Time) *time.Time { return &t }

func TestListCandidatesIssuesFiltersPullRequests(t *testing.T) {
	updated := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/owner/repo/issues" {
			t.Errorf("path = %q, want /repos/owner/repo/issues", r.URL.Path)
		}
		if got := r.URL.Query().Get("state"); got != "open" {
			t.Errorf("state = %q, want open", got)
		}
		if got := r.URL.Query().Get("sort"); got != "created" {
			t.Errorf("sort = %q, want created", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		issues := []Issue{
			{Number: 1, Title: "real issue", UpdatedAt: timeRef(updated), Labels: []Label{{Name: "bug"}}},
			{Number: 2, Title: "actually a PR", UpdatedAt: timeRef(updated), PullRequest: &PullRef{URL: "x"}},
		}
		_ = json.NewEncoder(w).Encode(issues)
	}))
	defer server.Close()

	client := newTestClient(server)
	resources, next, err := client.ListCandidates(context.Background(), tracker.KindIssue, 1)
	if err != nil {
		t.Fatalf("ListCandidates returned error: %v", err)
	}
	if next != 0 {
		t.Errorf("nextPage = %d, want 0", next)
	}
	if len(resources) != 1 {
		t.Fatalf("got %d resources, want 1 (PRs filtered)", len(resources))
	}
	res := resources[0]
	if res.ID != "issue#1" {
		t.Errorf("ID = %q, want issue#1", res.ID)
	}
	if res.Kind != tracker.KindIssue {
		t.Errorf("Kind = %q, want issue", res.Kind)
	}
	if !res.LastActivityAt.Equal(updated) {
		t.Errorf("LastActivityAt = %v, want %v", res.LastActivityAt, updated)
	}
	if !res.HasLabel("bug") {
		t.Error("labels not mapped")
	}
}

func TestListCandidatesPagination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		if page == "1" {
			w.Header().Set("Link", `<https://api.github.com/repos/owner/repo/pulls?page=2>; rel="next"`)
		}
		_ = json.NewEncoder(w).Encode([]PullRequest{{Number: 10}})
	}))
	defer server.Close()

	client := newTestClient(server)

	_, next, err := client.ListCandidates(context.Background(), tracker.KindPullRequest, 1)
	if err != nil {
		t.Fatalf("page 1 returned error: %v", err)
	}
	if next != 2 {
		t.Errorf("nextPage = %d, want 2", next)
	}

	_, next, err = client.ListCandidates(context.Background(), tracker.KindPullRequest, 2)
	if err != nil {
		t.Fatalf("page 2 returned error: %v", err)
	}
	if next != 0 {
		t.Errorf("nextPage = %d, want 0 on last page", next)
	}
}

func TestDoRequestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		headers map[string]string
		check   func(t *testing.T, err error)
	}{
		{
			name:   "401 is an auth failure",
			status: http.StatusUnauthorized,
			check: func(t *testing.T, err error) {
				if !tracker.IsAuth(err) {
					t.Errorf("want AuthError, got %v", err)
				}
			},
		},
		{
			name:    "403 with exhausted quota is rate limited",
			status:  http.StatusForbidden,
			headers: map[string]string{"X-RateLimit-Remaining": "0", "Retry-After": "30"},
			check: func(t *testing.T, err error) {
				wait, ok := tracker.IsRateLimited(err)
				if !ok {
					t.Fatalf("want RateLimitedError, got %v", err)
				}
				if wait != 30*time.Second {
					t.Errorf("RetryAfter = %v, want 30s", wait)
				}
			},
		},
		{
			name:   "429 is rate limited",
			status: http.StatusTooManyRequests,
			check: func(t *testing.T, err error) {
				if _, ok := tracker.IsRateLimited(err); !ok {
					t.Errorf("want RateLimitedError, got %v", err)
				}
			},
		},
		{
			name:   "404 is not found",
			status: http.StatusNotFound,
			check: func(t *testing.T, err error) {
				if !tracker.IsNotFound(err) {
					t.Errorf("want NotFoundError, got %v", err)
				}
			},
		},
		{
			name:   "500 is transient",
			status: http.StatusInternalServerError,
			check: func(t *testing.T, err error) {
				if !tracker.IsTransient(err) {
					t.Errorf("want TransientError, got %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := newTestClient(server)
			err := client.Validate(context.Background())
			if err == nil {
				t.Fatal("want error, got nil")
			}
			tt.check(t, err)
		})
	}
}

func TestValidateSucceeds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/owner/repo" {
			t.Errorf("path = %q, want /repos/owner/repo", r.URL.Path)
		}
		fmt.Fprint(w, `{"full_name":"owner/repo"}`)
	}))
	defer server.Close()

	if err := newTestClient(server).Validate(context.Background()); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
}

func TestAddLabelPostsLabel(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if r.URL.Path != "/repos/owner/repo/issues/7/labels" {
			t.Errorf("path = %q", r.URL.Path)
		}
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	res := tracker.Resource{ID: "issue#7", Number: 7, Kind: tracker.KindIssue}
	if err := newTestClient(server).AddLabel(context.Background(), res, "stale"); err != nil {
		t.Fatalf("AddLabel returned error: %v", err)
	}
	if !strings.Contains(gotBody, `"stale"`) {
		t.Errorf("request body = %q, want stale label", gotBody)
	}
}

// Removing an absent label answers 404; the adapter treats that as a
// successful no-op.
func TestRemoveLabelAbsentIsNoOp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %q, want DELETE", r.Method)
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	res := tracker.Resource{ID: "issue#7", Number: 7, Kind: tracker.KindIssue}
	if err := newTestClient(server).RemoveLabel(context.Background(), res, "stale"); err != nil {
		t.Fatalf("RemoveLabel on absent label = %v, want nil", err)
	}
}

func TestCloseSetsStateClosed(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %q, want PATCH", r.Method)
		}
		if r.URL.Path != "/repos/owner/repo/issues/3" {
			t.Errorf("path = %q", r.URL.Path)
		}
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	res := tracker.Resource{ID: "issue#3", Number: 3, Kind: tracker.KindIssue}
	if err := newTestClient(server).Close(context.Background(), res); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if !strings.Contains(gotBody, `"closed"`) {
		t.Errorf("request body = %q, want state closed", gotBody)
	}
	if !strings.Contains(gotBody, "not_planned") {
		t.Errorf("request body = %q, want not_planned state_reason for issues", gotBody)
	}
}

func TestPostComment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/owner/repo/issues/3/comments" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	res := tracker.Resource{ID: "issue#3", Number: 3, Kind: tracker.KindIssue}
	if err := newTestClient(server).PostComment(context.Background(), res, "hello"); err != nil {
		t.Fatalf("PostComment returned error: %v", err)
	}
}

func TestStaleDetails(t *testing.T) {
	marked := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	humanComment := marked.Add(48 * time.Hour)
	botComment := marked.Add(72 * time.Hour)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/events"):
			events := []IssueEvent{
				{Event: "labeled", Label: &Label{Name: "stale"}, Actor: &User{Login: "sweeper[bot]"}, CreatedAt: timeRef(marked)},
				{Event: "labeled", Label: &Label{Name: "bug"}, Actor: &User{Login: "alice"}, CreatedAt: timeRef(marked.Add(-time.Hour))},
			}
			_ = json.NewEncoder(w).Encode(events)
		case strings.HasSuffix(r.URL.Path, "/comments"):
			comments := []Comment{
				{User: &User{Login: "alice"}, CreatedAt: timeRef(humanComment)},
				{User: &User{Login: "sweeper[bot]"}, CreatedAt: timeRef(botComment)},
			}
			_ = json.NewEncoder(w).Encode(comments)
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer server.Close()

	res := tracker.Resource{ID: "issue#9", Number: 9, Kind: tracker.KindIssue}
	details, err := newTestClient(server).StaleDetails(context.Background(), res, "stale", "sweeper[bot]")
	if err != nil {
		t.Fatalf("StaleDetails returned error: %v", err)
	}

	if !details.MarkedAt.Equal(marked) {
		t.Errorf("MarkedAt = %v, want %v", details.MarkedAt, marked)
	}
	// The bot's own comment is newer but must not win.
	if !details.LastActivityAt.Equal(humanComment) {
		t.Errorf("LastActivityAt = %v, want human comment at %v", details.LastActivityAt, humanComment)
	}
}

func TestStaleDetailsWithoutExclusionCountsBot(t *testing.T) {
	marked := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	botComment := marked.Add(72 * time.Hour)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/events"):
			events := []IssueEvent{
				{Event: "labeled", Label: &Label{Name: "stale"}, Actor: &User{Login: "sweeper[bot]"}, CreatedAt: timeRef(marked)},
			}
			_ = json.NewEncoder(w).Encode(events)
		case strings.HasSuffix(r.URL.Path, "/comments"):
			comments := []Comment{
				{User: &User{Login: "sweeper[bot]"}, CreatedAt: timeRef(botComment)},
			}
			_ = json.NewEncoder(w).Encode(comments)
		}
	}))
	defer server.Close()

	res := tracker.Resource{ID: "issue#9", Number: 9, Kind: tracker.KindIssue}
	details, err := newTestClient(server).StaleDetails(context.Background(), res, "stale", "")
	if err != nil {
		t.Fatalf("StaleDetails returned error: %v", err)
	}
	if !details.LastActivityAt.Equal(botComment) {
		t.Errorf("LastActivityAt = %v, want bot comment at %v", details.LastActivityAt, botComment)
	}
}

func TestLabelNames(t *testing.T) {
	labels := []Label{{Name: "bug"}, {Name: "stale"}}
	names := LabelNames(labels)
	if len(names) != 2 || names[0] != "bug" || names[1] != "stale" {
		t.Errorf("LabelNames = %v", names)
	}
}
