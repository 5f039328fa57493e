package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/stalesweep/stalesweep/internal/tracker"
)

// ListCandidates implements tracker.Tracker. It returns one page of open
// resources in creation order. Issues come from the issues endpoint (which
// also returns PRs; those are filtered out), pull requests from the pulls
// endpoint.
func (c *Client) ListCandidates(ctx context.Context, kind tracker.Kind, page int) ([]tracker.Resource, int, error) {
	if page < 1 {
		page = 1
	}
	if page > MaxPages {
		return nil, 0, fmt.Errorf("pagination limit exceeded: stopped after %d pages", MaxPages)
	}

	params := map[string]string{
		"state":     "open",
		"sort":      "created",
		"direction": "asc",
		"per_page":  strconv.Itoa(MaxPageSize),
		"page":      strconv.Itoa(page),
	}

	switch kind {
	case tracker.KindIssue:
		return c.listIssuePage(ctx, params, page)
	case tracker.KindPullRequest:
		return c.listPullPage(ctx, params, page)
	default:
		return nil, 0, fmt.Errorf("unknown resource kind: %q", kind)
	}
}

func (c *Client) listIssuePage(ctx context.Context, params map[string]string, page int) ([]tracker.Resource, int, error) {
	urlStr := c.buildURL("/repos/"+c.repoPath()+"/issues", params)
	respBody, headers, err := c.doRequest(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list issues: %w", err)
	}

	var issues []Issue
	if err := json.Unmarshal(respBody, &issues); err != nil {
		return nil, 0, fmt.Errorf("failed to parse issues response: %w", err)
	}

	var resources []tracker.Resource
	for i := range issues {
		// The issues endpoint returns PRs too; they get their own sweep.
		if issues[i].PullRequest != nil {
			continue
		}
		resources = append(resources, issueToResource(issues[i]))
	}

	nextPage := 0
	if hasNextPage(headers) {
		nextPage = page + 1
	}
	return resources, nextPage, nil
}

func (c *Client) listPullPage(ctx context.Context, params map[string]string, page int) ([]tracker.Resource, int, error) {
	urlStr := c.buildURL("/repos/"+c.repoPath()+"/pulls", params)
	respBody, headers, err := c.doRequest(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list pull requests: %w", err)
	}

	var pulls []PullRequest
	if err := json.Unmarshal(respBody, &pulls); err != nil {
		return nil, 0, fmt.Errorf("failed to parse pull requests response: %w", err)
	}

	var resources []tracker.Resource
	for i := range pulls {
		resources = append(resources, pullToResource(pulls[i]))
	}

	nextPage := 0
	if hasNextPage(headers) {
		nextPage = page + 1
	}
	return resources, nextPage, nil
}

func issueToResource(is Issue) tracker.Resource {
	res := tracker.Resource{
		ID:     fmt.Sprintf("issue#%d", is.Number),
		Number: is.Number,
		Kind:   tracker.KindIssue,
		Title:  is.Title,
		Labels: LabelNames(is.Labels),
	}
	if is.UpdatedAt != nil {
		res.LastActivityAt = *is.UpdatedAt
	}
	return res
}

func pullToResource(pr PullRequest) tracker.Resource {
	res := tracker.Resource{
		ID:     fmt.Sprintf("pull_request#%d", pr.Number),
		Number: pr.Number,
		Kind:   tracker.KindPullRequest,
		Title:  pr.Title,
		Labels: LabelNames(pr.Labels),
	}
	if pr.UpdatedAt != nil {
		res.LastActivityAt = *pr.UpdatedAt
	}
	return res
}

// issuePath returns the issues-endpoint path for a resource. Labels,
// comments, and state changes go through the issues endpoint for pull
// requests as well; GitHub treats every PR as an issue for those.
func (c *Client) issuePath(res tracker.Resource) string {
	return "/repos/" + c.repoPath() + "/issues/" + strconv.Itoa(res.Number)
}

// AddLabel implements tracker.Tracker. GitHub ignores labels the resource
// already carries, so re-adding is a server-side no-op.
func (c *Client) AddLabel(ctx context.Context, res tracker.Resource, label string) error {
	urlStr := c.buildURL(c.issuePath(res)+"/labels", nil)
	body := map[string][]string{"labels": {label}}
	if _, _, err := c.doRequest(ctx, http.MethodPost, urlStr, body); err != nil {
		return fmt.Errorf("failed to add label %q to %s: %w", label, res, err)
	}
	return nil
}

// RemoveLabel implements tracker.Tracker. GitHub answers 404 when the
// label is absent; the operation is idempotent so that maps to success.
func (c *Client) RemoveLabel(ctx context.Context, res tracker.Resource, label string) error {
	urlStr := c.buildURL(c.issuePath(res)+"/labels/"+url.PathEscape(label), nil)
	if _, _, err := c.doRequest(ctx, http.MethodDelete, urlStr, nil); err != nil {
		if tracker.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to remove label %q from %s: %w", label, res, err)
	}
	return nil
}

// PostComment implements tracker.Tracker.
func (c *Client) PostComment(ctx context.Context, res tracker.Resource, body string) error {
	urlStr := c.buildURL(c.issuePath(res)+"/comments", nil)
	if _, _, err := c.doRequest(ctx, http.MethodPost, urlStr, map[string]string{"body": body}); err != nil {
		return fmt.Errorf("failed to comment on %s: %w", res, err)
	}
	return nil
}

// Close implements tracker.Tracker. PATCHing state on an already-closed
// resource succeeds with no change, so the operation is idempotent.
func (c *Client) Close(ctx context.Context, res tracker.Resource) error {
	urlStr := c.buildURL(c.issuePath(res), nil)
	body := map[string]string{"state": "closed", "state_reason": "not_planned"}
	if res.Kind == tracker.KindPullRequest {
		// state_reason is an issues-only field.
		body = map[string]string{"state": "closed"}
	}
	if _, _, err := c.doRequest(ctx, http.MethodPatch, urlStr, body); err != nil {
		return fmt.Errorf("failed to close %s: %w", res, err)
	}
	return nil
}

// StaleDetails implements tracker.Tracker. The stale-mark timestamp is the
// most recent "labeled" event for the stale label; the activity clock is
// the newest event or comment after that mark, skipping excludeLogin.
func (c *Client) StaleDetails(ctx context.Context, res tracker.Resource, staleLabel, excludeLogin string) (tracker.StaleDetails, error) {
	var details tracker.StaleDetails

	events, err := c.listIssueEvents(ctx, res)
	if err != nil {
		return details, err
	}

	for _, ev := range events {
		if ev.CreatedAt == nil {
			continue
		}
		if ev.Event == "labeled" && ev.Label != nil && ev.Label.Name == staleLabel {
			if ev.CreatedAt.After(details.MarkedAt) {
				details.MarkedAt = *ev.CreatedAt
			}
			continue
		}
		if authoredBy(ev.Actor, excludeLogin) {
			continue
		}
		if ev.CreatedAt.After(details.LastActivityAt) {
			details.LastActivityAt = *ev.CreatedAt
		}
	}

	comments, err := c.listComments(ctx, res, details.MarkedAt)
	if err != nil {
		return details, err
	}

	for _, cm := range comments {
		if authoredBy(cm.User, excludeLogin) || cm.CreatedAt == nil {
			continue
		}
		if cm.CreatedAt.After(details.LastActivityAt) {
			details.LastActivityAt = *cm.CreatedAt
		}
	}

	return details, nil
}

func authoredBy(u *User, login string) bool {
	return login != "" && u != nil && u.Login == login
}

// listIssueEvents fetches all events for a resource, paginated.
func (c *Client) listIssueEvents(ctx context.Context, res tracker.Resource) ([]IssueEvent, error) {
	var all []IssueEvent
	page := 1

	for {
		params := map[string]string{
			"per_page": strconv.Itoa(MaxPageSize),
			"page":     strconv.Itoa(page),
		}
		urlStr := c.buildURL(c.issuePath(res)+"/events", params)
		respBody, headers, err := c.doRequest(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to list events for %s: %w", res, err)
		}

		var events []IssueEvent
		if err := json.Unmarshal(respBody, &events); err != nil {
			return nil, fmt.Errorf("failed to parse events response: %w", err)
		}
		all = append(all, events...)

		if !hasNextPage(headers) {
			break
		}
		page++
		if page > MaxPages {
			return nil, fmt.Errorf("pagination limit exceeded: stopped after %d pages", MaxPages)
		}
	}

	return all, nil
}

// listComments fetches comments for a resource, optionally only those
// updated since the given time.
func (c *Client) listComments(ctx context.Context, res tracker.Resource, since time.Time) ([]Comment, error) {
	var all []Comment
	page := 1

	for {
		params := map[string]string{
			"per_page": strconv.Itoa(MaxPageSize),
			"page":     strconv.Itoa(page),
		}
		if !since.IsZero() {
			params["since"] = since.UTC().Format(time.RFC3339)
		}
		urlStr := c.buildURL(c.issuePath(res)+"/comments", params)
		respBody, headers, err := c.doRequest(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to list comments for %s: %w", res, err)
		}

		var comments []Comment
		if err := json.Unmarshal(respBody, &comments); err != nil {
			return nil, fmt.Errorf("failed to parse comments response: %w", err)
		}
		all = append(all, comments...)

		if !hasNextPage(headers) {
			break
		}
		page++
		if page > MaxPages {
			return nil, fmt.Errorf("pagination limit exceeded: stopped after %d pages", MaxPages)
		}
	}

	return all, nil
}
