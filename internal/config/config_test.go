package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stalesweep/stalesweep/internal/tracker"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stalesweep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validConfig = `
repository: acme/widgets
bot_login: sweeper[bot]
concurrency: 8
operation_timeout: 45s
operations_budget: 100

issues:
  stale_after: 60d
  close_after: 7d
  stale_label: stale
  exempt_labels: [pinned, security]
  exempt_unless_any_label: [bug, question]
  stale_message: "This issue is stale."
  close_message: "Closing for inactivity."

pull_requests:
  stale_after: 2w
  close_after: 48h
  stale_message: "This PR is stale."
`

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "acme/widgets", cfg.Repository)
	assert.Equal(t, "sweeper[bot]", cfg.BotLogin)
	assert.False(t, cfg.BotActivityResetsClock)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, 45*time.Second, cfg.OperationTimeout)
	assert.Equal(t, 100, cfg.OperationsBudget)
	require.NotNil(t, cfg.Issues)
	require.NotNil(t, cfg.PullRequests)
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
repository: acme/widgets
issues:
  stale_after: 30d
  close_after: 14d
  stale_message: "stale"
`))
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.OperationTimeout)
	assert.Equal(t, 0, cfg.OperationsBudget)
	assert.Nil(t, cfg.PullRequests)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestPoliciesConversion(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	policies := cfg.Policies()
	require.Len(t, policies, 2)

	issues := policies[tracker.KindIssue]
	assert.Equal(t, 60*24*time.Hour, issues.StaleAfter)
	assert.Equal(t, 7*24*time.Hour, issues.CloseAfter)
	assert.Equal(t, "stale", issues.StaleLabel)
	assert.Equal(t, []string{"pinned", "security"}, issues.ExemptLabels)
	assert.Equal(t, []string{"bug", "question"}, issues.ExemptUnlessAnyLabel)
	assert.Equal(t, "This issue is stale.", issues.StaleMessage)
	assert.Equal(t, "Closing for inactivity.", issues.CloseMessage)

	pulls := policies[tracker.KindPullRequest]
	assert.Equal(t, 2*7*24*time.Hour, pulls.StaleAfter)
	assert.Equal(t, 48*time.Hour, pulls.CloseAfter)
	// Label defaults when the section leaves it out.
	assert.Equal(t, DefaultStaleLabel, pulls.StaleLabel)
	assert.Empty(t, pulls.CloseMessage)
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "missing repository",
			mutate:  func(c *Config) { c.Repository = "" },
			wantErr: "repository",
		},
		{
			name:    "repository without owner",
			mutate:  func(c *Config) { c.Repository = "/widgets" },
			wantErr: "repository",
		},
		{
			name: "no kind sections",
			mutate: func(c *Config) {
				c.Issues = nil
				c.PullRequests = nil
			},
			wantErr: "at least one",
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.Concurrency = 0 },
			wantErr: "concurrency",
		},
		{
			name:    "zero operation timeout",
			mutate:  func(c *Config) { c.OperationTimeout = 0 },
			wantErr: "operation_timeout",
		},
		{
			name:    "negative operations budget",
			mutate:  func(c *Config) { c.OperationsBudget = -1 },
			wantErr: "operations_budget",
		},
		{
			name:    "unparseable stale_after",
			mutate:  func(c *Config) { c.Issues.StaleAfter = "soon" },
			wantErr: "issues.stale_after",
		},
		{
			name:    "zero close_after",
			mutate:  func(c *Config) { c.Issues.CloseAfter = "0d" },
			wantErr: "issues.close_after",
		},
		{
			name:    "empty stale_message",
			mutate:  func(c *Config) { c.Issues.StaleMessage = "  " },
			wantErr: "stale_message",
		},
		{
			name:    "exempt_unless_any_label on pull requests",
			mutate:  func(c *Config) { c.PullRequests.ExemptUnlessAnyLabel = []string{"wip"} },
			wantErr: "only supported for issues",
		},
		{
			name:    "stale label listed as exempt",
			mutate:  func(c *Config) { c.Issues.ExemptLabels = []string{"stale"} },
			wantErr: "must not be listed in exempt_labels",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Repository:       "acme/widgets",
				Concurrency:      4,
				OperationTimeout: 30 * time.Second,
				Issues: &KindPolicy{
					StaleAfter:   "30d",
					CloseAfter:   "7d",
					StaleMessage: "stale",
				},
				PullRequests: &KindPolicy{
					StaleAfter:   "2w",
					CloseAfter:   "7d",
					StaleMessage: "stale",
				},
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSplitRepository(t *testing.T) {
	owner, repo, err := SplitRepository("acme/widgets")
	require.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "widgets", repo)

	for _, bad := range []string{"", "acme", "acme/", "/widgets", "a/b/c"} {
		_, _, err := SplitRepository(bad)
		assert.Error(t, err, "input %q", bad)
	}
}
