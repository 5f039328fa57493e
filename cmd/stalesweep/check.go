package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/stalesweep/stalesweep/internal/config"
	"github.com/stalesweep/stalesweep/internal/policy"
	"github.com/stalesweep/stalesweep/internal/tracker"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the config file and print the effective policies",
	Long: `Parse and validate the config file, then print the normalized
policies that a run would apply. No network access. Exit status 0 when the
config is valid, 1 otherwise.`,
	Args: cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		exit(runCheck())
	},
}

// policyView is the normalized per-kind policy as printed by check.
type policyView struct {
	StaleAfter           string   `yaml:"stale_after" json:"stale_after"`
	CloseAfter           string   `yaml:"close_after" json:"close_after"`
	StaleLabel           string   `yaml:"stale_label" json:"stale_label"`
	ExemptLabels         []string `yaml:"exempt_labels,omitempty" json:"exempt_labels,omitempty"`
	ExemptUnlessAnyLabel []string `yaml:"exempt_unless_any_label,omitempty" json:"exempt_unless_any_label,omitempty"`
	StaleMessage         string   `yaml:"stale_message" json:"stale_message"`
	CloseMessage         string   `yaml:"close_message,omitempty" json:"close_message,omitempty"`
}

type configView struct {
	Repository             string      `yaml:"repository" json:"repository"`
	BaseURL                string      `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	BotLogin               string      `yaml:"bot_login,omitempty" json:"bot_login,omitempty"`
	BotActivityResetsClock bool        `yaml:"bot_activity_resets_clock" json:"bot_activity_resets_clock"`
	Concurrency            int         `yaml:"concurrency" json:"concurrency"`
	OperationTimeout       string      `yaml:"operation_timeout" json:"operation_timeout"`
	OperationsBudget       int         `yaml:"operations_budget,omitempty" json:"operations_budget,omitempty"`
	Issues                 *policyView `yaml:"issues,omitempty" json:"issues,omitempty"`
	PullRequests           *policyView `yaml:"pull_requests,omitempty" json:"pull_requests,omitempty"`
}

func runCheck() int {
	cfg, err := config.Load(configPath)
	if err != nil {
		fail(err)
		return exitFatal
	}

	view := configView{
		Repository:             cfg.Repository,
		BaseURL:                cfg.BaseURL,
		BotLogin:               cfg.BotLogin,
		BotActivityResetsClock: cfg.BotActivityResetsClock,
		Concurrency:            cfg.Concurrency,
		OperationTimeout:       cfg.OperationTimeout.String(),
		OperationsBudget:       cfg.OperationsBudget,
	}

	policies := cfg.Policies()
	if pol, ok := policies[tracker.KindIssue]; ok {
		view.Issues = viewOf(pol)
	}
	if pol, ok := policies[tracker.KindPullRequest]; ok {
		view.PullRequests = viewOf(pol)
	}

	if jsonOutput {
		outputJSON(view)
		return exitClean
	}

	out, err := yaml.Marshal(view)
	if err != nil {
		fail(fmt.Errorf("failed to render config: %w", err))
		return exitFatal
	}
	fmt.Fprintf(os.Stdout, "# %s: valid\n%s", configPath, out)
	return exitClean
}

func viewOf(pol policy.Policy) *policyView {
	return &policyView{
		StaleAfter:           compactDuration(pol.StaleAfter),
		CloseAfter:           compactDuration(pol.CloseAfter),
		StaleLabel:           pol.StaleLabel,
		ExemptLabels:         pol.ExemptLabels,
		ExemptUnlessAnyLabel: pol.ExemptUnlessAnyLabel,
		StaleMessage:         pol.StaleMessage,
		CloseMessage:         pol.CloseMessage,
	}
}

// compactDuration renders a duration back in the config file's compact
// syntax, picking the largest exact unit.
func compactDuration(d time.Duration) string {
	const (
		day  = 24 * time.Hour
		week = 7 * day
	)
	switch {
	case d%week == 0:
		return fmt.Sprintf("%dw", d/week)
	case d%day == 0:
		return fmt.Sprintf("%dd", d/day)
	default:
		return fmt.Sprintf("%dh", d/time.Hour)
	}
}
