// Package config loads and validates stalesweep configuration.
//
// Configuration lives in a yaml file (default stalesweep.yaml) with
// environment overrides under the STALESWEEP_ prefix. The credential is
// never part of the file; it comes from the environment at run time.
// Validation is strict and happens before any network call: a run with a
// broken config must fail without mutating anything.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/stalesweep/stalesweep/internal/policy"
	"github.com/stalesweep/stalesweep/internal/timeparsing"
	"github.com/stalesweep/stalesweep/internal/tracker"
)

// DefaultStaleLabel is the marker label used when none is configured.
const DefaultStaleLabel = "stale"

// Config is the loaded, unvalidated configuration record.
type Config struct {
	// Repository is "owner/name".
	Repository string `mapstructure:"repository"`

	// BaseURL overrides the API endpoint (GitHub Enterprise).
	BaseURL string `mapstructure:"base_url"`

	// BotLogin is the account the token belongs to. Needed to keep the
	// reaper's own comments from resetting the staleness clock.
	BotLogin string `mapstructure:"bot_login"`

	// BotActivityResetsClock makes bot-authored activity count as
	// activity. See the engine documentation before enabling.
	BotActivityResetsClock bool `mapstructure:"bot_activity_resets_clock"`

	// Concurrency bounds in-flight resources across both sweeps.
	Concurrency int `mapstructure:"concurrency"`

	// OperationTimeout bounds each tracker API call (Go duration syntax).
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`

	// OperationsBudget caps mutated resources per run; 0 = unlimited.
	OperationsBudget int `mapstructure:"operations_budget"`

	// Issues and PullRequests configure the per-kind policies. A nil
	// section means that kind is not swept; at least one is required.
	Issues       *KindPolicy `mapstructure:"issues"`
	PullRequests *KindPolicy `mapstructure:"pull_requests"`
}

// KindPolicy is the per-kind policy as written in the config file.
// Thresholds use compact duration syntax ("12h", "7d", "2w").
type KindPolicy struct {
	StaleAfter           string   `mapstructure:"stale_after"`
	CloseAfter           string   `mapstructure:"close_after"`
	StaleLabel           string   `mapstructure:"stale_label"`
	ExemptLabels         []string `mapstructure:"exempt_labels"`
	ExemptUnlessAnyLabel []string `mapstructure:"exempt_unless_any_label"`
	StaleMessage         string   `mapstructure:"stale_message"`
	CloseMessage         string   `mapstructure:"close_message"`
}

// Load reads the config file at path, applies environment overrides and
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("STALESWEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("concurrency", 4)
	v.SetDefault("operation_timeout", "30s")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the whole record. Any error here is fatal at startup.
func (c *Config) Validate() error {
	if _, _, err := SplitRepository(c.Repository); err != nil {
		return err
	}

	if c.Issues == nil && c.PullRequests == nil {
		return fmt.Errorf("config: at least one of issues or pull_requests must be configured")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("config: concurrency must be positive, got %d", c.Concurrency)
	}
	if c.OperationTimeout <= 0 {
		return fmt.Errorf("config: operation_timeout must be positive, got %s", c.OperationTimeout)
	}
	if c.OperationsBudget < 0 {
		return fmt.Errorf("config: operations_budget must not be negative, got %d", c.OperationsBudget)
	}

	if c.Issues != nil {
		if err := c.Issues.validate("issues", true); err != nil {
			return err
		}
	}
	if c.PullRequests != nil {
		if err := c.PullRequests.validate("pull_requests", false); err != nil {
			return err
		}
	}
	return nil
}

func (k *KindPolicy) validate(section string, allowExemptUnless bool) error {
	staleAfter, err := k.staleAfter()
	if err != nil {
		return fmt.Errorf("config: %s.stale_after: %w", section, err)
	}
	if staleAfter <= 0 {
		return fmt.Errorf("config: %s.stale_after must be positive", section)
	}

	closeAfter, err := k.closeAfter()
	if err != nil {
		return fmt.Errorf("config: %s.close_after: %w", section, err)
	}
	if closeAfter <= 0 {
		return fmt.Errorf("config: %s.close_after must be positive", section)
	}

	if strings.TrimSpace(k.StaleMessage) == "" {
		return fmt.Errorf("config: %s.stale_message must not be empty", section)
	}

	if !allowExemptUnless && len(k.ExemptUnlessAnyLabel) > 0 {
		return fmt.Errorf("config: %s.exempt_unless_any_label is only supported for issues", section)
	}

	label := k.staleLabel()
	for _, exempt := range k.ExemptLabels {
		if exempt == label {
			return fmt.Errorf("config: %s: stale label %q must not be listed in exempt_labels", section, label)
		}
	}
	return nil
}

func (k *KindPolicy) staleAfter() (time.Duration, error) {
	return timeparsing.ParseDuration(k.StaleAfter)
}

func (k *KindPolicy) closeAfter() (time.Duration, error) {
	return timeparsing.ParseDuration(k.CloseAfter)
}

func (k *KindPolicy) staleLabel() string {
	if k.StaleLabel == "" {
		return DefaultStaleLabel
	}
	return k.StaleLabel
}

// Policies converts the validated config into the engine's policy map.
// Must only be called after Validate has succeeded.
func (c *Config) Policies() map[tracker.Kind]policy.Policy {
	policies := make(map[tracker.Kind]policy.Policy, 2)
	if c.Issues != nil {
		policies[tracker.KindIssue] = c.Issues.toPolicy()
	}
	if c.PullRequests != nil {
		policies[tracker.KindPullRequest] = c.PullRequests.toPolicy()
	}
	return policies
}

func (k *KindPolicy) toPolicy() policy.Policy {
	staleAfter, _ := k.staleAfter()
	closeAfter, _ := k.closeAfter()
	return policy.Policy{
		StaleAfter:           staleAfter,
		CloseAfter:           closeAfter,
		ExemptLabels:         k.ExemptLabels,
		ExemptUnlessAnyLabel: k.ExemptUnlessAnyLabel,
		StaleLabel:           k.staleLabel(),
		StaleMessage:         k.StaleMessage,
		CloseMessage:         k.CloseMessage,
	}
}

// SplitRepository splits "owner/name" into its parts.
func SplitRepository(repository string) (owner, repo string, err error) {
	parts := strings.Split(repository, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("config: repository must be \"owner/name\", got %q", repository)
	}
	return parts[0], parts[1], nil
}
