package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/stalesweep/stalesweep/internal/config"
	"github.com/stalesweep/stalesweep/internal/github"
	"github.com/stalesweep/stalesweep/internal/reaper"
	"github.com/stalesweep/stalesweep/internal/telemetry"
)

var (
	dryRunFlag  bool
	deadlineFlg time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one sweep over the configured repository",
	Long: `Execute one sweep: list open issues and pull requests, classify each
against the configured policy, and apply stale marks, closures, and resets.

One invocation is one run. Overlap prevention is the caller's
responsibility: the external scheduler must guarantee at most one active
run per repository, stalesweep does not lock anything.

Exit status: 0 when every attempted mutation succeeded, 2 when the run
completed but some mutations failed after retries (the summary lists the
failed resources), 1 when configuration, credentials, or listing failed
before or during the sweep.`,
	Args: cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		exit(runSweep())
	},
}

func init() {
	runCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "classify and report without mutating anything")
	runCmd.Flags().DurationVar(&deadlineFlg, "deadline", 0, "abort the run cooperatively after this long (0 = no deadline)")
}

func runSweep() int {
	log := slog.Default()

	cfg, err := config.Load(configPath)
	if err != nil {
		fail(err)
		return exitFatal
	}

	token := resolveToken()
	if token == "" {
		fail(fmt.Errorf("no credential: set GITHUB_TOKEN or STALESWEEP_TOKEN"))
		return exitFatal
	}

	owner, repo, err := config.SplitRepository(cfg.Repository)
	if err != nil {
		fail(err)
		return exitFatal
	}

	client := github.NewClient(token, owner, repo)
	if cfg.BaseURL != "" {
		client = client.WithBaseURL(cfg.BaseURL)
	}

	ctx := rootCtx
	if deadlineFlg > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deadlineFlg)
		defer cancel()
	}

	// Auth failures abort before any sweep; no partial run without a
	// valid credential.
	if err := client.Validate(ctx); err != nil {
		fail(fmt.Errorf("tracker validation failed: %w", err))
		return exitFatal
	}

	engine := reaper.New(client, cfg.Policies(), reaper.Options{
		Concurrency:            cfg.Concurrency,
		DryRun:                 dryRunFlag,
		BotLogin:               cfg.BotLogin,
		BotActivityResetsClock: cfg.BotActivityResetsClock,
		OperationTimeout:       cfg.OperationTimeout,
		OperationsBudget:       cfg.OperationsBudget,
	}, log, telemetry.NewSweepRecorder())

	log.Info("starting run", "repository", cfg.Repository, "dry_run", dryRunFlag)
	summary, runErr := engine.Run(ctx)

	printSummary(summary)

	if runErr != nil {
		fail(fmt.Errorf("run aborted: %w", runErr))
		return exitFatal
	}
	if !summary.Clean() {
		return exitPartial
	}
	return exitClean
}

// fail reports a fatal error in the selected output format.
func fail(err error) {
	if jsonOutput {
		outputJSONError(err)
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
