// Command stalesweep marks inactive issues and pull requests as stale and
// closes them after a grace period, per a yaml policy file. One invocation
// performs one run; recurring execution and overlap prevention belong to
// the external scheduler (cron, CI timer) that invokes it.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stalesweep/stalesweep/internal/telemetry"
)

// Version is the release version, overridable at build time via
// -ldflags "-X main.Version=...".
var Version = "0.1.0"

// Process exit codes. Distinct codes let schedulers tell a degraded run
// from a dead one.
const (
	exitClean   = 0 // every attempted mutation succeeded
	exitFatal   = 1 // config, credential, or listing failure; nothing swept
	exitPartial = 2 // run completed but some mutations failed
)

var (
	configPath  string
	verboseFlag bool
	jsonOutput  bool

	// Signal-aware context for graceful cancellation
	rootCtx    context.Context
	rootCancel context.CancelFunc
)

var rootCmd = &cobra.Command{
	Use:           "stalesweep",
	Short:         "Mark and close inactive issues and pull requests",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `stalesweep sweeps a repository for inactive issues and pull requests,
marks them with a stale label and a warning comment, and closes them after
a further grace period with no activity. Exempt labels suspend evaluation;
fresh activity on a marked resource clears the mark.

Configuration lives in a yaml file (see 'stalesweep check'); the credential
comes from the GITHUB_TOKEN (or STALESWEEP_TOKEN) environment variable and
is never written to logs or output.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

		level := slog.LevelInfo
		if verboseFlag {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		if err := telemetry.Init(rootCtx, "stalesweep", Version); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: telemetry init failed: %v\n", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "stalesweep.yaml", "path to the policy config file")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "machine-readable output")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
}

// exit flushes telemetry and terminates with the given code. os.Exit skips
// deferred functions, so every path that ends the process goes through
// here.
func exit(code int) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	telemetry.Shutdown(shutdownCtx)
	cancel()
	if rootCancel != nil {
		rootCancel()
	}
	os.Exit(code)
}

// resolveToken reads the credential from the environment. The token is
// handed straight to the tracker client and never logged.
func resolveToken() string {
	if tok := os.Getenv("GITHUB_TOKEN"); tok != "" {
		return tok
	}
	return os.Getenv("STALESWEEP_TOKEN")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitFatal)
	}
}
