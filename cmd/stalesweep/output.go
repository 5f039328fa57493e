package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/stalesweep/stalesweep/internal/reaper"
)

const summaryDurationUnit = 10 * time.Millisecond

// outputJSON outputs data as pretty-printed JSON to stdout.
func outputJSON(v interface{}) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
	}
}

// outputJSONError outputs an error as JSON to stderr.
func outputJSONError(err error) {
	encoder := json.NewEncoder(os.Stderr)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(map[string]string{"error": err.Error()})
}

// printSummary renders the run summary: JSON when requested, a headed
// block on a terminal, a single parseable line otherwise.
func printSummary(summary *reaper.Summary) {
	if jsonOutput {
		outputJSON(summary)
		return
	}
	if term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Printf("Run complete in %s\n  %s\n", summary.Duration.Round(summaryDurationUnit), summary)
		return
	}
	fmt.Println(summary)
}
