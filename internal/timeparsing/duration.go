// Package timeparsing parses the compact duration syntax used in
// stalesweep configuration ("12h", "7d", "2w"). Thresholds in stale-bot
// configuration are conventionally written in days; this package accepts
// hours and weeks as well so short-lived test repositories can use tight
// windows.
package timeparsing

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// compactDurationRe matches compact duration patterns: (\d+)([hdw])
// Examples: 12h, 7d, 2w
var compactDurationRe = regexp.MustCompile(`^(\d+)([hdw])$`)

// ParseDuration parses compact duration syntax into a time.Duration.
//
// Units:
//   - h = hours
//   - d = days (24h)
//   - w = weeks (168h)
//
// Staleness windows are wall-clock spans, so a day is always 24 hours;
// no calendar arithmetic is involved.
func ParseDuration(s string) (time.Duration, error) {
	matches := compactDurationRe.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("not a compact duration: %q (want e.g. \"12h\", \"7d\", \"2w\")", s)
	}

	amount, err := strconv.Atoi(matches[1])
	if err != nil {
		// Should not happen given regex ensures digits, but handle gracefully
		return 0, fmt.Errorf("invalid duration amount: %q", matches[1])
	}

	switch matches[2] {
	case "h":
		return time.Duration(amount) * time.Hour, nil
	case "d":
		return time.Duration(amount) * 24 * time.Hour, nil
	case "w":
		return time.Duration(amount) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown duration unit: %q", matches[2])
	}
}

// IsCompactDuration returns true if the string matches compact duration syntax.
func IsCompactDuration(s string) bool {
	return compactDurationRe.MatchString(s)
}
