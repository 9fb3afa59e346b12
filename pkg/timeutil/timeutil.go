// Package timeutil formats timestamps for terminal and API output.
package timeutil

import (
	"fmt"
	"time"
)

// DateTimeLayout is the layout used for absolute timestamps.
const DateTimeLayout = "2006-01-02 15:04"

// FormatRelative describes t relative to now, e.g. "5 min ago" or "in 2 days".
func FormatRelative(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	if d < 0 {
		return formatFuture(-d)
	}
	return formatPast(d)
}

func formatPast(d time.Duration) string {
	const day = 24 * time.Hour
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d min ago", int(d.Minutes()))
	case d < day:
		return fmt.Sprintf("%d h ago", int(d.Hours()))
	case d < 2*day:
		return "yesterday"
	case d < 7*day:
		return fmt.Sprintf("%d days ago", int(d/day))
	case d < 30*day:
		return fmt.Sprintf("%d weeks ago", int(d/(7*day)))
	case d < 365*day:
		return fmt.Sprintf("%d months ago", int(d/(30*day)))
	default:
		return fmt.Sprintf("%d years ago", int(d/(365*day)))
	}
}

func formatFuture(d time.Duration) string {
	const day = 24 * time.Hour
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("in %d min", int(d.Minutes()))
	case d < day:
		return fmt.Sprintf("in %d h", int(d.Hours()))
	case d < 2*day:
		return "tomorrow"
	default:
		return fmt.Sprintf("in %d days", int(d/day))
	}
}

// DaysSince returns the number of whole days between t and now.
func DaysSince(t, now time.Time) int {
	if t.IsZero() || now.Before(t) {
		return 0
	}
	return int(now.Sub(t) / (24 * time.Hour))
}

// FormatDateTime formats t in UTC with DateTimeLayout.
func FormatDateTime(t time.Time) string {
	return t.UTC().Format(DateTimeLayout)
}
