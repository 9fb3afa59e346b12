package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// INTERVAL SCHEDULE
// ══════════════════════════════════════════════════════════════════════════════

// IntervalSchedule runs a job at a fixed interval.
type IntervalSchedule struct {
	Interval time.Duration
}

// Every creates an IntervalSchedule.
func Every(interval time.Duration) *IntervalSchedule {
	return &IntervalSchedule{Interval: interval}
}

// Next returns the next scheduled time.
func (s *IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

func (s *IntervalSchedule) String() string {
	return "@every " + s.Interval.String()
}

// ══════════════════════════════════════════════════════════════════════════════
// CRON SCHEDULE
// ══════════════════════════════════════════════════════════════════════════════

// CronSchedule is a parsed 5-field cron expression:
// minute hour day-of-month month day-of-week.
//
//   - "*/5 * * * *"  every 5 minutes
//   - "0 3 * * *"    every day at 03:00
//   - "0 0 * * 0"    every Sunday at midnight
type CronSchedule struct {
	raw    string
	fields [5]uint64 // bit i set when value i matches
}

var cronBounds = [5]struct {
	name     string
	min, max int
}{
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day", 1, 31},
	{"month", 1, 12},
	{"weekday", 0, 6},
}

// ParseCron parses a cron expression. Each field accepts *, n, n-m, */s,
// n-m/s and comma-separated lists of those.
func ParseCron(expr string) (*CronSchedule, error) {
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return nil, fmt.Errorf("invalid cron expression %q: expected 5 fields, got %d", expr, len(parts))
	}

	cs := &CronSchedule{raw: expr}
	for i, part := range parts {
		b := cronBounds[i]
		bits, err := parseCronField(part, b.min, b.max)
		if err != nil {
			return nil, fmt.Errorf("invalid %s field: %w", b.name, err)
		}
		cs.fields[i] = bits
	}
	return cs, nil
}

func parseCronField(field string, min, max int) (uint64, error) {
	var bits uint64
	for _, item := range strings.Split(field, ",") {
		rangePart, step := item, 1
		if base, s, ok := strings.Cut(item, "/"); ok {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				return 0, fmt.Errorf("invalid step %q", s)
			}
			rangePart, step = base, n
		}

		lo, hi := min, max
		switch {
		case rangePart == "*":
		case strings.Contains(rangePart, "-"):
			a, b, _ := strings.Cut(rangePart, "-")
			var err error
			if lo, err = strconv.Atoi(a); err != nil {
				return 0, fmt.Errorf("invalid range start %q", a)
			}
			if hi, err = strconv.Atoi(b); err != nil {
				return 0, fmt.Errorf("invalid range end %q", b)
			}
		default:
			v, err := strconv.Atoi(rangePart)
			if err != nil {
				return 0, fmt.Errorf("invalid value %q", rangePart)
			}
			lo = v
			if step == 1 {
				hi = v
			}
		}
		if lo < min || hi > max || lo > hi {
			return 0, fmt.Errorf("value out of range [%d-%d]: %s", min, max, item)
		}
		for v := lo; v <= hi; v += step {
			bits |= 1 << uint(v)
		}
	}
	return bits, nil
}

func (cs *CronSchedule) String() string {
	return cs.raw
}

// Next returns the first matching minute strictly after t, or the zero
// time if nothing matches within a year.
func (cs *CronSchedule) Next(t time.Time) time.Time {
	next := t.Truncate(time.Minute).Add(time.Minute)
	for i := 0; i < 366*24*60; i++ {
		if cs.matches(next) {
			return next
		}
		next = next.Add(time.Minute)
	}
	return time.Time{}
}

func (cs *CronSchedule) matches(t time.Time) bool {
	values := [5]int{t.Minute(), t.Hour(), t.Day(), int(t.Month()), int(t.Weekday())}
	for i, v := range values {
		if cs.fields[i]&(1<<uint(v)) == 0 {
			return false
		}
	}
	return true
}

// ParseSchedule accepts "@every <duration>" or a cron expression.
func ParseSchedule(spec string) (Schedule, error) {
	spec = strings.TrimSpace(spec)
	if rest, ok := strings.CutPrefix(spec, "@every "); ok {
		d, err := time.ParseDuration(strings.TrimSpace(rest))
		if err != nil {
			return nil, fmt.Errorf("invalid interval %q: %w", rest, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("interval must be positive: %s", d)
		}
		return Every(d), nil
	}
	return ParseCron(spec)
}
