// Package timespec parses the --since and --until flags.
package timespec

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Parse parses a time specification relative to now.
// Supports three formats:
//   - Go duration format: "1h", "30m", "1h30m", "2h45m30s"
//   - Day and week counts: "3d", "2w"
//   - RFC3339 timestamps: "2025-10-29T13:00:00Z"
//
// Durations and counts mean "that long ago".
func Parse(spec string, now time.Time) (time.Time, error) {
	if spec == "" {
		return time.Time{}, fmt.Errorf("empty time specification")
	}

	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return t, nil
	}

	if d, err := time.ParseDuration(spec); err == nil {
		return now.Add(-d), nil
	}

	if t, ok := parseDays(spec, now); ok {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("invalid time specification: %s (use a duration like '1h30m' or '3d', or RFC3339 like '2025-10-29T13:00:00Z')", spec)
}

func parseDays(spec string, now time.Time) (time.Time, bool) {
	unit := spec[len(spec)-1]
	if unit != 'd' && unit != 'w' {
		return time.Time{}, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(spec[:len(spec)-1]))
	if err != nil || n < 0 {
		return time.Time{}, false
	}
	if unit == 'w' {
		n *= 7
	}
	return now.AddDate(0, 0, -n), true
}

// Range is a time window. A zero bound means unbounded on that side.
type Range struct {
	Since time.Time
	Until time.Time
}

// Contains reports whether t falls inside the range, bounds included.
func (r Range) Contains(t time.Time) bool {
	if !r.Since.IsZero() && t.Before(r.Since) {
		return false
	}
	if !r.Until.IsZero() && t.After(r.Until) {
		return false
	}
	return true
}

// ParseRange parses both --since and --until flags. Empty flags leave that
// bound open. since must be before until when both are given.
func ParseRange(since, until string, now time.Time) (Range, error) {
	var (
		r   Range
		err error
	)

	if since != "" {
		if r.Since, err = Parse(since, now); err != nil {
			return Range{}, fmt.Errorf("invalid --since: %w", err)
		}
	}

	if until != "" {
		if r.Until, err = Parse(until, now); err != nil {
			return Range{}, fmt.Errorf("invalid --until: %w", err)
		}
	}

	if !r.Since.IsZero() && !r.Until.IsZero() && !r.Since.Before(r.Until) {
		return Range{}, fmt.Errorf("--since must be before --until")
	}

	return r, nil
}
