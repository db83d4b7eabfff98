package config

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Window is an optional [Since, Until] time range. Zero bounds are open.
type Window struct {
	Since time.Time
	Until time.Time
}

// ParseWindow parses optional since/until references. Empty strings leave
// the bound open.
func ParseWindow(since, until string) (Window, error) {
	var w Window
	var err error
	if since != "" {
		if w.Since, err = ParseTimeRef(since); err != nil {
			return Window{}, fmt.Errorf("invalid --since: %w", err)
		}
	}
	if until != "" {
		if w.Until, err = ParseTimeRef(until); err != nil {
			return Window{}, fmt.Errorf("invalid --until: %w", err)
		}
	}
	if !w.Since.IsZero() && !w.Until.IsZero() && w.Until.Before(w.Since) {
		return Window{}, fmt.Errorf("--until %s is before --since %s", until, since)
	}
	return w, nil
}

// IsOpen reports whether neither bound is set.
func (w Window) IsOpen() bool {
	return w.Since.IsZero() && w.Until.IsZero()
}

// Contains reports whether t falls inside the window. Lines without a
// timestamp are only kept by an open window.
func (w Window) Contains(t time.Time) bool {
	if w.IsOpen() {
		return true
	}
	if t.IsZero() {
		return false
	}
	if !w.Since.IsZero() && t.Before(w.Since) {
		return false
	}
	if !w.Until.IsZero() && t.After(w.Until) {
		return false
	}
	return true
}

// ParseTimeRef resolves a --since/--until argument. It accepts the
// timestamp shapes found in the supported datasets or a duration counted
// back from now, such as "45m" or "1d2h".
func ParseTimeRef(s string) (time.Time, error) {
	ref := strings.TrimSpace(s)
	if ref == "" {
		return time.Time{}, errors.New("time reference is empty")
	}
	for _, layout := range refLayouts {
		if t, err := time.Parse(layout, ref); err == nil {
			return t, nil
		}
	}
	ago, err := ParseDuration(ref)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither a timestamp nor a duration", ref)
	}
	return time.Now().Add(-ago), nil
}

var refLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05", // OpenStack session ids
	"2006-01-02",
	"060102 150405", // HDFS Date and Time columns
}

var (
	durationTerm = regexp.MustCompile(`(\d+)([dhms])`)
	durationUnit = map[string]time.Duration{
		"d": 24 * time.Hour,
		"h": time.Hour,
		"m": time.Minute,
		"s": time.Second,
	}
)

// ParseDuration is time.ParseDuration plus a "d" unit for days.
// Examples: "500ms", "5m", "1h30m", "2d".
func ParseDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	var total time.Duration
	consumed := 0
	for _, m := range durationTerm.FindAllStringSubmatch(s, -1) {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		total += time.Duration(n) * durationUnit[m[2]]
		consumed += len(m[0])
	}
	if consumed == 0 || consumed != len(s) {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return total, nil
}
