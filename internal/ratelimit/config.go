package ratelimit

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Limit expresses a rate limit as a count per trailing window.
type Limit struct {
	Count  int           `json:"count"`
	Window time.Duration `json:"window"`
}

// DefaultLimit is the safe fallback applied when configuration is
// unparseable. Startup must not fail on a bad RATE_LIMIT value.
var DefaultLimit = Limit{Count: 100, Window: time.Minute}

// windowUnits maps the accepted "<count>/<unit>" units to durations.
var windowUnits = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
}

// ParseLimit parses a limit of the form "<count>/<unit>" where unit is one
// of second, minute, hour, day. A count of zero is valid and means every
// request is rejected.
func ParseLimit(s string) (Limit, error) {
	parts := strings.SplitN(strings.TrimSpace(s), "/", 2)
	if len(parts) != 2 {
		return Limit{}, fmt.Errorf("rate limit %q must be of the form \"<count>/<unit>\"", s)
	}

	count, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || count < 0 {
		return Limit{}, fmt.Errorf("rate limit %q has an invalid count", s)
	}

	window, ok := windowUnits[strings.ToLower(strings.TrimSpace(parts[1]))]
	if !ok {
		return Limit{}, fmt.Errorf("rate limit %q has an invalid unit (want second, minute, hour or day)", s)
	}

	return Limit{Count: count, Window: window}, nil
}

// ParseLimitOrDefault parses the limit string, falling back to
// DefaultLimit when it is unparseable. The returned bool reports whether
// the fallback was taken.
func ParseLimitOrDefault(s string) (Limit, bool) {
	limit, err := ParseLimit(s)
	if err != nil {
		return DefaultLimit, true
	}
	if limit.Window <= 0 {
		// A zero-length window never admits anything meaningful and is
		// treated as invalid configuration.
		return DefaultLimit, true
	}
	return limit, false
}

// String renders the limit in configuration form.
func (l Limit) String() string {
	for unit, d := range windowUnits {
		if d == l.Window {
			return fmt.Sprintf("%d/%s", l.Count, unit)
		}
	}
	return fmt.Sprintf("%d per %s", l.Count, l.Window)
}
