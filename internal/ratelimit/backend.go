package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of one admission check.
type Result struct {
	Allowed   bool      `json:"allowed"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// RetryAfter returns the whole seconds a rejected caller should wait
// before retrying, always at least one second.
func (r *Result) RetryAfter(now time.Time) time.Duration {
	wait := r.ResetAt.Sub(now)
	if wait <= 0 {
		return time.Second
	}
	// Round up to whole seconds for the Retry-After header.
	secs := (wait + time.Second - 1) / time.Second
	return secs * time.Second
}

// Backend applies the sliding-window admission algorithm for one storage
// tier. All backends implement the identical algorithm: purge timestamps
// older than now-window, reject when the surviving count reaches the
// limit, otherwise append the current timestamp. A rejected or cancelled
// check must leave the window untouched.
type Backend interface {
	// Name identifies the tier in logs and health output.
	Name() string

	// Check runs one admission decision for the client key.
	Check(ctx context.Context, key string, now time.Time) (*Result, error)
}
