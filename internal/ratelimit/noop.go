package ratelimit

import (
	"context"
	"time"
)

// noopBackend admits everything. It backs the limiter when rate limiting
// is disabled by configuration.
type noopBackend struct {
	limit Limit
}

// NewNoopBackend creates a backend that always admits.
func NewNoopBackend(limit Limit) Backend {
	return &noopBackend{limit: limit}
}

func (n *noopBackend) Name() string {
	return "noop"
}

func (n *noopBackend) Check(_ context.Context, _ string, now time.Time) (*Result, error) {
	return &Result{
		Allowed:   true,
		Limit:     n.limit.Count,
		Remaining: n.limit.Count,
		ResetAt:   now.Add(n.limit.Window),
	}, nil
}
