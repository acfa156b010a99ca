package ratelimit

import (
	"context"
	"time"

	"api-gateway/internal/common/errors"
	"api-gateway/internal/redis"
)

// distributedBackend runs the sliding window against a shared Redis store
// so the limit holds across processes. Per-key atomicity is delegated to
// Redis transaction pipelines; any store failure surfaces as a connection
// error so the limiter can degrade.
type distributedBackend struct {
	store     *redis.Client
	limit     Limit
	keyPrefix string
}

// NewDistributedBackend creates the Redis-backed sliding-window backend.
func NewDistributedBackend(store *redis.Client, limit Limit, keyPrefix string) Backend {
	if keyPrefix == "" {
		keyPrefix = "ratelimit:"
	}
	return &distributedBackend{
		store:     store,
		limit:     limit,
		keyPrefix: keyPrefix,
	}
}

func (d *distributedBackend) Name() string {
	return "distributed"
}

func (d *distributedBackend) Check(ctx context.Context, key string, now time.Time) (*Result, error) {
	storeKey := d.keyPrefix + key

	state, err := d.store.WindowSnapshot(ctx, storeKey, now, d.limit.Window)
	if err != nil {
		return nil, errors.ConnectionError("rate limit store unavailable", err)
	}

	if state.Count >= d.limit.Count {
		resetAt := now.Add(d.limit.Window)
		if !state.Oldest.IsZero() {
			resetAt = state.Oldest.Add(d.limit.Window)
		}
		return &Result{
			Allowed:   false,
			Limit:     d.limit.Count,
			Remaining: 0,
			ResetAt:   resetAt,
		}, nil
	}

	// The admission commit is separate from the snapshot: a rejected check
	// never writes, and a cancelled check aborts before the append.
	if err := d.store.RecordAdmission(ctx, storeKey, now, d.limit.Window); err != nil {
		return nil, errors.ConnectionError("rate limit store unavailable", err)
	}

	oldest := now
	if !state.Oldest.IsZero() {
		oldest = state.Oldest
	}

	return &Result{
		Allowed:   true,
		Limit:     d.limit.Count,
		Remaining: d.limit.Count - state.Count - 1,
		ResetAt:   oldest.Add(d.limit.Window),
	}, nil
}
