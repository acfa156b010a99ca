// Package ratelimit provides sliding-window request admission with three
// interchangeable backends: a Redis-backed distributed tier, an in-process
// memory tier, and a no-op tier for when limiting is disabled.
//
// Tier selection happens once at construction. If the distributed tier
// fails at runtime the limiter permanently falls back to the memory tier
// for the rest of the process life and retries the triggering check there,
// so a store outage never drops or errors a request. Degradation is
// one-way; re-promotion requires a restart, which avoids flapping between
// tiers while the store is unstable.
package ratelimit

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"api-gateway/internal/common/logging"
	"api-gateway/internal/redis"
)

// Tier identifies the active backend.
type Tier int32

const (
	TierDistributed Tier = iota
	TierMemory
	TierNoop
)

func (t Tier) String() string {
	switch t {
	case TierDistributed:
		return "distributed"
	case TierMemory:
		return "memory"
	case TierNoop:
		return "noop"
	default:
		return "unknown"
	}
}

// Config configures the limiter.
type Config struct {
	// Limit is the admission budget per client identity.
	Limit Limit
	// Enabled false selects the no-op tier.
	Enabled bool
	// Store enables the distributed tier when non-nil.
	Store *redis.Client
	// KeyPrefix namespaces store keys (default "ratelimit:").
	KeyPrefix string
	// ExemptPaths are request path prefixes that bypass admission checks
	// unconditionally.
	ExemptPaths []string
	// OnDegrade, when set, is invoked once if the distributed tier is
	// abandoned (metrics hook).
	OnDegrade func()
}

// Limiter decides admit/reject per client identity and owns the backend
// tiering state. The active tier is an atomic so the hot path reads it
// without a lock.
type Limiter struct {
	limit       Limit
	distributed Backend
	memory      Backend
	noop        Backend
	exempt      []string
	onDegrade   func()

	tier atomic.Int32
}

// New builds a limiter from the configuration. The distributed tier is
// selected only when a store client is supplied; callers that fail to
// connect to Redis at startup pass a nil store and begin on the memory
// tier.
func New(cfg Config) *Limiter {
	l := &Limiter{
		limit:     cfg.Limit,
		memory:    NewMemoryBackend(cfg.Limit),
		noop:      NewNoopBackend(cfg.Limit),
		exempt:    cfg.ExemptPaths,
		onDegrade: cfg.OnDegrade,
	}

	switch {
	case !cfg.Enabled:
		l.tier.Store(int32(TierNoop))
	case cfg.Store != nil:
		l.distributed = NewDistributedBackend(cfg.Store, cfg.Limit, cfg.KeyPrefix)
		l.tier.Store(int32(TierDistributed))
	default:
		l.tier.Store(int32(TierMemory))
	}

	return l
}

// Limit returns the configured admission budget.
func (l *Limiter) Limit() Limit {
	return l.limit
}

// Tier returns the currently active backend tier.
func (l *Limiter) Tier() Tier {
	return Tier(l.tier.Load())
}

// IsExempt reports whether the request path bypasses admission entirely.
func (l *Limiter) IsExempt(path string) bool {
	for _, prefix := range l.exempt {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Check runs one admission decision for the client identity. A failure of
// the distributed tier degrades the limiter to memory permanently and the
// same check is retried there; callers only ever see an error when the
// request context itself is cancelled.
func (l *Limiter) Check(ctx context.Context, key string) (*Result, error) {
	now := time.Now()

	if l.Tier() == TierDistributed {
		result, err := l.distributed.Check(ctx, key, now)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			// The caller went away; do not blame the store for it.
			return nil, ctx.Err()
		}
		l.degrade(err)
	}

	switch l.Tier() {
	case TierNoop:
		return l.noop.Check(ctx, key, now)
	default:
		return l.memory.Check(ctx, key, now)
	}
}

// degrade permanently abandons the distributed tier. Logged once at
// warning level; a store outage is an operational event, not a request
// error.
func (l *Limiter) degrade(cause error) {
	if l.tier.CompareAndSwap(int32(TierDistributed), int32(TierMemory)) {
		logging.Warn("rate limit store failed, falling back to in-process limiting for the remainder of the process",
			logging.Err(cause),
		)
		if l.onDegrade != nil {
			l.onDegrade()
		}
	}
}
