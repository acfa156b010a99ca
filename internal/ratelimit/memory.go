package ratelimit

import (
	"context"
	"sync"
	"time"
)

// memoryBackend keeps per-key timestamp logs in process memory. A single
// mutex serializes all window mutations; the maps are pruned lazily on
// each check, so idle keys disappear once their window drains.
type memoryBackend struct {
	mu      sync.Mutex
	limit   Limit
	windows map[string][]time.Time
}

// NewMemoryBackend creates the in-process sliding-window backend.
func NewMemoryBackend(limit Limit) Backend {
	return &memoryBackend{
		limit:   limit,
		windows: make(map[string][]time.Time),
	}
}

func (m *memoryBackend) Name() string {
	return "memory"
}

func (m *memoryBackend) Check(ctx context.Context, key string, now time.Time) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := now.Add(-m.limit.Window)
	window := m.windows[key]

	// Purge entries that fell out of the trailing window. Timestamps are
	// appended in order, so the retained suffix starts at the first entry
	// newer than the cutoff.
	keep := 0
	for keep < len(window) && !window[keep].After(cutoff) {
		keep++
	}
	window = window[keep:]

	count := len(window)
	if count >= m.limit.Count {
		if count == 0 {
			// Limit of zero: nothing retained, nothing ever admitted.
			m.prune(key, window)
			return &Result{
				Allowed:   false,
				Limit:     m.limit.Count,
				Remaining: 0,
				ResetAt:   now.Add(m.limit.Window),
			}, nil
		}
		m.windows[key] = window
		return &Result{
			Allowed:   false,
			Limit:     m.limit.Count,
			Remaining: 0,
			ResetAt:   window[0].Add(m.limit.Window),
		}, nil
	}

	window = append(window, now)
	m.windows[key] = window

	return &Result{
		Allowed:   true,
		Limit:     m.limit.Count,
		Remaining: m.limit.Count - count - 1,
		ResetAt:   window[0].Add(m.limit.Window),
	}, nil
}

// prune drops the key entirely when its window is empty, keeping the map
// from growing without bound under churning identities.
func (m *memoryBackend) prune(key string, window []time.Time) {
	if len(window) == 0 {
		delete(m.windows, key)
		return
	}
	m.windows[key] = window
}
