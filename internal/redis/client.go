// Package redis wraps the go-redis client with the sorted-set operations
// the distributed rate-limit tier needs: purge-below-score, count,
// add-with-score, expiry, and oldest-entry lookup.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

type Client struct {
	rdb    *redis.Client
	config *Config
}

type Config struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("redis config is required")
	}

	if config.Address == "" {
		config.Address = "localhost:6379"
	}
	if config.PoolSize == 0 {
		config.PoolSize = 10
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
		PoolSize: config.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{
		rdb:    rdb,
		config: config,
	}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

// WindowState describes the retained request log for one client key after
// purging entries that fell out of the trailing window.
type WindowState struct {
	Count  int       // entries still inside the window
	Oldest time.Time // zero when the window is empty
}

// Timestamps are stored as sorted-set scores in microseconds. Microsecond
// epoch values stay below 2^53, so they survive the float64 score round-trip
// exactly.
func score(t time.Time) float64 {
	return float64(t.UnixMicro())
}

func fromScore(s float64) time.Time {
	return time.UnixMicro(int64(s))
}

// WindowSnapshot purges entries older than now-window for the key and
// returns the surviving count plus the oldest retained timestamp. It does
// not record the current request; admission is a separate commit so a
// rejected or cancelled check leaves no trace.
func (c *Client) WindowSnapshot(ctx context.Context, key string, now time.Time, window time.Duration) (*WindowState, error) {
	cutoff := strconv.FormatFloat(score(now.Add(-window)), 'f', -1, 64)

	pipe := c.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", cutoff)
	countCmd := pipe.ZCard(ctx, key)
	oldestCmd := pipe.ZRangeWithScores(ctx, key, 0, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to read rate window: %w", err)
	}

	state := &WindowState{Count: int(countCmd.Val())}
	if entries := oldestCmd.Val(); len(entries) > 0 {
		state.Oldest = fromScore(entries[0].Score)
	}
	return state, nil
}

// RecordAdmission appends the current request timestamp to the key's log
// and refreshes the key TTL to the window length. Identical timestamps are
// kept as distinct entries (the member is unique per request).
func (c *Client) RecordAdmission(ctx context.Context, key string, now time.Time, window time.Duration) error {
	pipe := c.rdb.TxPipeline()
	pipe.ZAdd(ctx, key, &redis.Z{Score: score(now), Member: uuid.NewString()})
	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record admission: %w", err)
	}
	return nil
}
