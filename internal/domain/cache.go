package domain

import (
	"context"
	"time"
)

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// StreamMessage represents a single entry from a durable stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub and durable streams. The exchange publishes
// lifecycle events and queued transfer instructions on it; the websocket hub
// and the external settler consume them.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}

// LockManager provides distributed locks. The settlement archiver holds one
// per market so only one instance exports a resolved market at a time.
// Acquire returns ErrLockHeld when another holder has the lock.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// MarketCache is a read-through cache for hot market lookups.
type MarketCache interface {
	Get(ctx context.Context, id int64) (Market, bool, error)
	Set(ctx context.Context, m Market) error
	Invalidate(ctx context.Context, id int64) error
}
