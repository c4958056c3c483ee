package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/predexchange/predex/internal/domain"
)

const marketTTL = 30 * time.Second

// MarketCache implements domain.MarketCache with JSON-serialized markets
// under a short TTL. Terminal markets never change again, but the short TTL
// keeps active markets from going stale while an order closes them.
type MarketCache struct {
	rdb *redis.Client
}

// NewMarketCache creates a MarketCache backed by the given Client.
func NewMarketCache(c *Client) *MarketCache {
	return &MarketCache{rdb: c.rdb}
}

func marketKey(id int64) string {
	return "market:" + strconv.FormatInt(id, 10)
}

// Get returns the cached market and whether it was present. A cache error is
// surfaced so callers can decide to fall through to the store.
func (mc *MarketCache) Get(ctx context.Context, id int64) (domain.Market, bool, error) {
	data, err := mc.rdb.Get(ctx, marketKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Market{}, false, nil
		}
		return domain.Market{}, false, fmt.Errorf("redis: get market %d: %w", id, err)
	}

	var m domain.Market
	if err := json.Unmarshal(data, &m); err != nil {
		return domain.Market{}, false, fmt.Errorf("redis: unmarshal market %d: %w", id, err)
	}
	return m, true, nil
}

// Set stores a market with the cache TTL.
func (mc *MarketCache) Set(ctx context.Context, m domain.Market) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("redis: marshal market %d: %w", m.ID, err)
	}
	if err := mc.rdb.Set(ctx, marketKey(m.ID), data, marketTTL).Err(); err != nil {
		return fmt.Errorf("redis: set market %d: %w", m.ID, err)
	}
	return nil
}

// Invalidate drops a market from the cache after a state transition.
func (mc *MarketCache) Invalidate(ctx context.Context, id int64) error {
	if err := mc.rdb.Del(ctx, marketKey(id)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate market %d: %w", id, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.MarketCache = (*MarketCache)(nil)
