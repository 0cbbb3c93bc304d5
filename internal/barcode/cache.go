package barcode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultResolveCacheTTL = 12 * time.Hour

// resolveStore defines the Redis operations the cache uses.
type resolveStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	BarcodeResolveKey(orderID, rawCode string) string
}

// RedisResolveCache keeps resolutions for the lifetime of an order view.
type RedisResolveCache struct {
	store resolveStore
	ttl   time.Duration
}

// NewRedisResolveCache builds the resolve cache with the configured TTL.
func NewRedisResolveCache(store resolveStore, ttl time.Duration) (*RedisResolveCache, error) {
	if store == nil {
		return nil, fmt.Errorf("redis store required")
	}
	if ttl <= 0 {
		ttl = defaultResolveCacheTTL
	}
	return &RedisResolveCache{store: store, ttl: ttl}, nil
}

func (c *RedisResolveCache) GetResolution(ctx context.Context, orderID uuid.UUID, rawCode string) (*Resolution, error) {
	payload, err := c.store.Get(ctx, c.store.BarcodeResolveKey(orderID.String(), rawCode))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var resolution Resolution
	if err := json.Unmarshal([]byte(payload), &resolution); err != nil {
		return nil, err
	}
	return &resolution, nil
}

func (c *RedisResolveCache) SetResolution(ctx context.Context, orderID uuid.UUID, rawCode string, res Resolution) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, c.store.BarcodeResolveKey(orderID.String(), rawCode), payload, c.ttl)
}
