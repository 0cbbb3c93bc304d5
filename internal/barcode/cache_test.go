package barcode

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolveStore struct {
	values map[string]string
	ttl    time.Duration
}

func (s *stubResolveStore) Get(ctx context.Context, key string) (string, error) {
	if value, ok := s.values[key]; ok {
		return value, nil
	}
	return "", redis.Nil
}

func (s *stubResolveStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	switch v := value.(type) {
	case []byte:
		s.values[key] = string(v)
	case string:
		s.values[key] = v
	}
	s.ttl = ttl
	return nil
}

func (s *stubResolveStore) BarcodeResolveKey(orderID, rawCode string) string {
	return "pf:barcode:resolve:" + orderID + ":" + rawCode
}

func TestRedisResolveCacheRoundTrip(t *testing.T) {
	store := &stubResolveStore{}
	cache, err := NewRedisResolveCache(store, time.Hour)
	require.NoError(t, err)
	ctx := context.Background()
	orderID := uuid.New()

	miss, err := cache.GetResolution(ctx, orderID, "BOX-1")
	require.NoError(t, err)
	assert.Nil(t, miss)

	want := Resolution{ItemCode: "STK-100", Multiplier: decimal.NewFromInt(12), Rule: RuleAlias}
	require.NoError(t, cache.SetResolution(ctx, orderID, "BOX-1", want))
	assert.Equal(t, time.Hour, store.ttl)

	got, err := cache.GetResolution(ctx, orderID, "BOX-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.ItemCode, got.ItemCode)
	assert.Equal(t, want.Rule, got.Rule)
	assert.True(t, got.Multiplier.Equal(want.Multiplier))
}

func TestRedisResolveCacheDefaultTTL(t *testing.T) {
	store := &stubResolveStore{}
	cache, err := NewRedisResolveCache(store, 0)
	require.NoError(t, err)

	require.NoError(t, cache.SetResolution(context.Background(), uuid.New(), "BOX-1", Resolution{
		ItemCode:   "STK-100",
		Multiplier: decimal.NewFromInt(1),
		Rule:       RuleExact,
	}))
	assert.Equal(t, defaultResolveCacheTTL, store.ttl)
}
