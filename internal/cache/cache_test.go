package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luizaugustom/montshop-desktop-sub000/internal/domain"
)

func TestNoopProductCacheNeverHits(t *testing.T) {
	var c ProductCache = NoopProductCache{}
	require.NoError(t, c.Set(context.Background(), "k", &domain.ProductPage{Total: 1}, time.Minute))
	page, ok, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, page)
}

func TestRedisProductCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("MONTSHOP_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("MONTSHOP_TEST_REDIS_ADDR is not set")
	}
	c := NewRedisProductCache(addr, "", 0)
	defer c.Close()
	ctx := context.Background()
	require.NoError(t, c.Ping(ctx))

	key := "montshop:test:products:" + time.Now().Format("150405.000000")
	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	want := &domain.ProductPage{Products: []domain.Product{{ID: "p-1", Name: "Hat", Price: 15.5, StockQuantity: 2}}, Page: 1, Limit: 20, Total: 1}
	require.NoError(t, c.Set(ctx, key, want, 5*time.Second))
	got, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}
