package redisx

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/JairHAM/pos-api/internal/orders"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := New(mr.Addr())
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestStatusCacheRoundTrip(t *testing.T) {
	mr, rdb := newTestRedis(t)
	c := NewStatusCache(rdb, nil)
	ctx := context.Background()

	_, ok := c.GetStatus(ctx, "o1")
	require.False(t, ok)

	c.SetStatus(ctx, "o1", orders.StatusReady)
	st, ok := c.GetStatus(ctx, "o1")
	require.True(t, ok)
	require.Equal(t, orders.StatusReady, st)
	require.Equal(t, TTLStatusCache, mr.TTL("order_status:o1"))

	mr.FastForward(TTLStatusCache)
	_, ok = c.GetStatus(ctx, "o1")
	require.False(t, ok)
}

func TestStatusCacheMissOnRedisFailure(t *testing.T) {
	mr, rdb := newTestRedis(t)
	c := NewStatusCache(rdb, nil)
	mr.Close()

	c.SetStatus(context.Background(), "o1", orders.StatusReady)
	_, ok := c.GetStatus(context.Background(), "o1")
	require.False(t, ok)
}

func TestIdempotencyClaimLifecycle(t *testing.T) {
	_, rdb := newTestRedis(t)
	s := NewIdempotencyStore(rdb)
	ctx := context.Background()

	state, _, err := s.Claim(ctx, "u1", "k1")
	require.NoError(t, err)
	require.Equal(t, IdemNew, state)

	state, _, err = s.Claim(ctx, "u1", "k1")
	require.NoError(t, err)
	require.Equal(t, IdemInFlight, state)

	state, _, err = s.Claim(ctx, "u2", "k1")
	require.NoError(t, err)
	require.Equal(t, IdemNew, state, "keys are scoped per user")

	require.NoError(t, s.Complete(ctx, "u1", "k1", "order-1"))
	state, orderID, err := s.Claim(ctx, "u1", "k1")
	require.NoError(t, err)
	require.Equal(t, IdemDone, state)
	require.Equal(t, "order-1", orderID)

	require.NoError(t, s.Release(ctx, "u2", "k1"))
	state, _, err = s.Claim(ctx, "u2", "k1")
	require.NoError(t, err)
	require.Equal(t, IdemNew, state)
}

func TestDedupAndLowStockSet(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	d := NewDedup(rdb, "inventory")
	seen, err := d.Seen(ctx, "ev-1")
	require.NoError(t, err)
	require.False(t, seen)
	require.NoError(t, d.Mark(ctx, "ev-1"))
	seen, err = d.Seen(ctx, "ev-1")
	require.NoError(t, err)
	require.True(t, seen)

	set := NewLowStockSet(rdb)
	added, err := set.Add(ctx, "p1")
	require.NoError(t, err)
	require.True(t, added)
	added, err = set.Add(ctx, "p1")
	require.NoError(t, err)
	require.False(t, added)
	require.NoError(t, set.Remove(ctx, "p1"))
	members, err := set.Members(ctx)
	require.NoError(t, err)
	require.Empty(t, members)
}
