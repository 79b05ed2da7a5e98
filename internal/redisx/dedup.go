package redisx

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Dedup remembers processed event ids per consumer service.
type Dedup struct {
	rdb     redis.Cmdable
	service string
}

func NewDedup(rdb redis.Cmdable, service string) *Dedup {
	return &Dedup{rdb: rdb, service: service}
}

// Seen reports whether eventID was already marked.
func (d *Dedup) Seen(ctx context.Context, eventID string) (bool, error) {
	return Exists(ctx, d.rdb, dedupKey(d.service, eventID))
}

// Mark records eventID as processed. Call it only after the event was handled.
func (d *Dedup) Mark(ctx context.Context, eventID string) error {
	return d.rdb.Set(ctx, dedupKey(d.service, eventID), "1", TTLDedup).Err()
}

// LowStockSet mirrors the products currently at or below their minimum stock.
type LowStockSet struct{ rdb redis.Cmdable }

func NewLowStockSet(rdb redis.Cmdable) *LowStockSet { return &LowStockSet{rdb: rdb} }

// Add reports whether productID was newly added.
func (s *LowStockSet) Add(ctx context.Context, productID string) (bool, error) {
	n, err := s.rdb.SAdd(ctx, KeyLowStock, productID).Result()
	return n > 0, err
}

func (s *LowStockSet) Remove(ctx context.Context, productID string) error {
	return s.rdb.SRem(ctx, KeyLowStock, productID).Err()
}

func (s *LowStockSet) Members(ctx context.Context) ([]string, error) {
	return s.rdb.SMembers(ctx, KeyLowStock).Result()
}
