package redisx

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/JairHAM/pos-api/internal/orders"
)

// StatusCache keeps order statuses under KeyOrderStatus. Redis failures are
// logged and treated as misses; the ledger stays the source of truth.
type StatusCache struct {
	rdb    redis.Cmdable
	logger *zap.Logger
}

var _ orders.StatusCache = (*StatusCache)(nil)

func NewStatusCache(rdb redis.Cmdable, logger *zap.Logger) *StatusCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusCache{rdb: rdb, logger: logger}
}

type cachedStatus struct {
	Status    orders.Status `json:"status"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (c *StatusCache) GetStatus(ctx context.Context, orderID string) (orders.Status, bool) {
	raw, err := c.rdb.Get(ctx, statusKey(orderID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("status cache get", zap.String("order_id", orderID), zap.Error(err))
		}
		return "", false
	}
	var v cachedStatus
	if err := json.Unmarshal(raw, &v); err != nil || v.Status == "" {
		return "", false
	}
	return v.Status, true
}

func (c *StatusCache) SetStatus(ctx context.Context, orderID string, status orders.Status) {
	b, _ := json.Marshal(cachedStatus{Status: status, UpdatedAt: time.Now().UTC()})
	if err := c.rdb.Set(ctx, statusKey(orderID), b, TTLStatusCache).Err(); err != nil {
		c.logger.Warn("status cache set", zap.String("order_id", orderID), zap.Error(err))
	}
}
