package redisx

import (
	"fmt"
	"time"
)

const (
	// idem:order:create:{user_id}:{key} -> order id, or "pending" while the first request runs
	KeyIdemOrderCreate = "idem:order:create:%s:%s"

	// order_status:{order_id} -> {"status": "...", "updated_at": "..."}
	KeyOrderStatus = "order_status:%s"

	// dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Set of product ids currently at or below their minimum stock.
	KeyLowStock = "inventory:low_stock"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLIdemPending = 30 * time.Second
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)

func idemKey(scope, key string) string        { return fmt.Sprintf(KeyIdemOrderCreate, scope, key) }
func statusKey(orderID string) string         { return fmt.Sprintf(KeyOrderStatus, orderID) }
func dedupKey(service, eventID string) string { return fmt.Sprintf(KeyDedup, service, eventID) }
