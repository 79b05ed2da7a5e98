package orders

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated         = "OrderCreated"
	EventOrderStatusChanged   = "OrderStatusChanged"
	EventStockDecrementFailed = "StockDecrementFailed"
	EventLowStock             = "LowStock"

	EventVersion = 1
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type ItemQty struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
	Applied   bool   `json:"stock_applied"`
}

type OrderCreatedPayload struct {
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      string          `json:"user_id"`
	Status      Status          `json:"status"`
	Items       []ItemQty       `json:"items"`
	Total       decimal.Decimal `json:"total"`
}

type OrderStatusChangedPayload struct {
	OrderID       string    `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	From          Status    `json:"from"`
	To            Status    `json:"to"`
	ActorID       string    `json:"actor_id"`
	OutOfSequence bool      `json:"out_of_sequence"`
	Items         []ItemQty `json:"items,omitempty"`
}

type StockFailedPayload struct {
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
	Reason    string `json:"reason"`
}

type LowStockPayload struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
	MinStock  int    `json:"min_stock"`
}

func itemQtys(items []OrderItem) []ItemQty {
	out := make([]ItemQty, 0, len(items))
	for _, it := range items {
		if it.ProductID == "" {
			continue
		}
		out = append(out, ItemQty{ProductID: it.ProductID, Qty: it.Quantity, Applied: it.StockApplied})
	}
	return out
}
