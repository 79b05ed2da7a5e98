package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash  PaymentMethod = "CASH"
	PaymentCard  PaymentMethod = "CARD"
	PaymentOther PaymentMethod = "OTHER"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentOther:
		return true
	}
	return false
}

// UserRef is the acting user resolved for display.
type UserRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName,omitempty"`
}

// ProductRef is the non-owning product reference of an order item.
type ProductRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Order struct {
	ID            string          `json:"id"`
	OrderNumber   string          `json:"orderNumber"`
	UserID        string          `json:"userId"`
	User          *UserRef        `json:"user,omitempty"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	TableNumber   string          `json:"tableNumber,omitempty"`
	CustomerName  string          `json:"customerName,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	Status        Status          `json:"status"`
	Items         []OrderItem     `json:"items"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// OrderItem is a sale record: price is the unit price used at the time of sale.
type OrderItem struct {
	ID            string          `json:"id"`
	OrderID       string          `json:"orderId"`
	ProductID     string          `json:"productId,omitempty"`
	Product       *ProductRef     `json:"product,omitempty"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	PriceOverride bool            `json:"priceOverride"`
	Notes         string          `json:"notes,omitempty"`
	StockApplied  bool            `json:"stockApplied"`
}

// StatusEvent is one audited status transition.
type StatusEvent struct {
	OrderID       string    `json:"orderId"`
	From          Status    `json:"from"`
	To            Status    `json:"to"`
	ActorID       string    `json:"actorId"`
	OutOfSequence bool      `json:"outOfSequence"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// ListFilter selects orders by status and an inclusive creation range.
type ListFilter struct {
	Status Status
	From   *time.Time
	To     *time.Time
}

// Match reports whether o satisfies the filter.
func (f ListFilter) Match(o Order) bool {
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.From != nil && o.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && o.CreatedAt.After(*f.To) {
		return false
	}
	return true
}
