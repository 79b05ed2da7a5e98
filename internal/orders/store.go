package orders

import (
	"context"
	"time"

	"github.com/JairHAM/pos-api/internal/catalog"
)

// Catalog is the read side of the Catalog Store the core depends on.
type Catalog interface {
	ProductsByID(ctx context.Context, ids []string) (map[string]catalog.Product, error)
}

// Ledger is the Order Ledger. Mutations happen only inside WithinTx; a non-nil
// error from fn rolls every write of the transaction back.
type Ledger interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
	GetOrder(ctx context.Context, id string) (Order, error)
	ListOrders(ctx context.Context, f ListFilter) ([]Order, error)
	StatusHistory(ctx context.Context, orderID string) ([]StatusEvent, error)
}

type LedgerTx interface {
	// NextOrderSeq issues the next order sequence value. The value is only
	// consumed if the transaction commits.
	NextOrderSeq(ctx context.Context) (int64, error)
	// ResyncOrderSeq moves the sequence past the highest number already in
	// the ledger. Called before retrying after ErrDuplicateOrderNumber.
	ResyncOrderSeq(ctx context.Context) error
	// InsertOrder writes the order and its items. A taken order number yields
	// ErrDuplicateOrderNumber.
	InsertOrder(ctx context.Context, o *Order) error
	// LockOrder loads the order with its items, locked for the rest of the tx.
	LockOrder(ctx context.Context, id string) (Order, error)
	SetStatus(ctx context.Context, id string, to Status, at time.Time) error
	AppendStatusEvent(ctx context.Context, ev StatusEvent) error
	// DecrementStock lowers the product stock by qty and marks the item as
	// applied. With guard set the stock may not drop below zero
	// (ErrInsufficientStock). A missing product yields ErrProductNotFound.
	DecrementStock(ctx context.Context, item OrderItem, guard bool) error
	// RestoreStock gives an applied item's quantity back and clears the mark.
	RestoreStock(ctx context.Context, item OrderItem) error
}

// StatusCache is a best-effort read cache for order statuses.
type StatusCache interface {
	GetStatus(ctx context.Context, orderID string) (Status, bool)
	SetStatus(ctx context.Context, orderID string, status Status)
}
