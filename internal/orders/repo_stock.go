package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// DecrementStock lowers the product's stock in a single conditional UPDATE, so
// concurrent decrements of one product never lose an update.
func (t *pgTx) DecrementStock(ctx context.Context, item OrderItem, guard bool) error {
	if item.ProductID == "" {
		return ErrProductNotFound.WithDetails("itemId", item.ID)
	}
	var stock int
	err := t.tx.QueryRow(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND (NOT $3 OR stock >= $2)
		RETURNING stock`, item.ProductID, item.Quantity, guard).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return t.missingOrShort(ctx, item)
	}
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	return t.markApplied(ctx, item.ID, true)
}

// RestoreStock gives the quantity back only while the item is marked applied.
func (t *pgTx) RestoreStock(ctx context.Context, item OrderItem) error {
	ct, err := t.tx.Exec(ctx, `UPDATE order_items SET stock_applied = FALSE WHERE id = $1 AND stock_applied`, item.ID)
	if err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nil
	}
	ct, err = t.tx.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at = now() WHERE id = $1`,
		item.ProductID, item.Quantity)
	if err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}
	if ct.RowsAffected() != 1 {
		return ErrProductNotFound.WithDetails("productId", item.ProductID)
	}
	return nil
}

func (t *pgTx) missingOrShort(ctx context.Context, item OrderItem) error {
	var stock int
	err := t.tx.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, item.ProductID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrProductNotFound.WithDetails("productId", item.ProductID)
	}
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	return ErrInsufficientStock.
		WithDetails("productId", item.ProductID).
		WithDetails("requested", item.Quantity).
		WithDetails("available", stock)
}

func (t *pgTx) markApplied(ctx context.Context, itemID string, applied bool) error {
	if _, err := t.tx.Exec(ctx, `UPDATE order_items SET stock_applied = $2 WHERE id = $1`, itemID, applied); err != nil {
		return fmt.Errorf("mark stock applied: %w", err)
	}
	return nil
}
