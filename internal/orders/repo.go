package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const orderNumberConstraint = "orders_order_number_key"

// Repo is the postgres Order Ledger.
type Repo struct{ DB *pgxpool.Pool }

var _ Ledger = (*Repo)(nil)

// pgTx implements LedgerTx on one pgx transaction.
type pgTx struct{ tx pgx.Tx }

func (r *Repo) WithinTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		if isOrderNumberViolation(err) {
			return ErrDuplicateOrderNumber
		}
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// NextOrderSeq bumps the counter row. The row lock it takes is held until the
// transaction ends, so concurrent creators are serialised on it. A missing row
// is seeded from the highest ORD number already in the ledger.
func (t *pgTx) NextOrderSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO order_counters(name, value)
		SELECT 'orders', COALESCE(MAX(regexp_replace(order_number, '^ORD-', '')::bigint), 0) + 1
		FROM orders WHERE order_number ~ '^ORD-[0-9]+$'
		ON CONFLICT (name) DO UPDATE SET value = order_counters.value + 1
		RETURNING value`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next order seq: %w", err)
	}
	return seq, nil
}

func (t *pgTx) ResyncOrderSeq(ctx context.Context) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE order_counters SET value = GREATEST(value, (
			SELECT COALESCE(MAX(regexp_replace(order_number, '^ORD-', '')::bigint), 0)
			FROM orders WHERE order_number ~ '^ORD-[0-9]+$'))
		WHERE name = 'orders'`)
	if err != nil {
		return fmt.Errorf("resync order seq: %w", err)
	}
	return nil
}

func (t *pgTx) InsertOrder(ctx context.Context, o *Order) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders(id, order_number, user_id, subtotal, tax, discount, total, payment_method,
			table_number, customer_name, notes, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULLIF($9,''),NULLIF($10,''),NULLIF($11,''),$12,$13,$14)`,
		o.ID, o.OrderNumber, o.UserID, o.Subtotal, o.Tax, o.Discount, o.Total, string(o.PaymentMethod),
		o.TableNumber, o.CustomerName, o.Notes, string(o.Status), o.CreatedAt, o.UpdatedAt)
	if isOrderNumberViolation(err) {
		return ErrDuplicateOrderNumber.Wrap(err)
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	batch := &pgx.Batch{}
	for i, it := range o.Items {
		var pid *string
		if it.ProductID != "" {
			pid = &o.Items[i].ProductID
		}
		name := ""
		if it.Product != nil {
			name = it.Product.Name
		}
		batch.Queue(`
			INSERT INTO order_items(id, order_id, position, product_id, product_name, quantity, price, subtotal,
				price_override, notes, stock_applied)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NULLIF($10,''),$11)`,
			it.ID, o.ID, i, pid, name, it.Quantity, it.Price, it.Subtotal, it.PriceOverride, it.Notes, it.StockApplied)
	}
	br := t.tx.SendBatch(ctx, batch)
	for range o.Items {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return br.Close()
}

func (t *pgTx) LockOrder(ctx context.Context, id string) (Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Order{}, ErrOrderNotFound
	}
	o, err := scanOrder(t.tx.QueryRow(ctx, `SELECT `+orderColumns+orderFrom+` WHERE o.id = $1 FOR UPDATE OF o`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("lock order: %w", err)
	}
	items, err := loadItems(ctx, t.tx, []string{id})
	if err != nil {
		return Order{}, err
	}
	o.Items = items[id]
	return o, nil
}

func (t *pgTx) SetStatus(ctx context.Context, id string, to Status, at time.Time) error {
	ct, err := t.tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=$3 WHERE id=$1`, id, string(to), at)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	if ct.RowsAffected() != 1 {
		return ErrOrderNotFound
	}
	return nil
}

func (t *pgTx) AppendStatusEvent(ctx context.Context, ev StatusEvent) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO order_status_events(order_id, from_status, to_status, actor_id, out_of_sequence, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		ev.OrderID, string(ev.From), string(ev.To), ev.ActorID, ev.OutOfSequence, ev.OccurredAt)
	if err != nil {
		return fmt.Errorf("append status event: %w", err)
	}
	return nil
}

const orderColumns = `o.id, o.order_number, o.user_id, u.username, u.full_name, o.subtotal, o.tax, o.discount, o.total,
	o.payment_method, o.table_number, o.customer_name, o.notes, o.status, o.created_at, o.updated_at`

const orderFrom = ` FROM orders o LEFT JOIN users u ON u.id = o.user_id`

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o                     Order
		username, fullName    *string
		table, customer, note *string
		payment, status       string
	)
	err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &username, &fullName, &o.Subtotal, &o.Tax, &o.Discount, &o.Total,
		&payment, &table, &customer, &note, &status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	o.PaymentMethod, o.Status = PaymentMethod(payment), Status(status)
	o.TableNumber, o.CustomerName, o.Notes = deref(table), deref(customer), deref(note)
	if username != nil {
		o.User = &UserRef{ID: o.UserID, Username: *username, FullName: deref(fullName)}
	}
	o.Items = []OrderItem{}
	return o, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// loadItems returns the items of the given orders keyed by order id, in
// insertion order.
func loadItems(ctx context.Context, q querier, orderIDs []string) (map[string][]OrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT i.id, i.order_id, i.product_id, COALESCE(p.name, i.product_name), i.quantity, i.price, i.subtotal,
			i.price_override, i.notes, i.stock_applied
		FROM order_items i LEFT JOIN products p ON p.id = i.product_id
		WHERE i.order_id = ANY($1::uuid[])
		ORDER BY i.order_id, i.position`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]OrderItem, len(orderIDs))
	for rows.Next() {
		var (
			it         OrderItem
			pid, notes *string
			name       string
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &pid, &name, &it.Quantity, &it.Price, &it.Subtotal,
			&it.PriceOverride, &notes, &it.StockApplied); err != nil {
			return nil, err
		}
		it.ProductID, it.Notes = deref(pid), deref(notes)
		it.Product = &ProductRef{ID: it.ProductID, Name: name}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, rows.Err()
}

func (r *Repo) GetOrder(ctx context.Context, id string) (Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Order{}, ErrOrderNotFound
	}
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+orderFrom+` WHERE o.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("get order: %w", err)
	}
	items, err := loadItems(ctx, r.DB, []string{id})
	if err != nil {
		return Order{}, err
	}
	if its := items[id]; its != nil {
		o.Items = its
	}
	return o, nil
}

func (r *Repo) ListOrders(ctx context.Context, f ListFilter) ([]Order, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("o.status = $%d", len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		where = append(where, fmt.Sprintf("o.created_at >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where = append(where, fmt.Sprintf("o.created_at <= $%d", len(args)))
	}
	sql := `SELECT ` + orderColumns + orderFrom
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY o.created_at DESC, o.order_number DESC`

	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := []Order{}
	ids := []string{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}
	items, err := loadItems(ctx, r.DB, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		if its := items[out[i].ID]; its != nil {
			out[i].Items = its
		}
	}
	return out, nil
}

func (r *Repo) StatusHistory(ctx context.Context, orderID string) ([]StatusEvent, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT order_id, from_status, to_status, actor_id, out_of_sequence, occurred_at
		FROM order_status_events WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("status history: %w", err)
	}
	defer rows.Close()

	out := []StatusEvent{}
	for rows.Next() {
		var (
			ev       StatusEvent
			from, to string
		)
		if err := rows.Scan(&ev.OrderID, &from, &to, &ev.ActorID, &ev.OutOfSequence, &ev.OccurredAt); err != nil {
			return nil, err
		}
		ev.From, ev.To = Status(from), Status(to)
		out = append(out, ev)
	}
	return out, rows.Err()
}

func isOrderNumberViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == orderNumberConstraint
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
