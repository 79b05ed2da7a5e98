package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/JairHAM/pos-api/internal/orders"
)

type memTx struct{ s *Store }

// WithinTx runs fn under the store mutex; on error every change fn made is
// rolled back from a snapshot taken up front.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx orders.LedgerTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	snap := s.snapshot()
	if err := fn(ctx, memTx{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (t memTx) NextOrderSeq(context.Context) (int64, error) {
	t.s.seq++
	return t.s.seq, nil
}

func (t memTx) ResyncOrderSeq(context.Context) error {
	for number := range t.s.numbers {
		if n, ok := orders.ParseOrderNumber(number); ok && n > t.s.seq {
			t.s.seq = n
		}
	}
	return nil
}

func (t memTx) InsertOrder(_ context.Context, o *orders.Order) error {
	if _, taken := t.s.numbers[o.OrderNumber]; taken {
		return orders.ErrDuplicateOrderNumber
	}
	t.s.numbers[o.OrderNumber] = o.ID
	t.s.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (t memTx) LockOrder(_ context.Context, id string) (orders.Order, error) {
	o, ok := t.s.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (t memTx) SetStatus(_ context.Context, id string, to orders.Status, at time.Time) error {
	o, ok := t.s.orders[id]
	if !ok {
		return orders.ErrOrderNotFound
	}
	o.Status, o.UpdatedAt = to, at
	t.s.orders[id] = o
	return nil
}

func (t memTx) AppendStatusEvent(_ context.Context, ev orders.StatusEvent) error {
	t.s.events = append(t.s.events, ev)
	return nil
}

func (t memTx) DecrementStock(_ context.Context, item orders.OrderItem, guard bool) error {
	p, ok := t.s.products[item.ProductID]
	if !ok || item.ProductID == "" {
		return orders.ErrProductNotFound.WithDetails("productId", item.ProductID)
	}
	if guard && p.Stock < item.Quantity {
		return orders.ErrInsufficientStock.
			WithDetails("productId", item.ProductID).
			WithDetails("requested", item.Quantity).
			WithDetails("available", p.Stock)
	}
	p.Stock -= item.Quantity
	p.UpdatedAt = t.s.now()
	t.s.products[p.ID] = p
	t.setApplied(item, true)
	return nil
}

func (t memTx) RestoreStock(_ context.Context, item orders.OrderItem) error {
	if !t.setApplied(item, false) {
		return nil
	}
	p, ok := t.s.products[item.ProductID]
	if !ok {
		return orders.ErrProductNotFound.WithDetails("productId", item.ProductID)
	}
	p.Stock += item.Quantity
	p.UpdatedAt = t.s.now()
	t.s.products[p.ID] = p
	return nil
}

// setApplied flips the stock mark of a stored item and reports whether it changed.
func (t memTx) setApplied(item orders.OrderItem, applied bool) bool {
	o, ok := t.s.orders[item.OrderID]
	if !ok {
		return false
	}
	for i := range o.Items {
		if o.Items[i].ID == item.ID {
			if o.Items[i].StockApplied == applied {
				return false
			}
			o.Items[i].StockApplied = applied
			t.s.orders[item.OrderID] = o
			return true
		}
	}
	return false
}

// view resolves the user and current product names the way the SQL joins do.
func (s *Store) view(o orders.Order) orders.Order {
	o = cloneOrder(o)
	if u, ok := s.users[o.UserID]; ok {
		o.User = &orders.UserRef{ID: u.ID, Username: u.Username, FullName: u.FullName}
	}
	for i, it := range o.Items {
		name := ""
		if it.Product != nil {
			name = it.Product.Name
		}
		if p, ok := s.products[it.ProductID]; ok {
			name = p.Name
		}
		o.Items[i].Product = &orders.ProductRef{ID: it.ProductID, Name: name}
	}
	return o
}

func (s *Store) GetOrder(_ context.Context, id string) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return s.view(o), nil
}

func (s *Store) ListOrders(_ context.Context, f orders.ListFilter) ([]orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []orders.Order{}
	for _, o := range s.orders {
		if f.Match(o) {
			out = append(out, s.view(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].OrderNumber > out[j].OrderNumber
	})
	return out, nil
}

func (s *Store) StatusHistory(_ context.Context, orderID string) ([]orders.StatusEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []orders.StatusEvent{}
	for _, ev := range s.events {
		if ev.OrderID == orderID {
			out = append(out, ev)
		}
	}
	return out, nil
}

// PutOrder stores o as is, bypassing the order sequence. It is meant for
// importing existing ledgers and for fixtures.
func (s *Store) PutOrder(o orders.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = cloneOrder(o)
	s.numbers[o.OrderNumber] = o.ID
}

// OrderCount reports how many orders the ledger holds.
func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}
