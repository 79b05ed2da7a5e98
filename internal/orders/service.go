package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	kafkax "github.com/JairHAM/pos-api/internal/kafka"
	"github.com/JairHAM/pos-api/internal/observability"
)

// maxNumberAttempts bounds the retries after an order number unique violation.
const maxNumberAttempts = 3

// EventPublisher is satisfied by the kafka producer.
type EventPublisher interface {
	Publish(topic string, key, value []byte, headers ...kafkago.Header)
}

type ServiceDeps struct {
	Catalog Catalog
	Ledger  Ledger
	Policy  Policy

	// Optional collaborators; nil disables them.
	Events  EventPublisher
	Cache   StatusCache
	Metrics *observability.Metrics

	Logger      *zap.Logger
	ServiceName string
	Now         func() time.Time
	NewID       func() string
}

// Service is the order processing core: creation, lookups and the status machine.
type Service struct {
	catalog Catalog
	ledger  Ledger
	policy  Policy
	events  EventPublisher
	cache   StatusCache
	metrics *observability.Metrics
	logger  *zap.Logger
	name    string
	now     func() time.Time
	newID   func() string
}

func NewService(d ServiceDeps) *Service {
	s := &Service{
		catalog: d.Catalog,
		ledger:  d.Ledger,
		policy:  d.Policy,
		events:  d.Events,
		cache:   d.Cache,
		metrics: d.Metrics,
		logger:  d.Logger,
		name:    d.ServiceName,
		now:     d.Now,
		newID:   d.NewID,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.name == "" {
		s.name = "pos-api"
	}
	return s
}

func (s *Service) Policy() Policy { return s.policy }

type CreateOrderInput struct {
	UserID        string
	Items         []ItemRequest
	PaymentMethod PaymentMethod
	TableNumber   string
	CustomerName  string
	Notes         string
	Tax           decimal.NullDecimal
	Discount      decimal.NullDecimal
}

// StockWarning reports a line whose best-effort decrement failed after the
// order was committed.
type StockWarning struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Reason    string `json:"reason"`
}

type CreateResult struct {
	Order         Order
	StockWarnings []StockWarning
}

// CreateOrder validates, prices, numbers and writes a new order, then applies
// stock according to the policy. Every validation and lookup failure happens
// before the first write.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (CreateResult, error) {
	if in.UserID == "" {
		return CreateResult{}, ErrMissingUser
	}
	if len(in.Items) == 0 {
		return CreateResult{}, ErrEmptyItems
	}
	if s.policy.RequireTableNumber && strings.TrimSpace(in.TableNumber) == "" {
		return CreateResult{}, ErrTableNumberRequired
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = PaymentCash
	}
	if !in.PaymentMethod.Valid() {
		return CreateResult{}, ErrInvalidPayment.WithDetails("paymentMethod", string(in.PaymentMethod))
	}

	ids := make([]string, 0, len(in.Items))
	seen := make(map[string]bool, len(in.Items))
	for _, it := range in.Items {
		if it.ProductID != "" && !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}
	products, err := s.catalog.ProductsByID(ctx, ids)
	if err != nil {
		return CreateResult{}, fmt.Errorf("load products: %w", err)
	}
	quote, err := Price(in.Items, products, in.Tax, in.Discount, s.policy.Pricing)
	if err != nil {
		return CreateResult{}, err
	}

	o := s.buildOrder(in, quote)
	atomic := s.policy.decrementsAtCreation() && s.policy.StockMode == StockAtomic
	guard := !s.policy.AllowNegativeStock

	var written bool
	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		for i := range o.Items {
			o.Items[i].StockApplied = false
		}
		retry := attempt > 1
		err = s.ledger.WithinTx(ctx, func(ctx context.Context, tx LedgerTx) error {
			if retry {
				if err := tx.ResyncOrderSeq(ctx); err != nil {
					return err
				}
			}
			seq, err := tx.NextOrderSeq(ctx)
			if err != nil {
				return err
			}
			o.OrderNumber = FormatOrderNumber(seq)
			if err := tx.InsertOrder(ctx, &o); err != nil {
				return err
			}
			if !atomic {
				return nil
			}
			for i := range o.Items {
				if err := tx.DecrementStock(ctx, o.Items[i], guard); err != nil {
					return err
				}
				o.Items[i].StockApplied = true
			}
			return nil
		})
		if errors.Is(err, ErrDuplicateOrderNumber) {
			s.logger.Warn("order number taken, retrying",
				zap.String("order_number", o.OrderNumber), zap.Int("attempt", attempt))
			if s.metrics != nil {
				s.metrics.NumberConflicts.Inc()
			}
			continue
		}
		if err != nil {
			return CreateResult{}, err
		}
		written = true
		break
	}
	if !written {
		return CreateResult{}, ErrOrderNumberConflict
	}

	var warnings []StockWarning
	if s.policy.decrementsAtCreation() && !atomic {
		warnings = s.decrementEach(ctx, &o, guard)
	}

	if s.cache != nil {
		s.cache.SetStatus(ctx, o.ID, o.Status)
	}
	if s.metrics != nil {
		s.metrics.OrdersCreated.WithLabelValues(string(s.policy.Placement)).Inc()
	}
	s.publish(ctx, TopicOrderCreated, EventOrderCreated, o.ID, OrderCreatedPayload{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		Status:      o.Status,
		Items:       itemQtys(o.Items),
		Total:       o.Total,
	})
	s.logger.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("order_number", o.OrderNumber),
		zap.String("total", o.Total.StringFixed(2)),
		zap.String("status", string(o.Status)),
		zap.String("policy", string(s.policy.Placement)),
		zap.Int("stock_warnings", len(warnings)),
	)

	if full, err := s.ledger.GetOrder(ctx, o.ID); err == nil {
		o = full
	}
	return CreateResult{Order: o, StockWarnings: warnings}, nil
}

func (s *Service) buildOrder(in CreateOrderInput, q Quote) Order {
	now := s.now()
	o := Order{
		ID:            s.newID(),
		UserID:        in.UserID,
		Subtotal:      q.Subtotal,
		Tax:           q.Tax,
		Discount:      q.Discount,
		Total:         q.Total,
		PaymentMethod: in.PaymentMethod,
		TableNumber:   strings.TrimSpace(in.TableNumber),
		CustomerName:  in.CustomerName,
		Notes:         in.Notes,
		Status:        s.policy.initialStatus(),
		Items:         make([]OrderItem, 0, len(q.Lines)),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, l := range q.Lines {
		o.Items = append(o.Items, OrderItem{
			ID:            s.newID(),
			OrderID:       o.ID,
			ProductID:     l.ProductID,
			Product:       &ProductRef{ID: l.ProductID, Name: l.ProductName},
			Quantity:      l.Quantity,
			Price:         l.UnitPrice,
			Subtotal:      l.Subtotal,
			PriceOverride: l.PriceOverride,
			Notes:         l.Notes,
		})
	}
	return o
}

// decrementEach applies every line in its own transaction. Failures never
// undo the committed order; they come back as warnings.
func (s *Service) decrementEach(ctx context.Context, o *Order, guard bool) []StockWarning {
	var warnings []StockWarning
	for i := range o.Items {
		it := o.Items[i]
		err := s.ledger.WithinTx(ctx, func(ctx context.Context, tx LedgerTx) error {
			return tx.DecrementStock(ctx, it, guard)
		})
		if err == nil {
			o.Items[i].StockApplied = true
			continue
		}
		s.stockFailed(ctx, o.ID, it, err)
		warnings = append(warnings, StockWarning{ProductID: it.ProductID, Quantity: it.Quantity, Reason: reason(err)})
	}
	return warnings
}

func (s *Service) stockFailed(ctx context.Context, orderID string, it OrderItem, err error) {
	s.logger.Warn("stock decrement failed",
		zap.String("order_id", orderID),
		zap.String("product_id", it.ProductID),
		zap.Int("qty", it.Quantity),
		zap.Error(err),
	)
	if s.metrics != nil {
		s.metrics.StockFailures.Inc()
	}
	s.publish(ctx, TopicStockFailed, EventStockDecrementFailed, orderID, StockFailedPayload{
		OrderID:   orderID,
		ProductID: it.ProductID,
		Qty:       it.Quantity,
		Reason:    reason(err),
	})
}

func reason(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientStock):
		return ErrInsufficientStock.Code
	case errors.Is(err, ErrProductNotFound):
		return ErrProductNotFound.Code
	default:
		return "storage_error"
	}
}

func (s *Service) GetOrder(ctx context.Context, id string) (Order, error) {
	return s.ledger.GetOrder(ctx, id)
}

// ListOrders returns matching orders, newest first.
func (s *Service) ListOrders(ctx context.Context, f ListFilter) ([]Order, error) {
	return s.ledger.ListOrders(ctx, f)
}

func (s *Service) StatusHistory(ctx context.Context, id string) ([]StatusEvent, error) {
	if _, err := s.ledger.GetOrder(ctx, id); err != nil {
		return nil, err
	}
	return s.ledger.StatusHistory(ctx, id)
}

// Status answers from the status cache and falls back to the ledger.
func (s *Service) Status(ctx context.Context, id string) (Status, error) {
	if s.cache != nil {
		if st, ok := s.cache.GetStatus(ctx, id); ok {
			return st, nil
		}
	}
	o, err := s.ledger.GetOrder(ctx, id)
	if err != nil {
		return "", err
	}
	if s.cache != nil {
		s.cache.SetStatus(ctx, id, o.Status)
	}
	return o.Status, nil
}

// UpdateStatus moves an order to status to. Any recognised status is accepted
// unless the policy is strict, in which case only forward-chain moves pass.
func (s *Service) UpdateStatus(ctx context.Context, id string, to Status, actorID string) (Order, error) {
	if _, err := ParseStatus(string(to)); err != nil {
		return Order{}, err
	}
	return s.transition(ctx, id, to, actorID, false)
}

// Cancel forces CANCELLED from any state. Cancelling a cancelled order is a no-op.
func (s *Service) Cancel(ctx context.Context, id, actorID string) (Order, error) {
	return s.transition(ctx, id, StatusCancelled, actorID, true)
}

func (s *Service) transition(ctx context.Context, id string, to Status, actorID string, force bool) (Order, error) {
	var (
		ev       StatusEvent
		changed  bool
		items    []OrderItem
		orderNum string
	)
	err := s.ledger.WithinTx(ctx, func(ctx context.Context, tx LedgerTx) error {
		o, err := tx.LockOrder(ctx, id)
		if err != nil {
			return err
		}
		if o.Status == to {
			return nil
		}
		outOfSeq := !CanTransition(o.Status, to)
		if outOfSeq && s.policy.StrictTransitions && !force {
			return ErrInvalidTransition.WithDetails("from", string(o.Status)).WithDetails("to", string(to))
		}

		now := s.now()
		if err := tx.SetStatus(ctx, id, to, now); err != nil {
			return err
		}
		ev = StatusEvent{OrderID: id, From: o.Status, To: to, ActorID: actorID, OutOfSequence: outOfSeq, OccurredAt: now}
		if err := tx.AppendStatusEvent(ctx, ev); err != nil {
			return err
		}
		if err := s.applyStockOnTransition(ctx, tx, &o, to); err != nil {
			return err
		}
		changed, items, orderNum = true, o.Items, o.OrderNumber
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	if changed {
		s.afterTransition(ctx, ev, orderNum, items)
	}
	return s.ledger.GetOrder(ctx, id)
}

// applyStockOnTransition runs the optional restock and deferred decrement
// inside the status transaction. Per-line stock refusals are logged and skipped.
func (s *Service) applyStockOnTransition(ctx context.Context, tx LedgerTx, o *Order, to Status) error {
	switch {
	case to == StatusCancelled && s.policy.RestockOnCancel:
		for i, it := range o.Items {
			if !it.StockApplied || it.ProductID == "" {
				continue
			}
			if err := tx.RestoreStock(ctx, it); err != nil {
				if errors.Is(err, ErrProductNotFound) {
					s.logger.Warn("restock skipped, product gone", zap.String("order_id", o.ID), zap.String("product_id", it.ProductID))
					continue
				}
				return err
			}
			o.Items[i].StockApplied = false
			s.logger.Info("stock restored",
				zap.String("order_id", o.ID), zap.String("product_id", it.ProductID), zap.Int("qty", it.Quantity))
		}
	case to == StatusCompleted && s.policy.DecrementOnCompletion:
		guard := !s.policy.AllowNegativeStock
		for i, it := range o.Items {
			if it.StockApplied || it.ProductID == "" {
				continue
			}
			err := tx.DecrementStock(ctx, it, guard)
			switch {
			case err == nil:
				o.Items[i].StockApplied = true
			case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrProductNotFound):
				s.stockFailed(ctx, o.ID, it, err)
			default:
				return err
			}
		}
	}
	return nil
}

func (s *Service) afterTransition(ctx context.Context, ev StatusEvent, orderNumber string, items []OrderItem) {
	if s.cache != nil {
		s.cache.SetStatus(ctx, ev.OrderID, ev.To)
	}
	if s.metrics != nil {
		s.metrics.StatusChanges.WithLabelValues(string(ev.To), fmt.Sprint(ev.OutOfSequence)).Inc()
	}
	fields := []zap.Field{
		zap.String("order_id", ev.OrderID),
		zap.String("order_number", orderNumber),
		zap.String("from", string(ev.From)),
		zap.String("to", string(ev.To)),
		zap.String("actor_id", ev.ActorID),
	}
	if ev.OutOfSequence {
		s.logger.Warn("out of sequence status transition", fields...)
	} else {
		s.logger.Info("order status changed", fields...)
	}
	s.publish(ctx, TopicOrderStatusChanged, EventOrderStatusChanged, ev.OrderID, OrderStatusChangedPayload{
		OrderID:       ev.OrderID,
		OrderNumber:   orderNumber,
		From:          ev.From,
		To:            ev.To,
		ActorID:       ev.ActorID,
		OutOfSequence: ev.OutOfSequence,
		Items:         itemQtys(items),
	})
}

func (s *Service) publish(ctx context.Context, topic, eventType, orderID string, payload any) {
	if s.events == nil {
		return
	}
	env := Envelope{
		EventID:       s.newID(),
		EventType:     eventType,
		EventVersion:  EventVersion,
		OccurredAt:    s.now(),
		Producer:      s.name,
		TraceID:       observability.TraceID(ctx),
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	s.events.Publish(topic, PartitionKey(orderID), kafkax.MustMarshal(env), kafkax.EventHeaders(eventType, EventVersion)...)
}
