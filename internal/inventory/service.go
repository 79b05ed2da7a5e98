package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/JairHAM/pos-api/internal/catalog"
	kafkax "github.com/JairHAM/pos-api/internal/kafka"
	"github.com/JairHAM/pos-api/internal/orders"
)

// Topics the watcher consumes.
var Topics = []string{orders.TopicOrderCreated, orders.TopicOrderStatusChanged}

type ProductLookup interface {
	ProductsByID(ctx context.Context, ids []string) (map[string]catalog.Product, error)
}

type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

type LowStockSet interface {
	Add(ctx context.Context, productID string) (bool, error)
	Remove(ctx context.Context, productID string) error
	Members(ctx context.Context) ([]string, error)
}

// Service watches order events and raises low-stock alerts for the products
// they touched.
type Service struct {
	Products    ProductLookup
	Dedup       Deduper
	LowStock    LowStockSet
	Events      orders.EventPublisher
	ServiceName string
	Logger      *zap.Logger
}

// HandleOrderEvent is installed as the consumer handler.
func (s *Service) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		s.logger().Warn("skipping undecodable message", zap.String("topic", m.Topic), zap.Error(err))
		return nil
	}

	var productIDs []string
	switch env.EventType {
	case orders.EventOrderCreated:
		p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
		if err != nil {
			return err
		}
		productIDs = distinctProducts(p.Items, true)
	case orders.EventOrderStatusChanged:
		p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			return err
		}
		// a transition may restock as well as decrement, so every line is rechecked
		productIDs = distinctProducts(p.Items, false)
	default:
		return nil
	}

	if seen, err := s.Dedup.Seen(ctx, env.EventID); err != nil {
		return fmt.Errorf("dedup lookup: %w", err)
	} else if seen {
		return nil
	}

	if len(productIDs) > 0 {
		if err := s.check(ctx, productIDs, env); err != nil {
			return err
		}
	}
	return s.Dedup.Mark(ctx, env.EventID)
}

func (s *Service) check(ctx context.Context, ids []string, cause orders.Envelope) error {
	products, err := s.Products.ProductsByID(ctx, ids)
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}
	for _, id := range ids {
		p, ok := products[id]
		if !ok {
			continue
		}
		if !p.LowStock() {
			if err := s.LowStock.Remove(ctx, id); err != nil {
				return err
			}
			continue
		}
		added, err := s.LowStock.Add(ctx, id)
		if err != nil {
			return err
		}
		if !added {
			continue
		}
		s.logger().Warn("product low on stock",
			zap.String("product_id", p.ID), zap.String("name", p.Name),
			zap.Int("stock", p.Stock), zap.Int("min_stock", p.MinStock))
		s.publishLowStock(p, cause)
	}
	return nil
}

// Reconcile drops flagged products that are no longer low or no longer exist.
// It returns how many were removed.
func (s *Service) Reconcile(ctx context.Context) (int, error) {
	ids, err := s.LowStock.Members(ctx)
	if err != nil {
		return 0, fmt.Errorf("low stock members: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	products, err := s.Products.ProductsByID(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("load products: %w", err)
	}
	removed := 0
	for _, id := range ids {
		if p, ok := products[id]; ok && p.LowStock() {
			continue
		}
		if err := s.LowStock.Remove(ctx, id); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (s *Service) publishLowStock(p catalog.Product, cause orders.Envelope) {
	if s.Events == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventLowStock,
		EventVersion:  orders.EventVersion,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		TraceID:       cause.TraceID,
		CorrelationID: cause.CorrelationID,
		Payload: kafkax.MustMarshal(orders.LowStockPayload{
			ProductID: p.ID, Name: p.Name, Stock: p.Stock, MinStock: p.MinStock,
		}),
	}
	s.Events.Publish(orders.TopicLowStock, []byte(p.ID), kafkax.MustMarshal(ev),
		kafkax.EventHeaders(orders.EventLowStock, orders.EventVersion)...)
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// distinctProducts lists the products of an event, once each. With appliedOnly
// set it keeps the lines whose stock was decremented.
func distinctProducts(items []orders.ItemQty, appliedOnly bool) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, it := range items {
		if appliedOnly && !it.Applied {
			continue
		}
		if it.ProductID != "" && !seen[it.ProductID] {
			seen[it.ProductID] = true
			out = append(out, it.ProductID)
		}
	}
	return out
}
