package inventory

import (
	"context"
	"encoding/json"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/JairHAM/pos-api/internal/auth"
	"github.com/JairHAM/pos-api/internal/catalog"
	kafkax "github.com/JairHAM/pos-api/internal/kafka"
	"github.com/JairHAM/pos-api/internal/memstore"
	"github.com/JairHAM/pos-api/internal/orders"
)

type fakeProducts map[string]catalog.Product

func (f fakeProducts) ProductsByID(_ context.Context, ids []string) (map[string]catalog.Product, error) {
	out := map[string]catalog.Product{}
	for _, id := range ids {
		if p, ok := f[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type memDedup map[string]bool

func (d memDedup) Seen(_ context.Context, id string) (bool, error) { return d[id], nil }
func (d memDedup) Mark(_ context.Context, id string) error         { d[id] = true; return nil }

type memSet map[string]bool

func (s memSet) Add(_ context.Context, id string) (bool, error) {
	if s[id] {
		return false, nil
	}
	s[id] = true
	return true, nil
}
func (s memSet) Remove(_ context.Context, id string) error { delete(s, id); return nil }

func (s memSet) Members(context.Context) ([]string, error) {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out, nil
}

type capture struct{ values [][]byte }

func (c *capture) Publish(topic string, _, value []byte, _ ...kafkago.Header) {
	if topic == orders.TopicLowStock {
		c.values = append(c.values, value)
	}
}

func message(t *testing.T, eventID, eventType string, payload any) kafkago.Message {
	t.Helper()
	env := orders.Envelope{EventID: eventID, EventType: eventType, EventVersion: 1, Payload: kafkax.MustMarshal(payload)}
	return kafkago.Message{Topic: orders.TopicOrderCreated, Value: kafkax.MustMarshal(env)}
}

func TestHandleOrderEventRaisesLowStockOnce(t *testing.T) {
	set := memSet{}
	pub := &capture{}
	svc := &Service{
		Products: fakeProducts{
			"low": {ID: "low", Name: "Milk", Stock: 1, MinStock: 5, IsActive: true},
			"ok":  {ID: "ok", Name: "Sugar", Stock: 50, MinStock: 5, IsActive: true},
		},
		Dedup:       memDedup{},
		LowStock:    set,
		Events:      pub,
		ServiceName: "pos-api-inventory",
	}
	ctx := context.Background()
	payload := orders.OrderCreatedPayload{OrderID: "o1", Items: []orders.ItemQty{
		{ProductID: "low", Qty: 2, Applied: true},
		{ProductID: "ok", Qty: 1, Applied: true},
	}}

	require.NoError(t, svc.HandleOrderEvent(ctx, message(t, "ev-1", orders.EventOrderCreated, payload)))
	require.Len(t, pub.values, 1)
	require.True(t, set["low"])
	require.False(t, set["ok"])

	var env orders.Envelope
	require.NoError(t, json.Unmarshal(pub.values[0], &env))
	require.Equal(t, orders.EventLowStock, env.EventType)
	got, err := kafkax.UnwrapPayload[orders.LowStockPayload](env.Payload)
	require.NoError(t, err)
	require.Equal(t, "Milk", got.Name)
	require.Equal(t, 1, got.Stock)

	// redelivery of the same event is dropped, a new event keeps the product flagged
	require.NoError(t, svc.HandleOrderEvent(ctx, message(t, "ev-1", orders.EventOrderCreated, payload)))
	require.NoError(t, svc.HandleOrderEvent(ctx, message(t, "ev-2", orders.EventOrderCreated, payload)))
	require.Len(t, pub.values, 1)
}

func TestHandleOrderEventIgnoresUnappliedAndForeignEvents(t *testing.T) {
	pub := &capture{}
	dedup := memDedup{}
	svc := &Service{
		Products: fakeProducts{"low": {ID: "low", Stock: 0, MinStock: 5, IsActive: true}},
		Dedup:    dedup,
		LowStock: memSet{},
		Events:   pub,
	}
	ctx := context.Background()

	pending := orders.OrderCreatedPayload{OrderID: "o1", Items: []orders.ItemQty{{ProductID: "low", Qty: 1}}}
	require.NoError(t, svc.HandleOrderEvent(ctx, message(t, "ev-1", orders.EventOrderCreated, pending)))
	require.NoError(t, svc.HandleOrderEvent(ctx, message(t, "ev-2", "SomethingElse", pending)))
	require.NoError(t, svc.HandleOrderEvent(ctx, kafkago.Message{Value: []byte("not json")}))

	require.Empty(t, pub.values)
	require.True(t, dedup["ev-1"])
	require.False(t, dedup["ev-2"])
}

// relay turns the order service's publishes into consumer messages.
type relay struct{ msgs []kafkago.Message }

func (r *relay) Publish(topic string, key, value []byte, headers ...kafkago.Header) {
	r.msgs = append(r.msgs, kafkago.Message{Topic: topic, Key: key, Value: value, Headers: headers})
}

func (r *relay) drain(t *testing.T, svc *Service) {
	t.Helper()
	for _, m := range r.msgs {
		require.NoError(t, svc.HandleOrderEvent(context.Background(), m))
	}
	r.msgs = nil
}

func TestRestockOnCancelClearsLowStockFlag(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	cat := catalog.Category{Name: "Drinks"}
	require.NoError(t, store.CreateCategory(ctx, &cat))
	p := catalog.Product{Name: "Milk", Price: decimal.RequireFromString("2.00"), Stock: 6, MinStock: 5, CategoryID: cat.ID, IsActive: true}
	require.NoError(t, store.CreateProduct(ctx, &p))
	u := auth.User{Email: "c@example.com", Username: "cashier", FullName: "Cashier", Role: auth.RoleCashier, IsActive: true}
	require.NoError(t, store.CreateUser(ctx, &u))

	events := &relay{}
	policy := orders.DefaultPolicy()
	policy.RestockOnCancel = true
	ordersSvc := orders.NewService(orders.ServiceDeps{Catalog: store, Ledger: store, Policy: policy, Events: events})

	set := memSet{}
	alerts := &capture{}
	watcher := &Service{Products: store, Dedup: memDedup{}, LowStock: set, Events: alerts}

	in := orders.CreateOrderInput{UserID: u.ID, Items: []orders.ItemRequest{{ProductID: p.ID, Quantity: 2}}}
	res, err := ordersSvc.CreateOrder(ctx, in)
	require.NoError(t, err)
	events.drain(t, watcher)
	require.True(t, set[p.ID])
	require.Len(t, alerts.values, 1)

	_, err = ordersSvc.Cancel(ctx, res.Order.ID, u.ID)
	require.NoError(t, err)
	got, err := store.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, 6, got.Stock)
	events.drain(t, watcher)
	require.False(t, set[p.ID], "restocked product is no longer low")

	_, err = ordersSvc.CreateOrder(ctx, in)
	require.NoError(t, err)
	events.drain(t, watcher)
	require.True(t, set[p.ID])
	require.Len(t, alerts.values, 2, "a new drop alerts again")
}

func TestReconcileDropsRecoveredAndMissingProducts(t *testing.T) {
	set := memSet{"low": true, "recovered": true, "gone": true}
	svc := &Service{
		Products: fakeProducts{
			"low":       {ID: "low", Stock: 1, MinStock: 5, IsActive: true},
			"recovered": {ID: "recovered", Stock: 40, MinStock: 5, IsActive: true},
		},
		Dedup:    memDedup{},
		LowStock: set,
	}

	n, err := svc.Reconcile(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, memSet{"low": true}, set)
}
