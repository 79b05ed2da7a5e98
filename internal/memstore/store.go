// Package memstore keeps the catalog, the order ledger and users in process
// memory. It backs STORE_DRIVER=memory and the tests of the packages above it.
package memstore

import (
	"maps"
	"sync"
	"time"

	"github.com/JairHAM/pos-api/internal/auth"
	"github.com/JairHAM/pos-api/internal/catalog"
	"github.com/JairHAM/pos-api/internal/orders"
)

// Store is safe for concurrent use. Ledger transactions hold the store mutex
// for their whole duration, which makes the store a single writer.
type Store struct {
	mu sync.Mutex

	categories map[string]catalog.Category
	products   map[string]catalog.Product
	users      map[string]auth.User
	orders     map[string]orders.Order
	numbers    map[string]string
	events     []orders.StatusEvent
	seq        int64

	now func() time.Time
}

var (
	_ catalog.Store = (*Store)(nil)
	_ orders.Ledger = (*Store)(nil)
	_ auth.Store    = (*Store)(nil)
)

func New() *Store {
	return &Store{
		categories: map[string]catalog.Category{},
		products:   map[string]catalog.Product{},
		users:      map[string]auth.User{},
		orders:     map[string]orders.Order{},
		numbers:    map[string]string{},
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// state is the part of the store a ledger transaction may change.
type state struct {
	products map[string]catalog.Product
	orders   map[string]orders.Order
	numbers  map[string]string
	events   int
	seq      int64
}

func (s *Store) snapshot() state {
	copied := make(map[string]orders.Order, len(s.orders))
	for id, o := range s.orders {
		copied[id] = cloneOrder(o)
	}
	return state{
		products: maps.Clone(s.products),
		orders:   copied,
		numbers:  maps.Clone(s.numbers),
		events:   len(s.events),
		seq:      s.seq,
	}
}

func (s *Store) restore(st state) {
	s.products = st.products
	s.orders = st.orders
	s.numbers = st.numbers
	s.events = s.events[:st.events]
	s.seq = st.seq
}

func cloneOrder(o orders.Order) orders.Order {
	items := make([]orders.OrderItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}
