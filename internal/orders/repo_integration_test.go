//go:build integration

package orders_test

import (
	"context"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/JairHAM/pos-api/internal/auth"
	"github.com/JairHAM/pos-api/internal/catalog"
	"github.com/JairHAM/pos-api/internal/orders"
	"github.com/JairHAM/pos-api/internal/postgres"
)

type pgFixture struct {
	db      *pgxpool.Pool
	svc     *orders.Service
	user    auth.User
	product catalog.Product
}

// newPGFixture needs a disposable database in POS_TEST_POSTGRES_DSN; its
// tables are truncated.
func newPGFixture(t *testing.T, stock int) *pgFixture {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	dsn := os.Getenv("POS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POS_TEST_POSTGRES_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	db, err := postgres.Connect(ctx, dsn, 16)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, postgres.Migrate(ctx, db))
	_, err = db.Exec(ctx, `TRUNCATE order_status_events, order_items, orders, order_counters, products, categories, users CASCADE`)
	require.NoError(t, err)

	users := &auth.Repo{DB: db}
	u := auth.User{Email: "cashier@example.com", Username: "cashier", PasswordHash: "x", FullName: "Casey Cashier", Role: auth.RoleCashier, IsActive: true}
	require.NoError(t, users.CreateUser(ctx, &u))

	cat := &catalog.Repo{DB: db}
	c := catalog.Category{Name: "Drinks"}
	require.NoError(t, cat.CreateCategory(ctx, &c))
	p := catalog.Product{Name: "Coffee", Price: decimal.RequireFromString("10.00"), Stock: stock, MinStock: 1, CategoryID: c.ID, IsActive: true}
	require.NoError(t, cat.CreateProduct(ctx, &p))

	return &pgFixture{
		db:      db,
		svc:     orders.NewService(orders.ServiceDeps{Catalog: cat, Ledger: &orders.Repo{DB: db}, Policy: orders.DefaultPolicy()}),
		user:    u,
		product: p,
	}
}

func (f *pgFixture) create(ctx context.Context) (orders.CreateResult, error) {
	return f.svc.CreateOrder(ctx, orders.CreateOrderInput{
		UserID: f.user.ID,
		Items:  []orders.ItemRequest{{ProductID: f.product.ID, Quantity: 1}},
	})
}

func TestPostgresConcurrentOrderNumbersAreUnique(t *testing.T) {
	f := newPGFixture(t, 100)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	const n = 32
	numbers := make([]string, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			res, err := f.create(gctx)
			if err != nil {
				return err
			}
			numbers[i] = res.Order.OrderNumber
			return nil
		})
	}
	require.NoError(t, g.Wait())

	sort.Strings(numbers)
	for i, got := range numbers {
		require.Equal(t, orders.FormatOrderNumber(int64(i+1)), got)
	}

	var stock int
	require.NoError(t, f.db.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, f.product.ID).Scan(&stock))
	require.Equal(t, 100-n, stock)
}

func TestPostgresRetriesPastATakenOrderNumber(t *testing.T) {
	f := newPGFixture(t, 10)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	first, err := f.create(ctx)
	require.NoError(t, err)
	require.Equal(t, "ORD-000001", first.Order.OrderNumber)

	// a row written outside the counter takes the next number
	_, err = f.db.Exec(ctx, `
		INSERT INTO orders(id, order_number, user_id, subtotal, tax, discount, total, status)
		VALUES ($1, 'ORD-000002', $2, 0, 0, 0, 0, 'COMPLETED')`, uuid.NewString(), f.user.ID)
	require.NoError(t, err)

	next, err := f.create(ctx)
	require.NoError(t, err)
	require.Equal(t, "ORD-000003", next.Order.OrderNumber)

	var count int
	require.NoError(t, f.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&count))
	require.Equal(t, 3, count)
}

func TestPostgresInsertMapsNumberViolation(t *testing.T) {
	f := newPGFixture(t, 10)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	first, err := f.create(ctx)
	require.NoError(t, err)

	repo := &orders.Repo{DB: f.db}
	err = repo.WithinTx(ctx, func(ctx context.Context, tx orders.LedgerTx) error {
		now := time.Now().UTC()
		return tx.InsertOrder(ctx, &orders.Order{
			ID:            uuid.NewString(),
			OrderNumber:   first.Order.OrderNumber,
			UserID:        f.user.ID,
			PaymentMethod: orders.PaymentCash,
			Status:        orders.StatusCompleted,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	})
	require.ErrorIs(t, err, orders.ErrDuplicateOrderNumber)
}
