package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JairHAM/pos-api/internal/auth"
	"github.com/JairHAM/pos-api/internal/catalog"
	"github.com/JairHAM/pos-api/internal/config"
	"github.com/JairHAM/pos-api/internal/httpx"
	kafkax "github.com/JairHAM/pos-api/internal/kafka"
	"github.com/JairHAM/pos-api/internal/memstore"
	"github.com/JairHAM/pos-api/internal/observability"
	"github.com/JairHAM/pos-api/internal/orders"
	"github.com/JairHAM/pos-api/internal/postgres"
	"github.com/JairHAM/pos-api/internal/redisx"
)

type stores struct {
	catalog catalog.Store
	ledger  orders.Ledger
	users   auth.Store
	close   func()
}

func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (stores, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn("using in-memory store, data is lost on restart")
		m := memstore.New()
		return stores{catalog: m, ledger: m, users: m, close: func() {}}, nil
	}

	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	if err != nil {
		return stores{}, fmt.Errorf("db connect: %w", err)
	}
	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return stores{}, fmt.Errorf("migrate: %w", err)
		}
	}
	return stores{
		catalog: &catalog.Repo{DB: db},
		ledger:  &orders.Repo{DB: db},
		users:   &auth.Repo{DB: db},
		close:   db.Close,
	}, nil
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api exited", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	metrics := observability.NewMetrics()
	deps := orders.ServiceDeps{
		Catalog:     st.catalog,
		Ledger:      st.ledger,
		Policy:      orders.PolicyFromConfig(cfg.Orders),
		Metrics:     metrics,
		Logger:      logger,
		ServiceName: cfg.ServiceName,
	}

	var idem httpx.IdempotencyStore
	if cfg.RedisAddr != "" {
		rdb, err := redisx.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
		deps.Cache = redisx.NewStatusCache(rdb, logger)
		idem = redisx.NewIdempotencyStore(rdb)
	}

	var prod *kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, 1024, logger)
		// Close stops the producer after the HTTP server has drained.
		prod.Start(context.Background())
		deps.Events = prod
	} else {
		logger.Info("kafka brokers not configured, order events are not published")
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)
	router := httpx.NewRouter(httpx.RouterDeps{
		Logger:         logger,
		Metrics:        metrics,
		Tokens:         tokens,
		Auth:           auth.NewService(st.users, tokens, logger),
		Orders:         orders.NewService(deps),
		Catalog:        st.catalog,
		Idempotency:    idem,
		CORSOrigins:    cfg.CORSOrigins,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("store", cfg.StoreDriver),
			zap.String("placement", cfg.Orders.Placement),
			zap.String("stock_mode", cfg.Orders.StockMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if prod != nil {
		prod.Close()
		prod.WaitClosed()
	}
	return err
}
