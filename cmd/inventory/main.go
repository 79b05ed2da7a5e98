package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/JairHAM/pos-api/internal/catalog"
	"github.com/JairHAM/pos-api/internal/config"
	"github.com/JairHAM/pos-api/internal/inventory"
	kafkax "github.com/JairHAM/pos-api/internal/kafka"
	"github.com/JairHAM/pos-api/internal/observability"
	"github.com/JairHAM/pos-api/internal/postgres"
	"github.com/JairHAM/pos-api/internal/redisx"
)

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
		logger.Fatal("inventory exited", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	switch {
	case len(cfg.KafkaBrokers) == 0:
		return errors.New("KAFKA_BROKERS is required")
	case cfg.RedisAddr == "":
		return errors.New("REDIS_ADDR is required")
	case cfg.StoreDriver != config.StoreDriverPostgres:
		return fmt.Errorf("inventory watcher needs the %s store", config.StoreDriverPostgres)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer db.Close()

	rdb, err := redisx.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer rdb.Close()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, logger)
	prod.Start(context.Background())
	defer func() {
		prod.Close()
		prod.WaitClosed()
	}()

	name := cfg.ServiceName + "-inventory"
	svc := &inventory.Service{
		Products:    &catalog.Repo{DB: db},
		Dedup:       redisx.NewDedup(rdb, name),
		LowStock:    redisx.NewLowStockSet(rdb),
		Events:      prod,
		ServiceName: name,
		Logger:      logger,
	}

	if n, err := svc.Reconcile(ctx); err != nil {
		logger.Warn("low stock reconcile failed", zap.Error(err))
	} else if n > 0 {
		logger.Info("low stock set reconciled", zap.Int("removed", n))
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.InventoryGroup, inventory.Topics, cfg.InventoryWorkers, logger)
	logger.Info("inventory consumer started",
		zap.String("group", cfg.InventoryGroup),
		zap.Strings("topics", inventory.Topics),
		zap.Int("workers", cfg.InventoryWorkers))

	if err := cons.Start(ctx, svc.HandleOrderEvent); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consumer: %w", err)
	}
	logger.Info("inventory consumer stopped")
	return nil
}
