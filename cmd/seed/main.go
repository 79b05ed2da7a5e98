package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/JairHAM/pos-api/internal/auth"
	"github.com/JairHAM/pos-api/internal/catalog"
	"github.com/JairHAM/pos-api/internal/config"
	"github.com/JairHAM/pos-api/internal/observability"
	"github.com/JairHAM/pos-api/internal/postgres"
)

var defaultCategories = []catalog.Category{
	{Name: "Entradas", Description: "Aperitivos y entradas", Color: "#FF9800", Icon: "🥗"},
	{Name: "Platos Principales", Description: "Platos fuertes y principales", Color: "#F44336", Icon: "🍽️"},
	{Name: "Sopas", Description: "Sopas y caldos", Color: "#FFC107", Icon: "🍲"},
	{Name: "Ensaladas", Description: "Ensaladas frescas", Color: "#4CAF50", Icon: "🥗"},
	{Name: "Pastas", Description: "Pastas y platos italianos", Color: "#FFEB3B", Icon: "🍝"},
	{Name: "Carnes", Description: "Carnes rojas y blancas", Color: "#795548", Icon: "🥩"},
	{Name: "Pescados y Mariscos", Description: "Productos del mar", Color: "#00BCD4", Icon: "🐟"},
	{Name: "Pizzas", Description: "Pizzas artesanales", Color: "#E91E63", Icon: "🍕"},
	{Name: "Hamburguesas", Description: "Hamburguesas gourmet", Color: "#FF5722", Icon: "🍔"},
	{Name: "Tacos y Antojitos", Description: "Comida mexicana", Color: "#8BC34A", Icon: "🌮"},
	{Name: "Postres", Description: "Postres y dulces", Color: "#E91E63", Icon: "🍰"},
	{Name: "Bebidas Frías", Description: "Refrescos, jugos y batidos", Color: "#03A9F4", Icon: "🥤"},
	{Name: "Bebidas Calientes", Description: "Café, té y chocolate", Color: "#795548", Icon: "☕"},
	{Name: "Cervezas", Description: "Cervezas nacionales e importadas", Color: "#FFC107", Icon: "🍺"},
	{Name: "Vinos", Description: "Vinos tintos, blancos y rosados", Color: "#9C27B0", Icon: "🍷"},
	{Name: "Cócteles", Description: "Bebidas preparadas y mixología", Color: "#FF4081", Icon: "🍹"},
}

// reducedCategories is the set recreated by -reset-categories.
var reducedCategories = []catalog.Category{
	{Name: "Entrada", Description: "Platos de entrada y aperitivos", Color: "#FF9800", Icon: "🥗"},
	{Name: "Plato Principal", Description: "Platos principales", Color: "#F44336", Icon: "🍽️"},
	{Name: "Bebidas", Description: "Todo tipo de bebidas", Color: "#03A9F4", Icon: "🥤"},
	{Name: "Otro", Description: "Otros productos", Color: "#9E9E9E", Icon: "📦"},
}

func main() {
	var (
		admin         = flag.Bool("admin", false, "create the admin user if missing")
		adminPassword = flag.String("admin-password", "admin123", "password for the admin user")
		categories    = flag.Bool("categories", false, "create the default categories")
		reset         = flag.Bool("reset-categories", false, "delete unused categories and recreate the reduced set")
	)
	flag.Parse()

	if !*admin && !*categories && !*reset {
		flag.Usage()
		os.Exit(2)
	}

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

	ctx := context.Background()
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	if *admin {
		svc := auth.NewService(&auth.Repo{DB: db}, auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL), logger)
		created, err := svc.EnsureUser(ctx, auth.RegisterInput{
			Email:    "admin@pos.com",
			Username: "admin",
			Password: *adminPassword,
			FullName: "Administrator",
			Role:     string(auth.RoleAdmin),
		})
		if err != nil {
			logger.Fatal("create admin", zap.Error(err))
		}
		logger.Info("admin user", zap.Bool("created", created))
	}

	store := &catalog.Repo{DB: db}
	if *reset {
		n, err := store.DeleteUnusedCategories(ctx)
		if err != nil {
			logger.Fatal("reset categories", zap.Error(err))
		}
		logger.Info("deleted unused categories", zap.Int("count", n))
		ensureCategories(ctx, store, reducedCategories, logger)
	}
	if *categories {
		ensureCategories(ctx, store, defaultCategories, logger)
	}
}

func ensureCategories(ctx context.Context, store catalog.Store, cats []catalog.Category, logger *zap.Logger) {
	var created int
	for _, c := range cats {
		err := store.CreateCategory(ctx, &c)
		switch {
		case errors.Is(err, catalog.ErrCategoryExists):
			logger.Info("category exists, skipping", zap.String("name", c.Name))
		case err != nil:
			logger.Fatal("create category", zap.String("name", c.Name), zap.Error(err))
		default:
			created++
		}
	}
	logger.Info("categories ensured", zap.Int("created", created), zap.Int("total", len(cats)))
}
