package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/JairHAM/pos-api/internal/auth"
	"github.com/JairHAM/pos-api/internal/catalog"
	"github.com/JairHAM/pos-api/internal/observability"
	"github.com/JairHAM/pos-api/internal/orders"
)

type RouterDeps struct {
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	Tokens         *auth.Tokens
	Auth           *auth.Service
	Orders         *orders.Service
	Catalog        catalog.Store
	Idempotency    IdempotencyStore
	CORSOrigins    []string
	RequestTimeout time.Duration
}

func NewRouter(d RouterDeps) *chi.Mux {
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 15 * time.Second
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP)
	r.Use(observability.RequestLogger(d.Logger, d.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(d.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "timestamp": time.Now().UTC()})
		})

		ah := &AuthHandler{Service: d.Auth}
		requireAuth := auth.RequireAuth(d.Tokens)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", ah.register)
			r.Post("/login", ah.login)
			r.With(requireAuth).Get("/profile", ah.profile)
			r.With(requireAuth).Get("/verify", ah.verify)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			(&OrdersHandler{Service: d.Orders, Idempotency: d.Idempotency}).Register(r)
			(&CatalogHandler{Store: d.Catalog}).Register(r)
		})
	})
	return r
}
