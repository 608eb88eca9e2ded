package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/impify/impify/internal/database"
	mw "github.com/impify/impify/internal/middleware"
	inats "github.com/impify/impify/internal/nats"
	iredis "github.com/impify/impify/internal/redis"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	// Economy
	TokenInfo      http.HandlerFunc
	RecordActivity http.HandlerFunc
	CreditTokens   http.HandlerFunc

	// Flashcards
	CreateFlashcard    http.HandlerFunc
	ListFlashcards     http.HandlerFunc
	DueFlashcards      http.HandlerFunc
	GetFlashcard       http.HandlerFunc
	ReviewFlashcard    http.HandlerFunc
	DeleteFlashcard    http.HandlerFunc
	FlashcardOwnership func(http.Handler) http.Handler

	// Gate
	Admit     http.HandlerFunc
	GateUsage http.HandlerFunc

	// Subscriptions
	ListPlans            http.HandlerFunc
	CurrentSubscription  http.HandlerFunc
	ActivateSubscription http.HandlerFunc

	// Analytics
	ListAnalyticsEvents http.HandlerFunc

	AuthMiddleware  func(http.Handler) http.Handler
	AdminMiddleware func(http.Handler) http.Handler
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	APIRateLimiter     func(http.Handler) http.Handler
}

func NewRouter(pool *pgxpool.Pool, rdb redis.Cmdable, natsClient *inats.Client, cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness probe, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{
			"status":   "healthy",
			"database": "healthy",
			"redis":    "healthy",
			"nats":     "healthy",
		}

		status := http.StatusOK

		if pool == nil || database.HealthCheck(r.Context(), pool) != nil {
			health["database"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		// Redis only backs the free allowance counter; the gate falls back
		// to tokens without it, so it degrades but stays ready.
		if rdb == nil || iredis.HealthCheck(r.Context(), rdb) != nil {
			health["redis"] = "unhealthy"
			health["status"] = "degraded"
		}

		if natsClient == nil {
			health["nats"] = "not configured"
		} else if !natsClient.Healthy() {
			health["nats"] = "unhealthy"
			health["status"] = "degraded"
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.APIRateLimiter != nil {
			r.Use(cfg.APIRateLimiter)
		}
		r.Use(h.AuthMiddleware)

		r.Route("/economy", func(r chi.Router) {
			r.Get("/", h.TokenInfo)
			r.Post("/activity", h.RecordActivity)
		})

		r.Route("/flashcards", func(r chi.Router) {
			r.Post("/", h.CreateFlashcard)
			r.Get("/", h.ListFlashcards)
			r.Get("/due", h.DueFlashcards)

			r.Route("/{cardID}", func(r chi.Router) {
				r.Use(h.FlashcardOwnership)
				r.Get("/", h.GetFlashcard)
				r.Patch("/review", h.ReviewFlashcard)
				r.Delete("/", h.DeleteFlashcard)
			})
		})

		r.Route("/gate", func(r chi.Router) {
			r.Post("/admit", h.Admit)
			r.Get("/usage", h.GateUsage)
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/plans", h.ListPlans)
			r.Get("/current", h.CurrentSubscription)
		})

		r.Get("/analytics/events", h.ListAnalyticsEvents)

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.AdminMiddleware)
			r.Post("/users/{userID}/tokens", h.CreditTokens)
			r.Post("/subscriptions", h.ActivateSubscription)
		})
	})

	return r
}
