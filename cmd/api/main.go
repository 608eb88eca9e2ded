package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/impify/impify/internal/analytics"
	"github.com/impify/impify/internal/api"
	"github.com/impify/impify/internal/auth"
	"github.com/impify/impify/internal/calendar"
	"github.com/impify/impify/internal/config"
	"github.com/impify/impify/internal/database"
	"github.com/impify/impify/internal/economy"
	"github.com/impify/impify/internal/flashcards"
	"github.com/impify/impify/internal/gate"
	mw "github.com/impify/impify/internal/middleware"
	inats "github.com/impify/impify/internal/nats"
	iredis "github.com/impify/impify/internal/redis"
	"github.com/impify/impify/internal/server"
	"github.com/impify/impify/internal/subscriptions"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cal, err := calendar.Load(cfg.Economy.Timezone)
	if err != nil {
		slog.Error("loading timezone", "error", err, "timezone", cfg.Economy.Timezone)
		os.Exit(1)
	}

	// PostgreSQL
	schemaVersion, err := database.RunMigrations(cfg.DB.DSN(), cfg.DB.MigrationsPath)
	if err != nil {
		slog.Error("running migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database schema ready", "version", schemaVersion)

	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS is optional; without it events are dropped and analytics stays empty.
	var (
		natsClient *inats.Client
		publisher  inats.EventPublisher = inats.NopPublisher{}
	)
	if cfg.NATS.URL != "" {
		natsClient, err = inats.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to NATS", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		publisher = inats.NewPublisher(natsClient.JetStream())
	}

	catalog := subscriptions.NewCatalog(cfg.Economy.FreeChatsPerDay, cfg.Economy.FreeUploadsPerDay)

	// Economy and subscriptions depend on each other: activation grants
	// tokens, and the economy needs the current tier for monthly resets.
	econRepo := economy.NewRepository(pool)
	econSvc := economy.NewService(econRepo, cal, nil, catalog, publisher)

	subsRepo := subscriptions.NewRepository(pool)
	subsSvc := subscriptions.NewService(subsRepo, catalog, econSvc, publisher, cfg.Economy.SubscriptionLength)
	econSvc.SetSubscriptions(subsSvc)

	// Flashcards; every review counts as a study activity.
	cardRepo := flashcards.NewRepository(pool)
	cardSvc := flashcards.NewService(cardRepo, publisher, func(ctx context.Context, userID uuid.UUID, now time.Time) error {
		_, err := econSvc.RecordActivity(ctx, userID, economy.ActivityFlashcardReview, now)
		return err
	})

	// Gate
	gateSvc := gate.NewService(econSvc, gate.NewRedisCounter(redisClient, cal), catalog, gate.Costs{
		Chat:   cfg.Economy.ChatCost,
		Upload: cfg.Economy.UploadCost,
	}, publisher)

	// Analytics
	analyticsRepo := analytics.NewRepository(pool)
	if natsClient != nil {
		consumer := analytics.NewConsumer(analyticsRepo, inats.NewConsumerManager(natsClient.JetStream()))
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("analytics consumer stopped", "error", err)
			}
		}()
	}

	// Handlers
	econHandler := economy.NewHandler(econSvc)
	cardHandler := flashcards.NewHandler(cardSvc, cfg.Economy.DueCardsLimit)
	gateHandler := gate.NewHandler(gateSvc)
	subsHandler := subscriptions.NewHandler(subsSvc)
	analyticsHandler := analytics.NewHandler(analyticsRepo)

	jwtManager := auth.NewJWTManager(cfg.JWT.AccessSecret, cfg.JWT.Issuer)
	rateLimiter := mw.NewRateLimiter(redisClient, "api", cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)

	router := api.NewRouter(pool, redisClient, natsClient, api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		APIRateLimiter:     rateLimiter.Middleware,
	}, api.HandlerSet{
		TokenInfo:      econHandler.TokenInfo,
		RecordActivity: econHandler.RecordActivity,
		CreditTokens:   econHandler.Credit,

		CreateFlashcard:    cardHandler.Create,
		ListFlashcards:     cardHandler.List,
		DueFlashcards:      cardHandler.Due,
		GetFlashcard:       cardHandler.Get,
		ReviewFlashcard:    cardHandler.Review,
		DeleteFlashcard:    cardHandler.Delete,
		FlashcardOwnership: cardHandler.OwnershipMiddleware,

		Admit:     gateHandler.Admit,
		GateUsage: gateHandler.Usage,

		ListPlans:            subsHandler.ListPlans,
		CurrentSubscription:  subsHandler.Current,
		ActivateSubscription: subsHandler.Activate,

		ListAnalyticsEvents: analyticsHandler.ListEvents,

		AuthMiddleware:  auth.Middleware(jwtManager),
		AdminMiddleware: auth.RequireAdmin,
	})

	srv := server.New(cfg.Server, router)
	if err := srv.Start(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
