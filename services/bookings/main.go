package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/diagnosis/cleanbook/pkg/cache"
	"github.com/diagnosis/cleanbook/pkg/config"
	"github.com/diagnosis/cleanbook/pkg/database"
	"github.com/diagnosis/cleanbook/pkg/events"
	"github.com/diagnosis/cleanbook/pkg/logger"
	mw "github.com/diagnosis/cleanbook/pkg/middleware"
	"github.com/diagnosis/cleanbook/pkg/payments"
	"github.com/diagnosis/cleanbook/pkg/telemetry"
	"github.com/diagnosis/cleanbook/services/bookings/internal/handlers"
	"github.com/diagnosis/cleanbook/services/bookings/internal/repository"
	"github.com/diagnosis/cleanbook/services/bookings/internal/repository/memory"
	"github.com/diagnosis/cleanbook/services/bookings/internal/schedule"
	"github.com/diagnosis/cleanbook/services/bookings/internal/service"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "bookings"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := telemetry.Setup(serviceName, cfg.Telemetry)
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("Tracer shutdown error", "error", err)
		}
	}()

	sched, err := schedule.Load(cfg.Booking.ScheduleFile)
	if err != nil {
		logger.Error("Failed to load schedule", "error", err)
		os.Exit(1)
	}

	// Storage
	var repos repository.Set
	switch cfg.Booking.StorageDriver {
	case "memory":
		logger.Warn("Using in-memory storage, data is lost on restart")
		repos = memory.NewStore().Repositories()
	default:
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		repos = repository.NewPostgresSet(pool)
	}

	// Query cache
	var store cache.Store = cache.NewMemoryStore()
	if cfg.Redis.URL != "" {
		rs, err := cache.NewRedisStore(ctx, cfg.Redis)
		if err != nil {
			logger.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer rs.Close()
		store = rs
	}

	// Event bus
	var eventBus events.Publisher = events.NewMemoryEventBus()
	if cfg.NATS.URL != "" {
		nb, err := events.NewNATSEventBus(cfg.NATS.URL, serviceName)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		eventBus = nb
	} else {
		logger.Warn("NATS_URL not set, booking events stay in process")
	}
	defer eventBus.Close()

	svc := service.New(repos, sched, store, eventBus, payments.New(cfg.Stripe), cfg.Booking)
	h := handlers.New(svc, sched, cfg.Auth)

	go svc.Recurring.Run(ctx)

	limiter := mw.NewRateLimiter(cfg.RateLimit)
	go func() {
		ticker := time.NewTicker(cfg.RateLimit.IdleTTL)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := limiter.Cleanup(); n > 0 {
					logger.Debug("Rate limiter visitors evicted", "count", n)
				}
			}
		}
	}()

	metrics := mw.NewMetrics(serviceName)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName(serviceName))
	r.Use(mw.Logging)
	r.Use(chimw.Recoverer)
	r.Use(mw.Health)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(limiter.Middleware)
	r.Mount("/api", h.Routes())

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      otelhttp.NewHandler(r, serviceName),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		logger.Info("Shutting down bookings service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Bookings service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting bookings service", "port", cfg.Server.Port, "storage", cfg.Booking.StorageDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Bookings service error", "error", err)
		os.Exit(1)
	}
}
