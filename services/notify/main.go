package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diagnosis/cleanbook/pkg/config"
	"github.com/diagnosis/cleanbook/pkg/events"
	"github.com/diagnosis/cleanbook/pkg/logger"
	"github.com/diagnosis/cleanbook/pkg/mailer"
	mw "github.com/diagnosis/cleanbook/pkg/middleware"
	"github.com/diagnosis/cleanbook/services/notify/internal/notifier"
	"github.com/go-chi/chi/v5"
)

const (
	serviceName = "notify"
	addr        = ":8086"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Env)

	if cfg.NATS.URL == "" {
		logger.Error("NATS_URL is required for the notify service")
		os.Exit(1)
	}
	bus, err := events.NewNATSEventBus(cfg.NATS.URL, serviceName)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer bus.Close()

	n := notifier.New(mailer.New(cfg.Email), cfg.Email.ManageURL, cfg.Email.FromName)
	if err := n.Subscribe(bus); err != nil {
		logger.Error("Failed to subscribe", "error", err)
		os.Exit(1)
	}

	// Health and metrics only.
	metrics := mw.NewMetrics(serviceName)
	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName(serviceName))
	r.Use(mw.Health)
	r.Use(metrics.Middleware)

	srv := &http.Server{Addr: addr, Handler: r, ReadTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down notify service...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Notify service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting notify service", "addr", addr, "subject", events.AllBookingEvents)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Notify service error", "error", err)
		os.Exit(1)
	}
}
