// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clubsuite/event-payments/internal/cache"
	"github.com/clubsuite/event-payments/internal/database"
	"github.com/clubsuite/event-payments/internal/gateway"
	"github.com/clubsuite/event-payments/internal/handler"
	"github.com/clubsuite/event-payments/internal/metrics"
	"github.com/clubsuite/event-payments/internal/repository"
	"github.com/clubsuite/event-payments/internal/service"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	ctx := context.Background()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))
	metrics.Init()

	// ── 1. Connect to PostgreSQL and redis ────────────────────────────────
	pool, err := database.NewPool(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()
	slog.Info("connected to postgres")

	statusCache := cache.NewRedisStore(cache.ConfigFromEnv())

	// ── 2. Wire up layers ────────────────────────────────────────────────
	eventRepo := repository.NewEventRepository(pool)
	txRepo := repository.NewTransactionRepository(pool)
	gatewayClient := gateway.NewClient(gateway.ConfigFromEnv())

	orderSvc := service.NewOrderService(eventRepo, txRepo, statusCache, service.OrderConfigFromEnv())
	regSvc := service.NewRegistrationService(eventRepo, txRepo, orderSvc)
	reconcileSvc := service.NewReconcileService(txRepo, gatewayClient, statusCache, service.DefaultReconcileConfig())

	eventHandler := handler.NewEventHandler(regSvc)
	paymentHandler := handler.NewPaymentHandler(orderSvc, reconcileSvc, os.Getenv("RECONCILE_TOKEN"))

	// ── 3. Build the router ───────────────────────────────────────────────
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(handler.Logger)          // structured access log
	r.Use(handler.CORS)            // permissive CORS for the platform frontend

	// Health and metrics
	r.Get("/health", handler.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/events", func(r chi.Router) {
		r.Post("/", eventHandler.CreateEvent)
		r.Get("/", eventHandler.ListEvents)
		r.Get("/{id}", eventHandler.GetEvent)
		r.Group(func(r chi.Router) {
			r.Use(handler.RateLimit(30, time.Minute))
			r.Post("/{id}/register", eventHandler.Register)
			r.Delete("/{id}/register", eventHandler.CancelRegistration)
		})
	})

	r.Route("/payments", func(r chi.Router) {
		r.With(handler.RateLimit(60, time.Minute)).Get("/{orderId}", paymentHandler.TransactionStatus)
		r.Post("/reconcile", paymentHandler.Reconcile)
		r.Get("/reconcile", paymentHandler.ReconcilePending)
	})

	// ── 4. Start server with graceful shutdown ────────────────────────────
	port := getEnv("PORT", "8080")
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run in background goroutine so we can listen for shutdown signal.
	go func() {
		slog.Info("server listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
	slog.Info("server stopped")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
