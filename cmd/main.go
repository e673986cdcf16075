// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/seatcount/admission/internal/cache"
	"github.com/seatcount/admission/internal/database"
	"github.com/seatcount/admission/internal/handler"
	"github.com/seatcount/admission/internal/lock"
	"github.com/seatcount/admission/internal/repository"
	"github.com/seatcount/admission/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	log, err := newLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	// ── 1. Connect to PostgreSQL and apply migrations ─────────────────────
	pool, err := database.NewPool(ctx)
	if err != nil {
		log.Fatal("database", zap.Error(err))
	}
	defer pool.Close()
	if err := database.Migrate(); err != nil {
		log.Fatal("migrations", zap.Error(err))
	}
	log.Info("connected to postgres")

	// ── 2. Optional Redis-backed fast counter ─────────────────────────────
	var counter service.CounterCache
	if rdb, err := cache.NewClientFromEnv(ctx); err != nil {
		log.Fatal("redis", zap.Error(err))
	} else if rdb != nil {
		defer rdb.Close()
		counter = cache.NewCounter(rdb)
		log.Info("connected to redis, fast counter enabled")
	}

	// ── 3. Wire up layers ─────────────────────────────────────────────────
	eventRepo := repository.NewEventRepository(pool)
	regRepo := repository.NewRegistrationRepository(pool)
	locks := lock.New(lockWait())
	admissionSvc := service.NewAdmissionService(eventRepo, regRepo, counter, locks, log)
	eventSvc := service.NewEventService(eventRepo, regRepo)
	eventHandler := handler.NewEventHandler(eventSvc, admissionSvc)

	if err := admissionSvc.WarmCounterCache(ctx, time.Hour); err != nil {
		log.Warn("counter cache warm-up", zap.Error(err))
	}

	// ── 4. Build the router ───────────────────────────────────────────────
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(handler.Logger(log))     // structured access log
	r.Use(handler.CORS)            // permissive CORS for demo

	// Health
	r.Get("/health", handler.HealthCheck)

	// API routes
	r.Route("/events", func(r chi.Router) {
		r.Post("/", eventHandler.CreateEvent)
		r.Get("/", eventHandler.ListEvents)
		r.Get("/{id}", eventHandler.GetEvent)
		r.Patch("/{id}/status", eventHandler.UpdateEventStatus)
		r.Post("/{id}/register", eventHandler.Register)
		r.Get("/{id}/registrations", eventHandler.ListRegistrations)
		r.Get("/{id}/waitlist", eventHandler.GetWaitlist)
	})
	r.Route("/registrations", func(r chi.Router) {
		r.Get("/{id}", eventHandler.GetRegistration)
		r.Post("/{id}/cancel", eventHandler.Cancel)
	})

	// ── 5. Start server with graceful shutdown ────────────────────────────
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
		log.Info("server listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("graceful shutdown failed", zap.Error(err))
	}
	log.Info("server stopped")
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("LOG_DEVEL") != "" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// lockWait reads the per-event lock acquisition bound from LOCK_WAIT
// (a Go duration, e.g. "2s"), defaulting to lock.DefaultWait.
func lockWait() time.Duration {
	if v := os.Getenv("LOCK_WAIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return lock.DefaultWait
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
