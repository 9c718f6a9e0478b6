package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mrmushfiq/llm0-observability/internal/dashboard/handlers"
	"github.com/mrmushfiq/llm0-observability/internal/dashboard/metricscache"
	"github.com/mrmushfiq/llm0-observability/internal/shared/auth"
	"github.com/mrmushfiq/llm0-observability/internal/shared/config"
	"github.com/mrmushfiq/llm0-observability/internal/shared/database"
	"github.com/mrmushfiq/llm0-observability/internal/shared/models"
	"github.com/mrmushfiq/llm0-observability/internal/shared/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Starting LLM Observability API on port %s (env: %s)", cfg.Port, cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("✓ Connected to PostgreSQL")

	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}
	if err := seed(ctx, db, cfg); err != nil {
		log.Fatalf("Failed to seed defaults: %v", err)
	}
	log.Println("✓ Schema ready, defaults seeded")

	// Initialize Redis
	redisClient, err := redis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("✓ Connected to Redis")

	// Initialize auth and cache
	tokens := auth.NewTokenService(cfg.JWTSecret, time.Duration(cfg.TokenExpiryMins)*time.Minute)
	cache := metricscache.New(redisClient, time.Duration(cfg.CacheTTLSeconds)*time.Second)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, tokens, cfg.BcryptCost)
	callHandler := handlers.NewCallHandler(db, cache)
	metricsHandler := handlers.NewMetricsHandler(db, db, cache)
	feedbackHandler := handlers.NewFeedbackHandler(db)
	settingsHandler := handlers.NewSettingsHandler(db)
	middleware := handlers.NewMiddleware(tokens, db)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(handlers.CORSMiddleware)

	// Health check (no auth required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Public auth routes
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
	})

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth)

		r.Post("/llm/log-call", callHandler.HandleLogCall)
		r.Post("/llm/seed", callHandler.HandleSeed)

		r.Route("/metrics", func(r chi.Router) {
			r.Get("/summary", metricsHandler.HandleSummary)
			r.Get("/token-usage", metricsHandler.HandleTokenUsage)
			r.Get("/latency", metricsHandler.HandleLatency)
			r.Get("/error-rate", metricsHandler.HandleErrorRate)
			r.Get("/cost", metricsHandler.HandleCost)
		})

		r.Post("/feedback", feedbackHandler.HandleSubmit)
		r.With(handlers.RequireRole(models.RoleAdmin)).Get("/feedback", feedbackHandler.HandleList)

		r.Get("/settings", settingsHandler.HandleGet)
		r.With(handlers.RequireRole(models.RoleAdmin)).Put("/settings", settingsHandler.HandleUpdate)
	})

	// HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("🚀 Server listening on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

// seed creates the reference pricing rows and, when ADMIN_PASSWORD is set,
// the default admin account.
func seed(ctx context.Context, db *database.DB, cfg *config.Config) error {
	if err := db.SeedModels(ctx); err != nil {
		return err
	}
	if cfg.AdminPassword == "" {
		log.Println("ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}
	hash, err := auth.HashPassword(cfg.AdminPassword, cfg.BcryptCost)
	if err != nil {
		return err
	}
	return db.SeedAdmin(ctx, cfg.AdminEmail, hash)
}
