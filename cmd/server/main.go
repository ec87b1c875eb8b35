// Audience chat development backend.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/audience-chat/internal/api"
	"github.com/ashureev/audience-chat/internal/backend"
	"github.com/ashureev/audience-chat/internal/config"
	"github.com/ashureev/audience-chat/internal/middleware"
	"github.com/ashureev/audience-chat/internal/store"
	"github.com/ashureev/audience-chat/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.LoadServer()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	if cfg.SeedCatalogue {
		if _, err := store.SeedCatalogue(context.Background(), repo, store.DefaultCatalogue); err != nil {
			slog.Error("Failed to seed catalogue", "error", err)
			os.Exit(1)
		}
	}

	policy := middleware.NewOriginPolicy(cfg.IsDevelopment(), cfg.FrontendURL)
	apiHandler := api.NewHandler(repo)
	chatHandler := backend.NewChatHandler(repo, policy)

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(policy))

	apiHandler.RegisterRoutes(r)
	r.Get("/ws", chatHandler.ServeHTTP)
	r.Method(http.MethodGet, "/", web.TestPage())
	r.Method(http.MethodHead, "/", web.TestPage())

	// WriteTimeout stays 0 so long-lived websocket connections are not cut.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend.StartRetentionWorker(ctx, repo, cfg.SelectionRetention, cfg.RetentionInterval)

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
