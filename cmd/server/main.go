// TaskFlow - task management server with a chat and voice assistant
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

	"github.com/ashureev/taskflow/internal/api"
	"github.com/ashureev/taskflow/internal/config"
	"github.com/ashureev/taskflow/internal/health"
	"github.com/ashureev/taskflow/internal/identity"
	"github.com/ashureev/taskflow/internal/live"
	"github.com/ashureev/taskflow/internal/middleware"
	"github.com/ashureev/taskflow/internal/store"
	"github.com/ashureev/taskflow/internal/tasks"
	"github.com/ashureev/taskflow/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.DebugLogging {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "container", config.IsContainer())

	// Initialize dependencies.
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
	slog.Info("Database connected", "path", cfg.DBPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize services.
	taskSvc := tasks.NewService(repo)

	authOpts := []identity.Option{identity.WithSecureCookies(!cfg.IsDevelopment())}
	if cfg.Google.Enabled() {
		authOpts = append(authOpts, identity.WithGoogle(identity.NewGoogleProvider(
			cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL,
		)))
		slog.Info("Google sign-in enabled", "redirect_url", cfg.Google.RedirectURL)
	}
	authSvc := identity.NewService(repo, cfg.SessionTTL, authOpts...)

	sm := live.NewSessionManager()
	limiter := middleware.NewRateLimiter(ctx, cfg.RateLimit.Limit, cfg.RateLimit.Window)
	checker := health.NewChecker(repo, cfg.Health.Timeout)

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, cfg.FrontendURL, cfg.IsDevelopment())
	authHandler := api.NewAuthHandler(baseHandler, authSvc, sm, limiter)
	taskHandler := api.NewTaskHandler(baseHandler, taskSvc)
	assistantHandler := api.NewAssistantHandler(baseHandler)
	configHandler := api.NewConfigHandler(baseHandler, cfg)
	pageHandler := live.NewPageHandler(taskSvc, sm, live.PageConfig{
		ChatDelay:  cfg.Assistant.ChatDelay,
		VoiceDelay: cfg.Assistant.VoiceDelay,
	}, cfg.AllowedOrigins, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(identity.Middleware(authSvc))

	// Public routes.
	checker.RegisterRoutes(r)
	configHandler.RegisterRoutes(r)
	authHandler.RegisterRoutes(r)

	// Routes that check for a signed-in user themselves.
	taskHandler.RegisterRoutes(r)
	assistantHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/page", pageHandler.ServeHTTP)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,                 // 0 = no timeout for long-lived WebSockets
		IdleTimeout:  120 * time.Second, // 2 minutes for idle connections
	}

	identity.StartSessionSweeper(ctx, repo, cfg.SessionSweepInterval)
	slog.Info("Session sweeper started", "interval", cfg.SessionSweepInterval, "session_ttl", cfg.SessionTTL)

	if cfg.Health.GRPCAddr != "" {
		grpcHealth := health.NewGRPCServer(checker, 15*time.Second)
		go func() {
			if err := grpcHealth.ListenAndServe(ctx, cfg.Health.GRPCAddr); err != nil {
				slog.Error("gRPC health server failed", "error", err)
			}
		}()
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
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
