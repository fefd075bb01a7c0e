package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/sync/errgroup"

	_ "land-review/docs" // This is for Swagger
	"land-review/internal/auth"
	"land-review/internal/config"
	"land-review/internal/handlers"
	"land-review/internal/logger"
	"land-review/internal/middleware"
	"land-review/internal/rolemap"
	"land-review/internal/scheduler"
	"land-review/internal/service"
)

// @title Land Review API
// @version 1.0
// @description Review assignment and approval workflow for land marketplace projects
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@landreview.example

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	if err := run(); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Setup structured logger
	logger.Setup(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("Starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"env", cfg.App.Env,
		"log_level", logger.GetLevel(cfg.Log.Level),
		"store", cfg.Store.Driver,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := make(map[string]handlers.HealthCheck)

	// Vault holds the token secret when enabled
	if cfg.Vault.Enabled {
		if err := loadSecrets(ctx, cfg, checks); err != nil {
			return err
		}
	}

	store, closeStore, err := openStore(cfg, checks)
	if err != nil {
		return err
	}
	defer closeStore()

	roles, err := rolemap.NewRegistry(cfg.Review.RoleMapPath)
	if err != nil {
		return fmt.Errorf("failed to load role mapping: %w", err)
	}

	dispatcher, err := newDispatcher(cfg, checks)
	if err != nil {
		return err
	}
	dispatcher.Start()

	blobs, err := openBlobStore(ctx, cfg, checks)
	if err != nil {
		return err
	}

	// Initialize services
	reviewService := service.NewReviewService(store, roles, dispatcher, service.Options{
		ExclusiveRoles: cfg.Review.ExclusiveRoles,
	})
	authService := auth.NewService(&cfg.Auth)

	// Initialize handlers
	h := &handlers.Handlers{
		Review:    handlers.NewReviewHandler(reviewService),
		Documents: handlers.NewDocumentHandler(reviewService, blobs, cfg.Blob.MaxUpload),
		Audit:     handlers.NewAuditHandler(reviewService),
		Health:    handlers.NewHealthHandler(cfg.App.Version, checks),
	}

	// Setup router
	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, h, middleware.NewAuthMiddleware(authService))

	// Swagger documentation
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	// Apply global middleware
	handler := middleware.Chain(mux,
		middleware.RequestID,
		middleware.LoggingMiddleware,
		middleware.SecurityHeaders,
	)

	// Initialize scheduler
	sched := scheduler.NewScheduler(reviewService, roles, &cfg.Scheduler, cfg.Review.StaleAfter)
	if err := sched.Start(); err != nil {
		return err
	}

	// Create server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.TimeoutRead,
		WriteTimeout: cfg.Server.TimeoutWrite,
		IdleTimeout:  cfg.Server.TimeoutIdle,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server starting", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Server shutting down...")

		// Graceful shutdown with timeout
		shutdownCtx, cancel := getContext(cfg.Server.ShutdownTimeout)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		sched.Stop()
		if cerr := dispatcher.Close(shutdownCtx); cerr != nil {
			slog.Error("Failed to flush notifications", "error", cerr)
		}
		if err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("Server stopped")
	return nil
}
