package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"land-review/internal/blob"
	"land-review/internal/config"
	"land-review/internal/database"
	"land-review/internal/handlers"
	"land-review/internal/notify"
	"land-review/internal/repository"
	"land-review/internal/repository/memory"
	"land-review/internal/vault"
	"land-review/migrations"
)

func getContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// loadSecrets reads the token secret from Vault unless it is set in the environment
func loadSecrets(ctx context.Context, cfg *config.Config, checks map[string]handlers.HealthCheck) error {
	slog.Info("Vault is enabled - loading secrets", "vault_addr", cfg.Vault.Address)

	vaultClient, err := vault.NewClient(&vault.Config{
		Address: cfg.Vault.Address,
		Token:   cfg.Vault.Token,
	})
	if err != nil {
		return fmt.Errorf("failed to create vault client: %w", err)
	}
	checks["vault"] = vaultClient.Health

	if cfg.Auth.JWTSecret != "" {
		return nil
	}

	secret, err := vaultClient.GetString(ctx, cfg.Vault.SecretPath, cfg.Vault.SecretKey)
	if err != nil {
		return fmt.Errorf("failed to load token secret from vault: %w", err)
	}
	cfg.Auth.JWTSecret = secret
	return nil
}

// openStore connects the configured persistence backend
func openStore(cfg *config.Config, checks map[string]handlers.HealthCheck) (repository.Store, func(), error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		slog.Warn("Using in-memory store, data is lost on restart")
		store := memory.New()
		checks["store"] = store.Ping
		return store, func() {}, nil
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}
	slog.Info("Database connection established")

	if cfg.Database.MigrationsEnabled {
		migrator := database.NewMigrationExecutor(db.DB)
		if err := migrator.RunMigrations(migrations.FS); err != nil {
			closeDB()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		slog.Info("Database migrations completed")
	}

	store := repository.NewPostgresStore(db.DB)
	checks["store"] = store.Ping
	return store, closeDB, nil
}

// newDispatcher publishes events to Redis when configured, otherwise to the log
func newDispatcher(cfg *config.Config, checks map[string]handlers.HealthCheck) (*notify.Dispatcher, error) {
	if cfg.Notify.RedisURL == "" {
		slog.Info("No REDIS_URL configured, notifications are logged")
		return notify.NewDispatcher(notify.LogPublisher{}, cfg.Notify.Buffer), nil
	}

	publisher, err := notify.NewRedisPublisher(cfg.Notify.RedisURL, cfg.Notify.Channel)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	checks["notify"] = publisher.Ping
	slog.Info("Publishing notifications to redis", "channel", cfg.Notify.Channel)
	return notify.NewDispatcher(publisher, cfg.Notify.Buffer), nil
}

// openBlobStore returns nil when file uploads are disabled
func openBlobStore(ctx context.Context, cfg *config.Config, checks map[string]handlers.HealthCheck) (blob.Store, error) {
	if !cfg.Blob.Enabled {
		return nil, nil
	}

	store, err := blob.NewMinioStore(blob.Config{
		Endpoint:  cfg.Blob.Endpoint,
		AccessKey: cfg.Blob.AccessKey,
		SecretKey: cfg.Blob.SecretKey,
		Bucket:    cfg.Blob.Bucket,
		UseSSL:    cfg.Blob.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	bucketCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := store.EnsureBucket(bucketCtx); err != nil {
		return nil, err
	}

	checks["blob"] = store.Health
	slog.Info("Blob storage enabled", "endpoint", cfg.Blob.Endpoint, "bucket", cfg.Blob.Bucket)
	return store, nil
}
