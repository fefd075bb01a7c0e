package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Vault     VaultConfig
	Notify    NotifyConfig
	Blob      BlobConfig
	Review    ReviewConfig
	Scheduler SchedulerConfig
	App       AppConfig
	Log       LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host            string
	Port            string
	TimeoutRead     time.Duration
	TimeoutWrite    time.Duration
	TimeoutIdle     time.Duration
	ShutdownTimeout time.Duration
}

// StoreConfig selects the persistence backend
type StoreConfig struct {
	Driver string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Host              string
	Port              string
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxOpenConns      int
	MaxIdleConns      int
	ConnMaxLifetime   time.Duration
	MigrationsEnabled bool
}

// AuthConfig holds identity token settings
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// VaultConfig holds Vault-related configuration
type VaultConfig struct {
	Enabled    bool
	Address    string
	Token      string
	SecretPath string
	SecretKey  string
}

// NotifyConfig holds notification settings. An empty RedisURL logs events instead.
type NotifyConfig struct {
	RedisURL string
	Channel  string
	Buffer   int
}

// BlobConfig holds object storage settings for document uploads
type BlobConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	MaxUpload int64
}

// ReviewConfig holds workflow settings
type ReviewConfig struct {
	RoleMapPath    string
	ExclusiveRoles bool
	StaleAfter     time.Duration
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	RoleMapReloadInterval time.Duration
	StaleReminderCron     string // e.g., "0 8 * * *" (Daily 8 AM)
	EnableStaleReminders  bool
}

// AppConfig holds general application configuration
type AppConfig struct {
	Env     string
	Name    string
	Version string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// godotenv doesn't override already-set variables
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "localhost"),
			Port:            getEnv("SERVER_PORT", "8080"),
			TimeoutRead:     getDurationEnv("SERVER_TIMEOUT_READ", 15*time.Second),
			TimeoutWrite:    getDurationEnv("SERVER_TIMEOUT_WRITE", 15*time.Second),
			TimeoutIdle:     getDurationEnv("SERVER_TIMEOUT_IDLE", 60*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		},
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnv("DB_PORT", "5432"),
			User:              getEnv("DB_USER", "landreview"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "landreview_db"),
			SSLMode:           getEnv("DB_SSLMODE", "prefer"),
			MaxOpenConns:      getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:      getIntEnv("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:   getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			MigrationsEnabled: getBoolEnv("DB_MIGRATIONS_ENABLED", true),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
			Issuer:    getEnv("AUTH_ISSUER", ""),
		},
		Vault: VaultConfig{
			Enabled:    getBoolEnv("VAULT_ENABLED", false),
			Address:    getEnv("VAULT_ADDR", "http://localhost:8200"),
			Token:      getEnv("VAULT_TOKEN", ""),
			SecretPath: getEnv("VAULT_SECRET_PATH", "land-review/auth"),
			SecretKey:  getEnv("VAULT_SECRET_KEY", "jwt_secret"),
		},
		Notify: NotifyConfig{
			RedisURL: getEnv("REDIS_URL", ""),
			Channel:  getEnv("NOTIFY_CHANNEL", "review-events"),
			Buffer:   getIntEnv("NOTIFY_BUFFER", 256),
		},
		Blob: BlobConfig{
			Enabled:   getBoolEnv("BLOB_ENABLED", false),
			Endpoint:  getEnv("BLOB_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("BLOB_ACCESS_KEY", ""),
			SecretKey: getEnv("BLOB_SECRET_KEY", ""),
			Bucket:    getEnv("BLOB_BUCKET", "review-documents"),
			UseSSL:    getBoolEnv("BLOB_USE_SSL", false),
			MaxUpload: int64(getIntEnv("BLOB_MAX_UPLOAD_MB", 32)) << 20,
		},
		Review: ReviewConfig{
			RoleMapPath:    getEnv("ROLEMAP_PATH", ""),
			ExclusiveRoles: getBoolEnv("REVIEW_EXCLUSIVE_ROLES", false),
			StaleAfter:     getDurationEnv("REVIEW_STALE_AFTER", 72*time.Hour),
		},
		Scheduler: SchedulerConfig{
			RoleMapReloadInterval: getDurationEnv("ROLEMAP_RELOAD_INTERVAL", 30*time.Second),
			StaleReminderCron:     getEnv("SCHEDULER_STALE_REMINDER_CRON", "0 8 * * *"), // Daily 8 AM
			EnableStaleReminders:  getBoolEnv("SCHEDULER_ENABLE_STALE_REMINDERS", true),
		},
		App: AppConfig{
			Env:     getEnv("APP_ENV", "development"),
			Name:    getEnv("APP_NAME", "LandReview"),
			Version: getEnv("APP_VERSION", "1.0.0"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" && !c.Vault.Enabled {
		return fmt.Errorf("AUTH_JWT_SECRET is required unless VAULT_ENABLED is set")
	}
	if c.Vault.Enabled && c.Vault.Token == "" {
		return fmt.Errorf("VAULT_TOKEN is required when VAULT_ENABLED is set")
	}
	switch c.Store.Driver {
	case StoreDriverPostgres:
		if c.Database.Password == "" && c.App.Env == "production" {
			return fmt.Errorf("DB_PASSWORD is required in production")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Notify.Buffer <= 0 {
		return fmt.Errorf("NOTIFY_BUFFER must be positive")
	}
	if c.Blob.Enabled && (c.Blob.AccessKey == "" || c.Blob.SecretKey == "") {
		return fmt.Errorf("BLOB_ACCESS_KEY and BLOB_SECRET_KEY are required when BLOB_ENABLED is set")
	}
	if c.Scheduler.RoleMapReloadInterval < 0 {
		return fmt.Errorf("ROLEMAP_RELOAD_INTERVAL must not be negative")
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
