package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Store.Driver != StoreDriverMemory {
		t.Errorf("Expected memory driver, got %s", cfg.Store.Driver)
	}
	if cfg.Review.ExclusiveRoles {
		t.Error("Multiple reviewers per role should be allowed by default")
	}
	if cfg.Notify.Buffer != 256 {
		t.Errorf("Expected default buffer 256, got %d", cfg.Notify.Buffer)
	}
	if cfg.Blob.MaxUpload != 32<<20 {
		t.Errorf("Expected 32MB upload limit, got %d", cfg.Blob.MaxUpload)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("REVIEW_EXCLUSIVE_ROLES", "true")
	t.Setenv("REVIEW_STALE_AFTER", "12h")
	t.Setenv("ROLEMAP_RELOAD_INTERVAL", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Store.Driver != StoreDriverPostgres {
		t.Errorf("Driver should be normalized, got %s", cfg.Store.Driver)
	}
	if !cfg.Review.ExclusiveRoles {
		t.Error("Expected exclusive roles")
	}
	if cfg.Review.StaleAfter != 12*time.Hour {
		t.Errorf("Expected 12h, got %v", cfg.Review.StaleAfter)
	}
	if cfg.Scheduler.RoleMapReloadInterval != 30*time.Second {
		t.Errorf("Invalid duration should fall back to default, got %v", cfg.Scheduler.RoleMapReloadInterval)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Auth:   AuthConfig{JWTSecret: "secret"},
			Store:  StoreConfig{Driver: StoreDriverMemory},
			Notify: NotifyConfig{Buffer: 10},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing secret", func(c *Config) { c.Auth.JWTSecret = "" }, true},
		{"secret from vault", func(c *Config) {
			c.Auth.JWTSecret = ""
			c.Vault = VaultConfig{Enabled: true, Token: "root"}
		}, false},
		{"vault without token", func(c *Config) { c.Vault.Enabled = true }, true},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mysql" }, true},
		{"production needs db password", func(c *Config) {
			c.Store.Driver = StoreDriverPostgres
			c.App.Env = "production"
		}, true},
		{"zero buffer", func(c *Config) { c.Notify.Buffer = 0 }, true},
		{"blob without credentials", func(c *Config) { c.Blob.Enabled = true }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
