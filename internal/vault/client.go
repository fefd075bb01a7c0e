package vault

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/vault/api"
)

// Client wraps HashiCorp Vault API
type Client struct {
	client *api.Client
	mount  string
}

// Config holds Vault configuration
type Config struct {
	Address string
	Token   string
	// Mount is the KV v2 mount, "secret" when empty
	Mount string
}

// NewClient creates a new Vault client
func NewClient(cfg *Config) (*Client, error) {
	config := api.DefaultConfig()
	config.Address = cfg.Address

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	client.SetToken(cfg.Token)

	mount := cfg.Mount
	if mount == "" {
		mount = "secret"
	}

	return &Client{client: client, mount: mount}, nil
}

// StoreSecret stores a secret in Vault KV
func (c *Client) StoreSecret(ctx context.Context, path string, data map[string]interface{}) error {
	secretPath := fmt.Sprintf("%s/data/%s", c.mount, path)

	payload := map[string]interface{}{
		"data": data,
	}

	_, err := c.client.Logical().WriteWithContext(ctx, secretPath, payload)
	if err != nil {
		return fmt.Errorf("failed to store secret: %w", err)
	}

	return nil
}

// GetSecret retrieves a secret from Vault KV
func (c *Client) GetSecret(ctx context.Context, path string) (map[string]interface{}, error) {
	secretPath := fmt.Sprintf("%s/data/%s", c.mount, path)

	secret, err := c.client.Logical().ReadWithContext(ctx, secretPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret: %w", err)
	}

	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret %s not found", path)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid secret data format")
	}

	return data, nil
}

// GetString reads one string field of a KV secret
func (c *Client) GetString(ctx context.Context, path, key string) (string, error) {
	data, err := c.GetSecret(ctx, path)
	if err != nil {
		return "", err
	}
	return stringField(data, path, key)
}

func stringField(data map[string]interface{}, path, key string) (string, error) {
	raw, ok := data[key]
	if !ok {
		return "", fmt.Errorf("secret %s has no field %q", path, key)
	}
	value, ok := raw.(string)
	if !ok || value == "" {
		return "", fmt.Errorf("secret %s field %q is not a non-empty string", path, key)
	}
	return value, nil
}

// Health checks Vault health status
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := c.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}

	if !health.Initialized {
		return fmt.Errorf("vault is not initialized")
	}

	if health.Sealed {
		return fmt.Errorf("vault is sealed")
	}

	return nil
}
