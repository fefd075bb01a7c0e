package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher publishes events as JSON on a Redis pub/sub channel
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher connects to the Redis server at url and verifies the connection
func NewRedisPublisher(url, channel string) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisPublisher{client: client, channel: channel}, nil
}

// Publish sends e as JSON on the configured channel
func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return p.client.Publish(ctx, p.channel, raw).Err()
}

// Ping checks the Redis connection
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// LogPublisher writes events to the log when no notification backend is configured
type LogPublisher struct{}

// Publish logs e
func (LogPublisher) Publish(ctx context.Context, e Event) error {
	slog.Info("Notification event",
		"event_id", e.ID,
		"type", e.Type,
		"project_id", e.ProjectID,
		"assignment_id", e.AssignmentID,
		"document_id", e.DocumentID,
	)
	return nil
}

// Close is a no-op
func (LogPublisher) Close() error { return nil }
