// Package repository implements data persistence adapters
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"dealerchat/internal/core/domain"
	"dealerchat/internal/core/ports"
)

// Ensure RedisRepository implements GatewayConfigCache
var _ ports.GatewayConfigCache = (*RedisRepository)(nil)

// gatewayConfigKey caches the single connected gateway row
const gatewayConfigKey = "gateway:evolution:connected"

// RedisRepository caches the connected Evolution gateway row.
// The row is read on every Evolution send; a short TTL keeps admin
// reconnects visible without hammering the database.
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository creates a new Redis repository instance
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{
		client: client,
	}
}

// Get returns the cached gateway row, or (nil, nil) on a cache miss
func (r *RedisRepository) Get(ctx context.Context) (*domain.GatewayConfig, error) {
	data, err := r.client.Get(ctx, gatewayConfigKey).Bytes()

	if err == redis.Nil {
		// Cache miss
		return nil, nil
	}

	if err != nil {
		slog.Error("Failed to read gateway config cache", "error", err)
		return nil, fmt.Errorf("get gateway cache: %w", err)
	}

	var gw domain.GatewayConfig
	if err := json.Unmarshal(data, &gw); err != nil {
		slog.Warn("Discarding unparseable gateway config cache entry", "error", err)
		return nil, nil
	}

	return &gw, nil
}

// Set stores the gateway row with a TTL
func (r *RedisRepository) Set(ctx context.Context, cfg *domain.GatewayConfig, ttl time.Duration) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal gateway config: %w", err)
	}

	if err := r.client.Set(ctx, gatewayConfigKey, data, ttl).Err(); err != nil {
		slog.Error("Failed to cache gateway config",
			"error", err,
			"ttl", ttl,
		)
		return fmt.Errorf("set gateway cache: %w", err)
	}

	return nil
}

// Invalidate drops the cached gateway row
func (r *RedisRepository) Invalidate(ctx context.Context) error {
	if err := r.client.Del(ctx, gatewayConfigKey).Err(); err != nil {
		return fmt.Errorf("invalidate gateway cache: %w", err)
	}
	return nil
}
