package repository

import (
	"context"
	"log/slog"
	"time"

	"dealerchat/internal/core/domain"
	"dealerchat/internal/core/ports"
)

// Ensure CachedGatewayRepository implements GatewayConfigRepository
var _ ports.GatewayConfigRepository = (*CachedGatewayRepository)(nil)

// gatewayCacheTTL bounds how stale a cached gateway row can get
const gatewayCacheTTL = 30 * time.Second

// CachedGatewayRepository decorates a GatewayConfigRepository with a
// read-through cache. Cache errors degrade to database reads.
type CachedGatewayRepository struct {
	inner ports.GatewayConfigRepository
	cache ports.GatewayConfigCache
}

// NewCachedGatewayRepository wraps inner with the given cache
func NewCachedGatewayRepository(inner ports.GatewayConfigRepository, cache ports.GatewayConfigCache) *CachedGatewayRepository {
	return &CachedGatewayRepository{
		inner: inner,
		cache: cache,
	}
}

// FindConnected returns the cached gateway row when fresh, the database
// row otherwise. A nil (not configured) result is never cached so admin
// reconnects show up immediately.
func (r *CachedGatewayRepository) FindConnected(ctx context.Context) (*domain.GatewayConfig, error) {
	cached, err := r.cache.Get(ctx)
	if err != nil {
		slog.Warn("Gateway cache read failed, falling back to database", "error", err)
	} else if cached != nil {
		return cached, nil
	}

	gw, err := r.inner.FindConnected(ctx)
	if err != nil || gw == nil {
		return gw, err
	}

	if err := r.cache.Set(ctx, gw, gatewayCacheTTL); err != nil {
		slog.Warn("Gateway cache write failed", "error", err)
	}

	return gw, nil
}

// MarkDisconnected forwards to the database and drops the cached row
func (r *CachedGatewayRepository) MarkDisconnected(ctx context.Context, id string) error {
	if err := r.inner.MarkDisconnected(ctx, id); err != nil {
		return err
	}
	if err := r.cache.Invalidate(ctx); err != nil {
		slog.Warn("Gateway cache invalidation failed", "error", err)
	}
	return nil
}
