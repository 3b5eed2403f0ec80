// Package services contains core business logic
// Following Hexagonal Architecture: Services orchestrate domain logic using ports
package services

import (
	"context"
	"fmt"
	"log/slog"

	"dealerchat/internal/core/domain"
	"dealerchat/internal/core/ports"
)

// Resolver walks the channel resolution chain for a send request.
//
// The tier ordering is a product decision and must be preserved:
//  1. explicit channel id (hard fail when inactive or missing)
//  2. conversation-bound channel
//  3. owner's personal channel (most recently created)
//  4. legacy instance-name match
//  5. default principal channel (oldest created)
//  6. legacy env credentials, then legacy gateway config
//
// Tiers 2-5 degrade gracefully past inactive records; only tier 1 fails hard.
type Resolver struct {
	channels     ports.ChannelRegistry
	atendimentos ports.AtendimentoRepository
	gateways     ports.GatewayConfigRepository
	vendorCfg    ports.VendorConfigRepository
	legacyMeta   *domain.MetaCredentials
}

// NewResolver creates a resolver with dependencies injected.
// legacyMeta may be nil when the environment fallback is not configured.
func NewResolver(
	channels ports.ChannelRegistry,
	atendimentos ports.AtendimentoRepository,
	gateways ports.GatewayConfigRepository,
	vendorCfg ports.VendorConfigRepository,
	legacyMeta *domain.MetaCredentials,
) *Resolver {
	return &Resolver{
		channels:     channels,
		atendimentos: atendimentos,
		gateways:     gateways,
		vendorCfg:    vendorCfg,
		legacyMeta:   legacyMeta,
	}
}

// Resolve determines which channel configuration and transport serve the
// request. Resolution is a pure read: identical inputs against unchanged
// data always yield the identical outcome.
func (r *Resolver) Resolve(ctx context.Context, req *domain.SendRequest) (*domain.Resolution, error) {
	// Tier 1: explicit channel. An explicit request must not silently
	// reroute, so an inactive or missing channel is a hard failure.
	if req.WhatsAppNumberID != "" {
		ch, err := r.channels.FindByID(ctx, req.WhatsAppNumberID)
		if err != nil {
			return nil, fmt.Errorf("lookup explicit channel: %w", err)
		}
		if ch == nil {
			slog.Warn("Explicit channel inactive or missing",
				"channel_id", req.WhatsAppNumberID,
			)
			return nil, domain.ErrChannelUnresolved
		}
		slog.Info("Using explicit channel",
			"channel", ch.Name,
			"api_type", ch.APIType,
		)
		return r.fromChannel(ch)
	}

	var atendimento *domain.Atendimento
	if req.AtendimentoID != "" {
		var err error
		atendimento, err = r.atendimentos.FindByID(ctx, req.AtendimentoID)
		if err != nil {
			return nil, fmt.Errorf("lookup atendimento: %w", err)
		}
	}

	if atendimento != nil {
		// Tier 2: conversation-bound channel
		if atendimento.WhatsAppNumberID != nil {
			ch, err := r.channels.FindByID(ctx, *atendimento.WhatsAppNumberID)
			if err != nil {
				return nil, fmt.Errorf("lookup atendimento channel: %w", err)
			}
			if ch != nil {
				slog.Info("Using atendimento's channel",
					"channel", ch.Name,
					"api_type", ch.APIType,
				)
				return r.fromChannel(ch)
			}
		}

		// Tier 3: the owning salesperson's personal channel
		if atendimento.NumberType != nil && *atendimento.NumberType == domain.NumberTypePersonal &&
			atendimento.VendedorFixoID != nil {
			ch, err := r.channels.FindActivePersonalByVendor(ctx, *atendimento.VendedorFixoID)
			if err != nil {
				return nil, fmt.Errorf("lookup personal channel: %w", err)
			}
			if ch != nil {
				slog.Info("Using vendedor's personal channel",
					"channel", ch.Name,
					"api_type", ch.APIType,
					"vendedor_id", *atendimento.VendedorFixoID,
				)
				return r.fromChannel(ch)
			}
		}

		// Tier 4: legacy instance binding matched against the registry
		if atendimento.EvolutionInstanceName != nil && *atendimento.EvolutionInstanceName != "" {
			ch, err := r.channels.FindByEvolutionInstance(ctx, *atendimento.EvolutionInstanceName)
			if err != nil {
				return nil, fmt.Errorf("lookup channel by instance: %w", err)
			}
			if ch != nil {
				slog.Info("Using legacy evolution instance channel",
					"channel", ch.Name,
					"instance", *atendimento.EvolutionInstanceName,
				)
				return r.fromChannel(ch)
			}
		}
	}

	// Tier 5: default principal channel
	ch, err := r.channels.FindDefaultPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("lookup default principal channel: %w", err)
	}
	if ch != nil {
		slog.Info("Using default principal channel",
			"channel", ch.Name,
			"api_type", ch.APIType,
		)
		return r.fromChannel(ch)
	}

	// Tier 6: no channel records resolve at all. Migration-era fallbacks.
	return r.resolveLegacy(ctx, atendimento)
}

// fromChannel builds a resolution from a registry record
func (r *Resolver) fromChannel(ch *domain.Channel) (*domain.Resolution, error) {
	if ch.APIType == domain.APITypeEvolution {
		return &domain.Resolution{
			Channel:      ch,
			APIType:      domain.APITypeEvolution,
			InstanceName: ch.InstanceName(),
		}, nil
	}

	creds := ch.MetaCredentials()
	if creds == nil {
		slog.Error("Meta channel missing credentials", "channel_id", ch.ID)
		return nil, domain.ErrChannelUnresolved
	}
	return &domain.Resolution{
		Channel: ch,
		APIType: domain.APITypeMeta,
		Meta:    creds,
	}, nil
}

// resolveLegacy handles the environment-variable and bare-gateway
// fallbacks that predate the channel registry
func (r *Resolver) resolveLegacy(ctx context.Context, atendimento *domain.Atendimento) (*domain.Resolution, error) {
	if r.legacyMeta != nil {
		slog.Warn("Using legacy environment credentials for Meta API")
		return &domain.Resolution{
			APIType: domain.APITypeMeta,
			Meta:    r.legacyMeta,
			Legacy:  true,
		}, nil
	}

	gw, err := r.gateways.FindConnected(ctx)
	if err != nil {
		return nil, fmt.Errorf("lookup gateway config: %w", err)
	}
	if gw == nil {
		return nil, domain.ErrChannelUnresolved
	}

	instance, err := r.legacyInstanceName(ctx, atendimento)
	if err != nil {
		return nil, err
	}

	slog.Warn("Using legacy gateway config for Evolution API",
		"instance", instance,
	)
	return &domain.Resolution{
		APIType:      domain.APITypeEvolution,
		InstanceName: instance,
		Legacy:       true,
	}, nil
}

// legacyInstanceName recovers an instance binding from the conversation or
// the salesperson's config table. Returns "" when neither has one; the
// dispatcher then falls back to gateway discovery.
func (r *Resolver) legacyInstanceName(ctx context.Context, atendimento *domain.Atendimento) (string, error) {
	if atendimento == nil {
		return "", nil
	}
	if atendimento.EvolutionInstanceName != nil && *atendimento.EvolutionInstanceName != "" {
		return *atendimento.EvolutionInstanceName, nil
	}
	if atendimento.VendedorFixoID != nil {
		instance, err := r.vendorCfg.FindEvolutionInstance(ctx, *atendimento.VendedorFixoID)
		if err != nil {
			return "", fmt.Errorf("lookup vendedor instance: %w", err)
		}
		return instance, nil
	}
	return "", nil
}
