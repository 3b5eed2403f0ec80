// Package ports defines interfaces for dependency inversion
// Following Hexagonal Architecture: Core defines contracts, Adapters implement them
package ports

import (
	"context"
	"time"

	"dealerchat/internal/core/domain"
)

// ChannelRegistry looks up configured WhatsApp channels.
// Every lookup filters is_active = true; a lookup against an inactive or
// missing channel returns (nil, nil), never an error. Reads are safe for
// concurrent use.
type ChannelRegistry interface {
	// FindByID retrieves an active channel by its id
	FindByID(ctx context.Context, id string) (*domain.Channel, error)

	// FindActivePersonalByVendor retrieves the most recently created
	// active personal channel owned by the given salesperson
	FindActivePersonalByVendor(ctx context.Context, vendorID string) (*domain.Channel, error)

	// FindDefaultPrincipal retrieves the oldest created active principal channel
	FindDefaultPrincipal(ctx context.Context) (*domain.Channel, error)

	// FindByEvolutionInstance retrieves the active Evolution channel bound
	// to the given instance name
	FindByEvolutionInstance(ctx context.Context, instanceName string) (*domain.Channel, error)

	// List returns all channels, active or not, for the admin surface
	List(ctx context.Context) ([]domain.Channel, error)

	// Create persists a new channel record
	Create(ctx context.Context, ch *domain.Channel) error
}

// AtendimentoRepository reads conversation threads for routing
type AtendimentoRepository interface {
	// FindByID retrieves the routing-relevant columns of a conversation.
	// Returns (nil, nil) when the conversation does not exist.
	FindByID(ctx context.Context, id string) (*domain.Atendimento, error)
}

// GatewayConfigRepository reads the shared Evolution gateway connection record
type GatewayConfigRepository interface {
	// FindConnected retrieves the most recently created connected gateway
	// row, or (nil, nil) when none is connected
	FindConnected(ctx context.Context) (*domain.GatewayConfig, error)

	// MarkDisconnected flips is_connected off for a gateway row.
	// Used by the watchdog after repeated connectivity failures.
	MarkDisconnected(ctx context.Context, id string) error
}

// VendorConfigRepository reads per-salesperson legacy settings
type VendorConfigRepository interface {
	// FindEvolutionInstance returns the salesperson's legacy instance
	// binding, or "" when none exists
	FindEvolutionInstance(ctx context.Context, vendorID string) (string, error)
}

// GatewayConfigCache caches the connected gateway row, which is read on
// every Evolution send
type GatewayConfigCache interface {
	Get(ctx context.Context) (*domain.GatewayConfig, error)
	Set(ctx context.Context, cfg *domain.GatewayConfig, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// MetaTransport sends messages through the Meta Cloud API
type MetaTransport interface {
	// Send performs one authenticated call to the messages endpoint and
	// returns the provider-generated message id
	Send(ctx context.Context, req *domain.SendRequest, creds domain.MetaCredentials) (string, error)

	// VerifyPhoneNumber fetches the display number and verified name for a
	// phone-number-id, used when registering a new Meta channel
	VerifyPhoneNumber(ctx context.Context, accessToken, phoneNumberID string) (*domain.PhoneNumberInfo, error)
}

// EvolutionTransport sends messages through a self-hosted Evolution gateway
type EvolutionTransport interface {
	// Send performs one call against the instance's message endpoint and
	// returns the provider-generated message id
	Send(ctx context.Context, req *domain.SendRequest, instanceName string, gw *domain.GatewayConfig) (string, error)

	// FetchFirstInstance discovers the first instance registered on the
	// gateway. Returns domain.ErrNoInstanceAvailable when there is none.
	FetchFirstInstance(ctx context.Context, gw *domain.GatewayConfig) (string, error)
}

// EventPublisher emits delivery events after successful sends
type EventPublisher interface {
	PublishDelivery(ctx context.Context, evt *domain.DeliveryEvent) error
}
