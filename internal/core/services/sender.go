package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"dealerchat/internal/core/domain"
	"dealerchat/internal/core/ports"
)

// Sender is the top-level entry point of the outbound send core.
// It validates the request, resolves a channel, dispatches to the matching
// transport and normalizes the result. It never retries a failed upstream
// call and never mutates channel or conversation state.
type Sender struct {
	resolver  *Resolver
	meta      ports.MetaTransport
	evolution ports.EvolutionTransport
	gateways  ports.GatewayConfigRepository
	events    ports.EventPublisher
}

// NewSender creates a sender with dependencies injected
func NewSender(
	resolver *Resolver,
	meta ports.MetaTransport,
	evolution ports.EvolutionTransport,
	gateways ports.GatewayConfigRepository,
	events ports.EventPublisher,
) *Sender {
	return &Sender{
		resolver:  resolver,
		meta:      meta,
		evolution: evolution,
		gateways:  gateways,
		events:    events,
	}
}

// Send routes and delivers one outbound message
func (s *Sender) Send(ctx context.Context, req *domain.SendRequest) (*domain.SendResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	res, err := s.resolver.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	var messageID string
	switch res.APIType {
	case domain.APITypeMeta:
		messageID, err = s.meta.Send(ctx, req, *res.Meta)
	case domain.APITypeEvolution:
		messageID, err = s.sendViaEvolution(ctx, req, res)
	default:
		return nil, fmt.Errorf("unknown api type %q", res.APIType)
	}
	if err != nil {
		return nil, err
	}

	result := &domain.SendResult{
		MessageID:  messageID,
		Source:     res.APIType,
		NumberType: res.NumberType(),
	}

	s.publishDelivery(req, res, result)

	slog.Info("Message sent",
		"message_id", result.MessageID,
		"source", result.Source,
		"kind", req.Kind(),
	)
	return result, nil
}

// sendViaEvolution looks up the shared gateway row and dispatches through
// it, discovering an instance when the channel predates instance binding
func (s *Sender) sendViaEvolution(ctx context.Context, req *domain.SendRequest, res *domain.Resolution) (string, error) {
	gw, err := s.gateways.FindConnected(ctx)
	if err != nil {
		return "", fmt.Errorf("lookup gateway config: %w", err)
	}
	if gw == nil {
		return "", domain.ErrGatewayNotConfigured
	}

	instance := res.InstanceName
	if instance == "" {
		// Compatibility path for channels created before instance binding
		// was mandatory. Preserved, not extended.
		instance, err = s.evolution.FetchFirstInstance(ctx, gw)
		if err != nil {
			return "", err
		}
		slog.Warn("Channel has no instance binding, using discovered instance",
			"instance", instance,
		)
	}

	return s.evolution.Send(ctx, req, instance, gw)
}

// publishDelivery emits a delivery event without blocking the response.
// Publishing is best effort; failures are logged and dropped.
func (s *Sender) publishDelivery(req *domain.SendRequest, res *domain.Resolution, result *domain.SendResult) {
	evt := &domain.DeliveryEvent{
		EventID:       uuid.NewString(),
		AtendimentoID: req.AtendimentoID,
		Source:        result.Source,
		NumberType:    result.NumberType,
		MessageID:     result.MessageID,
		To:            req.To,
		Kind:          req.Kind(),
		SentAt:        time.Now().UTC(),
	}
	if res.Channel != nil {
		evt.ChannelID = res.Channel.ID
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("PANIC recovered in delivery event publish", "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.events.PublishDelivery(ctx, evt); err != nil {
			slog.Warn("Failed to publish delivery event",
				"error", err,
				"event_id", evt.EventID,
			)
		}
	}()
}
