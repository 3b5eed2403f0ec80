package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dealerchat/internal/core/domain"
)

type senderMocks struct {
	channels     *MockChannelRegistry
	atendimentos *MockAtendimentoRepository
	gateways     *MockGatewayConfigRepository
	vendorCfg    *MockVendorConfigRepository
	meta         *MockMetaTransport
	evolution    *MockEvolutionTransport
	events       *MockEventPublisher
}

// createTestSender creates a sender wired to mocks end to end
func createTestSender(legacyMeta *domain.MetaCredentials) (*Sender, *senderMocks) {
	m := &senderMocks{
		channels:     new(MockChannelRegistry),
		atendimentos: new(MockAtendimentoRepository),
		gateways:     new(MockGatewayConfigRepository),
		vendorCfg:    new(MockVendorConfigRepository),
		meta:         new(MockMetaTransport),
		evolution:    new(MockEvolutionTransport),
		events:       new(MockEventPublisher),
	}
	resolver := NewResolver(m.channels, m.atendimentos, m.gateways, m.vendorCfg, legacyMeta)
	sender := NewSender(resolver, m.meta, m.evolution, m.gateways, m.events)
	return sender, m
}

func testGateway() *domain.GatewayConfig {
	return &domain.GatewayConfig{
		ID:          "gw-1",
		APIURL:      "http://evolution:8080",
		APIKey:      "secret",
		IsConnected: true,
	}
}

func TestSend_ValidationFailure(t *testing.T) {
	sender, m := createTestSender(nil)
	ctx := context.Background()

	cases := []struct {
		name string
		req  *domain.SendRequest
	}{
		{"missing recipient", &domain.SendRequest{Message: "hi"}},
		{"missing payload", &domain.SendRequest{To: "5511999990000"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := sender.Send(ctx, tc.req)

			var validationErr *domain.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Contains(t, validationErr.Message, "Missing required fields")
		})
	}

	// No resolution or upstream call happens on invalid input
	m.channels.AssertNotCalled(t, "FindDefaultPrincipal", mock.Anything)
	m.meta.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestSend_ViaMeta(t *testing.T) {
	sender, m := createTestSender(nil)
	ctx := context.Background()

	ch := metaChannel("ch-main", domain.NumberTypePrincipal, time.Now())
	req := &domain.SendRequest{To: "5511999990000", Message: "hi"}

	m.channels.On("FindDefaultPrincipal", ctx).Return(ch, nil)
	m.meta.On("Send", ctx, req, domain.MetaCredentials{
		AccessToken:   "token-ch-main",
		PhoneNumberID: "phone-ch-main",
	}).Return("wamid.1", nil)
	m.events.On("PublishDelivery", mock.Anything, mock.Anything).Return(nil).Maybe()

	result, err := sender.Send(ctx, req)

	require.NoError(t, err)
	assert.Equal(t, "wamid.1", result.MessageID)
	assert.Equal(t, domain.APITypeMeta, result.Source)
	assert.Equal(t, domain.NumberTypePrincipal, result.NumberType)
	m.evolution.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSend_ViaEvolution(t *testing.T) {
	sender, m := createTestSender(nil)
	ctx := context.Background()

	gw := testGateway()
	ch := evolutionChannel("ch-evo", domain.NumberTypePrincipal, "sales-main", time.Now())
	req := &domain.SendRequest{To: "5511999990000", Message: "hi"}

	m.channels.On("FindDefaultPrincipal", ctx).Return(ch, nil)
	m.gateways.On("FindConnected", ctx).Return(gw, nil)
	m.evolution.On("Send", ctx, req, "sales-main", gw).Return("3EB0C1", nil)
	m.events.On("PublishDelivery", mock.Anything, mock.Anything).Return(nil).Maybe()

	result, err := sender.Send(ctx, req)

	require.NoError(t, err)
	assert.Equal(t, "3EB0C1", result.MessageID)
	assert.Equal(t, domain.APITypeEvolution, result.Source)
}

func TestSend_GatewayNotConfigured(t *testing.T) {
	sender, m := createTestSender(nil)
	ctx := context.Background()

	ch := evolutionChannel("ch-evo", domain.NumberTypePrincipal, "sales-main", time.Now())
	m.channels.On("FindDefaultPrincipal", ctx).Return(ch, nil)
	m.gateways.On("FindConnected", ctx).Return(nil, nil)

	_, err := sender.Send(ctx, &domain.SendRequest{To: "5511999990000", Message: "hi"})

	assert.ErrorIs(t, err, domain.ErrGatewayNotConfigured)
	m.evolution.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// A channel without an instance binding falls back to gateway discovery
func TestSend_EvolutionInstanceDiscovery(t *testing.T) {
	sender, m := createTestSender(nil)
	ctx := context.Background()

	gw := testGateway()
	ch := evolutionChannel("ch-old", domain.NumberTypePrincipal, "", time.Now())
	req := &domain.SendRequest{To: "5511999990000", Message: "hi"}

	m.channels.On("FindDefaultPrincipal", ctx).Return(ch, nil)
	m.gateways.On("FindConnected", ctx).Return(gw, nil)
	m.evolution.On("FetchFirstInstance", ctx, gw).Return("discovered", nil)
	m.evolution.On("Send", ctx, req, "discovered", gw).Return("3EB0C2", nil)
	m.events.On("PublishDelivery", mock.Anything, mock.Anything).Return(nil).Maybe()

	result, err := sender.Send(ctx, req)

	require.NoError(t, err)
	assert.Equal(t, "3EB0C2", result.MessageID)
}

func TestSend_EvolutionNoInstanceAvailable(t *testing.T) {
	sender, m := createTestSender(nil)
	ctx := context.Background()

	gw := testGateway()
	ch := evolutionChannel("ch-old", domain.NumberTypePrincipal, "", time.Now())

	m.channels.On("FindDefaultPrincipal", ctx).Return(ch, nil)
	m.gateways.On("FindConnected", ctx).Return(gw, nil)
	m.evolution.On("FetchFirstInstance", ctx, gw).Return("", domain.ErrNoInstanceAvailable)

	_, err := sender.Send(ctx, &domain.SendRequest{To: "5511999990000", Message: "hi"})

	assert.ErrorIs(t, err, domain.ErrNoInstanceAvailable)
	m.evolution.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSend_UpstreamErrorPropagates(t *testing.T) {
	sender, m := createTestSender(nil)
	ctx := context.Background()

	ch := metaChannel("ch-main", domain.NumberTypePrincipal, time.Now())
	upstream := &domain.UpstreamError{
		Provider:   domain.APITypeMeta,
		StatusCode: 401,
		Body:       []byte(`{"error":{"message":"Invalid OAuth access token"}}`),
	}

	m.channels.On("FindDefaultPrincipal", ctx).Return(ch, nil)
	m.meta.On("Send", ctx, mock.Anything, mock.Anything).Return("", upstream)

	_, err := sender.Send(ctx, &domain.SendRequest{To: "5511999990000", Message: "hi"})

	var upstreamErr *domain.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, 401, upstreamErr.StatusCode)
	assert.Contains(t, string(upstreamErr.Body), "Invalid OAuth access token")
	// No retry: exactly one upstream attempt
	m.meta.AssertNumberOfCalls(t, "Send", 1)
	m.events.AssertNotCalled(t, "PublishDelivery", mock.Anything, mock.Anything)
}

// Conversation bound to nothing, personal type with a fixed vendedor:
// resolution picks the vendedor's most recent personal channel (P2,
// Evolution) over the older P1 and dispatches accordingly
func TestSend_PersonalChannelScenario(t *testing.T) {
	sender, m := createTestSender(nil)
	ctx := context.Background()

	gw := testGateway()
	p2 := evolutionChannel("p2", domain.NumberTypePersonal, "vendor-v-2", time.Now())
	p2.VendedorID = strPtr("vend-v")

	req := &domain.SendRequest{To: "5511999990000", Message: "hi", AtendimentoID: "at-c"}

	m.atendimentos.On("FindByID", ctx, "at-c").Return(&domain.Atendimento{
		ID:             "at-c",
		NumberType:     numberTypePtr(domain.NumberTypePersonal),
		VendedorFixoID: strPtr("vend-v"),
	}, nil)
	m.channels.On("FindActivePersonalByVendor", ctx, "vend-v").Return(p2, nil)
	m.gateways.On("FindConnected", ctx).Return(gw, nil)
	m.evolution.On("Send", ctx, req, "vendor-v-2", gw).Return("3EB0C3", nil)
	m.events.On("PublishDelivery", mock.Anything, mock.Anything).Return(nil).Maybe()

	result, err := sender.Send(ctx, req)

	require.NoError(t, err)
	assert.Equal(t, domain.APITypeEvolution, result.Source)
	assert.Equal(t, domain.NumberTypePersonal, result.NumberType)
	m.meta.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

// No channel records at all, legacy env credentials set: tier 6 delivers
// through Meta
func TestSend_LegacyEnvScenario(t *testing.T) {
	legacy := &domain.MetaCredentials{AccessToken: "env-token", PhoneNumberID: "env-phone"}
	sender, m := createTestSender(legacy)
	ctx := context.Background()

	req := &domain.SendRequest{To: "5511999990000", Message: "hi"}

	m.channels.On("FindDefaultPrincipal", ctx).Return(nil, nil)
	m.meta.On("Send", ctx, req, *legacy).Return("wamid.env", nil)
	m.events.On("PublishDelivery", mock.Anything, mock.Anything).Return(nil).Maybe()

	result, err := sender.Send(ctx, req)

	require.NoError(t, err)
	assert.Equal(t, "wamid.env", result.MessageID)
	assert.Equal(t, domain.APITypeMeta, result.Source)
	assert.Equal(t, domain.NumberType(""), result.NumberType)
}

func TestSend_PublishesDeliveryEvent(t *testing.T) {
	sender, m := createTestSender(nil)
	ctx := context.Background()

	ch := metaChannel("ch-main", domain.NumberTypePrincipal, time.Now())
	req := &domain.SendRequest{To: "5511999990000", AudioURL: "https://cdn/audio.ogg", AtendimentoID: "at-9"}

	m.atendimentos.On("FindByID", ctx, "at-9").Return(nil, nil)
	m.channels.On("FindDefaultPrincipal", ctx).Return(ch, nil)
	m.meta.On("Send", ctx, req, mock.Anything).Return("wamid.2", nil)
	m.events.On("PublishDelivery", mock.Anything, mock.MatchedBy(func(evt *domain.DeliveryEvent) bool {
		return evt.MessageID == "wamid.2" &&
			evt.ChannelID == "ch-main" &&
			evt.AtendimentoID == "at-9" &&
			evt.Kind == domain.MessageKindAudio &&
			evt.EventID != ""
	})).Return(nil)

	_, err := sender.Send(ctx, req)
	require.NoError(t, err)

	// Publishing is async; give the goroutine time to complete
	time.Sleep(200 * time.Millisecond)

	m.events.AssertExpectations(t)
}
