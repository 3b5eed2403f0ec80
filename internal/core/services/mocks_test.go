package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"dealerchat/internal/core/domain"
)

// ============================================================================
// Mock Repositories and Transports
// ============================================================================

// MockChannelRegistry mocks ChannelRegistry interface
type MockChannelRegistry struct {
	mock.Mock
}

func (m *MockChannelRegistry) FindByID(ctx context.Context, id string) (*domain.Channel, error) {
	args := m.Called(ctx, id)
	if result := args.Get(0); result != nil {
		return result.(*domain.Channel), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChannelRegistry) FindActivePersonalByVendor(ctx context.Context, vendorID string) (*domain.Channel, error) {
	args := m.Called(ctx, vendorID)
	if result := args.Get(0); result != nil {
		return result.(*domain.Channel), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChannelRegistry) FindDefaultPrincipal(ctx context.Context) (*domain.Channel, error) {
	args := m.Called(ctx)
	if result := args.Get(0); result != nil {
		return result.(*domain.Channel), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChannelRegistry) FindByEvolutionInstance(ctx context.Context, instanceName string) (*domain.Channel, error) {
	args := m.Called(ctx, instanceName)
	if result := args.Get(0); result != nil {
		return result.(*domain.Channel), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChannelRegistry) List(ctx context.Context) ([]domain.Channel, error) {
	args := m.Called(ctx)
	if result := args.Get(0); result != nil {
		return result.([]domain.Channel), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChannelRegistry) Create(ctx context.Context, ch *domain.Channel) error {
	args := m.Called(ctx, ch)
	return args.Error(0)
}

// MockAtendimentoRepository mocks AtendimentoRepository interface
type MockAtendimentoRepository struct {
	mock.Mock
}

func (m *MockAtendimentoRepository) FindByID(ctx context.Context, id string) (*domain.Atendimento, error) {
	args := m.Called(ctx, id)
	if result := args.Get(0); result != nil {
		return result.(*domain.Atendimento), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockGatewayConfigRepository mocks GatewayConfigRepository interface
type MockGatewayConfigRepository struct {
	mock.Mock
}

func (m *MockGatewayConfigRepository) FindConnected(ctx context.Context) (*domain.GatewayConfig, error) {
	args := m.Called(ctx)
	if result := args.Get(0); result != nil {
		return result.(*domain.GatewayConfig), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGatewayConfigRepository) MarkDisconnected(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockVendorConfigRepository mocks VendorConfigRepository interface
type MockVendorConfigRepository struct {
	mock.Mock
}

func (m *MockVendorConfigRepository) FindEvolutionInstance(ctx context.Context, vendorID string) (string, error) {
	args := m.Called(ctx, vendorID)
	return args.String(0), args.Error(1)
}

// MockMetaTransport mocks MetaTransport interface
type MockMetaTransport struct {
	mock.Mock
}

func (m *MockMetaTransport) Send(ctx context.Context, req *domain.SendRequest, creds domain.MetaCredentials) (string, error) {
	args := m.Called(ctx, req, creds)
	return args.String(0), args.Error(1)
}

func (m *MockMetaTransport) VerifyPhoneNumber(ctx context.Context, accessToken, phoneNumberID string) (*domain.PhoneNumberInfo, error) {
	args := m.Called(ctx, accessToken, phoneNumberID)
	if result := args.Get(0); result != nil {
		return result.(*domain.PhoneNumberInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockEvolutionTransport mocks EvolutionTransport interface
type MockEvolutionTransport struct {
	mock.Mock
}

func (m *MockEvolutionTransport) Send(ctx context.Context, req *domain.SendRequest, instanceName string, gw *domain.GatewayConfig) (string, error) {
	args := m.Called(ctx, req, instanceName, gw)
	return args.String(0), args.Error(1)
}

func (m *MockEvolutionTransport) FetchFirstInstance(ctx context.Context, gw *domain.GatewayConfig) (string, error) {
	args := m.Called(ctx, gw)
	return args.String(0), args.Error(1)
}

// MockEventPublisher mocks EventPublisher interface
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishDelivery(ctx context.Context, evt *domain.DeliveryEvent) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

// ============================================================================
// Test Fixtures
// ============================================================================

func strPtr(s string) *string {
	return &s
}

func numberTypePtr(t domain.NumberType) *domain.NumberType {
	return &t
}

// metaChannel builds an active Meta channel fixture
func metaChannel(id string, numberType domain.NumberType, createdAt time.Time) *domain.Channel {
	return &domain.Channel{
		ID:            id,
		Name:          "Meta " + id,
		NumberType:    numberType,
		APIType:       domain.APITypeMeta,
		IsActive:      true,
		AccessToken:   "token-" + id,
		PhoneNumberID: strPtr("phone-" + id),
		CreatedAt:     createdAt,
	}
}

// evolutionChannel builds an active Evolution channel fixture
func evolutionChannel(id string, numberType domain.NumberType, instance string, createdAt time.Time) *domain.Channel {
	ch := &domain.Channel{
		ID:         id,
		Name:       "Evolution " + id,
		NumberType: numberType,
		APIType:    domain.APITypeEvolution,
		IsActive:   true,
		CreatedAt:  createdAt,
	}
	if instance != "" {
		ch.EvolutionInstanceName = &instance
	}
	return ch
}
