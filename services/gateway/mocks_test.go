package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/upb/llm-gateway/models"
	"github.com/upb/llm-gateway/repositories"
	"github.com/upb/llm-gateway/services/providers"
	"go.uber.org/zap"
)

type MockProviderRepository struct {
	mock.Mock
}

func (m *MockProviderRepository) Upsert(ctx context.Context, provider *models.Provider) error {
	return m.Called(ctx, provider).Error(0)
}

func (m *MockProviderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Provider, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*models.Provider), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProviderRepository) GetByName(ctx context.Context, name string) (*models.Provider, error) {
	args := m.Called(ctx, name)
	if p := args.Get(0); p != nil {
		return p.(*models.Provider), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProviderRepository) GetDefault(ctx context.Context) (*models.Provider, error) {
	args := m.Called(ctx)
	if p := args.Get(0); p != nil {
		return p.(*models.Provider), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProviderRepository) List(ctx context.Context) ([]*models.Provider, error) {
	args := m.Called(ctx)
	if p := args.Get(0); p != nil {
		return p.([]*models.Provider), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProviderRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return m.Called(ctx, id, active).Error(0)
}

type MockAPIKeyRepository struct {
	mock.Mock
}

func (m *MockAPIKeyRepository) Create(ctx context.Context, key *models.APIKey) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockAPIKeyRepository) GetActive(ctx context.Context, providerID uuid.UUID, now time.Time) (*models.APIKey, error) {
	args := m.Called(ctx, providerID, now)
	if k := args.Get(0); k != nil {
		return k.(*models.APIKey), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAPIKeyRepository) ExistsByHash(ctx context.Context, providerID uuid.UUID, keyHash string) (bool, error) {
	args := m.Called(ctx, providerID, keyHash)
	return args.Bool(0), args.Error(1)
}

func (m *MockAPIKeyRepository) DeactivateAll(ctx context.Context, providerID uuid.UUID, ownerID *uuid.UUID) (int64, error) {
	args := m.Called(ctx, providerID, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *models.Session) error {
	return m.Called(ctx, session).Error(0)
}

func (m *MockSessionRepository) GetOrCreateByKey(ctx context.Context, session *models.Session) (*models.Session, bool, error) {
	args := m.Called(ctx, session)
	if s := args.Get(0); s != nil {
		return s.(*models.Session), args.Bool(1), args.Error(2)
	}
	return nil, args.Bool(1), args.Error(2)
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	args := m.Called(ctx, id)
	if s := args.Get(0); s != nil {
		return s.(*models.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessionRepository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *MockSessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, message *models.Message) error {
	return m.Called(ctx, message).Error(0)
}

func (m *MockMessageRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.Message, error) {
	args := m.Called(ctx, sessionID)
	if l := args.Get(0); l != nil {
		return l.([]*models.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMessageRepository) ListRecent(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.Message, error) {
	args := m.Called(ctx, sessionID, limit)
	if l := args.Get(0); l != nil {
		return l.([]*models.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMessageRepository) DeleteBySession(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(int64), args.Error(1)
}

type MockUsageRepository struct {
	mock.Mock
}

func (m *MockUsageRepository) Increment(ctx context.Context, delta *models.UsageStat) error {
	return m.Called(ctx, delta).Error(0)
}

func (m *MockUsageRepository) ListByProvider(ctx context.Context, providerID uuid.UUID, since time.Time) ([]*models.UsageStat, error) {
	args := m.Called(ctx, providerID, since)
	if l := args.Get(0); l != nil {
		return l.([]*models.UsageStat), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockTransactionManager struct {
	mock.Mock
}

func (m *MockTransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	args := m.Called(ctx)
	if tx := args.Get(0); tx != nil {
		return tx.(repositories.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockTransaction struct {
	mock.Mock
	ctx context.Context
}

func (m *MockTransaction) Commit() error {
	return m.Called().Error(0)
}

func (m *MockTransaction) Rollback() error {
	return m.Called().Error(0)
}

func (m *MockTransaction) Context() context.Context {
	return m.ctx
}

// fakeAdapter answers "echo: <message>" and records what it was sent
type fakeAdapter struct {
	mu       sync.Mutex
	requests []*providers.ChatRequest
	keys     []string
	models   []models.ModelDescriptor
	chatErr  error
	modelErr error
	valid    bool
	delay    time.Duration
}

func (a *fakeAdapter) Name() string         { return "openai" }
func (a *fakeAdapter) DefaultModel() string { return "fake-default" }

func (a *fakeAdapter) ValidateAPIKey(_ context.Context, apiKey string) bool {
	a.mu.Lock()
	a.keys = append(a.keys, apiKey)
	a.mu.Unlock()
	return a.valid
}

func (a *fakeAdapter) GetAvailableModels(_ context.Context, apiKey string) ([]models.ModelDescriptor, error) {
	a.mu.Lock()
	a.keys = append(a.keys, apiKey)
	a.mu.Unlock()
	return a.models, a.modelErr
}

func (a *fakeAdapter) Chat(ctx context.Context, req *providers.ChatRequest, apiKey string) (*providers.ChatResponse, error) {
	a.mu.Lock()
	a.requests = append(a.requests, req)
	a.keys = append(a.keys, apiKey)
	a.mu.Unlock()

	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if a.chatErr != nil {
		return nil, a.chatErr
	}
	return &providers.ChatResponse{
		Content:  "echo: " + req.Message,
		Model:    req.Model,
		Provider: a.Name(),
		Usage:    providers.NewUsage(10, 5),
	}, nil
}

func (a *fakeAdapter) ComposeMessages(systemPrompt, message string, history []providers.Message) []providers.Message {
	return providers.ComposeWithSystemMessage(systemPrompt, message, history)
}

func (a *fakeAdapter) lastRequest() *providers.ChatRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.requests) == 0 {
		return nil
	}
	return a.requests[len(a.requests)-1]
}

// newFakeFactory registers adapter under "openai" and records the configs it is built with
func newFakeFactory(adapter *fakeAdapter, configs *[]providers.ProviderConfig) *providers.Factory {
	return providers.NewFactory(map[string]providers.Constructor{
		"openai": func(cfg providers.ProviderConfig, _ *zap.Logger) providers.Adapter {
			if configs != nil {
				*configs = append(*configs, cfg)
			}
			return adapter
		},
	}, nil, zap.NewNop())
}
