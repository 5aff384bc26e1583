package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/llm-gateway/models"
	"github.com/upb/llm-gateway/services/gateway"
)

// MockGatewayService is a mock implementation of GatewayService
type MockGatewayService struct {
	mock.Mock
}

func (m *MockGatewayService) Chat(ctx context.Context, req *gateway.ChatRequest) (*gateway.ChatResponse, error) {
	args := m.Called(ctx, req)
	if resp := args.Get(0); resp != nil {
		return resp.(*gateway.ChatResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGatewayService) ValidateAPIKey(ctx context.Context, providerName, apiKey string) bool {
	return m.Called(ctx, providerName, apiKey).Bool(0)
}

func (m *MockGatewayService) IsProviderSupported(name string) bool {
	return m.Called(name).Bool(0)
}

func (m *MockGatewayService) ListProviders(ctx context.Context) (*gateway.ProviderCatalog, error) {
	args := m.Called(ctx)
	if c := args.Get(0); c != nil {
		return c.(*gateway.ProviderCatalog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGatewayService) GetAvailableModels(ctx context.Context, providerID uuid.UUID) ([]models.ModelDescriptor, error) {
	args := m.Called(ctx, providerID)
	if l := args.Get(0); l != nil {
		return l.([]models.ModelDescriptor), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGatewayService) StoreAPIKey(ctx context.Context, req *gateway.StoreAPIKeyRequest) (*gateway.StoredAPIKey, error) {
	args := m.Called(ctx, req)
	if k := args.Get(0); k != nil {
		return k.(*gateway.StoredAPIKey), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGatewayService) GetSessionMessages(ctx context.Context, sessionID uuid.UUID) (*gateway.SessionHistory, error) {
	args := m.Called(ctx, sessionID)
	if h := args.Get(0); h != nil {
		return h.(*gateway.SessionHistory), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGatewayService) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	return m.Called(ctx, sessionID).Error(0)
}

func (m *MockGatewayService) GetUsageStats(ctx context.Context, providerID uuid.UUID, days int) (*gateway.UsageSummary, error) {
	args := m.Called(ctx, providerID, days)
	if s := args.Get(0); s != nil {
		return s.(*gateway.UsageSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

// withURLParams attaches chi route params to the request
func withURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// decodeData unwraps the {"data": ...} envelope written by utils.WriteOK
func decodeData[T any](t *testing.T, body io.Reader) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.NewDecoder(body).Decode(&envelope))
	return envelope.Data
}
