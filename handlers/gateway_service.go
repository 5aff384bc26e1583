package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/upb/llm-gateway/models"
	"github.com/upb/llm-gateway/services/gateway"
)

// GatewayService is the orchestrator surface the HTTP layer calls
type GatewayService interface {
	Chat(ctx context.Context, req *gateway.ChatRequest) (*gateway.ChatResponse, error)
	ValidateAPIKey(ctx context.Context, providerName, apiKey string) bool
	IsProviderSupported(name string) bool
	ListProviders(ctx context.Context) (*gateway.ProviderCatalog, error)
	GetAvailableModels(ctx context.Context, providerID uuid.UUID) ([]models.ModelDescriptor, error)
	StoreAPIKey(ctx context.Context, req *gateway.StoreAPIKeyRequest) (*gateway.StoredAPIKey, error)
	GetSessionMessages(ctx context.Context, sessionID uuid.UUID) (*gateway.SessionHistory, error)
	DeleteSession(ctx context.Context, sessionID uuid.UUID) error
	GetUsageStats(ctx context.Context, providerID uuid.UUID, days int) (*gateway.UsageSummary, error)
}
