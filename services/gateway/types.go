package gateway

import (
	"time"

	"github.com/google/uuid"
	"github.com/upb/llm-gateway/models"
	"github.com/upb/llm-gateway/services/providers"
)

// Soft failure identifiers reported on ChatResponse.SoftFailures
const (
	SoftFailureUsageStats   = "usage_stats"
	SoftFailureSessionTouch = "session_touch"
)

// ChatRequest is one chat turn from a client
type ChatRequest struct {
	// ProviderID selects the provider; the highest-priority active one is used when nil
	ProviderID *uuid.UUID `json:"providerId,omitempty"`
	ModelID    string     `json:"modelId,omitempty" validate:"omitempty,max=255"`

	Message      string `json:"message" validate:"required,max=100000"`
	SystemPrompt string `json:"systemPrompt,omitempty" validate:"max=20000"`

	// SessionID continues an existing conversation
	SessionID *uuid.UUID `json:"sessionId,omitempty"`

	// ConversationKey names a conversation across requests; the first call
	// with a new key creates its session
	ConversationKey *string `json:"conversationKey,omitempty" validate:"omitempty,min=1,max=255"`

	Settings *providers.Settings `json:"settings,omitempty"`

	// OwnerID is taken from the request context, never from the body
	OwnerID *uuid.UUID `json:"-"`
}

// ChatResponse is the result of a chat turn
type ChatResponse struct {
	SessionID uuid.UUID       `json:"sessionId"`
	Response  string          `json:"response"`
	Model     string          `json:"model"`
	Provider  string          `json:"provider"`
	Usage     providers.Usage `json:"usage"`

	// SoftFailures lists best-effort steps that failed without failing the call
	SoftFailures []string `json:"softFailures,omitempty"`
}

// StoreAPIKeyRequest stores a vendor credential for a provider
type StoreAPIKeyRequest struct {
	ProviderID uuid.UUID  `json:"-"`
	APIKey     string     `json:"apiKey" validate:"required,max=1024"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`

	// Validate checks the key against the vendor before storing it
	Validate bool `json:"validate"`

	OwnerID *uuid.UUID `json:"-"`
}

// StoredAPIKey describes a stored credential without its secret
type StoredAPIKey struct {
	ID          uuid.UUID  `json:"id"`
	ProviderID  uuid.UUID  `json:"providerId"`
	Fingerprint string     `json:"fingerprint"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	Replaced    int64      `json:"replaced"`
}

// SessionHistory is a session with its messages, oldest first
type SessionHistory struct {
	Session  *models.Session   `json:"session"`
	Messages []*models.Message `json:"messages"`
}

// UsageSummary aggregates a provider's daily usage rows
type UsageSummary struct {
	ProviderID       uuid.UUID           `json:"providerId"`
	Since            time.Time           `json:"since"`
	RequestCount     int64               `json:"requestCount"`
	PromptTokens     int64               `json:"promptTokens"`
	CompletionTokens int64               `json:"completionTokens"`
	TotalTokens      int64               `json:"totalTokens"`
	Days             []*models.UsageStat `json:"days"`
}

// ProviderCatalog lists supported adapter keys and the stored provider records
type ProviderCatalog struct {
	Supported  []string           `json:"supported"`
	Configured []*models.Provider `json:"configured"`
}
