package providers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/upb/llm-gateway/models"
	"go.uber.org/zap"
)

// stubAdapter is a test implementation of the Adapter interface
type stubAdapter struct {
	name   string
	config ProviderConfig
}

func newStubConstructor(name string, built *int) Constructor {
	return func(cfg ProviderConfig, _ *zap.Logger) Adapter {
		if built != nil {
			*built++
		}
		return &stubAdapter{name: name, config: cfg}
	}
}

func (s *stubAdapter) Name() string         { return s.name }
func (s *stubAdapter) DefaultModel() string { return s.name + "-default" }

func (s *stubAdapter) ValidateAPIKey(ctx context.Context, apiKey string) bool {
	return apiKey != ""
}

func (s *stubAdapter) GetAvailableModels(ctx context.Context, apiKey string) ([]models.ModelDescriptor, error) {
	return []models.ModelDescriptor{{ID: s.DefaultModel(), Name: s.DefaultModel(), ContextWindow: 4096}}, nil
}

func (s *stubAdapter) Chat(ctx context.Context, req *ChatRequest, apiKey string) (*ChatResponse, error) {
	msgs := s.ComposeMessages(req.SystemPrompt, req.Message, req.History)
	reply := "echo: " + req.Message
	return &ChatResponse{
		Content:  reply,
		Model:    s.DefaultModel(),
		Provider: s.name,
		Usage:    EstimateUsage(msgs, reply),
	}, nil
}

func (s *stubAdapter) ComposeMessages(systemPrompt, message string, history []Message) []Message {
	return ComposeWithSystemMessage(systemPrompt, message, history)
}

func TestComposeWithSystemMessage(t *testing.T) {
	history := []Message{
		{Role: RoleUser, Content: "earlier"},
		{Role: RoleAssistant, Content: "reply"},
	}

	t.Run("system prompt leads", func(t *testing.T) {
		got := ComposeWithSystemMessage("be brief", "hello", history)
		assert.Equal(t, []Message{
			{Role: RoleSystem, Content: "be brief"},
			{Role: RoleUser, Content: "earlier"},
			{Role: RoleAssistant, Content: "reply"},
			{Role: RoleUser, Content: "hello"},
		}, got)
	})

	t.Run("no system prompt", func(t *testing.T) {
		got := ComposeWithSystemMessage("", "hello", nil)
		assert.Equal(t, []Message{{Role: RoleUser, Content: "hello"}}, got)
	})
}

func TestConversationTurns(t *testing.T) {
	tests := []struct {
		name    string
		history []Message
		want    []Message
	}{
		{"empty", nil, []Message{}},
		{
			"already aligned",
			[]Message{{Role: RoleUser, Content: "u1"}, {Role: RoleAssistant, Content: "a1"}},
			[]Message{{Role: RoleUser, Content: "u1"}, {Role: RoleAssistant, Content: "a1"}},
		},
		{
			"leading assistant turns dropped",
			[]Message{{Role: RoleAssistant, Content: "a0"}, {Role: RoleAssistant, Content: "a1"}, {Role: RoleUser, Content: "u2"}},
			[]Message{{Role: RoleUser, Content: "u2"}},
		},
		{
			"system entries dropped",
			[]Message{{Role: RoleSystem, Content: "s"}, {Role: RoleUser, Content: "u1"}, {Role: RoleSystem, Content: "s"}},
			[]Message{{Role: RoleUser, Content: "u1"}},
		},
		{"only assistant", []Message{{Role: RoleAssistant, Content: "a1"}}, []Message{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConversationTurns(tt.history))
		})
	}
}

func TestProviderConfig_Merge(t *testing.T) {
	base := ProviderConfig{
		BaseURL:    "https://api.example.com",
		Timeout:    30 * time.Second,
		MaxRetries: 2,
		Headers:    map[string]string{"X-Title": "gateway"},
	}

	merged := base.Merge(ProviderConfig{
		BaseURL: "https://proxy.example.com",
		Headers: map[string]string{"HTTP-Referer": "https://app"},
	})

	assert.Equal(t, "https://proxy.example.com", merged.BaseURL)
	assert.Equal(t, 30*time.Second, merged.Timeout)
	assert.Equal(t, 2, merged.MaxRetries)
	assert.Equal(t, map[string]string{"X-Title": "gateway", "HTTP-Referer": "https://app"}, merged.Headers)
	assert.Len(t, base.Headers, 1, "merge must not mutate the receiver")

	assert.True(t, base.Equal(base.Merge(ProviderConfig{})))
	assert.False(t, base.Equal(merged))
}

func TestVendorError(t *testing.T) {
	cause := errors.New("401 invalid x-api-key")

	tests := []struct {
		name    string
		err     *VendorError
		wantMsg string
	}{
		{"chat", NewVendorError("anthropic", OpChat, 401, cause), "chat request to provider anthropic failed"},
		{"validate", NewVendorError("grok", OpValidate, 0, cause), "validate request to provider grok failed"},
		{"list models", NewVendorError("google", OpListModels, 500, cause), "failed to list models for provider google"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
			assert.NotContains(t, tt.err.Error(), "x-api-key")
			assert.ErrorIs(t, tt.err, cause)
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewVendorError("openai", OpChat, 429, nil)))
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", NewVendorError("openai", OpChat, 503, nil))))
	assert.False(t, IsRetryable(NewVendorError("openai", OpChat, 401, nil)))
	assert.False(t, IsRetryable(errors.New("plain")))
}
