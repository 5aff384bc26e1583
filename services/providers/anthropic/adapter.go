// Package anthropic adapts the Anthropic Messages API. This integration sends
// no system parameter: the system prompt travels inline in the user turn.
package anthropic

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/upb/llm-gateway/internal/redact"
	"github.com/upb/llm-gateway/models"
	"github.com/upb/llm-gateway/services/providers"
	"go.uber.org/zap"
)

const (
	Name           = "anthropic"
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-3-5-sonnet-latest"

	contextWindow = 200000
)

// Adapter talks to the Anthropic Messages API
type Adapter struct {
	config providers.ProviderConfig
	logger *zap.Logger
}

// New creates the Anthropic adapter
func New(cfg providers.ProviderConfig, logger *zap.Logger) providers.Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Adapter{config: cfg, logger: logger}
}

func (a *Adapter) Name() string         { return Name }
func (a *Adapter) DefaultModel() string { return DefaultModel }

// NewClient builds an SDK client for apiKey without touching the network
func (a *Adapter) NewClient(apiKey string) anthropic.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(a.config.BaseURL),
		option.WithMaxRetries(a.config.MaxRetries),
	}
	if a.config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(a.config.Timeout))
	}
	for key, value := range a.config.Headers {
		opts = append(opts, option.WithHeader(key, value))
	}
	return anthropic.NewClient(opts...)
}

// InlineSystemPrompt embeds systemPrompt ahead of message as a tagged block
func InlineSystemPrompt(systemPrompt, message string) string {
	if systemPrompt == "" {
		return message
	}
	return "<system>" + systemPrompt + "</system>\n\n" + message
}

// ComposeMessages returns the user-led history followed by one user turn carrying the
// inlined system prompt
func (a *Adapter) ComposeMessages(systemPrompt, message string, history []providers.Message) []providers.Message {
	out := providers.ConversationTurns(history)
	return append(out, providers.Message{
		Role:    providers.RoleUser,
		Content: InlineSystemPrompt(systemPrompt, message),
	})
}

// ValidateAPIKey sends a one-token message
func (a *Adapter) ValidateAPIKey(ctx context.Context, apiKey string) bool {
	client := a.NewClient(apiKey)
	_, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(DefaultModel),
		MaxTokens: 1,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock("ping"))},
	})
	if err != nil {
		a.logger.Warn("API key validation failed", zap.Int("status", statusCode(err)), redact.Error(err))
		return false
	}
	return true
}

// GetAvailableModels lists the live Anthropic catalog
func (a *Adapter) GetAvailableModels(ctx context.Context, apiKey string) ([]models.ModelDescriptor, error) {
	client := a.NewClient(apiKey)
	page, err := client.Models.List(ctx, anthropic.ModelListParams{})
	if err != nil {
		return nil, a.fail(providers.OpListModels, err)
	}

	out := make([]models.ModelDescriptor, 0, len(page.Data))
	for _, m := range page.Data {
		name := m.DisplayName
		if name == "" {
			name = m.ID
		}
		out = append(out, models.ModelDescriptor{
			ID:            m.ID,
			Name:          name,
			Capabilities:  []string{"chat"},
			ContextWindow: contextWindow,
		})
	}
	return out, nil
}

// Chat sends one Messages request. top_p is only sent when the caller set it.
func (a *Adapter) Chat(ctx context.Context, req *providers.ChatRequest, apiKey string) (*providers.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = DefaultModel
	}
	settings := req.Settings.Resolve()
	messages := a.ComposeMessages(req.SystemPrompt, req.Message, req.History)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(settings.MaxTokens),
		Messages:    toParams(messages),
		Temperature: anthropic.Float(settings.Temperature),
	}
	if req.Settings.TopP != nil {
		params.TopP = anthropic.Float(settings.TopP)
	}

	client := a.NewClient(apiKey)
	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return nil, a.fail(providers.OpChat, err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	if content.Len() == 0 {
		return nil, a.fail(providers.OpChat, providers.ErrEmptyResponse)
	}

	text := content.String()
	usage := providers.NewUsage(int(resp.Usage.InputTokens), int(resp.Usage.OutputTokens))
	if usage.TotalTokens == 0 {
		usage = providers.EstimateUsage(messages, text)
	}

	return &providers.ChatResponse{
		Content:  text,
		Model:    model,
		Provider: Name,
		Usage:    usage,
	}, nil
}

func (a *Adapter) fail(op string, err error) error {
	status := statusCode(err)
	a.logger.Error("vendor request failed",
		zap.String("operation", op),
		zap.Int("status", status),
		redact.Error(err),
	)
	return providers.NewVendorError(Name, op, status, err)
}

func toParams(messages []providers.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		if m.Role == providers.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
			continue
		}
		out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
	}
	return out
}

func statusCode(err error) int {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
