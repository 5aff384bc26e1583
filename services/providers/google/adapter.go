// Package google adapts the Gemini API. Gemini gets the system prompt as two
// priming turns rather than a system instruction.
package google

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/upb/llm-gateway/internal/redact"
	"github.com/upb/llm-gateway/models"
	"github.com/upb/llm-gateway/services/providers"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	Name           = "google"
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-1.5-flash"

	// Acknowledgement is the synthetic model turn that follows the system prompt
	Acknowledgement = "Understood. I will follow these instructions."
	systemPrefix    = "System: "

	roleUser  = "user"
	roleModel = "model"

	generateAction = "generateContent"
	modelPrefix    = "models/"

	defaultRetryDelay = 250 * time.Millisecond
)

// Adapter talks to the Gemini API through the genai SDK. genai has no retry
// option, so MaxRetries is applied by the adapter itself.
type Adapter struct {
	config     providers.ProviderConfig
	retryDelay time.Duration
	logger     *zap.Logger
}

// New creates the Google adapter
func New(cfg providers.ProviderConfig, logger *zap.Logger) providers.Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Adapter{config: cfg, retryDelay: defaultRetryDelay, logger: logger}
}

func (a *Adapter) Name() string         { return Name }
func (a *Adapter) DefaultModel() string { return DefaultModel }

// NewClient builds a Gemini API client for apiKey. genai only fails here on
// invalid configuration; no request is sent.
func (a *Adapter) NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	httpOptions := genai.HTTPOptions{BaseURL: a.config.BaseURL}
	if len(a.config.Headers) > 0 {
		httpOptions.Headers = make(http.Header, len(a.config.Headers))
		for key, value := range a.config.Headers {
			httpOptions.Headers.Set(key, value)
		}
	}

	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: httpOptions,
		HTTPClient:  &http.Client{Timeout: a.config.Timeout},
	})
}

// ComposeMessages prepends the priming pair when a system prompt is set
func (a *Adapter) ComposeMessages(systemPrompt, message string, history []providers.Message) []providers.Message {
	out := make([]providers.Message, 0, len(history)+3)
	if systemPrompt != "" {
		out = append(out,
			providers.Message{Role: providers.RoleUser, Content: systemPrefix + systemPrompt},
			providers.Message{Role: providers.RoleAssistant, Content: Acknowledgement},
		)
	}
	out = append(out, providers.ConversationTurns(history)...)
	return append(out, providers.Message{Role: providers.RoleUser, Content: message})
}

// ValidateAPIKey runs a trivial generation against the default model
func (a *Adapter) ValidateAPIKey(ctx context.Context, apiKey string) bool {
	client, err := a.NewClient(ctx, apiKey)
	if err == nil {
		_, err = client.Models.GenerateContent(ctx, DefaultModel,
			[]*genai.Content{{Role: roleUser, Parts: []*genai.Part{{Text: "ping"}}}},
			&genai.GenerateContentConfig{MaxOutputTokens: 1},
		)
	}
	if err != nil {
		a.logger.Warn("API key validation failed", zap.Int("status", statusCode(err)), redact.Error(err))
		return false
	}
	return true
}

// GetAvailableModels lists models that support generateContent
func (a *Adapter) GetAvailableModels(ctx context.Context, apiKey string) ([]models.ModelDescriptor, error) {
	client, err := a.NewClient(ctx, apiKey)
	if err != nil {
		return nil, a.fail(providers.OpListModels, err)
	}
	var page genai.Page[genai.Model]
	err = a.withRetry(ctx, providers.OpListModels, func() error {
		var callErr error
		page, callErr = client.Models.List(ctx, &genai.ListModelsConfig{})
		return callErr
	})
	if err != nil {
		return nil, a.fail(providers.OpListModels, err)
	}

	out := make([]models.ModelDescriptor, 0, len(page.Items))
	for _, m := range page.Items {
		if m == nil || !slices.Contains(m.SupportedActions, generateAction) {
			continue
		}
		id := strings.TrimPrefix(m.Name, modelPrefix)
		name := m.DisplayName
		if name == "" {
			name = id
		}
		out = append(out, models.ModelDescriptor{
			ID:            id,
			Name:          name,
			Capabilities:  []string{"chat"},
			ContextWindow: int(m.InputTokenLimit),
		})
	}
	return out, nil
}

// Chat sends one generateContent request
func (a *Adapter) Chat(ctx context.Context, req *providers.ChatRequest, apiKey string) (*providers.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = DefaultModel
	}
	settings := req.Settings.Resolve()
	messages := a.ComposeMessages(req.SystemPrompt, req.Message, req.History)

	config := &genai.GenerateContentConfig{
		Temperature:     ptr(float32(settings.Temperature)),
		TopP:            ptr(float32(settings.TopP)),
		MaxOutputTokens: int32(settings.MaxTokens),
	}
	if settings.FrequencyPenalty != nil {
		config.FrequencyPenalty = ptr(float32(*settings.FrequencyPenalty))
	}
	if settings.PresencePenalty != nil {
		config.PresencePenalty = ptr(float32(*settings.PresencePenalty))
	}

	client, err := a.NewClient(ctx, apiKey)
	if err != nil {
		return nil, a.fail(providers.OpChat, err)
	}
	var resp *genai.GenerateContentResponse
	err = a.withRetry(ctx, providers.OpChat, func() error {
		var callErr error
		resp, callErr = client.Models.GenerateContent(ctx, model, toContents(messages), config)
		return callErr
	})
	if err != nil {
		return nil, a.fail(providers.OpChat, err)
	}

	var text strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part != nil {
				text.WriteString(part.Text)
			}
		}
	}
	if text.Len() == 0 {
		return nil, a.fail(providers.OpChat, providers.ErrEmptyResponse)
	}

	content := text.String()
	var usage providers.Usage
	if resp.UsageMetadata != nil {
		usage = providers.NewUsage(int(resp.UsageMetadata.PromptTokenCount), int(resp.UsageMetadata.CandidatesTokenCount))
	}
	if usage.TotalTokens == 0 {
		usage = providers.EstimateUsage(messages, content)
	}

	return &providers.ChatResponse{
		Content:  content,
		Model:    model,
		Provider: Name,
		Usage:    usage,
	}, nil
}

// withRetry repeats call up to MaxRetries times while Gemini answers 429 or
// 5xx, doubling the delay after each attempt
func (a *Adapter) withRetry(ctx context.Context, op string, call func() error) error {
	delay := a.retryDelay
	for attempt := 0; ; attempt++ {
		err := call()
		if err == nil || attempt >= a.config.MaxRetries || !providers.IsRetryableStatus(statusCode(err)) {
			return err
		}
		a.logger.Debug("retrying vendor request",
			zap.String("operation", op),
			zap.Int("attempt", attempt+1),
			zap.Int("status", statusCode(err)))
		select {
		case <-ctx.Done():
			return err
		case <-time.After(delay):
		}
		delay *= 2
	}
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

func toContents(messages []providers.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := roleUser
		if m.Role == providers.RoleAssistant {
			role = roleModel
		}
		out = append(out, &genai.Content{Role: role, Parts: []*genai.Part{{Text: m.Content}}})
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}

func statusCode(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}
