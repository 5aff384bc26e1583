// Package openai implements the adapter for OpenAI and for vendors that speak
// the OpenAI chat-completions protocol (Grok, OpenRouter).
package openai

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/upb/llm-gateway/internal/redact"
	"github.com/upb/llm-gateway/models"
	"github.com/upb/llm-gateway/services/providers"
	"go.uber.org/zap"
)

const (
	// Name is the canonical provider key
	Name           = "openai"
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-3.5-turbo"

	defaultContextWindow = 4096
)

var contextWindows = map[string]int{
	"gpt-4":         8192,
	"gpt-4-turbo":   128000,
	"gpt-4o":        128000,
	"gpt-4o-mini":   128000,
	"gpt-3.5-turbo": 16385,
}

// ContextWindow returns the context size for a known OpenAI model, 4096 otherwise
func ContextWindow(model string) int {
	if size, ok := contextWindows[model]; ok {
		return size
	}
	return defaultContextWindow
}

// Options configures an OpenAI-compatible adapter
type Options struct {
	Name         string
	DefaultModel string
	Config       providers.ProviderConfig

	// RequestOptions are appended to every client, after the base options
	RequestOptions []option.RequestOption

	// StaticModels is returned by GetAvailableModels instead of a live listing
	StaticModels []models.ModelDescriptor

	// ModelFilter drops live catalog entries it returns false for
	ModelFilter func(id string) bool

	// ContextWindow sizes live catalog entries
	ContextWindow func(id string) int

	// ValidateWithCompletion checks keys with a one-token completion instead of a models listing
	ValidateWithCompletion bool
}

// Adapter talks to an OpenAI-compatible chat-completions API
type Adapter struct {
	opts   Options
	logger *zap.Logger
}

// New creates the OpenAI adapter. Its signature matches providers.Constructor.
func New(cfg providers.ProviderConfig, logger *zap.Logger) providers.Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return NewCompatible(Options{
		Name:         Name,
		DefaultModel: DefaultModel,
		Config:       cfg,
		ModelFilter: func(id string) bool {
			return strings.Contains(id, "gpt")
		},
		ContextWindow: ContextWindow,
	}, logger)
}

// NewCompatible creates an adapter for any OpenAI-protocol vendor
func NewCompatible(opts Options, logger *zap.Logger) *Adapter {
	if opts.ContextWindow == nil {
		opts.ContextWindow = func(string) int { return defaultContextWindow }
	}
	return &Adapter{opts: opts, logger: logger}
}

// Name returns the canonical provider key
func (a *Adapter) Name() string {
	return a.opts.Name
}

// DefaultModel returns the model used when a request names none
func (a *Adapter) DefaultModel() string {
	return a.opts.DefaultModel
}

// BaseURL returns the endpoint clients are bound to
func (a *Adapter) BaseURL() string {
	return a.opts.Config.BaseURL
}

// NewClient builds an SDK client bound to the adapter's endpoint and apiKey.
// No network call is made.
func (a *Adapter) NewClient(apiKey string) openai.Client {
	cfg := a.opts.Config
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	for key, value := range cfg.Headers {
		opts = append(opts, option.WithHeader(key, value))
	}
	opts = append(opts, a.opts.RequestOptions...)
	return openai.NewClient(opts...)
}

// ComposeMessages puts the system prompt in a leading system message
func (a *Adapter) ComposeMessages(systemPrompt, message string, history []providers.Message) []providers.Message {
	return providers.ComposeWithSystemMessage(systemPrompt, message, history)
}

// ValidateAPIKey reports whether apiKey is accepted by the vendor
func (a *Adapter) ValidateAPIKey(ctx context.Context, apiKey string) bool {
	client := a.NewClient(apiKey)

	var err error
	if a.opts.ValidateWithCompletion {
		_, err = client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:     a.opts.DefaultModel,
			Messages:  []openai.ChatCompletionMessageParamUnion{openai.UserMessage("ping")},
			MaxTokens: openai.Int(1),
		})
	} else {
		_, err = client.Models.List(ctx)
	}
	if err != nil {
		a.logger.Warn("API key validation failed",
			zap.Int("status", statusCode(err)),
			redact.Error(err),
		)
		return false
	}
	return true
}

// GetAvailableModels lists the vendor catalog, or the static list when configured
func (a *Adapter) GetAvailableModels(ctx context.Context, apiKey string) ([]models.ModelDescriptor, error) {
	if a.opts.StaticModels != nil {
		out := make([]models.ModelDescriptor, len(a.opts.StaticModels))
		copy(out, a.opts.StaticModels)
		return out, nil
	}

	client := a.NewClient(apiKey)
	page, err := client.Models.List(ctx)
	if err != nil {
		return nil, a.fail(providers.OpListModels, err)
	}

	out := make([]models.ModelDescriptor, 0, len(page.Data))
	for _, m := range page.Data {
		if a.opts.ModelFilter != nil && !a.opts.ModelFilter(m.ID) {
			continue
		}
		out = append(out, models.ModelDescriptor{
			ID:            m.ID,
			Name:          m.ID,
			Capabilities:  []string{"chat"},
			ContextWindow: a.opts.ContextWindow(m.ID),
		})
	}
	return out, nil
}

// Chat sends one completion request
func (a *Adapter) Chat(ctx context.Context, req *providers.ChatRequest, apiKey string) (*providers.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = a.opts.DefaultModel
	}
	settings := req.Settings.Resolve()
	messages := a.ComposeMessages(req.SystemPrompt, req.Message, req.History)

	params := openai.ChatCompletionNewParams{
		Model:       model,
		Messages:    toParams(messages),
		MaxTokens:   openai.Int(int64(settings.MaxTokens)),
		Temperature: openai.Float(settings.Temperature),
		TopP:        openai.Float(settings.TopP),
	}
	if settings.FrequencyPenalty != nil {
		params.FrequencyPenalty = openai.Float(*settings.FrequencyPenalty)
	}
	if settings.PresencePenalty != nil {
		params.PresencePenalty = openai.Float(*settings.PresencePenalty)
	}

	client := a.NewClient(apiKey)
	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, a.fail(providers.OpChat, err)
	}
	if len(resp.Choices) == 0 {
		return nil, a.fail(providers.OpChat, providers.ErrEmptyResponse)
	}

	content := resp.Choices[0].Message.Content
	usage := providers.NewUsage(int(resp.Usage.PromptTokens), int(resp.Usage.CompletionTokens))
	if resp.Usage.TotalTokens == 0 {
		usage = providers.EstimateUsage(messages, content)
	}

	return &providers.ChatResponse{
		Content:  content,
		Model:    model,
		Provider: a.opts.Name,
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
	return providers.NewVendorError(a.opts.Name, op, status, err)
}

func toParams(messages []providers.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case providers.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case providers.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func statusCode(err error) int {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
