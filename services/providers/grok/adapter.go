// Package grok adapts xAI's OpenAI-compatible API. Every request forces live
// web search on.
package grok

import (
	"github.com/openai/openai-go/option"
	"github.com/upb/llm-gateway/models"
	"github.com/upb/llm-gateway/services/providers"
	"github.com/upb/llm-gateway/services/providers/openai"
	"go.uber.org/zap"
)

const (
	Name           = "grok"
	DefaultBaseURL = "https://api.x.ai/v1"
	DefaultModel   = "grok-2-latest"
)

// Models is the static catalog; xAI's listing is not used
var Models = []models.ModelDescriptor{
	{ID: "grok-2-latest", Name: "Grok 2", Capabilities: []string{"chat", "search"}, ContextWindow: 131072},
	{ID: "grok-2-vision-latest", Name: "Grok 2 Vision", Capabilities: []string{"chat", "vision"}, ContextWindow: 32768},
	{ID: "grok-beta", Name: "Grok Beta", Capabilities: []string{"chat"}, ContextWindow: 131072},
}

// SearchParameters is the request field that turns on live search
var SearchParameters = map[string]string{"mode": "on"}

// New creates the Grok adapter
func New(cfg providers.ProviderConfig, logger *zap.Logger) providers.Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return openai.NewCompatible(openai.Options{
		Name:         Name,
		DefaultModel: DefaultModel,
		Config:       cfg,
		RequestOptions: []option.RequestOption{
			option.WithJSONSet("search_parameters", SearchParameters),
		},
		StaticModels:           Models,
		ValidateWithCompletion: true,
	}, logger)
}
