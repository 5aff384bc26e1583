// Package openrouter adapts OpenRouter's OpenAI-compatible API
package openrouter

import (
	"github.com/upb/llm-gateway/services/providers"
	"github.com/upb/llm-gateway/services/providers/openai"
	"go.uber.org/zap"
)

const (
	Name           = "openrouter"
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "openai/gpt-3.5-turbo"

	// Attribution headers OpenRouter uses for app rankings
	RefererHeader = "HTTP-Referer"
	TitleHeader   = "X-Title"
)

// Headers builds the attribution headers, skipping empty values
func Headers(referer, title string) map[string]string {
	headers := make(map[string]string, 2)
	if referer != "" {
		headers[RefererHeader] = referer
	}
	if title != "" {
		headers[TitleHeader] = title
	}
	return headers
}

// New creates the OpenRouter adapter
func New(cfg providers.ProviderConfig, logger *zap.Logger) providers.Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return openai.NewCompatible(openai.Options{
		Name:         Name,
		DefaultModel: DefaultModel,
		Config:       cfg,
	}, logger)
}
