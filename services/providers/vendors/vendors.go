// Package vendors is the closed table of supported provider keys. It sits
// apart from package providers so the vendor packages can import providers.
package vendors

import (
	"github.com/upb/llm-gateway/config"
	"github.com/upb/llm-gateway/services/providers"
	"github.com/upb/llm-gateway/services/providers/anthropic"
	"github.com/upb/llm-gateway/services/providers/google"
	"github.com/upb/llm-gateway/services/providers/grok"
	"github.com/upb/llm-gateway/services/providers/openai"
	"github.com/upb/llm-gateway/services/providers/openrouter"
	"go.uber.org/zap"
)

// Constructors maps each canonical key to its adapter constructor
func Constructors() map[string]providers.Constructor {
	return map[string]providers.Constructor{
		openai.Name:     openai.New,
		anthropic.Name:  anthropic.New,
		google.Name:     google.New,
		grok.Name:       grok.New,
		openrouter.Name: openrouter.New,
	}
}

// DefaultConfigs turns the environment transport settings into per-key defaults
func DefaultConfigs(cfg config.ProvidersConfig) map[string]providers.ProviderConfig {
	return map[string]providers.ProviderConfig{
		openai.Name:    fromVendor(cfg.OpenAI),
		anthropic.Name: fromVendor(cfg.Anthropic),
		google.Name:    fromVendor(cfg.Google),
		grok.Name:      fromVendor(cfg.Grok),
		openrouter.Name: func() providers.ProviderConfig {
			pc := fromVendor(cfg.OpenRouter)
			pc.Headers = openrouter.Headers(cfg.OpenRouter.Referer, cfg.OpenRouter.Title)
			return pc
		}(),
	}
}

// NewFactory builds the adapter factory over every supported vendor
func NewFactory(cfg config.ProvidersConfig, logger *zap.Logger) *providers.Factory {
	return providers.NewFactory(Constructors(), DefaultConfigs(cfg), logger)
}

func fromVendor(v config.VendorConfig) providers.ProviderConfig {
	return providers.ProviderConfig{
		BaseURL:    v.BaseURL,
		Timeout:    v.Timeout,
		MaxRetries: v.MaxRetries,
	}
}
