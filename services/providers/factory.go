package providers

import (
	"sort"
	"strings"
	"sync"

	"github.com/upb/llm-gateway/services"
	"go.uber.org/zap"
)

// Constructor builds an adapter from its resolved configuration
type Constructor func(cfg ProviderConfig, logger *zap.Logger) Adapter

// Factory maps canonical provider keys to constructed, cached adapters.
// The key set is fixed at construction. Configuration is fixed at first
// use: once a key has an instance, later configs are ignored with a warning.
type Factory struct {
	mu           sync.Mutex
	constructors map[string]Constructor
	defaults     map[string]ProviderConfig
	instances    map[string]*cachedAdapter
	logger       *zap.Logger
}

type cachedAdapter struct {
	adapter Adapter
	config  ProviderConfig
}

// NewFactory creates a factory over the given constructor table. defaults
// supplies the base config per key; both maps are copied.
func NewFactory(constructors map[string]Constructor, defaults map[string]ProviderConfig, logger *zap.Logger) *Factory {
	f := &Factory{
		constructors: make(map[string]Constructor, len(constructors)),
		defaults:     make(map[string]ProviderConfig, len(defaults)),
		instances:    make(map[string]*cachedAdapter),
		logger:       logger,
	}
	for name, ctor := range constructors {
		f.constructors[normalizeKey(name)] = ctor
	}
	for name, cfg := range defaults {
		f.defaults[normalizeKey(name)] = cfg
	}
	return f
}

// CreateProvider returns the adapter for name, constructing it on first use.
// cfg may be nil; when set, its non-zero fields override the default config
// for the first construction only.
func (f *Factory) CreateProvider(name string, cfg *ProviderConfig) (Adapter, error) {
	key := normalizeKey(name)
	ctor, ok := f.constructors[key]
	if !ok {
		return nil, services.NewUnsupportedProviderError(name)
	}

	resolved := f.defaults[key]
	if cfg != nil {
		resolved = resolved.Merge(*cfg)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if cached, exists := f.instances[key]; exists {
		if cfg != nil && !cached.config.Equal(resolved) {
			f.logger.Warn("provider already constructed, ignoring new configuration",
				zap.String("provider", key),
				zap.String("cached_base_url", cached.config.BaseURL),
				zap.String("requested_base_url", resolved.BaseURL),
			)
		}
		return cached.adapter, nil
	}

	adapter := ctor(resolved, f.logger.With(zap.String("provider", key)))
	f.instances[key] = &cachedAdapter{adapter: adapter, config: resolved}

	f.logger.Info("provider adapter created",
		zap.String("provider", key),
		zap.String("base_url", resolved.BaseURL),
	)
	return adapter, nil
}

// IsProviderSupported reports whether name is in the constructor table
func (f *Factory) IsProviderSupported(name string) bool {
	_, ok := f.constructors[normalizeKey(name)]
	return ok
}

// SupportedProviders returns the supported keys in sorted order
func (f *Factory) SupportedProviders() []string {
	names := make([]string, 0, len(f.constructors))
	for name := range f.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CachedCount returns how many adapters have been constructed
func (f *Factory) CachedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.instances)
}

func normalizeKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
