// Package catalog holds the provider catalog used to seed an empty store.
package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/upb/llm-gateway/models"
	"github.com/upb/llm-gateway/repositories"
	"github.com/upb/llm-gateway/utils"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is the parsed catalog file
type Catalog struct {
	Providers []Entry `yaml:"providers" validate:"required,min=1,dive"`
}

// Entry describes one provider and the models it serves
type Entry struct {
	Name        string                   `yaml:"name" validate:"required"`
	DisplayName string                   `yaml:"display_name" validate:"required"`
	BaseURL     string                   `yaml:"base_url,omitempty" validate:"omitempty,url"`
	Priority    int                      `yaml:"priority" validate:"gte=0"`
	Models      []models.ModelDescriptor `yaml:"models" validate:"dive"`
}

// Default returns the embedded catalog
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Parse decodes and validates a catalog file
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if err := utils.ValidateStruct(&c); err != nil {
		if fields := utils.GetValidationFields(err); len(fields) > 0 {
			return nil, fmt.Errorf("catalog: %s: %v", err, fields)
		}
		return nil, fmt.Errorf("catalog: %w", err)
	}

	seen := make(map[string]bool, len(c.Providers))
	for i := range c.Providers {
		name := strings.ToLower(strings.TrimSpace(c.Providers[i].Name))
		if seen[name] {
			return nil, fmt.Errorf("catalog: provider %q listed twice", name)
		}
		seen[name] = true
		c.Providers[i].Name = name
	}
	return &c, nil
}

// SeedResult reports what Seed did
type SeedResult struct {
	Created []string
	Skipped []string
}

// Seed inserts every catalog provider missing from the store. Existing rows
// are left untouched so operator changes survive restarts. supported rejects
// entries no adapter can serve.
func (c *Catalog) Seed(ctx context.Context, repo repositories.ProviderRepository, supported func(string) bool, logger *zap.Logger) (*SeedResult, error) {
	result := &SeedResult{}

	for _, entry := range c.Providers {
		if supported != nil && !supported(entry.Name) {
			return result, fmt.Errorf("catalog provider %q has no adapter", entry.Name)
		}

		_, err := repo.GetByName(ctx, entry.Name)
		if err == nil {
			result.Skipped = append(result.Skipped, entry.Name)
			continue
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return result, fmt.Errorf("looking up provider %q: %w", entry.Name, err)
		}

		provider := models.NewProvider(entry.Name, entry.DisplayName, entry.BaseURL, entry.Priority, entry.Models)
		if err := repo.Upsert(ctx, provider); err != nil {
			return result, fmt.Errorf("seeding provider %q: %w", entry.Name, err)
		}
		result.Created = append(result.Created, entry.Name)
	}

	logger.Info("provider catalog seeded",
		zap.Strings("created", result.Created),
		zap.Strings("skipped", result.Skipped))
	return result, nil
}
