package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ModelDescriptor describes one model a provider serves
type ModelDescriptor struct {
	ID            string   `json:"id" yaml:"id" validate:"required"`
	Name          string   `json:"name" yaml:"name"`
	Capabilities  []string `json:"capabilities,omitempty" yaml:"capabilities"`
	ContextWindow int      `json:"contextWindow" yaml:"context_window" validate:"gte=0"`
}

// ModelList is a JSONB-backed list of model descriptors
type ModelList []ModelDescriptor

// Value implements driver.Valuer
func (l ModelList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner
func (l *ModelList) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into ModelList", src)
	}
	return json.Unmarshal(data, l)
}

// Provider is a vendor record. Name is the canonical adapter key.
type Provider struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	DisplayName string    `json:"displayName" db:"display_name"`
	BaseURL     string    `json:"baseUrl,omitempty" db:"base_url"`
	Priority    int       `json:"priority" db:"priority"`
	IsActive    bool      `json:"isActive" db:"is_active"`
	Models      ModelList `json:"models" db:"models"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// TableName returns the table name for the Provider model
func (Provider) TableName() string {
	return "providers"
}

// NewProvider creates a new active Provider
func NewProvider(name, displayName, baseURL string, priority int, models []ModelDescriptor) *Provider {
	now := time.Now()
	return &Provider{
		ID:          uuid.New(),
		Name:        name,
		DisplayName: displayName,
		BaseURL:     baseURL,
		Priority:    priority,
		IsActive:    true,
		Models:      models,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// FindModel returns the descriptor for id, if the provider lists it
func (p *Provider) FindModel(id string) (ModelDescriptor, bool) {
	for _, m := range p.Models {
		if m.ID == id {
			return m, true
		}
	}
	return ModelDescriptor{}, false
}
