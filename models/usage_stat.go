package models

import (
	"time"

	"github.com/google/uuid"
)

// UsageStat aggregates token usage per provider, model and UTC day
type UsageStat struct {
	ProviderID       uuid.UUID `json:"providerId" db:"provider_id"`
	ModelID          string    `json:"modelId" db:"model_id"`
	Day              time.Time `json:"day" db:"day"`
	RequestCount     int64     `json:"requestCount" db:"request_count"`
	PromptTokens     int64     `json:"promptTokens" db:"prompt_tokens"`
	CompletionTokens int64     `json:"completionTokens" db:"completion_tokens"`
	TotalTokens      int64     `json:"totalTokens" db:"total_tokens"`
	UpdatedAt        time.Time `json:"updatedAt" db:"updated_at"`
}

// TableName returns the table name for the UsageStat model
func (UsageStat) TableName() string {
	return "usage_stats"
}

// UsageDay truncates t to its UTC calendar day
func UsageDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewUsageIncrement builds the delta applied for one chat call
func NewUsageIncrement(providerID uuid.UUID, modelID string, usage MessageUsage, at time.Time) *UsageStat {
	return &UsageStat{
		ProviderID:       providerID,
		ModelID:          modelID,
		Day:              UsageDay(at),
		RequestCount:     1,
		PromptTokens:     int64(usage.PromptTokens),
		CompletionTokens: int64(usage.CompletionTokens),
		TotalTokens:      int64(usage.PromptTokens + usage.CompletionTokens),
		UpdatedAt:        at,
	}
}
