package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/upb/llm-gateway/models"
	"github.com/upb/llm-gateway/repositories"
	"go.uber.org/zap"
)

// UsageRepository implements the repositories.UsageRepository interface
type UsageRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(db *DB, logger *zap.Logger) repositories.UsageRepository {
	return &UsageRepository{
		db:     db,
		logger: logger,
	}
}

// Increment adds delta to its (provider, model, day) row in one statement
func (r *UsageRepository) Increment(ctx context.Context, delta *models.UsageStat) error {
	query := `
		INSERT INTO usage_stats (provider_id, model_id, day, request_count, prompt_tokens, completion_tokens, total_tokens, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (provider_id, model_id, day) DO UPDATE SET
			request_count = usage_stats.request_count + EXCLUDED.request_count,
			prompt_tokens = usage_stats.prompt_tokens + EXCLUDED.prompt_tokens,
			completion_tokens = usage_stats.completion_tokens + EXCLUDED.completion_tokens,
			total_tokens = usage_stats.total_tokens + EXCLUDED.total_tokens,
			updated_at = EXCLUDED.updated_at
	`

	_, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		delta.ProviderID,
		delta.ModelID,
		delta.Day,
		delta.RequestCount,
		delta.PromptTokens,
		delta.CompletionTokens,
		delta.TotalTokens,
		delta.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to increment usage: %w", err)
	}
	return nil
}

// ListByProvider returns daily rows for a provider since the given day, newest first
func (r *UsageRepository) ListByProvider(ctx context.Context, providerID uuid.UUID, since time.Time) ([]*models.UsageStat, error) {
	query := `
		SELECT provider_id, model_id, day, request_count, prompt_tokens, completion_tokens, total_tokens, updated_at
		FROM usage_stats
		WHERE provider_id = $1 AND day >= $2
		ORDER BY day DESC, model_id ASC
	`

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, providerID, models.UsageDay(since))
	if err != nil {
		return nil, fmt.Errorf("failed to list usage: %w", err)
	}
	defer rows.Close()

	var stats []*models.UsageStat
	for rows.Next() {
		stat := &models.UsageStat{}
		err := rows.Scan(
			&stat.ProviderID,
			&stat.ModelID,
			&stat.Day,
			&stat.RequestCount,
			&stat.PromptTokens,
			&stat.CompletionTokens,
			&stat.TotalTokens,
			&stat.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan usage: %w", err)
		}
		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usage: %w", err)
	}

	return stats, nil
}
