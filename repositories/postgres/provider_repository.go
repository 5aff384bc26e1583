package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/llm-gateway/models"
	"github.com/upb/llm-gateway/repositories"
	"go.uber.org/zap"
)

const providerColumns = `id, name, display_name, base_url, priority, is_active, models, created_at, updated_at`

// ProviderRepository implements the repositories.ProviderRepository interface
type ProviderRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewProviderRepository creates a new provider repository
func NewProviderRepository(db *DB, logger *zap.Logger) repositories.ProviderRepository {
	return &ProviderRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts a provider, or updates the existing row with the same name.
// provider.ID is replaced with the stored row's ID.
func (r *ProviderRepository) Upsert(ctx context.Context, provider *models.Provider) error {
	query := `
		INSERT INTO providers (` + providerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (name) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			base_url = EXCLUDED.base_url,
			priority = EXCLUDED.priority,
			is_active = EXCLUDED.is_active,
			models = EXCLUDED.models,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, query,
		provider.ID,
		provider.Name,
		provider.DisplayName,
		provider.BaseURL,
		provider.Priority,
		provider.IsActive,
		provider.Models,
		provider.CreatedAt,
		provider.UpdatedAt,
	).Scan(&provider.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert provider: %w", err)
	}

	r.logger.Debug("provider upserted", zap.String("id", provider.ID.String()), zap.String("name", provider.Name))
	return nil
}

// GetByID retrieves a provider by ID
func (r *ProviderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE id = $1`

	provider, err := scanProvider(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("provider %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}
	return provider, nil
}

// GetByName retrieves a provider by canonical key
func (r *ProviderRepository) GetByName(ctx context.Context, name string) (*models.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE name = $1`

	provider, err := scanProvider(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("provider %q: %w", name, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}
	return provider, nil
}

// GetDefault returns the active provider with the highest priority. Ties go
// to the oldest record.
func (r *ProviderRepository) GetDefault(ctx context.Context) (*models.Provider, error) {
	query := `
		SELECT ` + providerColumns + `
		FROM providers
		WHERE is_active = true
		ORDER BY priority DESC, created_at ASC
		LIMIT 1
	`

	provider, err := scanProvider(GetExecutor(ctx, r.db).QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("default provider: %w", repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get default provider: %w", err)
	}
	return provider, nil
}

// List returns every provider, highest priority first
func (r *ProviderRepository) List(ctx context.Context) ([]*models.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers ORDER BY priority DESC, name ASC`

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	defer rows.Close()

	var providers []*models.Provider
	for rows.Next() {
		provider, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan provider: %w", err)
		}
		providers = append(providers, provider)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating providers: %w", err)
	}

	return providers, nil
}

// SetActive toggles a provider
func (r *ProviderRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `UPDATE providers SET is_active = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, id, active)
	if err != nil {
		return fmt.Errorf("failed to update provider: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("provider %s: %w", id, repositories.ErrNotFound)
	}

	r.logger.Debug("provider toggled", zap.String("id", id.String()), zap.Bool("active", active))
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProvider(row rowScanner) (*models.Provider, error) {
	provider := &models.Provider{}
	err := row.Scan(
		&provider.ID,
		&provider.Name,
		&provider.DisplayName,
		&provider.BaseURL,
		&provider.Priority,
		&provider.IsActive,
		&provider.Models,
		&provider.CreatedAt,
		&provider.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return provider, nil
}
