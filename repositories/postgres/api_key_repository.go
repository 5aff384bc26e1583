package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/upb/llm-gateway/models"
	"github.com/upb/llm-gateway/repositories"
	"go.uber.org/zap"
)

// APIKeyRepository implements the repositories.APIKeyRepository interface
type APIKeyRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAPIKeyRepository creates a new API key repository
func NewAPIKeyRepository(db *DB, logger *zap.Logger) repositories.APIKeyRepository {
	return &APIKeyRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a new credential
func (r *APIKeyRepository) Create(ctx context.Context, key *models.APIKey) error {
	query := `
		INSERT INTO api_keys (id, provider_id, owner_id, ciphertext, key_hash, is_active, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		key.ID,
		key.ProviderID,
		key.OwnerID,
		key.Ciphertext,
		key.KeyHash,
		key.IsActive,
		key.ExpiresAt,
		key.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create api key: %w", err)
	}

	r.logger.Debug("api key stored",
		zap.String("id", key.ID.String()),
		zap.String("provider_id", key.ProviderID.String()),
	)
	return nil
}

// GetActive returns the most recently created active key of a provider that
// has not expired at now
func (r *APIKeyRepository) GetActive(ctx context.Context, providerID uuid.UUID, now time.Time) (*models.APIKey, error) {
	query := `
		SELECT id, provider_id, owner_id, ciphertext, key_hash, is_active, expires_at, created_at
		FROM api_keys
		WHERE provider_id = $1
		  AND is_active = true
		  AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY created_at DESC
		LIMIT 1
	`

	key := &models.APIKey{}
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, providerID, now).Scan(
		&key.ID,
		&key.ProviderID,
		&key.OwnerID,
		&key.Ciphertext,
		&key.KeyHash,
		&key.IsActive,
		&key.ExpiresAt,
		&key.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("active api key for provider %s: %w", providerID, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}

	return key, nil
}

// ExistsByHash reports whether an active key with this fingerprint is stored for the provider
func (r *APIKeyRepository) ExistsByHash(ctx context.Context, providerID uuid.UUID, keyHash string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM api_keys WHERE provider_id = $1 AND key_hash = $2 AND is_active = true)`

	var exists bool
	if err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, providerID, keyHash).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check api key: %w", err)
	}
	return exists, nil
}

// DeactivateAll deactivates the provider's active keys for owner. A nil owner
// targets keys stored without an owner.
func (r *APIKeyRepository) DeactivateAll(ctx context.Context, providerID uuid.UUID, ownerID *uuid.UUID) (int64, error) {
	query := `
		UPDATE api_keys SET is_active = false
		WHERE provider_id = $1 AND is_active = true AND owner_id IS NOT DISTINCT FROM $2
	`

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, providerID, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate api keys: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	r.logger.Debug("api keys deactivated",
		zap.String("provider_id", providerID.String()),
		zap.Int64("count", affected),
	)
	return affected, nil
}
