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

const sessionColumns = `id, provider_id, model_id, title, owner_id, conversation_key, created_at, updated_at`

// SessionRepository implements the repositories.SessionRepository interface
type SessionRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *DB, logger *zap.Logger) repositories.SessionRepository {
	return &SessionRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new session
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	query := `INSERT INTO chat_sessions (` + sessionColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, sessionArgs(session)...)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	r.logger.Debug("session created", zap.String("id", session.ID.String()))
	return nil
}

// GetOrCreateByKey inserts session unless a row with its conversation key
// exists, then returns the stored row. Concurrent callers with the same key
// all get the same session.
func (r *SessionRepository) GetOrCreateByKey(ctx context.Context, session *models.Session) (*models.Session, bool, error) {
	if session.ConversationKey == nil || *session.ConversationKey == "" {
		return nil, false, fmt.Errorf("conversation key is required")
	}

	insert := `
		INSERT INTO chat_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT ((COALESCE(owner_id, '00000000-0000-0000-0000-000000000000'::uuid)), conversation_key)
			WHERE conversation_key IS NOT NULL DO NOTHING
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, insert, sessionArgs(session)...)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 1 {
		r.logger.Debug("session created", zap.String("id", session.ID.String()))
		return session, true, nil
	}

	query := `SELECT ` + sessionColumns + ` FROM chat_sessions
		WHERE conversation_key = $1 AND owner_id IS NOT DISTINCT FROM $2`
	stored, err := scanSession(executor.QueryRowContext(ctx, query, *session.ConversationKey, session.OwnerID))
	if err != nil {
		return nil, false, fmt.Errorf("failed to get session by key: %w", err)
	}
	return stored, false, nil
}

// GetByID retrieves a session by ID
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM chat_sessions WHERE id = $1`

	session, err := scanSession(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// Touch bumps updated_at
func (r *SessionRepository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE chat_sessions SET updated_at = $2 WHERE id = $1`

	if _, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

// Delete deletes a session
func (r *SessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM chat_sessions WHERE id = $1`

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("session %s: %w", id, repositories.ErrNotFound)
	}

	r.logger.Debug("session deleted", zap.String("id", id.String()))
	return nil
}

func sessionArgs(session *models.Session) []interface{} {
	return []interface{}{
		session.ID,
		session.ProviderID,
		session.ModelID,
		session.Title,
		session.OwnerID,
		session.ConversationKey,
		session.CreatedAt,
		session.UpdatedAt,
	}
}

func scanSession(row rowScanner) (*models.Session, error) {
	session := &models.Session{}
	err := row.Scan(
		&session.ID,
		&session.ProviderID,
		&session.ModelID,
		&session.Title,
		&session.OwnerID,
		&session.ConversationKey,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return session, nil
}
