package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/llm-gateway/models"
	"github.com/upb/llm-gateway/repositories"
	"go.uber.org/zap"
)

const messageColumns = `id, session_id, role, content, model_id, usage, created_at`

// MessageRepository implements the repositories.MessageRepository interface
type MessageRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *DB, logger *zap.Logger) repositories.MessageRepository {
	return &MessageRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores one message
func (r *MessageRepository) Create(ctx context.Context, message *models.Message) error {
	query := `INSERT INTO chat_messages (` + messageColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	var usage interface{}
	if message.Usage != nil {
		usage = *message.Usage
	}

	_, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		message.ID,
		message.SessionID,
		message.Role,
		message.Content,
		message.Model,
		usage,
		message.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	r.logger.Debug("message stored",
		zap.String("id", message.ID.String()),
		zap.String("session_id", message.SessionID.String()),
		zap.String("role", string(message.Role)),
	)
	return nil
}

// ListBySession returns the session's messages oldest first
func (r *MessageRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY created_at ASC, role DESC
	`
	return r.query(ctx, query, sessionID)
}

// ListRecent returns the last limit messages of a session, oldest first
func (r *MessageRepository) ListRecent(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	query := `
		SELECT ` + messageColumns + ` FROM (
			SELECT ` + messageColumns + `
			FROM chat_messages
			WHERE session_id = $1
			ORDER BY created_at DESC, role ASC
			LIMIT $2
		) recent
		ORDER BY created_at ASC, role DESC
	`
	return r.query(ctx, query, sessionID, limit)
}

// DeleteBySession deletes every message of a session
func (r *MessageRepository) DeleteBySession(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	query := `DELETE FROM chat_messages WHERE session_id = $1`

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete messages: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}

func (r *MessageRepository) query(ctx context.Context, query string, args ...interface{}) ([]*models.Message, error) {
	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		message := &models.Message{}
		err := rows.Scan(
			&message.ID,
			&message.SessionID,
			&message.Role,
			&message.Content,
			&message.Model,
			&message.Usage,
			&message.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}
