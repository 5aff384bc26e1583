package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/upb/llm-gateway/models"
)

// ErrNotFound is wrapped by repositories when a lookup matches no row
var ErrNotFound = errors.New("record not found")

// TransactionManager starts store transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns a context carrying the transaction. Repositories called
	// with it run their statements inside the transaction.
	Context() context.Context
}

// ProviderRepository handles provider records
type ProviderRepository interface {
	// Upsert inserts a provider or updates the row with the same name
	Upsert(ctx context.Context, provider *models.Provider) error

	// GetByID retrieves a provider by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Provider, error)

	// GetByName retrieves a provider by canonical key
	GetByName(ctx context.Context, name string) (*models.Provider, error)

	// GetDefault returns the active provider with the highest priority
	GetDefault(ctx context.Context) (*models.Provider, error)

	// List returns every provider, highest priority first
	List(ctx context.Context) ([]*models.Provider, error)

	// SetActive toggles a provider
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// APIKeyRepository handles encrypted vendor credentials
type APIKeyRepository interface {
	// Create stores a new credential
	Create(ctx context.Context, key *models.APIKey) error

	// GetActive returns the most recently created active, unexpired key of a provider
	GetActive(ctx context.Context, providerID uuid.UUID, now time.Time) (*models.APIKey, error)

	// ExistsByHash reports whether an active key with this fingerprint is stored for the provider
	ExistsByHash(ctx context.Context, providerID uuid.UUID, keyHash string) (bool, error)

	// DeactivateAll deactivates the provider's keys for owner (nil owner means shared keys)
	DeactivateAll(ctx context.Context, providerID uuid.UUID, ownerID *uuid.UUID) (int64, error)
}

// SessionRepository handles chat sessions
type SessionRepository interface {
	// Create creates a new session
	Create(ctx context.Context, session *models.Session) error

	// GetOrCreateByKey returns the session holding session.ConversationKey,
	// inserting session when none exists. created reports which happened.
	GetOrCreateByKey(ctx context.Context, session *models.Session) (stored *models.Session, created bool, err error)

	// GetByID retrieves a session by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)

	// Touch bumps updated_at
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error

	// Delete deletes a session; its messages go with it
	Delete(ctx context.Context, id uuid.UUID) error
}

// MessageRepository handles chat messages
type MessageRepository interface {
	// Create stores one message
	Create(ctx context.Context, message *models.Message) error

	// ListBySession returns the session's messages oldest first
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.Message, error)

	// ListRecent returns the last limit messages of a session, oldest first
	ListRecent(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.Message, error)

	// DeleteBySession deletes every message of a session
	DeleteBySession(ctx context.Context, sessionID uuid.UUID) (int64, error)
}

// UsageRepository handles aggregate usage statistics
type UsageRepository interface {
	// Increment adds delta to the (provider, model, day) row, creating it if needed
	Increment(ctx context.Context, delta *models.UsageStat) error

	// ListByProvider returns daily rows for a provider since the given day, newest first
	ListByProvider(ctx context.Context, providerID uuid.UUID, since time.Time) ([]*models.UsageStat, error)
}

// Repositories holds all repository instances
type Repositories struct {
	Providers ProviderRepository
	APIKeys   APIKeyRepository
	Sessions  SessionRepository
	Messages  MessageRepository
	Usage     UsageRepository
}
