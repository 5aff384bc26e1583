package models

import (
	"time"

	"github.com/google/uuid"
)

// APIKey is a stored vendor credential. Ciphertext holds hex(iv):hex(cipher);
// the plaintext is never persisted.
type APIKey struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	ProviderID uuid.UUID  `json:"providerId" db:"provider_id"`
	OwnerID    *uuid.UUID `json:"ownerId,omitempty" db:"owner_id"`
	Ciphertext string     `json:"-" db:"ciphertext"`
	KeyHash    string     `json:"-" db:"key_hash"`
	IsActive   bool       `json:"isActive" db:"is_active"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty" db:"expires_at"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
}

// TableName returns the table name for the APIKey model
func (APIKey) TableName() string {
	return "api_keys"
}

// NewAPIKey creates a new active APIKey
func NewAPIKey(providerID uuid.UUID, ownerID *uuid.UUID, ciphertext, keyHash string, expiresAt *time.Time) *APIKey {
	return &APIKey{
		ID:         uuid.New(),
		ProviderID: providerID,
		OwnerID:    ownerID,
		Ciphertext: ciphertext,
		KeyHash:    keyHash,
		IsActive:   true,
		ExpiresAt:  expiresAt,
		CreatedAt:  time.Now(),
	}
}

// IsUsable reports whether the key is active and unexpired at now
func (k *APIKey) IsUsable(now time.Time) bool {
	if !k.IsActive {
		return false
	}
	return k.ExpiresAt == nil || k.ExpiresAt.After(now)
}
