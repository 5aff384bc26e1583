package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionTitleLength is the number of characters of the first message kept as title
const SessionTitleLength = 50

// UnknownModel is recorded when neither request nor adapter names a model
const UnknownModel = "unknown"

// Session groups the messages of one conversation
type Session struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	ProviderID      uuid.UUID  `json:"providerId" db:"provider_id"`
	ModelID         string     `json:"modelId" db:"model_id"`
	Title           string     `json:"title" db:"title"`
	OwnerID         *uuid.UUID `json:"ownerId,omitempty" db:"owner_id"`
	ConversationKey *string    `json:"conversationKey,omitempty" db:"conversation_key"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time  `json:"updatedAt" db:"updated_at"`
}

// TableName returns the table name for the Session model
func (Session) TableName() string {
	return "chat_sessions"
}

// NewSession creates a session titled after its first message
func NewSession(providerID uuid.UUID, modelID, firstMessage string) *Session {
	if modelID == "" {
		modelID = UnknownModel
	}
	now := time.Now()
	return &Session{
		ID:         uuid.New(),
		ProviderID: providerID,
		ModelID:    modelID,
		Title:      SessionTitle(firstMessage),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// SessionTitle keeps the first 50 characters of msg, appending "..." when truncated
func SessionTitle(msg string) string {
	runes := []rune(msg)
	if len(runes) <= SessionTitleLength {
		return msg
	}
	return string(runes[:SessionTitleLength]) + "..."
}
