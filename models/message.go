package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageRole is the author of a stored message
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// MessageUsage is the token snapshot stored with an assistant message
type MessageUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Value implements driver.Valuer
func (u MessageUsage) Value() (driver.Value, error) {
	return json.Marshal(u)
}

// Scan implements sql.Scanner
func (u *MessageUsage) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, u)
	case string:
		return json.Unmarshal([]byte(v), u)
	default:
		return fmt.Errorf("cannot scan %T into MessageUsage", src)
	}
}

// Message is one persisted conversation turn
type Message struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	SessionID uuid.UUID     `json:"sessionId" db:"session_id"`
	Role      MessageRole   `json:"role" db:"role"`
	Content   string        `json:"content" db:"content"`
	Model     string        `json:"model,omitempty" db:"model_id"`
	Usage     *MessageUsage `json:"usage,omitempty" db:"usage"`
	CreatedAt time.Time     `json:"createdAt" db:"created_at"`
}

// TableName returns the table name for the Message model
func (Message) TableName() string {
	return "chat_messages"
}

// NewUserMessage creates a user message
func NewUserMessage(sessionID uuid.UUID, content string) *Message {
	return &Message{
		ID:        uuid.New(),
		SessionID: sessionID,
		Role:      MessageRoleUser,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// NewAssistantMessage creates an assistant message carrying usage
func NewAssistantMessage(sessionID uuid.UUID, content, model string, usage MessageUsage) *Message {
	return &Message{
		ID:        uuid.New(),
		SessionID: sessionID,
		Role:      MessageRoleAssistant,
		Content:   content,
		Model:     model,
		Usage:     &usage,
		CreatedAt: time.Now(),
	}
}
