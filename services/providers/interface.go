package providers

import (
	"context"
	"maps"
	"time"

	"github.com/upb/llm-gateway/models"
)

// Canonical message roles. Adapters map these onto vendor roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Adapter normalizes one vendor's chat API behind the canonical contract.
// Each vendor package also exposes a typed NewClient(apiKey) for callers
// that need the raw SDK client.
type Adapter interface {
	// Name returns the canonical provider key (e.g. "openai", "anthropic")
	Name() string

	// DefaultModel is used when a request does not name a model
	DefaultModel() string

	// ValidateAPIKey performs one minimal vendor call. Failures are logged
	// and reported as false, never as an error.
	ValidateAPIKey(ctx context.Context, apiKey string) bool

	// GetAvailableModels returns the vendor catalog, live or static
	GetAvailableModels(ctx context.Context, apiKey string) ([]models.ModelDescriptor, error)

	// Chat sends one user turn (with optional system prompt and history)
	Chat(ctx context.Context, req *ChatRequest, apiKey string) (*ChatResponse, error)

	// ComposeMessages shapes system prompt, history and the new message the
	// way this vendor expects them
	ComposeMessages(systemPrompt, message string, history []Message) []Message
}

// Message is one canonical conversation turn
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the normalized request handed to an adapter
type ChatRequest struct {
	// Model overrides the adapter default when set
	Model        string
	Message      string
	SystemPrompt string
	History      []Message
	Settings     Settings
}

// ChatResponse is the canonical adapter result
type ChatResponse struct {
	Content  string `json:"response"`
	Model    string `json:"model"`
	Provider string `json:"provider"`
	Usage    Usage  `json:"usage"`
}

// ProviderConfig holds transport settings for one adapter instance
type ProviderConfig struct {
	// BaseURL overrides the vendor default endpoint
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	// Headers are sent on every vendor request
	Headers map[string]string
}

// Equal reports whether two configs would build identical adapters
func (c ProviderConfig) Equal(other ProviderConfig) bool {
	return c.BaseURL == other.BaseURL &&
		c.Timeout == other.Timeout &&
		c.MaxRetries == other.MaxRetries &&
		maps.Equal(c.Headers, other.Headers)
}

// Merge returns c with every non-zero field of override applied
func (c ProviderConfig) Merge(override ProviderConfig) ProviderConfig {
	out := c
	if override.BaseURL != "" {
		out.BaseURL = override.BaseURL
	}
	if override.Timeout > 0 {
		out.Timeout = override.Timeout
	}
	if override.MaxRetries > 0 {
		out.MaxRetries = override.MaxRetries
	}
	if len(override.Headers) > 0 {
		out.Headers = maps.Clone(c.Headers)
		if out.Headers == nil {
			out.Headers = make(map[string]string, len(override.Headers))
		}
		maps.Copy(out.Headers, override.Headers)
	}
	return out
}

// ConversationTurns drops system entries from history and any assistant turns
// ahead of the first user turn, for vendors that require the conversation to
// open with the user
func ConversationTurns(history []Message) []Message {
	out := make([]Message, 0, len(history))
	for _, m := range history {
		if m.Role == RoleSystem {
			continue
		}
		if len(out) == 0 && m.Role != RoleUser {
			continue
		}
		out = append(out, m)
	}
	return out
}

// ComposeWithSystemMessage is the OpenAI-style shaping: a leading system
// message, prior history, then the new user message.
func ComposeWithSystemMessage(systemPrompt, message string, history []Message) []Message {
	out := make([]Message, 0, len(history)+2)
	if systemPrompt != "" {
		out = append(out, Message{Role: RoleSystem, Content: systemPrompt})
	}
	out = append(out, history...)
	return append(out, Message{Role: RoleUser, Content: message})
}
