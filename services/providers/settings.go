package providers

import (
	"math"
	"unicode/utf8"
)

// Defaults applied when a request leaves a setting unset
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2048
	DefaultTopP        = 1.0
)

// Settings are optional per-request generation overrides. Nil means "use the default".
type Settings struct {
	Temperature      *float64 `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	MaxTokens        *int     `json:"maxTokens,omitempty" validate:"omitempty,gte=1,lte=200000"`
	TopP             *float64 `json:"topP,omitempty" validate:"omitempty,gt=0,lte=1"`
	FrequencyPenalty *float64 `json:"frequencyPenalty,omitempty" validate:"omitempty,gte=-2,lte=2"`
	PresencePenalty  *float64 `json:"presencePenalty,omitempty" validate:"omitempty,gte=-2,lte=2"`
}

// ResolvedSettings is Settings merged over the defaults
type ResolvedSettings struct {
	Temperature float64
	MaxTokens   int
	TopP        float64
	// Penalties stay optional; not every vendor accepts them
	FrequencyPenalty *float64
	PresencePenalty  *float64
}

// Resolve merges s over the defaults
func (s Settings) Resolve() ResolvedSettings {
	out := ResolvedSettings{
		Temperature:      DefaultTemperature,
		MaxTokens:        DefaultMaxTokens,
		TopP:             DefaultTopP,
		FrequencyPenalty: s.FrequencyPenalty,
		PresencePenalty:  s.PresencePenalty,
	}
	if s.Temperature != nil {
		out.Temperature = *s.Temperature
	}
	if s.MaxTokens != nil {
		out.MaxTokens = *s.MaxTokens
	}
	if s.TopP != nil {
		out.TopP = *s.TopP
	}
	return out
}

// Usage is the token accounting triple. Total is always Prompt + Completion.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// NewUsage builds a Usage, clamping negatives to zero
func NewUsage(prompt, completion int) Usage {
	prompt = max(prompt, 0)
	completion = max(completion, 0)
	return Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}
}

// EstimateTokens approximates a token count as ceil(chars/4)
func EstimateTokens(text string) int {
	return int(math.Ceil(float64(utf8.RuneCountInString(text)) / 4))
}

// EstimateUsage synthesizes usage for vendors that do not report it
func EstimateUsage(prompt []Message, completion string) Usage {
	promptTokens := 0
	for _, m := range prompt {
		promptTokens += EstimateTokens(m.Content)
	}
	return NewUsage(promptTokens, EstimateTokens(completion))
}
