package dispatch

import (
	"time"

	"github.com/upb/llm-dispatch/services/providers"
)

const (
	// DefaultTemperature is applied when Options.Temperature is nil
	DefaultTemperature = 0.3

	// DefaultMaxAttempts bounds the attempts made by a single Complete call
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is the unit of the linear backoff schedule
	DefaultBaseDelay = time.Second

	// DefaultModel and FallbackModel are used when Config leaves the tiers empty
	// and the transport does not implement providers.TierDefaults
	DefaultModel  = "gpt-4o"
	FallbackModel = "gpt-4o-mini"
)

// Turn roles
const (
	RoleSystem    = providers.RoleSystem
	RoleUser      = providers.RoleUser
	RoleAssistant = providers.RoleAssistant
	RoleFunction  = providers.RoleFunction
)

// Turn is one message of a conversation
type Turn struct {
	Role    string `json:"role" validate:"oneof=system user assistant function"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// Conversation is an ordered list of turns. Order is preserved end to end.
type Conversation []Turn

// Options tune a single completion call. Nil pointers mean "not set".
type Options struct {
	// Model pins every attempt of the call to this tier
	Model string `json:"model,omitempty"`

	Temperature   *float64 `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	MaxTokens     *int     `json:"max_tokens,omitempty" validate:"omitempty,gt=0"`
	TopP          *float64 `json:"top_p,omitempty" validate:"omitempty,gte=0,lte=1"`
	StopSequences []string `json:"stop,omitempty" validate:"omitempty,dive,min=1"`

	// SystemPrompt is injected as the first turn when the conversation has no system turn
	SystemPrompt string `json:"system_prompt,omitempty"`

	IncludeUsage bool `json:"include_usage,omitempty"`
}

// CompletionResult is the normalized outcome of a successful call
type CompletionResult struct {
	Content string `json:"content"`

	// Usage is set only when requested and reported by the provider
	Usage *Usage `json:"usage,omitempty"`

	// ModelUsed is the tier of the attempt that succeeded
	ModelUsed string `json:"model_used"`
}

// Usage reports token accounting for a call
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// completionInput is the validated boundary of Complete
type completionInput struct {
	Conversation Conversation `validate:"min=1,dive"`
	Options      Options
}

// Float64 returns a pointer to v
func Float64(v float64) *float64 { return &v }

// Int returns a pointer to v
func Int(v int) *int { return &v }
