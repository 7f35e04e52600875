package providers

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Provider is the transport boundary to a single LLM inference endpoint.
// Implementations must tag every failure with an ErrorClass (see ProviderError).
type Provider interface {
	// Name returns the provider name (e.g., "openai", "anthropic")
	Name() string

	// ChatCompletion performs a chat completion request
	ChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}

// TierDefaults is implemented by providers that ship built-in default and
// fallback model tiers.
type TierDefaults interface {
	DefaultTiers() (primary, fallback string)
}

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleFunction  = "function"
)

// ChatRequest represents a unified chat completion request
type ChatRequest struct {
	// Model identifier (the tier this attempt targets)
	Model string `json:"model"`

	// Messages in the conversation, in order
	Messages []Message `json:"messages"`

	// Temperature controls randomness (0.0 to 2.0)
	Temperature float64 `json:"temperature"`

	// MaxTokens limits the response length; zero means unset
	MaxTokens int `json:"max_tokens,omitempty"`

	// TopP controls nucleus sampling; nil means unset
	TopP *float64 `json:"top_p,omitempty"`

	// Stop sequences
	Stop []string `json:"stop,omitempty"`
}

// WithModel returns a shallow copy of the request targeting model.
func (r *ChatRequest) WithModel(model string) *ChatRequest {
	clone := *r
	clone.Model = model
	return &clone
}

// Message represents a single message in a conversation
type Message struct {
	// Role is one of "system", "user", "assistant" or "function"
	Role string `json:"role"`

	// Content is the message text
	Content string `json:"content"`

	// Name is an optional identifier for the message sender
	Name string `json:"name,omitempty"`
}

// ChatResponse represents a unified chat completion response
type ChatResponse struct {
	ID string `json:"id"`

	// Model reported by the provider
	Model string `json:"model"`

	Choices []Choice `json:"choices"`

	// Usage is nil when the provider did not report token counts
	Usage *Usage `json:"usage,omitempty"`

	// Provider that handled the request
	Provider string `json:"provider"`

	Latency time.Duration `json:"latency"`
	Created time.Time     `json:"created"`
}

// Choice represents a completion choice
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage represents token usage statistics
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ProviderConfig holds common configuration for providers
type ProviderConfig struct {
	// APIKey for authentication
	APIKey string

	// BaseURL for the API (optional override)
	BaseURL string

	// Timeout for requests
	Timeout time.Duration

	// Additional headers
	Headers map[string]string
}

// DefaultProviderConfig returns a sensible default configuration
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Timeout: 30 * time.Second,
		Headers: make(map[string]string),
	}
}

// ErrorClass is the closed set of failure tags produced at the transport boundary.
type ErrorClass string

const (
	// ClassTransientService marks rate-limited or overloaded responses.
	ClassTransientService ErrorClass = "transient_service"
	// ClassGeneric covers every other failure.
	ClassGeneric ErrorClass = "generic"
)

// Error codes
const (
	CodeRateLimited     = "rate_limited"
	CodeOverloaded      = "overloaded"
	CodeRequestFailed   = "request_failed"
	CodeInvalidResponse = "invalid_response"
	CodeAuthentication  = "authentication_failed"
	CodeNetwork         = "network_error"
)

// ProviderError represents an error from a provider
type ProviderError struct {
	// Provider that generated the error
	Provider string

	// Code is the error code
	Code string

	// Message is the error message
	Message string

	// StatusCode is the HTTP status code (if applicable)
	StatusCode int

	// Class drives tier escalation in the dispatch loop
	Class ErrorClass

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap implements error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a new provider error
func NewProviderError(provider, code, message string, statusCode int, class ErrorClass, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Class:      class,
		Cause:      cause,
	}
}

// ClassifyStatus maps an HTTP status code to an error code and class.
// 429 is rate limiting; 503 and 529 are overload signals.
func ClassifyStatus(status int) (string, ErrorClass) {
	switch status {
	case 429:
		return CodeRateLimited, ClassTransientService
	case 503, 529:
		return CodeOverloaded, ClassTransientService
	case 401, 403:
		return CodeAuthentication, ClassGeneric
	default:
		return CodeRequestFailed, ClassGeneric
	}
}

// Classify returns the class of err. Untagged errors are generic.
func Classify(err error) ErrorClass {
	var provErr *ProviderError
	if errors.As(err, &provErr) && provErr.Class != "" {
		return provErr.Class
	}
	return ClassGeneric
}

// IsTransientService reports whether err is a rate-limit or overload failure.
func IsTransientService(err error) bool {
	return Classify(err) == ClassTransientService
}
