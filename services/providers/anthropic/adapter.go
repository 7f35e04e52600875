package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/samber/lo"

	"github.com/upb/llm-dispatch/services"
	"github.com/upb/llm-dispatch/services/providers"
)

const (
	// ProviderName identifies this transport in config and logs
	ProviderName = "anthropic"

	// DefaultModel and FallbackModel are the built-in tiers
	DefaultModel  = "claude-sonnet-4-5"
	FallbackModel = "claude-haiku-4-5"

	// defaultMaxTokens is sent when the caller does not cap the response;
	// the Messages API requires the field.
	defaultMaxTokens = 1024

	maxTemperature = 1.0
)

// AnthropicAdapter implements the Provider interface on top of anthropic-sdk-go
type AnthropicAdapter struct {
	client *anthropic.Client
}

// NewAnthropicAdapter creates a new Anthropic adapter.
// SDK-level retries are disabled; the dispatch loop owns retry policy.
func NewAnthropicAdapter(config providers.ProviderConfig) (*AnthropicAdapter, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", ProviderName, services.ErrMissingCredential)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(config.Timeout))
	}
	for k, v := range config.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}

	client := anthropic.NewClient(opts...)
	return &AnthropicAdapter{client: &client}, nil
}

// Name returns the provider name
func (a *AnthropicAdapter) Name() string {
	return ProviderName
}

// DefaultTiers returns the built-in default and fallback models
func (a *AnthropicAdapter) DefaultTiers() (string, string) {
	return DefaultModel, FallbackModel
}

// ChatCompletion performs a chat completion request via the Messages API
func (a *AnthropicAdapter) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	startTime := time.Now()

	message, err := a.client.Messages.New(ctx, buildMessageParams(req))
	if err != nil {
		return nil, a.handleError(err)
	}

	return a.convertToUnifiedResponse(message, time.Since(startTime)), nil
}

// buildMessageParams converts a unified request into Messages API params.
// System turns move to the top-level system field; function turns are sent as user turns.
func buildMessageParams(req *providers.ChatRequest) anthropic.MessageNewParams {
	system, rest := lo.FilterReject(req.Messages, func(m providers.Message, _ int) bool {
		return m.Role == providers.RoleSystem
	})

	maxTokens := int64(defaultMaxTokens)
	if req.MaxTokens > 0 {
		maxTokens = int64(req.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(min(req.Temperature, maxTemperature)),
		Messages: lo.Map(rest, func(m providers.Message, _ int) anthropic.MessageParam {
			if m.Role == providers.RoleAssistant {
				return anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content))
			}
			return anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content))
		}),
	}

	if len(system) > 0 {
		params.System = lo.Map(system, func(m providers.Message, _ int) anthropic.TextBlockParam {
			return anthropic.TextBlockParam{Text: m.Content}
		})
	}
	if req.TopP != nil {
		params.TopP = anthropic.Float(*req.TopP)
	}
	if len(req.Stop) > 0 {
		params.StopSequences = req.Stop
	}

	return params
}

// convertToUnifiedResponse flattens text blocks into a single assistant choice
func (a *AnthropicAdapter) convertToUnifiedResponse(message *anthropic.Message, latency time.Duration) *providers.ChatResponse {
	var text strings.Builder
	for _, blockUnion := range message.Content {
		if block, ok := blockUnion.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(block.Text)
		}
	}

	resp := &providers.ChatResponse{
		ID:       message.ID,
		Model:    string(message.Model),
		Provider: a.Name(),
		Choices: []providers.Choice{
			{
				Message: providers.Message{
					Role:    providers.RoleAssistant,
					Content: text.String(),
				},
				FinishReason: string(message.StopReason),
			},
		},
		Latency: latency,
		Created: time.Now(),
	}

	if message.Usage.InputTokens > 0 || message.Usage.OutputTokens > 0 {
		resp.Usage = &providers.Usage{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
			TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
		}
	}

	return resp
}

// handleError tags an SDK failure with an error class
func (a *AnthropicAdapter) handleError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		code, class := providers.ClassifyStatus(apiErr.StatusCode)
		return providers.NewProviderError(a.Name(), code, "messages request failed", apiErr.StatusCode, class, err)
	}
	return providers.NewProviderError(a.Name(), providers.CodeNetwork, "messages request failed", 0, providers.ClassGeneric, err)
}
