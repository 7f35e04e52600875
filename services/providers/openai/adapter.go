package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/upb/llm-dispatch/services"
	"github.com/upb/llm-dispatch/services/providers"
)

const (
	// ProviderName identifies this transport in config and logs
	ProviderName = "openai"

	// DefaultModel and FallbackModel are the built-in tiers
	DefaultModel  = "gpt-4o"
	FallbackModel = "gpt-4o-mini"
)

// OpenAIAdapter implements the Provider interface on top of go-openai
type OpenAIAdapter struct {
	client *goopenai.Client
}

// NewOpenAIAdapter creates a new OpenAI adapter.
// An empty API key is rejected before any network call is made.
func NewOpenAIAdapter(config providers.ProviderConfig) (*OpenAIAdapter, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", ProviderName, services.ErrMissingCredential)
	}

	clientConfig := goopenai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	clientConfig.HTTPClient = &http.Client{
		Timeout:   timeout,
		Transport: &headerTransport{headers: config.Headers, base: http.DefaultTransport},
	}

	return &OpenAIAdapter{client: goopenai.NewClientWithConfig(clientConfig)}, nil
}

// Name returns the provider name
func (a *OpenAIAdapter) Name() string {
	return ProviderName
}

// DefaultTiers returns the built-in default and fallback models
func (a *OpenAIAdapter) DefaultTiers() (string, string) {
	return DefaultModel, FallbackModel
}

// ChatCompletion performs a chat completion request
func (a *OpenAIAdapter) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	startTime := time.Now()

	resp, err := a.client.CreateChatCompletion(ctx, buildOpenAIRequest(req))
	if err != nil {
		return nil, a.handleError(err)
	}

	return a.convertToUnifiedResponse(&resp, time.Since(startTime)), nil
}

// buildOpenAIRequest converts unified request to OpenAI format
func buildOpenAIRequest(req *providers.ChatRequest) goopenai.ChatCompletionRequest {
	chatReq := goopenai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: make([]goopenai.ChatCompletionMessage, len(req.Messages)),
		Stop:     req.Stop,
		// go-openai drops a zero temperature on the wire, which the API reads as 1.0
		Temperature: float32(req.Temperature),
	}
	if req.Temperature == 0 {
		chatReq.Temperature = math.SmallestNonzeroFloat32
	}

	for i, msg := range req.Messages {
		chatReq.Messages[i] = goopenai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
			Name:    msg.Name,
		}
	}

	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if req.TopP != nil {
		// Same omitempty problem as temperature; the API would default top_p to 1.0
		chatReq.TopP = float32(*req.TopP)
		if *req.TopP == 0 {
			chatReq.TopP = math.SmallestNonzeroFloat32
		}
	}

	return chatReq
}

// convertToUnifiedResponse converts OpenAI response to unified format
func (a *OpenAIAdapter) convertToUnifiedResponse(resp *goopenai.ChatCompletionResponse, latency time.Duration) *providers.ChatResponse {
	unified := &providers.ChatResponse{
		ID:       resp.ID,
		Model:    resp.Model,
		Provider: a.Name(),
		Choices:  make([]providers.Choice, len(resp.Choices)),
		Latency:  latency,
		Created:  time.Unix(resp.Created, 0),
	}

	// go-openai has no way to tell an absent usage block from a zeroed one
	if resp.Usage.TotalTokens > 0 || resp.Usage.PromptTokens > 0 || resp.Usage.CompletionTokens > 0 {
		unified.Usage = &providers.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}

	for i, choice := range resp.Choices {
		unified.Choices[i] = providers.Choice{
			Index: choice.Index,
			Message: providers.Message{
				Role:    choice.Message.Role,
				Content: choice.Message.Content,
				Name:    choice.Message.Name,
			},
			FinishReason: string(choice.FinishReason),
		}
	}

	return unified
}

// handleError tags a go-openai failure with an error class
func (a *OpenAIAdapter) handleError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		code, class := providers.ClassifyStatus(apiErr.HTTPStatusCode)
		return providers.NewProviderError(a.Name(), code, apiErr.Message, apiErr.HTTPStatusCode, class, err)
	}

	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		code, class := providers.ClassifyStatus(reqErr.HTTPStatusCode)
		return providers.NewProviderError(a.Name(), code, "request failed", reqErr.HTTPStatusCode, class, err)
	}

	return providers.NewProviderError(a.Name(), providers.CodeNetwork, "chat completion failed", 0, providers.ClassGeneric, err)
}

// headerTransport adds static headers to every outbound request
type headerTransport struct {
	headers map[string]string
	base    http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(t.headers) == 0 {
		return t.base.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	for k, v := range t.headers {
		clone.Header.Set(k, v)
	}
	return t.base.RoundTrip(clone)
}
