package dispatch

import (
	"github.com/samber/lo"

	"github.com/upb/llm-dispatch/services/providers"
)

// buildRequest assembles the provider payload for a call. It is pure: conv is
// never mutated and the same inputs always yield an equal request.
func buildRequest(conv Conversation, opts Options, defaultTier string) *providers.ChatRequest {
	messages := lo.Map(conv, func(t Turn, _ int) providers.Message {
		return providers.Message{Role: t.Role, Content: t.Content, Name: t.Name}
	})

	hasSystem := lo.ContainsBy(conv, func(t Turn) bool { return t.Role == RoleSystem })
	if opts.SystemPrompt != "" && !hasSystem {
		messages = append([]providers.Message{{Role: RoleSystem, Content: opts.SystemPrompt}}, messages...)
	}

	req := &providers.ChatRequest{
		Model:       lo.Ternary(opts.Model != "", opts.Model, defaultTier),
		Messages:    messages,
		Temperature: lo.FromPtrOr(opts.Temperature, DefaultTemperature),
		MaxTokens:   lo.FromPtr(opts.MaxTokens),
		TopP:        opts.TopP,
	}
	if len(opts.StopSequences) > 0 {
		req.Stop = append([]string(nil), opts.StopSequences...)
	}

	return req
}
