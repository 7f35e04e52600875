package dispatch

import "github.com/upb/llm-dispatch/services/providers"

// normalizeResponse maps a provider response to a CompletionResult. A response
// without choices yields empty content rather than an error.
func normalizeResponse(resp *providers.ChatResponse, opts Options, tier string) *CompletionResult {
	result := &CompletionResult{ModelUsed: tier}
	if resp == nil {
		return result
	}

	if len(resp.Choices) > 0 {
		result.Content = resp.Choices[0].Message.Content
	}

	if opts.IncludeUsage && resp.Usage != nil {
		result.Usage = &Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}

	return result
}
