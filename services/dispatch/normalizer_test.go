package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb/llm-dispatch/services/providers"
)

func TestNormalizeResponse(t *testing.T) {
	usage := &providers.Usage{PromptTokens: 5, CompletionTokens: 7, TotalTokens: 12}
	withChoice := func(u *providers.Usage) *providers.ChatResponse {
		return &providers.ChatResponse{
			Model: "gpt-4o-2024-08-06",
			Choices: []providers.Choice{
				{Message: providers.Message{Role: RoleAssistant, Content: "first"}},
				{Message: providers.Message{Role: RoleAssistant, Content: "second"}},
			},
			Usage: u,
		}
	}

	tests := []struct {
		name         string
		resp         *providers.ChatResponse
		includeUsage bool
		wantContent  string
		wantUsage    bool
	}{
		{"usage requested and supplied", withChoice(usage), true, "first", true},
		{"usage not requested", withChoice(usage), false, "first", false},
		{"usage requested but absent", withChoice(nil), true, "first", false},
		{"no choices", &providers.ChatResponse{Usage: usage}, true, "", true},
		{"nil response", nil, true, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := normalizeResponse(tt.resp, Options{IncludeUsage: tt.includeUsage}, "tier-x")

			require.NotNil(t, result)
			assert.Equal(t, tt.wantContent, result.Content)
			assert.Equal(t, "tier-x", result.ModelUsed)
			if tt.wantUsage {
				require.NotNil(t, result.Usage)
				assert.Equal(t, Usage{PromptTokens: 5, CompletionTokens: 7, TotalTokens: 12}, *result.Usage)
			} else {
				assert.Nil(t, result.Usage)
			}
		})
	}
}
