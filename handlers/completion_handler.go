package handlers

import (
	"context"
	"net/http"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/upb/llm-dispatch/internal/observability"
	"github.com/upb/llm-dispatch/services/dispatch"
	"github.com/upb/llm-dispatch/utils"
)

// Completer is the completion service the handler delegates to
type Completer interface {
	Complete(ctx context.Context, conv dispatch.Conversation, opts dispatch.Options) (*dispatch.CompletionResult, error)
}

// CompletionRequest is the body of POST /api/v1/completions
type CompletionRequest struct {
	Messages     []CompletionMessage `json:"messages" validate:"required,min=1,dive"`
	Model        string              `json:"model,omitempty"`
	Temperature  *float64            `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	MaxTokens    *int                `json:"max_tokens,omitempty" validate:"omitempty,gt=0"`
	TopP         *float64            `json:"top_p,omitempty" validate:"omitempty,gte=0,lte=1"`
	Stop         []string            `json:"stop,omitempty" validate:"omitempty,dive,min=1"`
	SystemPrompt string              `json:"system_prompt,omitempty"`
	IncludeUsage bool                `json:"include_usage,omitempty"`
}

// CompletionMessage is one turn of the request conversation
type CompletionMessage struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant function"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// CompletionHandler handles completion requests
type CompletionHandler struct {
	service Completer
	logger  *zap.Logger
}

// NewCompletionHandler creates a new CompletionHandler. A nil service makes
// every request answer 503.
func NewCompletionHandler(service Completer, logger *zap.Logger) *CompletionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompletionHandler{
		service: service,
		logger:  logger,
	}
}

// HandleCompletion handles POST /api/v1/completions
func (h *CompletionHandler) HandleCompletion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx, h.logger)

	if h.service == nil {
		if err := utils.WriteServiceUnavailable(w, "completion service is not configured"); err != nil {
			logger.Error("failed to write response", zap.Error(err))
		}
		return
	}

	var req CompletionRequest
	if err := utils.DecodeJSONStrict(r.Body, &req); err != nil {
		logger.Debug("rejected completion body", zap.Error(err))
		HandleValidationError(w, err, logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, logger)
		return
	}

	conv, opts := req.toDispatch()

	result, err := h.service.Complete(ctx, conv, opts)
	if err != nil {
		logger.Warn("completion failed",
			zap.String("model", req.Model),
			zap.Error(err))
		HandleServiceError(w, err, logger)
		return
	}

	logger.Debug("completion served",
		zap.String("model_used", result.ModelUsed),
		zap.Bool("usage", result.Usage != nil))

	if err := utils.WriteOK(w, result); err != nil {
		logger.Error("failed to write response", zap.Error(err))
	}
}

// toDispatch maps the wire request onto the completion call arguments
func (req *CompletionRequest) toDispatch() (dispatch.Conversation, dispatch.Options) {
	conv := lo.Map(req.Messages, func(m CompletionMessage, _ int) dispatch.Turn {
		return dispatch.Turn{Role: m.Role, Content: m.Content, Name: m.Name}
	})

	return conv, dispatch.Options{
		Model:         req.Model,
		Temperature:   req.Temperature,
		MaxTokens:     req.MaxTokens,
		TopP:          req.TopP,
		StopSequences: req.Stop,
		SystemPrompt:  req.SystemPrompt,
		IncludeUsage:  req.IncludeUsage,
	}
}
