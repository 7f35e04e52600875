package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/llm-dispatch/internal/observability"
	"github.com/upb/llm-dispatch/services"
	"github.com/upb/llm-dispatch/services/providers"
	"github.com/upb/llm-dispatch/utils"
)

// Config is the immutable configuration of a Client
type Config struct {
	// APIKey is the static credential for the provider; required
	APIKey string

	// DefaultModel is the tier tried first
	DefaultModel string

	// FallbackModel is the less-loaded tier used after a rate-limit or overload failure
	FallbackModel string

	// MaxAttempts bounds attempts per call
	MaxAttempts int

	// BaseDelay is the unit of the linear backoff between attempts
	BaseDelay time.Duration
}

// withDefaults fills unset fields with built-in values. Empty tiers come from
// the transport when it ships its own, else from DefaultModel/FallbackModel.
func (c Config) withDefaults(transport providers.Provider) Config {
	primary, fallback := DefaultModel, FallbackModel
	if td, ok := transport.(providers.TierDefaults); ok {
		primary, fallback = td.DefaultTiers()
	}
	if c.DefaultModel == "" {
		c.DefaultModel = primary
	}
	if c.FallbackModel == "" {
		c.FallbackModel = fallback
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BaseDelay == 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	return c
}

// Client dispatches completion calls to a single transport. It holds no
// per-call state and is safe for concurrent use.
type Client struct {
	config    Config
	transport providers.Provider
	logger    *zap.Logger
	sleep     SleepFunc
}

// ClientOption configures optional Client collaborators
type ClientOption func(*Client)

// WithLogger sets the logger used when the context carries no request-scoped
// logger. The default discards output.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSleepFunc replaces the backoff wait, mainly for tests
func WithSleepFunc(sleep SleepFunc) ClientOption {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// NewClient creates a Client. Configuration problems are reported here, before
// any network call.
func NewClient(cfg Config, transport providers.Provider, opts ...ClientOption) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, services.ErrMissingCredential
	}
	if transport == nil {
		return nil, services.ErrMissingTransport
	}

	cfg = cfg.withDefaults(transport)
	if cfg.MaxAttempts < 1 {
		return nil, services.ErrInvalidMaxAttempts
	}
	if cfg.BaseDelay < 0 {
		return nil, services.WrapConfiguration("base delay must not be negative", nil)
	}

	c := &Client{
		config:    cfg,
		transport: transport,
		logger:    zap.NewNop(),
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Complete sends conv to the provider and returns the normalized result.
// Invalid input fails with a validation error without contacting the provider;
// provider failures are retried and surface only as a *services.DispatchError.
func (c *Client) Complete(ctx context.Context, conv Conversation, opts Options) (*CompletionResult, error) {
	if len(conv) == 0 {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "invalid completion input", services.ErrEmptyConversation).
			WithDetail("Conversation", services.ErrEmptyConversation.Message)
	}
	if err := utils.ValidateStruct(&completionInput{Conversation: conv, Options: opts}); err != nil {
		domainErr := services.NewDomainError(services.ErrorTypeValidation, "invalid completion input", err)
		for field, msg := range utils.GetValidationFields(err) {
			domainErr.WithDetail(field, msg)
		}
		return nil, domainErr
	}

	logger := observability.FromContext(ctx, c.logger).With(
		zap.String("dispatch_id", uuid.New().String()),
		zap.String("provider", c.transport.Name()),
	)
	logger.Debug("starting completion",
		zap.Int("turns", len(conv)),
		zap.String("model_override", opts.Model),
	)

	req := buildRequest(conv, opts, c.config.DefaultModel)
	return c.dispatch(ctx, req, opts, logger)
}

// Config returns the effective configuration, defaults applied
func (c *Client) Config() Config {
	return c.config
}

// ProviderName returns the name of the underlying transport
func (c *Client) ProviderName() string {
	return c.transport.Name()
}
