package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/upb/llm-dispatch/config"
	"github.com/upb/llm-dispatch/services"
	"github.com/upb/llm-dispatch/services/dispatch"
	"github.com/upb/llm-dispatch/services/providers"
	"github.com/upb/llm-dispatch/services/providers/anthropic"
	"github.com/upb/llm-dispatch/services/providers/openai"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	Config *config.Config
	Logger *zap.Logger

	// Transport is the provider adapter selected by Config.Dispatch.Provider
	Transport providers.Provider

	// Dispatcher runs completion calls against Transport
	Dispatcher *dispatch.Client
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initTransport(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize transport: %w", err)
	}

	if err := deps.initDispatcher(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize dispatcher: %w", err)
	}

	logger.Info("all dependencies initialized successfully",
		zap.String("provider", deps.Transport.Name()))
	return deps, nil
}

// initTransport builds the provider adapter named in the configuration
func (d *Dependencies) initTransport(cfg *config.Config) error {
	providerCfg := providers.DefaultProviderConfig()
	providerCfg.APIKey = cfg.Dispatch.APIKey
	providerCfg.BaseURL = cfg.Dispatch.BaseURL
	if cfg.Dispatch.Timeout > 0 {
		providerCfg.Timeout = cfg.Dispatch.Timeout
	}

	switch cfg.Dispatch.Provider {
	case openai.ProviderName:
		adapter, err := openai.NewOpenAIAdapter(providerCfg)
		if err != nil {
			return services.WrapConfiguration("invalid openai transport", err)
		}
		d.Transport = adapter
	case anthropic.ProviderName:
		adapter, err := anthropic.NewAnthropicAdapter(providerCfg)
		if err != nil {
			return services.WrapConfiguration("invalid anthropic transport", err)
		}
		d.Transport = adapter
	default:
		return fmt.Errorf("%w: %q", services.ErrUnknownProvider, cfg.Dispatch.Provider)
	}

	d.Logger.Info("registered provider", zap.String("provider", d.Transport.Name()))
	return nil
}

// initDispatcher builds the completion client on top of the transport
func (d *Dependencies) initDispatcher(cfg *config.Config) error {
	client, err := dispatch.NewClient(dispatch.Config{
		APIKey:        cfg.Dispatch.APIKey,
		DefaultModel:  cfg.Dispatch.DefaultModel,
		FallbackModel: cfg.Dispatch.FallbackModel,
		MaxAttempts:   cfg.Dispatch.MaxAttempts,
		BaseDelay:     cfg.Dispatch.BaseDelay,
	}, d.Transport, dispatch.WithLogger(d.Logger))
	if err != nil {
		return err
	}

	d.Dispatcher = client
	d.Logger.Info("dispatcher initialized",
		zap.String("default_model", client.Config().DefaultModel),
		zap.String("fallback_model", client.Config().FallbackModel),
		zap.Int("max_attempts", client.Config().MaxAttempts))
	return nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	// Sync logger; stderr sync errors are expected on some platforms
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}
	return nil
}
