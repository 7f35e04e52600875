package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/upb/llm-dispatch/services"
	"github.com/upb/llm-dispatch/services/providers/anthropic"
	"github.com/upb/llm-dispatch/services/providers/openai"
	"github.com/upb/llm-dispatch/utils"
)

// Config represents the complete application configuration
type Config struct {
	Environment   string              `yaml:"environment"`
	Server        ServerConfig        `yaml:"server"`
	Dispatch      DispatchConfig      `yaml:"dispatch"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// DispatchConfig holds the completion client and transport configuration
type DispatchConfig struct {
	// Provider selects the transport: "openai" or "anthropic"
	Provider      string        `yaml:"provider"`
	APIKey        string        `yaml:"api_key"`
	BaseURL       string        `yaml:"base_url"`
	DefaultModel  string        `yaml:"default_model"`
	FallbackModel string        `yaml:"fallback_model"`
	MaxAttempts   int           `yaml:"max_attempts"`
	BaseDelay     time.Duration `yaml:"base_delay"`
	Timeout       time.Duration `yaml:"timeout"`
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // json, console or text
}

// providerTiers holds the built-in default and fallback tiers per provider
var providerTiers = map[string][2]string{
	openai.ProviderName:    {openai.DefaultModel, openai.FallbackModel},
	anthropic.ProviderName: {anthropic.DefaultModel, anthropic.FallbackModel},
}

// defaults returns the configuration used when nothing else is set
func defaults() Config {
	return Config{
		Environment: "development",
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    90 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  60 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Dispatch: DispatchConfig{
			Provider:    openai.ProviderName,
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			Timeout:     30 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}

// New creates a new Config. Sources in increasing precedence: built-in defaults,
// the YAML file named by DISPATCH_CONFIG_FILE, environment variables (.env included).
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := defaults()

	if path := os.Getenv("DISPATCH_CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	cfg.applyProviderDefaults()

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// mergeFile overlays non-zero values from a YAML file
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if err := mergo.Merge(c, overlay, mergo.WithOverride); err != nil {
		return fmt.Errorf("merge config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides fields from environment variables
func (c *Config) applyEnv() {
	c.Environment = getEnv("ENVIRONMENT", c.Environment)

	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Server.Port = getPort(c.Server.Port)
	c.Server.ReadTimeout = getEnvAsDuration("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvAsDuration("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.ShutdownTimeout = getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.RequestTimeout = getEnvAsDuration("SERVER_REQUEST_TIMEOUT", c.Server.RequestTimeout)
	c.Server.AllowedOrigins = getEnvAsList("CORS_ALLOWED_ORIGINS", c.Server.AllowedOrigins)

	c.Dispatch.Provider = strings.ToLower(getEnv("DISPATCH_PROVIDER", c.Dispatch.Provider))
	c.Dispatch.APIKey = getEnv("DISPATCH_API_KEY", c.Dispatch.APIKey)
	if c.Dispatch.APIKey == "" {
		// Provider-native variable as a last resort
		c.Dispatch.APIKey = getEnv(strings.ToUpper(c.Dispatch.Provider)+"_API_KEY", "")
	}
	c.Dispatch.BaseURL = getEnv("DISPATCH_BASE_URL", c.Dispatch.BaseURL)
	c.Dispatch.DefaultModel = getEnv("DISPATCH_DEFAULT_MODEL", c.Dispatch.DefaultModel)
	c.Dispatch.FallbackModel = getEnv("DISPATCH_FALLBACK_MODEL", c.Dispatch.FallbackModel)
	c.Dispatch.MaxAttempts = getEnvAsInt("DISPATCH_MAX_ATTEMPTS", c.Dispatch.MaxAttempts)
	c.Dispatch.BaseDelay = getEnvAsDuration("DISPATCH_BASE_DELAY", c.Dispatch.BaseDelay)
	c.Dispatch.Timeout = getEnvAsDuration("DISPATCH_TIMEOUT", c.Dispatch.Timeout)

	c.Observability.LogLevel = getEnv("LOG_LEVEL", c.Observability.LogLevel)
	c.Observability.LogFormat = getEnv("LOG_FORMAT", c.Observability.LogFormat)
}

// applyProviderDefaults fills empty tiers with the provider's built-in models
func (c *Config) applyProviderDefaults() {
	tiers, ok := providerTiers[c.Dispatch.Provider]
	if !ok {
		return
	}
	if c.Dispatch.DefaultModel == "" {
		c.Dispatch.DefaultModel = tiers[0]
	}
	if c.Dispatch.FallbackModel == "" {
		c.Dispatch.FallbackModel = tiers[1]
	}
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if _, ok := providerTiers[c.Dispatch.Provider]; !ok {
		return fmt.Errorf("%w: %q", services.ErrUnknownProvider, c.Dispatch.Provider)
	}
	if c.Dispatch.APIKey == "" {
		return fmt.Errorf("%w: set DISPATCH_API_KEY", services.ErrMissingCredential)
	}
	if c.Dispatch.MaxAttempts < 1 || c.Dispatch.MaxAttempts > 10 {
		return services.WrapConfiguration(fmt.Sprintf("max attempts must be between 1 and 10, got %d", c.Dispatch.MaxAttempts), nil)
	}
	if c.Dispatch.BaseDelay <= 0 {
		return services.WrapConfiguration("base delay must be positive", nil)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return services.WrapConfiguration(fmt.Sprintf("invalid server port %d", c.Server.Port), nil)
	}

	// Observability validation
	if c.Observability.LogLevel == "" {
		return services.WrapConfiguration("log level is required", nil)
	}
	if err := utils.ValidateVar(c.Observability.LogFormat, "oneof=json console text"); err != nil {
		return services.WrapConfiguration(fmt.Sprintf("unsupported log format %q", c.Observability.LogFormat), err)
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars
func getPort(defaultValue int) int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return getEnvAsInt("SERVER_PORT", defaultValue)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			list = append(list, p)
		}
	}
	return list
}
