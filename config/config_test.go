package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb/llm-dispatch/services"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "default configuration",
			envVars: map[string]string{
				"DISPATCH_API_KEY": "sk-test",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.Environment)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
				assert.Equal(t, "openai", cfg.Dispatch.Provider)
				assert.Equal(t, "gpt-4o", cfg.Dispatch.DefaultModel)
				assert.Equal(t, "gpt-4o-mini", cfg.Dispatch.FallbackModel)
				assert.Equal(t, 3, cfg.Dispatch.MaxAttempts)
				assert.Equal(t, time.Second, cfg.Dispatch.BaseDelay)
				assert.Equal(t, "info", cfg.Observability.LogLevel)
				assert.Equal(t, "json", cfg.Observability.LogFormat)
			},
		},
		{
			name: "anthropic provider with native key variable",
			envVars: map[string]string{
				"DISPATCH_PROVIDER": "Anthropic",
				"ANTHROPIC_API_KEY": "sk-ant-test",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "anthropic", cfg.Dispatch.Provider)
				assert.Equal(t, "sk-ant-test", cfg.Dispatch.APIKey)
				assert.Equal(t, "claude-sonnet-4-5", cfg.Dispatch.DefaultModel)
				assert.Equal(t, "claude-haiku-4-5", cfg.Dispatch.FallbackModel)
			},
		},
		{
			name: "explicit tiers and retry settings",
			envVars: map[string]string{
				"DISPATCH_API_KEY":        "sk-test",
				"DISPATCH_DEFAULT_MODEL":  "gpt-4.1",
				"DISPATCH_FALLBACK_MODEL": "gpt-4.1-mini",
				"DISPATCH_MAX_ATTEMPTS":   "5",
				"DISPATCH_BASE_DELAY":     "250ms",
				"DISPATCH_BASE_URL":       "http://localhost:9999/v1",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "gpt-4.1", cfg.Dispatch.DefaultModel)
				assert.Equal(t, "gpt-4.1-mini", cfg.Dispatch.FallbackModel)
				assert.Equal(t, 5, cfg.Dispatch.MaxAttempts)
				assert.Equal(t, 250*time.Millisecond, cfg.Dispatch.BaseDelay)
				assert.Equal(t, "http://localhost:9999/v1", cfg.Dispatch.BaseURL)
			},
		},
		{
			name: "server settings",
			envVars: map[string]string{
				"DISPATCH_API_KEY":     "sk-test",
				"SERVER_READ_TIMEOUT":  "60s",
				"SERVER_WRITE_TIMEOUT": "90s",
				"CORS_ALLOWED_ORIGINS": "https://a.example.com, https://b.example.com",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 90*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)
			},
		},
		{
			name: "PORT env var takes precedence over SERVER_PORT",
			envVars: map[string]string{
				"DISPATCH_API_KEY": "sk-test",
				"PORT":             "9443",
				"SERVER_PORT":      "9000",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9443, cfg.Server.Port)
			},
		},
		{
			name: "observability configuration",
			envVars: map[string]string{
				"DISPATCH_API_KEY": "sk-test",
				"LOG_LEVEL":        "debug",
				"LOG_FORMAT":       "console",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Observability.LogLevel)
				assert.Equal(t, "console", cfg.Observability.LogFormat)
			},
		},
		{
			name:    "missing credential",
			envVars: map[string]string{},
			wantErr: true,
		},
		{
			name: "unknown provider",
			envVars: map[string]string{
				"DISPATCH_API_KEY":  "sk-test",
				"DISPATCH_PROVIDER": "bedrock",
			},
			wantErr: true,
		},
		{
			name: "too many attempts",
			envVars: map[string]string{
				"DISPATCH_API_KEY":      "sk-test",
				"DISPATCH_MAX_ATTEMPTS": "50",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			// Set test environment variables
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg, err := New(context.Background())

			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, services.IsConfigurationError(err))
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestNew_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dispatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: staging
server:
  port: 7070
  allowed_origins: ["https://app.example.com"]
dispatch:
  provider: anthropic
  api_key: from-file
  fallback_model: claude-3-5-haiku-latest
  base_delay: 500ms
observability:
  log_format: console
`), 0o600))

	os.Clearenv()
	os.Setenv("DISPATCH_CONFIG_FILE", path)
	os.Setenv("SERVER_PORT", "7171")

	cfg, err := New(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, 7171, cfg.Server.Port, "env overrides file")
	assert.Equal(t, "0.0.0.0", cfg.Server.Host, "defaults survive the overlay")
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "anthropic", cfg.Dispatch.Provider)
	assert.Equal(t, "from-file", cfg.Dispatch.APIKey)
	assert.Equal(t, "claude-sonnet-4-5", cfg.Dispatch.DefaultModel)
	assert.Equal(t, "claude-3-5-haiku-latest", cfg.Dispatch.FallbackModel)
	assert.Equal(t, 500*time.Millisecond, cfg.Dispatch.BaseDelay)
	assert.Equal(t, 3, cfg.Dispatch.MaxAttempts)
	assert.Equal(t, "console", cfg.Observability.LogFormat)
	assert.Equal(t, "info", cfg.Observability.LogLevel)
}

func TestNew_ConfigFileErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("DISPATCH_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

		_, err := New(context.Background())
		assert.ErrorContains(t, err, "read config file")
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("dispatch: [unclosed"), 0o600))
		os.Clearenv()
		os.Setenv("DISPATCH_CONFIG_FILE", path)

		_, err := New(context.Background())
		assert.ErrorContains(t, err, "parse config file")
	})
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := defaults()
		cfg.Dispatch.APIKey = "sk-test"
		return &cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid config", func(*Config) {}, ""},
		{"missing api key", func(c *Config) { c.Dispatch.APIKey = "" }, "API key is required"},
		{"unknown provider", func(c *Config) { c.Dispatch.Provider = "azure" }, "unknown provider"},
		{"zero attempts", func(c *Config) { c.Dispatch.MaxAttempts = 0 }, "max attempts"},
		{"zero base delay", func(c *Config) { c.Dispatch.BaseDelay = 0 }, "base delay"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"missing log level", func(c *Config) { c.Observability.LogLevel = "" }, "log level is required"},
		{"bad log format", func(c *Config) { c.Observability.LogFormat = "xml" }, "unsupported log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.True(t, services.IsConfigurationError(err))
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		environment string
		want        bool
	}{
		{"production", true},
		{"prod", true},
		{"development", false},
		{"staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.environment, func(t *testing.T) {
			cfg := &Config{Environment: tt.environment}
			assert.Equal(t, tt.want, cfg.IsProduction())
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	assert.True(t, (&Config{Environment: "dev"}).IsDevelopment())
	assert.False(t, (&Config{Environment: "production"}).IsDevelopment())
}

func TestServerConfig_Address(t *testing.T) {
	cfg := ServerConfig{Host: "0.0.0.0", Port: 8080}
	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue int
		want         int
	}{
		{"valid int", "42", 10, 42},
		{"empty value", "", 10, 10},
		{"invalid int", "not-a-number", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv("TEST_INT", tt.value)
			}
			assert.Equal(t, tt.want, getEnvAsInt("TEST_INT", tt.defaultValue))
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	os.Clearenv()
	assert.Equal(t, time.Second, getEnvAsDuration("TEST_DURATION", time.Second))

	os.Setenv("TEST_DURATION", "2m")
	assert.Equal(t, 2*time.Minute, getEnvAsDuration("TEST_DURATION", time.Second))

	os.Setenv("TEST_DURATION", "soon")
	assert.Equal(t, time.Second, getEnvAsDuration("TEST_DURATION", time.Second))
}

func TestGetEnvAsList(t *testing.T) {
	os.Clearenv()
	assert.Equal(t, []string{"x"}, getEnvAsList("TEST_LIST", []string{"x"}))

	os.Setenv("TEST_LIST", "a, ,b,")
	assert.Equal(t, []string{"a", "b"}, getEnvAsList("TEST_LIST", nil))
}
