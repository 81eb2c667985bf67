// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string
	Port int
}

// YouTrackConfig holds tracker connection settings.
type YouTrackConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// LLMConfig holds completion provider settings.
type LLMConfig struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// CacheConfig holds embedded cache settings.
type CacheConfig struct {
	Dir       string
	InMemory  bool
	KeyPrefix string
}

// RetryConfig holds remote call retry settings.
type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
}

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig
	YouTrack YouTrackConfig
	LLM      LLMConfig
	Cache    CacheConfig
	Retry    RetryConfig
}

// Load reads configuration from environment variables and validates the
// tracker settings. LLM settings are validated separately by ValidateLLM so
// tools that never call the model can skip them.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	bindings := map[string]string{
		"server.host":        "SERVER_HOST",
		"server.port":        "SERVER_PORT",
		"youtrack.base_url":  "YOUTRACK_BASE_URL",
		"youtrack.token":     "YOUTRACK_API_TOKEN",
		"youtrack.timeout":   "YOUTRACK_TIMEOUT",
		"llm.provider":       "LLM_PROVIDER",
		"llm.model":          "LLM_MODEL",
		"llm.api_key":        "LLM_API_KEY",
		"llm.base_url":       "LLM_SERVICE_URL",
		"llm.max_tokens":     "LLM_MAX_TOKENS",
		"llm.temperature":    "LLM_TEMPERATURE",
		"llm.timeout":        "LLM_TIMEOUT",
		"cache.dir":          "CACHE_DIR",
		"cache.in_memory":    "CACHE_IN_MEMORY",
		"cache.key_prefix":   "CACHE_KEY_PREFIX",
		"retry.max_attempts": "RETRY_MAX_ATTEMPTS",
		"retry.delay":        "RETRY_DELAY",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("youtrack.timeout", "30s")
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("cache.dir", "/var/lib/youtrack-analyzer/cache")
	v.SetDefault("cache.in_memory", false)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.delay", "1s")

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("server.host"),
			Port: v.GetInt("server.port"),
		},
		YouTrack: YouTrackConfig{
			BaseURL: v.GetString("youtrack.base_url"),
			Token:   v.GetString("youtrack.token"),
			Timeout: v.GetDuration("youtrack.timeout"),
		},
		LLM: LLMConfig{
			Provider:    v.GetString("llm.provider"),
			Model:       v.GetString("llm.model"),
			APIKey:      v.GetString("llm.api_key"),
			BaseURL:     v.GetString("llm.base_url"),
			MaxTokens:   v.GetInt("llm.max_tokens"),
			Temperature: v.GetFloat64("llm.temperature"),
			Timeout:     v.GetDuration("llm.timeout"),
		},
		Cache: CacheConfig{
			Dir:       v.GetString("cache.dir"),
			InMemory:  v.GetBool("cache.in_memory"),
			KeyPrefix: v.GetString("cache.key_prefix"),
		},
		Retry: RetryConfig{
			MaxAttempts: v.GetInt("retry.max_attempts"),
			Delay:       v.GetDuration("retry.delay"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	var missing []string
	if cfg.YouTrack.BaseURL == "" {
		missing = append(missing, "YOUTRACK_BASE_URL")
	}
	if cfg.YouTrack.Token == "" {
		missing = append(missing, "YOUTRACK_API_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ValidateLLM checks the settings needed to call the completion provider.
func ValidateLLM(cfg *Config) error {
	if cfg.LLM.APIKey == "" {
		return fmt.Errorf("missing required environment variable: LLM_API_KEY")
	}
	return nil
}
