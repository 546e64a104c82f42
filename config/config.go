// Package config loads server configuration from an optional YAML file with
// environment variable overrides on top.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Listen  string        `yaml:"listen"`
	DataDir string        `yaml:"data_dir"`
	Model   ModelConfig   `yaml:"model"`
	Remote  RemoteConfig  `yaml:"remote"`
	Runner  RunnerConfig  `yaml:"runner"`
	Logging LoggingConfig `yaml:"logging"`
}

// ModelConfig selects the LLM provider.
type ModelConfig struct {
	Provider    string  `yaml:"provider"` // "openai", "anthropic" or "mock"
	Name        string  `yaml:"name"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int64   `yaml:"max_tokens"`
}

// RemoteConfig configures the optional remote world-state table backend.
// When URL is empty the file backend under DataDir is used.
type RemoteConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
	Table  string `yaml:"table"`
}

// RunnerConfig bounds run execution.
type RunnerConfig struct {
	MaxModelCalls int           `yaml:"max_model_calls"`
	RunTimeout    time.Duration `yaml:"run_timeout"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

func defaults() Config {
	return Config{
		Listen:  ":8000",
		DataDir: "data",
		Model: ModelConfig{
			Provider:    "openai",
			Name:        "gpt-4o-mini",
			Temperature: 0.7,
			MaxTokens:   4096,
		},
		Runner: RunnerConfig{
			MaxModelCalls: 50,
			RunTimeout:    2 * time.Minute,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads the config file at path (empty path skips the file), applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("config: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("AGENTCITY_LISTEN")); v != "" {
		c.Listen = v
	}
	if v := strings.TrimSpace(os.Getenv("AGENTCITY_DATA_DIR")); v != "" {
		c.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv("AGENTCITY_MODEL_PROVIDER")); v != "" {
		c.Model.Provider = v
	}
	if v := strings.TrimSpace(os.Getenv("AGENTCITY_MODEL_NAME")); v != "" {
		c.Model.Name = v
	}
	if v := strings.TrimSpace(os.Getenv("SUPABASE_URL")); v != "" {
		c.Remote.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("SUPABASE_KEY")); v != "" {
		c.Remote.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("AGENTCITY_LOG_LEVEL")); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks field values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case "openai", "anthropic", "mock":
	default:
		return fmt.Errorf("unknown model provider %q", c.Model.Provider)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	if c.Listen == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.Runner.MaxModelCalls < 0 {
		return fmt.Errorf("max_model_calls must not be negative")
	}
	return nil
}
