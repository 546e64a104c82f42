package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":8000" || cfg.DataDir != "data" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Model.Provider != "openai" || cfg.Model.Name != "gpt-4o-mini" {
		t.Errorf("unexpected model defaults: %+v", cfg.Model)
	}
	if cfg.Runner.MaxModelCalls != 50 || cfg.Runner.RunTimeout != 2*time.Minute {
		t.Errorf("unexpected runner defaults: %+v", cfg.Runner)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
listen: ":9001"
model:
  provider: anthropic
  name: claude-3-5-sonnet-20241022
runner:
  max_model_calls: 10
  run_timeout: 30s
logging:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":9001" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.Model.Provider != "anthropic" || cfg.Model.Name != "claude-3-5-sonnet-20241022" {
		t.Errorf("model = %+v", cfg.Model)
	}
	if cfg.Runner.RunTimeout != 30*time.Second || cfg.Runner.MaxModelCalls != 10 {
		t.Errorf("runner = %+v", cfg.Runner)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	// File values merge over defaults, untouched fields keep them.
	if cfg.DataDir != "data" {
		t.Errorf("data_dir = %q", cfg.DataDir)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("listen: \":9001\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("AGENTCITY_LISTEN", ":7777")
	t.Setenv("AGENTCITY_MODEL_PROVIDER", "mock")
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_KEY", "secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":7777" {
		t.Errorf("env should win over file: %q", cfg.Listen)
	}
	if cfg.Model.Provider != "mock" {
		t.Errorf("provider = %q", cfg.Model.Provider)
	}
	if cfg.Remote.URL != "https://example.supabase.co" || cfg.Remote.APIKey != "secret" {
		t.Errorf("remote = %+v", cfg.Remote)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("missing explicit config file should error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"bad provider", func(c *Config) { c.Model.Provider = "llama-at-home" }, false},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, false},
		{"empty listen", func(c *Config) { c.Listen = "" }, false},
		{"negative budget", func(c *Config) { c.Runner.MaxModelCalls = -1 }, false},
		{"mock provider", func(c *Config) { c.Model.Provider = "mock" }, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaults()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}
