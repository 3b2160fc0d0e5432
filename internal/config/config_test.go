package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"reconciler/internal/config"
)

func TestLoadDefaultConfigExpandsPathsAndUsesEnv(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("REGISTRY_API_KEY", "env-key")
	t.Setenv("NTFY_TOPIC", "https://ntfy.example/topic")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	wantData := filepath.Join(tempHome, ".local", "share", "reconciler")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "reconciler.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Registry.APIKey != "env-key" {
		t.Fatalf("expected registry key from env, got %q", cfg.Registry.APIKey)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.example/topic" {
		t.Fatalf("expected ntfy topic from env, got %q", cfg.Notifications.NtfyTopic)
	}
	if cfg.Run.FailureLimit != 3 {
		t.Fatalf("expected default failure limit 3, got %d", cfg.Run.FailureLimit)
	}
	if cfg.Registry.SettleInterval() != 250*time.Millisecond {
		t.Fatalf("unexpected settle interval: %s", cfg.Registry.SettleInterval())
	}
}

func TestLoadCustomConfigOverridesDefaults(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	payload := map[string]any{
		"paths": map[string]any{
			"data_dir": "~/state",
		},
		"registry": map[string]any{
			"base_url":      "https://registry.example/api/",
			"api_key":       " file-key ",
			"rate_limit_ms": 0,
		},
		"run": map[string]any{
			"failure_limit": 5,
		},
		"logging": map[string]any{
			"format": "JSON",
			"level":  "Debug",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config at %q to exist, got %q exists=%v", configPath, resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "state") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.Registry.BaseURL != "https://registry.example/api" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Registry.BaseURL)
	}
	if cfg.Registry.APIKey != "file-key" {
		t.Fatalf("expected trimmed api key, got %q", cfg.Registry.APIKey)
	}
	if cfg.Registry.RateLimit() != 0 {
		t.Fatalf("expected rate limit disabled, got %s", cfg.Registry.RateLimit())
	}
	if cfg.Run.FailureLimit != 5 {
		t.Fatalf("expected failure limit 5, got %d", cfg.Run.FailureLimit)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized logging settings, got %q/%q", cfg.Logging.Format, cfg.Logging.Level)
	}
}

func TestLoadReadsEnvFileWithoutOverridingEnvironment(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("NTFY_TOPIC", "from-environment")
	os.Unsetenv("REGISTRY_API_KEY")
	t.Cleanup(func() { os.Unsetenv("REGISTRY_API_KEY") })

	envPath := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envPath, []byte("REGISTRY_API_KEY=from-dotenv\nNTFY_TOPIC=from-dotenv\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	configPath := filepath.Join(t.TempDir(), "config.toml")
	body := "[paths]\nenv_file = \"" + filepath.ToSlash(envPath) + "\"\n"
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Registry.APIKey != "from-dotenv" {
		t.Fatalf("expected api key from .env, got %q", cfg.Registry.APIKey)
	}
	if cfg.Notifications.NtfyTopic != "from-environment" {
		t.Fatalf("expected existing environment to win, got %q", cfg.Notifications.NtfyTopic)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"failure limit", func(c *config.Config) { c.Run.FailureLimit = 0 }, "run.failure_limit"},
		{"base url scheme", func(c *config.Config) { c.Registry.BaseURL = "ftp://host" }, "registry.base_url"},
		{"base url host", func(c *config.Config) { c.Registry.BaseURL = "http://" }, "registry.base_url"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"settle timeout", func(c *config.Config) { c.Registry.SettleTimeout = 0 }, "registry.settle_timeout"},
		{"rate limit", func(c *config.Config) { c.Registry.RateLimitMS = -1 }, "registry.rate_limit_ms"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in error, got %v", tt.want, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Registry.BaseURL != config.Default().Registry.BaseURL {
		t.Fatalf("unexpected sample base url: %q", cfg.Registry.BaseURL)
	}
}
