package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	EnvFile string `toml:"env_file"`
}

// Registry contains configuration for the external registry the records are
// reconciled against.
type Registry struct {
	BaseURL          string `toml:"base_url"`
	APIKey           string `toml:"api_key"`
	UserAgent        string `toml:"user_agent"`
	HealthPath       string `toml:"health_path"`
	RequestTimeout   int    `toml:"request_timeout"`
	SettleTimeout    int    `toml:"settle_timeout"`
	SettleIntervalMS int    `toml:"settle_interval_ms"`
	RateLimitMS      int    `toml:"rate_limit_ms"`
}

// Run contains configuration for the continuation controller.
type Run struct {
	FailureLimit       int `toml:"failure_limit"`
	InteractionTimeout int `toml:"interaction_timeout"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	RunStarted     bool   `toml:"run_started"`
	RunCompleted   bool   `toml:"run_completed"`
	FailureLimit   bool   `toml:"failure_limit"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for the reconciler.
//
// Configuration sections by subsystem:
//   - Paths: data, log, and .env locations
//   - Registry: search/detail endpoint, credentials, settle and rate limits
//   - Run: failure limit and per-interaction timeout
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Registry      Registry      `toml:"registry"`
	Run           Run           `toml:"run"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. Variables from the configured .env file are
// loaded before environment fallbacks are applied; variables already present in the
// process environment take precedence.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.loadEnvFile(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func (c *Config) loadEnvFile() error {
	envPath, err := expandPath(strings.TrimSpace(c.Paths.EnvFile))
	if err != nil {
		return fmt.Errorf("paths.env_file: %w", err)
	}
	c.Paths.EnvFile = envPath
	if envPath == "" {
		return nil
	}
	if _, err := os.Stat(envPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat env file: %w", err)
	}
	if err := godotenv.Load(envPath); err != nil {
		return fmt.Errorf("load env file %s: %w", envPath, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the SQLite record store.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "reconciler.db")
}

// LockPath returns the location of the single-run lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "reconciler.lock")
}

// LogPath returns the location of the shared log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "reconciler.log")
}

// RunLogDir returns the directory holding per-run JSON logs.
func (c *Config) RunLogDir() string {
	return filepath.Join(c.Paths.LogDir, "runs")
}

// RunLogPath returns the JSON log file written for runID.
func (c *Config) RunLogPath(runID string) string {
	return filepath.Join(c.RunLogDir(), runID+".log")
}

// RequestTimeoutDuration returns the registry HTTP timeout.
func (r Registry) RequestTimeoutDuration() time.Duration {
	return time.Duration(r.RequestTimeout) * time.Second
}

// SettleTimeoutDuration bounds how long a requery waits for a view to settle.
func (r Registry) SettleTimeoutDuration() time.Duration {
	return time.Duration(r.SettleTimeout) * time.Second
}

// SettleInterval is the poll interval used while waiting for a view to settle.
func (r Registry) SettleInterval() time.Duration {
	return time.Duration(r.SettleIntervalMS) * time.Millisecond
}

// RateLimit is the minimum spacing between registry searches.
func (r Registry) RateLimit() time.Duration {
	return time.Duration(r.RateLimitMS) * time.Millisecond
}

// InteractionTimeoutDuration bounds each registry interaction made by the controller.
func (r Run) InteractionTimeoutDuration() time.Duration {
	return time.Duration(r.InteractionTimeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
