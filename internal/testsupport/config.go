package testsupport

import (
	"path/filepath"
	"testing"

	"reconciler/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.EnvFile = filepath.Join(base, ".env")
	cfgVal.Registry.APIKey = "test"
	cfgVal.Registry.RateLimitMS = 0
	cfgVal.Registry.SettleIntervalMS = 10
	cfgVal.Registry.SettleTimeout = 1
	cfgVal.Run.InteractionTimeout = 5
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithRegistryURL points the registry client at a test server.
func WithRegistryURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Registry.BaseURL = url
	}
}

// WithNtfyTopic points notifications at a test server.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithFailureLimit overrides the consecutive failure limit.
func WithFailureLimit(limit int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Run.FailureLimit = limit
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
