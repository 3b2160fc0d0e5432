package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRegistry(); err != nil {
		return err
	}
	if err := c.validateRun(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return ensurePositiveMap(map[string]int{
		"registry.request_timeout":      c.Registry.RequestTimeout,
		"registry.settle_timeout":       c.Registry.SettleTimeout,
		"registry.settle_interval_ms":   c.Registry.SettleIntervalMS,
		"run.interaction_timeout":       c.Run.InteractionTimeout,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

func (c *Config) validateRegistry() error {
	parsed, err := url.Parse(c.Registry.BaseURL)
	if err != nil {
		return fmt.Errorf("registry.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("registry.base_url must be an http or https URL, got %q", c.Registry.BaseURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("registry.base_url must include a host, got %q", c.Registry.BaseURL)
	}
	if c.Registry.RateLimitMS < 0 {
		return errors.New("registry.rate_limit_ms must be >= 0")
	}
	return nil
}

func (c *Config) validateRun() error {
	if c.Run.FailureLimit < 1 {
		return errors.New("run.failure_limit must be >= 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
