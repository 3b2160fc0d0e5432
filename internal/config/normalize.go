package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRegistry()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRegistry() {
	c.Registry.APIKey = strings.TrimSpace(c.Registry.APIKey)
	if c.Registry.APIKey == "" {
		if value, ok := os.LookupEnv("REGISTRY_API_KEY"); ok {
			c.Registry.APIKey = strings.TrimSpace(value)
		}
	}
	c.Registry.BaseURL = strings.TrimRight(strings.TrimSpace(c.Registry.BaseURL), "/")
	if c.Registry.BaseURL == "" {
		c.Registry.BaseURL = defaultRegistryBaseURL
	}
	c.Registry.HealthPath = strings.TrimSpace(c.Registry.HealthPath)
	if c.Registry.HealthPath != "" && !strings.HasPrefix(c.Registry.HealthPath, "/") {
		c.Registry.HealthPath = "/" + c.Registry.HealthPath
	}
	c.Registry.UserAgent = strings.TrimSpace(c.Registry.UserAgent)
	if c.Registry.UserAgent == "" {
		c.Registry.UserAgent = defaultRegistryUserAgent
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
