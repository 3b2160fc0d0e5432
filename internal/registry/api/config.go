package api

import (
	"net/http"

	"reconciler/internal/config"
)

// FromConfig builds a client from the registry section of the configuration.
func FromConfig(cfg config.Registry) (*Client, error) {
	return New(cfg.BaseURL,
		WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeoutDuration()}),
		WithAPIKey(cfg.APIKey),
		WithUserAgent(cfg.UserAgent),
		WithHealthPath(cfg.HealthPath),
		WithSettle(cfg.SettleTimeoutDuration(), cfg.SettleInterval()),
	)
}
