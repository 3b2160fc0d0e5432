package preflight

import (
	"context"
	"fmt"
	"strings"

	"reconciler/internal/config"
	"reconciler/internal/registry/api"
)

// CheckRegistryFromConfig evaluates registry status from config and connectivity.
func CheckRegistryFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "Registry"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	client, err := api.FromConfig(cfg.Registry)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	defer client.Close()

	check := CheckRegistry(ctx, name, client)
	if check.Passed {
		check.Detail = fmt.Sprintf("%s (%s)", check.Detail, cfg.Registry.BaseURL)
		if cfg.Registry.APIKey == "" {
			check.Detail += ", no api key"
		}
	}
	return check
}

// CheckNotificationsFromConfig reports whether ntfy delivery is configured.
func CheckNotificationsFromConfig(cfg *config.Config) Result {
	const name = "Notifications"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	return Result{Name: name, Passed: true, Detail: cfg.Notifications.NtfyTopic}
}
