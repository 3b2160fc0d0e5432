// Package config loads, normalizes, and validates reconciler configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads an optional .env file, and honours
// environment fallbacks such as REGISTRY_API_KEY and NTFY_TOPIC. The Config
// type centralizes every knob the CLI and run controller need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
