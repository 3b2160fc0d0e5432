// Package notifications delivers run events via ntfy.
//
// The topic configured in config.toml is treated as the full publish URL. With
// no topic the service degrades to a no-op. Each run milestone can be switched
// off individually; errors and test messages always go out.
package notifications
