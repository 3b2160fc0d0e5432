package config

const (
	defaultConfigPath             = "~/.config/reconciler/config.toml"
	projectConfigName             = "reconciler.toml"
	defaultDataDir                = "~/.local/share/reconciler"
	defaultLogDir                 = "~/.local/share/reconciler/logs"
	defaultEnvFile                = "~/.config/reconciler/.env"
	defaultRegistryBaseURL        = "http://127.0.0.1:8080/api"
	defaultRegistryUserAgent      = "reconciler/dev"
	defaultRegistryRequestTimeout = 30
	defaultRegistrySettleTimeout  = 10
	defaultRegistrySettleInterval = 250
	defaultRegistryRateLimitMS    = 250
	defaultFailureLimit           = 3
	defaultInteractionTimeout     = 120
	defaultNotifyRequestTimeout   = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogRetentionDays       = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			EnvFile: defaultEnvFile,
		},
		Registry: Registry{
			BaseURL:          defaultRegistryBaseURL,
			UserAgent:        defaultRegistryUserAgent,
			RequestTimeout:   defaultRegistryRequestTimeout,
			SettleTimeout:    defaultRegistrySettleTimeout,
			SettleIntervalMS: defaultRegistrySettleInterval,
			RateLimitMS:      defaultRegistryRateLimitMS,
		},
		Run: Run{
			FailureLimit:       defaultFailureLimit,
			InteractionTimeout: defaultInteractionTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			RunStarted:     true,
			RunCompleted:   true,
			FailureLimit:   true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
