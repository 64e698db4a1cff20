package config

// Default values for configuration options. These are layer 0 of the
// override chain and work without any config file once api_origin is set.
const (
	defaultUsername           = "admin"
	defaultRequestTimeout     = "60s"
	defaultBandwidthLimit     = "0"
	defaultCredentialTTL      = "24h"
	defaultMaxAttempts        = 3
	defaultEditorPollInterval = "1s"
	defaultListenAddr         = "127.0.0.1:17345"
	defaultLogLevel           = "info"

	// historyDisabled turns the upload ledger off when used as history_db.
	historyDisabled = "off"

	credentialFileName = "credential.json"
	historyFileName    = "history.db"
)

// DefaultConfig returns a Config populated with all default values. It is
// the starting point for TOML decoding so unset fields keep their defaults.
// Path defaults are filled in at resolve time.
func DefaultConfig() *Config {
	return &Config{
		ServerConfig: ServerConfig{
			Username:       defaultUsername,
			RequestTimeout: defaultRequestTimeout,
			BandwidthLimit: defaultBandwidthLimit,
		},
		CredentialConfig: CredentialConfig{
			CredentialTTL: defaultCredentialTTL,
		},
		IngestConfig: IngestConfig{
			MaxAttempts:        defaultMaxAttempts,
			EditorPollInterval: defaultEditorPollInterval,
		},
		BridgeConfig: BridgeConfig{
			ListenAddr: defaultListenAddr,
		},
		LoggingConfig: LoggingConfig{
			LogLevel: defaultLogLevel,
		},
	}
}
