// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for paste-proxy. Values resolve through
// four layers: defaults -> config file -> environment -> CLI flags.
package config

import "time"

// Config is the configuration file as parsed. Keys are flat; the embedded
// structs only group related fields.
type Config struct {
	ServerConfig
	CredentialConfig
	IngestConfig
	BridgeConfig
	LoggingConfig
}

// ServerConfig locates the File Browser instance and shapes the HTTP client.
type ServerConfig struct {
	APIOrigin      string `toml:"api_origin"`
	Username       string `toml:"username"`
	RequestTimeout string `toml:"request_timeout"`
	BandwidthLimit string `toml:"bandwidth_limit"`
}

// CredentialConfig controls the cached login.
type CredentialConfig struct {
	CredentialTTL  string `toml:"credential_ttl"`
	CredentialFile string `toml:"credential_file"`
}

// IngestConfig controls the paste pipeline.
type IngestConfig struct {
	MaxAttempts        int    `toml:"max_attempts"`
	EditorPollInterval string `toml:"editor_poll_interval"`
	HistoryDB          string `toml:"history_db"`
}

// BridgeConfig controls the websocket host bridge.
type BridgeConfig struct {
	ListenAddr    string   `toml:"listen_addr"`
	BridgeOrigins []string `toml:"bridge_origins"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	LogLevel string `toml:"log_level"`
}

// CLIOverrides holds values from CLI flags. Pointer fields distinguish "not
// specified" (nil) from "explicitly set to the zero value".
type CLIOverrides struct {
	ConfigPath string  // --config flag (empty = use default)
	APIOrigin  *string // --api-origin flag
	Username   *string // --username flag
}

// Resolved is the effective configuration with every value parsed.
type Resolved struct {
	ConfigPath string

	APIOrigin      string
	Username       string
	RequestTimeout time.Duration
	BandwidthLimit int64 // bytes per second, 0 = unlimited

	CredentialTTL  time.Duration
	CredentialFile string

	MaxAttempts        int
	EditorPollInterval time.Duration
	HistoryDB          string // empty = ledger disabled

	ListenAddr    string
	BridgeOrigins []string

	LogLevel string
}
