package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal errors with "did you mean?"
// suggestions.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> environment variables -> CLI flags.
func Resolve(env EnvOverrides, cli CLIOverrides, logger *slog.Logger) (*Resolved, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// 1. Resolve config path: CLI > env > default
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	// 2. Load config file (returns defaults if no file exists)
	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	logger.Debug("config file resolved", "path", cfgPath)

	// 3. Apply env overrides
	if env.APIOrigin != "" {
		cfg.APIOrigin = env.APIOrigin
		logger.Debug("env override applied", "field", "api_origin")
	}

	if env.Username != "" {
		cfg.Username = env.Username
		logger.Debug("env override applied", "field", "username")
	}

	// 4. Apply CLI overrides (pointer fields: nil = not specified)
	if cli.APIOrigin != nil {
		cfg.APIOrigin = *cli.APIOrigin
		logger.Debug("flag override applied", "field", "api_origin")
	}

	if cli.Username != nil {
		cfg.Username = *cli.Username
		logger.Debug("flag override applied", "field", "username")
	}

	// 5. Parse into typed values; validation already ran on the file layer
	// but env and flags may have changed the result.
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	resolved := resolve(cfg)
	resolved.ConfigPath = cfgPath

	return resolved, nil
}

// resolve converts a validated Config into typed values. Parse errors are
// impossible here because Validate has accepted every field.
func resolve(cfg *Config) *Resolved {
	r := &Resolved{
		APIOrigin:     strings.TrimRight(cfg.APIOrigin, "/"),
		Username:      cfg.Username,
		MaxAttempts:   cfg.MaxAttempts,
		ListenAddr:    cfg.ListenAddr,
		BridgeOrigins: cfg.BridgeOrigins,
		LogLevel:      cfg.LogLevel,
	}

	r.RequestTimeout = mustDuration(cfg.RequestTimeout)
	r.CredentialTTL = mustDuration(cfg.CredentialTTL)
	r.EditorPollInterval = mustDuration(cfg.EditorPollInterval)
	r.BandwidthLimit, _ = ParseRate(cfg.BandwidthLimit) //nolint:errcheck // validated

	r.CredentialFile = expandTilde(cfg.CredentialFile)
	if r.CredentialFile == "" {
		r.CredentialFile = DefaultCredentialPath()
	}

	switch cfg.HistoryDB {
	case historyDisabled:
		r.HistoryDB = ""
	case "":
		r.HistoryDB = DefaultHistoryPath()
	default:
		r.HistoryDB = expandTilde(cfg.HistoryDB)
	}

	return r
}

func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s) //nolint:errcheck // validated

	return d
}
