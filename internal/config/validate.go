package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"
)

// Validation range constants.
const (
	minAttempts        = 1
	maxAttempts        = 10
	minRequestTimeout  = 1 * time.Second
	minCredentialTTL   = 1 * time.Minute
	minEditorPollEvery = 100 * time.Millisecond
)

// ErrNoAPIOrigin means no File Browser origin was configured.
var ErrNoAPIOrigin = errors.New(
	"api_origin is not set; add it to the config file, set " + EnvAPIOrigin + ", or pass --api-origin")

// Validate checks all configuration values and returns all errors found,
// so users can fix every issue in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateServer(&cfg.ServerConfig)...)
	errs = append(errs, validateCredential(&cfg.CredentialConfig)...)
	errs = append(errs, validateIngest(&cfg.IngestConfig)...)
	errs = append(errs, validateBridge(&cfg.BridgeConfig)...)
	errs = append(errs, validateLogLevel(cfg.LogLevel)...)

	return errors.Join(errs...)
}

// RequireAPIOrigin reports ErrNoAPIOrigin for commands that talk to the
// server when no origin is configured.
func (r *Resolved) RequireAPIOrigin() error {
	if r.APIOrigin == "" {
		return ErrNoAPIOrigin
	}

	return nil
}

func validateServer(s *ServerConfig) []error {
	var errs []error

	if s.APIOrigin != "" {
		errs = append(errs, validateOrigin(s.APIOrigin)...)
	}

	if s.Username == "" {
		errs = append(errs, errors.New("username: must not be empty"))
	}

	errs = append(errs, validateDurationMin("request_timeout", s.RequestTimeout, minRequestTimeout)...)

	if _, err := ParseRate(s.BandwidthLimit); err != nil {
		errs = append(errs, fmt.Errorf("bandwidth_limit: %w", err))
	}

	return errs
}

func validateOrigin(origin string) []error {
	u, err := url.Parse(origin)
	if err != nil {
		return []error{fmt.Errorf("api_origin: %w", err)}
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return []error{fmt.Errorf("api_origin: scheme must be http or https, got %q", origin)}
	}

	if u.Host == "" {
		return []error{fmt.Errorf("api_origin: missing host in %q", origin)}
	}

	if u.RawQuery != "" || u.Fragment != "" {
		return []error{fmt.Errorf("api_origin: must not carry a query or fragment, got %q", origin)}
	}

	return nil
}

func validateCredential(c *CredentialConfig) []error {
	return validateDurationMin("credential_ttl", c.CredentialTTL, minCredentialTTL)
}

func validateIngest(i *IngestConfig) []error {
	var errs []error

	if i.MaxAttempts < minAttempts || i.MaxAttempts > maxAttempts {
		errs = append(errs, fmt.Errorf("max_attempts: must be between %d and %d, got %d",
			minAttempts, maxAttempts, i.MaxAttempts))
	}

	errs = append(errs, validateDurationMin("editor_poll_interval", i.EditorPollInterval, minEditorPollEvery)...)

	return errs
}

func validateBridge(b *BridgeConfig) []error {
	if _, _, err := net.SplitHostPort(b.ListenAddr); err != nil {
		return []error{fmt.Errorf("listen_addr: %w", err)}
	}

	return nil
}

// validateDuration checks that a duration string is valid and meets a minimum.
func validateDuration(field, value string, minimum time.Duration) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q: %w", field, value, err)
	}

	if d < minimum {
		return fmt.Errorf("%s: must be >= %s, got %s", field, minimum, d)
	}

	return nil
}

func validateDurationMin(field, value string, minimum time.Duration) []error {
	if err := validateDuration(field, value, minimum); err != nil {
		return []error{err}
	}

	return nil
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func validateLogLevel(level string) []error {
	if !validLogLevels[level] {
		return []error{fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", level)}
	}

	return nil
}
