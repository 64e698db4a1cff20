package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig    = "PASTE_PROXY_CONFIG"
	EnvAPIOrigin = "PASTE_PROXY_API_ORIGIN"
	EnvUsername  = "PASTE_PROXY_USERNAME"
	// EnvPassword is read by the credential layer, never stored in Config.
	EnvPassword = "PASTE_PROXY_PASSWORD"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // PASTE_PROXY_CONFIG: override config file path
	APIOrigin  string // PASTE_PROXY_API_ORIGIN
	Username   string // PASTE_PROXY_USERNAME
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		APIOrigin:  os.Getenv(EnvAPIOrigin),
		Username:   os.Getenv(EnvUsername),
	}
}
