package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadEnvOverrides_AllSet(t *testing.T) {
	t.Setenv(EnvConfig, "/custom/config.toml")
	t.Setenv(EnvAPIOrigin, "https://wiki.example.com/filebrowser")
	t.Setenv(EnvUsername, "editor")

	overrides := ReadEnvOverrides()
	assert.Equal(t, "/custom/config.toml", overrides.ConfigPath)
	assert.Equal(t, "https://wiki.example.com/filebrowser", overrides.APIOrigin)
	assert.Equal(t, "editor", overrides.Username)
}

func TestReadEnvOverrides_NoneSet(t *testing.T) {
	t.Setenv(EnvConfig, "")
	t.Setenv(EnvAPIOrigin, "")
	t.Setenv(EnvUsername, "")

	overrides := ReadEnvOverrides()
	assert.Equal(t, EnvOverrides{}, overrides)
}

func TestEnvVarConstants(t *testing.T) {
	assert.Equal(t, "PASTE_PROXY_CONFIG", EnvConfig)
	assert.Equal(t, "PASTE_PROXY_API_ORIGIN", EnvAPIOrigin)
	assert.Equal(t, "PASTE_PROXY_USERNAME", EnvUsername)
	assert.Equal(t, "PASTE_PROXY_PASSWORD", EnvPassword)
}
