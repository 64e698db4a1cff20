package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Global flag reset pattern: newRootCmd() binds flags via StringVar/BoolVar,
// which reset the global flag variables to their zero values. Tests either
// call functions directly with explicit arguments or go through
// cmd.SetArgs() + cmd.Execute().

func TestBuildLogger_Default(t *testing.T) {
	logger := buildLogger("", false, false)

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestBuildLogger_ConfigLevels(t *testing.T) {
	tests := []struct {
		level   string
		enabled slog.Level
		below   slog.Level
	}{
		{"debug", slog.LevelDebug, slog.LevelDebug - 1},
		{"info", slog.LevelInfo, slog.LevelDebug},
		{"warn", slog.LevelWarn, slog.LevelInfo},
		{"error", slog.LevelError, slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := buildLogger(tt.level, false, false)
			assert.True(t, logger.Handler().Enabled(context.Background(), tt.enabled))
			assert.False(t, logger.Handler().Enabled(context.Background(), tt.below))
		})
	}
}

func TestBuildLogger_VerboseOverridesConfig(t *testing.T) {
	logger := buildLogger("error", true, false)
	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestBuildLogger_QuietOverridesConfig(t *testing.T) {
	logger := buildLogger("debug", false, true)
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelError))
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	cmd := newRootCmd()

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	for _, want := range []string{"login", "logout", "status", "paste", "watch", "serve", "history", "link", "config"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestNewRootCmd_PersistentFlags(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{"config", "api-origin", "username", "json", "verbose", "quiet"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "missing flag --%s", name)
	}
}

func TestConfigPath_SkipsBrokenConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not_a_key = 1\n"), 0o600))

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", path, "config", "path"})
	assert.NoError(t, cmd.ExecuteContext(context.Background()))

	cmd = newRootCmd()
	cmd.SetArgs([]string{"--config", path, "config", "show"})
	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")
}

func TestMustCLIContext_PanicsWithoutContext(t *testing.T) {
	assert.Panics(t, func() { mustCLIContext(context.Background()) })
}
