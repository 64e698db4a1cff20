package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/paste-proxy/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// skipConfigAnnotation marks commands that must run even when the config
// file is broken.
const skipConfigAnnotation = "skipConfig"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagAPIOrigin  string
	flagUsername   string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// CLIFlags is the snapshot of global flags a command runs with.
type CLIFlags struct {
	ConfigPath string
	JSON       bool
	Verbose    bool
	Quiet      bool
}

// CLIContext is what every subcommand receives through its context: flags,
// the resolved configuration (nil for skipConfig commands), and a logger.
type CLIContext struct {
	Flags  CLIFlags
	Cfg    *config.Resolved
	Logger *slog.Logger
}

type cliContextKey struct{}

// mustCLIContext returns the CLIContext installed by the root pre-run.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		panic("BUG: CLIContext missing from command context")
	}

	return cc
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paste-proxy",
		Short: "Upload pasted images to File Browser and insert links",
		Long: `paste-proxy takes image pastes, uploads each image to a File Browser
instance, and inserts a markdown or structured image reference at the
editor cursor.`,
		Version: version,
		// Silence Cobra's default error/usage printing; main handles it.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupCLIContext(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagAPIOrigin, "api-origin", "", "File Browser API origin (e.g. https://wiki.example.com/filebrowser)")
	cmd.PersistentFlags().StringVar(&flagUsername, "username", "", "File Browser username")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newPasteCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newLinkCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// setupCLIContext resolves configuration (unless the command opts out),
// builds the logger, and stores both on the command context.
func setupCLIContext(cmd *cobra.Command) error {
	cc := &CLIContext{
		Flags: CLIFlags{
			ConfigPath: flagConfigPath,
			JSON:       flagJSON,
			Verbose:    flagVerbose,
			Quiet:      flagQuiet,
		},
	}

	if cmd.Annotations[skipConfigAnnotation] == "" {
		resolved, err := loadConfig(cmd, buildLogger("", flagVerbose, flagQuiet))
		if err != nil {
			return err
		}

		cc.Cfg = resolved
	}

	level := ""
	if cc.Cfg != nil {
		level = cc.Cfg.LogLevel
	}

	cc.Logger = buildLogger(level, flagVerbose, flagQuiet)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cc))

	return nil
}

// loadConfig resolves the effective configuration from the four-layer
// override chain. Only flags the user actually set override lower layers.
func loadConfig(cmd *cobra.Command, logger *slog.Logger) (*config.Resolved, error) {
	cli := config.CLIOverrides{
		ConfigPath: flagConfigPath,
	}

	if cmd.Flags().Changed("api-origin") {
		cli.APIOrigin = &flagAPIOrigin
	}

	if cmd.Flags().Changed("username") {
		cli.Username = &flagUsername
	}

	resolved, err := config.Resolve(config.ReadEnvOverrides(), cli, logger)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return resolved, nil
}

// buildLogger creates an slog.Logger from the configured level and CLI
// flags. The config level is the baseline; --verbose and --quiet override
// it because CLI flags always win.
func buildLogger(configLevel string, verbose, quiet bool) *slog.Logger {
	level := slog.LevelInfo

	switch configLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	if verbose {
		level = slog.LevelDebug
	}

	if quiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
