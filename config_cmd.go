package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/paste-proxy/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())
			return config.RenderEffective(cc.Cfg, os.Stdout)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:         "path",
		Short:       "Print the config file path",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			path := cc.Flags.ConfigPath
			if path == "" {
				path = os.Getenv(config.EnvConfig)
			}

			if path == "" {
				path = config.DefaultConfigPath()
			}

			fmt.Println(path)

			return nil
		},
	})

	return cmd
}
