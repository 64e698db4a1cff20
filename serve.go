package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/paste-proxy/internal/hostbridge"
)

func newServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the websocket bridge for browser editors",
		Long: `Serve the host bridge on a loopback address. A browser-side host connects
to ws://<addr>/ws, reports the editor surfaces it mounts, and forwards
paste events. Image references are sent back as insert messages.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config listen_addr)")

	return cmd
}

func runServe(cmd *cobra.Command, listen string) error {
	cc := mustCLIContext(cmd.Context())
	logger := cc.Logger

	if listen == "" {
		listen = cc.Cfg.ListenAddr
	}

	ctx := shutdownContext(cmd.Context(), logger)

	sess, err := NewSession(ctx, cc.Cfg, newSecretProvider(), logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	srv := hostbridge.NewServer(sess.Creds, sess.Client, hostbridge.Options{
		MaxAttempts:    cc.Cfg.MaxAttempts,
		PollInterval:   cc.Cfg.EditorPollInterval,
		Recorder:       sess.Recorder(),
		OriginPatterns: cc.Cfg.BridgeOrigins,
		Logger:         logger,
	})

	return srv.ListenAndServe(ctx, listen, func(addr string) {
		// The address must be visible even with --quiet; hosts need it.
		fmt.Fprintf(os.Stderr, "Host bridge listening on ws://%s/ws\n", addr)
	})
}
