package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/paste-proxy/internal/clipboard"
	"github.com/tonimelisma/paste-proxy/internal/config"
)

// watchPIDFileName is the lock held by a running watcher.
const watchPIDFileName = "watch.pid"

func newWatchCmd() *cobra.Command {
	var (
		t      target
		settle time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <dir> (--into <doc.md> | --rich <doc.json>)",
		Short: "Paste every image that appears in a directory",
		Long: `Watch a directory (typically where screenshots are saved). Every image
file that appears is treated as a paste: it is uploaded and a reference is
appended to the document. The document is re-read before each paste, so it
can be edited while the watcher runs.

Runs until interrupted. Only one watcher runs at a time.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args[0], t, settle)
		},
	}

	addTargetFlags(cmd, &t)
	cmd.Flags().DurationVar(&settle, "settle", clipboard.DefaultSettleDelay,
		"how long a file must be quiet before it is pasted")

	return cmd
}

func watchPIDPath() string {
	dir := config.DefaultDataDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, watchPIDFileName)
}

func runWatch(cmd *cobra.Command, dir string, t target, settle time.Duration) error {
	cc := mustCLIContext(cmd.Context())
	logger := cc.Logger

	if err := t.validate(); err != nil {
		return err
	}

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("watch directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	cleanup, err := writePIDFile(watchPIDPath())
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := shutdownContext(cmd.Context(), logger)

	sess, err := NewSession(ctx, cc.Cfg, newSecretProvider(), logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	cc.Statusf("Watching %s, pasting into %s. Press Ctrl-C to stop.\n", dir, t.path())

	inbox := clipboard.NewInbox(dir, settle, logger)

	return inbox.Watch(ctx, func(ev clipboard.PasteEvent) {
		handleWatchedPaste(ctx, cc, sess, t, ev)
	})
}

// handleWatchedPaste ingests one inbox event. Failures are reported and the
// watcher keeps running.
func handleWatchedPaste(ctx context.Context, cc *CLIContext, sess *Session, t target, ev clipboard.PasteEvent) {
	images := ev.Images()
	if len(images) == 0 {
		return
	}

	results, err := ingestInto(ctx, cc, sess, t, images)
	if err != nil {
		cc.Logger.Error("paste failed", slog.String("error", err.Error()))
		return
	}

	if err := printPasteResults(cc, results); err != nil {
		cc.Logger.Warn("printing results", slog.String("error", err.Error()))
	}
}
