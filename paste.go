package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/paste-proxy/internal/clipboard"
	"github.com/tonimelisma/paste-proxy/internal/editor"
	"github.com/tonimelisma/paste-proxy/internal/ingest"
)

// errImagesFailed means at least one image of a paste did not make it into
// the document. Details were already reported per image.
var errImagesFailed = errors.New("some images failed")

func newPasteCmd() *cobra.Command {
	var t target

	cmd := &cobra.Command{
		Use:   "paste <image>... (--into <doc.md> | --rich <doc.json>)",
		Short: "Upload images and insert references into a document",
		Long: `Treat the given image files as a single paste: each one is uploaded to
File Browser and a reference to it is inserted into the document.

Markdown documents (--into) receive ![name](link) at the cursor; structured
documents (--rich) receive an image element at the selection. The cursor
defaults to the end of the document.

Examples:
  paste-proxy paste screenshot.png --into notes.md
  paste-proxy paste a.png b.jpg --into notes.md --line 12
  paste-proxy paste diagram.png --rich page.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPaste(cmd, args, t)
		},
	}

	addTargetFlags(cmd, &t)

	return cmd
}

func addTargetFlags(cmd *cobra.Command, t *target) {
	cmd.Flags().StringVar(&t.markdownPath, "into", "", "markdown document to insert into")
	cmd.Flags().StringVar(&t.richPath, "rich", "", "structured JSON document to insert into")
	cmd.Flags().IntVar(&t.line, "line", 0, "1-based line (or block) to insert before; default end of document")
}

// pasteResult is the JSON schema for one image of `paste --json`.
type pasteResult struct {
	Name       string `json:"name"`
	RemoteName string `json:"remote_name,omitempty"`
	Link       string `json:"link,omitempty"`
	Attempts   int    `json:"attempts"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

func runPaste(cmd *cobra.Command, args []string, t target) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()
	logger := cc.Logger

	if err := t.validate(); err != nil {
		return err
	}

	ev, err := clipboard.EventFromFiles("cli", args...)
	if err != nil {
		return err
	}

	images := ev.Images()
	if len(images) == 0 {
		return fmt.Errorf("none of the %d arguments is an image", len(args))
	}

	sess, err := NewSession(ctx, cc.Cfg, newSecretProvider(), logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	results, err := ingestInto(ctx, cc, sess, t, images)
	if err != nil {
		return err
	}

	if err := printPasteResults(cc, results); err != nil {
		return err
	}

	if countInserted(results) < len(results) {
		return errImagesFailed
	}

	return nil
}

// ingestInto mounts the target document, runs the images through the
// pipeline, and writes the document back when anything was inserted.
func ingestInto(
	ctx context.Context, cc *CLIContext, sess *Session, t target, images []clipboard.ImagePayload,
) ([]ingest.Result, error) {
	reg := editor.NewRegistry(cc.Logger)

	save, err := t.mount(reg, len(images))
	if err != nil {
		return nil, err
	}

	adapter := editor.NewAdapter(reg, cc.Cfg.EditorPollInterval, cc.Logger)
	if h, ok := adapter.Detect(); ok {
		if err := adapter.SuppressNativeUploadHandler(h); err != nil {
			return nil, err
		}
	}

	results := sess.Orchestrator(adapter).Ingest(ctx, images)

	if countInserted(results) > 0 {
		if err := save(); err != nil {
			return results, fmt.Errorf("saving %s: %w", t.path(), err)
		}
	}

	return results, nil
}

func countInserted(results []ingest.Result) int {
	n := 0

	for _, r := range results {
		if r.State == ingest.StateInserted {
			n++
		}
	}

	return n
}

func printPasteResults(cc *CLIContext, results []ingest.Result) error {
	if cc.Flags.JSON {
		out := make([]pasteResult, 0, len(results))
		for _, r := range results {
			out = append(out, toPasteResult(r))
		}

		return printJSON(out)
	}

	for _, r := range results {
		if r.State == ingest.StateInserted {
			cc.Statusf("Inserted %s -> %s\n", r.OriginalName, r.Link)
		}
	}

	return nil
}

func toPasteResult(r ingest.Result) pasteResult {
	pr := pasteResult{
		Name:       r.OriginalName,
		RemoteName: r.RemoteName,
		Link:       r.Link,
		Attempts:   r.Attempts,
		Status:     r.State.String(),
	}

	if r.Err != nil {
		pr.Error = r.Err.Error()
	}

	return pr
}
