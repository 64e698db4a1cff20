package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tonimelisma/paste-proxy/internal/editor"
	"github.com/tonimelisma/paste-proxy/internal/markdown"
	"github.com/tonimelisma/paste-proxy/internal/richdoc"
)

// targetSurfaceID is the registry id of the document a command edits.
const targetSurfaceID = "document"

var errNoTarget = errors.New("one of --into or --rich is required")

// target is the document image references are inserted into: a markdown
// file (plain-text surface) or a JSON document (structured surface).
type target struct {
	markdownPath string
	richPath     string
	line         int // 1-based line (markdown) or block (rich); 0 = end of document
}

func (t target) validate() error {
	switch {
	case t.markdownPath == "" && t.richPath == "":
		return errNoTarget
	case t.markdownPath != "" && t.richPath != "":
		return errors.New("--into and --rich are mutually exclusive")
	case t.line < 0:
		return fmt.Errorf("--line must be >= 1, got %d", t.line)
	}

	return nil
}

func (t target) path() string {
	if t.richPath != "" {
		return t.richPath
	}

	return t.markdownPath
}

// mount loads the document, makes room for images references, places the
// cursor, and mounts it in reg. The returned save writes the document back
// atomically.
func (t target) mount(reg *editor.Registry, images int) (save func() error, err error) {
	if t.richPath != "" {
		return t.mountRich(reg)
	}

	return t.mountMarkdown(reg, images)
}

func (t target) mountMarkdown(reg *editor.Registry, images int) (func() error, error) {
	buf, err := markdown.Open(t.markdownPath)
	if err != nil {
		return nil, err
	}

	if err := openLines(buf, t.line, images); err != nil {
		return nil, err
	}

	if _, err := reg.Mount(targetSurfaceID, buf); err != nil {
		return nil, err
	}

	return func() error { return buf.WriteFile(t.markdownPath) }, nil
}

// openLines makes room for n references, one per line with a blank line
// between them, and puts the cursor on the first. The room opens before the
// 1-based line, or after the last line when line is 0; an empty last line is
// reused. Each insert moves the cursor two lines down, onto the next slot.
func openLines(buf *markdown.Buffer, line, n int) error {
	n = max(n, 1)

	if line > 0 {
		pos := editor.Position{Line: line - 1}
		if err := buf.SetCursor(pos); err != nil {
			return err
		}

		if err := buf.ReplaceSelection(strings.Repeat("\n", 2*n-1)); err != nil {
			return err
		}

		return buf.SetCursor(pos)
	}

	// Lines past the end clamp to the end of the last line.
	if err := buf.SetCursor(editor.Position{Line: buf.LineCount()}); err != nil {
		return err
	}

	first := buf.CursorFrom()
	gap := strings.Repeat("\n", 2*(n-1))

	if first.Ch != 0 {
		gap = "\n" + gap
		first = editor.Position{Line: first.Line + 1}
	}

	if gap == "" {
		return nil
	}

	if err := buf.ReplaceSelection(gap); err != nil {
		return err
	}

	return buf.SetCursor(first)
}

func (t target) mountRich(reg *editor.Registry) (func() error, error) {
	doc, err := richdoc.ReadDocument(t.richPath)
	if err != nil {
		return nil, err
	}

	doc.Selection.Offset = len(doc.Blocks)
	if t.line > 0 {
		doc.Selection.Offset = t.line - 1
	}

	ed := richdoc.New(doc)

	if _, err := reg.Mount(targetSurfaceID, ed); err != nil {
		return nil, err
	}

	return func() error { return ed.WriteFile(t.richPath) }, nil
}
