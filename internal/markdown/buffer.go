// Package markdown is the plain-text editing surface: a line buffer with a
// selection, loaded from and written back to a markdown file.
package markdown

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tonimelisma/paste-proxy/internal/editor"
)

// File permissions for documents written back to disk.
const filePerms = 0o644

// Buffer holds a document as lines. The selection is the half-open range
// [from, to); a collapsed selection is a cursor. Safe for concurrent use.
type Buffer struct {
	mu    sync.Mutex
	lines []string
	from  editor.Position
	to    editor.Position
}

// NewBuffer creates a buffer holding text with the cursor at the start.
func NewBuffer(text string) *Buffer {
	return &Buffer{lines: strings.Split(text, "\n")}
}

// Open reads path into a new buffer. A missing file yields an empty buffer
// so a new document can be started by pasting into it.
func Open(path string) (*Buffer, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewBuffer(""), nil
	}

	if err != nil {
		return nil, fmt.Errorf("markdown: reading %s: %w", path, err)
	}

	return NewBuffer(string(data)), nil
}

// Text returns the document.
func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return strings.Join(b.lines, "\n")
}

// LineCount returns the number of lines.
func (b *Buffer) LineCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.lines)
}

// Select sets the selection. Both ends are clamped into the document and
// ordered.
func (b *Buffer) Select(from, to editor.Position) {
	b.mu.Lock()
	defer b.mu.Unlock()

	from, to = b.clamp(from), b.clamp(to)
	if less(to, from) {
		from, to = to, from
	}

	b.from, b.to = from, to
}

// Cursor returns the end of the selection, where typing would continue.
func (b *Buffer) Cursor() editor.Position {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.to
}

// CursorFrom returns the start of the selection.
func (b *Buffer) CursorFrom() editor.Position {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.from
}

// ReplaceSelection replaces the selected range with text and collapses the
// selection to the end of the inserted text.
func (b *Buffer) ReplaceSelection(text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	head := b.lines[b.from.Line][:b.from.Ch]
	tail := b.lines[b.to.Line][b.to.Ch:]

	inserted := strings.Split(text, "\n")
	inserted[0] = head + inserted[0]
	last := len(inserted) - 1
	end := editor.Position{Line: b.from.Line + last, Ch: len(inserted[last])}
	inserted[last] += tail

	lines := make([]string, 0, len(b.lines)-(b.to.Line-b.from.Line)+last)
	lines = append(lines, b.lines[:b.from.Line]...)
	lines = append(lines, inserted...)
	lines = append(lines, b.lines[b.to.Line+1:]...)

	b.lines = lines
	b.from, b.to = end, end

	return nil
}

// SetCursor collapses the selection to pos, clamped into the document.
func (b *Buffer) SetCursor(pos editor.Position) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	pos = b.clamp(pos)
	b.from, b.to = pos, pos

	return nil
}

// WriteFile writes the document to path atomically: temp file in the same
// directory, then rename.
func (b *Buffer) WriteFile(path string) error {
	text := b.Text()

	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".paste-proxy-*.md.tmp")
	if err != nil {
		return fmt.Errorf("markdown: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()
	success := false

	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return fmt.Errorf("markdown: writing temp file: %w", err)
	}

	if err := tmp.Chmod(filePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("markdown: setting permissions: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("markdown: closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("markdown: renaming into place: %w", err)
	}

	success = true

	return nil
}

// clamp moves pos into the document. Lines past the end clamp to the end of
// the last line; columns clamp to the line length. Callers hold b.mu.
func (b *Buffer) clamp(pos editor.Position) editor.Position {
	last := len(b.lines) - 1

	switch {
	case pos.Line < 0:
		return editor.Position{}
	case pos.Line > last:
		return editor.Position{Line: last, Ch: len(b.lines[last])}
	}

	pos.Ch = max(0, min(pos.Ch, len(b.lines[pos.Line])))

	return pos
}

func less(a, b editor.Position) bool {
	return a.Line < b.Line || (a.Line == b.Line && a.Ch < b.Ch)
}
