// Package editor resolves which editing surface is live and inserts image
// references into it. Two surface kinds exist: a plain-text markdown buffer
// and a structured document model. Hosts publish their surfaces into a
// Registry; the Adapter detects, inserts and keeps the structured surface's
// native upload handler suppressed.
package editor

import "fmt"

// Kind identifies the surface variant behind a Handle.
type Kind int

// Surface kinds. The zero value means no surface.
const (
	KindNone Kind = iota
	KindPlainText
	KindStructured
)

func (k Kind) String() string {
	switch k {
	case KindPlainText:
		return "plain"
	case KindStructured:
		return "structured"
	default:
		return "none"
	}
}

// ParseKind maps the wire names "plain" and "structured" to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "plain":
		return KindPlainText, nil
	case "structured":
		return KindStructured, nil
	default:
		return KindNone, fmt.Errorf("editor: unknown surface kind %q", s)
	}
}

// Position is a zero-based line/column location in a plain-text buffer.
type Position struct {
	Line int
	Ch   int
}

// PlainText is the capability set of a line-oriented markdown surface.
type PlainText interface {
	// CursorFrom returns the start of the current selection.
	CursorFrom() Position
	// ReplaceSelection replaces the selected range with text.
	ReplaceSelection(text string) error
	// SetCursor collapses the selection to pos. Out-of-range positions are
	// clamped by the surface.
	SetCursor(pos Position) error
}

// Node is an element created inside a structured model transaction.
type Node struct {
	Name  string            `json:"name"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

// Writer is handed to a Model.Change callback.
type Writer interface {
	CreateElement(name string, attrs map[string]string) Node
	// InsertContent inserts node at the document's current selection.
	InsertContent(node Node) error
}

// Model is a structured document model with a change-transaction entry
// point. Change applies every edit of fn atomically, or none of them when
// fn returns an error.
type Model interface {
	Change(fn func(w Writer) error) error
}

// Structured is the capability set of a structured editor. A surface only
// qualifies when Model returns a non-nil model.
type Structured interface {
	Model() Model
}

// UploadAdapterHost is implemented by structured surfaces whose
// FileRepository plugin would otherwise upload pasted images on its own.
type UploadAdapterHost interface {
	// SuppressUploadAdapter replaces the upload-adapter factory with one
	// whose adapters upload nothing. Must be idempotent.
	SuppressUploadAdapter() error
}

// Handle is a resolved reference to a mounted surface.
type Handle struct {
	ID   string
	Kind Kind

	plain      PlainText
	structured Structured
}

// Valid reports whether the handle points at a surface.
func (h Handle) Valid() bool {
	switch h.Kind {
	case KindPlainText:
		return h.plain != nil
	case KindStructured:
		return h.structured != nil
	default:
		return false
	}
}

// classify runs the capability check on a published surface. Plain-text
// takes precedence when a value implements both.
func classify(id string, surface any) (Handle, bool) {
	if p, ok := surface.(PlainText); ok && p != nil {
		return Handle{ID: id, Kind: KindPlainText, plain: p}, true
	}

	if s, ok := surface.(Structured); ok && s != nil && s.Model() != nil {
		return Handle{ID: id, Kind: KindStructured, structured: s}, true
	}

	return Handle{}, false
}
