package richdoc

import (
	"errors"
	"maps"
	"sync"

	"github.com/tonimelisma/paste-proxy/internal/editor"
)

// Model owns the document and serializes every change to it.
type Model struct {
	mu  sync.Mutex
	doc *Document
}

func newModel(doc *Document) *Model {
	if doc == nil {
		doc = &Document{}
	}

	doc.clampSelection()

	return &Model{doc: doc}
}

// Document returns a deep copy of the current document.
func (m *Model) Document() *Document {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.doc.clone()
}

// Change runs fn against a working copy and commits it only when fn
// succeeds.
func (m *Model) Change(fn func(w editor.Writer) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := &writer{doc: m.doc.clone()}
	if err := fn(w); err != nil {
		return err
	}

	m.doc = w.doc

	return nil
}

type writer struct {
	doc *Document
}

func (w *writer) CreateElement(name string, attrs map[string]string) editor.Node {
	return editor.Node{Name: name, Attrs: maps.Clone(attrs)}
}

// InsertContent inserts node at the selection and moves the selection past
// it, so consecutive inserts keep their order.
func (w *writer) InsertContent(node editor.Node) error {
	if node.Name == "" {
		return errors.New("richdoc: element has no name")
	}

	at := w.doc.Selection.Offset
	el := &Element{Name: node.Name, Attrs: maps.Clone(node.Attrs)}

	blocks := make([]*Element, 0, len(w.doc.Blocks)+1)
	blocks = append(blocks, w.doc.Blocks[:at]...)
	blocks = append(blocks, el)
	blocks = append(blocks, w.doc.Blocks[at:]...)

	w.doc.Blocks = blocks
	w.doc.Selection.Offset = at + 1

	return nil
}
