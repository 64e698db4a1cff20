// Package richdoc is the structured editing surface: a block document
// edited through model transactions, with a plugin registry whose
// FileRepository owns the editor's native image upload path. Documents are
// stored as JSON.
package richdoc

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
)

// Element is one block of a document.
type Element struct {
	Name     string            `json:"name"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Text     string            `json:"text,omitempty"`
	Children []*Element        `json:"children,omitempty"`
}

func (el *Element) clone() *Element {
	if el == nil {
		return nil
	}

	out := &Element{Name: el.Name, Text: el.Text, Attrs: maps.Clone(el.Attrs)}
	for _, c := range el.Children {
		out.Children = append(out.Children, c.clone())
	}

	return out
}

// Selection is the insertion point: an offset between root blocks.
type Selection struct {
	Offset int `json:"offset"`
}

// Document is the root block list and the current selection.
type Document struct {
	Blocks    []*Element `json:"blocks"`
	Selection Selection  `json:"selection"`
}

func (d *Document) clone() *Document {
	out := &Document{Selection: d.Selection, Blocks: make([]*Element, len(d.Blocks))}
	for i, b := range d.Blocks {
		out.Blocks[i] = b.clone()
	}

	return out
}

// clampSelection keeps the offset inside [0, len(Blocks)].
func (d *Document) clampSelection() {
	d.Selection.Offset = max(0, min(d.Selection.Offset, len(d.Blocks)))
}

// ReadDocument loads a JSON document. A missing file yields an empty one.
func ReadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Document{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("richdoc: reading %s: %w", path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("richdoc: decoding %s: %w", path, err)
	}

	doc.clampSelection()

	return &doc, nil
}

// WriteDocument stores doc as indented JSON, atomically.
func WriteDocument(path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("richdoc: encoding document: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".paste-proxy-*.json.tmp")
	if err != nil {
		return fmt.Errorf("richdoc: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()
	success := false

	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("richdoc: writing temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("richdoc: closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("richdoc: renaming into place: %w", err)
	}

	success = true

	return nil
}
