package richdoc

import (
	"context"
	"errors"
	"fmt"

	"github.com/tonimelisma/paste-proxy/internal/editor"
)

// Editor is a structured editing surface: a model plus plugins.
type Editor struct {
	model   *Model
	plugins *PluginRegistry
}

// New creates an editor over doc with a FileRepository installed.
func New(doc *Document) *Editor {
	plugins := newPluginRegistry()
	plugins.Add(NewFileRepository())

	return &Editor{model: newModel(doc), plugins: plugins}
}

// Open loads the document at path into a new editor.
func Open(path string) (*Editor, error) {
	doc, err := ReadDocument(path)
	if err != nil {
		return nil, err
	}

	return New(doc), nil
}

// WriteFile stores the current document at path.
func (e *Editor) WriteFile(path string) error {
	return WriteDocument(path, e.model.Document())
}

// Model implements editor.Structured.
func (e *Editor) Model() editor.Model {
	return e.model
}

// Document returns a copy of the current document.
func (e *Editor) Document() *Document {
	return e.model.Document()
}

// Plugins returns the plugin registry.
func (e *Editor) Plugins() *PluginRegistry {
	return e.plugins
}

// FileRepository returns the installed upload plugin, if any.
func (e *Editor) FileRepository() (*FileRepository, bool) {
	p, ok := e.plugins.Get(FileRepositoryName)
	if !ok {
		return nil, false
	}

	fr, ok := p.(*FileRepository)

	return fr, ok
}

// SuppressUploadAdapter implements editor.UploadAdapterHost.
func (e *Editor) SuppressUploadAdapter() error {
	fr, ok := e.FileRepository()
	if !ok {
		return errors.New("richdoc: no FileRepository plugin")
	}

	fr.SetAdapterFactory(NoopAdapterFactory)

	return nil
}

// PasteNative runs the editor's own paste path for an image: the
// FileRepository adapter uploads it and, when it returns attributes, an
// image element is inserted. Reports whether anything was inserted.
func (e *Editor) PasteNative(ctx context.Context, data []byte, mimeType string) (bool, error) {
	fr, ok := e.FileRepository()
	if !ok {
		return false, nil
	}

	attrs, err := fr.CreateUploadAdapter(&Loader{Data: data, MIMEType: mimeType}).Upload(ctx)
	if err != nil {
		return false, fmt.Errorf("richdoc: native upload: %w", err)
	}

	if len(attrs) == 0 {
		return false, nil
	}

	err = e.model.Change(func(w editor.Writer) error {
		return w.InsertContent(w.CreateElement("image", attrs))
	})
	if err != nil {
		return false, err
	}

	return true, nil
}
