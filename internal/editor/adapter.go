package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultPollInterval is how often suppression is re-applied for hosts that
// publish no lifecycle events.
const DefaultPollInterval = time.Second

// imageElement is the node name structured surfaces render as an image.
const imageElement = "image"

// Adapter is the uniform "insert image reference" front of the registry.
type Adapter struct {
	registry     *Registry
	pollInterval time.Duration
	logger       *slog.Logger

	// insertMu keeps each insert's replace and cursor move together when
	// images finish concurrently.
	insertMu sync.Mutex
}

// NewAdapter creates an Adapter over registry. pollInterval <= 0 selects
// DefaultPollInterval.
func NewAdapter(registry *Registry, pollInterval time.Duration, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}

	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	return &Adapter{
		registry:     registry,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Detect returns the live surface, preferring plain-text.
func (a *Adapter) Detect() (Handle, bool) {
	return a.registry.Detect()
}

// MarkdownImage renders the plain-text reference for an uploaded image.
func MarkdownImage(originalName, link string) string {
	return fmt.Sprintf("![%s](%s)", originalName, link)
}

// Insert places a reference to link into the surface behind h. A plain-text
// surface gets markdown image syntax at the selection and the cursor moves
// two lines below the selection start. A structured surface gets an image
// node with src and alt attributes inside one model transaction.
func (a *Adapter) Insert(h Handle, originalName, link string) error {
	if !h.Valid() {
		return &InsertionError{Name: originalName, Err: ErrNoEditor}
	}

	a.insertMu.Lock()
	defer a.insertMu.Unlock()

	var err error

	switch h.Kind {
	case KindPlainText:
		err = insertPlain(h.plain, originalName, link)
	case KindStructured:
		err = insertStructured(h.structured, originalName, link)
	}

	if err != nil {
		return &InsertionError{Name: originalName, Kind: h.Kind, Err: err}
	}

	a.logger.Debug("editor: inserted image reference",
		slog.String("surface", h.ID),
		slog.String("kind", h.Kind.String()),
		slog.String("name", originalName),
	)

	return nil
}

func insertPlain(p PlainText, originalName, link string) error {
	from := p.CursorFrom()

	if err := p.ReplaceSelection(MarkdownImage(originalName, link)); err != nil {
		return fmt.Errorf("replacing selection: %w", err)
	}

	if err := p.SetCursor(Position{Line: from.Line + 2, Ch: 0}); err != nil {
		return fmt.Errorf("moving cursor: %w", err)
	}

	return nil
}

func insertStructured(s Structured, originalName, link string) error {
	model := s.Model()
	if model == nil {
		return errors.New("surface has no document model")
	}

	return model.Change(func(w Writer) error {
		node := w.CreateElement(imageElement, map[string]string{
			"src": link,
			"alt": originalName,
		})

		return w.InsertContent(node)
	})
}

// SuppressNativeUploadHandler disables the structured surface's own upload
// path so a pasted image is not uploaded twice. Plain-text surfaces and
// structured surfaces without a FileRepository are left alone.
func (a *Adapter) SuppressNativeUploadHandler(h Handle) error {
	if h.Kind != KindStructured || h.structured == nil {
		return nil
	}

	host, ok := h.structured.(UploadAdapterHost)
	if !ok {
		return nil
	}

	if err := host.SuppressUploadAdapter(); err != nil {
		return fmt.Errorf("editor: suppressing upload adapter of %q: %w", h.ID, err)
	}

	a.logger.Debug("editor: native upload adapter suppressed", slog.String("surface", h.ID))

	return nil
}

// KeepSuppressed holds every structured surface's native upload handler
// suppressed until ctx is done. With lifecycle set, suppression is applied
// to the surfaces already mounted and then on each mounted event. Without
// it the registry is polled at the adapter's interval.
func (a *Adapter) KeepSuppressed(ctx context.Context, lifecycle bool) {
	if lifecycle {
		// Subscribe before the initial sweep so no mount falls in between.
		cancel := a.registry.Subscribe(func(ev Event) {
			if ev.Type == EventMounted {
				a.suppress(ev.Handle)
			}
		})
		defer cancel()

		a.suppressAll()
		<-ctx.Done()

		return
	}

	a.suppressAll()

	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.suppressAll()
		}
	}
}

func (a *Adapter) suppressAll() {
	for _, h := range a.registry.Handles() {
		a.suppress(h)
	}
}

func (a *Adapter) suppress(h Handle) {
	if err := a.SuppressNativeUploadHandler(h); err != nil {
		a.logger.Warn("editor: upload adapter suppression failed",
			slog.String("surface", h.ID),
			slog.String("error", err.Error()),
		)
	}
}
