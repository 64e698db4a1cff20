package clipboard

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettleDelay is how long a file must go without writes before the
// inbox treats it as complete. Screenshot tools write in several chunks.
const DefaultSettleDelay = 300 * time.Millisecond

// FsWatcher is the subset of fsnotify.Watcher the inbox uses. Tests inject
// channels directly.
type FsWatcher interface {
	Add(name string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

type fsnotifyWatcher struct {
	w *fsnotify.Watcher
}

func (f *fsnotifyWatcher) Add(name string) error         { return f.w.Add(name) }
func (f *fsnotifyWatcher) Close() error                  { return f.w.Close() }
func (f *fsnotifyWatcher) Events() <-chan fsnotify.Event { return f.w.Events }
func (f *fsnotifyWatcher) Errors() <-chan error          { return f.w.Errors }

func newFsnotifyWatcher() (FsWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &fsnotifyWatcher{w: w}, nil
}

// Inbox turns image files appearing in a directory into single-image paste
// events. It is the headless stand-in for pressing paste after taking a
// screenshot.
type Inbox struct {
	dir    string
	settle time.Duration
	logger *slog.Logger

	// newWatcher creates the filesystem watcher. Tests override it.
	newWatcher func() (FsWatcher, error)
}

// NewInbox creates an Inbox for dir. settle <= 0 selects DefaultSettleDelay.
func NewInbox(dir string, settle time.Duration, logger *slog.Logger) *Inbox {
	if logger == nil {
		logger = slog.Default()
	}

	if settle <= 0 {
		settle = DefaultSettleDelay
	}

	return &Inbox{
		dir:        dir,
		settle:     settle,
		logger:     logger,
		newWatcher: newFsnotifyWatcher,
	}
}

// Watch blocks until ctx is canceled or the watcher fails, calling handle
// once for every image file that settles in the directory.
func (in *Inbox) Watch(ctx context.Context, handle func(PasteEvent)) error {
	watcher, err := in.newWatcher()
	if err != nil {
		return fmt.Errorf("clipboard: creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(in.dir); err != nil {
		return fmt.Errorf("clipboard: watching %s: %w", in.dir, err)
	}

	in.logger.Info("watching inbox", slog.String("dir", in.dir))

	ready := make(chan string)
	pending := make(map[string]*time.Timer)

	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events():
			if !ok {
				return nil
			}

			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}

			if skipInboxName(filepath.Base(ev.Name)) {
				continue
			}

			in.schedule(ctx, ev.Name, pending, ready)

		case werr, ok := <-watcher.Errors():
			if !ok {
				return nil
			}

			in.logger.Warn("inbox watcher error", slog.String("error", werr.Error()))

		case path := <-ready:
			delete(pending, path)
			in.deliver(path, handle)
		}
	}
}

// schedule (re)arms the settle timer for path.
func (in *Inbox) schedule(ctx context.Context, path string, pending map[string]*time.Timer, ready chan<- string) {
	if t, ok := pending[path]; ok {
		t.Reset(in.settle)
		return
	}

	pending[path] = time.AfterFunc(in.settle, func() {
		select {
		case ready <- path:
		case <-ctx.Done():
		}
	})
}

func (in *Inbox) deliver(path string, handle func(PasteEvent)) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}

	it, err := ItemFromFile(path)
	if err != nil {
		in.logger.Warn("inbox file unreadable",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)

		return
	}

	if !it.IsImage() {
		in.logger.Debug("inbox: ignoring non-image file",
			slog.String("path", path),
			slog.String("type", it.Type),
		)

		return
	}

	in.logger.Info("inbox: image ready",
		slog.String("path", path),
		slog.Int("bytes", len(it.Data)),
	)

	handle(PasteEvent{Source: "inbox", Items: []Item{it}})
}

// skipInboxName filters editor swap files and partial downloads.
func skipInboxName(name string) bool {
	return strings.HasPrefix(name, ".") ||
		strings.HasSuffix(name, "~") ||
		strings.HasSuffix(name, ".tmp") ||
		strings.HasSuffix(name, ".part") ||
		strings.HasSuffix(name, ".crdownload")
}
