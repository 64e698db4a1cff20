// Package ingest turns paste events into uploaded images referenced from the
// live editor. Each image runs its own state machine: acquire a credential,
// upload, insert. Recoverable failures invalidate the credential and retry
// up to a fixed number of attempts; an insertion failure ends the image
// immediately.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/paste-proxy/internal/clipboard"
	"github.com/tonimelisma/paste-proxy/internal/credential"
	"github.com/tonimelisma/paste-proxy/internal/editor"
	"github.com/tonimelisma/paste-proxy/internal/history"
)

// DefaultMaxAttempts bounds the credential → upload → insert cycle.
const DefaultMaxAttempts = 3

// Notice texts shown to the user.
const (
	noticeRetriesExhausted = "Image upload failed after %d attempts: %s"
	noticeNoEditor         = "No compatible editor found."
	noticeInsertFailed     = "Could not insert image %s: %v"
)

// Credentials is the credential cache as the orchestrator uses it.
type Credentials interface {
	Acquire(ctx context.Context) (credential.Credential, error)
	Invalidate()
}

// Uploader performs the two-phase transfer. filebrowser.Client satisfies it.
type Uploader interface {
	Upload(ctx context.Context, payload clipboard.ImagePayload, token string) (string, error)
	RawURL(name string) string
}

// Inserter resolves the live surface and inserts references into it.
// editor.Adapter satisfies it.
type Inserter interface {
	Detect() (editor.Handle, bool)
	Insert(h editor.Handle, originalName, link string) error
}

// Notifier shows a message to the user.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, message string)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, message string) { f(ctx, message) }

// Recorder stores terminal outcomes. history.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, rec history.Record) (int64, error)
}

// Options configures an Orchestrator. Notifier and Recorder are optional.
type Options struct {
	MaxAttempts int // <= 0 selects DefaultMaxAttempts
	Notifier    Notifier
	Recorder    Recorder
	Logger      *slog.Logger
}

// Result is the terminal outcome of one image.
type Result struct {
	OriginalName string
	RemoteName   string // set once an upload succeeded
	Link         string
	Attempts     int
	State        State // StateInserted or StateFailed
	Err          error // last error, nil when inserted
}

// Orchestrator runs paste events through the pipeline.
type Orchestrator struct {
	creds       Credentials
	uploader    Uploader
	inserter    Inserter
	notifier    Notifier
	recorder    Recorder
	maxAttempts int
	logger      *slog.Logger

	inflight sync.WaitGroup
}

// New creates an Orchestrator.
func New(creds Credentials, uploader Uploader, inserter Inserter, opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}

	return &Orchestrator{
		creds:       creds,
		uploader:    uploader,
		inserter:    inserter,
		notifier:    opts.Notifier,
		recorder:    opts.Recorder,
		maxAttempts: opts.MaxAttempts,
		logger:      opts.Logger,
	}
}

// HandlePaste takes over a paste event when it carries at least one image
// and reports whether it did; only then should the host suppress its
// native paste handling. Ingestion continues in the background; Wait blocks
// until it is done.
func (o *Orchestrator) HandlePaste(ctx context.Context, ev clipboard.PasteEvent) bool {
	images := ev.Images()
	if len(images) == 0 {
		o.logger.Debug("ingest: paste without images ignored",
			slog.String("source", ev.Source),
			slog.Int("items", len(ev.Items)),
		)

		return false
	}

	o.logger.Info("ingest: paste intercepted",
		slog.String("source", ev.Source),
		slog.Int("images", len(images)),
	)

	o.inflight.Add(1)

	go func() {
		defer o.inflight.Done()
		o.Ingest(ctx, images)
	}()

	return true
}

// Wait blocks until every ingestion started by HandlePaste has finished.
func (o *Orchestrator) Wait() {
	o.inflight.Wait()
}

// Ingest runs every payload concurrently and independently and returns the
// results in payload order. A failing image never affects the others.
func (o *Orchestrator) Ingest(ctx context.Context, payloads []clipboard.ImagePayload) []Result {
	results := make([]Result, len(payloads))

	var g errgroup.Group

	for i, p := range payloads {
		g.Go(func() error {
			results[i] = o.ingestOne(ctx, p)
			return nil
		})
	}

	_ = g.Wait() // workers never fail; outcomes are in results

	return results
}

// ingestOne drives one image to a terminal state.
func (o *Orchestrator) ingestOne(ctx context.Context, p clipboard.ImagePayload) Result {
	res := Result{OriginalName: p.OriginalName}
	o.transition(p, StateStart, 0)

	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		res.Attempts = attempt

		name, err := o.attempt(ctx, p, attempt)
		if err == nil {
			res.RemoteName = name
			res.Link = o.uploader.RawURL(name)

			return o.insert(ctx, p, res)
		}

		res.Err = err

		o.logger.Warn("ingest: attempt failed",
			slog.String("file", p.OriginalName),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", o.maxAttempts),
			slog.String("error", err.Error()),
		)

		// Every recoverable failure drops the credential, whatever its kind.
		o.transition(p, StateInvalidateCredential, attempt)
		o.creds.Invalidate()

		if ctx.Err() != nil {
			res.Err = fmt.Errorf("ingest: %s: %w", p.OriginalName, ctx.Err())
			return o.finish(ctx, p, res, StateFailed)
		}
	}

	o.notify(ctx, fmt.Sprintf(noticeRetriesExhausted, o.maxAttempts, p.OriginalName))

	return o.finish(ctx, p, res, StateFailed)
}

// attempt acquires a credential and uploads once. Returns the remote name.
func (o *Orchestrator) attempt(ctx context.Context, p clipboard.ImagePayload, n int) (string, error) {
	o.transition(p, StateAcquireCredential, n)

	cred, err := o.creds.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("ingest: acquiring credential: %w", err)
	}

	o.transition(p, StateUpload, n)

	name, err := o.uploader.Upload(ctx, p, cred.Token)
	if err != nil {
		return "", fmt.Errorf("ingest: uploading %s: %w", p.OriginalName, err)
	}

	return name, nil
}

// insert places the reference. Any failure here is terminal.
func (o *Orchestrator) insert(ctx context.Context, p clipboard.ImagePayload, res Result) Result {
	o.transition(p, StateInsert, res.Attempts)

	h, ok := o.inserter.Detect()

	var err error
	if ok {
		err = o.inserter.Insert(h, p.OriginalName, res.Link)
	} else {
		err = &editor.InsertionError{Name: p.OriginalName, Err: editor.ErrNoEditor}
	}

	if err != nil {
		res.Err = err

		if errors.Is(err, editor.ErrNoEditor) {
			o.notify(ctx, noticeNoEditor)
		} else {
			o.notify(ctx, fmt.Sprintf(noticeInsertFailed, p.OriginalName, err))
		}

		return o.finish(ctx, p, res, StateFailed)
	}

	res.Err = nil

	return o.finish(ctx, p, res, StateInserted)
}

func (o *Orchestrator) finish(ctx context.Context, p clipboard.ImagePayload, res Result, state State) Result {
	res.State = state
	o.transition(p, state, res.Attempts)

	if state == StateInserted {
		o.logger.Info("ingest: image inserted",
			slog.String("file", p.OriginalName),
			slog.String("remote_name", res.RemoteName),
			slog.Int("attempts", res.Attempts),
		)
	} else {
		o.logger.Error("ingest: image failed",
			slog.String("file", p.OriginalName),
			slog.Int("attempts", res.Attempts),
			slog.String("error", errString(res.Err)),
		)
	}

	o.record(ctx, p, res)

	return res
}

func (o *Orchestrator) record(ctx context.Context, p clipboard.ImagePayload, res Result) {
	if o.recorder == nil {
		return
	}

	status := history.StatusInserted
	if res.State == StateFailed {
		status = history.StatusFailed
	}

	// The ledger outlives a canceled paste; record even after shutdown began.
	_, err := o.recorder.Record(context.WithoutCancel(ctx), history.Record{
		RemoteName:   res.RemoteName,
		OriginalName: p.OriginalName,
		MIMEType:     p.MIMEType,
		Size:         p.Size(),
		Link:         res.Link,
		Attempts:     res.Attempts,
		Status:       status,
		Error:        errString(res.Err),
	})
	if err != nil {
		o.logger.Warn("ingest: recording outcome failed", slog.String("error", err.Error()))
	}
}

func (o *Orchestrator) notify(ctx context.Context, message string) {
	o.logger.Debug("ingest: notifying user", slog.String("message", message))

	if o.notifier != nil {
		o.notifier.Notify(ctx, message)
	}
}

func (o *Orchestrator) transition(p clipboard.ImagePayload, s State, attempt int) {
	o.logger.Debug("ingest: state",
		slog.String("file", p.OriginalName),
		slog.String("state", s.String()),
		slog.Int("attempt", attempt),
	)
}

func errString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}
