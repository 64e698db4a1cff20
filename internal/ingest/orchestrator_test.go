package ingest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/paste-proxy/internal/clipboard"
	"github.com/tonimelisma/paste-proxy/internal/credential"
	"github.com/tonimelisma/paste-proxy/internal/editor"
	"github.com/tonimelisma/paste-proxy/internal/history"
)

type fakeCreds struct {
	acquires    atomic.Int32
	invalidates atomic.Int32
	err         error
}

func (f *fakeCreds) Acquire(context.Context) (credential.Credential, error) {
	f.acquires.Add(1)

	if f.err != nil {
		return credential.Credential{}, f.err
	}

	return credential.Credential{Token: "tok"}, nil
}

func (f *fakeCreds) Invalidate() { f.invalidates.Add(1) }

type fakeUploader struct {
	calls atomic.Int32
	// fail returns the error for the n-th call (1-based); nil means success.
	fail func(n int32, p clipboard.ImagePayload) error
}

func (f *fakeUploader) Upload(_ context.Context, p clipboard.ImagePayload, token string) (string, error) {
	n := f.calls.Add(1)

	if token == "" {
		return "", errors.New("no token")
	}

	if f.fail != nil {
		if err := f.fail(n, p); err != nil {
			return "", err
		}
	}

	return "remote_" + p.OriginalName, nil
}

func (f *fakeUploader) RawURL(name string) string { return "https://fb/raw/" + name }

type fakeInserter struct {
	mu       sync.Mutex
	absent   bool
	err      error
	inserted []string
}

func (f *fakeInserter) Detect() (editor.Handle, bool) {
	return editor.Handle{ID: "md", Kind: editor.KindPlainText}, !f.absent
}

func (f *fakeInserter) Insert(_ editor.Handle, name, link string) error {
	if f.err != nil {
		return &editor.InsertionError{Name: name, Kind: editor.KindPlainText, Err: f.err}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.inserted = append(f.inserted, editor.MarkdownImage(name, link))

	return nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingNotifier) Notify(_ context.Context, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, message)
}

type memRecorder struct {
	mu   sync.Mutex
	recs []history.Record
}

func (m *memRecorder) Record(_ context.Context, rec history.Record) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.recs = append(m.recs, rec)

	return int64(len(m.recs)), nil
}

func png(name string) clipboard.ImagePayload {
	return clipboard.ImagePayload{Data: []byte("\x89PNG\r\n\x1a\n"), OriginalName: name, MIMEType: "image/png"}
}

type harness struct {
	creds    *fakeCreds
	uploader *fakeUploader
	inserter *fakeInserter
	notifier *recordingNotifier
	recorder *memRecorder
	orch     *Orchestrator
}

func newHarness() *harness {
	h := &harness{
		creds:    &fakeCreds{},
		uploader: &fakeUploader{},
		inserter: &fakeInserter{},
		notifier: &recordingNotifier{},
		recorder: &memRecorder{},
	}

	h.orch = New(h.creds, h.uploader, h.inserter, Options{Notifier: h.notifier, Recorder: h.recorder})

	return h
}

func TestIngest_FirstAttemptSucceeds(t *testing.T) {
	h := newHarness()

	res := h.orch.Ingest(context.Background(), []clipboard.ImagePayload{png("a.png")})

	require.Len(t, res, 1)
	assert.Equal(t, StateInserted, res[0].State)
	assert.Equal(t, 1, res[0].Attempts)
	assert.Equal(t, "remote_a.png", res[0].RemoteName)
	assert.NoError(t, res[0].Err)
	assert.Equal(t, []string{"![a.png](https://fb/raw/remote_a.png)"}, h.inserter.inserted)
	assert.Equal(t, int32(0), h.creds.invalidates.Load())
	assert.Empty(t, h.notifier.messages)

	require.Len(t, h.recorder.recs, 1)
	assert.Equal(t, history.StatusInserted, h.recorder.recs[0].Status)
	assert.Equal(t, "https://fb/raw/remote_a.png", h.recorder.recs[0].Link)
}

func TestIngest_RetryBound(t *testing.T) {
	h := newHarness()
	h.uploader.fail = func(int32, clipboard.ImagePayload) error { return errors.New("always") }

	res := h.orch.Ingest(context.Background(), []clipboard.ImagePayload{png("a.png")})

	assert.Equal(t, StateFailed, res[0].State)
	assert.Equal(t, 3, res[0].Attempts)
	assert.Equal(t, int32(3), h.uploader.calls.Load())
	assert.Equal(t, int32(3), h.creds.acquires.Load())
	assert.Equal(t, int32(3), h.creds.invalidates.Load())
	assert.Equal(t, []string{"Image upload failed after 3 attempts: a.png"}, h.notifier.messages)
	assert.Empty(t, h.inserter.inserted)

	require.Len(t, h.recorder.recs, 1)
	assert.Equal(t, history.StatusFailed, h.recorder.recs[0].Status)
	assert.Equal(t, 3, h.recorder.recs[0].Attempts)
	assert.Contains(t, h.recorder.recs[0].Error, "always")
}

func TestIngest_RecoversOnSecondAttempt(t *testing.T) {
	h := newHarness()
	h.uploader.fail = func(n int32, _ clipboard.ImagePayload) error {
		if n == 1 {
			return errors.New("transient")
		}

		return nil
	}

	res := h.orch.Ingest(context.Background(), []clipboard.ImagePayload{png("a.png")})

	assert.Equal(t, StateInserted, res[0].State)
	assert.Equal(t, 2, res[0].Attempts)
	assert.Equal(t, int32(1), h.creds.invalidates.Load())
	assert.Empty(t, h.notifier.messages)
}

func TestIngest_CredentialFailureIsRetried(t *testing.T) {
	h := newHarness()
	h.creds.err = errors.New("login rejected")

	res := h.orch.Ingest(context.Background(), []clipboard.ImagePayload{png("a.png")})

	assert.Equal(t, StateFailed, res[0].State)
	assert.Equal(t, int32(3), h.creds.acquires.Load())
	assert.Equal(t, int32(0), h.uploader.calls.Load())
	assert.Equal(t, int32(3), h.creds.invalidates.Load())
	assert.Len(t, h.notifier.messages, 1)
}

func TestIngest_InsertionErrorIsTerminal(t *testing.T) {
	h := newHarness()
	h.inserter.err = errors.New("read-only")

	res := h.orch.Ingest(context.Background(), []clipboard.ImagePayload{png("a.png")})

	assert.Equal(t, StateFailed, res[0].State)
	assert.Equal(t, 1, res[0].Attempts)
	assert.Equal(t, int32(1), h.uploader.calls.Load())
	assert.Equal(t, int32(0), h.creds.invalidates.Load())

	var insErr *editor.InsertionError
	require.ErrorAs(t, res[0].Err, &insErr)

	require.Len(t, h.notifier.messages, 1)
	assert.Contains(t, h.notifier.messages[0], "a.png")

	require.Len(t, h.recorder.recs, 1)
	assert.Equal(t, "remote_a.png", h.recorder.recs[0].RemoteName)
}

func TestIngest_NoEditor(t *testing.T) {
	h := newHarness()
	h.inserter.absent = true

	res := h.orch.Ingest(context.Background(), []clipboard.ImagePayload{png("a.png")})

	assert.Equal(t, StateFailed, res[0].State)
	assert.ErrorIs(t, res[0].Err, editor.ErrNoEditor)
	assert.Equal(t, []string{"No compatible editor found."}, h.notifier.messages)
	assert.Equal(t, int32(1), h.uploader.calls.Load())
}

func TestIngest_ImagesAreIndependent(t *testing.T) {
	h := newHarness()
	h.uploader.fail = func(_ int32, p clipboard.ImagePayload) error {
		if p.OriginalName == "bad.png" {
			return errors.New("rejected")
		}

		return nil
	}

	res := h.orch.Ingest(context.Background(), []clipboard.ImagePayload{png("good.png"), png("bad.png"), png("ok.png")})

	require.Len(t, res, 3)
	assert.Equal(t, StateInserted, res[0].State)
	assert.Equal(t, StateFailed, res[1].State)
	assert.Equal(t, StateInserted, res[2].State)
	assert.Len(t, h.inserter.inserted, 2)
	assert.Equal(t, []string{"Image upload failed after 3 attempts: bad.png"}, h.notifier.messages)
}

func TestIngest_CanceledStopsRetrying(t *testing.T) {
	h := newHarness()

	ctx, cancel := context.WithCancel(context.Background())
	h.uploader.fail = func(int32, clipboard.ImagePayload) error {
		cancel()
		return context.Canceled
	}

	res := h.orch.Ingest(ctx, []clipboard.ImagePayload{png("a.png")})

	assert.Equal(t, StateFailed, res[0].State)
	assert.Equal(t, 1, res[0].Attempts)
	assert.ErrorIs(t, res[0].Err, context.Canceled)
	assert.Empty(t, h.notifier.messages)
	assert.Len(t, h.recorder.recs, 1)
}

func TestHandlePaste(t *testing.T) {
	h := newHarness()

	handled := h.orch.HandlePaste(context.Background(), clipboard.PasteEvent{
		Source: "test",
		Items:  []clipboard.Item{{Type: "text/plain", Data: []byte("hi")}},
	})
	assert.False(t, handled, "text-only paste stays with the editor")

	handled = h.orch.HandlePaste(context.Background(), clipboard.PasteEvent{
		Source: "test",
		Items: []clipboard.Item{
			{Type: "text/html", Data: []byte("<img>")},
			{Type: "image/png", Name: "a.png", Data: []byte("\x89PNG\r\n\x1a\n")},
			{Type: "image/png", Name: "unreadable.png"},
		},
	})
	assert.True(t, handled)

	h.orch.Wait()

	assert.Equal(t, int32(1), h.uploader.calls.Load())
	assert.Len(t, h.inserter.inserted, 1)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "acquire_credential", StateAcquireCredential.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(42).String())
	assert.True(t, StateInserted.Terminal())
	assert.False(t, StateUpload.Terminal())
}
