package filebrowser

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/paste-proxy/internal/clipboard"
)

// tusServer records the requests of one two-phase upload.
type tusServer struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   [][]byte

	initStatus     int
	transferStatus int
	transferBody   string
}

func (s *tusServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.requests = append(s.requests, r)
	s.bodies = append(s.bodies, body)
	s.mu.Unlock()

	switch r.Method {
	case http.MethodPost:
		w.WriteHeader(s.initStatus)
		_, _ = io.WriteString(w, "initiate says no")
	case http.MethodPatch:
		w.WriteHeader(s.transferStatus)
		_, _ = io.WriteString(w, s.transferBody)
	}
}

func payload() clipboard.ImagePayload {
	return clipboard.ImagePayload{
		Data:         []byte("\x89PNG fake image bytes"),
		OriginalName: "name.png",
		MIMEType:     "image/png",
	}
}

func TestUpload_Success(t *testing.T) {
	ts := &tusServer{initStatus: http.StatusCreated, transferStatus: http.StatusNoContent}
	srv := httptest.NewServer(ts)
	defer srv.Close()

	name, err := newTestClient(t, srv.URL).Upload(context.Background(), payload(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, testPrefix+"name.png", name)

	require.Len(t, ts.requests, 2)

	initReq := ts.requests[0]
	assert.Equal(t, http.MethodPost, initReq.Method)
	assert.Equal(t, "/api/tus/uploads/"+testPrefix+"name.png", initReq.URL.Path)
	assert.Equal(t, "false", initReq.URL.Query().Get("override"))
	assert.Equal(t, "1.0.0", initReq.Header.Get("Tus-Resumable"))
	assert.Equal(t, strconv.Itoa(len(payload().Data)), initReq.Header.Get("Upload-Length"))
	assert.Equal(t, "tok-1", initReq.Header.Get("X-Auth"))
	assert.Empty(t, ts.bodies[0])

	patch := ts.requests[1]
	assert.Equal(t, http.MethodPatch, patch.Method)
	assert.Equal(t, initReq.URL.String(), patch.URL.String())
	assert.Equal(t, "application/offset+octet-stream", patch.Header.Get("Content-Type"))
	assert.Equal(t, "1.0.0", patch.Header.Get("Tus-Resumable"))
	assert.Equal(t, "0", patch.Header.Get("Upload-Offset"))
	assert.Equal(t, "tok-1", patch.Header.Get("X-Auth"))
	assert.Equal(t, payload().Data, ts.bodies[1])
}

func TestUpload_InitiateRejected(t *testing.T) {
	ts := &tusServer{initStatus: http.StatusConflict, transferStatus: http.StatusNoContent}
	srv := httptest.NewServer(ts)
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Upload(context.Background(), payload(), "tok")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUploadInit)
	assert.ErrorIs(t, err, ErrConflict)

	var initErr *UploadInitError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, "initiate says no", initErr.Message)
	assert.Equal(t, testPrefix+"name.png", initErr.Name)

	// The transfer phase never runs after a failed initiate.
	assert.Len(t, ts.requests, 1)
}

func TestUpload_TransferTooLarge(t *testing.T) {
	ts := &tusServer{
		initStatus:     http.StatusCreated,
		transferStatus: http.StatusRequestEntityTooLarge,
		transferBody:   "413 Request Entity Too Large",
	}
	srv := httptest.NewServer(ts)
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Upload(context.Background(), payload(), "tok")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUploadTransfer)
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.NotErrorIs(t, err, ErrUploadInit)

	var trErr *UploadTransferError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, http.StatusRequestEntityTooLarge, trErr.StatusCode)
	assert.Contains(t, trErr.Error(), "413")
}

func TestUpload_EmptyPayload(t *testing.T) {
	ts := &tusServer{initStatus: http.StatusCreated, transferStatus: http.StatusNoContent}
	srv := httptest.NewServer(ts)
	defer srv.Close()

	p := payload()
	p.Data = nil

	_, err := newTestClient(t, srv.URL).Upload(context.Background(), p, "tok")
	require.NoError(t, err)
	assert.Equal(t, "0", ts.requests[0].Header.Get("Upload-Length"))
	assert.Empty(t, ts.bodies[1])
}

func TestUpload_NetworkError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", http.DefaultClient, nil)

	_, err := c.Upload(context.Background(), payload(), "tok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initiate request failed")
}

func TestUpload_WithBandwidthLimiter(t *testing.T) {
	ts := &tusServer{initStatus: http.StatusCreated, transferStatus: http.StatusNoContent}
	srv := httptest.NewServer(ts)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	c.SetBandwidthLimiter(NewBandwidthLimiter(1024*1024, nil))

	_, err := c.Upload(context.Background(), payload(), "tok")
	require.NoError(t, err)
	assert.Equal(t, payload().Data, ts.bodies[1])
}

func TestNewSession(t *testing.T) {
	c := newTestClient(t, "http://fb")
	s := c.NewSession("a.png", 10)

	assert.Equal(t, testPrefix+"a.png", s.Name)
	assert.Equal(t, "http://fb/api/tus/uploads/"+testPrefix+"a.png?override=false", s.URL)
	assert.Equal(t, int64(10), s.Length)
}
