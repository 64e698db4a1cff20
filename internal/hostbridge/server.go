// Package hostbridge lets an external editor host, such as a browser shim in
// front of a wiki, drive the ingestion pipeline over a websocket. The host
// publishes its editing surfaces and forwards paste events; the bridge
// answers with insertion commands, upload-adapter suppression and notices.
package hostbridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/tonimelisma/paste-proxy/internal/ingest"
)

// Defaults.
const (
	DefaultListenAddr = "127.0.0.1:17345"
	helloTimeout      = 10 * time.Second
	writeTimeout      = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second

	// maxMessageSize bounds a single message; pastes carry base64 images.
	maxMessageSize = 64 << 20
)

// ErrNotLoopback is returned when asked to listen on a non-loopback address.
// The bridge spends the cached credential on behalf of whoever connects.
var ErrNotLoopback = errors.New("hostbridge: listen address must be loopback")

// Options configures a Server.
type Options struct {
	MaxAttempts    int
	PollInterval   time.Duration // suppression polling for hosts without lifecycle events
	Recorder       ingest.Recorder
	OriginPatterns []string // extra origins allowed to connect, e.g. "wiki.example.com"
	Logger         *slog.Logger
}

// Server accepts host connections. Each connection gets its own surface
// registry and orchestrator; the credential cache and upload client are
// shared.
type Server struct {
	creds    ingest.Credentials
	uploader ingest.Uploader
	opts     Options
	logger   *slog.Logger

	nextID   atomic.Int64
	mu       sync.Mutex
	sessions map[int64]*session
}

// NewServer creates a Server.
func NewServer(creds ingest.Credentials, uploader ingest.Uploader, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Server{
		creds:    creds,
		uploader: uploader,
		opts:     opts,
		logger:   opts.Logger,
		sessions: make(map[int64]*session),
	}
}

// Handler returns the HTTP handler serving /ws and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

// Sessions returns the number of connected hosts.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

// ListenAndServe serves on addr until ctx is canceled. ready, if non-nil,
// receives the bound address once listening.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready func(addr string)) error {
	if err := checkLoopback(addr); err != nil {
		return err
	}

	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("hostbridge: listening on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.logger.Info("host bridge listening", slog.String("addr", ln.Addr().String()))

	if ready != nil {
		ready(ln.Addr().String())
	}

	errc := make(chan error, 1)

	go func() {
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("hostbridge: serving: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("hostbridge: shutting down: %w", err)
	}

	return nil
}

func checkLoopback(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("hostbridge: invalid listen address %q: %w", addr, err)
	}

	if host == "localhost" {
		return nil
	}

	if ip := net.ParseIP(host); ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("%w: %q", ErrNotLoopback, addr)
	}

	return nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.opts.OriginPatterns,
	})
	if err != nil {
		s.logger.Warn("host bridge: websocket accept failed", slog.String("error", err.Error()))
		return
	}

	conn.SetReadLimit(maxMessageSize)

	sess := s.newSession(conn)

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.sessions, sess.id)
		s.mu.Unlock()
	}()

	err = sess.run(r.Context())

	switch {
	case err == nil, errors.Is(err, context.Canceled):
		conn.Close(websocket.StatusNormalClosure, "")
	case websocket.CloseStatus(err) != -1:
		// host closed
	default:
		s.logger.Warn("host bridge: session ended", slog.Int64("session", sess.id), slog.String("error", err.Error()))
		conn.Close(websocket.StatusPolicyViolation, truncateReason(err.Error()))
	}
}

// truncateReason keeps a close reason within the 123-byte control frame
// payload limit.
func truncateReason(s string) string {
	const maxReason = 120
	if len(s) > maxReason {
		return s[:maxReason]
	}

	return s
}
