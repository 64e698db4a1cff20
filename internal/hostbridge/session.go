package hostbridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/tonimelisma/paste-proxy/internal/editor"
	"github.com/tonimelisma/paste-proxy/internal/ingest"
)

var errExpectedHello = errors.New("hostbridge: first message must be hello")

// session is one connected host.
type session struct {
	id       int64
	conn     *websocket.Conn
	registry *editor.Registry
	adapter  *editor.Adapter
	orch     *ingest.Orchestrator
	logger   *slog.Logger

	plainMu sync.Mutex
	plain   map[string]*remotePlain

	// ctx is the session lifetime; writes outside the read loop use it.
	ctx context.Context //nolint:containedctx // scoped to the connection
}

func (s *Server) newSession(conn *websocket.Conn) *session {
	id := s.nextID.Add(1)
	logger := s.logger.With(slog.Int64("session", id))
	registry := editor.NewRegistry(logger)

	sess := &session{
		id:       id,
		conn:     conn,
		registry: registry,
		adapter:  editor.NewAdapter(registry, s.opts.PollInterval, logger),
		logger:   logger,
		plain:    make(map[string]*remotePlain),
	}

	sess.orch = ingest.New(s.creds, s.uploader, sess.adapter, ingest.Options{
		MaxAttempts: s.opts.MaxAttempts,
		Notifier:    sess,
		Recorder:    s.opts.Recorder,
		Logger:      logger,
	})

	return sess
}

// run performs the handshake and then dispatches messages until the host
// disconnects or ctx ends. In-flight pastes are drained before returning.
func (sess *session) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess.ctx = ctx

	hello, err := sess.handshake(ctx)
	if err != nil {
		return err
	}

	lifecycle := hello.Lifecycle == nil || *hello.Lifecycle

	sess.logger.Info("host connected",
		slog.String("client", hello.Client),
		slog.Int("version", hello.Version),
		slog.Bool("lifecycle", lifecycle),
	)

	suppressDone := make(chan struct{})

	go func() {
		defer close(suppressDone)
		sess.adapter.KeepSuppressed(ctx, lifecycle)
	}()

	defer func() {
		cancel()
		<-suppressDone
		sess.orch.Wait()
		sess.logger.Info("host disconnected")
	}()

	for {
		var msg inbound
		if err := wsjson.Read(ctx, sess.conn, &msg); err != nil {
			return err
		}

		if err := sess.dispatch(ctx, msg); err != nil {
			sess.logger.Warn("host bridge: rejected message",
				slog.String("type", msg.Type),
				slog.String("error", err.Error()),
			)

			if err := sess.send(outbound{Type: typeError, Message: err.Error()}); err != nil {
				return err
			}
		}
	}
}

func (sess *session) handshake(ctx context.Context) (inbound, error) {
	helloCtx, cancel := context.WithTimeout(ctx, helloTimeout)
	defer cancel()

	var hello inbound
	if err := wsjson.Read(helloCtx, sess.conn, &hello); err != nil {
		return inbound{}, fmt.Errorf("hostbridge: reading hello: %w", err)
	}

	if hello.Type != typeHello {
		return inbound{}, fmt.Errorf("%w, got %q", errExpectedHello, hello.Type)
	}

	if err := sess.send(outbound{Type: typeWelcome, Version: protocolVersion}); err != nil {
		return inbound{}, err
	}

	return hello, nil
}

func (sess *session) dispatch(ctx context.Context, msg inbound) error {
	switch msg.Type {
	case typeMounted:
		return sess.mount(msg)
	case typeUnmounted:
		if !sess.registry.Unmount(msg.ID) {
			return fmt.Errorf("hostbridge: surface %q is not mounted", msg.ID)
		}

		sess.plainMu.Lock()
		delete(sess.plain, msg.ID)
		sess.plainMu.Unlock()

		return nil
	case typePaste:
		return sess.paste(ctx, msg)
	default:
		return fmt.Errorf("hostbridge: unknown message type %q", msg.Type)
	}
}

func (sess *session) mount(msg inbound) error {
	if msg.ID == "" {
		return errors.New("hostbridge: mounted without id")
	}

	kind, err := editor.ParseKind(msg.Surface)
	if err != nil {
		return err
	}

	if kind == editor.KindStructured {
		_, err = sess.registry.Mount(msg.ID, newRemoteStructured(sess, msg.ID))
		return err
	}

	p := &remotePlain{sess: sess, id: msg.ID}
	if _, err := sess.registry.Mount(msg.ID, p); err != nil {
		return err
	}

	sess.plainMu.Lock()
	sess.plain[msg.ID] = p
	sess.plainMu.Unlock()

	return nil
}

func (sess *session) paste(ctx context.Context, msg inbound) error {
	if msg.Cursor != nil && msg.ID != "" {
		sess.updateCursor(msg.ID, editor.Position{Line: msg.Cursor.Line, Ch: msg.Cursor.Ch})
	}

	handled := sess.orch.HandlePaste(ctx, msg.pasteEvent())

	return sess.send(outbound{Type: typePasteAck, ID: msg.ID, Handled: &handled})
}

// updateCursor records where the host's plain-text selection starts.
func (sess *session) updateCursor(id string, pos editor.Position) {
	sess.plainMu.Lock()
	p, ok := sess.plain[id]
	sess.plainMu.Unlock()

	if ok {
		p.setCursorFromHost(pos)
	}
}

// Notify implements ingest.Notifier.
func (sess *session) Notify(_ context.Context, message string) {
	if err := sess.send(outbound{Type: typeNotice, Message: message}); err != nil {
		sess.logger.Warn("host bridge: notice not delivered", slog.String("error", err.Error()))
	}
}

func (sess *session) send(msg outbound) error {
	ctx, cancel := context.WithTimeout(sess.ctx, writeTimeout)
	defer cancel()

	if err := wsjson.Write(ctx, sess.conn, msg); err != nil {
		return fmt.Errorf("hostbridge: sending %s to session %d: %w", msg.Type, sess.id, err)
	}

	return nil
}
