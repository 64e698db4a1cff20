package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/tonimelisma/paste-proxy/internal/config"
	"github.com/tonimelisma/paste-proxy/internal/credential"
	"github.com/tonimelisma/paste-proxy/internal/filebrowser"
	"github.com/tonimelisma/paste-proxy/internal/history"
	"github.com/tonimelisma/paste-proxy/internal/ingest"
)

// Session holds the File Browser client, the credential cache, and the
// optional upload ledger for one command invocation.
type Session struct {
	Client  *filebrowser.Client
	Creds   *credential.Cache
	History *history.Store // nil when history_db = "off"
	Cfg     *config.Resolved

	logger *slog.Logger
}

// newSecretProvider reads the password from the environment and falls back
// to an interactive prompt.
func newSecretProvider() credential.SecretProvider {
	return credential.Chain(
		credential.EnvSecret(config.EnvPassword),
		credential.NewTerminalPrompt(),
	)
}

// newFileBrowserClient builds a client whose transfers honor the configured
// timeout and bandwidth limit. The http.Client carries no cookie jar.
func newFileBrowserClient(cfg *config.Resolved, logger *slog.Logger) *filebrowser.Client {
	client := filebrowser.NewClient(cfg.APIOrigin, &http.Client{Timeout: cfg.RequestTimeout}, logger)
	client.SetBandwidthLimiter(filebrowser.NewBandwidthLimiter(cfg.BandwidthLimit, logger))

	return client
}

// NewSession creates a Session from resolved config. It fails early when no
// API origin is configured.
func NewSession(ctx context.Context, cfg *config.Resolved, secrets credential.SecretProvider, logger *slog.Logger) (*Session, error) {
	if err := cfg.RequireAPIOrigin(); err != nil {
		return nil, err
	}

	client := newFileBrowserClient(cfg, logger)

	creds := credential.NewCache(client, secrets, credential.Options{
		Username: cfg.Username,
		Origin:   cfg.APIOrigin,
		TTL:      cfg.CredentialTTL,
		Store:    credential.NewFileStore(cfg.CredentialFile),
		Logger:   logger,
	})

	store, err := openHistory(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	logger.Debug("session ready",
		slog.String("origin", cfg.APIOrigin),
		slog.String("username", cfg.Username),
		slog.Bool("history", store != nil),
	)

	return &Session{
		Client:  client,
		Creds:   creds,
		History: store,
		Cfg:     cfg,
		logger:  logger,
	}, nil
}

// openHistory opens the upload ledger, or returns nil when it is disabled.
func openHistory(ctx context.Context, cfg *config.Resolved, logger *slog.Logger) (*history.Store, error) {
	if cfg.HistoryDB == "" {
		return nil, nil
	}

	store, err := history.Open(ctx, cfg.HistoryDB, logger)
	if err != nil {
		return nil, fmt.Errorf("opening upload history: %w", err)
	}

	return store, nil
}

// Recorder returns the ledger as an ingest.Recorder, or nil when disabled.
// A nil *history.Store must not leak into the interface.
func (s *Session) Recorder() ingest.Recorder {
	if s.History == nil {
		return nil
	}

	return s.History
}

// Orchestrator wires the pipeline for one inserter.
func (s *Session) Orchestrator(inserter ingest.Inserter) *ingest.Orchestrator {
	return ingest.New(s.Creds, s.Client, inserter, ingest.Options{
		MaxAttempts: s.Cfg.MaxAttempts,
		Notifier:    stderrNotifier(),
		Recorder:    s.Recorder(),
		Logger:      s.logger,
	})
}

// Close releases the ledger.
func (s *Session) Close() {
	if s.History == nil {
		return
	}

	if err := s.History.Close(); err != nil {
		s.logger.Warn("closing upload history", slog.String("error", err.Error()))
	}
}

// stderrNotifier shows notices on stderr. Notices are user-facing failures
// and are printed even with --quiet.
func stderrNotifier() ingest.Notifier {
	return ingest.NotifierFunc(func(_ context.Context, message string) {
		fmt.Fprintf(os.Stderr, "Notice: %s\n", message)
	})
}
