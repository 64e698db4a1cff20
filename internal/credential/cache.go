// Package credential caches the File Browser bearer token. A credential is
// valid for a fixed TTL after login (24h by default); an expired or absent
// credential triggers a password prompt and a fresh login. The cache is the
// only shared mutable state of the ingestion pipeline.
package credential

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/tonimelisma/paste-proxy/internal/tokenfile"
)

// DefaultTTL is how long a login stays usable.
const DefaultTTL = 24 * time.Hour

// refreshKey is the single-flight key; there is one credential per cache.
const refreshKey = "login"

// Credential is a bearer token and the instant it was issued. ExpiresAt is
// IssuedAt+TTL, or the token's own exp claim when that comes first.
type Credential struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ValidAt reports whether the credential may authorize a request at now.
func (c Credential) ValidAt(now time.Time) bool {
	return c.Token != "" && now.Before(c.ExpiresAt)
}

// Authenticator performs the login exchange. filebrowser.Client satisfies it.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
}

// Store persists the credential across runs. FileStore is the production
// implementation; a nil Store keeps the credential in memory only.
type Store interface {
	Load() (*tokenfile.File, error)
	Save(tf *tokenfile.File) error
	Remove() error
}

// Options configures a Cache.
type Options struct {
	Username string
	Origin   string        // recorded with the persisted token; a mismatch discards it
	TTL      time.Duration // <= 0 selects DefaultTTL
	Store    Store
	Logger   *slog.Logger
}

// Cache owns the credential lifecycle: create on first use, reuse while
// fresh, evict on Invalidate or expiry.
type Cache struct {
	auth     Authenticator
	secrets  SecretProvider
	username string
	origin   string
	ttl      time.Duration
	store    Store
	logger   *slog.Logger

	// nowFunc is injectable for expiry tests.
	nowFunc func() time.Time

	mu     sync.RWMutex
	cred   *Credential
	loaded bool // store consulted

	flight singleflight.Group
}

// NewCache creates an empty Cache.
func NewCache(auth Authenticator, secrets SecretProvider, opts Options) *Cache {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}

	return &Cache{
		auth:     auth,
		secrets:  secrets,
		username: opts.Username,
		origin:   opts.Origin,
		ttl:      opts.TTL,
		store:    opts.Store,
		logger:   opts.Logger,
		nowFunc:  time.Now,
		loaded:   opts.Store == nil,
	}
}

// Acquire returns a fresh credential. A cached one is returned without
// touching the network or the secret provider. Otherwise the cache is
// emptied, the secret provider is asked once, and a login is performed.
// Concurrent refreshes share a single prompt and login.
func (c *Cache) Acquire(ctx context.Context) (Credential, error) {
	if cred, ok := c.cached(); ok {
		return cred, nil
	}

	// The shared refresh outlives any one caller; each caller stops waiting
	// when its own ctx ends.
	flightCtx := context.WithoutCancel(ctx)

	ch := c.flight.DoChan(refreshKey, func() (any, error) {
		// A flight that finished just before this one started may have
		// already stored a fresh credential.
		if cred, ok := c.cached(); ok {
			return cred, nil
		}

		return c.refresh(flightCtx)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return Credential{}, fmt.Errorf("credential: waiting for login: %w", ctx.Err())
	}

	if res.Err != nil {
		return Credential{}, res.Err
	}

	if res.Shared {
		c.logger.Debug("credential: joined in-flight refresh")
	}

	return res.Val.(Credential), nil //nolint:forcetypeassert // flight only returns Credential
}

// Invalidate unconditionally evicts the cached credential, in memory and on
// disk. The next Acquire re-authenticates.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	had := c.cred != nil
	c.cred = nil
	c.loaded = true
	c.mu.Unlock()

	c.removeStored()

	c.logger.Info("credential invalidated", slog.Bool("was_cached", had))
}

// Peek returns the cached credential without refreshing. ok is false when
// nothing is cached or the credential has expired.
func (c *Cache) Peek() (Credential, bool) {
	return c.cached()
}

// cached returns the current credential if it is still valid.
func (c *Cache) cached() (Credential, bool) {
	c.mu.RLock()
	cred, loaded := c.cred, c.loaded
	c.mu.RUnlock()

	if !loaded {
		cred = c.loadStored()
	}

	if cred == nil || !cred.ValidAt(c.nowFunc()) {
		return Credential{}, false
	}

	return *cred, true
}

// loadStored reads the persisted credential once per cache lifetime.
func (c *Cache) loadStored() *Credential {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return c.cred
	}

	c.loaded = true

	tf, err := c.store.Load()
	if err != nil {
		c.logger.Warn("credential: ignoring unreadable token file", slog.String("error", err.Error()))
		return nil
	}

	if tf == nil {
		return nil
	}

	if tf.Origin != "" && c.origin != "" && tf.Origin != c.origin {
		c.logger.Info("credential: stored token belongs to another origin",
			slog.String("stored", tf.Origin),
			slog.String("configured", c.origin),
		)

		return nil
	}

	c.cred = &Credential{
		Token:     tf.Token,
		IssuedAt:  tf.IssuedAt,
		ExpiresAt: c.expiry(tf.Token, tf.IssuedAt),
	}

	c.logger.Debug("credential: loaded from store",
		slog.Time("issued_at", c.cred.IssuedAt),
		slog.Time("expires_at", c.cred.ExpiresAt),
	)

	return c.cred
}

// refresh evicts, prompts and logs in. On failure the cache stays empty.
func (c *Cache) refresh(ctx context.Context) (Credential, error) {
	c.mu.Lock()
	c.cred = nil
	c.loaded = true
	c.mu.Unlock()

	c.removeStored()

	c.logger.Info("credential: login required", slog.String("username", c.username))

	secret, err := c.secrets.Secret(ctx, c.username)
	if err != nil {
		return Credential{}, fmt.Errorf("credential: obtaining password: %w", err)
	}

	token, err := c.auth.Login(ctx, c.username, secret)
	if err != nil {
		return Credential{}, fmt.Errorf("credential: %w", err)
	}

	now := c.nowFunc()
	cred := Credential{
		Token:     token,
		IssuedAt:  now,
		ExpiresAt: c.expiry(token, now),
	}

	c.mu.Lock()
	c.cred = &cred
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Save(&tokenfile.File{Token: token, IssuedAt: now, Origin: c.origin}); err != nil {
			c.logger.Warn("credential: failed to persist token", slog.String("error", err.Error()))
		}
	}

	c.logger.Info("credential: login successful", slog.Time("expires_at", cred.ExpiresAt))

	return cred, nil
}

func (c *Cache) removeStored() {
	if c.store == nil {
		return
	}

	if err := c.store.Remove(); err != nil {
		c.logger.Warn("credential: failed to remove token file", slog.String("error", err.Error()))
	}
}

// expiry is issuedAt+TTL, shortened to the token's exp claim when the token
// is a JWT that expires sooner.
func (c *Cache) expiry(token string, issuedAt time.Time) time.Time {
	deadline := issuedAt.Add(c.ttl)

	if exp, ok := tokenExpiry(token); ok && exp.Before(deadline) {
		return exp
	}

	return deadline
}

// tokenExpiry reads the exp claim without verifying the signature; the
// server remains the authority, this only avoids sending a dead token.
func tokenExpiry(token string) (time.Time, bool) {
	var claims jwt.RegisteredClaims

	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}

	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}

	return claims.ExpiresAt.Time, true
}
