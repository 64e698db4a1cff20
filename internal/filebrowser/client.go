package filebrowser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/tonimelisma/paste-proxy/internal/naming"
)

// Protocol constants.
const (
	tusResumableVersion = "1.0.0"
	offsetContentType   = "application/offset+octet-stream"
	userAgent           = "paste-proxy/0.1"
)

// maxErrorBody caps how much of an error response is kept for diagnostics.
const maxErrorBody = 4096

// NameGenerator produces remote object names. naming.Generator satisfies it.
type NameGenerator interface {
	Generate(originalName string) string
}

// Client talks to one File Browser instance. origin is the API origin,
// e.g. "https://wiki.example.com/filebrowser", without a trailing slash.
type Client struct {
	origin     string
	httpClient *http.Client
	limiter    *BandwidthLimiter
	names      NameGenerator
	logger     *slog.Logger
}

// NewClient creates a File Browser client. The http.Client must not carry a
// cookie jar: authentication travels only in the X-Auth header.
func NewClient(origin string, httpClient *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		origin:     strings.TrimRight(origin, "/"),
		httpClient: httpClient,
		names:      naming.NewGenerator(),
		logger:     logger,
	}
}

// SetBandwidthLimiter throttles transfer bodies. nil means unlimited.
func (c *Client) SetBandwidthLimiter(bl *BandwidthLimiter) {
	c.limiter = bl
}

// SetNameGenerator replaces the remote name generator.
func (c *Client) SetNameGenerator(g NameGenerator) {
	c.names = g
}

// Origin returns the API origin the client was built with.
func (c *Client) Origin() string {
	return c.origin
}

// RawURL returns the inline retrieval link for an uploaded object.
func (c *Client) RawURL(name string) string {
	return c.origin + "/api/raw/uploads/" + url.PathEscape(name) + "?inline=true"
}

// uploadURL returns the tus endpoint for name. override=false makes the
// server refuse to replace an existing object.
func (c *Client) uploadURL(name string) string {
	return c.origin + "/api/tus/uploads/" + url.PathEscape(name) + "?override=false"
}

// newRequest builds a request with the headers every File Browser call shares.
func (c *Client) newRequest(
	ctx context.Context, method, rawURL, referer string, body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("filebrowser: creating %s request: %w", method, err)
	}

	req.Header.Set("Accept", "*/*")
	req.Header.Set("User-Agent", userAgent)

	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	return req, nil
}

// readErrorBody drains and returns up to maxErrorBody bytes of resp.Body.
func readErrorBody(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return "(failed to read response body)"
	}

	return strings.TrimSpace(string(body))
}

// drain discards the rest of the body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // best-effort drain
	resp.Body.Close()
}
