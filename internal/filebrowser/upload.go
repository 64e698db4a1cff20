package filebrowser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/tonimelisma/paste-proxy/internal/clipboard"
)

// UploadSession is the protocol state of one two-phase upload: the remote
// name and its tus endpoint. It spans exactly one initiate and one transfer
// and is never resumed.
type UploadSession struct {
	Name   string
	URL    string
	Length int64
}

// NewSession generates a remote name for originalName and returns the
// session that will carry it.
func (c *Client) NewSession(originalName string, length int64) *UploadSession {
	name := c.names.Generate(originalName)

	return &UploadSession{
		Name:   name,
		URL:    c.uploadURL(name),
		Length: length,
	}
}

// Upload runs both phases for payload and returns the remote object name.
// Either phase failing aborts the session; nothing is retried here.
func (c *Client) Upload(ctx context.Context, payload clipboard.ImagePayload, token string) (string, error) {
	session := c.NewSession(payload.OriginalName, payload.Size())

	c.logger.Info("uploading image",
		slog.String("name", session.Name),
		slog.String("mime_type", payload.MIMEType),
		slog.Int64("size", session.Length),
	)

	if err := c.Initiate(ctx, session, token); err != nil {
		return "", err
	}

	if err := c.Transfer(ctx, session, payload.Data, token); err != nil {
		return "", err
	}

	c.logger.Info("upload complete", slog.String("name", session.Name))

	return session.Name, nil
}

// Initiate announces the object and its length (tus creation).
func (c *Client) Initiate(ctx context.Context, session *UploadSession, token string) error {
	req, err := c.newRequest(ctx, http.MethodPost, session.URL, c.origin+"/files/uploads/", http.NoBody)
	if err != nil {
		return err
	}

	req.Header.Set("Tus-Resumable", tusResumableVersion)
	req.Header.Set("Upload-Length", strconv.FormatInt(session.Length, 10))
	req.Header.Set("X-Auth", token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("filebrowser: initiate request failed: %w", err)
	}

	if !isSuccess(resp.StatusCode) {
		msg := readErrorBody(resp)
		resp.Body.Close()

		c.logger.Warn("upload initiate rejected",
			slog.String("name", session.Name),
			slog.Int("status", resp.StatusCode),
		)

		return &UploadInitError{Name: session.Name, StatusCode: resp.StatusCode, Message: msg}
	}

	drain(resp)

	c.logger.Debug("upload initiated", slog.String("name", session.Name), slog.Int("status", resp.StatusCode))

	return nil
}

// Transfer sends all of data from offset zero (tus PATCH).
func (c *Client) Transfer(ctx context.Context, session *UploadSession, data []byte, token string) error {
	var body io.Reader = http.NoBody
	if len(data) > 0 {
		body = c.limiter.WrapReader(ctx, bytes.NewReader(data))
	}

	req, err := c.newRequest(ctx, http.MethodPatch, session.URL, c.origin+"/files/uploads/", body)
	if err != nil {
		return err
	}

	// The limiter hides the reader type, so the length is set explicitly.
	req.ContentLength = int64(len(data))
	req.Header.Set("Content-Type", offsetContentType)
	req.Header.Set("Tus-Resumable", tusResumableVersion)
	req.Header.Set("Upload-Offset", "0")
	req.Header.Set("X-Auth", token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("filebrowser: transfer request failed: %w", err)
	}

	if !isSuccess(resp.StatusCode) {
		msg := readErrorBody(resp)
		resp.Body.Close()

		c.logger.Warn("upload transfer rejected",
			slog.String("name", session.Name),
			slog.Int("status", resp.StatusCode),
		)

		return &UploadTransferError{Name: session.Name, StatusCode: resp.StatusCode, Message: msg}
	}

	drain(resp)

	return nil
}
