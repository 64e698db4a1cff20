package filebrowser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// loginRequest is the JSON body of POST /api/login. File Browser expects
// the recaptcha field even when recaptcha is disabled.
type loginRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Recaptcha string `json:"recaptcha"`
}

// maxTokenBody bounds the login response; File Browser tokens are a few
// hundred bytes.
const maxTokenBody = 64 * 1024

// Login exchanges a username and password for a bearer token. The response
// body on success is the raw token string. A non-success status returns
// *AuthError. Never logs the password or the token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	c.logger.Info("logging in", slog.String("origin", c.origin), slog.String("username", username))

	body, err := json.Marshal(loginRequest{Username: username, Password: password})
	if err != nil {
		return "", fmt.Errorf("filebrowser: encoding login request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.origin+"/api/login",
		c.origin+"/login?redirect=/files/", bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("filebrowser: login request failed: %w", err)
	}

	if !isSuccess(resp.StatusCode) {
		drain(resp)
		c.logger.Warn("login rejected", slog.Int("status", resp.StatusCode))

		return "", &AuthError{StatusCode: resp.StatusCode}
	}
	defer resp.Body.Close()

	tok, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenBody))
	if err != nil {
		return "", fmt.Errorf("filebrowser: reading login response: %w", err)
	}

	c.logger.Debug("login succeeded", slog.Int("token_len", len(tok)))

	return string(tok), nil
}
