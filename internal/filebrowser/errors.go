// Package filebrowser is an HTTP client for the File Browser API: password
// login and the two-phase tus upload (initiate with POST, transfer with
// PATCH). Requests are never retried here; callers restart the whole
// sequence with a fresh credential.
package filebrowser

import (
	"errors"
	"fmt"
	"net/http"
)

// Operation sentinels. Use errors.Is(err, filebrowser.ErrUploadTransfer).
var (
	ErrAuth           = errors.New("filebrowser: login rejected")
	ErrUploadInit     = errors.New("filebrowser: upload initiate rejected")
	ErrUploadTransfer = errors.New("filebrowser: upload transfer rejected")
)

// Status sentinels, matched alongside the operation sentinel.
var (
	ErrUnauthorized = errors.New("filebrowser: unauthorized")
	ErrForbidden    = errors.New("filebrowser: forbidden")
	ErrConflict     = errors.New("filebrowser: object already exists")
	ErrTooLarge     = errors.New("filebrowser: payload too large")
	ErrServerError  = errors.New("filebrowser: server error")
)

// AuthError reports a login exchange answered with a non-success status.
type AuthError struct {
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("filebrowser: login failed: HTTP %d", e.StatusCode)
}

func (e *AuthError) Unwrap() []error {
	return withStatus(ErrAuth, e.StatusCode)
}

// UploadInitError reports a rejected initiate request. Message carries the
// response body for diagnostics.
type UploadInitError struct {
	Name       string
	StatusCode int
	Message    string
}

func (e *UploadInitError) Error() string {
	return fmt.Sprintf("filebrowser: failed to initiate upload of %q: HTTP %d: %s", e.Name, e.StatusCode, e.Message)
}

func (e *UploadInitError) Unwrap() []error {
	return withStatus(ErrUploadInit, e.StatusCode)
}

// UploadTransferError reports a rejected transfer request.
type UploadTransferError struct {
	Name       string
	StatusCode int
	Message    string
}

func (e *UploadTransferError) Error() string {
	return fmt.Sprintf("filebrowser: failed to upload %q: HTTP %d: %s", e.Name, e.StatusCode, e.Message)
}

func (e *UploadTransferError) Unwrap() []error {
	return withStatus(ErrUploadTransfer, e.StatusCode)
}

// withStatus pairs an operation sentinel with the status sentinel, if any.
func withStatus(op error, code int) []error {
	if s := classifyStatus(code); s != nil {
		return []error{op, s}
	}

	return []error{op}
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for codes without a dedicated sentinel.
func classifyStatus(code int) error {
	switch code {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusConflict:
		return ErrConflict
	case http.StatusRequestEntityTooLarge:
		return ErrTooLarge
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

func isSuccess(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}
