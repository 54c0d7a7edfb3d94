// Package xtream provides an HTTP client for Xtream-Codes style panel APIs
// (player_api.php): account check, category lists, and streamed catalog
// downloads. Error classification and rate limiting live here; retry policy
// belongs to the caller.
package xtream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for classification. Use errors.Is(err, xtream.ErrNotFound).
var (
	ErrNetwork      = errors.New("xtream: network failure")
	ErrBadRequest   = errors.New("xtream: bad request")
	ErrUnauthorized = errors.New("xtream: unauthorized")
	ErrForbidden    = errors.New("xtream: forbidden")
	ErrNotFound     = errors.New("xtream: not found")
	ErrThrottled    = errors.New("xtream: throttled")
	ErrServerError  = errors.New("xtream: server error")
	ErrCircuitOpen  = errors.New("xtream: circuit open")
)

// APIError wraps a sentinel error with the HTTP status and a short excerpt of
// the response body.
type APIError struct {
	StatusCode int
	Action     string
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("xtream: %s: HTTP %d: %s", e.Action, e.StatusCode, e.Message)
	}

	return fmt.Sprintf("xtream: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		if code >= http.StatusMultipleChoices {
			return ErrBadRequest
		}

		return nil
	}
}

// IsRetryable reports whether a failed call may succeed if repeated:
// transport failures, throttling, and 5xx responses. Cancellation and an
// open circuit are never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if errors.Is(err, ErrCircuitOpen) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusRequestTimeout ||
			errors.Is(apiErr.Err, ErrThrottled) ||
			errors.Is(apiErr.Err, ErrServerError)
	}

	return errors.Is(err, ErrNetwork)
}
