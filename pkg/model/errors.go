package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrUnavailable is returned when the model cannot be loaded or the
	// serving backend cannot be reached at startup. Fatal for the run.
	ErrUnavailable = errors.New("model: unavailable")

	// ErrClosed is returned when inferring on a closed model.
	ErrClosed = errors.New("model: closed")
)

// APIError represents an error response from the inference server.
// Per-frame API errors are recoverable: the frame is skipped and the loop
// continues.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("model: API error %d: %s", e.StatusCode, e.Message)
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}
