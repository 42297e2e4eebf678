package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSourceNotFound   = errors.New("source not found")
	ErrInvalidReference = errors.New("invalid mod reference")
	ErrAuthRequired     = errors.New("authentication required")
	ErrAuthUnsupported  = errors.New("source does not use an API key")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrRequestFailed    = errors.New("request failed")
	ErrNoDownloadLink   = errors.New("no download link available")
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// RequestFailedError is returned when an HTTP request fails before any body
// bytes are consumed, either because the server answered with a non-success
// status or because the request could not be sent at all (StatusCode 0).
type RequestFailedError struct {
	URL        string
	StatusCode int
	Status     string
	Err        error
}

func (e *RequestFailedError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("request to %s failed: HTTP %s", e.URL, e.Status)
}

func (e *RequestFailedError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRequestFailed}
	}
	return []error{ErrRequestFailed, e.Err}
}

// Temporary reports whether repeating the request may succeed.
func (e *RequestFailedError) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}
