package core

import (
	"errors"
	"fmt"
	"net/http"
)

// Rejections and configuration failures. A rejection is reported synchronously
// and never creates a review record; a configuration error marks an already
// created record as failed before any outbound call is made.
var (
	ErrPlatformNotSupported = errors.New("platform not supported")
	ErrRepoNotConfigured    = errors.New("repository not configured or inactive")
	ErrMissingCredentials   = errors.New("platform credentials not configured")
	ErrQueueFull            = errors.New("job queue is full")
)

// TransportError describes a failed outbound HTTP call to a platform or to the
// AI backend. Transient errors are retried with backoff; permanent ones
// surface immediately.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Transient reports whether the failure is worth retrying: network-level
// errors (no status), rate limiting, and 5xx responses. Any other 4xx is a
// permanent failure.
func (e *TransportError) Transient() bool {
	switch {
	case e.StatusCode == 0:
		return true
	case e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	}
	return false
}

// IsTransient reports whether err is a retryable transport failure.
func IsTransient(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Transient()
	}
	return false
}
