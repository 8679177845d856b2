package hub

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is returned when the Hub has no such repo, revision or file.
	ErrNotFound = errors.New("not found on the hub")

	// ErrOffline is returned when a file is not cached and the client is offline.
	ErrOffline = errors.New("file not cached and hub access is disabled")

	// ErrInvalidRepoID is returned for repo ids that are not owner/name.
	ErrInvalidRepoID = errors.New("invalid repo id, want owner/name")
)

// HTTPError is a non-2xx response from the Hub.
type HTTPError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("GET %s: %d %s: %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// Unwrap maps 404 onto ErrNotFound so callers can use errors.Is.
func (e *HTTPError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// IsRetryable reports whether the request may succeed when sent again.
func (e *HTTPError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}
