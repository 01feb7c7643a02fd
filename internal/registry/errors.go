package registry

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTransport wraps failures to reach the registry API at all.
	ErrTransport = errors.New("registry: transport failure")
	// ErrNotFound is matched by APIError values with status 404.
	ErrNotFound = errors.New("registry: not found")
	// ErrMalformedResponse reports a body that is not a registry envelope.
	ErrMalformedResponse = errors.New("registry: malformed response")
)

// APIError is a failure reported by the registry API, either through a
// non-2xx status or an envelope with success=false.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("registry: api error (status %d)", e.Status)
	}
	return fmt.Sprintf("registry: api error (status %d): %s", e.Status, e.Message)
}

// UserMessage returns the message reported by the endpoint.
func (e *APIError) UserMessage() string {
	return e.Message
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}
