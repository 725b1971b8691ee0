package github

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the file does not exist on the branch.
	ErrNotFound = errors.New("github: file not found")
	// ErrUnavailable wraps transport failures.
	ErrUnavailable = errors.New("github: api unavailable")
	// ErrDecode wraps malformed responses and file contents.
	ErrDecode = errors.New("github: malformed response")
)

// APIError is a non-success answer of the Contents API.
type APIError struct {
	Op         string
	StatusCode int
	Message    string // message field of the response body, if any
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("github: %s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("github: %s: status %d: %s", e.Op, e.StatusCode, e.Message)
}
