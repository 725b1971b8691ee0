package updatelog

import "errors"

var (
	// ErrNotConfigured is returned by operations that need the repository settings.
	ErrNotConfigured = errors.New("updatelog: github is not configured")
	// ErrDecode wraps log collections that are not a JSON array.
	ErrDecode = errors.New("updatelog: malformed log collection")
	// ErrLocalStore wraps failures of the local cache store.
	ErrLocalStore = errors.New("updatelog: local cache store failure")
)
