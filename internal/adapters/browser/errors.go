package browser

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched by a fetch answered with 404.
var ErrNotFound = errors.New("resource not found")

// StatusError is a non-200 answer to an in-page fetch.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.Status)
}

// Unwrap maps 404 to ErrNotFound.
func (e *StatusError) Unwrap() error {
	if e.Status == 404 {
		return ErrNotFound
	}
	return nil
}
