package correlate

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrTimeout is matched by every *TimeoutError.
var ErrTimeout = errors.New("capture timed out")

// TimeoutError reports the patterns that saw no qualifying response.
type TimeoutError struct {
	Patterns []string
	After    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("no response for [%s] within %s", strings.Join(e.Patterns, ", "), e.After)
}

// Unwrap lets errors.Is(err, ErrTimeout) succeed.
func (e *TimeoutError) Unwrap() error { return ErrTimeout }
