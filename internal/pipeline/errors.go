package pipeline

import (
	"errors"
	"fmt"
)

// Sentinel kinds for pipeline errors.
var (
	// ErrSkip marks an item that was deliberately not processed, for example
	// because no catalog entry matched it. Skips are never retried.
	ErrSkip = errors.New("item skipped")
	// ErrTransient marks a single fetch or parse failure worth retrying.
	ErrTransient = errors.New("transient failure")
	// ErrItem marks an item that failed after all retries.
	ErrItem = errors.New("item failed")
	// ErrScope marks missing upstream context; the whole scope is abandoned.
	ErrScope = errors.New("scope unavailable")
)

// Skip wraps reason so that errors.Is(err, ErrSkip) holds.
func Skip(reason string) error {
	return fmt.Errorf("%w: %s", ErrSkip, reason)
}

// TransientError is a retryable failure of one operation.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string { return e.Op + ": " + e.Err.Error() }

// Unwrap exposes both the cause and ErrTransient.
func (e *TransientError) Unwrap() []error { return []error{ErrTransient, e.Err} }

// ItemError is the final failure of one work item.
type ItemError struct {
	Stage string
	Key   string
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Key, e.Err)
}

// Unwrap exposes both the cause and ErrItem.
func (e *ItemError) Unwrap() []error { return []error{ErrItem, e.Err} }

// ScopeError reports that a scope, such as one league, could not be set up.
type ScopeError struct {
	Scope string
	Err   error
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("scope %s: %v", e.Scope, e.Err)
}

// Unwrap exposes both the cause and ErrScope.
func (e *ScopeError) Unwrap() []error { return []error{ErrScope, e.Err} }
