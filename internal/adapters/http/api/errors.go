package api

import "errors"

// ErrUnhealthy marks a failed dependency check.
var ErrUnhealthy = errors.New("dependency unavailable")
