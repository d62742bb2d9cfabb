package collect

import (
	"errors"
)

// Sentinel errors of the collectors.
var (
	ErrNoSeason      = errors.New("no current season")
	ErrTabMissing    = errors.New("tab not found")
	ErrNoStatistics  = errors.New("no statistics in response")
	ErrNoPlayers     = errors.New("no player links on page")
	ErrUnknownLeague = errors.New("unknown league")
)
