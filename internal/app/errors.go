package service

import (
	"errors"
)

// Sentinel errors of the crawler service.
var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUnknownLeague  = errors.New("unknown league")
	ErrTeamNotFound   = errors.New("team not found")
	ErrNotStarted     = errors.New("service not started")
	ErrBusy           = errors.New("a run is already in progress")
)
