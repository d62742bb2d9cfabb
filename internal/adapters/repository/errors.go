package repository

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrUpsert       = errors.New("upsert failed")
	ErrEmptyRecord  = errors.New("record has no columns")
	ErrNoConflict   = errors.New("no conflict columns")
	ErrMissingKey   = errors.New("record is missing a conflict column")
	ErrQuery        = errors.New("query failed")
	ErrNoConnection = errors.New("database url is empty")
)
