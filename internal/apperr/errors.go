// Package apperr defines sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrEmptyMessage  = errors.New("empty message")
	ErrMissingAPIKey = errors.New("api key not configured")
	ErrInvalidBackup = errors.New("invalid backup file")
	ErrCyclicFolder  = errors.New("folder cannot be moved under its own descendant")
)
