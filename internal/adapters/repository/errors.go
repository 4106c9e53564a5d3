package repository

import "errors"

// Sentinel kinds for job store errors.
var (
	ErrNotFound          = errors.New("job not found")
	ErrDuplicate         = errors.New("job already exists")
	ErrFull              = errors.New("job store full")
	ErrInvalidTransition = errors.New("invalid job status transition")
)
