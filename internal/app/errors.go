package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted = errors.New("service not started")
	ErrBusy       = errors.New("service busy")
	ErrTimeout    = errors.New("measurement timed out")
	ErrNotFound   = errors.New("job not found")
)
