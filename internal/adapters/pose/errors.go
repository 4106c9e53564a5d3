package pose

import "errors"

// Sentinel kinds for pose detector errors.
var (
	ErrUnknownProvider = errors.New("unknown pose provider")
	ErrMissingEndpoint = errors.New("pose endpoint not configured")
	ErrClosed          = errors.New("pose detector closed")
	ErrUpstream        = errors.New("pose service error")
	ErrBadPayload      = errors.New("invalid pose payload")
)
