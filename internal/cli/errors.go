package cli

import "errors"

// Sentinel errors for the command-line client.
var (
	ErrRejected   = errors.New("request rejected")
	ErrBadReply   = errors.New("unexpected reply")
	ErrJobFailed  = errors.New("job failed")
	ErrNoImages   = errors.New("no image files given")
	ErrBadOptions = errors.New("invalid options")
)
