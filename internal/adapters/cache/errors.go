package cache

import "errors"

// Sentinel kinds for cache errors.
var (
	ErrUnavailable = errors.New("cache unavailable")
	ErrCorrupt     = errors.New("cache entry corrupt")
)
