package config

import "errors"

var (
	// ErrInvalidConfig wraps every Validate failure; the message names the key.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig wraps file, env and unmarshal failures from Load.
	ErrLoadConfig = errors.New("load config failed")
)
