package logger

import (
	"io"
	"os"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Rotation defaults for file output.
const (
	defaultMaxSizeMB  = 100
	defaultMaxBackups = 3
	defaultMaxAgeDays = 7
)

type options struct {
	level      string
	format     string
	writer     io.Writer
	file       string
	maxSizeMB  int
	maxBackups int
	maxAgeDays int
}

// Option configures Init.
type Option func(*options)

func defaultOptions() options {
	return options{
		level:      "info",
		format:     FormatText,
		writer:     os.Stdout,
		maxSizeMB:  defaultMaxSizeMB,
		maxBackups: defaultMaxBackups,
		maxAgeDays: defaultMaxAgeDays,
	}
}

// WithLevel sets the initial level (debug, info, warn, error).
func WithLevel(level string) Option {
	return func(o *options) { o.level = level }
}

// WithFormat selects text or json output.
func WithFormat(format string) Option {
	return func(o *options) { o.format = format }
}

// WithWriter replaces stdout as the primary output.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.writer = w
		}
	}
}

// WithFile additionally writes to a size-rotated file.
func WithFile(path string) Option {
	return func(o *options) { o.file = path }
}

// WithRotation overrides the rotation limits of the file output.
func WithRotation(maxSizeMB, maxBackups, maxAgeDays int) Option {
	return func(o *options) {
		if maxSizeMB > 0 {
			o.maxSizeMB = maxSizeMB
		}
		if maxBackups > 0 {
			o.maxBackups = maxBackups
		}
		if maxAgeDays > 0 {
			o.maxAgeDays = maxAgeDays
		}
	}
}
