// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Functions accept context.Context as the first parameter.
// - Errors wrap this package's sentinel kinds.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`
	// LogFile, when set, also writes logs to a rotated file.
	LogFile string `koanf:"log_file"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory job queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of measurement workers.
	WorkerCount int `koanf:"worker_count"`
	// JobStoreSize bounds how many jobs are kept for /status.
	JobStoreSize int `koanf:"job_store_size"`
	// RequestTimeoutMS bounds how long POST /measure waits.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// MaxImageBytes bounds the decoded image size.
	MaxImageBytes int `koanf:"max_image_bytes"`
	// PreviewMaxDim bounds the longer side of the visualization.
	PreviewMaxDim int `koanf:"preview_max_dim"`

	// RateLimitRPS and RateLimitBurst limit job submissions per client.
	// A zero rate disables limiting.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// PoseProvider selects the detector: http or fixture.
	PoseProvider string `koanf:"pose_provider"`
	// PoseEndpoint is the pose sidecar URL for the http provider.
	PoseEndpoint string `koanf:"pose_endpoint"`
	// PoseTimeoutMS bounds one sidecar call.
	PoseTimeoutMS int `koanf:"pose_timeout_ms"`
	// PoseFixturePath is the landmark file for the fixture provider.
	PoseFixturePath string `koanf:"pose_fixture_path"`

	// RedisAddr enables the result cache when set.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	// CacheTTLSec is how long cached results live.
	CacheTTLSec int `koanf:"cache_ttl_sec"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":8080",
		QueueSize:        64,
		WorkerCount:      1,
		JobStoreSize:     10_000,
		RequestTimeoutMS: 60_000,
		MaxImageBytes:    10 << 20,
		PreviewMaxDim:    1024,
		RateLimitRPS:     5,
		RateLimitBurst:   10,
		PoseProvider:     "http",
		PoseEndpoint:     "http://127.0.0.1:8500/detect",
		PoseTimeoutMS:    10_000,
		CacheTTLSec:      86_400,
	}
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// PoseTimeout returns PoseTimeoutMS as a duration.
func (c *Config) PoseTimeout() time.Duration {
	return time.Duration(c.PoseTimeoutMS) * time.Millisecond
}

// CacheTTL returns CacheTTLSec as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}

// Validate reports the first invalid field.
func (c *Config) Validate(_ context.Context) error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case !oneOf(c.LogLevel, "debug", "info", "warn", "warning", "error"):
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	case !oneOf(c.LogFormat, "text", "json"):
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.JobStoreSize < c.QueueSize:
		return fmt.Errorf("%w: job_store_size must be at least queue_size", ErrInvalidConfig)
	case c.RequestTimeoutMS < 1:
		return fmt.Errorf("%w: request_timeout_ms must be positive", ErrInvalidConfig)
	case c.MaxImageBytes < 1:
		return fmt.Errorf("%w: max_image_bytes must be positive", ErrInvalidConfig)
	case c.PreviewMaxDim < 1:
		return fmt.Errorf("%w: preview_max_dim must be positive", ErrInvalidConfig)
	case c.RateLimitRPS < 0:
		return fmt.Errorf("%w: rate_limit_rps must not be negative", ErrInvalidConfig)
	case !oneOf(c.PoseProvider, "http", "fixture"):
		return fmt.Errorf("%w: unknown pose_provider %q", ErrInvalidConfig, c.PoseProvider)
	case c.PoseProvider == "http" && c.PoseEndpoint == "":
		return fmt.Errorf("%w: pose_endpoint is required for the http provider", ErrInvalidConfig)
	case c.PoseProvider == "fixture" && c.PoseFixturePath == "":
		return fmt.Errorf("%w: pose_fixture_path is required for the fixture provider", ErrInvalidConfig)
	case c.CacheTTLSec < 0:
		return fmt.Errorf("%w: cache_ttl_sec must not be negative", ErrInvalidConfig)
	}
	return nil
}

func oneOf(v string, options ...string) bool {
	v = strings.ToLower(v)
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}
