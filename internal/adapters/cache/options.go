package cache

import "time"

// Default configuration values.
const (
	defaultTTL         = 24 * time.Hour
	defaultDialTimeout = 5 * time.Second
)

type options struct {
	addr     string
	password string
	db       int
	ttl      time.Duration
}

// Option configures the Redis cache.
type Option func(*options)

func defaultOptions() options {
	return options{ttl: defaultTTL}
}

// WithAddr sets the Redis address. An empty address disables caching.
func WithAddr(addr string) Option {
	return func(o *options) { o.addr = addr }
}

// WithPassword sets the Redis password.
func WithPassword(password string) Option {
	return func(o *options) { o.password = password }
}

// WithDB selects the Redis database.
func WithDB(db int) Option {
	return func(o *options) {
		if db >= 0 {
			o.db = db
		}
	}
}

// WithTTL sets how long entries live.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}
