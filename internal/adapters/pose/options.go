package pose

import (
	"net/http"
	"time"
)

// Provider names accepted by New.
const (
	ProviderHTTP    = "http"
	ProviderFixture = "fixture"
)

// Default configuration values.
const (
	defaultTimeout  = 10 * time.Second
	defaultProvider = ProviderHTTP
)

type options struct {
	provider    string
	endpoint    string
	timeout     time.Duration
	fixturePath string
	client      *http.Client
}

// Option configures a Detector.
type Option func(*options)

func defaultOptions() options {
	return options{
		provider: defaultProvider,
		timeout:  defaultTimeout,
	}
}

// WithProvider selects the detector implementation ("http" or "fixture").
func WithProvider(name string) Option {
	return func(o *options) {
		if name != "" {
			o.provider = name
		}
	}
}

// WithEndpoint sets the URL of the pose sidecar.
func WithEndpoint(url string) Option {
	return func(o *options) { o.endpoint = url }
}

// WithTimeout bounds a single detection call.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithFixturePath sets the landmark file used by the fixture provider.
func WithFixturePath(path string) Option {
	return func(o *options) { o.fixturePath = path }
}

// WithHTTPClient overrides the client used by the http provider.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.client = c
		}
	}
}
