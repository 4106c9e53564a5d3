package api

// Default HTTP limits.
const (
	defaultMaxBodyBytes = 16 << 20
	defaultRateLimit    = 5
	defaultRateBurst    = 10
)

type config struct {
	maxBodyBytes int64
	rateLimit    float64
	rateBurst    int
}

func defaultConfig() config {
	return config{
		maxBodyBytes: defaultMaxBodyBytes,
		rateLimit:    defaultRateLimit,
		rateBurst:    defaultRateBurst,
	}
}

// Option configures the API server.
type Option func(*config)

// WithMaxBodyBytes bounds request bodies on the job endpoints.
func WithMaxBodyBytes(n int64) Option {
	return func(c *config) {
		if n > 0 {
			c.maxBodyBytes = n
		}
	}
}

// WithRateLimit sets the per-client request rate and burst on the job
// endpoints. A non-positive rate disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *config) {
		c.rateLimit = perSecond
		if burst > 0 {
			c.rateBurst = burst
		}
	}
}
