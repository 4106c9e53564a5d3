package dedupe

// Option applies a configuration option to the in-memory index.
type Option func(*inMemoryIndex)

// WithMaxSize sets the maximum number of keys kept in memory.
// If maxSize > 0 the oldest key is evicted first once full.
// If maxSize <= 0 the index is unbounded.
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryIndex) {
		d.maxSize = maxSize
	}
}
