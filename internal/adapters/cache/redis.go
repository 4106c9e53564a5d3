package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/fitmeasure/internal/domain/model"
	"github.com/okian/fitmeasure/pkg/logger"
)

// Redis caches outcomes in Redis as JSON with a TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// New returns a Redis cache, or Noop when no address is configured. The
// connection is verified with a ping.
func New(ctx context.Context, opts ...Option) (Cache, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.addr == "" {
		return Noop{}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:        o.addr,
		Password:    o.password,
		DB:          o.db,
		DialTimeout: defaultDialTimeout,
	})
	pingCtx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: ping %s: %w", ErrUnavailable, o.addr, err)
	}
	logger.Get().Info(ctx, "connected to redis result cache",
		logger.String("addr", o.addr),
		logger.Int("db", o.db),
		logger.String("ttl", o.ttl.String()))
	return NewRedis(client, o.ttl), nil
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

// Get looks up key. A missing key is a miss, not an error.
func (c *Redis) Get(ctx context.Context, key string) (model.Outcome, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Outcome{}, false, nil
	}
	if err != nil {
		return model.Outcome{}, false, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	o, err := decode(data)
	if err != nil {
		logger.Get().Warn(ctx, "dropping corrupt cache entry", logger.String("key", key), logger.Error(err))
		_ = c.client.Del(ctx, key).Err()
		return model.Outcome{}, false, nil
	}
	return o, true, nil
}

// Set stores a successful outcome. Failures are ignored.
func (c *Redis) Set(ctx context.Context, key string, o model.Outcome) error {
	if !o.Success {
		return nil
	}
	data, err := encode(o)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// Close releases the connection pool.
func (c *Redis) Close() error {
	return c.client.Close()
}
