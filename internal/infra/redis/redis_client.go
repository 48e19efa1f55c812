package redis

import (
	"context"
	"time"

	"legal-ai-jobs/internal/config"

	"github.com/go-redis/redis/v8"
)

// Nil is re-exported so queue code can detect empty-key replies without
// importing the driver directly.
const Nil = redis.Nil

// Client is the narrow broker surface the queue layer needs. Keeping it an
// interface lets queue logic run against an in-memory fake in tests.
type Client interface {
	Ping(ctx context.Context) error
	LPush(ctx context.Context, key string, values ...interface{}) error
	RPopLPush(ctx context.Context, source, destination string) (string, error)
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) ([]string, error)
	LLen(ctx context.Context, key string) (int64, error)
	LRem(ctx context.Context, key string, count int64, value interface{}) error
	LTrim(ctx context.Context, key string, start, stop int64) error
	Del(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, pattern string) ([]string, error)
	Close() error
}

var _ Client = (*redClient)(nil)

type redClient struct {
	cli *redis.Client
}

// NewClient builds the broker connection. It does not dial eagerly: a broker
// that is down at construction time must not crash the calling process, so
// liveness is checked per-call via Ping.
func NewClient(cfg *config.ValkeyConfig) *redClient {
	opts := &redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.ReadTimeout,
		MaxRetries:   2,
	}
	return &redClient{cli: redis.NewClient(opts)}
}

func (c *redClient) Ping(ctx context.Context) error { return c.cli.Ping(ctx).Err() }

func (c *redClient) LPush(ctx context.Context, key string, values ...interface{}) error {
	return c.cli.LPush(ctx, key, values...).Err()
}

func (c *redClient) RPopLPush(ctx context.Context, source, destination string) (string, error) {
	return c.cli.RPopLPush(ctx, source, destination).Result()
}

func (c *redClient) BRPop(ctx context.Context, timeout time.Duration, keys ...string) ([]string, error) {
	return c.cli.BRPop(ctx, timeout, keys...).Result()
}

func (c *redClient) LLen(ctx context.Context, key string) (int64, error) {
	return c.cli.LLen(ctx, key).Result()
}

func (c *redClient) LRem(ctx context.Context, key string, count int64, value interface{}) error {
	return c.cli.LRem(ctx, key, count, value).Err()
}

func (c *redClient) LTrim(ctx context.Context, key string, start, stop int64) error {
	return c.cli.LTrim(ctx, key, start, stop).Err()
}

func (c *redClient) Del(ctx context.Context, keys ...string) error {
	return c.cli.Del(ctx, keys...).Err()
}

func (c *redClient) Keys(ctx context.Context, pattern string) ([]string, error) {
	return c.cli.Keys(ctx, pattern).Result()
}

func (c *redClient) Close() error { return c.cli.Close() }
