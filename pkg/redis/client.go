// Package redis wraps go-redis/v9 for the small shared state phrasebot keeps
// outside the process: string values under a configurable key prefix.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/errors"
)

const dialCheckTimeout = 3 * time.Second

type Client struct {
	rdb    goredis.UniversalClient
	prefix string
}

// New connects and pings once. A failed ping is reported as
// apperrors.ErrUnavailable so callers can fall back to local state.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  dialCheckTimeout,
		MaxRetries:   1,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	c := &Client{rdb: rdb, prefix: cfg.KeyPrefix}

	pingCtx, cancel := context.WithTimeout(ctx, dialCheckTimeout)
	defer cancel()
	if err := c.Ping(pingCtx); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("%w: redis at %s: %v", apperrors.ErrUnavailable, cfg.Addr, err)
	}
	return c, nil
}

func (c *Client) key(name string) string { return c.prefix + name }

// Lookup returns the value stored under name. found is false, with a nil
// error, when the key does not exist.
func (c *Client) Lookup(ctx context.Context, name string) (value string, found bool, err error) {
	value, err = c.rdb.Get(ctx, c.key(name)).Result()
	switch {
	case errors.Is(err, goredis.Nil):
		return "", false, nil
	case err != nil:
		return "", false, err
	}
	return value, true, nil
}

// Store writes value under name; ttl 0 keeps it forever.
func (c *Client) Store(ctx context.Context, name, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, c.key(name), value, ttl).Err()
}

// Forget removes the given names and reports how many existed.
func (c *Client) Forget(ctx context.Context, names ...string) (int64, error) {
	if len(names) == 0 {
		return 0, nil
	}
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = c.key(n)
	}
	return c.rdb.Del(ctx, keys...).Result()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
