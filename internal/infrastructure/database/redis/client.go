// Package redis backs the shared decomposition cache with Redis so several
// loader processes can reuse each other's junction trees.
package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/KeyIP-JTNN/internal/config"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

var (
	ErrClientClosed     = errors.New(errors.ErrCodeInternal, "redis client is closed")
	ErrConnectionFailed = errors.New(errors.ErrCodeDatabaseError, "redis connection failed")
)

// Client wraps a go-redis client with close tracking.
type Client struct {
	rdb    redis.UniversalClient
	config config.RedisConfig
	logger logging.Logger
	mu     sync.RWMutex
	closed bool
}

// NewClient connects to cfg.Addr and verifies the connection with PING.
func NewClient(cfg config.RedisConfig, log logging.Logger) (*Client, error) {
	applyDefaults(&cfg)

	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	})
	client := &Client{rdb: rdb, config: cfg, logger: log}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		rdb.Close()
		return nil, ErrConnectionFailed.WithCause(err)
	}

	log.Info("Redis client connected", logging.String("addr", cfg.Addr), logging.Int("db", cfg.DB))
	return client, nil
}

// NewClientFromUniversal wraps an existing go-redis client.  Tests pass a
// redismock client here.
func NewClientFromUniversal(rdb redis.UniversalClient, log logging.Logger) *Client {
	return &Client{rdb: rdb, logger: log}
}

func applyDefaults(cfg *config.RedisConfig) {
	if cfg.PoolSize == 0 {
		cfg.PoolSize = 10
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
}

func (c *Client) Ping(ctx context.Context) error {
	if c.isClosed() {
		return ErrClientClosed
	}
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	err := c.rdb.Close()
	if err == nil {
		c.logger.Info("Closed Redis client")
	} else {
		c.logger.Error("Failed to close Redis client", logging.Err(err))
	}
	return err
}

func (c *Client) Get(ctx context.Context, key string) *redis.StringCmd {
	if c.isClosed() {
		cmd := redis.NewStringCmd(ctx)
		cmd.SetErr(ErrClientClosed)
		return cmd
	}
	return c.rdb.Get(ctx, key)
}

func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if c.isClosed() {
		cmd := redis.NewStatusCmd(ctx)
		cmd.SetErr(ErrClientClosed)
		return cmd
	}
	return c.rdb.Set(ctx, key, value, expiration)
}

func (c *Client) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	if c.isClosed() {
		cmd := redis.NewIntCmd(ctx)
		cmd.SetErr(ErrClientClosed)
		return cmd
	}
	return c.rdb.Del(ctx, keys...)
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

//Personal.AI order the ending
