package redis

import (
	"context"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/KeyIP-JTNN/internal/domain/junction"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

var ErrCacheMiss = errors.New(errors.ErrCodeNotFound, "cache miss")

// TreeCache is a junction.Cache stored in Redis.  Concurrent lookups of the
// same key share one round trip.  Redis failures degrade to misses.
type TreeCache struct {
	client *Client
	logger logging.Logger
	prefix string
	ttl    time.Duration
	jitter float64
	group  singleflight.Group
}

var _ junction.Cache = (*TreeCache)(nil)

type CacheOption func(*TreeCache)

func WithPrefix(prefix string) CacheOption {
	return func(c *TreeCache) { c.prefix = prefix }
}

func WithTTL(ttl time.Duration) CacheOption {
	return func(c *TreeCache) { c.ttl = ttl }
}

// WithTTLJitter spreads expirations by ±fraction of the TTL.
func WithTTLJitter(fraction float64) CacheOption {
	return func(c *TreeCache) { c.jitter = fraction }
}

func NewTreeCache(client *Client, log logging.Logger, opts ...CacheOption) *TreeCache {
	c := &TreeCache{
		client: client,
		logger: log,
		prefix: "jtnn:decomp:",
		ttl:    24 * time.Hour,
		jitter: 0.1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *TreeCache) key(smiles string) string {
	return c.prefix + junction.KeyString(smiles)
}

func (c *TreeCache) jitterTTL() time.Duration {
	if c.ttl == 0 || c.jitter == 0 {
		return c.ttl
	}
	j := float64(c.ttl) * c.jitter * (rand.Float64()*2 - 1)
	return c.ttl + time.Duration(j)
}

func (c *TreeCache) Get(ctx context.Context, smiles string) (*junction.Tree, bool) {
	key := c.key(smiles)
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		data, err := c.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to get from cache")
		}
		return data, nil
	})
	if err != nil {
		if err != ErrCacheMiss {
			c.logger.Warn("Decomposition cache read failed", logging.String("key", key), logging.Err(err))
		}
		return nil, false
	}

	t, err := junction.DecodeTree(v.([]byte))
	if err != nil {
		c.logger.Warn("Discarding undecodable cache entry", logging.String("key", key), logging.Err(err))
		return nil, false
	}
	if t.SMILES != smiles {
		return nil, false
	}
	return t, true
}

func (c *TreeCache) Put(ctx context.Context, smiles string, t *junction.Tree) {
	data, err := junction.EncodeTree(t)
	if err != nil {
		c.logger.Warn("Decomposition cache encode failed", logging.Err(err))
		return
	}
	key := c.key(smiles)
	if err := c.client.Set(ctx, key, data, c.jitterTTL()).Err(); err != nil {
		c.logger.Warn("Decomposition cache write failed", logging.String("key", key), logging.Err(err))
	}
}

// Invalidate removes the cached tree of smiles.
func (c *TreeCache) Invalidate(ctx context.Context, smiles string) error {
	if err := c.client.Del(ctx, c.key(smiles)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to delete from cache")
	}
	return nil
}

//Personal.AI order the ending
