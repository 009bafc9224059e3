package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisOpTimeout = 2 * time.Second
	clearBatchSize = 200
)

// RedisCache shares cached listings between replicas. Operations are best
// effort: a failed read is a miss and a failed write is dropped.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedis connects and pings the server; it fails when Redis is unreachable
// so the caller can fall back to a memory cache.
func NewRedis(cfg RedisConfig, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  redisOpTimeout,
		WriteTimeout: redisOpTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Addr, err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return &RedisCache{
		client: client,
		ttl:    ttl,
		prefix: prefix,
	}, nil
}

func (c *RedisCache) key(k string) string {
	return c.prefix + k
}

func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), redisOpTimeout)
}

func (c *RedisCache) Get(key string) (interface{}, bool) {
	ctx, cancel := opContext()
	defer cancel()

	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		return nil, false
	}

	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, false
	}
	return value, true
}

func (c *RedisCache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

func (c *RedisCache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}

	ctx, cancel := opContext()
	defer cancel()
	c.client.Set(ctx, c.key(key), data, ttl)
}

// Incr runs INCR and EXPIRE in one transaction. It returns 0 when Redis is
// unavailable.
func (c *RedisCache) Incr(key string, ttl time.Duration) int64 {
	ctx, cancel := opContext()
	defer cancel()

	var incr *redis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, c.key(key))
		pipe.Expire(ctx, c.key(key), ttl)
		return nil
	})
	if err != nil {
		return 0
	}
	return incr.Val()
}

func (c *RedisCache) Delete(key string) {
	ctx, cancel := opContext()
	defer cancel()
	c.client.Del(ctx, c.key(key))
}

// Clear removes every key under the prefix, scanning in batches.
func (c *RedisCache) Clear() {
	ctx := context.Background()

	batch := make([]string, 0, clearBatchSize)
	iter := c.client.Scan(ctx, 0, c.prefix+"*", clearBatchSize).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == clearBatchSize {
			c.client.Unlink(ctx, batch...)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		c.client.Unlink(ctx, batch...)
	}
}

// Client exposes the underlying client so rate limiters and job locks can
// share the connection pool.
func (c *RedisCache) Client() *redis.Client {
	return c.client
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ Cache = (*RedisCache)(nil)
