package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Lock keeps two replicas from running the same job at once.
type Lock interface {
	// TryLock returns a release func and true when the lock was taken.
	TryLock(ctx context.Context, name string, ttl time.Duration) (func(), bool)
}

const (
	minLockTTL      = 30 * time.Second
	lockCallTimeout = 2 * time.Second
)

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock is a SET NX lock with an expiry so a crashed replica cannot
// hold a job forever.
type RedisLock struct {
	client *redis.Client
	prefix string
}

func NewRedisLock(client *redis.Client, prefix string) *RedisLock {
	return &RedisLock{client: client, prefix: prefix}
}

// TryLock fails open: when Redis cannot be reached the job runs locally.
func (l *RedisLock) TryLock(ctx context.Context, name string, ttl time.Duration) (func(), bool) {
	if ttl < minLockTTL {
		ttl = minLockTTL
	}
	key := l.prefix + name
	token := uuid.NewString()

	callCtx, cancel := context.WithTimeout(ctx, lockCallTimeout)
	defer cancel()

	ok, err := l.client.SetNX(callCtx, key, token, ttl).Result()
	if err != nil {
		return func() {}, true
	}
	if !ok {
		return nil, false
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), lockCallTimeout)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
	}, true
}

var _ Lock = (*RedisLock)(nil)
