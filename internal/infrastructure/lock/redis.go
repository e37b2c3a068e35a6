package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds the caller's token.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// RedisLocker shares locks between service instances through Redis.
type RedisLocker struct {
	client   redis.Cmdable
	prefix   string
	newToken func() string
}

// NewRedisLocker creates a locker storing keys under prefix.
func NewRedisLocker(client redis.Cmdable, prefix string) *RedisLocker {
	return &RedisLocker{client: client, prefix: prefix, newToken: uuid.NewString}
}

// Acquire implements Locker.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := l.newToken()
	ok, err := l.client.SetNX(ctx, l.prefix+key, token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return "", ErrHeld
	}
	return token, nil
}

// Release implements Locker.
func (l *RedisLocker) Release(ctx context.Context, key, token string) error {
	n, err := l.client.Eval(ctx, releaseScript, []string{l.prefix + key}, token).Int64()
	if err != nil {
		return fmt.Errorf("redis release: %w", err)
	}
	if n == 0 {
		return ErrNotOwner
	}
	return nil
}

var _ Locker = (*RedisLocker)(nil)
