package cluster

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the Redis connection used by RedisLock.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// DialTimeout bounds the initial ping.
	DialTimeout time.Duration
}

// OpenRedis connects to Redis and pings it.
func OpenRedis(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	if opts.Addr == "" {
		opts.Addr = "localhost:6379"
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: opts.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

const redisKeyPrefix = "leapstore:lock:"

// unlockScript deletes the key only while it still holds our owner token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript refreshes the TTL only while the key still holds our owner token.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLock is a Lock held as a Redis key with a TTL.
type RedisLock struct {
	client redis.Cmdable
	name   string
	key    string
	owner  string
	ttl    time.Duration
}

// NewRedisLock creates a lock named name.
func NewRedisLock(client redis.Cmdable, name string, ttl time.Duration) *RedisLock {
	return &RedisLock{
		client: client,
		name:   name,
		key:    redisKeyPrefix + name,
		owner:  uuid.NewString(),
		ttl:    ttl,
	}
}

// Name implements Lock.
func (l *RedisLock) Name() string { return l.name }

// Key returns the Redis key holding the lock.
func (l *RedisLock) Key() string { return l.key }

// Owner returns the token stored under Key while the lock is held.
func (l *RedisLock) Owner() string { return l.owner }

// TryLock implements Lock.
func (l *RedisLock) TryLock(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.owner, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set key %s: %w", l.key, err)
	}
	return ok, nil
}

// TTL implements Renewer.
func (l *RedisLock) TTL() time.Duration { return l.ttl }

// Extend implements Renewer.
func (l *RedisLock) Extend(ctx context.Context) (bool, error) {
	n, err := extendScript.Run(ctx, l.client, []string{l.key}, l.owner, l.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to extend key %s: %w", l.key, err)
	}
	return n == 1, nil
}

// Unlock implements Lock.
func (l *RedisLock) Unlock(ctx context.Context) error {
	if err := unlockScript.Run(ctx, l.client, []string{l.key}, l.owner).Err(); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", l.key, err)
	}
	return nil
}
