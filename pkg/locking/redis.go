package locking

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still carries our token, so an
// expired lock taken over by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript renews the key's expiry while it still carries our token.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker shares locks between instances through Redis SET NX.
type RedisLocker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// minLockTTL keeps the renewal interval above zero.
const minLockTTL = 300 * time.Millisecond

// NewRedisLocker creates a locker. Held keys are renewed every third of ttl
// until released, so ttl only bounds how long a crashed holder keeps a key.
func NewRedisLocker(client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *RedisLocker {
	ttl = max(ttl, minLockTTL)

	return &RedisLocker{
		client: client,
		prefix: "lifecycle:lock:",
		ttl:    ttl,
		logger: logger.With("module", "redis_locker"),
	}
}

// OpenRedis connects to the Redis server described by a redis:// URL.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

func (l *RedisLocker) TryLock(ctx context.Context, key string) (Release, error) {
	token := uuid.New().String()
	fullKey := l.prefix + key

	ok, err := l.client.SetNX(ctx, fullKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}

	if !ok {
		return nil, ErrLocked
	}

	stop := make(chan struct{})
	stopped := make(chan struct{})

	go l.keepAlive(context.WithoutCancel(ctx), key, fullKey, token, stop, stopped)

	var (
		once       sync.Once
		releaseErr error
	)

	return func(ctx context.Context) error {
		once.Do(func() {
			close(stop)
			<-stopped

			if err := releaseScript.Run(ctx, l.client, []string{fullKey}, token).Err(); err != nil {
				l.logger.WarnContext(ctx, "failed to release lock", "key", key, "error", err)

				releaseErr = fmt.Errorf("failed to release lock %s: %w", key, err)
			}
		})

		return releaseErr
	}, nil
}

// keepAlive renews the lease until stop is closed or the key no longer
// carries token.
func (l *RedisLocker) keepAlive(ctx context.Context, key, fullKey, token string, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	interval := l.ttl / 3

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		renewCtx, cancel := context.WithTimeout(ctx, interval)
		renewed, err := extendScript.Run(renewCtx, l.client, []string{fullKey}, token, l.ttl.Milliseconds()).Int()
		cancel()

		switch {
		case err != nil:
			l.logger.WarnContext(ctx, "failed to renew lock", "key", key, "error", err)
		case renewed == 0:
			l.logger.WarnContext(ctx, "lock lost before release", "key", key)

			return
		}
	}
}
