package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultLockTTL       = 30 * time.Second
	defaultRetryInterval = 50 * time.Millisecond
	lockKeyPrefix        = "usdc-bridge:lock:"
)

var ErrLockNotHeld = errors.New("lock not held")

// Deletes the key only if it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Extends the lease only if it still holds our token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker serializes work on one transfer across service instances.
// A held lease is renewed every ttl/3 until released, so it only expires
// when its holder has crashed.
type RedisLocker struct {
	client        redis.Cmdable
	ttl           time.Duration
	retryInterval time.Duration
	renewInterval time.Duration
	logger        *zap.Logger
}

func NewRedisLocker(client redis.Cmdable, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{
		client:        client,
		ttl:           ttl,
		retryInterval: defaultRetryInterval,
		renewInterval: ttl / 3,
		logger:        logger,
	}
}

// Lock blocks until key is acquired or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := lockKeyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			stop := make(chan struct{})
			renewed := make(chan struct{})
			go l.renew(redisKey, token, stop, renewed)

			var once sync.Once
			return func() {
				once.Do(func() {
					close(stop)
					<-renewed
					l.release(redisKey, token)
				})
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// renew keeps the lease alive until stop is closed or the lease is lost.
func (l *RedisLocker) renew(redisKey, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(l.renewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), l.renewInterval)
		n, err := renewScript.Run(ctx, l.client, []string{redisKey}, token, l.ttl.Milliseconds()).Int()
		cancel()
		if err != nil {
			l.logger.Warn("Failed to renew lock", zap.String("key", redisKey), zap.Error(err))
			continue
		}
		if n == 0 {
			l.logger.Error("Lock lease lost while held", zap.String("key", redisKey), zap.Error(ErrLockNotHeld))
			return
		}
	}
}

func (l *RedisLocker) release(redisKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	n, err := unlockScript.Run(ctx, l.client, []string{redisKey}, token).Int()
	if err != nil {
		l.logger.Warn("Failed to release lock", zap.String("key", redisKey), zap.Error(err))
		return
	}
	if n == 0 {
		l.logger.Warn("Lock expired before release", zap.String("key", redisKey), zap.Error(ErrLockNotHeld))
	}
}
