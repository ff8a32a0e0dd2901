package redisstore

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
	defaultLockTTL    = 10 * time.Second
	defaultRetryDelay = 25 * time.Millisecond
	releaseTimeout    = 3 * time.Second
)

// Deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// PlateLocker is a distributed per-plate lock backed by SET NX PX. The TTL bounds
// how long a crashed holder can block a plate.
type PlateLocker struct {
	client     *redis.Client
	ttl        time.Duration
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewPlateLocker returns redis-backed locker.
func NewPlateLocker(client *redis.Client, ttl time.Duration, logger *zap.Logger) *PlateLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &PlateLocker{
		client:     client,
		ttl:        ttl,
		retryDelay: defaultRetryDelay,
		logger:     logger,
	}
}

func (l *PlateLocker) key(plate string) string {
	return fmt.Sprintf("parking:lock:plate:%s", plate)
}

// Lock polls until the plate key is acquired or ctx is done.
func (l *PlateLocker) Lock(ctx context.Context, plate string) (func(), error) {
	key := l.key(plate)
	token := uuid.New().String()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			return l.releaseFunc(key, token), nil
		}

		timer := time.NewTimer(l.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *PlateLocker) releaseFunc(key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()
			err := releaseScript.Run(ctx, l.client, []string{key}, token).Err()
			if err != nil && !errors.Is(err, redis.Nil) {
				l.logger.Warn("failed to release plate lock", zap.String("key", key), zap.Error(err))
			}
		})
	}
}
