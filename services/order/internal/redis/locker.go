package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/bsm/redislock"
)

const (
	DefaultLockTTL = 15 * time.Second
	lockKeyPrefix  = "momo:lock:"
)

var ErrLockBusy = errors.New("lock is held by another worker")

// Locker hands out short lived distributed locks. Waiters retry with a
// linear backoff for a bounded number of attempts.
type Locker struct {
	client  *redislock.Client
	ttl     time.Duration
	retries int
	logger  apt.Logger
}

func NewLocker(client redislock.RedisClient, ttl time.Duration, logger apt.Logger) *Locker {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &Locker{
		client:  redislock.New(client),
		ttl:     ttl,
		retries: 50,
		logger:  logger,
	}
}

func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	opts := &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), l.retries),
	}

	lock, err := l.client.Obtain(ctx, lockKeyPrefix+key, l.ttl, opts)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrLockBusy, key)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot obtain lock %s: %w", key, err)
	}

	return func() {
		// The request context may already be done; release on a fresh one.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.Info("failed to release lock", "key", key, "error", err)
		}
	}, nil
}
