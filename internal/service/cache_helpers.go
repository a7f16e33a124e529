package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type FetchFunc[T any] func(ctx context.Context) (T, error)

const (
	defaultSetTimeout    = 5 * time.Second
	defaultDeleteTimeout = 2 * time.Second
)

// addTTLJitter adds up to ±15s random jitter to TTL to avoid mass expiration.
func addTTLJitter(ttl time.Duration) time.Duration {
	if ttl <= 30*time.Second {
		return ttl
	}
	jitter := time.Duration(rand.Intn(30)-15) * time.Second
	return ttl + jitter
}

// populate stores value under key unless fresh reports that the source
// changed while value was being fetched. fresh is checked again after the
// write so a change that lands in between still evicts the entry.
func populate[T any](ctx context.Context, c Cacher, key string, ttl time.Duration, logger *zap.Logger, value T, fresh func() bool) {
	if fresh != nil && !fresh() {
		logger.Debug("skipping cache populate for stale fetch", zap.String("key", key))
		return
	}

	setCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultSetTimeout)
	defer cancel()

	ttlWithJitter := addTTLJitter(ttl)
	if err := c.Set(setCtx, key, value, ttlWithJitter); err != nil {
		logger.Warn("failed to set cache on miss", zap.String("key", key), zap.Error(err))
		return
	}

	if fresh != nil && !fresh() {
		Invalidate(setCtx, c, key, logger)
		return
	}
	logger.Debug("cache populated on miss", zap.String("key", key), zap.Duration("ttl", ttlWithJitter))
}

// FindAndCache implements read-through caching with singleflight. Concurrent
// misses for the same key share one fetch. A nil cache always fetches.
// fresh may be nil; otherwise a fetched value is only cached while it
// returns true.
func FindAndCache[T any](
	ctx context.Context,
	c Cacher,
	sf *singleflight.Group,
	key string,
	ttl time.Duration,
	logger *zap.Logger,
	fresh func() bool,
	fn FetchFunc[T],
) (T, error) {
	var zero T
	if logger == nil {
		logger = zap.NewNop()
	}
	if c == nil {
		return fn(ctx)
	}

	var cached T
	err := c.Get(ctx, key, &cached)
	switch {
	case err == nil:
		logger.Debug("cache hit", zap.String("key", key))
		return cached, nil

	case errors.Is(err, redis.Nil):
		logger.Debug("cache miss", zap.String("key", key))

	default:
		logger.Warn("cache get error (treating as miss)", zap.String("key", key), zap.Error(err))
	}

	v, err, shared := sf.Do(key, func() (any, error) {
		value, err := fn(ctx)
		if err != nil {
			return zero, err
		}
		populate(ctx, c, key, ttl, logger, value, fresh)
		return value, nil
	})
	if err != nil {
		return zero, err
	}

	value, ok := v.(T)
	if !ok {
		logger.Error("singleflight type mismatch", zap.String("key", key))
		return zero, fmt.Errorf("type mismatch for key %q", key)
	}

	if shared {
		logger.Debug("singleflight shared result", zap.String("key", key))
	}

	return value, nil
}

// Invalidate removes key from the cache. Failures are only logged.
func Invalidate(ctx context.Context, c Cacher, key string, logger *zap.Logger) {
	if c == nil {
		return
	}
	delCtx, cancel := context.WithTimeout(ctx, defaultDeleteTimeout)
	defer cancel()

	if err := c.Delete(delCtx, key); err != nil {
		logger.Warn("cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
}
