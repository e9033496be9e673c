package cache

import (
	"context"
	"errors"
	"time"
)

// LayeredCache implements two-level cache (L1: near, L2: shared).
type LayeredCache struct {
	l1          Service
	l2          Service
	backfillTTL time.Duration
}

// NewLayeredCache creates a layered cache, usually memory over Redis.
func NewLayeredCache(l1, l2 Service, opts ...LayeredOption) *LayeredCache {
	cfg := &LayeredConfig{}

	for _, opt := range opts {
		opt(cfg)
	}

	return &LayeredCache{
		l1:          l1,
		l2:          l2,
		backfillTTL: cfg.BackfillTTL,
	}
}

func (lc *LayeredCache) Name() string { return lc.l1.Name() + "+" + lc.l2.Name() }

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	// Write-through: L2 first, then L1
	if err := lc.l2.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	_ = lc.l1.Set(ctx, key, value, expiration)
	return nil
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := lc.l1.Get(ctx, key, dest); err == nil {
		return nil
	}

	if err := lc.l2.Get(ctx, key, dest); err != nil {
		return err
	}

	// Promote into L1 for next time
	_ = lc.l1.Set(ctx, key, deref(dest), lc.backfillTTL)
	return nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.l1.Delete(ctx, keys...)
	return lc.l2.Delete(ctx, keys...)
}

func (lc *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	if ok, err := lc.l1.Exists(ctx, keys...); err == nil && ok {
		return true, nil
	}
	return lc.l2.Exists(ctx, keys...)
}

// Close closes both cache layers.
func (lc *LayeredCache) Close() error {
	return errors.Join(lc.l1.Close(), lc.l2.Close())
}
