package repository

import (
	"context"
	"errors"
	"time"

	"StockCharts/internal/domain/models"
	domrepo "StockCharts/internal/domain/repository"
	"StockCharts/pkg/cache"
	applogger "StockCharts/pkg/logger"
)

// CachedHistoryProvider is a read-through memo over another provider. A hit
// returns the stored entry; a miss fetches and stores a whole new entry.
// Entries are never modified in place, so concurrent readers need no lock.
type CachedHistoryProvider struct {
	source   domrepo.HistoryProvider
	cache    cache.Service
	ttl      time.Duration
	archive  domrepo.HistoryArchive
	metrics  domrepo.Metrics
	l        *applogger.Logger
	saveWait time.Duration
}

// CachedOption configures CachedHistoryProvider.
type CachedOption func(*CachedHistoryProvider)

// WithArchive also writes every fetched history to the archive.
func WithArchive(a domrepo.HistoryArchive) CachedOption {
	return func(c *CachedHistoryProvider) {
		c.archive = a
	}
}

// WithLogger injects a structured logger.
func WithLogger(l *applogger.Logger) CachedOption {
	return func(c *CachedHistoryProvider) {
		c.l = l
	}
}

func NewCachedHistoryProvider(source domrepo.HistoryProvider, svc cache.Service, ttl time.Duration, metrics domrepo.Metrics, opts ...CachedOption) *CachedHistoryProvider {
	c := &CachedHistoryProvider{
		source:   source,
		cache:    svc,
		ttl:      ttl,
		metrics:  metrics,
		saveWait: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CachedHistoryProvider) Name() string { return c.source.Name() }

func (c *CachedHistoryProvider) key(symbol string) string {
	return cache.GenerateKeyWithParams("history", c.source.Name(), symbol)
}

// Fetch returns the cached history for symbol, loading it on a miss.
// Callers must treat the returned bars as read-only.
func (c *CachedHistoryProvider) Fetch(ctx context.Context, symbol string) (*models.History, error) {
	var h models.History
	err := c.cache.Get(ctx, c.key(symbol), &h)
	if err == nil {
		c.metrics.RecordCacheHit(c.cache.Name())
		return &h, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) && c.l != nil {
		c.l.Warn("history cache read failed", applogger.String("symbol", symbol), applogger.Error(err))
	}
	c.metrics.RecordCacheMiss(c.cache.Name())
	return c.load(ctx, symbol)
}

// Refresh fetches symbol from the source and replaces the cached entry.
func (c *CachedHistoryProvider) Refresh(ctx context.Context, symbol string) (*models.History, error) {
	return c.load(ctx, symbol)
}

// Invalidate drops the cached entry for symbol.
func (c *CachedHistoryProvider) Invalidate(ctx context.Context, symbol string) error {
	return c.cache.Delete(ctx, c.key(symbol))
}

func (c *CachedHistoryProvider) load(ctx context.Context, symbol string) (*models.History, error) {
	start := time.Now()
	h, err := c.source.Fetch(ctx, symbol)
	result := "ok"
	switch {
	case errors.Is(err, domrepo.ErrNotFound):
		result = "not_found"
	case err != nil:
		result = "error"
	}
	c.metrics.RecordFetch(c.source.Name(), result, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, c.key(symbol), *h, c.ttl); err != nil && c.l != nil {
		c.l.Warn("history cache write failed", applogger.String("symbol", symbol), applogger.Error(err))
	}
	if c.archive != nil {
		c.save(h)
	}
	if last, ok := h.Last(); ok {
		c.metrics.RecordLastClose(symbol, last.Close)
	}
	return h, nil
}

// save archives in the background; the request does not wait for it.
func (c *CachedHistoryProvider) save(h *models.History) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.saveWait)
		defer cancel()
		if err := c.archive.SaveHistory(ctx, h); err != nil && c.l != nil {
			c.l.Error("history archive failed", applogger.String("symbol", h.Meta.Symbol), applogger.Error(err))
		}
	}()
}

var _ domrepo.HistoryCache = (*CachedHistoryProvider)(nil)
