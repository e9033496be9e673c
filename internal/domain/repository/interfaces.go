package repository

import (
	"context"
	"errors"

	"StockCharts/internal/domain/models"
)

// ErrNotFound is returned by providers when a symbol has no history.
var ErrNotFound = errors.New("symbol not found")

// HistoryProvider fetches the full daily history of a symbol.
type HistoryProvider interface {
	Fetch(ctx context.Context, symbol string) (*models.History, error)
	Name() string
}

// HistoryCache is a provider that memoizes another one.
type HistoryCache interface {
	HistoryProvider
	Invalidate(ctx context.Context, symbol string) error
	Refresh(ctx context.Context, symbol string) (*models.History, error)
}

// HistoryArchive stores fetched histories for offline use.
type HistoryArchive interface {
	Init(ctx context.Context) error // ensure tables
	SaveHistory(ctx context.Context, h *models.History) error
	Health(ctx context.Context) error
	Close() error
}

// EventPublisher emits chart lifecycle events.
type EventPublisher interface {
	PublishChartEvent(ctx context.Context, ev *models.ChartEvent) error
	Close() error
}

type Metrics interface {
	RecordCacheHit(layer string)
	RecordCacheMiss(layer string)
	RecordFetch(provider, result string, seconds float64)
	RecordBuild(rangeSelector string, seconds float64)
	RecordError(kind string)
	RecordLastClose(symbol string, price float64)
}
