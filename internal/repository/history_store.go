package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"StockCharts/internal/domain/models"
	domrepo "StockCharts/internal/domain/repository"
	pkgch "StockCharts/pkg/clickhouse"
	applogger "StockCharts/pkg/logger"
	xutil "StockCharts/pkg/util"
)

const insertChunkSize = 2000

// SchemaStatements returns the DDL for the bar and symbol tables.
func SchemaStatements(barsTable, symbolsTable string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    symbol LowCardinality(String),
    day Date,
    open Float64,
    high Float64,
    low Float64,
    close Float64,
    volume Int64,
    fetched_at DateTime
) ENGINE = ReplacingMergeTree(fetched_at)
ORDER BY (symbol, day)`, barsTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    symbol String,
    short_name String,
    long_name String,
    exchange String,
    currency String,
    updated_at DateTime
) ENGINE = ReplacingMergeTree(updated_at)
ORDER BY symbol`, symbolsTable),
	}
}

// CHHistoryStore keeps daily bars in ClickHouse. It serves as a history
// provider and as an archive for bars fetched elsewhere.
type CHHistoryStore struct {
	ch           *pkgch.Client
	db           *sql.DB
	barsTable    string
	symbolsTable string
	l            *applogger.Logger
}

func NewCHHistoryStore(ch *pkgch.Client, barsTable, symbolsTable string, l *applogger.Logger) *CHHistoryStore {
	return &CHHistoryStore{ch: ch, db: ch.DB(), barsTable: barsTable, symbolsTable: symbolsTable, l: l}
}

func (s *CHHistoryStore) Name() string { return "clickhouse" }

func (s *CHHistoryStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, SchemaStatements(s.barsTable, s.symbolsTable))
}

func (s *CHHistoryStore) Fetch(ctx context.Context, symbol string) (*models.History, error) {
	q := fmt.Sprintf("SELECT day, open, high, low, close, volume FROM %s FINAL WHERE symbol = ? ORDER BY day ASC", s.barsTable)
	rows, err := s.db.QueryContext(ctx, q, symbol)
	if err != nil {
		s.logError("clickhouse history query error", symbol, err)
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	bars := make([]models.Bar, 0, 1024)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Time, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			s.logError("clickhouse history scan error", symbol, err)
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Time = xutil.DayOf(b.Time)
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("clickhouse history %s: %w", symbol, domrepo.ErrNotFound)
	}

	meta, err := s.meta(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return &models.History{Meta: meta, Bars: bars, FetchedAt: time.Now().UTC()}, nil
}

func (s *CHHistoryStore) meta(ctx context.Context, symbol string) (models.SymbolMeta, error) {
	q := fmt.Sprintf("SELECT symbol, short_name, long_name, exchange, currency FROM %s FINAL WHERE symbol = ? LIMIT 1", s.symbolsTable)
	var m models.SymbolMeta
	err := s.db.QueryRowContext(ctx, q, symbol).Scan(&m.Symbol, &m.ShortName, &m.LongName, &m.Exchange, &m.Currency)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return models.FallbackMeta(symbol), nil
	case err != nil:
		return models.SymbolMeta{}, fmt.Errorf("query symbol meta: %w", err)
	}
	if m.ShortName == "" {
		m.ShortName = m.Symbol
	}
	return m, nil
}

// SaveHistory upserts the bars and metadata of h. ReplacingMergeTree keeps
// the latest fetch per (symbol, day).
func (s *CHHistoryStore) SaveHistory(ctx context.Context, h *models.History) error {
	if h.Len() == 0 {
		return nil
	}
	symbol := h.Meta.Symbol
	fetched := h.FetchedAt
	if fetched.IsZero() {
		fetched = time.Now().UTC()
	}

	for start := 0; start < len(h.Bars); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(h.Bars) {
			end = len(h.Bars)
		}
		q, args := barsInsert(s.barsTable, symbol, fetched, h.Bars[start:end])
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.logError("clickhouse bars insert error", symbol, err)
			return fmt.Errorf("insert bars: %w", err)
		}
	}

	q := fmt.Sprintf("INSERT INTO %s (symbol, short_name, long_name, exchange, currency, updated_at) VALUES (?, ?, ?, ?, ?, ?)", s.symbolsTable)
	if _, err := s.db.ExecContext(ctx, q, symbol, h.Meta.ShortName, h.Meta.LongName, h.Meta.Exchange, h.Meta.Currency, fetched); err != nil {
		return fmt.Errorf("insert symbol meta: %w", err)
	}
	return nil
}

// barsInsert builds one multi-row VALUES insert.
func barsInsert(table, symbol string, fetched time.Time, bars []models.Bar) (string, []interface{}) {
	values := make([]string, 0, len(bars))
	args := make([]interface{}, 0, len(bars)*8)
	for _, b := range bars {
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args, symbol, b.Time, b.Open, b.High, b.Low, b.Close, b.Volume, fetched)
	}
	q := fmt.Sprintf("INSERT INTO %s (symbol, day, open, high, low, close, volume, fetched_at) VALUES %s", table, strings.Join(values, ","))
	return q, args
}

func (s *CHHistoryStore) Health(ctx context.Context) error {
	return s.ch.Health(ctx)
}

func (s *CHHistoryStore) Close() error {
	return nil // Managed by pkg
}

func (s *CHHistoryStore) logError(msg, symbol string, err error) {
	if s.l == nil {
		return
	}
	s.l.Error(msg,
		applogger.String("table", s.barsTable),
		applogger.String("symbol", symbol),
		applogger.Error(err),
	)
}
