package warmup

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"StockCharts/internal/domain/models"
	applogger "StockCharts/pkg/logger"
)

// Refresher reloads a symbol's history into the cache.
type Refresher interface {
	Refresh(ctx context.Context, symbol string) (*models.History, error)
}

// Result summarizes one warm-up run.
type Result struct {
	Refreshed int
	Failed    map[string]error
	Took      time.Duration
}

// Scheduler refreshes a watchlist on a cron schedule and runs housekeeping
// jobs next to it.
type Scheduler struct {
	cron      *cron.Cron
	refresher Refresher
	symbols   []string
	timeout   time.Duration
	l         *applogger.Logger
}

func New(refresher Refresher, symbols []string, timeout time.Duration, l *applogger.Logger) *Scheduler {
	if l == nil {
		l = applogger.Nop()
	}
	return &Scheduler{
		cron:      cron.New(),
		refresher: refresher,
		symbols:   symbols,
		timeout:   timeout,
		l:         l,
	}
}

// Register schedules the watchlist refresh.
func (s *Scheduler) Register(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, func() { s.RunNow(context.Background()) }); err != nil {
		return fmt.Errorf("register warmup: %w", err)
	}
	return nil
}

// AddJob schedules a named housekeeping func.
func (s *Scheduler) AddJob(name, schedule string, fn func()) error {
	if _, err := s.cron.AddFunc(schedule, fn); err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	return nil
}

// RunNow refreshes every symbol once. Failures are logged and counted; one
// bad symbol never stops the rest.
func (s *Scheduler) RunNow(ctx context.Context) Result {
	start := time.Now()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res := Result{Failed: map[string]error{}}
	for _, sym := range s.symbols {
		if err := ctx.Err(); err != nil {
			res.Failed[sym] = err
			continue
		}
		h, err := s.refresher.Refresh(ctx, sym)
		if err != nil {
			s.l.Warn("warmup refresh failed", applogger.String("symbol", sym), applogger.Error(err))
			res.Failed[sym] = err
			continue
		}
		res.Refreshed++
		s.l.Debug("warmup refreshed", applogger.String("symbol", sym), applogger.Int("bars", len(h.Bars)))
	}
	res.Took = time.Since(start)

	s.l.Info("warmup done",
		applogger.Int("refreshed", res.Refreshed),
		applogger.Int("failed", len(res.Failed)),
		applogger.Duration("took_ms", res.Took),
	)
	return res
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.l.Info("scheduler started",
		applogger.Int("jobs", len(s.cron.Entries())),
		applogger.Strings("watchlist", s.symbols),
	)
}

// Stop stops the cron and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.l.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
