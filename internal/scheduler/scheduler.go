package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"StockOverview/internal/cache"
	"StockOverview/internal/notifier"
	"StockOverview/internal/overview"
)

// Sweeper removes expired cache buckets. FileStore implements it; the redis
// backend expires keys on its own.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time, keep cache.Retention) (int, error)
}

// Alerter delivers failure reports.
type Alerter interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// HitRatioer reports cache effectiveness. SQLiteRecorder implements it.
type HitRatioer interface {
	HitRatio(since time.Time) (float64, int, error)
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron      *cron.Cron
	Service   *overview.Service
	Sweeper   Sweeper
	Notifier  Alerter
	Stats     HitRatioer
	Watchlist []string
	Ctx       context.Context
	Now       func() time.Time
}

// NewScheduler creates a new Scheduler. sweeper and alerter may be nil.
func NewScheduler(ctx context.Context, svc *overview.Service, sweeper Sweeper, alerter Alerter, watchlist []string) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Service:   svc,
		Sweeper:   sweeper,
		Notifier:  alerter,
		Watchlist: watchlist,
		Ctx:       ctx,
		Now:       time.Now,
	}
}

// RegisterAll registers the pre-warm and sweep jobs. An empty spec skips the job.
func (s *Scheduler) RegisterAll(prewarmCron, sweepCron string) error {
	if prewarmCron != "" && len(s.Watchlist) > 0 {
		if _, err := s.Cron.AddFunc(prewarmCron, func() { s.Prewarm() }); err != nil {
			return fmt.Errorf("register prewarm task: %w", err)
		}
	}
	if sweepCron != "" && s.Sweeper != nil {
		if _, err := s.Cron.AddFunc(sweepCron, func() { s.Sweep() }); err != nil {
			return fmt.Errorf("register sweep task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// Prewarm requests the overview of every watchlist symbol so the current
// minute and day buckets are cached before users ask. It returns the number
// of symbols that failed.
func (s *Scheduler) Prewarm() int {
	log.Info().Strs("watchlist", s.Watchlist).Msg("running prewarm")
	failed := 0
	for _, symbol := range s.Watchlist {
		if s.Ctx.Err() != nil {
			break
		}
		if _, err := s.Service.Overview(s.Ctx, overview.Request{Symbol: symbol}); err != nil {
			failed++
			log.Error().Err(err).Str("symbol", symbol).Msg("prewarm")
			s.trySend(notifier.FormatFailure("prewarm", symbol, err, s.Now()))
		}
	}
	return failed
}

// Sweep deletes cache buckets older than the service retention.
func (s *Scheduler) Sweep() int {
	if s.Sweeper == nil {
		return 0
	}
	removed, err := s.Sweeper.Sweep(s.Ctx, s.Now(), s.Service.Retention)
	if err != nil {
		log.Error().Err(err).Msg("cache sweep")
		s.trySend(notifier.FormatFailure("cache sweep", "", err, s.Now()))
		return removed
	}
	log.Info().Int("removed", removed).Msg("cache sweep")
	return removed
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	switch strings.ToLower(fields[0]) {
	case "/quote":
		if len(fields) < 2 {
			return "Usage: /quote SYMBOL"
		}
		symbol := strings.ToUpper(fields[1])
		p, err := s.Service.Overview(ctx, overview.Request{Symbol: symbol})
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("quote command")
			return fmt.Sprintf("Could not load %s: %v", symbol, err)
		}
		return notifier.FormatQuote(p)
	case "/stats":
		if s.Stats == nil {
			return "Fetch history is not recorded."
		}
		ratio, total, err := s.Stats.HitRatio(s.Now().Add(-24 * time.Hour))
		if err != nil {
			log.Warn().Err(err).Msg("stats command")
			return fmt.Sprintf("Could not read fetch history: %v", err)
		}
		return notifier.FormatStats(ratio, total)
	case "/watchlist":
		if len(s.Watchlist) == 0 {
			return "Watchlist is empty."
		}
		return "Watchlist: " + strings.Join(s.Watchlist, ", ")
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}
