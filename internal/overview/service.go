// Package overview answers stock overview requests from the per-minute and
// per-day caches, going upstream only for buckets that are not cached yet.
package overview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"StockOverview/internal/bucket"
	"StockOverview/internal/cache"
	"StockOverview/internal/collector"
	"StockOverview/internal/model"
	"StockOverview/internal/recorder"
)

// ErrInvalidRequest is returned for requests that cannot be served at all.
var ErrInvalidRequest = errors.New("invalid request")

const maxSymbolLen = 16

// Request is one overview request.
type Request struct {
	Symbol   string
	Token    string // falls back to Service.Token
	Selected string // chart key to show first, optional
}

// Service resolves overview requests. A nil Store disables caching and every
// request goes upstream.
type Service struct {
	Collector *collector.Collector
	Store     cache.Store
	Recorder  recorder.Recorder
	Retention cache.Retention
	Location  *time.Location
	Token     string
	Now       func() time.Time
}

// NewService creates a Service with a three minute / three day retention.
func NewService(col *collector.Collector, store cache.Store, rec recorder.Recorder) *Service {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Service{
		Collector: col,
		Store:     store,
		Recorder:  rec,
		Retention: cache.Retention{Minutes: 3, Days: 3},
		Location:  time.Local,
		Now:       time.Now,
	}
}

// Overview builds the payload for req.
func (s *Service) Overview(ctx context.Context, req Request) (*model.Payload, error) {
	symbol := strings.TrimSpace(req.Symbol)
	if err := validateSymbol(symbol); err != nil {
		return nil, err
	}
	token := req.Token
	if token == "" {
		token = s.Token
	}

	reqID := uuid.NewString()
	now := s.Now().In(s.location())
	log.Debug().Str("request_id", reqID).Str("symbol", symbol).Msg("overview request")

	// The two buckets do not depend on each other. A minute failure is
	// reported ahead of a day failure.
	var (
		wg                sync.WaitGroup
		minute            *model.MinuteEntry
		daily             *model.DailyEntry
		minuteErr, dayErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		minute, minuteErr = resolve(ctx, s, reqID, symbol, bucket.Minute, bucket.MinuteKey(symbol, now), s.Retention.Minutes,
			func(ctx context.Context) (*model.MinuteEntry, error) {
				return s.Collector.FetchMinuteBucket(ctx, symbol, token)
			})
	}()
	go func() {
		defer wg.Done()
		daily, dayErr = resolve(ctx, s, reqID, symbol, bucket.Day, bucket.DayKey(symbol, now), s.Retention.Days,
			func(ctx context.Context) (*model.DailyEntry, error) {
				return s.Collector.FetchDailyBucket(ctx, symbol, token)
			})
	}()
	wg.Wait()

	if minuteErr != nil {
		return nil, fmt.Errorf("minute bucket for %s: %w", symbol, minuteErr)
	}
	if dayErr != nil {
		return nil, fmt.Errorf("daily bucket for %s: %w", symbol, dayErr)
	}

	return Assemble(minute, daily, req.Selected), nil
}

func (s *Service) location() *time.Location {
	if s.Location == nil {
		return time.Local
	}
	return s.Location
}

// resolve reads the bucket under key, or fetches, stores it and prunes the
// bucket that just left the retention window. Cache failures are logged and
// never fail the request.
func resolve[T any](ctx context.Context, s *Service, reqID, symbol string, g bucket.Granularity, key string, keep int,
	fetch func(context.Context) (*T, error),
) (*T, error) {
	logger := log.With().Str("request_id", reqID).Str("bucket", g.Name).Str("key", key).Logger()
	evt := &recorder.FetchEvent{RequestID: reqID, Symbol: symbol, Bucket: g.Name, Key: key}
	start := time.Now()
	defer func() {
		evt.Duration = time.Since(start)
		if err := s.Recorder.RecordFetch(evt); err != nil {
			logger.Warn().Err(err).Msg("record fetch")
		}
	}()

	if s.Store != nil {
		var cached T
		err := s.Store.Read(ctx, key, &cached)
		switch {
		case err == nil:
			evt.Source = recorder.SourceCache
			logger.Debug().Msg("cache hit")
			return &cached, nil
		case errors.Is(err, cache.ErrNotFound):
			logger.Debug().Msg("cache miss")
		case errors.Is(err, cache.ErrCorruptEntry):
			// Drop it, or the fresh write below would be skipped.
			logger.Warn().Err(err).Msg("corrupt cache entry, refetching")
			s.Store.Prune(ctx, key)
		default:
			logger.Warn().Err(err).Msg("cache read failed, refetching")
		}
	}

	evt.Source = recorder.SourceUpstream
	entry, err := fetch(ctx)
	if err != nil {
		evt.Err = err.Error()
		return nil, err
	}

	if s.Store != nil {
		if err := s.Store.Write(ctx, key, entry); err != nil {
			logger.Warn().Err(err).Msg("cache write failed")
		}
		if keep > 0 {
			old, err := bucket.Earlier(key, keep, s.location())
			if err != nil {
				logger.Warn().Err(err).Msg("prune target")
			} else {
				s.Store.Prune(ctx, old)
			}
		}
	}
	return entry, nil
}

func validateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidRequest)
	}
	if len(symbol) > maxSymbolLen {
		return fmt.Errorf("%w: symbol %q too long", ErrInvalidRequest, symbol)
	}
	for _, r := range symbol {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case r == '.', r == '-', r == '^', r == '=':
		default:
			return fmt.Errorf("%w: symbol %q contains %q", ErrInvalidRequest, symbol, r)
		}
	}
	return nil
}
