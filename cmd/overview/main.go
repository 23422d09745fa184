package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"StockOverview/internal/api"
	"StockOverview/internal/cache"
	"StockOverview/internal/collector"
	"StockOverview/internal/config"
	"StockOverview/internal/notifier"
	"StockOverview/internal/overview"
	"StockOverview/internal/recorder"
	"StockOverview/internal/scheduler"
)

func setupLogging(level, format string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if strings.EqualFold(format, "console") {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}
	setupLogging(cfg.Logging.Level, cfg.Logging.Format)
	log.Info().Str("config", cfgPath).Msg("StockOverview starting")

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("cache timezone")
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init fetcher and collector
	fetcher := collector.NewIEXFetcher(cfg.IEX.ProductionURL, cfg.IEX.SandboxURL, cfg.Proxy)
	col := collector.NewCollector(fetcher)
	col.NewsCount = cfg.IEX.NewsCount
	log.Info().Str("source", fetcher.Name()).Msg("data source")

	retention := cache.Retention{Minutes: cfg.Cache.MinuteBuckets, Days: cfg.Cache.DayBuckets}

	// Init cache store
	var (
		store       cache.Store
		sweeper     scheduler.Sweeper
		cacheHealth func(context.Context) error
	)
	if cfg.CacheEnabled() {
		switch cfg.Cache.Backend {
		case "redis":
			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.Cache.Redis.Addr,
				Password: cfg.Cache.Redis.Password,
				DB:       cfg.Cache.Redis.DB,
			})
			defer rdb.Close()
			ttl := time.Duration(retention.Days+1) * 24 * time.Hour
			rs := cache.NewRedisStore(rdb, cfg.Cache.Redis.Prefix, ttl)
			if err := rs.Ping(ctx); err != nil {
				log.Warn().Err(err).Str("addr", cfg.Cache.Redis.Addr).Msg("redis not reachable yet")
			}
			store, cacheHealth = rs, rs.Ping
		default:
			fs, err := cache.NewFileStore(cfg.Cache.Folder, loc)
			if err != nil {
				log.Fatal().Err(err).Msg("init file cache")
			}
			store, sweeper = fs, fs
		}
		log.Info().Str("backend", cfg.Cache.Backend).Int("minute_buckets", retention.Minutes).
			Int("day_buckets", retention.Days).Msg("cache enabled")
	} else {
		log.Info().Msg("cache disabled, every request goes upstream")
	}

	// Init recorder
	var (
		rec   recorder.Recorder
		stats scheduler.HitRatioer
	)
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec, stats = sr, sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	svc := overview.NewService(col, store, rec)
	svc.Retention = retention
	svc.Location = loc
	svc.Token = cfg.IEX.Token

	// Init Telegram notifier
	var (
		tn      *notifier.TelegramNotifier
		alerter scheduler.Alerter
	)
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		alerter = tn
	}

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, svc, sweeper, alerter, cfg.Schedule.Watchlist)
	sched.Now = func() time.Time { return time.Now().In(loc) }
	sched.Stats = stats
	if err := sched.RegisterAll(cfg.Schedule.PrewarmCron, cfg.Schedule.SweepCron); err != nil {
		log.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	// Optional: warm the watchlist immediately
	if os.Getenv("RUN_ON_START") == "true" {
		go sched.Prewarm()
	}

	// HTTP server
	handler := api.NewHandler(svc)
	handler.CacheHealth = cacheHealth
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		log.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server")
			cancel()
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Info().Msg("shutdown signal received, stopping")
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	cancel()
	log.Info().Msg("StockOverview stopped")
}
