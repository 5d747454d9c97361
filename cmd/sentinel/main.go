package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"TargetSentinel/internal/cache"
	"TargetSentinel/internal/collector"
	"TargetSentinel/internal/config"
	"TargetSentinel/internal/ingest"
	"TargetSentinel/internal/logger"
	"TargetSentinel/internal/metrics"
	"TargetSentinel/internal/recorder"
	"TargetSentinel/internal/scheduler"
	"TargetSentinel/internal/stats"
	"TargetSentinel/internal/threshold"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	zlog "github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil {
		zlog.Debug().Msg(".env file not found, relying on actual environment variables")
	}

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		zlog.Fatal().Err(err).Msg("config validation")
	}

	log, logCloser, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		zlog.Fatal().Err(err).Msg("init logger")
	}
	defer logCloser.Close()
	log.Info().Msg("TargetSentinel starting...")

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init store
	var store recorder.Store
	if cfg.Database.SQLitePath != "" {
		ss, err := recorder.NewSQLiteStore(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Fatal().Err(err).Msg("init sqlite store")
		}
		store = ss
	} else {
		log.Warn().Msg("no database configured, using noop store")
		store = recorder.NewNoopStore()
	}
	defer store.Close()

	// Init feed
	var feed collector.Feed
	switch cfg.Feed.Provider {
	case "mock":
		feed = newDemoFeed()
	case "yahoo":
		feed = collector.NewYahooFeed(collector.YahooOptions{
			BaseURL:        cfg.Feed.BaseURL,
			Symbols:        cfg.Feed.Symbols,
			Proxy:          cfg.Proxy,
			Timeout:        cfg.Feed.Timeout,
			RequestsPerSec: cfg.Feed.RequestsPerSec,
			MaxRetries:     cfg.Feed.MaxRetries,
		})
	default:
		feed = collector.NewBinanceFeed(collector.BinanceOptions{
			BaseURL:        cfg.Feed.BaseURL,
			QuoteAsset:     cfg.Feed.QuoteAsset,
			Proxy:          cfg.Proxy,
			Timeout:        cfg.Feed.Timeout,
			RequestsPerSec: cfg.Feed.RequestsPerSec,
			MaxRetries:     cfg.Feed.MaxRetries,
		})
	}
	log.Info().Str("feed", feed.Name()).Msg("price feed ready")

	// Init metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.New(reg)
	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, metrics.Handler(reg))
		metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server")
			}
		}()
		log.Info().Str("addr", cfg.Metrics.Addr).Str("path", cfg.Metrics.Path).Msg("metrics exposed")
	}

	// Init statistics
	var aggOpts []stats.Option
	switch cfg.Cache.Backend {
	case "memory":
		aggOpts = append(aggOpts, stats.WithCache(cache.NewTTLCache(), cfg.Cache.TTL))
	case "redis":
		rc := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Prefix:   cfg.Cache.Redis.Prefix,
		})
		if err := rc.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, statistics cache disabled")
			rc.Close()
		} else {
			aggOpts = append(aggOpts, stats.WithCache(rc, cfg.Cache.TTL))
			defer rc.Close()
		}
	}
	agg := stats.NewAggregator(store, log, aggOpts...)

	// Init ingestion
	updater := threshold.NewUpdater(store, log)
	driver := ingest.NewDriver(feed, updater, log,
		ingest.WithWorkers(cfg.Ingest.Workers),
		ingest.WithLookback(cfg.Ingest.Lookback),
		ingest.WithMetrics(rec),
	)

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, driver, agg, cfg.Stats.TrendDays, log)
	if err := sched.RegisterAll(cfg.Schedule.IngestCron, cfg.Schedule.ReportCron); err != nil {
		log.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, executing ingestion now")
		go sched.RunIngestionNow()
	}

	log.Info().Msg("TargetSentinel is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping...")
	cancel()
	sched.Stop()
	if metricsSrv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	log.Info().Msg("TargetSentinel stopped")
}

func newDemoFeed() *collector.MockFeed {
	feed := collector.NewMockFeed()
	feed.SetHigh("BTCUSDT", 68250.5)
	feed.SetHigh("ETHUSDT", 3540.25)
	feed.SetHigh("SOLUSDT", 172.8)
	return feed
}
