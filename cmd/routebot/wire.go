package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/neexbeast/routebot/internal/api"
	"github.com/neexbeast/routebot/internal/bot"
	"github.com/neexbeast/routebot/internal/cache"
	"github.com/neexbeast/routebot/internal/config"
	"github.com/neexbeast/routebot/internal/discovery"
	"github.com/neexbeast/routebot/internal/logging"
	"github.com/neexbeast/routebot/internal/metrics"
	"github.com/neexbeast/routebot/internal/myfly"
	"github.com/neexbeast/routebot/internal/storage"
)

// app holds the wired dependencies of one command invocation.
type app struct {
	cfg      *config.Config
	log      *zap.SugaredLogger
	registry *prometheus.Registry
	poster   *bot.Poster

	ledger  *cache.Ledger
	repo    *storage.Repository
	closers []func()
}

// loadConfig reads the config file and environment, then applies the flags the
// user explicitly set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()

	path, _ := flags.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if flags.Changed("channel") {
		cfg.ChannelID, _ = flags.GetString("channel")
	}
	if flags.Changed("token") {
		cfg.DiscordToken, _ = flags.GetString("token")
	}
	if flags.Changed("min-airport-size") {
		cfg.MinAirportSize, _ = flags.GetInt("min-airport-size")
	}
	if flags.Changed("max-attempts") {
		cfg.MaxAttempts, _ = flags.GetInt("max-attempts")
	}
	if flags.Changed("retry-delay") {
		cfg.RetryDelay, _ = flags.GetDuration("retry-delay")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}

	return cfg, nil
}

// newApp builds the component graph. delivery commands also connect to
// Discord and the optional Redis ledger and Postgres history.
func newApp(ctx context.Context, cmd *cobra.Command, delivery bool) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(delivery); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, registry: prometheus.NewRegistry()}
	a.closers = append(a.closers, func() { _ = log.Sync() })
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(a.registry)

	client := myfly.NewClient(myfly.Config{
		BaseURL:           cfg.BaseURL,
		Timeout:           cfg.RequestTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Metrics:           m,
	}, log)

	finder := discovery.NewFinder(client, discovery.Options{
		MinAirportSize: cfg.MinAirportSize,
		MaxAttempts:    cfg.MaxAttempts,
		RetryDelay:     cfg.RetryDelay,
	}, m, log)

	opts := bot.Options{Metrics: m}
	var sink bot.Sink

	if delivery {
		discord, err := bot.NewDiscordSink(cfg.DiscordToken)
		if err != nil {
			a.close()
			return nil, err
		}
		sink = discord

		if err := a.connectStores(ctx); err != nil {
			a.close()
			return nil, err
		}
		if a.ledger != nil {
			opts.Ledger = a.ledger
		}
		if a.repo != nil {
			opts.History = a.repo
		}
	}

	a.poster = bot.NewPoster(finder, sink, cfg.ChannelID, opts, log)
	return a, nil
}

// connectStores opens Redis and Postgres when their URLs are configured.
func (a *app) connectStores(ctx context.Context) error {
	if a.cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, a.cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		a.ledger = cache.NewLedger(client)
		a.log.Infow("daily post ledger enabled")
	}

	if a.cfg.DatabaseURL != "" {
		pool, err := storage.Connect(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		a.closers = append(a.closers, pool.Close)

		if err := storage.RunMigrations(ctx, pool, a.cfg.MigrationsDir); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		a.log.Infow("migrations applied", "dir", a.cfg.MigrationsDir)
		a.repo = storage.NewRepository(pool)
	}

	return nil
}

// history, dbPinger and redisPinger return untyped nils for components that
// are not configured.
func (a *app) history() api.PostHistory {
	if a.repo == nil {
		return nil
	}
	return a.repo
}

func (a *app) dbPinger() api.Pinger {
	if a.repo == nil {
		return nil
	}
	return a.repo
}

func (a *app) redisPinger() api.Pinger {
	if a.ledger == nil {
		return nil
	}
	return a.ledger
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
