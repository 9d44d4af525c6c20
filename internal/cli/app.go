package cli

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"strava-challenge/internal/cache"
	"strava-challenge/internal/challenge"
	"strava-challenge/internal/config"
	"strava-challenge/internal/logger"
	"strava-challenge/internal/metrics"
	"strava-challenge/internal/strava"
)

// app holds the wired services shared by the commands
type app struct {
	cfg      *config.Config
	log      logger.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	cache    *cache.Cache
	source   *strava.Source
	service  *challenge.Service
	closers  []io.Closer
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp loads configuration and wires the cache, Strava source and stats
// service. Credentials are only checked when the command talks to Strava.
func newApp(opts *rootOptions, needCredentials bool) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	if needCredentials {
		if err := cfg.ValidateCredentials(); err != nil {
			return nil, err
		}
	}

	window, err := cfg.ChallengeWindow()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	backend, closer, err := openBackend(cfg.Cache)
	if err != nil {
		return nil, err
	}
	log.Debug("Opened cache backend", logger.String("backend", cfg.Cache.Backend))

	c := cache.New(backend,
		cache.WithPrefix(cfg.Cache.Prefix),
		cache.WithLogger(log),
		cache.WithMetrics(m),
	)

	source := strava.NewSource(strava.Config{
		BaseURL:      cfg.Strava.BaseURL,
		TokenURL:     cfg.Strava.TokenURL,
		ClientID:     cfg.Strava.ClientID,
		ClientSecret: cfg.Strava.ClientSecret,
		RefreshToken: cfg.Strava.RefreshToken,
		Timeout:      cfg.Strava.Timeout,
	}, c, m, log)

	a := &app{
		cfg:      cfg,
		log:      log,
		registry: registry,
		metrics:  m,
		cache:    c,
		source:   source,
		service:  challenge.NewService(source, c, window, m, log),
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	return a, nil
}

func openBackend(cfg config.CacheConfig) (cache.Backend, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		client, err := cache.NewRedisClient(cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("creating redis client: %w", err)
		}
		b := cache.NewRedisBackend(client)
		return b, b, nil
	case config.BackendSQLite:
		b, err := cache.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite cache: %w", err)
		}
		return b, b, nil
	default:
		return cache.NewMemoryBackend(), nil, nil
	}
}

// Close releases the cache backend and flushes the logger
func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.log.Warn("Closing resource failed", logger.Error(err))
		}
	}
	_ = a.log.Sync()
}
