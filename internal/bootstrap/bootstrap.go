// Package bootstrap wires the configuration into a ready rebooking service.
// Both cmd/server and cmd/rebook build their dependencies through New.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/flight-search/consolidator-rebooking/internal/adapter/browser"
	"github.com/flight-search/consolidator-rebooking/internal/adapter/publisher"
	"github.com/flight-search/consolidator-rebooking/internal/automation"
	"github.com/flight-search/consolidator-rebooking/internal/config"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/lock"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/logger"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/metrics"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/screenshot"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/timeutil"
	"github.com/flight-search/consolidator-rebooking/internal/portal"
	"github.com/flight-search/consolidator-rebooking/internal/usecase"
)

// redisLockPrefix namespaces the lock keys in a shared Redis.
const redisLockPrefix = "rebooking:lock:"

// App holds the wired service and what has to be closed on shutdown.
type App struct {
	UseCase  usecase.RebookingUseCase
	Registry *prometheus.Registry
	Catalog  *portal.Catalog
	Logger   *logger.Logger

	closers []func() error
}

// Option customizes New.
type Option func(*options)

type options struct {
	driver   portal.Driver
	store    screenshot.Store
	locker   lock.Locker
	clock    timeutil.Clock
	registry *prometheus.Registry
}

// WithDriver replaces the playwright driver, e.g. with a scripted portal.
func WithDriver(d portal.Driver) Option {
	return func(o *options) { o.driver = d }
}

// WithStore replaces the configured screenshot sink.
func WithStore(s screenshot.Store) Option {
	return func(o *options) { o.store = s }
}

// WithLocker replaces the configured lock backend.
func WithLocker(l lock.Locker) Option {
	return func(o *options) { o.locker = l }
}

// WithClock replaces the real clock.
func WithClock(c timeutil.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithRegistry registers the metrics on reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// New builds the App described by cfg.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, opts ...Option) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = timeutil.NewRealClock()
	}

	app := &App{Logger: log}

	catalog, err := loadCatalog(cfg.Portal.LocatorsFile)
	if err != nil {
		return nil, err
	}
	app.Catalog = catalog

	if o.store == nil {
		if o.store, err = newStore(ctx, cfg.Screenshots); err != nil {
			return nil, err
		}
	}

	if o.locker == nil {
		locker, closeFn, err := newLocker(ctx, cfg.Lock, o.clock)
		if err != nil {
			return nil, err
		}
		o.locker = locker
		app.closers = append(app.closers, closeFn)
	}

	var pub publisher.ResultPublisher = publisher.NopPublisher{}
	if cfg.PublishEnabled() {
		pub = publisher.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Publishing results to Kafka")
	}
	app.closers = append(app.closers, pub.Close)

	app.Registry = o.registry
	if app.Registry == nil {
		app.Registry = prometheus.NewRegistry()
		app.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	collected := metrics.New(app.Registry)

	if o.driver == nil {
		o.driver = browser.NewDriver(false)
	}

	booker := automation.NewBooker(automation.BookerConfig{
		Driver: o.driver,
		Browser: portal.Options{
			Headless:          cfg.Portal.Headless,
			ViewportWidth:     cfg.Portal.ViewportWidth,
			ViewportHeight:    cfg.Portal.ViewportHeight,
			UserAgent:         cfg.Portal.UserAgent,
			ActionTimeout:     cfg.Timeouts.Action,
			NavigationTimeout: cfg.Timeouts.Navigation,
		},
		Catalog: catalog,
		Credentials: automation.Credentials{
			URL:      cfg.Portal.URL,
			Email:    cfg.Portal.Email,
			Password: cfg.Portal.Password,
		},
		Timeouts: automation.Timeouts{
			Action:      cfg.Timeouts.Action,
			Login:       cfg.Timeouts.Login,
			Results:     cfg.Timeouts.Results,
			NetworkIdle: cfg.Timeouts.NetworkIdle,
			Debounce:    cfg.Timeouts.Debounce,
			Navigation:  cfg.Timeouts.Navigation,
		},
		Store:  o.store,
		Clock:  o.clock,
		Logger: log,
	})

	app.UseCase = usecase.NewRebookingUseCase(usecase.Dependencies{
		Booker:    booker,
		Locker:    o.locker,
		Publisher: pub,
		Metrics:   collected,
		Clock:     o.clock,
		Logger:    log,
	}, &usecase.Config{
		// The portal allows one live session per login.
		LockKey:   cfg.Portal.Email,
		LockTTL:   cfg.Lock.TTL,
		LockWait:  cfg.Lock.Wait,
		RunBudget: cfg.Timeouts.Run,
	})

	return app, nil
}

// Close releases the lock backend and flushes the publisher.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func loadCatalog(path string) (*portal.Catalog, error) {
	catalog, err := portal.LoadCatalog(path)
	if err != nil {
		return nil, fmt.Errorf("load locator catalog: %w", err)
	}
	return catalog, nil
}

func newStore(ctx context.Context, cfg config.ScreenshotConfig) (screenshot.Store, error) {
	switch cfg.Sink {
	case config.SinkS3:
		store, err := screenshot.NewS3Store(ctx, screenshot.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Prefix:    cfg.S3Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("create s3 screenshot store: %w", err)
		}
		return store, nil
	default:
		return screenshot.NewLocalStore(cfg.Dir), nil
	}
}

func newLocker(ctx context.Context, cfg config.LockConfig, clock timeutil.Clock) (lock.Locker, func() error, error) {
	switch cfg.Backend {
	case config.LockRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return lock.NewRedisLocker(client, redisLockPrefix), client.Close, nil
	default:
		return lock.NewLocalLocker(clock), func() error { return nil }, nil
	}
}
