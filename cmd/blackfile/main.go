// Command blackfile runs the single-use encrypted file transfer service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/blackfile/pkg/async"
	"github.com/dmitrymomot/blackfile/pkg/clientip"
	"github.com/dmitrymomot/blackfile/pkg/config"
	"github.com/dmitrymomot/blackfile/pkg/email"
	"github.com/dmitrymomot/blackfile/pkg/environment"
	"github.com/dmitrymomot/blackfile/pkg/file"
	"github.com/dmitrymomot/blackfile/pkg/httpserver"
	"github.com/dmitrymomot/blackfile/pkg/logger"
	"github.com/dmitrymomot/blackfile/pkg/metrics"
	"github.com/dmitrymomot/blackfile/pkg/mongo"
	"github.com/dmitrymomot/blackfile/pkg/pg"
	"github.com/dmitrymomot/blackfile/pkg/ratelimiter"
	"github.com/dmitrymomot/blackfile/pkg/redis"
	"github.com/dmitrymomot/blackfile/pkg/requestid"
	"github.com/dmitrymomot/blackfile/svc/transfer"
)

const serviceName = "blackfile"

// badgerGCInterval is how often the badger value log is compacted.
const badgerGCInterval = 10 * time.Minute

type appConfig struct {
	LogLevel string `env:"LOG_LEVEL"` // overrides the APP_ENV preset when set

	// Proxy headers trusted for the client address, in priority order.
	// "none" trusts RemoteAddr only.
	ClientIPHeaders []string `env:"CLIENT_IP_HEADERS" envSeparator:","`
}

func (c appConfig) ipResolver() *clientip.Resolver {
	switch {
	case len(c.ClientIPHeaders) == 0:
		return clientip.NewResolver(clientip.DefaultHeaders...)
	case len(c.ClientIPHeaders) == 1 && c.ClientIPHeaders[0] == "none":
		return clientip.NewResolver()
	}
	return clientip.NewResolver(c.ClientIPHeaders...)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("blackfile stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var (
		envCfg      environment.Config
		appCfg      appConfig
		transferCfg transfer.Config
		httpCfg     httpserver.Config
		blobCfg     file.Config
		emailCfg    email.Config
		limitCfg    ratelimiter.Config
	)
	if err := errors.Join(
		config.Load(&envCfg),
		config.Load(&appCfg),
		config.Load(&transferCfg),
		config.Load(&httpCfg),
		config.Load(&blobCfg),
		config.Load(&emailCfg),
		config.Load(&limitCfg),
	); err != nil {
		return err
	}

	env := environment.Parse(envCfg.Env)
	log := logger.New(
		logger.WithEnvironment(env, serviceName),
		logger.WithLevelName(appCfg.LogLevel),
		logger.WithContextExtractors(
			requestid.LoggerExtractor(),
			clientip.LoggerExtractor(),
			environment.LoggerExtractor(),
		),
	)
	slog.SetDefault(log)
	ctx = environment.WithContext(ctx, env)

	checks := map[string]httpserver.Check{}

	store, closeStore, err := openStore(ctx, transferCfg.Store, log, checks)
	if err != nil {
		return err
	}
	defer closeStore()

	blobs, closeBlobs, err := openBlobs(ctx, blobCfg, log)
	if err != nil {
		return err
	}
	defer closeBlobs()

	limiter, closeLimiter, err := newLimiter(ctx, limitCfg, checks)
	if err != nil {
		return err
	}
	defer closeLimiter()

	sender, err := email.New(emailCfg)
	if err != nil {
		return err
	}
	loc, err := time.LoadLocation(transferCfg.NotifyTimezone)
	if err != nil {
		return fmt.Errorf("%w: NOTIFY_TIMEZONE: %v", transfer.ErrInvalidConfig, err)
	}

	m := metrics.New()
	notifier := transfer.NewEmailNotifier(sender,
		transfer.WithNotifierLogger(log),
		transfer.WithNotifierMetrics(m),
		transfer.WithLocation(loc),
		transfer.WithSendTimeout(transferCfg.NotifyTimeout),
	)

	svc, err := transfer.NewService(transferCfg, store, blobs,
		transfer.WithLogger(log),
		transfer.WithMetrics(m),
		transfer.WithNotifier(notifier),
	)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(
		requestid.Middleware,
		appCfg.ipResolver().Middleware,
		environment.Middleware(env),
		m.Middleware,
	)
	r.Get("/health/live", httpserver.LivenessHandler())
	r.Get("/health/ready", httpserver.ReadinessHandler(log, checks))
	r.Handle("/metrics", m.Handler())
	transfer.NewHTTPHandler(svc,
		transfer.WithHTTPLogger(log),
		transfer.WithRateLimiter(limiter),
	).Register(r)

	log.InfoContext(ctx, "starting blackfile",
		slog.String("store", transferCfg.Store),
		slog.String("blob_store", blobCfg.Driver),
		slog.String("rate_limit_store", limitCfg.Store),
	)

	srv := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log))
	runErr := serve(ctx, log,
		func(ctx context.Context) error { return srv.Run(ctx, r) },
		transfer.NewSweeper(svc).Start,
	)

	if err := notifier.Flush(transferCfg.NotifyTimeout); err != nil {
		log.WarnContext(ctx, "notifications still in flight at shutdown", logger.Error(err))
	}
	return runErr
}

// serve runs background next to the server and stops it once run returns,
// whether on shutdown or because the server never started.
func serve(ctx context.Context, log *slog.Logger, run, background func(context.Context) error) error {
	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()

	bg := async.Async(bgCtx, background, func(ctx context.Context, fn func(context.Context) error) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})

	runErr := run(ctx)
	stopBackground()

	if _, err := bg.Await(); err != nil && !errors.Is(err, context.Canceled) {
		log.ErrorContext(ctx, "sweeper stopped", logger.Error(err))
	}
	return runErr
}

func openStore(ctx context.Context, kind string, log *slog.Logger, checks map[string]httpserver.Check) (transfer.Store, func(), error) {
	switch kind {
	case transfer.StorePostgres:
		var cfg pg.Config
		if err := config.Load(&cfg); err != nil {
			return nil, nil, err
		}
		pool, err := pg.Connect(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.Migrate(ctx, pool, cfg, transfer.Migrations, log); err != nil {
			pool.Close()
			return nil, nil, err
		}
		checks["postgres"] = pg.Healthcheck(pool)
		return transfer.NewPostgresStore(pool), pool.Close, nil

	case transfer.StoreMongo:
		var cfg mongo.Config
		if err := config.Load(&cfg); err != nil {
			return nil, nil, err
		}
		client, err := mongo.New(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		disconnect := func() {
			if err := client.Disconnect(context.WithoutCancel(ctx)); err != nil {
				log.Error("mongo disconnect", logger.Error(err))
			}
		}
		store := transfer.NewMongoStore(client.Database(cfg.Database))
		if err := store.EnsureIndexes(ctx); err != nil {
			disconnect()
			return nil, nil, err
		}
		checks["mongo"] = mongo.Healthcheck(client)
		return store, disconnect, nil

	case transfer.StoreMemory:
		log.WarnContext(ctx, "transfers are kept in memory and lost on restart")
		return transfer.NewMemoryStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown TRANSFER_STORE %q", transfer.ErrInvalidConfig, kind)
}

func openBlobs(ctx context.Context, cfg file.Config, log *slog.Logger) (file.Storage, func(), error) {
	switch cfg.Driver {
	case file.DriverLocal:
		s, err := file.NewLocalStorage(cfg.LocalDir)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil

	case file.DriverS3:
		s, err := file.NewS3Storage(ctx, cfg.S3)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil

	case file.DriverBadger:
		s, err := file.NewBadgerStorage(cfg.BadgerDir,
			file.WithBadgerTTL(cfg.BadgerTTL),
			file.WithBadgerLogger(log.With(logger.Component("badger"))),
		)
		if err != nil {
			return nil, nil, err
		}
		gcCtx, stopGC := context.WithCancel(ctx)
		go runBadgerGC(gcCtx, s, log)
		return s, func() {
			stopGC()
			if err := s.Close(); err != nil {
				log.Error("close badger", logger.Error(err))
			}
		}, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown BLOB_STORE %q", file.ErrInvalidConfig, cfg.Driver)
}

func runBadgerGC(ctx context.Context, s *file.BadgerStorage, log *slog.Logger) {
	ticker := time.NewTicker(badgerGCInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunGC(); err != nil {
				log.WarnContext(ctx, "badger value log gc", logger.Error(err))
			}
		}
	}
}

func newLimiter(ctx context.Context, cfg ratelimiter.Config, checks map[string]httpserver.Check) (ratelimiter.RateLimiter, func(), error) {
	switch cfg.Store {
	case "redis":
		var rcfg redis.Config
		if err := config.Load(&rcfg); err != nil {
			return nil, nil, err
		}
		client, err := redis.Connect(ctx, rcfg)
		if err != nil {
			return nil, nil, err
		}
		bucket, err := ratelimiter.NewBucket(ratelimiter.NewRedisStore(client), cfg)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		checks["redis"] = redis.Healthcheck(client)
		return bucket, func() { _ = client.Close() }, nil

	case "", "memory":
		store := ratelimiter.NewMemoryStore()
		bucket, err := ratelimiter.NewBucket(store, cfg)
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		return bucket, store.Close, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown RATE_LIMIT_STORE %q", ratelimiter.ErrInvalidConfig, cfg.Store)
}
