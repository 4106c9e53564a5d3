package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/okian/fitmeasure/internal/adapters/cache"
	"github.com/okian/fitmeasure/internal/adapters/http/api"
	"github.com/okian/fitmeasure/internal/adapters/http/site"
	"github.com/okian/fitmeasure/internal/adapters/http/swagger"
	"github.com/okian/fitmeasure/internal/adapters/imaging"
	"github.com/okian/fitmeasure/internal/adapters/pose"
	service "github.com/okian/fitmeasure/internal/app"
	"github.com/okian/fitmeasure/internal/config"
	"github.com/okian/fitmeasure/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
	// writeSlack is added to the request timeout so /measure can still
	// answer with 504 before the connection is cut.
	writeSlack = 5 * time.Second
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		os.Stderr.WriteString("fitmeasure: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := initLogger(cfg); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	handler, cleanup, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      cfg.RequestTimeout() + writeSlack,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
		}
		return nil
	})

	err = g.Wait()
	log.Info(context.Background(), "server stopped")
	return err
}

func initLogger(cfg *config.Config) error {
	opts := []logger.Option{
		logger.WithLevel(cfg.LogLevel),
		logger.WithFormat(cfg.LogFormat),
	}
	if cfg.LogFile != "" {
		opts = append(opts, logger.WithFile(cfg.LogFile))
	}
	return logger.Init(opts...)
}

// build wires the detector, cache, pipeline and service behind an HTTP mux.
// The returned cleanup stops the service and releases adapters in reverse
// order.
func build(ctx context.Context, cfg *config.Config, log logger.Logger) (http.Handler, func(), error) {
	detector, err := pose.New(ctx,
		pose.WithProvider(cfg.PoseProvider),
		pose.WithEndpoint(cfg.PoseEndpoint),
		pose.WithTimeout(cfg.PoseTimeout()),
		pose.WithFixturePath(cfg.PoseFixturePath),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("pose detector: %w", err)
	}

	results, err := cache.New(ctx,
		cache.WithAddr(cfg.RedisAddr),
		cache.WithPassword(cfg.RedisPassword),
		cache.WithDB(cfg.RedisDB),
		cache.WithTTL(cfg.CacheTTL()),
	)
	if err != nil {
		// The cache only saves work, so measuring continues without it.
		log.Warn(ctx, "result cache unavailable; continuing without it",
			logger.String("redis_addr", cfg.RedisAddr), logger.Error(err))
		results = cache.Noop{}
	}

	pipeline := service.NewPipeline(detector,
		service.WithCache(results),
		service.WithRenderer(imaging.NewRenderer(imaging.WithMaxDimension(cfg.PreviewMaxDim))),
		service.WithMaxImageBytes(cfg.MaxImageBytes),
		service.WithPipelineLogger(log.Named("pipeline")),
	)

	svc := service.New(pipeline,
		service.WithLogger(log),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithJobStoreSize(cfg.JobStoreSize),
		service.WithRequestTimeout(cfg.RequestTimeout()),
	)
	if err := svc.Start(ctx); err != nil {
		_ = results.Close()
		_ = detector.Close()
		return nil, nil, fmt.Errorf("start service: %w", err)
	}

	cleanup := func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svc.Stop(stopCtx); err != nil {
			log.Error(stopCtx, "service stop failed", logger.Error(err))
		}
		if err := results.Close(); err != nil {
			log.Warn(stopCtx, "cache close failed", logger.Error(err))
		}
		if err := detector.Close(); err != nil {
			log.Warn(stopCtx, "detector close failed", logger.Error(err))
		}
	}

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc,
		api.WithMaxBodyBytes(int64(cfg.MaxImageBytes)*2),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	).Register(ctx, mux)
	site.Register(ctx, mux)

	return mux, cleanup, nil
}
