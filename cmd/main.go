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

	"github.com/okian/cinerank/internal/adapters/http/api"
	"github.com/okian/cinerank/internal/adapters/http/site"
	"github.com/okian/cinerank/internal/adapters/http/swagger"
	"github.com/okian/cinerank/internal/adapters/repository"
	service "github.com/okian/cinerank/internal/app"
	"github.com/okian/cinerank/internal/config"
	"github.com/okian/cinerank/internal/domain/features"
	"github.com/okian/cinerank/internal/domain/ranking"
	"github.com/okian/cinerank/internal/domain/scoring"
	"github.com/okian/cinerank/internal/supervisor"
	"github.com/okian/cinerank/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	_ = logger.SetLevelString(cfg.LogLevel)

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "server exited", logger.Error(err))
		os.Exit(1)
	}
}

// run wires every component from cfg and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	ranker, err := newRanker(cfg)
	if err != nil {
		_ = store.Close()
		return err
	}

	svc := service.New(
		service.WithStore(store),
		service.WithRanker(ranker),
		service.WithLogger(log),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
	)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return fmt.Errorf("start service: %w", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Error(ctx, "service close failed", logger.Error(err))
		}
	}()

	shutdown := time.Duration(cfg.ShutdownTimeoutMS) * time.Millisecond
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	tree := supervisor.NewTree(logger.Slog(), supervisor.TreeConfig{ShutdownTimeout: shutdown})
	tree.AddAPIService(supervisor.NewHTTPServerService(srv, cfg.Addr, shutdown))
	tree.AddBackgroundService(supervisor.NewMetricsService(svc, time.Duration(cfg.MetricsIntervalMS)*time.Millisecond))

	err = tree.Serve(ctx)
	log.Info(ctx, "server stopped")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// openStore selects Badger when a data directory is configured and loads the
// seed catalog, if any.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	var store repository.Store = repository.NewMemoryStore()
	if cfg.DataDir != "" {
		bs, err := repository.OpenBadgerStore(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		store = bs
	}

	if cfg.SeedFile != "" {
		n, err := repository.LoadSeed(ctx, store, cfg.SeedFile)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("load seed: %w", err)
		}
		logger.Get().Info(ctx, "catalog seeded", logger.String("file", cfg.SeedFile), logger.Int("items", n))
	}
	return store, nil
}

func newRanker(cfg *config.Config) (*ranking.Ranker, error) {
	policy, err := scoring.ParseUnresolvedPolicy(cfg.UnresolvedPolicy)
	if err != nil {
		return nil, err
	}
	clamp := features.ClampNone
	if cfg.ClampFeatures {
		clamp = features.ClampUnit
	}
	return ranking.New(
		ranking.WithExtractor(features.NewExtractor(features.WithClampPolicy(clamp))),
		ranking.WithScorer(scoring.NewCollaborativeScorer(scoring.WithUnresolvedPolicy(policy))),
		ranking.WithWorkers(cfg.ScoringWorkers),
		ranking.WithParallelThreshold(cfg.ParallelThreshold),
	), nil
}

// newHandler registers the landing page, API docs and API routes.
func newHandler(ctx context.Context, cfg *config.Config, svc *service.Service) http.Handler {
	mux := http.NewServeMux()
	site.Register(ctx, mux)
	swagger.Register(ctx, mux)

	apiServer := api.NewServer(svc, svc,
		api.WithDefaultLimit(cfg.DefaultLimit),
		api.WithMaxLimit(cfg.MaxLimit),
		api.WithCORSOrigins(cfg.CORSAllowedOrigins),
		api.WithRateLimit(cfg.RateLimitRequests, time.Duration(cfg.RateLimitWindowMS)*time.Millisecond),
	)
	apiServer.Register(mux)
	return apiServer.Handler(mux)
}
