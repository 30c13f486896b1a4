package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/config"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/logging"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/marketplace"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/metrics"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/state"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/worker"
)

func main() {
	var (
		maxChecks   = flag.Int("max-checks", 50, "give up on a feed after this many consecutive failed checks (0: never)")
		maxPerClaim = flag.Int("claim", 10, "submissions checked per pass")
		metricsAddr = flag.String("metrics-addr", ":9091", "address serving /metrics (empty disables)")
	)
	flag.Parse()

	cfg := config.Load()
	logger := logging.NewForEnv(cfg.Env, cfg.LogLevel, cfg.LogFormat).Named("worker")
	defer func() { _ = logger.Sync() }()

	logger.Info("config",
		zap.String("env", cfg.Env),
		zap.String("state_backend", cfg.StateBackend),
		zap.Bool("db_dsn_set", cfg.MySQLDSN != ""),
	)

	if cfg.StateBackend == "" {
		cfg.StateBackend = "memory"
	}

	factoryRes, err := state.NewStore(context.Background(), state.FactoryConfig{
		Backend:       cfg.StateBackend,
		MySQLDSN:      cfg.MySQLDSN,
		RunMigrations: cfg.RunMigrations,
		MigrationsDir: cfg.MigrationsDir,
	})
	if err != nil {
		logger.Fatal("state store init failed", zap.Error(err))
	}
	defer func() { _ = factoryRes.Close() }()

	rec := metrics.New()

	mkt := marketplace.New(marketplace.Config{
		Endpoint:          cfg.Amazon.Endpoint,
		MarketplaceID:     cfg.Amazon.MarketplaceID,
		RequestsPerSecond: cfg.Amazon.RequestsPerSecond,
	}, &marketplace.TokenSource{
		TokenURL:     cfg.Amazon.TokenURL,
		ClientID:     cfg.Amazon.ClientID,
		ClientSecret: cfg.Amazon.ClientSecret,
		RefreshToken: cfg.Amazon.RefreshToken,
	}, marketplace.WithLogger(logger))

	r := worker.Runner{
		Store:       factoryRes.Store,
		Check:       worker.FeedChecker{Feeds: mkt},
		PollEvery:   cfg.Feed.PollInterval,
		MaxPerClaim: *maxPerClaim,
		MaxChecks:   *maxChecks,
		Logger:      logger,
		Metrics:     rec,
	}

	var metricsServer *http.Server
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", rec.Handler())
		metricsServer = &http.Server{
			Addr:              *metricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			err := metricsServer.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", zap.Error(err))
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		logger.Info("starting", zap.Duration("poll_every", r.PollEvery))

		err := r.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatal("worker stopped", zap.Error(err))
		}
	}()

	waitForShutdown(logger, cancel, metricsServer)
}

func waitForShutdown(logger *zap.Logger, cancel func(), server *http.Server) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("shutdown signal received")
	cancel()

	if server != nil {
		ctx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = server.Shutdown(ctx)
	}
	logger.Info("shutdown complete")
}
