package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/api/auth"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/api/handlers"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/api/middleware"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/config"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/logging"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/metrics"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/state"
)

func main() {
	cfg := config.Load()
	logger := logging.NewForEnv(cfg.Env, cfg.LogLevel, cfg.LogFormat).Named("api")
	defer func() { _ = logger.Sync() }()

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

	pub, err := auth.LoadRSAPublicKeyFromEnv(cfg.JWTPublicKeyEnv)
	if err != nil {
		if !strings.EqualFold(cfg.Env, "dev") {
			logger.Fatal("jwt public key", zap.Error(err))
		}
		logger.Warn("no jwt public key; only unauthenticated dev requests will pass", zap.Error(err))
	}

	mux := handlers.NewRouter(handlers.RouterConfig{
		Store:   factoryRes.Store,
		Metrics: metrics.New().Handler(),
		Protect: func(next http.Handler) http.Handler {
			return middleware.AuthMiddleware{Env: cfg.Env, PublicKey: pub, Next: next}
		},
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           middleware.RequestLog{Logger: logger, Next: mux},
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting", zap.String("env", cfg.Env), zap.String("addr", server.Addr))

		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	waitForShutdown(logger, server)
}

func waitForShutdown(logger *zap.Logger, server *http.Server) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = server.Shutdown(ctx)
	logger.Info("shutdown complete")
}
