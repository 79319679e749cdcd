package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/menudash/menudash/internal/api"
	"github.com/menudash/menudash/internal/api/uistatic"
	"github.com/menudash/menudash/internal/auth"
	"github.com/menudash/menudash/internal/config"
	"github.com/menudash/menudash/internal/observability"
	s3store "github.com/menudash/menudash/internal/storage/s3"
	"github.com/menudash/menudash/internal/warehouse"
)

func main() {
	cfg, err := config.LoadFromEnv("menudash-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	provider := warehouse.NewProvider(cfg.Warehouse, logger)
	defer func() { _ = provider.Close() }()
	executor := warehouse.NewExecutor(provider, cfg.Warehouse.QueryTTL)

	deps := api.Dependencies{
		Logger:          logger,
		Connection:      provider,
		Executor:        executor,
		DefaultRowLimit: cfg.Warehouse.DefaultRowLimit,
		UI:              uistatic.Handler(),
		Readiness: api.CombineReadinessChecks(
			api.CheckWarehouse(provider),
		),
		DependencyTimeout: time.Second,
	}

	if cfg.Export.ArchiveEnabled {
		objectStore, err := s3store.New(context.Background(), s3store.Config{
			Endpoint:         cfg.ObjectStore.Endpoint,
			Region:           cfg.ObjectStore.Region,
			Bucket:           cfg.ObjectStore.Bucket,
			AccessKeyID:      cfg.ObjectStore.AccessKeyID,
			SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
			UseSSL:           cfg.ObjectStore.UseSSL,
			Prefix:           cfg.ObjectStore.Prefix,
			AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
		deps.Archive = objectStore
		deps.Readiness = api.CombineReadinessChecks(
			deps.Readiness,
			api.CheckObjectStoreConfig(cfg),
		)
	}

	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("warehouse_driver", cfg.Warehouse.Driver),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
