package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"bankreport/internal/backend"
	"bankreport/internal/cache"
	"bankreport/internal/chart"
	"bankreport/internal/cli"
	"bankreport/internal/core"
	apphttp "bankreport/internal/http"
	applog "bankreport/internal/log"
	"bankreport/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(cli.SetupLogger(nil, applog.ComponentApp))
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	paths := cfg.Paths()
	cli.EnsureDirs(logger, paths.Uploads, paths.Downloads, paths.Charts)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "index", bcfg.Type.String())
		os.Exit(1)
	}

	monthly := cache.NewLRUCache[[]core.MonthlyAggregate](cfg.CacheSize, cfg.CacheTTL)
	caches := cache.NewManager()
	caches.Register(monthly)
	caches.StartCleanup(cfg.CacheTTL)

	statements := services.NewStatementService(paths, res.Index, res.Publisher(), chart.FileRenderer{}, logger)
	reports := services.NewReportService(paths, res.Index, monthly)

	srv, err := apphttp.NewServer(statements, reports, apphttp.Options{
		Addr:           ":" + cfg.Port,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Logger:         logger,
		Ready:          res.Index,
	})
	if err != nil {
		logger.Error("Failed to create HTTP server", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		caches.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	logger.Info("Starting bankreport server",
		"port", cfg.Port,
		"index", bcfg.Type.String(),
		"amqp_enabled", res.AMQP != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
