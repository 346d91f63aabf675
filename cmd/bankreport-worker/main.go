package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"bankreport/internal/backend"
	"bankreport/internal/cli"
	applog "bankreport/internal/log"
	"bankreport/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(cli.SetupLogger(nil, applog.ComponentWorker))
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	logger.Info("Starting bankreport-worker")

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	bcfg.RequireAMQP = true
	bcfg.WithSummary = cfg.SheetsEnabled()

	res, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	}()
	if res.Summary == nil {
		logger.Info("Google Sheets summary disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	reportWorker := worker.NewReportWorker(cfg.DownloadDir, res.Index, res.Summary)
	janitor := worker.NewJanitor(cfg.Paths(), res.Index, cfg.RetentionMaxAge)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return res.AMQP.ConsumeReportGenerated(gctx, reportWorker.HandleReportGenerated)
	})
	g.Go(func() error {
		return janitor.Start(gctx, cfg.RetentionSchedule)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
