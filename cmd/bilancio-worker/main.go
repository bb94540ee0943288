package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"bilancio/internal/backend"
	"bilancio/internal/cli"
	"bilancio/internal/config"
	"bilancio/internal/core"
	applog "bilancio/internal/log"
	"bilancio/internal/sheets/google"
	"bilancio/internal/worker"
)

const retryInterval = time.Minute

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentWorker)
	logger.Info("Starting bilancio-worker")

	cfg, err := cli.LoadConfig(logger, (*config.Config).ValidateWorker)
	if err != nil {
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	result, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Failed to release backend", applog.FieldError, err)
		}
	}()
	if result.Broker == nil {
		return errors.New("AMQP broker unreachable, nothing to consume")
	}

	creds, err := google.Credentials(cfg.GoogleServiceAccountJSON, cfg.GoogleServiceAccountFile)
	if err != nil {
		return err
	}
	sheetsClient, err := google.New(ctx, cfg.GoogleSpreadsheetID, creds)
	if err != nil {
		return err
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	mirror := worker.NewMirrorWorker(cfg.Namespace, result.Table, sheetsClient, core.DefaultRegistry,
		logger.WithComponent(applog.ComponentSheets))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return result.Broker.ConsumeChanges(gctx, cfg.MirrorQueue, mirror.HandleChange)
	})
	g.Go(func() error {
		ticker := time.NewTicker(retryInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if err := mirror.RetryPending(gctx); err != nil && gctx.Err() == nil {
					logger.Error("Retrying pending mirrors failed", applog.FieldError, err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
