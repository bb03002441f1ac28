package main

import (
	"context"
	"errors"
	"os"
	"time"

	"gagyebu/internal/amqp"
	"gagyebu/internal/cli"
	"gagyebu/internal/log"
	ports "gagyebu/internal/sheets"
	gsheet "gagyebu/internal/sheets/google"
	"gagyebu/internal/sheets/memory"
	"gagyebu/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentWorker)

	logger.Info("Starting sync-worker")

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the sync worker")
		os.Exit(1)
	}

	res := cli.OpenStore(context.Background(), logger, cfg)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Failed to close store", log.FieldError, err.Error())
		}
	}()

	var mirror ports.TransactionMirror
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, gsheet.Credentials{
			JSON: cfg.GoogleServiceAccountJSON,
			File: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err.Error())
			os.Exit(1)
		}
		mirror = client
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		mirror = memory.New()
		logger.Info("Google Sheets disabled - mirroring into memory only")
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer client.Close()

	syncWorker := worker.NewSyncWorker(res.Store, mirror)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		logger.Info("Shutting down sync-worker...")
	})

	// Events missed while the worker was down are covered by reconciling
	// the current month on startup.
	now := time.Now()
	if err := syncWorker.Reconcile(ctx, now.Year(), int(now.Month())); err != nil {
		logger.Error("Startup reconcile failed", log.FieldError, err.Error())
	}

	if err := client.ConsumeTransactionEvents(ctx, syncWorker.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Event consumption failed", log.FieldError, err.Error())
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Sync-worker shutdown complete")
}
