package main

import (
	"context"
	"errors"
	"os"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	"expensetracker/internal/export"
	"expensetracker/internal/log"
	"expensetracker/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel, os.Stdout)
	logger.Info("Starting expense-worker")

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}
	if err := cfg.ValidateSheets(); err != nil {
		logger.Error("Google Sheets is not configured", log.FieldError, err)
		os.Exit(1)
	}

	sheets, err := export.New(context.Background(), export.Options{
		SpreadsheetID:    cfg.GoogleSpreadsheetID,
		SheetName:        cfg.GoogleSheetName,
		JournalSheetName: cfg.GoogleJournalSheetName,
		CredentialsJSON:  cfg.GoogleCredentialsJSON,
		CredentialsFile:  cfg.GoogleCredentialsFile,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	journal := worker.NewJournalWorker(sheets, logger)
	consumed := make(chan struct{})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		select {
		case <-consumed:
		case <-shutdownCtx.Done():
		}
		if err := amqpClient.Close(); err != nil {
			logger.Warn("Failed to close AMQP client", log.FieldError, err)
		}
		stats := journal.Stats()
		logger.Info("Worker stopped",
			"appended", stats.Appended,
			"duplicates", stats.Duplicates,
			"failed", stats.Failed)
	})

	// Rows still append without a header.
	_ = journal.StartupCheck(ctx)

	go func() {
		defer close(consumed)
		err := amqpClient.ConsumeExpenseEvents(ctx, journal.HandleEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
}
