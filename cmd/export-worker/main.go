package main

import (
	"context"
	"os"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/api"
	"finboard/internal/cli"
	"finboard/internal/config"
	"finboard/internal/export"
	"finboard/internal/sheets"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("export-worker")

	cfg := cli.LoadConfig(logger, (*config.Config).ValidateWorker)

	logger.Info("Starting export worker", "backend", cfg.ExportBackend)

	var writer export.ReportWriter
	switch cfg.ExportBackend {
	case "sheets":
		client, err := sheets.New(context.Background(),
			cfg.GoogleSpreadsheetID, cfg.GoogleSheetName,
			cfg.GoogleCredentialsFile, cfg.GoogleCredentialsJSON)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets backend initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	default:
		dirWriter, err := export.NewDirWriter(cfg.ExportDir)
		if err != nil {
			logger.Error("Failed to initialize export directory", "error", err, "dir", cfg.ExportDir)
			os.Exit(1)
		}
		writer = dirWriter
		logger.Info("CSV backend initialized", "dir", cfg.ExportDir)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	apiClient := api.New(cfg.APIBaseURL, cfg.APITimeout)
	worker := export.NewWorker(apiClient, writer, amqpClient, cfg.APIEmail, cfg.APIPassword)

	if err := worker.Start(context.Background()); err != nil {
		logger.Error("Failed to start worker", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker consuming report requests", "queue", cfg.AMQPQueue)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := worker.Stop(shutdownCtx); err != nil {
			logger.Error("Worker shutdown error", "error", err)
		}
	})

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
