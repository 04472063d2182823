package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/api"
	"finboard/internal/cli"
	"finboard/internal/config"
	apphttp "finboard/internal/http"
	"finboard/internal/session"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("finboard")

	cfg := cli.LoadConfig(logger, (*config.Config).Validate)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	sessions := session.NewManager(repo, cfg.SessionTTL)
	apiClient := api.New(cfg.APIBaseURL, cfg.APITimeout)

	// The report queue is optional: without a reachable broker the UI
	// only offers the direct CSV download.
	var queue apphttp.ReportQueue
	if amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue); err != nil {
		logger.Warn("AMQP unavailable, queued reports disabled", "error", err)
	} else {
		defer amqpClient.Close()
		queue = amqpClient
		logger.Info("Report queue initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apiClient, sessions, queue, cfg.TrendWindow, cfg.WriteRateLimit)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	// Expired session rows pile up without a sweeper.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed, err := sessions.CleanExpired(ctx); err != nil {
					logger.Warn("Session cleanup failed", "error", err)
				} else if removed > 0 {
					logger.Info("Expired sessions removed", "count", removed)
				}
			}
		}
	}()

	logger.Info("Starting finboard server", "port", cfg.Port, "api_base_url", cfg.APIBaseURL)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
