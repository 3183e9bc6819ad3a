package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"billease/internal/amqp"
	"billease/internal/backend"
	"billease/internal/cli"
	apphttp "billease/internal/http"
	"billease/internal/log"
	"billease/internal/metrics"
	"billease/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	ctx := context.Background()
	result, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Slog()).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to create record store", log.FieldError, err)
		os.Exit(1)
	}

	m := metrics.New()
	opts := services.Options{
		Metrics: m,
		Logger:  logger.WithComponent(log.ComponentLedger).Slog(),
		Timeout: cfg.RemoteTimeout,
	}

	var events *amqp.Client
	if cfg.AMQPURL != "" {
		events, err = amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
			logger.WithComponent(log.ComponentAMQP).Slog())
		if err != nil {
			logger.Warn("AMQP unavailable, record events disabled", log.FieldError, err)
		} else {
			opts.Publisher = events
		}
	}

	ledger := services.NewLedgerService(result.Store, result.Mode, opts)
	srv := apphttp.NewServer(":"+cfg.Port, ledger, m.Handler(), logger)

	done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if events != nil {
			if err := events.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if err := result.Cleanup(); err != nil {
			logger.Warn("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting billease server",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		log.FieldMode, result.Mode,
		"local_store", cfg.LocalStore)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		_ = result.Cleanup()
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
}
