package main

import (
	"os"
	"time"

	"salesboard/internal/amqp"
	"salesboard/internal/cli"
	"salesboard/internal/log"
	"salesboard/internal/worker"
)

const reconnectDelay = 5 * time.Second

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentWorker)
	logger.Info("Starting salesboard-worker")

	if cfg.HistoryDBPath == "" || cfg.AMQPURL == "" {
		logger.Error("The worker needs both HISTORY_DB_PATH and AMQP_URL")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.HistoryDBPath)
	defer repo.Close()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	historyWorker := worker.NewHistoryWorker(repo, logger)

	// Consume until shutdown; a closed delivery channel means the broker
	// dropped us, so reconnect after a pause.
	for ctx.Err() == nil {
		err := client.ConsumeDatasetLoaded(ctx, historyWorker.HandleDatasetLoaded)
		if ctx.Err() != nil {
			break
		}
		logger.Error("Message consumption failed", log.FieldError, err)

		select {
		case <-ctx.Done():
		case <-time.After(reconnectDelay):
			logger.Info("Reconnecting to AMQP")
		}
	}

	logger.Info("Worker shutdown complete")
}
