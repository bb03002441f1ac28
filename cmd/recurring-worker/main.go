package main

import (
	"context"
	"time"

	"gagyebu/internal/amqp"
	"gagyebu/internal/cli"
	"gagyebu/internal/log"
	"gagyebu/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentGeneration)

	logger.Info("Starting recurring-worker")

	res := cli.OpenStore(context.Background(), logger, cfg)

	// Generated transactions reach the sync worker through the same events
	// as manual ones.
	var publisher services.EventPublisher
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err.Error())
		} else {
			publisher = client
		}
	}

	transactions := services.NewTransactionService(res.Store, publisher)
	generator := services.NewGenerationCoordinator(res.Store, transactions, cfg.GenerationConcurrency)
	scheduler := services.NewScheduler(generator, cfg.GenerationInterval)

	logger.Info("Recurring generation configured",
		"interval", cfg.GenerationInterval,
		"concurrency", cfg.GenerationConcurrency,
		"backend", cfg.DataBackend)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		logger.Info("Shutting down recurring-worker...")
	})

	// Run returns once ctx is cancelled; an in-flight batch finishes first.
	scheduler.Run(ctx)

	cli.WaitForShutdown(ctx, done)
	if err := transactions.Close(); err != nil {
		logger.Error("Failed to close resources", log.FieldError, err.Error())
	}
	logger.Info("Recurring-worker shutdown complete")
}
