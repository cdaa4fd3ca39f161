// Command activity-log consumes movie events from RabbitMQ and appends
// them to an activity log file.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/iliyamo/top-movies/internal/config"
	"github.com/iliyamo/top-movies/internal/logging"
	"github.com/iliyamo/top-movies/internal/queue"
)

func main() {
	cfg := config.LoadActivityConfig()
	log := logging.New(cfg.LogLevel, cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &queue.ActivityConsumer{URL: cfg.AMQPURL, LogPath: cfg.LogPath, Logger: log.Named("activity")}
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("consumer stopped", "error", err)
		os.Exit(1)
	}
	log.Info("consumer stopped")
}
