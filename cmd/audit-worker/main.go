package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"expensebot/internal/config"
	"expensebot/internal/events"
	"expensebot/internal/journal"
	applog "expensebot/internal/log"
)

// The audit worker consumes the expense event stream and mirrors every logged
// expense into a local SQLite journal.
func main() {
	_ = godotenv.Load()

	logger := applog.New(slog.LevelInfo, applog.ComponentWorker)
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	repo, err := journal.NewRepository(cfg.JournalDBPath, logger)
	if err != nil {
		logger.Error("initializing journal", applog.FieldError, err, applog.FieldPath, cfg.JournalDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("connecting to broker", applog.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("audit worker started",
		applog.FieldQueue, cfg.AMQPQueue, applog.FieldPath, cfg.JournalDBPath)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.ConsumeExpenseLogged(gctx, func(ev events.ExpenseLogged) error {
			_, err := repo.Record(gctx, ev)
			return err
		})
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("stopped")
}
