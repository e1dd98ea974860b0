package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"expensebot/internal/bot"
	"expensebot/internal/config"
	"expensebot/internal/events"
	applog "expensebot/internal/log"
	"expensebot/internal/registry"
	"expensebot/internal/services"
	"expensebot/internal/sheets/google"
)

func main() {
	// Load .env for local development; ignore errors in production.
	_ = godotenv.Load()

	logger := applog.New(slog.LevelInfo, applog.ComponentApp)
	applog.SetDefault(logger)

	cfg := config.Load()
	if cfg.DiscordToken == "" {
		logger.Error("DISCORD_TOKEN not found in environment")
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	creds, err := cfg.CredentialsJSON()
	if err != nil {
		logger.Error("assembling Google credentials", applog.FieldError, err)
		os.Exit(1)
	}
	sheetsSvc, err := google.New(ctx, creds, logger)
	if err != nil {
		logger.Error("initializing Google Sheets client", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "service_account", cfg.GoogleClientEmail)

	store := registry.Open(cfg.ConfigFilePath, logger)
	logger.Info("user registry loaded", applog.FieldPath, cfg.ConfigFilePath, "users", store.Size())

	// The event stream is optional; a missing broker must not keep the bot
	// from serving users.
	var publisher bot.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("event stream disabled", applog.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
			logger.Info("event stream enabled",
				applog.FieldExchange, cfg.AMQPExchange, applog.FieldQueue, cfg.AMQPQueue)
		}
	}

	prov := services.NewProvisioner(sheetsSvc, store, logger)
	router := bot.NewRouter(store, sheetsSvc, prov, publisher, cfg.SummaryRecentLimit, logger)

	discord, err := bot.NewDiscord(cfg.DiscordToken, router, logger)
	if err != nil {
		logger.Error("initializing Discord session", applog.FieldError, err)
		os.Exit(1)
	}

	logger.Info("starting expensebot")
	if err := discord.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("gateway connection failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("stopped")
}
