/**
 * @description
 * This is the main entry point for the coach service. It wires together the
 * configuration, database pool, Telegram bot, AI client, optional broker and
 * rate limiter, the payment webhook server, and the cron scheduler, then
 * runs until a termination signal arrives.
 */
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/focusly/coach-service/internal/api"
	"github.com/focusly/coach-service/internal/app"
	"github.com/focusly/coach-service/internal/bot"
	"github.com/focusly/coach-service/internal/config"
	"github.com/focusly/coach-service/internal/store"
	"github.com/focusly/coach-service/pkg/aiclient"
	"github.com/focusly/coach-service/pkg/rabbitmq"
	"github.com/focusly/coach-service/pkg/ratelimit"
)

func main() {
	_ = godotenv.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	defaultTZ, err := time.LoadLocation(cfg.DefaultTimezone)
	if err != nil {
		logger.Error("invalid default timezone", "timezone", cfg.DefaultTimezone, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	dbpool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()

	if err := store.Migrate(ctx, dbpool); err != nil {
		logger.Error("schema migration failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database connection established")

	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		logger.Error("failed to create Telegram bot", "error", err)
		os.Exit(1)
	}
	logger.Info("telegram bot authorized", "username", botAPI.Self.UserName)

	ai, err := aiclient.New(ctx, cfg.GeminiAPIKey, logger)
	if err != nil {
		logger.Error("failed to create AI client", "error", err)
		os.Exit(1)
	}
	defer ai.Close()

	var publisher app.EventPublisher
	if cfg.RabbitMQURL != "" {
		producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Error("failed to connect to RabbitMQ, continuing without events", "error", err)
		} else {
			defer producer.Close()
			publisher = producer
		}
	}

	var limiter *ratelimit.Limiter
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("failed to parse Redis URL, continuing without rate limiting", "error", err)
		} else {
			limiter = ratelimit.NewLimiter(redis.NewClient(opts), cfg.RateLimitPrefix)
		}
	}

	// Assemble the application layer.
	users := store.NewUserRepository(dbpool)
	checklists := store.NewChecklistRepository(dbpool)
	channel := bot.NewChannel(botAPI)

	policy := app.NewAccessPolicy(cfg.TrialWindowDays, cfg.TrialDailyLimit, cfg.BasicWeeklyLimit, defaultTZ)
	lifecycle := app.NewChecklistLifecycle(users, checklists, policy, ai, defaultTZ, logger)
	dispatcher := app.NewDispatcher(channel, logger)
	subscriptions := app.NewSubscriptionService(users, channel, publisher, cfg.SubscriptionEventsTopic, cfg.SubscriptionPeriodDays, logger)
	jobs := app.NewJobs(users, checklists, lifecycle, dispatcher, publisher, cfg.SubscriptionEventsTopic, cfg.UserRetentionDays, logger)
	scheduler := app.NewScheduler(jobs, logger, cfg, defaultTZ)

	webhook := api.NewPaymentWebhookHandler(subscriptions, cfg.PaymentWebhookSecret, logger)
	router := api.NewRouter(webhook)

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}
	go func() {
		logger.Info("webhook server listening", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("webhook server failed", "error", err)
			os.Exit(1)
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	handler := bot.NewHandler(botAPI, users, checklists, lifecycle, policy, limiter, cfg.GenerateRateLimitPerMinute, logger)
	go handler.Run(runCtx)

	scheduler.Start()
	logger.Info("scheduler started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutdown signal received")
	cancel()

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("webhook server shutdown failed", "error", err)
	}
	logger.Info("service stopped gracefully")
}
