/**
 * @description
 * This package handles configuration management for the coach service. It uses
 * the Viper library to read configuration from environment variables (with an
 * optional .env file), providing defaults for schedules and policy knobs.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */
package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the coach service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort           string `mapstructure:"SERVER_PORT"`
	DatabaseURL          string `mapstructure:"DATABASE_URL"`
	TelegramBotToken     string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	GeminiAPIKey         string `mapstructure:"GEMINI_API_KEY"`
	PaymentWebhookSecret string `mapstructure:"PAYMENT_WEBHOOK_SECRET"`
	RabbitMQURL          string `mapstructure:"RABBITMQ_URL"`
	RedisURL             string `mapstructure:"REDIS_URL"`

	DefaultTimezone string `mapstructure:"DEFAULT_TIMEZONE"`

	// Tick schedules, standard cron syntax in the service-local timezone.
	ResetTickSchedule       string `mapstructure:"RESET_TICK_SCHEDULE"`
	FocusTickSchedule       string `mapstructure:"FOCUS_TICK_SCHEDULE"`
	SubmitTickSchedule      string `mapstructure:"SUBMIT_TICK_SCHEDULE"`
	CheckInTickSchedule     string `mapstructure:"CHECKIN_TICK_SCHEDULE"`
	LegacyCheckInSchedule   string `mapstructure:"LEGACY_CHECKIN_TICK_SCHEDULE"`
	MaintenanceJobSchedule  string `mapstructure:"MAINTENANCE_JOB_SCHEDULE"`
	SubscriptionEventsTopic string `mapstructure:"SUBSCRIPTION_EVENTS_EXCHANGE"`

	TrialWindowDays        int `mapstructure:"TRIAL_WINDOW_DAYS"`
	TrialDailyLimit        int `mapstructure:"TRIAL_DAILY_LIMIT"`
	BasicWeeklyLimit       int `mapstructure:"BASIC_WEEKLY_LIMIT"`
	SubscriptionPeriodDays int `mapstructure:"SUBSCRIPTION_PERIOD_DAYS"`
	UserRetentionDays      int `mapstructure:"USER_RETENTION_DAYS"`

	GenerateRateLimitPerMinute int    `mapstructure:"GENERATE_RATE_LIMIT_PER_MINUTE"`
	RateLimitPrefix            string `mapstructure:"RATE_LIMIT_PREFIX"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("DEFAULT_TIMEZONE", "UTC")
	viper.SetDefault("RESET_TICK_SCHEDULE", "0 0 * * *")
	viper.SetDefault("FOCUS_TICK_SCHEDULE", "0 8 * * *")
	viper.SetDefault("SUBMIT_TICK_SCHEDULE", "0 9 * * *")
	viper.SetDefault("CHECKIN_TICK_SCHEDULE", "0 15,18,21 * * *")
	viper.SetDefault("LEGACY_CHECKIN_TICK_SCHEDULE", "0 20 * * *")
	viper.SetDefault("MAINTENANCE_JOB_SCHEDULE", "30 0 * * *")
	viper.SetDefault("SUBSCRIPTION_EVENTS_EXCHANGE", "subscription_events")
	viper.SetDefault("TRIAL_WINDOW_DAYS", 14)
	viper.SetDefault("TRIAL_DAILY_LIMIT", 5)
	viper.SetDefault("BASIC_WEEKLY_LIMIT", 10)
	viper.SetDefault("SUBSCRIPTION_PERIOD_DAYS", 30)
	viper.SetDefault("USER_RETENTION_DAYS", 365)
	viper.SetDefault("GENERATE_RATE_LIMIT_PER_MINUTE", 5)
	viper.SetDefault("RATE_LIMIT_PREFIX", "focusly:rate_limit")

	// Bind environment variables explicitly to ensure they appear in Unmarshal.
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("TELEGRAM_BOT_TOKEN")
	_ = viper.BindEnv("GEMINI_API_KEY")
	_ = viper.BindEnv("PAYMENT_WEBHOOK_SECRET")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("DEFAULT_TIMEZONE")
	_ = viper.BindEnv("RESET_TICK_SCHEDULE")
	_ = viper.BindEnv("FOCUS_TICK_SCHEDULE")
	_ = viper.BindEnv("SUBMIT_TICK_SCHEDULE")
	_ = viper.BindEnv("CHECKIN_TICK_SCHEDULE")
	_ = viper.BindEnv("LEGACY_CHECKIN_TICK_SCHEDULE")
	_ = viper.BindEnv("MAINTENANCE_JOB_SCHEDULE")
	_ = viper.BindEnv("SUBSCRIPTION_EVENTS_EXCHANGE")
	_ = viper.BindEnv("TRIAL_WINDOW_DAYS")
	_ = viper.BindEnv("TRIAL_DAILY_LIMIT")
	_ = viper.BindEnv("BASIC_WEEKLY_LIMIT")
	_ = viper.BindEnv("SUBSCRIPTION_PERIOD_DAYS")
	_ = viper.BindEnv("USER_RETENTION_DAYS")
	_ = viper.BindEnv("GENERATE_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("RATE_LIMIT_PREFIX")

	// The .env file is optional; environment variables alone are fine.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Validate checks that the required settings for a production run are present.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.TelegramBotToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	if c.PaymentWebhookSecret == "" {
		return errors.New("PAYMENT_WEBHOOK_SECRET is required")
	}
	return nil
}
