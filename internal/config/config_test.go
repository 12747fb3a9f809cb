package config

import (
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.ServerPort != "8080" {
		t.Errorf("expected default server port 8080, got %q", cfg.ServerPort)
	}
	if cfg.TrialWindowDays != 14 {
		t.Errorf("expected 14-day trial window, got %d", cfg.TrialWindowDays)
	}
	if cfg.TrialDailyLimit != 5 {
		t.Errorf("expected trial daily limit 5, got %d", cfg.TrialDailyLimit)
	}
	if cfg.BasicWeeklyLimit != 10 {
		t.Errorf("expected basic weekly limit 10, got %d", cfg.BasicWeeklyLimit)
	}
	if cfg.CheckInTickSchedule != "0 15,18,21 * * *" {
		t.Errorf("unexpected check-in tick schedule %q", cfg.CheckInTickSchedule)
	}
	if cfg.SubscriptionPeriodDays != 30 {
		t.Errorf("expected 30-day subscription period, got %d", cfg.SubscriptionPeriodDays)
	}
}

func TestLoadConfigReadsEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DEFAULT_TIMEZONE", "Africa/Lagos")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.ServerPort != "9090" {
		t.Errorf("expected SERVER_PORT from env, got %q", cfg.ServerPort)
	}
	if cfg.DefaultTimezone != "Africa/Lagos" {
		t.Errorf("expected DEFAULT_TIMEZONE from env, got %q", cfg.DefaultTimezone)
	}
}

func TestValidateRequiresCoreSettings(t *testing.T) {
	cfg := Config{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for empty config")
	}

	cfg.DatabaseURL = "postgres://localhost/focusly"
	cfg.TelegramBotToken = "token"
	cfg.PaymentWebhookSecret = "secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}
