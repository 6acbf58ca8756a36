package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadUsesDefaultsAndYAMLOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("BOT_TOKEN", "123456:test-token")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
http:
  addr: ":9090"
bot:
  supergroup_id: -1001234567890
  webhook_secret: hush
relay:
  challenge_ttl: 10m
  quiet_period: 3s
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("unexpected http addr: %s", cfg.HTTP.Addr)
	}
	if cfg.Bot.SupergroupID != -1001234567890 {
		t.Fatalf("unexpected supergroup id: %d", cfg.Bot.SupergroupID)
	}
	if cfg.Bot.WebhookSecret != "hush" {
		t.Fatalf("unexpected webhook secret: %s", cfg.Bot.WebhookSecret)
	}
	if cfg.Relay.ChallengeTTL != 10*time.Minute {
		t.Fatalf("unexpected challenge ttl: %s", cfg.Relay.ChallengeTTL)
	}
	if cfg.Relay.QuietPeriod != 3*time.Second {
		t.Fatalf("unexpected quiet period: %s", cfg.Relay.QuietPeriod)
	}

	if cfg.Relay.VerifiedTTL != 30*24*time.Hour {
		t.Fatalf("verified ttl default should stay 720h, got %s", cfg.Relay.VerifiedTTL)
	}
	if cfg.Relay.BatchTTL != 60*time.Second {
		t.Fatalf("batch ttl default should stay 60s, got %s", cfg.Relay.BatchTTL)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("redis addr default should stay, got %s", cfg.Redis.Addr)
	}
	if cfg.Bot.APIBase != "https://api.telegram.org" {
		t.Fatalf("api base default should stay, got %s", cfg.Bot.APIBase)
	}
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("BOT_TOKEN", "123456:test-token")
	t.Setenv("SUPERGROUP_ID", "-1009876543210")
	t.Setenv("REDIS_ADDR", "redis-prod:6379")
	t.Setenv("VERIFIED_TTL", "240h")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
bot:
  supergroup_id: -1001234567890
redis:
  addr: "redis-dev:6379"
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Bot.SupergroupID != -1009876543210 {
		t.Fatalf("env should override yaml supergroup id, got %d", cfg.Bot.SupergroupID)
	}
	if cfg.Redis.Addr != "redis-prod:6379" {
		t.Fatalf("env should override yaml redis addr, got %s", cfg.Redis.Addr)
	}
	if cfg.Relay.VerifiedTTL != 240*time.Hour {
		t.Fatalf("unexpected verified ttl: %s", cfg.Relay.VerifiedTTL)
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("BOT_TOKEN", "123456:test-token")
	t.Setenv("SUPERGROUP_ID", "-1001234567890")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config with missing file: %v", err)
	}

	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("unexpected default http addr: %s", cfg.HTTP.Addr)
	}
	if cfg.Relay.ChallengeTTL != 5*time.Minute {
		t.Fatalf("unexpected default challenge ttl: %s", cfg.Relay.ChallengeTTL)
	}
	if cfg.Relay.QuietPeriod != 2*time.Second {
		t.Fatalf("unexpected default quiet period: %s", cfg.Relay.QuietPeriod)
	}
	if cfg.Relay.SweepEvery != 30*time.Second {
		t.Fatalf("unexpected default sweep interval: %s", cfg.Relay.SweepEvery)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("unexpected default log level: %s", cfg.Log.Level)
	}
}

func TestLoadRejectsMissingBotToken(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("SUPERGROUP_ID", "-1001234567890")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error when bot token is empty")
	}
}

func TestLoadRejectsNonSupergroupID(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("BOT_TOKEN", "123456:test-token")
	t.Setenv("SUPERGROUP_ID", "12345")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for a chat id without the -100 prefix")
	}
}

func TestLoadRejectsMissingSupergroupID(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("BOT_TOKEN", "123456:test-token")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error when supergroup id is missing")
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV",
		"HTTP_ADDR",
		"HTTP_READ_TIMEOUT",
		"HTTP_WRITE_TIMEOUT",
		"HTTP_IDLE_TIMEOUT",
		"LOG_LEVEL",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"BOT_TOKEN",
		"SUPERGROUP_ID",
		"API_BASE",
		"WEBHOOK_SECRET",
		"CHALLENGE_TTL",
		"VERIFIED_TTL",
		"MEDIA_QUIET_PERIOD",
		"MEDIA_BATCH_TTL",
		"BATCH_SWEEP_EVERY",
	} {
		t.Setenv(key, "")
	}
}
