package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env   string      `yaml:"env"`
	HTTP  HTTPConfig  `yaml:"http"`
	Log   LogConfig   `yaml:"log"`
	Redis RedisConfig `yaml:"redis"`
	Bot   BotConfig   `yaml:"bot"`
	Relay RelayConfig `yaml:"relay"`
}

type HTTPConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type BotConfig struct {
	Token         string `yaml:"token"`
	SupergroupID  int64  `yaml:"supergroup_id"`
	APIBase       string `yaml:"api_base"`
	WebhookSecret string `yaml:"webhook_secret"`
}

type RelayConfig struct {
	ChallengeTTL time.Duration `yaml:"challenge_ttl"`
	VerifiedTTL  time.Duration `yaml:"verified_ttl"`
	QuietPeriod  time.Duration `yaml:"quiet_period"`
	BatchTTL     time.Duration `yaml:"batch_ttl"`
	SweepEvery   time.Duration `yaml:"sweep_every"`
}

func Default() Config {
	return Config{
		Env: "dev",
		HTTP: HTTPConfig{
			Addr:         ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  30 * time.Second,
		},
		Log: LogConfig{Level: "debug"},
		Redis: RedisConfig{
			Addr: "localhost:6379",
			DB:   0,
		},
		Bot: BotConfig{
			Token:   "",
			APIBase: "https://api.telegram.org",
		},
		Relay: RelayConfig{
			ChallengeTTL: 5 * time.Minute,
			VerifiedTTL:  30 * 24 * time.Hour,
			QuietPeriod:  2 * time.Second,
			BatchTTL:     60 * time.Second,
			SweepEvery:   30 * time.Second,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromYAML(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate enforces the settings the bot cannot run without. Each failure is
// a boot-time error, never discovered mid-request.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Bot.Token) == "" {
		return errors.New("bot token is required (BOT_TOKEN)")
	}
	if c.Bot.SupergroupID == 0 {
		return errors.New("supergroup id is required (SUPERGROUP_ID)")
	}
	if !strings.HasPrefix(strconv.FormatInt(c.Bot.SupergroupID, 10), "-100") {
		return fmt.Errorf("supergroup id %d is not a -100-prefixed supergroup id", c.Bot.SupergroupID)
	}
	if strings.TrimSpace(c.Redis.Addr) == "" {
		return errors.New("redis addr is required (REDIS_ADDR)")
	}
	return nil
}

func loadFromYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("unmarshal config yaml: %w", err)
	}

	return nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Env = v
	}

	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if err := overrideDuration("HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return err
	}
	if err := overrideDuration("HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return err
	}
	if err := overrideDuration("HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return err
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if err := overrideInt("REDIS_DB", &cfg.Redis.DB); err != nil {
		return err
	}

	if v := os.Getenv("BOT_TOKEN"); v != "" {
		cfg.Bot.Token = v
	}
	if err := overrideInt64("SUPERGROUP_ID", &cfg.Bot.SupergroupID); err != nil {
		return err
	}
	if v := os.Getenv("API_BASE"); v != "" {
		cfg.Bot.APIBase = v
	}
	if v := os.Getenv("WEBHOOK_SECRET"); v != "" {
		cfg.Bot.WebhookSecret = v
	}

	if err := overrideDuration("CHALLENGE_TTL", &cfg.Relay.ChallengeTTL); err != nil {
		return err
	}
	if err := overrideDuration("VERIFIED_TTL", &cfg.Relay.VerifiedTTL); err != nil {
		return err
	}
	if err := overrideDuration("MEDIA_QUIET_PERIOD", &cfg.Relay.QuietPeriod); err != nil {
		return err
	}
	if err := overrideDuration("MEDIA_BATCH_TTL", &cfg.Relay.BatchTTL); err != nil {
		return err
	}
	if err := overrideDuration("BATCH_SWEEP_EVERY", &cfg.Relay.SweepEvery); err != nil {
		return err
	}

	return nil
}

func overrideDuration(key string, target *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("parse %s duration: %w", key, err)
	}
	*target = d
	return nil
}

func overrideInt(key string, target *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("parse %s int: %w", key, err)
	}
	*target = n
	return nil
}

func overrideInt64(key string, target *int64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s int64: %w", key, err)
	}
	*target = n
	return nil
}
