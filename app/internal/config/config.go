package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is read from the environment at process start. Every quota knob is
// overridable so container restarts with new values take effect without code
// changes.
type Config struct {
	IsDev   bool `env:"IS_DEV" env-default:"false"`
	IsDebug bool `env:"IS_DEBUG" env-default:"false"`

	HTTP struct {
		Port int `env:"PORT" env-default:"8080"`
	}

	Quota struct {
		// DailyLimit and DeleteCost default to the provider's published
		// tariff: 10,000 units per day, 50 units per comment deletion.
		DailyLimit            int64 `env:"QUOTA_DAILY_LIMIT" env-default:"10000"`
		PerMinuteLimit        int64 `env:"QUOTA_PER_MINUTE_LIMIT" env-default:"1600"`
		SessionPerMinuteLimit int64 `env:"QUOTA_SESSION_PER_MINUTE_LIMIT" env-default:"400"`
		ReserveChunk          int64 `env:"QUOTA_RESERVE_CHUNK" env-default:"1000"`
		MaxParallelDeletes    int   `env:"QUOTA_MAX_PARALLEL_DELETES" env-default:"4"`
		DeleteCost            int64 `env:"QUOTA_DELETE_COST" env-default:"50"`
		ListCost              int64 `env:"QUOTA_LIST_COST" env-default:"1"`
		PageSize              int64 `env:"QUOTA_PAGE_SIZE" env-default:"100"`
	}

	Sweep struct {
		PresenceTimeout     time.Duration `env:"SWEEP_PRESENCE_TIMEOUT" env-default:"10m"`
		PresenceInterval    time.Duration `env:"SWEEP_PRESENCE_INTERVAL" env-default:"1m"`
		ReservationTimeout  time.Duration `env:"SWEEP_RESERVATION_TIMEOUT" env-default:"5m"`
		ReservationInterval time.Duration `env:"SWEEP_RESERVATION_INTERVAL" env-default:"30s"`
	}

	Ledger struct {
		Type      string `env:"LEDGER_STORE" env-default:"sqlite"`
		SQLiteDSN string `env:"LEDGER_SQLITE_DSN" env-default:"data/quota.db"`
	}
}

// Load reads environment variables into a fresh Config. Unlike a singleton,
// each call returns an independent instance so tests can build services with
// different settings.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		helpText := "Environment variables error:"
		if help, helpErr := cleanenv.GetDescription(cfg, &helpText); helpErr == nil {
			return nil, fmt.Errorf("read environment: %w\n%s", err, help)
		}
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the quota engine cannot operate with.
func (c *Config) Validate() error {
	if c.Quota.DailyLimit <= 0 {
		return fmt.Errorf("config: QUOTA_DAILY_LIMIT must be positive, got %d", c.Quota.DailyLimit)
	}
	if c.Quota.ReserveChunk <= 0 {
		return fmt.Errorf("config: QUOTA_RESERVE_CHUNK must be positive, got %d", c.Quota.ReserveChunk)
	}
	if c.Quota.MaxParallelDeletes <= 0 {
		return fmt.Errorf("config: QUOTA_MAX_PARALLEL_DELETES must be positive, got %d", c.Quota.MaxParallelDeletes)
	}
	if c.Quota.DeleteCost <= 0 {
		return fmt.Errorf("config: QUOTA_DELETE_COST must be positive, got %d", c.Quota.DeleteCost)
	}
	if c.Quota.PageSize <= 0 {
		return fmt.Errorf("config: QUOTA_PAGE_SIZE must be positive, got %d", c.Quota.PageSize)
	}
	return nil
}
