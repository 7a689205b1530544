package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
// All values are fixed for the process lifetime.
type Config struct {
	BotToken         string `envconfig:"BOT_TOKEN" required:"true"`
	DBPath           string `envconfig:"DB_PATH" default:"./data/calendar.db"`
	DefaultTZ        string `envconfig:"DEFAULT_TZ" default:"UTC"`
	ReminderInterval int    `envconfig:"REMINDER_INTERVAL" default:"30"` // seconds between dispatch sweeps
	LogLevel         string `envconfig:"LOG_LEVEL" default:"info"`       // debug|info|warn|error
	HTTPAddr         string `envconfig:"HTTP_ADDR" default:":8080"`      // healthz/stats
}

// Load reads environment variables into Config and validates them.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	if cfg.ReminderInterval <= 0 {
		return cfg, fmt.Errorf("REMINDER_INTERVAL must be positive, got %d", cfg.ReminderInterval)
	}
	if _, err := time.LoadLocation(cfg.DefaultTZ); err != nil {
		return cfg, fmt.Errorf("DEFAULT_TZ: %w", err)
	}
	return cfg, nil
}

// Interval returns the dispatch interval as a duration.
func (c Config) Interval() time.Duration {
	return time.Duration(c.ReminderInterval) * time.Second
}
