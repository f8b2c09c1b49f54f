// config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is loaded from the environment once at startup. Live provider and
// archive settings are optional; leaving them empty disables the matching
// worker.
type Config struct {
	DatabaseURL    string `envconfig:"DATABASE_URL" required:"true"`
	Port           int    `envconfig:"PORT" default:"5300"`
	ServiceToken   string `envconfig:"SERVICE_TOKEN" required:"true"`
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`

	LiveProviderBaseURL      string        `envconfig:"LIVE_PROVIDER_BASE_URL" default:"https://api.twitch.tv/helix"`
	LiveProviderTokenURL     string        `envconfig:"LIVE_PROVIDER_TOKEN_URL" default:"https://id.twitch.tv/oauth2/token"`
	LiveProviderClientID     string        `envconfig:"LIVE_PROVIDER_CLIENT_ID"`
	LiveProviderClientSecret string        `envconfig:"LIVE_PROVIDER_CLIENT_SECRET"`
	LiveXPPerHour            int64         `envconfig:"LIVE_XP_PER_HOUR" default:"50"`
	LiveSweepInterval        time.Duration `envconfig:"LIVE_SWEEP_INTERVAL" default:"15m"`

	ArchiveAccountID       string `envconfig:"ARCHIVE_ACCOUNT_ID"`
	ArchiveAccessKeyID     string `envconfig:"ARCHIVE_ACCESS_KEY_ID"`
	ArchiveAccessKeySecret string `envconfig:"ARCHIVE_ACCESS_KEY_SECRET"`
	ArchiveBucket          string `envconfig:"ARCHIVE_BUCKET"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if c.LiveSweepInterval < time.Minute {
		return fmt.Errorf("LIVE_SWEEP_INTERVAL must be at least 1m, got %s", c.LiveSweepInterval)
	}
	return nil
}

// ArchiveEnabled reports whether all R2 archive settings are present.
func (c *Config) ArchiveEnabled() bool {
	return c.ArchiveAccountID != "" && c.ArchiveAccessKeyID != "" &&
		c.ArchiveAccessKeySecret != "" && c.ArchiveBucket != ""
}
