// Package config loads chatline settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds every setting the CLI reads from the environment
type Config struct {
	APIURL            string        `env:"CHATLINE_API_URL" envDefault:"http://localhost:8000/api"`
	HTTPTimeout       time.Duration `env:"CHATLINE_HTTP_TIMEOUT" envDefault:"30s"`
	StreamTimeout     time.Duration `env:"CHATLINE_STREAM_TIMEOUT" envDefault:"0s"`
	SyncInterval      time.Duration `env:"CHATLINE_SYNC_INTERVAL" envDefault:"30s"`
	ExportDir         string        `env:"CHATLINE_EXPORT_DIR" envDefault:"./exports"`
	ShareExpiresHours int           `env:"CHATLINE_SHARE_EXPIRES_HOURS" envDefault:"24"`
}

// Load reads envFile, if any, into the process environment and parses the
// configuration. A missing default .env file is not an error; a missing
// explicitly named file is.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no command can work with
func (c *Config) Validate() error {
	switch {
	case c.APIURL == "":
		return errors.New("CHATLINE_API_URL must not be empty")
	case c.HTTPTimeout < 0:
		return errors.New("CHATLINE_HTTP_TIMEOUT must not be negative")
	case c.StreamTimeout < 0:
		return errors.New("CHATLINE_STREAM_TIMEOUT must not be negative")
	case c.SyncInterval <= 0:
		return errors.New("CHATLINE_SYNC_INTERVAL must be positive")
	case c.ShareExpiresHours < 0:
		return errors.New("CHATLINE_SHARE_EXPIRES_HOURS must not be negative")
	}
	return nil
}
