// Package config loads client configuration from file, environment and
// defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for a Client.
// Tags use mapstructure for Viper unmarshalling.
type Config struct {
	BaseURL     string        `mapstructure:"BASE_URL"`
	HTTPTimeout time.Duration `mapstructure:"HTTP_TIMEOUT"`

	// CookieNames overrides the canonical auth cookie precedence. Leave empty
	// for the default order.
	CookieNames []string `mapstructure:"COOKIE_NAMES"`

	// StorePath is where the file-backed credential store lives. Empty means
	// in-memory only.
	StorePath string `mapstructure:"STORE_PATH"`

	// TableCode scopes the session to a venue table; when set, bootstrap may
	// mint a guest token if nothing else resolves.
	TableCode string `mapstructure:"TABLE_CODE"`
	VenueID   string `mapstructure:"VENUE_ID"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`
}

// Load reads configuration from an optional config.yaml, DINETAP_*
// environment variables and defaults.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.dinetap")
	v.AddConfigPath(".")

	v.SetEnvPrefix("DINETAP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("BASE_URL", "https://api.dinetap.example.com")
	v.SetDefault("HTTP_TIMEOUT", 30*time.Second)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, we run on defaults and env.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the loaded configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("BASE_URL must not be empty")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("BASE_URL must be an http(s) URL, got %q", c.BaseURL)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("HTTP_TIMEOUT must not be negative")
	}
	return nil
}
