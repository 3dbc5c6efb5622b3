// Package config loads client settings from CMA_* environment variables.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Prefix is the environment variable prefix, e.g. CMA_BASE_URL.
const Prefix = "CMA"

// Config holds the client settings that can come from the environment.
type Config struct {
	BaseURL     string        `envconfig:"BASE_URL" default:"https://api.contentful.com"`
	AccessToken string        `envconfig:"ACCESS_TOKEN"`
	SpaceID     string        `envconfig:"SPACE_ID"`
	Environment string        `envconfig:"ENVIRONMENT" default:"master"`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`
	Debug       bool          `envconfig:"DEBUG" default:"false"`

	// Async mutation queue
	QueueShards      int `envconfig:"QUEUE_SHARDS" default:"4"`
	QueueSize        int `envconfig:"QUEUE_SIZE" default:"1000"`
	QueueMaxAttempts int `envconfig:"QUEUE_MAX_ATTEMPTS" default:"1"`

	// Asset processing poll
	AssetProcessTimeout time.Duration `envconfig:"ASSET_PROCESS_TIMEOUT" default:"60s"`
	AssetPollInterval   time.Duration `envconfig:"ASSET_POLL_INTERVAL" default:"500ms"`
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid BASE_URL: %q", c.BaseURL)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be > 0, got %s", c.HTTPTimeout)
	}
	if c.QueueShards <= 0 || c.QueueSize <= 0 {
		return fmt.Errorf("QUEUE_SHARDS and QUEUE_SIZE must be > 0, got %d/%d", c.QueueShards, c.QueueSize)
	}
	if c.QueueMaxAttempts < 1 {
		return fmt.Errorf("QUEUE_MAX_ATTEMPTS must be >= 1, got %d", c.QueueMaxAttempts)
	}
	if c.AssetProcessTimeout <= 0 || c.AssetPollInterval <= 0 {
		return fmt.Errorf("asset processing timeout and poll interval must be > 0")
	}
	return nil
}

// New parses CMA_* environment variables.
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Debug().
		Str("base_url", cfg.BaseURL).
		Str("space", cfg.SpaceID).
		Str("environment", cfg.Environment).
		Bool("token_present", cfg.AccessToken != "").
		Dur("http_timeout", cfg.HTTPTimeout).
		Int("queue_shards", cfg.QueueShards).
		Int("queue_max_attempts", cfg.QueueMaxAttempts).
		Msg("Configuration loaded")

	return &cfg, nil
}
