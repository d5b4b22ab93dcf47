// Package spapi talks to the Amazon Selling Partner API: LWA token
// handling, SQP report creation, polling, and document download.
package spapi

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	sqperrors "sqptrack/internal/errors"
	"sqptrack/internal/paths"
)

// Config is the SP-API subsystem configuration, kept in
// .sqptrack/spapi.toml separate from tracker thresholds.
type Config struct {
	Endpoint            string `toml:"endpoint"`
	MarketplaceID       string `toml:"marketplace_id"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	PollTimeoutMinutes  int    `toml:"poll_timeout_minutes"`
}

// DefaultConfig returns the North America endpoint and the US
// marketplace with the polling cadence SQP reports need (they take
// 30-60 minutes to generate).
func DefaultConfig() *Config {
	return &Config{
		Endpoint:            "https://sellingpartnerapi-na.amazon.com",
		MarketplaceID:       "ATVPDKIKX0DER",
		PollIntervalSeconds: 30,
		PollTimeoutMinutes:  60,
	}
}

// LoadConfig reads .sqptrack/spapi.toml, falling back to defaults when
// the file does not exist.
func LoadConfig(root string) (*Config, error) {
	path := paths.SpapiConfigPath(root)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	config := DefaultConfig()
	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, sqperrors.NewSqpError(
			sqperrors.ConfigError,
			fmt.Sprintf("cannot parse %s", path),
			err, nil,
		)
	}
	if config.Endpoint == "" {
		return nil, sqperrors.NewSqpError(
			sqperrors.ConfigError,
			"spapi.toml: endpoint must not be empty",
			nil, nil,
		)
	}
	return config, nil
}

// Save writes the configuration to .sqptrack/spapi.toml
func (c *Config) Save(root string) error {
	if err := paths.EnsureStateDir(root); err != nil {
		return err
	}
	f, err := os.Create(paths.SpapiConfigPath(root))
	if err != nil {
		return fmt.Errorf("failed to create spapi config: %w", err)
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(c)
}

// PollInterval is the wait between report status checks
func (c *Config) PollInterval() time.Duration {
	if c.PollIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// PollTimeout caps how long a report poll may run
func (c *Config) PollTimeout() time.Duration {
	if c.PollTimeoutMinutes <= 0 {
		return 60 * time.Minute
	}
	return time.Duration(c.PollTimeoutMinutes) * time.Minute
}
