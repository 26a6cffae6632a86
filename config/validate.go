package config

import "github.com/jobrake/jobrake/errors"

// Validate checks the configuration for values that would break the daemon.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.NewInvalidConfig("database.path must not be empty")
	}
	if c.Engine.Workers < 1 {
		return errors.NewInvalidConfig("engine.workers must be at least 1, got %d", c.Engine.Workers)
	}
	if c.Engine.PollIntervalSeconds < 1 {
		return errors.NewInvalidConfig("engine.poll_interval_seconds must be at least 1")
	}
	if c.Scrape.DefaultQualityThreshold < 0 || c.Scrape.DefaultQualityThreshold > 1 {
		return errors.NewInvalidConfig("scrape.default_quality_threshold must be in [0,1], got %v",
			c.Scrape.DefaultQualityThreshold)
	}
	if c.Scrape.DefaultRetryAttempts < 0 {
		return errors.NewInvalidConfig("scrape.default_retry_attempts must not be negative")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.NewInvalidConfig("server.port must be a valid port, got %d", c.Server.Port)
	}
	return nil
}
