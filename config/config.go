// Package config loads and validates the jobrake configuration.
package config

import "time"

// Config represents the core jobrake configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Scrape   ScrapeConfig   `mapstructure:"scrape"`
}

// DatabaseConfig configures the SQLite database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig configures the jobrake HTTP API server
type ServerConfig struct {
	Port int `mapstructure:"port"` // default 8710
}

// EngineConfig configures the task queue workers, scheduler, and heartbeat
type EngineConfig struct {
	// Worker concurrency configuration
	Workers int `mapstructure:"workers"` // concurrent task workers (default: 2)

	// How often workers poll for queued tasks
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds"` // default: 2

	// Ticker configuration for scheduled scrape execution
	TickerIntervalSeconds int `mapstructure:"ticker_interval_seconds"` // default: 1

	// Heartbeat interval for the engine state record
	HeartbeatIntervalSeconds int `mapstructure:"heartbeat_interval_seconds"` // default: 15

	// Completed/failed tasks older than this are pruned by the daemon
	TaskRetentionHours int `mapstructure:"task_retention_hours"` // default: 168 (7 days)
}

// ScrapeConfig configures fetch and publish behavior shared across boards.
// Per-board settings (timeout, retries, threshold) override these.
type ScrapeConfig struct {
	DefaultQualityThreshold float64 `mapstructure:"default_quality_threshold"` // default: 0.75
	DefaultRetryAttempts    int     `mapstructure:"default_retry_attempts"`    // default: 3
	RetryBaseDelayMS        int     `mapstructure:"retry_base_delay_ms"`       // default: 500
	DefaultTimeoutSeconds   int     `mapstructure:"default_timeout_seconds"`   // default: 30
}

// PollInterval returns the worker poll interval as a duration.
func (e EngineConfig) PollInterval() time.Duration {
	return time.Duration(e.PollIntervalSeconds) * time.Second
}

// TickerInterval returns the scheduler tick interval as a duration.
func (e EngineConfig) TickerInterval() time.Duration {
	return time.Duration(e.TickerIntervalSeconds) * time.Second
}

// HeartbeatInterval returns the engine heartbeat interval as a duration.
func (e EngineConfig) HeartbeatInterval() time.Duration {
	return time.Duration(e.HeartbeatIntervalSeconds) * time.Second
}

// RetryBaseDelay returns the base backoff delay as a duration.
func (s ScrapeConfig) RetryBaseDelay() time.Duration {
	return time.Duration(s.RetryBaseDelayMS) * time.Millisecond
}
