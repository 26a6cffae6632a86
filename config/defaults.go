package config

import "github.com/spf13/viper"

// SetDefaults registers default values for all configuration keys.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "jobrake.db")

	v.SetDefault("server.port", 8710)

	v.SetDefault("engine.workers", 2)
	v.SetDefault("engine.poll_interval_seconds", 2)
	v.SetDefault("engine.ticker_interval_seconds", 1)
	v.SetDefault("engine.heartbeat_interval_seconds", 15)
	v.SetDefault("engine.task_retention_hours", 168)

	v.SetDefault("scrape.default_quality_threshold", 0.75)
	v.SetDefault("scrape.default_retry_attempts", 3)
	v.SetDefault("scrape.retry_base_delay_ms", 500)
	v.SetDefault("scrape.default_timeout_seconds", 30)
}
