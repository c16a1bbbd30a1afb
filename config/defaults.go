package config

import "github.com/spf13/viper"

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "postwatch.db")

	// Server defaults
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost",
		"http://127.0.0.1",
	})
	v.SetDefault("server.shutdown_grace_seconds", 15)

	// Legacy migration defaults
	v.SetDefault("legacy.batch_size", 200)
	v.SetDefault("legacy.rate_per_sec", 0.0) // unlimited unless throttled

	// Logging defaults
	v.SetDefault("log.json", false)
}
