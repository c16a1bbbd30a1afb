package config

import "github.com/postwatch/postwatch/errors"

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return errors.Newf("server.port must be positive, got %d", c.Server.Port)
	}

	if c.Server.ShutdownGraceSeconds < 0 {
		return errors.Newf("server.shutdown_grace_seconds must be >= 0, got %d", c.Server.ShutdownGraceSeconds)
	}

	if c.Legacy.BatchSize <= 0 {
		return errors.Newf("legacy.batch_size must be positive, got %d", c.Legacy.BatchSize)
	}

	// 0 = unthrottled, negative makes no sense
	if c.Legacy.RatePerSec < 0 {
		return errors.Newf("legacy.rate_per_sec must be >= 0, got %f", c.Legacy.RatePerSec)
	}

	return nil
}
