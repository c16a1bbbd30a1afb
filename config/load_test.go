package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postwatch.db", cfg.Database.Path)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, 200, cfg.Legacy.BatchSize)
	assert.False(t, cfg.Log.JSON)
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "postwatch.toml")

	content := `
[database]
path = "/var/lib/postwatch/ledger.db"

[server]
port = 9000

[legacy]
dsn = "scraper:secret@tcp(db.internal:3306)/jobs"
batch_size = 50
rate_per_sec = 25.0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/postwatch/ledger.db", cfg.Database.Path)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "scraper:secret@tcp(db.internal:3306)/jobs", cfg.Legacy.DSN)
	assert.Equal(t, 50, cfg.Legacy.BatchSize)
	assert.Equal(t, 25.0, cfg.Legacy.RatePerSec)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"negative port", func(c *Config) { c.Server.Port = -1 }},
		{"zero batch size", func(c *Config) { c.Legacy.BatchSize = 0 }},
		{"negative rate", func(c *Config) { c.Legacy.RatePerSec = -1 }},
		{"negative grace", func(c *Config) { c.Server.ShutdownGraceSeconds = -5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Server: ServerConfig{Port: DefaultServerPort},
				Legacy: LegacyConfig{BatchSize: 200},
			}
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
