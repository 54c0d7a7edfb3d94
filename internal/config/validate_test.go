package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Sources["home"] = SourceConfig{URL: "http://panel.example", Username: "u", Password: "p"}
	cfg.ActiveSource = "home"

	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, Validate(validConfig()))
}

func TestValidate_Fields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"batch size zero", func(c *Config) { c.Sync.BatchSize = 0 }, "sync.batch_size"},
		{"flush threshold too large", func(c *Config) { c.Sync.FlushThreshold = 1_000_000 }, "sync.flush_threshold"},
		{"retry attempts zero", func(c *Config) { c.Sync.RetryAttempts = 0 }, "sync.retry_attempts"},
		{"sync timeout unparsable", func(c *Config) { c.Sync.SyncTimeout = "soon" }, "sync.sync_timeout"},
		{"sync timeout too short", func(c *Config) { c.Sync.SyncTimeout = "1s" }, "sync.sync_timeout"},
		{"fallback ttl zero", func(c *Config) { c.Sync.ContentFallbackTTL = "0s" }, "sync.content_fallback_ttl"},
		{"refresh too frequent", func(c *Config) { c.Sync.RefreshInterval = "10s" }, "sync.refresh_interval"},
		{"connect timeout", func(c *Config) { c.Network.ConnectTimeout = "100ms" }, "network.connect_timeout"},
		{"negative rps", func(c *Config) { c.Network.RequestsPerSecond = -1 }, "network.requests_per_second"},
		{"vpn without interfaces", func(c *Config) {
			c.Network.RequireVPN = true
			c.Network.VPNInterfaces = nil
		}, "network.vpn_interfaces"},
		{"log level", func(c *Config) { c.Logging.LogLevel = "loud" }, "logging.log_level"},
		{"log format", func(c *Config) { c.Logging.LogFormat = "xml" }, "logging.log_format"},
		{"db path", func(c *Config) { c.Storage.DBPath = " " }, "storage.db_path"},
		{"source url empty", func(c *Config) { c.Sources["home"] = SourceConfig{Username: "u"} }, "source.home.url"},
		{"source url scheme", func(c *Config) {
			c.Sources["home"] = SourceConfig{URL: "ftp://x.example", Username: "u"}
		}, "scheme must be http or https"},
		{"source url host", func(c *Config) {
			c.Sources["home"] = SourceConfig{URL: "http://", Username: "u"}
		}, "missing host"},
		{"source username", func(c *Config) {
			c.Sources["home"] = SourceConfig{URL: "http://x.example"}
		}, "source.home.username"},
		{"active source unknown", func(c *Config) { c.ActiveSource = "work" }, "active_source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_AccumulatesErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Sync.BatchSize = 0
	cfg.Logging.LogFormat = "xml"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync.batch_size")
	assert.Contains(t, err.Error(), "logging.log_format")
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}

	for in, want := range tests {
		got, err := ParseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLogLevel("trace")
	assert.Error(t, err)
}
