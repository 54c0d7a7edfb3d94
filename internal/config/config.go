// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for iptv-sync. Values resolve through
// defaults -> config file -> environment -> CLI flags.
package config

import "time"

// Config is the top-level configuration structure parsed from a TOML file.
// Sources are keyed by a user-chosen name; active_source picks the one that
// sync operates on.
type Config struct {
	ActiveSource string                  `toml:"active_source"`
	Sources      map[string]SourceConfig `toml:"source"`
	Sync         SyncConfig              `toml:"sync"`
	Network      NetworkConfig           `toml:"network"`
	Logging      LoggingConfig           `toml:"logging"`
	Storage      StorageConfig           `toml:"storage"`
}

// SourceConfig is one Xtream panel account.
type SourceConfig struct {
	URL      string `toml:"url"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	Enabled  *bool  `toml:"enabled"`
}

// IsEnabled reports whether the source may be synced. Sources are enabled
// unless the file says otherwise.
func (s SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// SyncConfig controls the catalog pipeline. Durations are Go duration strings.
type SyncConfig struct {
	BatchSize          int    `toml:"batch_size"`
	FlushThreshold     int    `toml:"flush_threshold"`
	SyncTimeout        string `toml:"sync_timeout"`
	ContentFallbackTTL string `toml:"content_fallback_ttl"`
	CategoryTTL        string `toml:"category_ttl"`
	RefreshInterval    string `toml:"refresh_interval"`
	RetryAttempts      int    `toml:"retry_attempts"`
}

// NetworkConfig controls HTTP client behavior and the VPN precondition.
type NetworkConfig struct {
	ConnectTimeout    string   `toml:"connect_timeout"`
	UserAgent         string   `toml:"user_agent"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	RequireVPN        bool     `toml:"require_vpn"`
	VPNInterfaces     []string `toml:"vpn_interfaces"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFile   string `toml:"log_file"`
	LogFormat string `toml:"log_format"`
}

// StorageConfig locates the catalog database.
type StorageConfig struct {
	DBPath string `toml:"db_path"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Empty means not specified.
type CLIOverrides struct {
	ConfigPath string // --config
	Source     string // --source
}

// Parsed durations. Validate guarantees these parse; the fallbacks only
// apply to a Config that skipped validation.

// SyncTimeoutDuration returns sync.sync_timeout.
func (s SyncConfig) SyncTimeoutDuration() time.Duration {
	return durationOr(s.SyncTimeout, defaultSyncTimeout)
}

// ContentFallbackTTLDuration returns sync.content_fallback_ttl.
func (s SyncConfig) ContentFallbackTTLDuration() time.Duration {
	return durationOr(s.ContentFallbackTTL, defaultContentFallbackTTL)
}

// CategoryTTLDuration returns sync.category_ttl.
func (s SyncConfig) CategoryTTLDuration() time.Duration {
	return durationOr(s.CategoryTTL, defaultCategoryTTL)
}

// RefreshIntervalDuration returns sync.refresh_interval.
func (s SyncConfig) RefreshIntervalDuration() time.Duration {
	return durationOr(s.RefreshInterval, defaultRefreshInterval)
}

// ConnectTimeoutDuration returns network.connect_timeout.
func (n NetworkConfig) ConnectTimeoutDuration() time.Duration {
	return durationOr(n.ConnectTimeout, defaultConnectTimeout)
}

func durationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}

	return d
}
