package config

import (
	"path/filepath"
	"time"
)

// Default values for configuration options. These are layer 0 of the
// override chain and work without any config file.
const (
	defaultBatchSize          = 999
	defaultFlushThreshold     = 5000
	defaultSyncTimeout        = 5 * time.Minute
	defaultContentFallbackTTL = 168 * time.Hour
	defaultCategoryTTL        = 24 * time.Hour
	defaultRefreshInterval    = 6 * time.Hour
	defaultRetryAttempts      = 3
	defaultConnectTimeout     = 10 * time.Second
	defaultUserAgent          = "iptv-sync/0.1"
	defaultRequestsPerSecond  = 2
	defaultLogLevel           = "info"
	defaultLogFormat          = "auto"
	dbFileName                = "catalog.db"
)

var defaultVPNInterfaces = []string{"tun", "wg"}

// DefaultConfig returns a Config populated with all default values.
// It is the starting point for TOML decoding, so unset fields keep their
// defaults.
func DefaultConfig() *Config {
	return &Config{
		Sources: make(map[string]SourceConfig),
		Sync:    defaultSyncConfig(),
		Network: defaultNetworkConfig(),
		Logging: defaultLoggingConfig(),
		Storage: defaultStorageConfig(),
	}
}

func defaultSyncConfig() SyncConfig {
	return SyncConfig{
		BatchSize:          defaultBatchSize,
		FlushThreshold:     defaultFlushThreshold,
		SyncTimeout:        defaultSyncTimeout.String(),
		ContentFallbackTTL: defaultContentFallbackTTL.String(),
		CategoryTTL:        defaultCategoryTTL.String(),
		RefreshInterval:    defaultRefreshInterval.String(),
		RetryAttempts:      defaultRetryAttempts,
	}
}

func defaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		ConnectTimeout:    defaultConnectTimeout.String(),
		UserAgent:         defaultUserAgent,
		RequestsPerSecond: defaultRequestsPerSecond,
		VPNInterfaces:     append([]string(nil), defaultVPNInterfaces...),
	}
}

func defaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		LogLevel:  defaultLogLevel,
		LogFormat: defaultLogFormat,
	}
}

func defaultStorageConfig() StorageConfig {
	dir := DefaultDataDir()
	if dir == "" {
		return StorageConfig{DBPath: dbFileName}
	}

	return StorageConfig{DBPath: filepath.Join(dir, dbFileName)}
}
