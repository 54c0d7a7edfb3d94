package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

// Validation range constants.
const (
	minBatchSize       = 1
	maxBatchSize       = 10_000
	minFlushThreshold  = 1
	maxFlushThreshold  = 100_000
	minRetryAttempts   = 1
	maxRetryAttempts   = 10
	minSyncTimeout     = 10 * time.Second
	minRefreshInterval = 1 * time.Minute
	minConnectTimeout  = 1 * time.Second
	maxRequestsPerSec  = 100
)

// Validate checks all configuration values and returns every error found,
// so a broken file can be fixed in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateSources(cfg)...)
	errs = append(errs, validateSync(&cfg.Sync)...)
	errs = append(errs, validateNetwork(&cfg.Network)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	if strings.TrimSpace(cfg.Storage.DBPath) == "" {
		errs = append(errs, errors.New("storage.db_path: must not be empty"))
	}

	return errors.Join(errs...)
}

func validateSources(cfg *Config) []error {
	var errs []error

	for _, name := range cfg.SourceNames() {
		src := cfg.Sources[name]
		prefix := fmt.Sprintf("source.%s", name)

		u, err := url.Parse(src.URL)

		switch {
		case src.URL == "":
			errs = append(errs, fmt.Errorf("%s.url: must not be empty", prefix))
		case err != nil:
			errs = append(errs, fmt.Errorf("%s.url: %w", prefix, err))
		case u.Scheme != "http" && u.Scheme != "https":
			errs = append(errs, fmt.Errorf("%s.url: scheme must be http or https, got %q", prefix, u.Scheme))
		case u.Host == "":
			errs = append(errs, fmt.Errorf("%s.url: missing host", prefix))
		}

		if src.Username == "" {
			errs = append(errs, fmt.Errorf("%s.username: must not be empty", prefix))
		}
	}

	if cfg.ActiveSource != "" {
		if _, ok := cfg.Sources[cfg.ActiveSource]; !ok {
			errs = append(errs, fmt.Errorf("active_source: %q is not a configured source", cfg.ActiveSource))
		}
	}

	return errs
}

func validateSync(s *SyncConfig) []error {
	var errs []error

	errs = append(errs, checkIntRange("sync.batch_size", s.BatchSize, minBatchSize, maxBatchSize)...)
	errs = append(errs, checkIntRange("sync.flush_threshold", s.FlushThreshold, minFlushThreshold, maxFlushThreshold)...)
	errs = append(errs, checkIntRange("sync.retry_attempts", s.RetryAttempts, minRetryAttempts, maxRetryAttempts)...)
	errs = append(errs, checkDuration("sync.sync_timeout", s.SyncTimeout, minSyncTimeout)...)
	errs = append(errs, checkDuration("sync.content_fallback_ttl", s.ContentFallbackTTL, time.Nanosecond)...)
	errs = append(errs, checkDuration("sync.category_ttl", s.CategoryTTL, time.Nanosecond)...)
	errs = append(errs, checkDuration("sync.refresh_interval", s.RefreshInterval, minRefreshInterval)...)

	return errs
}

func validateNetwork(n *NetworkConfig) []error {
	var errs []error

	errs = append(errs, checkDuration("network.connect_timeout", n.ConnectTimeout, minConnectTimeout)...)

	if n.RequestsPerSecond < 0 || n.RequestsPerSecond > maxRequestsPerSec {
		errs = append(errs, fmt.Errorf("network.requests_per_second: must be between 0 and %d, got %g",
			maxRequestsPerSec, n.RequestsPerSecond))
	}

	if n.RequireVPN && len(n.VPNInterfaces) == 0 {
		errs = append(errs, errors.New("network.vpn_interfaces: must not be empty when require_vpn is set"))
	}

	return errs
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	if _, err := ParseLogLevel(l.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("logging.log_level: %w", err))
	}

	switch l.LogFormat {
	case "text", "json", "auto":
	default:
		errs = append(errs, fmt.Errorf("logging.log_format: must be text, json, or auto, got %q", l.LogFormat))
	}

	return errs
}

// ParseLogLevel maps a log_level value to a slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("must be debug, info, warn, or error, got %q", s)
	}
}

func checkIntRange(field string, v, lo, hi int) []error {
	if v < lo || v > hi {
		return []error{fmt.Errorf("%s: must be between %d and %d, got %d", field, lo, hi, v)}
	}

	return nil
}

func checkDuration(field, s string, minimum time.Duration) []error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return []error{fmt.Errorf("%s: invalid duration %q: %w", field, s, err)}
	}

	if d < minimum {
		return []error{fmt.Errorf("%s: must be at least %s, got %s", field, minimum, d)}
	}

	return nil
}
