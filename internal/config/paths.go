package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Platform identifiers.
const (
	platformLinux  = "linux"
	platformDarwin = "darwin"
)

// Application directory name used across all platforms.
const appName = "iptv-sync"

const (
	configFileName = "config.toml"
	pidFileName    = "watch.pid"
)

// DefaultConfigDir returns the platform-specific directory for config files:
// $XDG_CONFIG_HOME/iptv-sync (or ~/.config/iptv-sync) on Linux and
// ~/Library/Application Support/iptv-sync on macOS.
func DefaultConfigDir() string {
	return platformDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform-specific directory for the catalog
// database and the watch PID file. macOS keeps config and data together.
func DefaultDataDir() string {
	return platformDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func platformDir(xdgVar, homeRel string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		return xdgDir(home, xdgVar, homeRel)
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, homeRel, appName)
	}
}

// xdgDir honors an XDG base directory variable, falling back to a path
// under home.
func xdgDir(home, xdgVar, homeRel string) string {
	if xdg := os.Getenv(xdgVar); xdg != "" {
		return filepath.Join(xdg, appName)
	}

	return filepath.Join(home, homeRel, appName)
}

// DefaultConfigPath returns the full path to the default config file, used
// when neither IPTV_SYNC_CONFIG nor --config is set.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, configFileName)
}

// PIDFilePath returns where watch records its process id, next to the
// database.
func (c *Config) PIDFilePath() string {
	return filepath.Join(filepath.Dir(c.Storage.DBPath), pidFileName)
}
