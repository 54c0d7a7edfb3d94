package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig = "IPTV_SYNC_CONFIG"
	EnvSource = "IPTV_SYNC_SOURCE"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // IPTV_SYNC_CONFIG: override config file path
	Source     string // IPTV_SYNC_SOURCE: active source name
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; callers apply the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		Source:     os.Getenv(EnvSource),
	}
}
