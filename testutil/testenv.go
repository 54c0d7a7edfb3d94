// Package testutil provides shared environment helpers for E2E tests. It
// depends only on stdlib so that E2E tests (which cannot import internal/)
// can use it.
package testutil

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Environment variables naming the panel E2E tests run against.
const (
	EnvPanelURL      = "IPTV_SYNC_E2E_URL"
	EnvPanelUsername = "IPTV_SYNC_E2E_USERNAME"
	EnvPanelPassword = "IPTV_SYNC_E2E_PASSWORD"
)

// Panel is a real account used by E2E tests.
type Panel struct {
	URL      string
	Username string
	Password string
}

// LoadDotEnv reads KEY=VALUE pairs from a .env file at the given path.
// A missing file is not an error; existing env vars take precedence.
func LoadDotEnv(envPath string) {
	f, err := os.Open(envPath)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), "\"'")

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

// PanelFromEnv returns the E2E panel account, or ok=false when any of the
// variables is unset.
func PanelFromEnv() (Panel, bool) {
	p := Panel{
		URL:      os.Getenv(EnvPanelURL),
		Username: os.Getenv(EnvPanelUsername),
		Password: os.Getenv(EnvPanelPassword),
	}

	return p, p.URL != "" && p.Username != ""
}

// ConfigTOML renders a config file with p as the only, active source and all
// state under dir.
func (p Panel) ConfigTOML(dir string) string {
	return fmt.Sprintf(`active_source = "e2e"

[source.e2e]
url = %q
username = %q
password = %q

[logging]
log_level = "debug"
log_format = "text"

[storage]
db_path = %q
`, p.URL, p.Username, p.Password, filepath.Join(dir, "catalog.db"))
}

// FindModuleRoot walks up from the current directory to find go.mod.
// Returns the fallback if the root is not found.
func FindModuleRoot(fallback string) string {
	dir, err := os.Getwd()
	if err != nil {
		return fallback
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return fallback
		}

		dir = parent
	}
}
