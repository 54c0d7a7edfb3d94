//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/iptv-sync/testutil"
)

var (
	binaryPath string
	configPath string
)

func TestMain(m *testing.M) {
	root := testutil.FindModuleRoot("..")
	testutil.LoadDotEnv(filepath.Join(root, ".env"))

	panel, ok := testutil.PanelFromEnv()
	if !ok {
		fmt.Fprintf(os.Stderr, "skipping E2E: set %s and %s\n", testutil.EnvPanelURL, testutil.EnvPanelUsername)
		os.Exit(0)
	}

	tmpDir, err := os.MkdirTemp("", "iptv-sync-e2e-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating temp dir: %v\n", err)
		os.Exit(1)
	}

	binaryPath = filepath.Join(tmpDir, "iptv-sync")

	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	cmd.Dir = root
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "building binary: %v\n", err)
		os.RemoveAll(tmpDir)
		os.Exit(1)
	}

	configPath = filepath.Join(tmpDir, "config.toml")
	if err := os.WriteFile(configPath, []byte(panel.ConfigTOML(tmpDir)), 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "writing config: %v\n", err)
		os.RemoveAll(tmpDir)
		os.Exit(1)
	}

	code := m.Run()

	os.RemoveAll(tmpDir)
	os.Exit(code)
}

func runCLI(t *testing.T, args ...string) string {
	t.Helper()

	cmd := exec.Command(binaryPath, append([]string{"--config", configPath}, args...)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		t.Fatalf("iptv-sync %v failed: %v\nstdout: %s\nstderr: %s", args, err, stdout.String(), stderr.String())
	}

	return stdout.String()
}

func TestE2E_SyncAndBrowse(t *testing.T) {
	t.Run("login", func(t *testing.T) {
		var out map[string]any
		require.NoError(t, json.Unmarshal([]byte(runCLI(t, "login", "--json")), &out))
		assert.Equal(t, "e2e", out["source"])
	})

	var movieCount int

	t.Run("sync", func(t *testing.T) {
		var reports []map[string]any
		require.NoError(t, json.Unmarshal([]byte(runCLI(t, "sync", "movie", "--force", "--json")), &reports))
		require.Len(t, reports, 1)
		assert.Equal(t, "success", reports[0]["phase"])

		movieCount = int(reports[0]["count"].(float64))
	})

	t.Run("second sync is served from cache", func(t *testing.T) {
		var reports []map[string]any
		require.NoError(t, json.Unmarshal([]byte(runCLI(t, "sync", "movie", "--json")), &reports))
		assert.Equal(t, true, reports[0]["from_cache"])
		assert.Equal(t, float64(movieCount), reports[0]["count"])
	})

	if movieCount == 0 {
		t.Skip("panel has no movies")
	}

	t.Run("favorite survives resync", func(t *testing.T) {
		var items []map[string]any
		require.NoError(t, json.Unmarshal([]byte(runCLI(t, "list", "movie", "--limit", "1", "--json")), &items))
		require.Len(t, items, 1)

		want := items[0]["id"]
		id := strconv.FormatInt(int64(want.(float64)), 10)

		runCLI(t, "favorite", "movie", id)
		t.Cleanup(func() { runCLI(t, "favorite", "movie", id, "--off") })

		runCLI(t, "sync", "movie", "--force")

		var favs []map[string]any
		require.NoError(t, json.Unmarshal([]byte(runCLI(t, "list", "movie", "--favorites", "--json")), &favs))

		ids := make([]any, len(favs))
		for i, f := range favs {
			ids[i] = f["id"]
		}

		assert.Contains(t, ids, want)
	})

	t.Run("status", func(t *testing.T) {
		var report map[string]any
		require.NoError(t, json.Unmarshal([]byte(runCLI(t, "status", "--json")), &report))
		assert.Equal(t, "e2e", report["active_source"])
	})

	t.Run("tree", func(t *testing.T) {
		var groups []map[string]any
		require.NoError(t, json.Unmarshal([]byte(runCLI(t, "tree", "movie", "--json")), &groups))
		assert.NotEmpty(t, groups)
	})
}
