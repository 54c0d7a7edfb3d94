package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakePanel serves player_api.php with n records per catalog. status, when
// non-zero, is returned for every catalog request instead.
type fakePanel struct {
	*httptest.Server

	n      int
	status atomic.Int32
	opens  atomic.Int32
}

func newFakePanel(t *testing.T, n int) *fakePanel {
	t.Helper()

	p := &fakePanel{n: n}
	p.Server = httptest.NewServer(http.HandlerFunc(p.serve))
	t.Cleanup(p.Close)

	return p
}

func (p *fakePanel) serve(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")

	if code := int(p.status.Load()); code != 0 {
		http.Error(w, "nope", code)
		return
	}

	switch {
	case action == "":
		fmt.Fprint(w, `{"user_info":{"username":"alice","auth":1,"status":"Active","exp_date":"1893456000",`+
			`"max_connections":"2","active_cons":"1"}}`)
	case strings.HasSuffix(action, "_categories"):
		fmt.Fprint(w, `[{"category_id":"1","category_name":"UK | Sports","parent_id":0},`+
			`{"category_id":"2","category_name":"UK | News","parent_id":0},`+
			`{"category_id":"3","category_name":"Kids","parent_id":0}]`)
	case action == "get_vod_streams":
		p.opens.Add(1)
		writeRecords(w, p.n, func(i, cat int) string {
			return fmt.Sprintf(`{"name":"Movie %02d","stream_id":%d,"category_id":"%d","rating":"7.5",`+
				`"container_extension":"mkv","added":"1700000000"}`, i, i, cat)
		})
	case action == "get_live_streams":
		p.opens.Add(1)
		writeRecords(w, p.n, func(i, cat int) string {
			return fmt.Sprintf(`{"num":%d,"name":"Channel %02d","stream_id":"%d","category_id":%d}`, i, i, i, cat)
		})
	case action == "get_series":
		p.opens.Add(1)
		writeRecords(w, p.n, func(i, cat int) string {
			return fmt.Sprintf(`{"name":"Series %02d","series_id":%d,"category_id":"%d","genre":"Drama"}`, i, i, cat)
		})
	default:
		http.Error(w, "unknown action", http.StatusBadRequest)
	}
}

func writeRecords(w http.ResponseWriter, n int, record func(i, cat int) string) {
	parts := make([]string, n)
	for i := range n {
		parts[i] = record(i+1, (i+1)%3+1)
	}

	fmt.Fprint(w, "["+strings.Join(parts, ",")+"]")
}

// writeCLIConfig writes a config with one active source "a" pointing at
// panelURL (no source when panelURL is empty) and returns its path.
func writeCLIConfig(t *testing.T, panelURL string) string {
	t.Helper()

	dir := t.TempDir()

	var b strings.Builder

	if panelURL != "" {
		fmt.Fprintf(&b, "active_source = \"a\"\n\n[source.a]\nurl = %q\nusername = \"alice\"\npassword = \"pw\"\n\n", panelURL)
	}

	fmt.Fprintf(&b, "[network]\nrequests_per_second = 0\n\n[logging]\nlog_level = \"error\"\nlog_format = \"text\"\n\n")
	fmt.Fprintf(&b, "[storage]\ndb_path = %q\n", filepath.Join(dir, "data", "catalog.db"))

	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))

	return path
}

// runCmd executes the root command with args and returns stdout.
func runCmd(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()

	t.Setenv("IPTV_SYNC_CONFIG", "")
	t.Setenv("IPTV_SYNC_SOURCE", "")

	cmd := newRootCmd()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", cfgPath, "--quiet"}, args...))

	err := cmd.Execute()

	return out.String(), err
}

func mustRunCmd(t *testing.T, cfgPath string, args ...string) string {
	t.Helper()

	out, err := runCmd(t, cfgPath, args...)
	require.NoError(t, err, "iptv-sync %v: %s", args, out)

	return out
}
