package sync

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	gosync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/iptv-sync/internal/catalog"
	"github.com/tonimelisma/iptv-sync/internal/store"
	"github.com/tonimelisma/iptv-sync/internal/xtream"
)

// testLogger returns a debug-level logger that writes to t.Log.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(&testLogWriter{t: t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type testLogWriter struct {
	t *testing.T
}

func (w *testLogWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))

	return len(p), nil
}

// fakeRemote serves generated catalogs from memory and counts calls.
type fakeRemote struct {
	categories []xtream.Category
	size       map[catalog.Kind]int

	// open, when set, replaces the generated catalog body.
	open func(ctx context.Context, kind catalog.Kind) (io.ReadCloser, error)

	catCalls  atomic.Int32
	openCalls atomic.Int32
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		categories: []xtream.Category{
			{CategoryID: "1", CategoryName: "UK | Sports"},
			{CategoryID: "2", CategoryName: "UK | News"},
			{CategoryID: "3", CategoryName: "Kids"},
		},
		size: map[catalog.Kind]int{
			catalog.KindLive:   30,
			catalog.KindMovie:  40,
			catalog.KindSeries: 20,
		},
	}
}

func (f *fakeRemote) ListCategories(_ context.Context, _ catalog.Kind) ([]xtream.Category, error) {
	f.catCalls.Add(1)
	return f.categories, nil
}

func (f *fakeRemote) OpenCatalog(ctx context.Context, kind catalog.Kind) (io.ReadCloser, error) {
	f.openCalls.Add(1)

	if f.open != nil {
		return f.open(ctx, kind)
	}

	return io.NopCloser(strings.NewReader(catalogJSON(kind, f.size[kind]))), nil
}

// catalogJSON generates a catalog of n records in the loosely typed shape
// panels send: ids and numbers alternate between JSON numbers and strings.
func catalogJSON(kind catalog.Kind, n int) string {
	var b strings.Builder

	b.WriteByte('[')

	for i := 1; i <= n; i++ {
		if i > 1 {
			b.WriteByte(',')
		}

		cat := i%3 + 1

		switch kind {
		case catalog.KindLive:
			fmt.Fprintf(&b, `{"num":%d,"name":"Channel %d","stream_id":%d,"stream_icon":"","category_id":"%d",`+
				`"epg_channel_id":"ch%d.tv","tv_archive":%d,"added":"%d"}`, i, i, i, cat, i, i%2, 1700000000+i)
		case catalog.KindMovie:
			fmt.Fprintf(&b, `{"num":%d,"name":"Movie %d","stream_id":"%d","category_id":%d,"rating":"%d.5",`+
				`"container_extension":"mp4","added":"%d"}`, i, i, i, cat, i%10, 1700000000+i)
		case catalog.KindSeries:
			fmt.Fprintf(&b, `{"num":%d,"name":"Series %d","series_id":%d,"category_id":"%d","plot":null,`+
				`"genre":"Drama","releaseDate":"2020-01-01","last_modified":"%d","rating":"N/A"}`, i, i, i, cat, 1700000000+i)
		}
	}

	b.WriteByte(']')

	return b.String()
}

// countingStore records the size of every movie write transaction.
type countingStore struct {
	*store.Store

	mu      gosync.Mutex
	flushes []int
}

func (c *countingStore) WriteMovies(ctx context.Context, rows []catalog.Movie) error {
	c.mu.Lock()
	c.flushes = append(c.flushes, len(rows))
	c.mu.Unlock()

	return c.Store.WriteMovies(ctx, rows)
}

func (c *countingStore) flushSizes() []int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]int(nil), c.flushes...)
}

// harness wires an Orchestrator to a temp-dir store and a fake remote.
type harness struct {
	orch   *Orchestrator
	store  *store.Store
	remote *fakeRemote

	mu     gosync.Mutex
	sleeps []time.Duration
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "catalog.db"), testLogger(t))
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })

	return s
}

// newHarness builds a harness for source "a". mutate, if non-nil, adjusts
// the Config before the orchestrator is created.
func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()

	h := &harness{store: newTestStore(t), remote: newFakeRemote()}

	cfg := Config{
		Store:   h.store,
		Sources: StaticSource{ID: "a", Remote: h.remote},
		Logger:  testLogger(t),
	}

	if mutate != nil {
		mutate(&cfg)
	}

	h.orch = NewOrchestrator(cfg)
	h.orch.sleepFunc = func(_ context.Context, d time.Duration) error {
		h.mu.Lock()
		defer h.mu.Unlock()

		h.sleeps = append(h.sleeps, d)

		return nil
	}

	return h
}

func (h *harness) recordedSleeps() []time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]time.Duration(nil), h.sleeps...)
}

func (h *harness) count(t *testing.T, kind catalog.Kind, sourceID string) int {
	t.Helper()

	n, err := h.store.Count(context.Background(), kind, sourceID)
	require.NoError(t, err)

	return n
}

// newPanelServer fakes a panel's player_api.php with n records per catalog.
func newPanelServer(t *testing.T, n int) *httptest.Server {
	t.Helper()

	actions := map[string]catalog.Kind{
		"get_live_streams": catalog.KindLive,
		"get_vod_streams":  catalog.KindMovie,
		"get_series":       catalog.KindSeries,
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		action := r.URL.Query().Get("action")

		if strings.HasSuffix(action, "_categories") {
			fmt.Fprint(w, `[{"category_id":"1","category_name":"UK | Sports","parent_id":0},`+
				`{"category_id":"2","category_name":"UK | News","parent_id":0},`+
				`{"category_id":"3","category_name":"Kids","parent_id":0}]`)

			return
		}

		kind, ok := actions[action]
		if !ok {
			http.Error(w, "unknown action", http.StatusBadRequest)
			return
		}

		fmt.Fprint(w, catalogJSON(kind, n))
	}))
}

// favoriteOnDeleteStore marks movie favID as favorite right before the
// source's rows are replaced, as a user would from another goroutine.
type favoriteOnDeleteStore struct {
	*store.Store

	armed  atomic.Bool
	favID  int64
	setErr error
}

func (s *favoriteOnDeleteStore) DeleteSourcePreserving(
	ctx context.Context, kind catalog.Kind, sourceID string,
) (catalog.Preserved, int64, error) {
	if s.armed.Load() {
		s.setErr = s.Store.SetFavorite(ctx, kind, sourceID, s.favID, true)
	}

	return s.Store.DeleteSourcePreserving(ctx, kind, sourceID)
}

// cutBody serves body and then fails every read with err.
type cutBody struct {
	r      *strings.Reader
	err    error
	before func()
}

func (b *cutBody) Read(p []byte) (int, error) {
	if b.r.Len() == 0 {
		if b.before != nil {
			b.before()
		}

		return 0, b.err
	}

	return b.r.Read(p)
}

func (b *cutBody) Close() error { return nil }

// truncatedCatalog returns n records of kind followed by the start of one
// more, as left by a connection that dropped mid-record.
func truncatedCatalog(kind catalog.Kind, n int) string {
	full := catalogJSON(kind, n+1)
	idx := strings.LastIndex(full, "{")

	return full[:idx+len(`{"num":`)]
}
