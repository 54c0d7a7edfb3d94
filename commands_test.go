package main

import (
	"net/http"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode[T any](t *testing.T, s string) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v), s)

	return v
}

func TestCLI_SyncListAndUserState(t *testing.T) {
	panel := newFakePanel(t, 12)
	cfg := writeCLIConfig(t, panel.URL)

	reports := decode[[]syncReport](t, mustRunCmd(t, cfg, "sync", "movie", "--json"))
	require.Len(t, reports, 1)
	assert.Equal(t, "movie", reports[0].Kind)
	assert.Equal(t, "success", reports[0].Phase)
	assert.Equal(t, 12, reports[0].Count)
	assert.NotEmpty(t, reports[0].RunID)

	page := decode[[]listItem](t, mustRunCmd(t, cfg, "list", "movie", "--limit", "5", "--json"))
	require.Len(t, page, 5)
	assert.Equal(t, "Movie 01", page[0].Name)
	assert.Equal(t, "mkv", page[0].Extension)

	sports := decode[[]listItem](t, mustRunCmd(t, cfg, "list", "movie", "--category", "1", "--json"))
	for _, it := range sports {
		assert.Equal(t, "UK | Sports", it.CategoryName)
	}

	mustRunCmd(t, cfg, "favorite", "movie", "3")
	mustRunCmd(t, cfg, "resume", "3", "90")

	// A forced refresh keeps favorites and resume positions.
	reports = decode[[]syncReport](t, mustRunCmd(t, cfg, "sync", "movie", "--force", "--json"))
	assert.False(t, reports[0].FromCache)

	favs := decode[[]listItem](t, mustRunCmd(t, cfg, "list", "movie", "--favorites", "--json"))
	require.Len(t, favs, 1)
	assert.Equal(t, int64(3), favs[0].ID)
	assert.Equal(t, int64(90), favs[0].ResumeSecs)

	mustRunCmd(t, cfg, "favorite", "movie", "3", "--off")
	favs = decode[[]listItem](t, mustRunCmd(t, cfg, "list", "movie", "--favorites", "--json"))
	assert.Empty(t, favs)
}

func TestCLI_SyncServesFreshCache(t *testing.T) {
	panel := newFakePanel(t, 6)
	cfg := writeCLIConfig(t, panel.URL)

	mustRunCmd(t, cfg, "sync", "series")

	reports := decode[[]syncReport](t, mustRunCmd(t, cfg, "sync", "series", "--json"))
	assert.True(t, reports[0].FromCache)
	assert.Equal(t, 6, reports[0].Count)
	assert.Equal(t, int32(1), panel.opens.Load())
}

func TestCLI_SyncAllKinds(t *testing.T) {
	panel := newFakePanel(t, 4)
	cfg := writeCLIConfig(t, panel.URL)

	reports := decode[[]syncReport](t, mustRunCmd(t, cfg, "sync", "--json"))
	require.Len(t, reports, 3)

	for i, kind := range []string{"live", "movie", "series"} {
		assert.Equal(t, kind, reports[i].Kind)
		assert.Equal(t, 4, reports[i].Count)
	}
}

func TestCLI_SyncFailureReported(t *testing.T) {
	panel := newFakePanel(t, 4)
	panel.status.Store(http.StatusUnauthorized)
	cfg := writeCLIConfig(t, panel.URL)

	out, err := runCmd(t, cfg, "sync", "live", "--json")
	require.ErrorIs(t, err, errSyncFailed)

	reports := decode[[]syncReport](t, out)
	assert.Equal(t, "error", reports[0].Phase)
	assert.Contains(t, reports[0].Error, "network failure")
	assert.False(t, reports[0].HasCache)
}

func TestCLI_NoActiveSource(t *testing.T) {
	cfg := writeCLIConfig(t, "")

	out, err := runCmd(t, cfg, "sync", "movie", "--json")
	require.ErrorIs(t, err, errSyncFailed)
	assert.Contains(t, decode[[]syncReport](t, out)[0].Error, "no active source")

	_, err = runCmd(t, cfg, "list", "movie")
	assert.ErrorContains(t, err, "no active source")
}

func TestCLI_StatusInvalidateAndClear(t *testing.T) {
	panel := newFakePanel(t, 9)
	cfg := writeCLIConfig(t, panel.URL)

	mustRunCmd(t, cfg, "sync", "movie")

	report := decode[statusReport](t, mustRunCmd(t, cfg, "status", "--json"))
	assert.Equal(t, "a", report.ActiveSource)
	assert.Zero(t, report.WatchPID)
	require.Len(t, report.Caches, 3)

	movie := report.Caches[1]
	assert.Equal(t, "movie", movie.Kind)
	assert.Equal(t, 9, movie.Items)
	assert.Equal(t, 3, movie.Categories)
	assert.True(t, movie.Fresh)
	assert.NotNil(t, movie.LastUpdated)
	assert.Empty(t, movie.MissingIndexes)

	live := report.Caches[0]
	assert.Nil(t, live.LastUpdated)
	assert.False(t, live.Fresh)

	mustRunCmd(t, cfg, "invalidate", "movie")

	report = decode[statusReport](t, mustRunCmd(t, cfg, "status", "--json"))
	assert.False(t, report.Caches[1].Fresh)
	assert.Equal(t, 9, report.Caches[1].Items, "invalidate keeps stored rows")

	_, err := runCmd(t, cfg, "clear-source", "a")
	assert.ErrorContains(t, err, "--yes")

	mustRunCmd(t, cfg, "clear-source", "a", "--yes")

	report = decode[statusReport](t, mustRunCmd(t, cfg, "status", "--json"))
	assert.Zero(t, report.Caches[1].Items)
}

func TestCLI_Tree(t *testing.T) {
	panel := newFakePanel(t, 3)
	cfg := writeCLIConfig(t, panel.URL)

	mustRunCmd(t, cfg, "sync", "live")

	groups := decode[[]treeGroup](t, mustRunCmd(t, cfg, "tree", "live", "--json"))
	require.Len(t, groups, 2)

	assert.Equal(t, "UK", groups[0].Name)
	assert.Equal(t, []treeCategory{{ID: "1", Name: "UK | Sports"}, {ID: "2", Name: "UK | News"}}, groups[0].Categories)
	assert.Equal(t, "Other", groups[1].Name)
	assert.Equal(t, []treeCategory{{ID: "3", Name: "Kids"}}, groups[1].Categories)

	text := mustRunCmd(t, cfg, "tree", "live")
	assert.Contains(t, text, "UK (2)")
	assert.Contains(t, text, "  3  Kids")
}

func TestCLI_Login(t *testing.T) {
	panel := newFakePanel(t, 1)
	cfg := writeCLIConfig(t, panel.URL)

	report := decode[loginReport](t, mustRunCmd(t, cfg, "login", "--json"))
	assert.Equal(t, "a", report.Source)
	assert.Equal(t, "alice", report.Username)
	assert.Equal(t, "Active", report.Status)
	assert.Equal(t, int64(2), report.MaxConnections)
	assert.Equal(t, int64(1), report.ActiveCons)
	require.NotNil(t, report.ExpiresAt)
	assert.Equal(t, int64(1893456000), report.ExpiresAt.Unix())

	panel.status.Store(http.StatusUnauthorized)

	_, err := runCmd(t, cfg, "login")
	assert.ErrorContains(t, err, "authenticating with source a")
}

func TestCLI_FavoriteUnknownItem(t *testing.T) {
	panel := newFakePanel(t, 2)
	cfg := writeCLIConfig(t, panel.URL)

	mustRunCmd(t, cfg, "sync", "movie")

	_, err := runCmd(t, cfg, "favorite", "movie", "999")
	assert.ErrorContains(t, err, "no movie with id 999")

	_, err = runCmd(t, cfg, "resume", "999", "10")
	assert.ErrorContains(t, err, "no movie with id 999")

	_, err = runCmd(t, cfg, "favorite", "radio", "1")
	assert.ErrorContains(t, err, "unknown content kind")
}
