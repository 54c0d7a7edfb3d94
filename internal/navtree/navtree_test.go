package navtree

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/iptv-sync/internal/catalog"
	"github.com/tonimelisma/iptv-sync/internal/store"
)

func cat(id, name string) catalog.Category {
	return catalog.Category{SourceID: "a", Kind: catalog.KindLive, CategoryID: id, Name: name}
}

func TestSplitPrefixGrouper(t *testing.T) {
	t.Parallel()

	groups := SplitPrefixGrouper([]catalog.Category{
		cat("1", "UK | Sports"),
		cat("2", "Kids"),
		cat("3", "FR: Cinéma"),
		cat("4", "uk | News"),
		cat("5", "| Broken"),
		cat("6", "DE - Filme"),
	})

	require.Len(t, groups, 4)

	assert.Equal(t, "UK", groups[0].GroupName)
	assert.Equal(t, "|", groups[0].Separator)
	assert.Equal(t, []string{"1", "4"}, groups[0].CategoryIDs)

	assert.Equal(t, "FR", groups[1].GroupName)
	assert.Equal(t, ":", groups[1].Separator)

	assert.Equal(t, "DE", groups[2].GroupName)
	assert.Equal(t, "-", groups[2].Separator)

	assert.Equal(t, OtherGroup, groups[3].GroupName)
	assert.Equal(t, []string{"2", "5"}, groups[3].CategoryIDs)
}

func TestSplitPrefixGrouper_NormalizesPrefix(t *testing.T) {
	t.Parallel()

	// "É" precomposed vs. "E" + combining acute.
	groups := SplitPrefixGrouper([]catalog.Category{
		cat("1", "\u00c9T\u00c9 | One"),
		cat("2", "E\u0301TE\u0301 | Two"),
	})

	require.Len(t, groups, 1)
	assert.Equal(t, []string{"1", "2"}, groups[0].CategoryIDs)
}

func TestSplitPrefixGrouper_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, SplitPrefixGrouper(nil))
}

func newTestCache(t *testing.T, grouper Grouper) (*Cache, *store.Store) {
	t.Helper()

	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "nav.db"), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return New(s, grouper, time.Hour, slog.Default()), s
}

func TestCache_TreeBuildsOnceWithinTTL(t *testing.T) {
	t.Parallel()

	builds := 0
	counting := func(cats []catalog.Category) []catalog.NavigationGroup {
		builds++
		return SplitPrefixGrouper(cats)
	}

	c, s := newTestCache(t, counting)
	ctx := context.Background()

	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	c.nowFunc = func() time.Time { return now }

	require.NoError(t, s.ReplaceCategories(ctx, "a", catalog.KindLive, []catalog.Category{
		cat("1", "UK | Sports"), cat("2", "UK | News"), cat("3", "Kids"),
	}))

	groups, err := c.Tree(ctx, "a", catalog.KindLive)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "a", groups[1].SourceID)
	assert.Equal(t, catalog.KindLive, groups[1].Kind)

	again, err := c.Tree(ctx, "a", catalog.KindLive)
	require.NoError(t, err)
	assert.Equal(t, groups, again)
	assert.Equal(t, 1, builds)

	now = now.Add(time.Hour)

	_, err = c.Tree(ctx, "a", catalog.KindLive)
	require.NoError(t, err)
	assert.Equal(t, 2, builds, "tree at exactly the TTL is stale")
}

func TestCache_InvalidateForcesRebuild(t *testing.T) {
	t.Parallel()

	c, s := newTestCache(t, nil)
	ctx := context.Background()

	require.NoError(t, s.ReplaceCategories(ctx, "a", catalog.KindMovie, []catalog.Category{
		{CategoryID: "1", Name: "EN | Action"},
	}))

	groups, err := c.Tree(ctx, "a", catalog.KindMovie)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	require.NoError(t, s.ReplaceCategories(ctx, "a", catalog.KindMovie, []catalog.Category{
		{CategoryID: "1", Name: "EN | Action"},
		{CategoryID: "2", Name: "ES | Acción"},
	}))

	stale, err := c.Tree(ctx, "a", catalog.KindMovie)
	require.NoError(t, err)
	assert.Len(t, stale, 1, "cached tree is served until invalidated")

	require.NoError(t, c.Invalidate(ctx, "a", catalog.KindMovie))

	fresh, err := c.Tree(ctx, "a", catalog.KindMovie)
	require.NoError(t, err)
	assert.Len(t, fresh, 2)
}
