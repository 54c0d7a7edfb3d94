// Package navtree caches the navigation groups derived from a source's
// categories. Groups are always reproducible from the stored categories, so
// the cache is dropped whenever those categories are replaced.
package navtree

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tonimelisma/iptv-sync/internal/catalog"
)

// Store is the persistence the cache needs.
type Store interface {
	Categories(ctx context.Context, sourceID string, kind catalog.Kind) ([]catalog.Category, error)
	NavGroups(ctx context.Context, sourceID string, kind catalog.Kind) ([]catalog.NavigationGroup, time.Time, bool, error)
	ReplaceNavGroups(ctx context.Context, sourceID string, kind catalog.Kind,
		groups []catalog.NavigationGroup, builtAt time.Time) error
	DeleteNavGroups(ctx context.Context, sourceID string, kind catalog.Kind) error
}

// Cache serves navigation trees, rebuilding them with its Grouper when the
// stored tree is missing or older than the TTL.
type Cache struct {
	store   Store
	grouper Grouper
	ttl     time.Duration
	logger  *slog.Logger
	nowFunc func() time.Time

	mu sync.Mutex // serializes rebuilds
}

// New creates a Cache. A nil grouper means SplitPrefixGrouper.
func New(store Store, grouper Grouper, ttl time.Duration, logger *slog.Logger) *Cache {
	if grouper == nil {
		grouper = SplitPrefixGrouper
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Cache{
		store:   store,
		grouper: grouper,
		ttl:     ttl,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// Tree returns the navigation groups for (sourceID, kind).
func (c *Cache) Tree(ctx context.Context, sourceID string, kind catalog.Kind) ([]catalog.NavigationGroup, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	groups, builtAt, ok, err := c.store.NavGroups(ctx, sourceID, kind)
	if err != nil {
		return nil, fmt.Errorf("navtree: loading %s tree: %w", kind, err)
	}

	now := c.nowFunc()
	if ok && now.Sub(builtAt) < c.ttl {
		return groups, nil
	}

	cats, err := c.store.Categories(ctx, sourceID, kind)
	if err != nil {
		return nil, fmt.Errorf("navtree: loading %s categories: %w", kind, err)
	}

	groups = c.grouper(cats)
	for i := range groups {
		groups[i].SourceID = sourceID
		groups[i].Kind = kind
	}

	if err := c.store.ReplaceNavGroups(ctx, sourceID, kind, groups, now); err != nil {
		return nil, fmt.Errorf("navtree: saving %s tree: %w", kind, err)
	}

	c.logger.Debug("navigation tree rebuilt",
		slog.String("source", sourceID),
		slog.String("kind", kind.String()),
		slog.Int("categories", len(cats)),
		slog.Int("groups", len(groups)),
	)

	return groups, nil
}

// Invalidate drops the stored tree so the next Tree call rebuilds it.
func (c *Cache) Invalidate(ctx context.Context, sourceID string, kind catalog.Kind) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.DeleteNavGroups(ctx, sourceID, kind); err != nil {
		return fmt.Errorf("navtree: invalidating %s tree: %w", kind, err)
	}

	return nil
}
