package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tonimelisma/iptv-sync/internal/catalog"
)

// Category ids are joined with a control character that never occurs in
// panel-assigned ids.
const categoryIDSep = "\x1f"

const (
	sqlSelectNavGroups = `SELECT group_name, category_ids, separator FROM nav_groups
		WHERE source_id = ? AND kind = ? ORDER BY position`
	sqlGetNavBuiltAt  = `SELECT built_at FROM nav_metadata WHERE source_id = ? AND kind = ?`
	sqlInsertNavGroup = `INSERT INTO nav_groups
		(source_id, kind, group_name, category_ids, separator, position)
		VALUES (?, ?, ?, ?, ?, ?)`
	sqlUpsertNavMetadata = `INSERT INTO nav_metadata (source_id, kind, built_at)
		VALUES (?, ?, ?)
		ON CONFLICT(source_id, kind) DO UPDATE SET built_at = excluded.built_at`
)

// NavGroups returns the cached navigation groups and when they were built.
// ok is false when no tree has been stored for (sourceID, kind).
func (s *Store) NavGroups(
	ctx context.Context, sourceID string, kind catalog.Kind,
) (groups []catalog.NavigationGroup, builtAt time.Time, ok bool, err error) {
	var built int64

	err = s.rdb.QueryRowContext(ctx, sqlGetNavBuiltAt, sourceID, kind.String()).Scan(&built)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, false, nil
	}

	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("store: reading %s nav metadata: %w", kind, err)
	}

	rows, err := s.rdb.QueryContext(ctx, sqlSelectNavGroups, sourceID, kind.String())
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("store: reading %s nav groups: %w", kind, err)
	}
	defer rows.Close()

	for rows.Next() {
		g := catalog.NavigationGroup{SourceID: sourceID, Kind: kind}

		var ids string
		if err := rows.Scan(&g.GroupName, &ids, &g.Separator); err != nil {
			return nil, time.Time{}, false, fmt.Errorf("store: scanning nav group: %w", err)
		}

		if ids != "" {
			g.CategoryIDs = strings.Split(ids, categoryIDSep)
		}

		groups = append(groups, g)
	}

	if err := rows.Err(); err != nil {
		return nil, time.Time{}, false, fmt.Errorf("store: iterating nav groups: %w", err)
	}

	return groups, time.Unix(0, built), true, nil
}

// ReplaceNavGroups stores a freshly built tree for (sourceID, kind).
func (s *Store) ReplaceNavGroups(
	ctx context.Context, sourceID string, kind catalog.Kind, groups []catalog.NavigationGroup, builtAt time.Time,
) error {
	return s.inTx(ctx, "nav group replace", func(tx *sql.Tx) error {
		if err := deleteNav(ctx, tx, sourceID, kind); err != nil {
			return err
		}

		for i, g := range groups {
			_, err := tx.ExecContext(ctx, sqlInsertNavGroup, sourceID, kind.String(),
				g.GroupName, strings.Join(g.CategoryIDs, categoryIDSep), g.Separator, i)
			if err != nil {
				return fmt.Errorf("store: inserting nav group %q: %w", g.GroupName, err)
			}
		}

		if _, err := tx.ExecContext(ctx, sqlUpsertNavMetadata, sourceID, kind.String(), builtAt.UnixNano()); err != nil {
			return fmt.Errorf("store: saving %s nav metadata: %w", kind, err)
		}

		return nil
	})
}

// DeleteNavGroups drops the cached tree for (sourceID, kind).
func (s *Store) DeleteNavGroups(ctx context.Context, sourceID string, kind catalog.Kind) error {
	return s.inTx(ctx, "nav group delete", func(tx *sql.Tx) error {
		return deleteNav(ctx, tx, sourceID, kind)
	})
}

func deleteNav(ctx context.Context, tx *sql.Tx, sourceID string, kind catalog.Kind) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM nav_groups WHERE source_id = ? AND kind = ?`,
		sourceID, kind.String()); err != nil {
		return fmt.Errorf("store: deleting %s nav groups: %w", kind, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM nav_metadata WHERE source_id = ? AND kind = ?`,
		sourceID, kind.String()); err != nil {
		return fmt.Errorf("store: deleting %s nav metadata: %w", kind, err)
	}

	return nil
}
