package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tonimelisma/iptv-sync/internal/catalog"
)

const (
	sqlGetMetadata = `SELECT last_updated, item_count, category_count
		FROM cache_metadata WHERE source_id = ? AND kind = ?`

	sqlListMetadata = `SELECT source_id, kind, last_updated, item_count, category_count
		FROM cache_metadata ORDER BY source_id, kind`

	sqlUpsertMetadata = `INSERT INTO cache_metadata
		(source_id, kind, last_updated, item_count, category_count)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source_id, kind) DO UPDATE SET
		 last_updated = excluded.last_updated,
		 item_count = excluded.item_count,
		 category_count = excluded.category_count`

	sqlDeleteMetadata = `DELETE FROM cache_metadata WHERE source_id = ? AND kind = ?`
)

// GetMetadata returns the cache metadata for (sourceID, kind). The bool is
// false when no sync has ever completed.
func (s *Store) GetMetadata(
	ctx context.Context, sourceID string, kind catalog.Kind,
) (catalog.CacheMetadata, bool, error) {
	var (
		updated int64
		md      = catalog.CacheMetadata{SourceID: sourceID, Kind: kind}
	)

	err := s.rdb.QueryRowContext(ctx, sqlGetMetadata, sourceID, kind.String()).
		Scan(&updated, &md.ItemCount, &md.CategoryCount)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.CacheMetadata{}, false, nil
	}

	if err != nil {
		return catalog.CacheMetadata{}, false, fmt.Errorf("store: reading %s metadata for %s: %w", kind, sourceID, err)
	}

	md.LastUpdated = time.Unix(0, updated)

	return md, true, nil
}

// ListMetadata returns every metadata row, ordered by source then kind.
func (s *Store) ListMetadata(ctx context.Context) ([]catalog.CacheMetadata, error) {
	rows, err := s.rdb.QueryContext(ctx, sqlListMetadata)
	if err != nil {
		return nil, fmt.Errorf("store: listing metadata: %w", err)
	}
	defer rows.Close()

	var out []catalog.CacheMetadata

	for rows.Next() {
		var (
			md      catalog.CacheMetadata
			kind    string
			updated int64
		)

		if err := rows.Scan(&md.SourceID, &kind, &updated, &md.ItemCount, &md.CategoryCount); err != nil {
			return nil, fmt.Errorf("store: scanning metadata: %w", err)
		}

		if md.Kind, err = catalog.ParseKind(kind); err != nil {
			return nil, err
		}

		md.LastUpdated = time.Unix(0, updated)
		out = append(out, md)
	}

	return out, rows.Err()
}

// PutMetadata upserts the metadata row for md.SourceID and md.Kind.
func (s *Store) PutMetadata(ctx context.Context, md catalog.CacheMetadata) error {
	_, err := s.db.ExecContext(ctx, sqlUpsertMetadata,
		md.SourceID, md.Kind.String(), md.LastUpdated.UnixNano(), md.ItemCount, md.CategoryCount)
	if err != nil {
		return fmt.Errorf("store: saving %s metadata for %s: %w", md.Kind, md.SourceID, err)
	}

	return nil
}

// DeleteMetadata removes the metadata row so the next sync refetches.
func (s *Store) DeleteMetadata(ctx context.Context, sourceID string, kind catalog.Kind) error {
	if _, err := s.db.ExecContext(ctx, sqlDeleteMetadata, sourceID, kind.String()); err != nil {
		return fmt.Errorf("store: deleting %s metadata for %s: %w", kind, sourceID, err)
	}

	return nil
}
