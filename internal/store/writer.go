package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/tonimelisma/iptv-sync/internal/catalog"
)

// Upserts rather than plain inserts: panels occasionally list the same
// stable id twice in one catalog, and the later record wins.
const (
	sqlUpsertChannel = `INSERT INTO live_channels
		(source_id, stream_id, num, name, icon, category_id, category_name,
		 epg_channel_id, tv_archive, added, favorite)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id, stream_id) DO UPDATE SET
		 num = excluded.num,
		 name = excluded.name,
		 icon = excluded.icon,
		 category_id = excluded.category_id,
		 category_name = excluded.category_name,
		 epg_channel_id = excluded.epg_channel_id,
		 tv_archive = excluded.tv_archive,
		 added = excluded.added,
		 favorite = excluded.favorite`

	sqlUpsertMovie = `INSERT INTO movies
		(source_id, stream_id, name, icon, category_id, category_name,
		 rating, extension, added, favorite, resume_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id, stream_id) DO UPDATE SET
		 name = excluded.name,
		 icon = excluded.icon,
		 category_id = excluded.category_id,
		 category_name = excluded.category_name,
		 rating = excluded.rating,
		 extension = excluded.extension,
		 added = excluded.added,
		 favorite = excluded.favorite,
		 resume_ms = excluded.resume_ms`

	sqlUpsertSeries = `INSERT INTO series
		(source_id, series_id, name, cover, category_id, category_name,
		 plot, genre, release_date, rating, last_modified, favorite)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id, series_id) DO UPDATE SET
		 name = excluded.name,
		 cover = excluded.cover,
		 category_id = excluded.category_id,
		 category_name = excluded.category_name,
		 plot = excluded.plot,
		 genre = excluded.genre,
		 release_date = excluded.release_date,
		 rating = excluded.rating,
		 last_modified = excluded.last_modified,
		 favorite = excluded.favorite`

	sqlDeleteCategories = `DELETE FROM categories WHERE source_id = ? AND kind = ?`
	sqlInsertCategory   = `INSERT INTO categories
		(source_id, kind, category_id, name, parent_id, position)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id, kind, category_id) DO UPDATE SET
		 name = excluded.name,
		 parent_id = excluded.parent_id,
		 position = excluded.position`
)

// WriteChannels commits channels in one transaction.
func (s *Store) WriteChannels(ctx context.Context, rows []catalog.Channel) error {
	return writeRows(ctx, s, "live_channels", sqlUpsertChannel, rows, func(c catalog.Channel) []any {
		return []any{
			c.SourceID, c.StreamID, c.Num, c.Name, c.Icon, c.CategoryID, c.CategoryName,
			c.EPGChannelID, boolInt(c.TVArchive), c.Added, boolInt(c.Favorite),
		}
	})
}

// WriteMovies commits movies in one transaction.
func (s *Store) WriteMovies(ctx context.Context, rows []catalog.Movie) error {
	return writeRows(ctx, s, "movies", sqlUpsertMovie, rows, func(m catalog.Movie) []any {
		return []any{
			m.SourceID, m.StreamID, m.Name, m.Icon, m.CategoryID, m.CategoryName,
			m.Rating, m.Extension, m.Added, boolInt(m.Favorite), m.ResumePosition.Milliseconds(),
		}
	})
}

// WriteSeries commits series entries in one transaction.
func (s *Store) WriteSeries(ctx context.Context, rows []catalog.SeriesItem) error {
	return writeRows(ctx, s, "series", sqlUpsertSeries, rows, func(r catalog.SeriesItem) []any {
		return []any{
			r.SourceID, r.SeriesID, r.Name, r.Cover, r.CategoryID, r.CategoryName,
			r.Plot, r.Genre, r.ReleaseDate, r.Rating, r.LastModified, boolInt(r.Favorite),
		}
	})
}

// writeRows is the shared body of the Write* methods: take the writer lock,
// open one transaction, and run a prepared statement per row.
func writeRows[T any](
	ctx context.Context, s *Store, tableName, query string, rows []T, args func(T) []any,
) error {
	if len(rows) == 0 {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.inTx(ctx, tableName+" write", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("store: preparing %s insert: %w", tableName, err)
		}
		defer stmt.Close()

		for i := range rows {
			if _, err := stmt.ExecContext(ctx, args(rows[i])...); err != nil {
				return fmt.Errorf("store: inserting into %s: %w", tableName, err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("chunk committed",
		slog.String("table", tableName),
		slog.Int("rows", len(rows)),
	)

	return nil
}

// DeleteSource removes every row of kind belonging to sourceID and returns
// how many were deleted. Other sources are untouched.
func (s *Store) DeleteSource(ctx context.Context, kind catalog.Kind, sourceID string) (int64, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return deleteRows(ctx, s.db, t, sourceID)
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func deleteRows(ctx context.Context, e execer, t table, sourceID string) (int64, error) {
	res, err := e.ExecContext(ctx, "DELETE FROM "+t.name+" WHERE source_id = ?", sourceID)
	if err != nil {
		return 0, fmt.Errorf("store: deleting %s rows for source %s: %w", t.name, sourceID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: counting deleted %s rows: %w", t.name, err)
	}

	return n, nil
}

// ReplaceCategories swaps the stored category list for (sourceID, kind) in
// one transaction, keeping the panel's order. The navigation tree built from
// the old list is dropped in the same transaction.
func (s *Store) ReplaceCategories(
	ctx context.Context, sourceID string, kind catalog.Kind, cats []catalog.Category,
) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.inTx(ctx, "category replace", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, sqlDeleteCategories, sourceID, kind.String()); err != nil {
			return fmt.Errorf("store: deleting %s categories for source %s: %w", kind, sourceID, err)
		}

		stmt, err := tx.PrepareContext(ctx, sqlInsertCategory)
		if err != nil {
			return fmt.Errorf("store: preparing category insert: %w", err)
		}
		defer stmt.Close()

		for i, c := range cats {
			if _, err := stmt.ExecContext(ctx, sourceID, kind.String(), c.CategoryID, c.Name, c.ParentID, i); err != nil {
				return fmt.Errorf("store: inserting category %s: %w", c.CategoryID, err)
			}
		}

		return deleteNav(ctx, tx, sourceID, kind)
	})
}

// ClearSource removes everything stored for sourceID across every kind:
// content rows, categories, cache metadata, and navigation groups.
func (s *Store) ClearSource(ctx context.Context, sourceID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	stmts := []string{
		"DELETE FROM live_channels WHERE source_id = ?",
		"DELETE FROM movies WHERE source_id = ?",
		"DELETE FROM series WHERE source_id = ?",
		"DELETE FROM categories WHERE source_id = ?",
		"DELETE FROM cache_metadata WHERE source_id = ?",
		"DELETE FROM nav_groups WHERE source_id = ?",
		"DELETE FROM nav_metadata WHERE source_id = ?",
	}

	err := s.inTx(ctx, "source clear", func(tx *sql.Tx) error {
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q, sourceID); err != nil {
				return fmt.Errorf("store: clearing source %s: %w", sourceID, err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("source cleared", slog.String("source", sourceID))

	return nil
}
