package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tonimelisma/iptv-sync/internal/catalog"
)

// DefaultPageLimit applies when a PageRequest leaves Limit at zero.
const DefaultPageLimit = 100

const (
	sqlSelectChannels = `SELECT source_id, stream_id, num, name, icon, category_id, category_name,
		epg_channel_id, tv_archive, added, favorite FROM live_channels`
	sqlSelectMovies = `SELECT source_id, stream_id, name, icon, category_id, category_name,
		rating, extension, added, favorite, resume_ms FROM movies`
	sqlSelectSeries = `SELECT source_id, series_id, name, cover, category_id, category_name,
		plot, genre, release_date, rating, last_modified, favorite FROM series`

	sqlSelectCategories = `SELECT category_id, name, parent_id FROM categories
		WHERE source_id = ? AND kind = ? ORDER BY position`
)

// Channels returns one page of live channels ordered by channel number.
func (s *Store) Channels(ctx context.Context, req catalog.PageRequest) ([]catalog.Channel, error) {
	return readPage(ctx, s, sqlSelectChannels, "num, name", req, func(rows *sql.Rows) (catalog.Channel, error) {
		var c catalog.Channel
		err := rows.Scan(&c.SourceID, &c.StreamID, &c.Num, &c.Name, &c.Icon, &c.CategoryID, &c.CategoryName,
			&c.EPGChannelID, &c.TVArchive, &c.Added, &c.Favorite)

		return c, err
	})
}

// Movies returns one page of movies ordered by name.
func (s *Store) Movies(ctx context.Context, req catalog.PageRequest) ([]catalog.Movie, error) {
	return readPage(ctx, s, sqlSelectMovies, "name, stream_id", req, func(rows *sql.Rows) (catalog.Movie, error) {
		var (
			m        catalog.Movie
			resumeMS int64
		)

		err := rows.Scan(&m.SourceID, &m.StreamID, &m.Name, &m.Icon, &m.CategoryID, &m.CategoryName,
			&m.Rating, &m.Extension, &m.Added, &m.Favorite, &resumeMS)
		m.ResumePosition = time.Duration(resumeMS) * time.Millisecond

		return m, err
	})
}

// Series returns one page of series ordered by name.
func (s *Store) Series(ctx context.Context, req catalog.PageRequest) ([]catalog.SeriesItem, error) {
	return readPage(ctx, s, sqlSelectSeries, "name, series_id", req, func(rows *sql.Rows) (catalog.SeriesItem, error) {
		var r catalog.SeriesItem
		err := rows.Scan(&r.SourceID, &r.SeriesID, &r.Name, &r.Cover, &r.CategoryID, &r.CategoryName,
			&r.Plot, &r.Genre, &r.ReleaseDate, &r.Rating, &r.LastModified, &r.Favorite)

		return r, err
	})
}

func readPage[T any](
	ctx context.Context, s *Store, base, orderBy string, req catalog.PageRequest,
	scan func(*sql.Rows) (T, error),
) ([]T, error) {
	where, args := pageFilter(req)

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}

	query := base + where + " ORDER BY " + orderBy + " LIMIT ? OFFSET ?"
	args = append(args, limit, max(req.Offset, 0))

	rows, err := s.rdb.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: reading %s page: %w", req.Kind, err)
	}
	defer rows.Close()

	out := make([]T, 0, limit)

	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scanning %s row: %w", req.Kind, err)
		}

		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterating %s page: %w", req.Kind, err)
	}

	return out, nil
}

func pageFilter(req catalog.PageRequest) (string, []any) {
	conds := []string{"source_id = ?"}
	args := []any{req.SourceID}

	if req.CategoryID != "" {
		conds = append(conds, "category_id = ?")
		args = append(args, req.CategoryID)
	}

	if req.FavoritesOnly {
		conds = append(conds, "favorite = 1")
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

// Count returns how many rows of kind are stored for sourceID.
func (s *Store) Count(ctx context.Context, kind catalog.Kind, sourceID string) (int, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}

	var n int
	if err := s.rdb.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.name+" WHERE source_id = ?", sourceID).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: counting %s: %w", t.name, err)
	}

	return n, nil
}

// Categories returns the stored categories of kind for sourceID in panel order.
func (s *Store) Categories(ctx context.Context, sourceID string, kind catalog.Kind) ([]catalog.Category, error) {
	rows, err := s.rdb.QueryContext(ctx, sqlSelectCategories, sourceID, kind.String())
	if err != nil {
		return nil, fmt.Errorf("store: reading %s categories: %w", kind, err)
	}
	defer rows.Close()

	var out []catalog.Category

	for rows.Next() {
		c := catalog.Category{SourceID: sourceID, Kind: kind}
		if err := rows.Scan(&c.CategoryID, &c.Name, &c.ParentID); err != nil {
			return nil, fmt.Errorf("store: scanning category: %w", err)
		}

		out = append(out, c)
	}

	return out, rows.Err()
}
