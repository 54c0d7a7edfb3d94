package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tonimelisma/iptv-sync/internal/catalog"
)

// Favorite and resume updates are single-row writes issued from playback.
// They go straight to the writer connection without writeMu, so a running
// bulk sync delays them by at most one chunk transaction.

// SetFavorite flags or unflags one record. ErrNotFound if the id is not
// stored for sourceID.
func (s *Store) SetFavorite(ctx context.Context, kind catalog.Kind, sourceID string, id int64, fav bool) error {
	t, err := tableFor(kind)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE "+t.name+" SET favorite = ? WHERE source_id = ? AND "+t.idColumn+" = ?",
		boolInt(fav), sourceID, id)
	if err != nil {
		return fmt.Errorf("store: updating favorite on %s %d: %w", t.name, id, err)
	}

	return requireOneRow(res.RowsAffected())
}

// SetResumePosition stores the playback offset of a movie.
func (s *Store) SetResumePosition(ctx context.Context, sourceID string, streamID int64, pos time.Duration) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE movies SET resume_ms = ? WHERE source_id = ? AND stream_id = ?",
		pos.Milliseconds(), sourceID, streamID)
	if err != nil {
		return fmt.Errorf("store: updating resume position on movie %d: %w", streamID, err)
	}

	return requireOneRow(res.RowsAffected())
}

// PreservedState snapshots the favorites (and, for movies, resume positions)
// of sourceID so they can be re-applied after the rows are replaced.
func (s *Store) PreservedState(ctx context.Context, kind catalog.Kind, sourceID string) (catalog.Preserved, error) {
	t, err := tableFor(kind)
	if err != nil {
		return catalog.Preserved{}, err
	}

	return readPreserved(ctx, s.db, kind, t, sourceID)
}

// DeleteSourcePreserving snapshots the user state of sourceID's rows of kind
// and deletes those rows in one transaction. A favorite or resume update
// either lands before the snapshot and is carried over, or finds no row and
// gets ErrNotFound.
func (s *Store) DeleteSourcePreserving(
	ctx context.Context, kind catalog.Kind, sourceID string,
) (catalog.Preserved, int64, error) {
	t, err := tableFor(kind)
	if err != nil {
		return catalog.Preserved{}, 0, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var (
		p       catalog.Preserved
		deleted int64
	)

	err = s.inTx(ctx, "source replace", func(tx *sql.Tx) error {
		var err error

		if p, err = readPreserved(ctx, tx, kind, t, sourceID); err != nil {
			return err
		}

		deleted, err = deleteRows(ctx, tx, t, sourceID)

		return err
	})
	if err != nil {
		return catalog.Preserved{}, 0, err
	}

	return p, deleted, nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func readPreserved(
	ctx context.Context, q querier, kind catalog.Kind, t table, sourceID string,
) (catalog.Preserved, error) {
	p := catalog.Preserved{
		Favorites: make(map[int64]bool),
		Resume:    make(map[int64]time.Duration),
	}

	query := "SELECT " + t.idColumn + ", favorite, 0 FROM " + t.name +
		" WHERE source_id = ? AND favorite = 1"
	if kind == catalog.KindMovie {
		query = "SELECT stream_id, favorite, resume_ms FROM movies" +
			" WHERE source_id = ? AND (favorite = 1 OR resume_ms > 0)"
	}

	rows, err := q.QueryContext(ctx, query, sourceID)
	if err != nil {
		return catalog.Preserved{}, fmt.Errorf("store: reading preserved state of %s: %w", t.name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id       int64
			fav      bool
			resumeMS int64
		)

		if err := rows.Scan(&id, &fav, &resumeMS); err != nil {
			return catalog.Preserved{}, fmt.Errorf("store: scanning preserved state: %w", err)
		}

		if fav {
			p.Favorites[id] = true
		}

		if resumeMS > 0 {
			p.Resume[id] = time.Duration(resumeMS) * time.Millisecond
		}
	}

	if err := rows.Err(); err != nil {
		return catalog.Preserved{}, fmt.Errorf("store: iterating preserved state: %w", err)
	}

	return p, nil
}

func requireOneRow(n int64, err error) error {
	if err != nil {
		return fmt.Errorf("store: counting updated rows: %w", err)
	}

	if n == 0 {
		return ErrNotFound
	}

	return nil
}
