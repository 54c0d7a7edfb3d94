package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tonimelisma/iptv-sync/internal/catalog"
)

// BulkSession suspends a kind's secondary indexes for the duration of a bulk
// load. Callers defer End immediately after BeginBulk succeeds.
type BulkSession struct {
	store *Store
	kind  catalog.Kind

	once sync.Once
	err  error
}

// BeginBulk drops the secondary indexes of kind's table.
func (s *Store) BeginBulk(ctx context.Context, kind catalog.Kind) (*BulkSession, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	for _, idx := range t.indexes {
		if _, err := s.db.ExecContext(ctx, "DROP INDEX IF EXISTS "+idx.name); err != nil {
			// Put back whatever was already dropped.
			rebuildErr := s.createIndexes(context.WithoutCancel(ctx), t)
			if rebuildErr != nil {
				s.logger.Error("restoring indexes after failed bulk begin",
					slog.String("table", t.name),
					slog.String("error", rebuildErr.Error()),
				)
			}

			return nil, fmt.Errorf("store: dropping index %s: %w", idx.name, err)
		}
	}

	s.logger.Debug("bulk mode started", slog.String("table", t.name))

	return &BulkSession{store: s, kind: kind}, nil
}

// End recreates the suspended indexes. It runs even when ctx is already
// canceled (a timed-out sync still rebuilds) and is safe to call repeatedly;
// only the first call does work.
func (b *BulkSession) End(ctx context.Context) error {
	b.once.Do(func() {
		t, err := tableFor(b.kind)
		if err != nil {
			b.err = err
			return
		}

		b.store.writeMu.Lock()
		defer b.store.writeMu.Unlock()

		b.err = b.store.createIndexes(context.WithoutCancel(ctx), t)
		if b.err == nil {
			b.store.logger.Debug("bulk mode ended", slog.String("table", t.name))
		}
	})

	return b.err
}

// createIndexes creates t's secondary indexes that do not exist. Caller
// holds writeMu (or is Open, before the store is shared).
func (s *Store) createIndexes(ctx context.Context, t table) error {
	for _, idx := range t.indexes {
		if _, err := s.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS "+idx.name+" "+idx.ddl); err != nil {
			return fmt.Errorf("store: creating index %s: %w", idx.name, err)
		}
	}

	return nil
}

// ensureIndexes restores indexes left dropped by a process that died
// mid-bulk-load.
func (s *Store) ensureIndexes(ctx context.Context) error {
	for _, kind := range catalog.AllKinds {
		if err := s.createIndexes(ctx, tables[kind]); err != nil {
			return err
		}
	}

	return nil
}

// indexNames lists the secondary indexes currently present on kind's table.
func (s *Store) indexNames(ctx context.Context, kind catalog.Kind) ([]string, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	rows, err := s.rdb.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ? AND sql IS NOT NULL ORDER BY name`,
		t.name)
	if err != nil {
		return nil, fmt.Errorf("store: listing indexes of %s: %w", t.name, err)
	}
	defer rows.Close()

	var names []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("store: scanning index name: %w", err)
		}

		names = append(names, name)
	}

	return names, rows.Err()
}

// MissingIndexes lists the secondary indexes of kind's table that do not
// currently exist. Empty outside of a bulk load.
func (s *Store) MissingIndexes(ctx context.Context, kind catalog.Kind) ([]string, error) {
	present, err := s.indexNames(ctx, kind)
	if err != nil {
		return nil, err
	}

	have := make(map[string]bool, len(present))
	for _, name := range present {
		have[name] = true
	}

	var missing []string

	for _, idx := range tables[kind].indexes {
		if !have[idx.name] {
			missing = append(missing, idx.name)
		}
	}

	return missing, nil
}
