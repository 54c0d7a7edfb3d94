// Package store is the local SQLite catalog. One connection writes (bulk
// sync chunks, category replacement, metadata, favorites); a separate pool
// serves paged reads, which WAL mode lets proceed while a write is open.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	// Pure-Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by single-row updates that match nothing.
var ErrNotFound = errors.New("store: record not found")

const (
	writerPragmas = "_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)" +
		"&_pragma=busy_timeout(5000)&_pragma=journal_size_limit(67108864)"
	readerPragmas = "_pragma=busy_timeout(5000)&_pragma=query_only(1)"

	maxReaders = 4
)

// Store owns the catalog database.
type Store struct {
	db  *sql.DB // sole writer
	rdb *sql.DB // read-only pool

	// writeMu is the bulk serialization point shared by every BatchWriter
	// operation across all kinds. Favorite and resume updates bypass it.
	writeMu sync.Mutex

	logger *slog.Logger
}

// Open opens (creating if needed) the database at dbPath, applies migrations,
// and restores any secondary indexes a crashed bulk load left dropped.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?%s", dbPath, writerPragmas))
	if err != nil {
		return nil, fmt.Errorf("store: opening database %s: %w", dbPath, err)
	}

	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	rdb, err := sql.Open("sqlite", fmt.Sprintf("file:%s?%s", dbPath, readerPragmas))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: opening read pool %s: %w", dbPath, err)
	}

	rdb.SetMaxOpenConns(maxReaders)

	s := &Store{
		db:     db,
		rdb:    rdb,
		logger: logger,
	}

	if err := s.ensureIndexes(ctx); err != nil {
		s.Close()
		return nil, err
	}

	logger.Info("store opened", slog.String("db_path", dbPath))

	return s, nil
}

// Close closes both handles.
func (s *Store) Close() error {
	return errors.Join(s.rdb.Close(), s.db.Close())
}

// inTx runs fn inside one write transaction on the writer connection.
func (s *Store) inTx(ctx context.Context, what string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: beginning %s transaction: %w", what, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: committing %s: %w", what, err)
	}

	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}

	return 0
}
