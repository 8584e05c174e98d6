// Package store persists projects, progress, resources and imported
// workbooks in SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/evmboard/internal/model"

	"go.uber.org/zap"

	_ "modernc.org/sqlite" // register sqlite driver
)

var (
	// ErrNotFound is returned when a named project or file does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique name is already taken.
	ErrDuplicate = errors.New("already exists")
)

// Store is the SQLite-backed portfolio database.
type Store struct {
	db   *sql.DB
	path string
	log  *zap.Logger
}

// Open opens or creates the database at dbPath and seeds default categories.
func Open(dbPath string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	s := &Store{db: db, path: dbPath, log: log}
	if err := s.seedCategories(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Checkpoint folds the write-ahead log into the database file so the file
// alone holds every committed change.
func (s *Store) Checkpoint() error {
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("checkpointing wal: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) seedCategories() error {
	now := nowString()
	for _, c := range defaultCategories {
		_, err := s.db.Exec(`INSERT OR IGNORE INTO categories (category_name, description, created_at)
			VALUES (?, ?, ?)`, c.name, c.description, now)
		if err != nil {
			return fmt.Errorf("seeding categories: %w", err)
		}
	}
	return nil
}

// Stats reports project and record counts and the database file size.
func (s *Store) Stats() (model.Stats, error) {
	var st model.Stats
	if err := s.db.QueryRow("SELECT COUNT(*) FROM projects").Scan(&st.Projects); err != nil {
		return st, fmt.Errorf("counting projects: %w", err)
	}
	var progress, resources int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM progress").Scan(&progress); err != nil {
		return st, fmt.Errorf("counting progress: %w", err)
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM resources").Scan(&resources); err != nil {
		return st, fmt.Errorf("counting resources: %w", err)
	}
	st.Records = progress + resources

	if info, err := os.Stat(s.path); err == nil {
		st.SizeMB = float64(info.Size()) / (1024 * 1024)
	}
	return st, nil
}

// ClearAll removes every project, progress entry, resource and imported
// file. Categories are kept.
func (s *Store) ClearAll() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"progress", "resources", "projects", "original_files"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil { //nolint:gosec // fixed table names
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.log.Info("cleared all data")
	return nil
}

func nowString() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func dateValue(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(model.DateLayout), Valid: true}
}

func parseDate(ns sql.NullString) time.Time {
	if !ns.Valid || len(ns.String) < 10 {
		return time.Time{}
	}
	t, err := time.Parse(model.DateLayout, ns.String[:10])
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}
