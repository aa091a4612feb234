// Package localstore remembers which entries this installation uploaded. It
// is a non-authoritative cache: the backend's entry list is the source of
// truth and the store only lets the CLI show local history offline.
package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"redline/internal/config"
)

// Entry is one remembered upload.
type Entry struct {
	ID         string
	Filename   string
	UploadedAt time.Time
}

// timeLayout is fixed-width so stored timestamps sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store persists remembered entries in SQLite.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// Open connects to the store database, guarding it with a file lock so two
// processes never share the same database file.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.Paths.StorePath
	lock := flock.New(dbPath + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire store lock: %w", err)
	}
	if !ok {
		return nil, errors.New("another redline process is using the local store")
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, lock: lock}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}
	return store, nil
}

func (s *Store) applyMigrations(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS entries (
            id TEXT PRIMARY KEY,
            filename TEXT NOT NULL,
            uploaded_at TEXT NOT NULL
        )`)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close releases the database and the file lock.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var firstErr error
	if s.db != nil {
		firstErr = s.db.Close()
	}
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Remember records an uploaded entry. Re-remembering an id refreshes its
// filename and timestamp.
func (s *Store) Remember(ctx context.Context, id, filename string) error {
	if id == "" {
		return errors.New("entry id required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (id, filename, uploaded_at) VALUES (?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET filename = excluded.filename, uploaded_at = excluded.uploaded_at`,
		id, filename, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("remember entry: %w", err)
	}
	return nil
}

// Forget drops an entry from local history. Forgetting an unknown id is not
// an error.
func (s *Store) Forget(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("forget entry: %w", err)
	}
	return nil
}

// List returns remembered entries, newest first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, uploaded_at FROM entries ORDER BY uploaded_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var uploadedAt string
		if err := rows.Scan(&entry.ID, &entry.Filename, &uploadedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if parsed, parseErr := time.Parse(timeLayout, uploadedAt); parseErr == nil {
			entry.UploadedAt = parsed
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// Contains reports whether an entry id is remembered.
func (s *Store) Contains(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM entries WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup entry: %w", err)
	}
	return true, nil
}
