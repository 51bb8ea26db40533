// Package history archives document content before it is overwritten by a sync.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// ErrNoSnapshot is returned by Latest when a document has never been archived.
var ErrNoSnapshot = errors.New("no snapshot archived for document")

// Snapshot is the content of a document captured before an overwrite.
type Snapshot struct {
	ID          int64
	DocumentID  string
	PeriodLabel string
	Content     string
	CreatedAt   time.Time
}

// Archive stores and retrieves snapshots.
type Archive interface {
	Save(ctx context.Context, s Snapshot) (int64, error)
	Latest(ctx context.Context, documentID string) (Snapshot, error)
	List(ctx context.Context, limit int) ([]Snapshot, error)
	Close() error
}

// Store is the SQLite implementation of Archive.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ Archive = &Store{} // Compile-time check

const createTableQuery = `
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		document_id TEXT NOT NULL,
		period_label TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_document ON snapshots (document_id, created_at);
`

// Open opens the archive at path, creating the file and its schema when missing.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create archive directory %q: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite archive at %q: %w. Ensure the directory is writable", path, err)
	}
	// Limit SQLite to a single open connection to avoid "database is locked" errors
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open SQLite archive at %q: %w", path, err)
	}
	if _, err := db.Exec(createTableQuery); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create snapshots table: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Save records a snapshot and returns its id. A zero CreatedAt is set to the current time.
func (s *Store) Save(ctx context.Context, snap Snapshot) (int64, error) {
	if snap.DocumentID == "" {
		return 0, errors.New("snapshot has no document id")
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = s.now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (document_id, period_label, content, created_at) VALUES (?, ?, ?, ?)`,
		snap.DocumentID, snap.PeriodLabel, snap.Content, snap.CreatedAt.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to save snapshot of %s: %w", snap.DocumentID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read snapshot id: %w", err)
	}
	return id, nil
}

// Latest returns the most recent snapshot of documentID, or ErrNoSnapshot.
func (s *Store) Latest(ctx context.Context, documentID string) (Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, document_id, period_label, content, created_at FROM snapshots
		 WHERE document_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`, documentID)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("%w %s", ErrNoSnapshot, documentID)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read latest snapshot of %s: %w", documentID, err)
	}
	return snap, nil
}

// List returns up to limit snapshots, newest first. A non-positive limit returns all of them.
func (s *Store) List(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, period_label, content, created_at FROM snapshots
		 ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (Snapshot, error) {
	var snap Snapshot
	var created int64
	if err := row.Scan(&snap.ID, &snap.DocumentID, &snap.PeriodLabel, &snap.Content, &created); err != nil {
		return Snapshot{}, err
	}
	snap.CreatedAt = time.Unix(0, created)
	return snap, nil
}
