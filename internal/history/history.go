// Package history is the terminal-outcome ledger `siphon ls` and `siphon
// status` read from. It records one row per finished download (completed,
// failed, or cancelled) — it has no notion of in-flight chunk state and
// cannot resume a download; see the chunked engine for that.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Status values a ledger Entry can carry.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Entry is one terminal download outcome.
type Entry struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Filename    string    `json:"filename"`
	Destination string    `json:"destination"`
	TotalSize   int64     `json:"total_size"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Elapsed returns how long the download ran.
func (e Entry) Elapsed() time.Duration {
	return e.CompletedAt.Sub(e.StartedAt)
}

// Store is a SQLite-backed ledger. The zero value is not usable; construct
// one with Open.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the ledger database at path and
// ensures its schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history db %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite has no internal connection pool locking

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS downloads (
	id           TEXT PRIMARY KEY,
	url          TEXT NOT NULL,
	filename     TEXT NOT NULL,
	destination  TEXT NOT NULL,
	total_size   INTEGER NOT NULL,
	status       TEXT NOT NULL,
	error        TEXT,
	started_at   INTEGER NOT NULL,
	completed_at INTEGER NOT NULL
);
`

// Record inserts one terminal outcome, assigning a fresh ID if e.ID is
// empty.
func (s *Store) Record(e Entry) (string, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}

	_, err := s.db.Exec(`
		INSERT INTO downloads (id, url, filename, destination, total_size, status, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status=excluded.status,
			error=excluded.error,
			completed_at=excluded.completed_at
	`, e.ID, e.URL, e.Filename, e.Destination, e.TotalSize, e.Status, e.Error,
		e.StartedAt.Unix(), e.CompletedAt.Unix())
	if err != nil {
		return "", fmt.Errorf("recording history entry: %w", err)
	}
	return e.ID, nil
}

// List returns every entry, most recently completed first.
func (s *Store) List() ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT id, url, filename, destination, total_size, status, error, started_at, completed_at
		FROM downloads
		ORDER BY completed_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns a single entry by exact ID, or (Entry{}, false, nil) if none
// matches.
func (s *Store) Get(id string) (Entry, bool, error) {
	row := s.db.QueryRow(`
		SELECT id, url, filename, destination, total_size, status, error, started_at, completed_at
		FROM downloads WHERE id = ?
	`, id)

	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("getting history entry %q: %w", id, err)
	}
	return e, true, nil
}

// ResolvePrefix resolves a (possibly partial, lowercase-hex) ID prefix to
// the one entry it uniquely matches. An empty prefix is an error, and so is
// an ambiguous one, whose error reports how many downloads it matches.
func (s *Store) ResolvePrefix(prefix string) (Entry, error) {
	if prefix == "" {
		return Entry{}, fmt.Errorf("empty download id")
	}

	entries, err := s.List()
	if err != nil {
		return Entry{}, err
	}

	var matches []Entry
	for _, e := range entries {
		if len(e.ID) >= len(prefix) && e.ID[:len(prefix)] == prefix {
			matches = append(matches, e)
		}
	}

	switch len(matches) {
	case 0:
		return Entry{}, fmt.Errorf("no download matches id %q", prefix)
	case 1:
		return matches[0], nil
	default:
		return Entry{}, fmt.Errorf("id %q is ambiguous, matches %d downloads", prefix, len(matches))
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(r rowScanner) (Entry, error) {
	var e Entry
	var errMsg sql.NullString
	var started, completed int64

	if err := r.Scan(&e.ID, &e.URL, &e.Filename, &e.Destination, &e.TotalSize,
		&e.Status, &errMsg, &started, &completed); err != nil {
		return Entry{}, err
	}

	if errMsg.Valid {
		e.Error = errMsg.String
	}
	e.StartedAt = time.Unix(started, 0)
	e.CompletedAt = time.Unix(completed, 0)
	return e, nil
}
