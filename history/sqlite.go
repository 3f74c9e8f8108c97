package history

import (
	"context"
	"database/sql"
	"sync"
	"time"

	// Registers the sqlite3 database/sql driver.
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Store persists frame history in SQLite. It is safe for concurrent use.
type Store struct {
	conn *sql.DB
	mu   sync.RWMutex
}

// OpenStore opens (creating if needed) a history database at path.
func OpenStore(path string) (*Store, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to migrate database")
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS frames (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		frame_number INTEGER NOT NULL,
		person_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_frames_frame_number ON frames(frame_number);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// Insert stores one entry.
func (s *Store) Insert(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO frames (timestamp, frame_number, person_count) VALUES (?, ?, ?)`,
		e.Timestamp.UTC().Format(time.RFC3339Nano), e.FrameNumber, e.PersonCount)
	return errors.Wrapf(err, "insert frame %d", e.FrameNumber)
}

// Recent returns up to limit of the newest entries, oldest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DisplayWindow
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.QueryContext(ctx, `
		SELECT timestamp, frame_number, person_count FROM (
			SELECT id, timestamp, frame_number, person_count FROM frames ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query frames")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e  Entry
			ts string
		)
		if err := rows.Scan(&ts, &e.FrameNumber, &e.PersonCount); err != nil {
			return nil, errors.Wrap(err, "scan frame")
		}
		e.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, errors.Wrapf(err, "parse timestamp %q", ts)
		}
		entries = append(entries, e)
	}
	return entries, errors.Wrap(rows.Err(), "iterate frames")
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM frames`).Scan(&n)
	return n, errors.Wrap(err, "count frames")
}

// Clear deletes every entry.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.ExecContext(ctx, `DELETE FROM frames`)
	return errors.Wrap(err, "clear frames")
}

// Close closes the database.
func (s *Store) Close() error {
	return s.conn.Close()
}

// DisplayEntries returns the last DisplayWindow entries, read from s when it is not nil
// and from l otherwise.
func DisplayEntries(ctx context.Context, l *Log, s *Store) ([]Entry, error) {
	if s != nil {
		return s.Recent(ctx, DisplayWindow)
	}
	return l.Recent(DisplayWindow), nil
}
