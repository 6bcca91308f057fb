// Package archive keeps an append-only sqlite log of chat exchanges for
// later review. Nothing here is ever replayed into a live session.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Entry is one archived exchange outcome.
type Entry struct {
	SessionID  string
	UserText   string
	ReplyText  string
	Outcome    string
	StatusCode int // HTTP status for failed requests, 0 otherwise
	CreatedAt  time.Time
}

// Store writes exchange outcomes to sqlite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the archive database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows a single writer.
	db.SetMaxOpenConns(1)

	createExchangesTable := `
	CREATE TABLE IF NOT EXISTS exchanges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		user_text TEXT,
		reply_text TEXT,
		outcome TEXT NOT NULL,
		status_code INTEGER,
		created_at DATETIME
	);`

	createSessionIndex := `
	CREATE INDEX IF NOT EXISTS idx_exchanges_session ON exchanges(session_id, id);`

	if _, err := db.Exec(createExchangesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create exchanges table: %w", err)
	}

	if _, err := db.Exec(createSessionIndex); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create exchanges index: %w", err)
	}

	return &Store{db: db}, nil
}

// Record appends one exchange outcome.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO exchanges (session_id, user_text, reply_text, outcome, status_code, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		e.SessionID, e.UserText, e.ReplyText, e.Outcome, e.StatusCode, e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record exchange: %w", err)
	}
	return nil
}

// Recent returns up to limit of the newest entries for sessionID, oldest first.
func (s *Store) Recent(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, user_text, reply_text, outcome, status_code, created_at FROM (
			SELECT * FROM exchanges WHERE session_id = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load exchanges: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.SessionID, &e.UserText, &e.ReplyText, &e.Outcome, &e.StatusCode, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan exchange: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate exchanges: %w", err)
	}
	return entries, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
