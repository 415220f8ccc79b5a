// Package archive keeps a local SQLite record of finalized sessions for the
// sessions and tui commands. It is strictly best-effort: the hook path never
// blocks on it.
package archive

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register sqlite driver

	"github.com/theirongolddev/ccrelay/internal/collector"
)

// Session is one archived (finalized) session.
type Session struct {
	SessionID    string
	Title        string
	Model        string
	InputTokens  int64
	OutputTokens int64
	MessageCount int
	ToolCalls    int
	CostUSD      float64
	DurationMS   int64
	EndedAt      time.Time
}

// Totals aggregates the archive for summary footers.
type Totals struct {
	Sessions     int
	InputTokens  int64
	OutputTokens int64
	CostUSD      float64
}

// DB provides the SQLite-backed archive.
type DB struct {
	db *sql.DB
}

// Open opens or creates the archive database at the given path.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating archive dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)")
	if err != nil {
		return nil, fmt.Errorf("opening archive db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the archive database.
func (a *DB) Close() error {
	return a.db.Close()
}

// SaveFinal upserts the final session record emitted on SessionEnd.
func (a *DB) SaveFinal(rec collector.SessionRecord) error {
	s := Session{SessionID: rec.SessionID}
	if rec.Title != nil {
		s.Title = *rec.Title
	}
	if rec.Model != nil {
		s.Model = *rec.Model
	}
	if rec.InputTokens != nil {
		s.InputTokens = *rec.InputTokens
	}
	if rec.OutputTokens != nil {
		s.OutputTokens = *rec.OutputTokens
	}
	if rec.MessageCount != nil {
		s.MessageCount = *rec.MessageCount
	}
	if rec.ToolCallCount != nil {
		s.ToolCalls = *rec.ToolCallCount
	}
	if rec.CostUSD != nil {
		s.CostUSD = *rec.CostUSD
	}
	if rec.DurationMS != nil {
		s.DurationMS = *rec.DurationMS
	}
	if rec.EndedAt != nil {
		s.EndedAt = *rec.EndedAt
	}
	return a.Save(s)
}

// Save upserts one session.
func (a *DB) Save(s Session) error {
	endedAt := ""
	if !s.EndedAt.IsZero() {
		endedAt = s.EndedAt.UTC().Format(time.RFC3339)
	}
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := a.db.Exec(`INSERT OR REPLACE INTO sessions
		(session_id, title, model, input_tokens, output_tokens,
		 message_count, tool_calls, cost_usd, duration_ms, ended_at, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.SessionID, s.Title, s.Model, s.InputTokens, s.OutputTokens,
		s.MessageCount, s.ToolCalls, s.CostUSD, s.DurationMS, endedAt, now,
	)
	return err
}

// List returns archived sessions, most recently ended first.
func (a *DB) List(limit int) ([]Session, error) {
	rows, err := a.db.Query(`SELECT
		session_id, title, model, input_tokens, output_tokens,
		message_count, tool_calls, cost_usd, duration_ms, ended_at
		FROM sessions ORDER BY ended_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var sessions []Session
	for rows.Next() {
		var s Session
		var endedStr sql.NullString
		err := rows.Scan(&s.SessionID, &s.Title, &s.Model, &s.InputTokens, &s.OutputTokens,
			&s.MessageCount, &s.ToolCalls, &s.CostUSD, &s.DurationMS, &endedStr)
		if err != nil {
			return nil, err
		}
		if endedStr.Valid && endedStr.String != "" {
			s.EndedAt, _ = time.Parse(time.RFC3339, endedStr.String)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Aggregate returns archive-wide totals.
func (a *DB) Aggregate() (Totals, error) {
	var t Totals
	err := a.db.QueryRow(`SELECT COUNT(*),
		COALESCE(SUM(input_tokens), 0),
		COALESCE(SUM(output_tokens), 0),
		COALESCE(SUM(cost_usd), 0)
		FROM sessions`).Scan(&t.Sessions, &t.InputTokens, &t.OutputTokens, &t.CostUSD)
	return t, err
}
