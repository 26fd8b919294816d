// Package store handles SQLite persistence of the local session history.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/sarge/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrNoSession is returned when a session id does not exist.
var ErrNoSession = errors.New("session not found")

// Store wraps SQLite access for session history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT,
			goal TEXT NOT NULL,
			work_minutes INTEGER NOT NULL,
			break_minutes INTEGER NOT NULL,
			ended_early INTEGER NOT NULL DEFAULT 0,
			session_xp INTEGER NOT NULL DEFAULT 0,
			estimated_penalty INTEGER NOT NULL DEFAULT 0,
			focus_minutes INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS judgments (
			id INTEGER PRIMARY KEY,
			session_id INTEGER,
			observed_at TEXT NOT NULL,
			classification TEXT NOT NULL,
			reason TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at);`,
		`CREATE INDEX IF NOT EXISTS idx_judgments_session ON judgments(session_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertSessionStart records a session this client started and returns its id.
func (s *Store) InsertSessionStart(ctx context.Context, startedAt time.Time, goal string, workMinutes, breakMinutes int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (started_at, goal, work_minutes, break_minutes) VALUES (?, ?, ?, ?)`,
		startedAt.Format(time.RFC3339Nano), goal, workMinutes, breakMinutes)
	if err != nil {
		return 0, fmt.Errorf("insert session: %w", err)
	}
	return res.LastInsertId()
}

// Finish describes how a session ended.
type Finish struct {
	EndedAt          time.Time
	EndedEarly       bool
	SessionXP        int
	EstimatedPenalty int
	FocusMinutes     int
}

// FinishSession stamps the end of a session.
func (s *Store) FinishSession(ctx context.Context, id int64, f Finish) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ?, ended_early = ?, session_xp = ?, estimated_penalty = ?, focus_minutes = ?
		 WHERE id = ?`,
		f.EndedAt.Format(time.RFC3339Nano), f.EndedEarly, f.SessionXP, f.EstimatedPenalty, f.FocusMinutes, id)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoSession
	}
	return nil
}

// OpenSession returns the most recent session without an end time, if any.
func (s *Store) OpenSession(ctx context.Context) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM sessions WHERE ended_at IS NULL ORDER BY started_at DESC, id DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// ListSessions returns sessions in start order, filtered by filter.
func (s *Store) ListSessions(ctx context.Context, filter model.HistoryFilter) ([]model.HistoryEntry, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Since != nil {
		clauses = append(clauses, "started_at >= ?")
		args = append(args, filter.Since.Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, started_at, ended_at, goal, work_minutes, break_minutes,
		ended_early, session_xp, estimated_penalty, focus_minutes
		FROM sessions
		WHERE %s
		ORDER BY started_at DESC, id DESC`, strings.Join(clauses, " AND "))
	if filter.Last > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Last)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var entries []model.HistoryEntry
	for rows.Next() {
		var (
			e         model.HistoryEntry
			startedAt string
			endedAt   sql.NullString
		)
		if err := rows.Scan(&e.ID, &startedAt, &endedAt, &e.Goal, &e.WorkMinutes, &e.BreakMinutes,
			&e.EndedEarly, &e.SessionXP, &e.EstimatedPenalty, &e.FocusMinutes); err != nil {
			return nil, err
		}
		if e.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, err
		}
		if endedAt.Valid {
			parsed, err := time.Parse(time.RFC3339Nano, endedAt.String)
			if err != nil {
				return nil, err
			}
			e.EndedAt = &parsed
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// InsertJudgment records an observed classification change. sessionID 0
// stores the judgment without a session.
func (s *Store) InsertJudgment(ctx context.Context, sessionID int64, j model.JudgmentEntry) error {
	var sid any
	if sessionID > 0 {
		sid = sessionID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO judgments (session_id, observed_at, classification, reason) VALUES (?, ?, ?, ?)`,
		sid, j.ObservedAt.Format(time.RFC3339Nano), j.Classification, j.Reason)
	if err != nil {
		return fmt.Errorf("insert judgment: %w", err)
	}
	return nil
}

// ListJudgments returns judgments recorded for a session in observation order.
func (s *Store) ListJudgments(ctx context.Context, sessionID int64) ([]model.JudgmentEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT observed_at, classification, reason FROM judgments
		 WHERE session_id = ?
		 ORDER BY observed_at ASC, id ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.JudgmentEntry
	for rows.Next() {
		var (
			j          model.JudgmentEntry
			observedAt string
		)
		if err := rows.Scan(&observedAt, &j.Classification, &j.Reason); err != nil {
			return nil, err
		}
		if j.ObservedAt, err = time.Parse(time.RFC3339Nano, observedAt); err != nil {
			return nil, err
		}
		result = append(result, j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CountJudgments returns the number of judgments per classification for a
// session.
func (s *Store) CountJudgments(ctx context.Context, sessionID int64) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT classification, COUNT(*) FROM judgments WHERE session_id = ? GROUP BY classification`, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	counts := map[string]int{}
	for rows.Next() {
		var (
			class string
			n     int
		)
		if err := rows.Scan(&class, &n); err != nil {
			return nil, err
		}
		counts[class] = n
	}
	return counts, rows.Err()
}
