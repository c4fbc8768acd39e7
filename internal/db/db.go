package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const lastSessionKey = "last_session"

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}
	return &DB{sql: conn}, nil
}

func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) Migrate() error {
	_, err := d.sql.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create metadata: %w", err)
	}

	_, err = d.sql.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			base_url   TEXT NOT NULL DEFAULT '',
			first_seen INTEGER NOT NULL,
			last_used  INTEGER NOT NULL,
			frames     INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return fmt.Errorf("create sessions: %w", err)
	}

	_, err = d.sql.Exec(`
		CREATE TABLE IF NOT EXISTS session_events (
			id         INTEGER PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			ts         INTEGER NOT NULL,
			event_type TEXT NOT NULL,
			detail     TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		return fmt.Errorf("create session_events: %w", err)
	}

	if _, err := d.sql.Exec(`CREATE INDEX IF NOT EXISTS idx_session_events_session_id ON session_events(session_id, ts DESC)`); err != nil {
		return fmt.Errorf("index session_events: %w", err)
	}
	return nil
}

// TouchSession records that id is in use against baseURL, inserting it on
// first sight.
func (d *DB) TouchSession(id, baseURL string, now time.Time) error {
	ms := now.UnixMilli()
	_, err := d.sql.Exec(`
		INSERT INTO sessions (id, base_url, first_seen, last_used) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET base_url = excluded.base_url, last_used = excluded.last_used`,
		id, baseURL, ms, ms)
	return err
}

// AddFrames bumps the received-frame counter of a known session.
func (d *DB) AddFrames(id string, n int) error {
	_, err := d.sql.Exec("UPDATE sessions SET frames = frames + ? WHERE id = ?", n, id)
	return err
}

func (d *DB) GetSession(id string) (*Session, error) {
	row := d.sql.QueryRow(`
		SELECT id, base_url, first_seen, last_used, frames
		FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

// LoadSessions returns known sessions, most recently used first.
func (d *DB) LoadSessions() ([]*Session, error) {
	rows, err := d.sql.Query(`
		SELECT id, base_url, first_seen, last_used, frames
		FROM sessions ORDER BY last_used DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sessions []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// DeleteSession forgets a session and its history. If it was the last
// session it is cleared too.
func (d *DB) DeleteSession(id string) error {
	if _, err := d.sql.Exec("DELETE FROM sessions WHERE id = ?", id); err != nil {
		return err
	}
	last, err := d.LastSession()
	if err != nil {
		return err
	}
	if last == id {
		return d.SetLastSession("")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var s Session
	var firstSeen, lastUsed int64
	if err := row.Scan(&s.ID, &s.BaseURL, &firstSeen, &lastUsed, &s.Frames); err != nil {
		return nil, err
	}
	s.FirstSeen = time.UnixMilli(firstSeen)
	s.LastUsed = time.UnixMilli(lastUsed)
	return &s, nil
}

// SetLastSession stores the session to resume on next start. An empty id
// clears it.
func (d *DB) SetLastSession(id string) error {
	if id == "" {
		_, err := d.sql.Exec("DELETE FROM metadata WHERE key = ?", lastSessionKey)
		return err
	}
	return d.SetMeta(lastSessionKey, id)
}

// LastSession returns the session to resume, or "" if none is stored.
func (d *DB) LastSession() (string, error) {
	return d.GetMeta(lastSessionKey)
}

func (d *DB) SetMeta(key, value string) error {
	_, err := d.sql.Exec("INSERT OR REPLACE INTO metadata (key, value) VALUES (?, ?)", key, value)
	return err
}

// GetMeta returns "" for a missing key.
func (d *DB) GetMeta(key string) (string, error) {
	var v string
	err := d.sql.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

func (d *DB) InsertSessionEvent(sessionID, eventType, detail string, now time.Time) error {
	_, err := d.sql.Exec(
		`INSERT INTO session_events (session_id, ts, event_type, detail) VALUES (?, ?, ?, ?)`,
		sessionID, now.UnixMilli(), eventType, detail,
	)
	return err
}

func (d *DB) GetSessionEvents(sessionID string, limit int) ([]SessionEvent, error) {
	rows, err := d.sql.Query(
		`SELECT id, session_id, ts, event_type, detail
		 FROM session_events
		 WHERE session_id = ?
		 ORDER BY ts DESC, id DESC
		 LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []SessionEvent
	for rows.Next() {
		var e SessionEvent
		var ts int64
		if err := rows.Scan(&e.ID, &e.SessionID, &ts, &e.EventType, &e.Detail); err != nil {
			return nil, err
		}
		e.Ts = time.UnixMilli(ts)
		events = append(events, e)
	}
	return events, rows.Err()
}
