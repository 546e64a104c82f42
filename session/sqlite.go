package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hupe1980/agentcity/core"
)

// SQLiteStore persists sessions in one SQLite database per room under a
// data directory, mirroring the file-per-room layout of the world store.
// Database handles are opened lazily on first access and cached for the
// process lifetime.
//
// Only conversational content (user/assistant/tool text) round-trips through
// persistence; that is all the model layer consumes when rebuilding history.
type SQLiteStore struct {
	dir string

	mu  sync.Mutex
	dbs map[string]*sql.DB
}

var _ core.SessionStore = (*SQLiteStore)(nil)

// NewSQLiteStore creates the session directory if needed.
func NewSQLiteStore(dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &SQLiteStore{dir: dir, dbs: make(map[string]*sql.DB)}, nil
}

const sessionSchema = `
CREATE TABLE IF NOT EXISTS events (
	seq       INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id  TEXT NOT NULL,
	run_id    TEXT NOT NULL,
	author    TEXT NOT NULL,
	role      TEXT NOT NULL,
	text      TEXT NOT NULL,
	created   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS state (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

// db returns the open handle for sessionID, opening and migrating on first use.
func (s *SQLiteStore) db(sessionID string) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if db, ok := s.dbs[sessionID]; ok {
		return db, nil
	}
	path := filepath.Join(s.dir, sessionID+".db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session db %s: %w", sessionID, err)
	}
	if _, err := db.Exec(sessionSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate session db %s: %w", sessionID, err)
	}
	s.dbs[sessionID] = db
	return db, nil
}

// Get loads (or lazily creates) the session for a room.
func (s *SQLiteStore) Get(sessionID string) (*core.Session, error) {
	db, err := s.db(sessionID)
	if err != nil {
		return nil, err
	}

	sess := core.NewSession(sessionID)

	rows, err := db.Query(`SELECT event_id, run_id, author, role, text, created FROM events ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("load session events: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, runID, author, role, text, created string
		if err := rows.Scan(&id, &runID, &author, &role, &text, &created); err != nil {
			return nil, err
		}
		ev := core.Event{
			ID:      id,
			RunID:   runID,
			Author:  author,
			Content: &core.Content{Role: role, Parts: []core.Part{core.TextPart{Text: text}}},
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			ev.Timestamp = ts
		}
		sess.Events = append(sess.Events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stateRows, err := db.Query(`SELECT key, value FROM state`)
	if err != nil {
		return nil, fmt.Errorf("load session state: %w", err)
	}
	defer stateRows.Close()
	for stateRows.Next() {
		var key, value string
		if err := stateRows.Scan(&key, &value); err != nil {
			return nil, err
		}
		var v any
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			continue
		}
		sess.State[key] = v
	}
	return sess, stateRows.Err()
}

// Create is Get for a fresh or existing room; SQLite sessions are created
// lazily so there is nothing to overwrite.
func (s *SQLiteStore) Create(sessionID string) (*core.Session, error) {
	return s.Get(sessionID)
}

// AppendEvent persists the conversational projection of the event. Events
// without content are control signals and are skipped.
func (s *SQLiteStore) AppendEvent(sessionID string, ev core.Event) error {
	if ev.Content == nil {
		return nil
	}
	db, err := s.db(sessionID)
	if err != nil {
		return err
	}
	_, err = db.Exec(
		`INSERT INTO events (event_id, run_id, author, role, text, created) VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.RunID, ev.Author, ev.Content.Role, ev.Content.Text(),
		ev.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append session event: %w", err)
	}
	return nil
}

// ApplyDelta merges a key/value delta into the persisted session state.
func (s *SQLiteStore) ApplyDelta(sessionID string, delta map[string]any) error {
	db, err := s.db(sessionID)
	if err != nil {
		return err
	}
	for k, v := range delta {
		blob, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode state value %q: %w", k, err)
		}
		if _, err := db.Exec(
			`INSERT INTO state (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			k, string(blob),
		); err != nil {
			return fmt.Errorf("apply state delta: %w", err)
		}
	}
	return nil
}

// Delete closes the handle and removes the database file for the room.
func (s *SQLiteStore) Delete(sessionID string) error {
	s.mu.Lock()
	if db, ok := s.dbs[sessionID]; ok {
		_ = db.Close()
		delete(s.dbs, sessionID)
	}
	s.mu.Unlock()

	path := filepath.Join(s.dir, sessionID+".db")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete session db: %w", err)
	}
	return nil
}

// Close closes all open database handles.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, db := range s.dbs {
		_ = db.Close()
		delete(s.dbs, id)
	}
	return nil
}
