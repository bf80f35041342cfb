// Package store persists session snapshots in SQLite. A session is written
// as a whole snapshot after each completed turn, so a crash mid-turn loses at
// most the in-flight turn and never corrupts persisted state.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"intake/internal/logging"
	"intake/internal/types"
)

// SessionStore implements load/save-by-id persistence over SQLite.
type SessionStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewSessionStore initializes the SQLite database at the given path.
func NewSessionStore(path string) (*SessionStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SessionStore{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logging.Store("Session store opened: %s", path)
	return s, nil
}

// initialize creates the required tables.
func (s *SessionStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		status TEXT NOT NULL,
		current_stage INTEGER NOT NULL,
		snapshot TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_user_status ON sessions(user_id, status);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SessionStore) Close() error {
	return s.db.Close()
}

// SaveSession writes the whole session snapshot.
// Uses INSERT OR REPLACE so the latest snapshot per session is idempotent.
func (s *SessionStore) SaveSession(sess *types.Session) error {
	timer := logging.StartTimer(logging.CategoryStore, "SaveSession")
	defer timer.Stop()

	if sess == nil || sess.ID == "" {
		return fmt.Errorf("session id required")
	}

	snapshot, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	logging.StoreDebug("Saving session: id=%s stage=%d status=%s history=%d",
		sess.ID, sess.CurrentStage, sess.Status, len(sess.History))

	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO sessions (session_id, user_id, status, current_stage, snapshot, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.UserID, string(sess.Status), sess.CurrentStage, string(snapshot), time.Now().UTC(),
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to save session %s: %v", sess.ID, err)
		return err
	}

	return nil
}

// GetSession loads a session snapshot by id. Returns (nil, nil) if absent.
func (s *SessionStore) GetSession(sessionID string) (*types.Session, error) {
	timer := logging.StartTimer(logging.CategoryStore, "GetSession")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var snapshot string
	err := s.db.QueryRow(
		`SELECT snapshot FROM sessions WHERE session_id = ?`, sessionID,
	).Scan(&snapshot)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return decodeSnapshot(snapshot)
}

// OpenSessionForUser returns the user's most recently updated active
// session, or (nil, nil) if none exists. This is the resume lookup.
func (s *SessionStore) OpenSessionForUser(userID string) (*types.Session, error) {
	timer := logging.StartTimer(logging.CategoryStore, "OpenSessionForUser")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var snapshot string
	err := s.db.QueryRow(
		`SELECT snapshot FROM sessions
		 WHERE user_id = ? AND status = ?
		 ORDER BY updated_at DESC
		 LIMIT 1`,
		userID, string(types.StatusActive),
	).Scan(&snapshot)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return decodeSnapshot(snapshot)
}

// ListSessions returns the user's sessions, newest first.
func (s *SessionStore) ListSessions(userID string, limit int) ([]*types.Session, error) {
	timer := logging.StartTimer(logging.CategoryStore, "ListSessions")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT snapshot FROM sessions
		 WHERE user_id = ?
		 ORDER BY updated_at DESC
		 LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*types.Session
	for rows.Next() {
		var snapshot string
		if err := rows.Scan(&snapshot); err != nil {
			continue
		}
		sess, err := decodeSnapshot(snapshot)
		if err != nil {
			logging.Get(logging.CategoryStore).Warn("Skipping undecodable session snapshot: %v", err)
			continue
		}
		sessions = append(sessions, sess)
	}

	logging.StoreDebug("Listed %d sessions for user=%s", len(sessions), userID)
	return sessions, rows.Err()
}

// DeleteSession removes a session snapshot.
func (s *SessionStore) DeleteSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM sessions WHERE session_id = ?`, sessionID)
	return err
}

func decodeSnapshot(snapshot string) (*types.Session, error) {
	var sess types.Session
	if err := json.Unmarshal([]byte(snapshot), &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session snapshot: %w", err)
	}
	if sess.Coverage == nil {
		sess.Coverage = make(map[int]types.StageCoverage)
	}
	return &sess, nil
}
