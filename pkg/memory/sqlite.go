// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const turnsTable = "conversation_turns"

// SQLiteConversation persists a session's turns in a SQLite database.
// Multiple sessions may share one database, keyed by session id.
type SQLiteConversation struct {
	db        *sql.DB
	sessionID string
	config    Config
}

// OpenSQLite opens (or creates) a SQLite database at path.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	return db, nil
}

// NewSQLiteConversation creates a SQLite-backed conversation window and
// ensures the schema.
func NewSQLiteConversation(db *sql.DB, sessionID string, config Config) (*SQLiteConversation, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if err := ensureTurnsSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteConversation{db: db, sessionID: sessionID, config: config}, nil
}

func ensureTurnsSchema(db *sql.DB) error {
	_, err := db.Exec(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`, turnsTable))
	if err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	_, err = db.Exec(fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS idx_%s_session ON %s (session_id)", turnsTable, turnsTable))
	return err
}

// SessionID returns the session this conversation is bound to.
func (s *SQLiteConversation) SessionID() string { return s.sessionID }

// Append adds a turn, evicting the oldest pair if the window overflows.
func (s *SQLiteConversation) Append(ctx context.Context, turn Turn) error {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (id, session_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)", turnsTable),
		turn.ID, s.sessionID, string(turn.Role), turn.Content, turn.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}

	return s.evictOverflow(ctx)
}

// evictOverflow removes the oldest complete pairs until the window fits.
func (s *SQLiteConversation) evictOverflow(ctx context.Context) error {
	var count int
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE session_id = ?", turnsTable), s.sessionID)
	if err := row.Scan(&count); err != nil {
		return err
	}

	overflow := count - s.config.maxTurns()
	if overflow <= 0 {
		return nil
	}
	// Round up to whole pairs so a half-exchange is never split.
	if overflow%2 != 0 {
		overflow++
	}

	_, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE rowid IN (
			SELECT rowid FROM %s WHERE session_id = ? ORDER BY rowid ASC LIMIT ?
		)`, turnsTable, turnsTable), s.sessionID, overflow)
	return err
}

// Window returns an ordered read-only snapshot of the stored turns.
func (s *SQLiteConversation) Window(ctx context.Context) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT id, role, content, created_at FROM %s WHERE session_id = ? ORDER BY rowid ASC", turnsTable),
		s.sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var (
			turn        Turn
			role        string
			createdAtMs int64
		)
		if err := rows.Scan(&turn.ID, &role, &turn.Content, &createdAtMs); err != nil {
			return nil, err
		}
		turn.Role = roleFromString(role)
		turn.CreatedAt = time.UnixMilli(createdAtMs)
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

// Clear removes all stored turns for this session.
func (s *SQLiteConversation) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE session_id = ?", turnsTable), s.sessionID)
	return err
}

var _ Conversation = (*SQLiteConversation)(nil)
