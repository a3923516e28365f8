// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/aerochat/internal/model"
	"github.com/jeranaias/aerochat/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrSessionNotFound is returned when a session ID has no row.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSearchUnavailable is returned by Search when the FTS index is
	// disabled or failed to initialize.
	ErrSearchUnavailable = errors.New("full-text search unavailable")
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// loadMessageLimit caps a single transcript read.
	loadMessageLimit = 2000

	// defaultListLimit is used when ListSessions gets a non-positive limit.
	defaultListLimit = 100

	// deleteChunkSize keeps bulk deletes under SQLite's bound-parameter
	// limit per statement.
	deleteChunkSize = 500

	// previewRunes is the length of the session preview in listings.
	previewRunes = 80
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures the store at open time.
type Options struct {
	// Path is the database file location
	Path string

	// FTS enables the full-text search index over message content
	FTS bool
}

// DefaultOptions returns options with full-text search enabled.
func DefaultOptions(path string) *Options {
	return &Options{
		Path: path,
		FTS:  true,
	}
}

// =============================================================================
// STORE
// =============================================================================

// Store is an open chat history database. Methods are safe for concurrent
// use; SQLite serializes writers through the single pooled connection.
type Store struct {
	db   *sql.DB
	path string

	// fts records whether the search index initialized; ftsErr keeps the
	// reason when it did not.
	fts    bool
	ftsErr error
}

// Open opens (or creates) the history database and applies the schema.
func Open(opts *Options) (*Store, error) {
	if opts == nil {
		return nil, errors.New("options cannot be nil")
	}
	if opts.Path == "" {
		return nil, errors.New("database path cannot be empty")
	}

	// SECURITY: transcripts are private; 0700 dir, 0600 file
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for SQLite
	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-4000", // 4MB cache
		"PRAGMA foreign_keys=ON",  // Cascade deletes from sessions to messages
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	_ = os.Chmod(opts.Path, 0600)

	st := &Store{db: db, path: opts.Path}
	if err := st.initSchema(opts.FTS); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return st, nil
}

// initSchema creates the tables and, when requested, the FTS index.
func (s *Store) initSchema(fts bool) error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return err
	}
	if _, err := s.db.Exec(initMetadataSQL); err != nil {
		return err
	}

	if fts {
		// RELIABILITY: a missing FTS5 extension disables search, it does
		// not fail the store.
		if _, err := s.db.Exec(schemaFTSSQL); err != nil {
			s.fts = false
			s.ftsErr = err
		} else {
			s.fts = true
		}
	}

	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// FTSEnabled reports whether full-text search is available.
func (s *Store) FTSEnabled() bool {
	return s.fts
}

// =============================================================================
// SESSION OPERATIONS
// =============================================================================

// CreateSession inserts a new session row. An empty ID is assigned one.
func (s *Store) CreateSession(sess *model.Session) error {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	now := time.Now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = now
	}

	_, err := s.db.Exec(`
		INSERT INTO sessions (id, title, provider, model, system_prompt,
			message_count, total_tokens, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, 0, ?, ?)
	`, sess.ID, sess.Title, string(sess.Provider), sess.Model, sess.SystemPrompt,
		sess.CreatedAt.UnixMilli(), sess.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// SaveSession upserts a session and its whole transcript in one
// transaction. Timestamps on the session are preserved, which keeps
// imports and migrations honest about when a chat actually happened.
func (s *Store) SaveSession(sess *model.Session) error {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	now := time.Now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = now
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO sessions (id, title, provider, model, system_prompt,
			message_count, total_tokens, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, 0, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			provider = excluded.provider,
			model = excluded.model,
			system_prompt = excluded.system_prompt,
			updated_at = excluded.updated_at
	`, sess.ID, sess.Title, string(sess.Provider), sess.Model, sess.SystemPrompt,
		sess.CreatedAt.UnixMilli(), sess.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	for _, msg := range sess.Messages {
		if msg == nil {
			continue
		}
		if err := upsertMessage(tx, sess.ID, msg); err != nil {
			return err
		}
	}

	if err := refreshSessionCounters(tx, sess.ID, sess.UpdatedAt.UnixMilli()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// SaveMessage upserts a single message and refreshes the owning session's
// counters. Saving the same message ID again replaces its content, which
// is how a streaming message settles into its final form.
func (s *Store) SaveMessage(sessionID string, msg *model.Message) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if err := upsertMessage(tx, sessionID, msg); err != nil {
		return err
	}
	if err := refreshSessionCounters(tx, sessionID, time.Now().UnixMilli()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// upsertMessage writes one message row. The true upsert preserves the
// rowid so the FTS triggers see an update, not a delete plus an orphaned
// insert.
func upsertMessage(tx *sql.Tx, sessionID string, msg *model.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	toolCalls := ""
	if len(msg.ToolCalls) > 0 {
		data, err := json.Marshal(msg.ToolCalls)
		if err != nil {
			return fmt.Errorf("encode tool calls: %w", err)
		}
		toolCalls = string(data)
	}

	isSuccess := 0
	if msg.IsSuccess {
		isSuccess = 1
	}

	_, err := tx.Exec(`
		INSERT INTO messages (id, session_id, role, content, thinking,
			tool_calls, tool_name, tool_result, is_success, token_count,
			ttft_ms, duration_ms, tokens_per_sec, finish_reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			thinking = excluded.thinking,
			tool_calls = excluded.tool_calls,
			tool_name = excluded.tool_name,
			tool_result = excluded.tool_result,
			is_success = excluded.is_success,
			token_count = excluded.token_count,
			ttft_ms = excluded.ttft_ms,
			duration_ms = excluded.duration_ms,
			tokens_per_sec = excluded.tokens_per_sec,
			finish_reason = excluded.finish_reason
	`, msg.ID, sessionID, string(msg.Role), msg.GetDisplayContent(), msg.GetDisplayThinking(),
		toolCalls, msg.ToolName, msg.ToolResult, isSuccess, msg.TokenCount,
		msg.TTFT.Milliseconds(), msg.TotalDuration.Milliseconds(), msg.TokensPerSec,
		msg.FinishReason, msg.Timestamp.UnixMilli())
	if err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

// refreshSessionCounters recomputes message_count and total_tokens from
// the messages table, which stays correct under upserts and re-imports.
func refreshSessionCounters(tx *sql.Tx, sessionID string, updatedAt int64) error {
	_, err := tx.Exec(`
		UPDATE sessions SET
			message_count = (SELECT COUNT(*) FROM messages WHERE session_id = ?),
			total_tokens = (SELECT COALESCE(SUM(token_count), 0) FROM messages WHERE session_id = ?),
			updated_at = ?
		WHERE id = ?
	`, sessionID, sessionID, updatedAt, sessionID)
	if err != nil {
		return fmt.Errorf("update session counters: %w", err)
	}
	return nil
}

// GetSession loads a session and its transcript.
func (s *Store) GetSession(id string) (*model.Session, error) {
	var (
		sess               model.Session
		provider           string
		createdMS, updated int64
	)
	err := s.db.QueryRow(`
		SELECT id, title, provider, model, system_prompt, created_at, updated_at
		FROM sessions WHERE id = ?
	`, id).Scan(&sess.ID, &sess.Title, &provider, &sess.Model, &sess.SystemPrompt,
		&createdMS, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	sess.Provider = model.Provider(provider)
	sess.CreatedAt = time.UnixMilli(createdMS)
	sess.UpdatedAt = time.UnixMilli(updated)

	rows, err := s.db.Query(`
		SELECT id, role, content, thinking, tool_calls, tool_name, tool_result,
			is_success, token_count, ttft_ms, duration_ms, tokens_per_sec,
			finish_reason, created_at
		FROM messages WHERE session_id = ?
		ORDER BY created_at ASC, rowid ASC
		LIMIT ?
	`, id, loadMessageLimit)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			continue // Skip malformed rows
		}
		sess.Messages = append(sess.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	return &sess, nil
}

// scanMessage converts one messages row back into a model.Message.
func scanMessage(rows *sql.Rows) (*model.Message, error) {
	var (
		msg                    model.Message
		role, toolCalls        string
		isSuccess              int
		ttftMS, durMS, created int64
	)
	err := rows.Scan(&msg.ID, &role, &msg.Content, &msg.Thinking, &toolCalls,
		&msg.ToolName, &msg.ToolResult, &isSuccess, &msg.TokenCount,
		&ttftMS, &durMS, &msg.TokensPerSec, &msg.FinishReason, &created)
	if err != nil {
		return nil, err
	}

	msg.Role = model.Role(role)
	msg.IsSuccess = isSuccess != 0
	msg.TTFT = time.Duration(ttftMS) * time.Millisecond
	msg.TotalDuration = time.Duration(durMS) * time.Millisecond
	msg.Timestamp = time.UnixMilli(created)
	if toolCalls != "" {
		// A mangled tool_calls blob degrades to no tool calls.
		var calls []model.ToolCall
		if err := json.Unmarshal([]byte(toolCalls), &calls); err == nil {
			msg.ToolCalls = calls
		}
	}
	return &msg, nil
}

// ListSessions returns session metadata ordered by most recently updated.
// A non-positive limit falls back to the default page size.
func (s *Store) ListSessions(limit, offset int) ([]model.SessionMeta, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(`
		SELECT s.id, s.title, s.provider, s.model, s.message_count,
			s.created_at, s.updated_at,
			COALESCE((SELECT m.content FROM messages m
				WHERE m.session_id = s.id AND m.role = 'user'
				ORDER BY m.created_at ASC, m.rowid ASC LIMIT 1), '')
		FROM sessions s
		ORDER BY s.updated_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var metas []model.SessionMeta
	for rows.Next() {
		var (
			meta               model.SessionMeta
			provider, preview  string
			createdMS, updated int64
		)
		if err := rows.Scan(&meta.ID, &meta.Title, &provider, &meta.Model,
			&meta.MessageCount, &createdMS, &updated, &preview); err != nil {
			continue
		}
		meta.Provider = model.Provider(provider)
		meta.CreatedAt = time.UnixMilli(createdMS)
		meta.UpdatedAt = time.UnixMilli(updated)
		meta.Preview = util.TruncateRunes(util.CollapseLine(preview), previewRunes)
		if meta.Title == "" {
			meta.Title = "New Chat"
		}
		metas = append(metas, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	return metas, nil
}

// UpdateTitle renames a session.
func (s *Store) UpdateTitle(id, title string) error {
	res, err := s.db.Exec(`
		UPDATE sessions SET title = ?, updated_at = ? WHERE id = ?
	`, title, time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("update title: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

// DeleteSession removes a session; its messages cascade.
func (s *Store) DeleteSession(id string) error {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

// DeleteSessions removes multiple sessions and reports how many existed.
func (s *Store) DeleteSessions(ids []string) (int64, error) {
	var deleted int64
	for len(ids) > 0 {
		chunk := ids
		if len(chunk) > deleteChunkSize {
			chunk = chunk[:deleteChunkSize]
		}
		ids = ids[len(chunk):]

		placeholders := make([]string, len(chunk))
		args := make([]any, len(chunk))
		for i, id := range chunk {
			placeholders[i] = "?"
			args[i] = id
		}
		res, err := s.db.Exec(
			`DELETE FROM sessions WHERE id IN (`+strings.Join(placeholders, ",")+`)`,
			args...)
		if err != nil {
			return deleted, fmt.Errorf("bulk delete: %w", err)
		}
		n, _ := res.RowsAffected()
		deleted += n
	}
	return deleted, nil
}

// =============================================================================
// RETENTION
// =============================================================================

// Cleanup enforces the retention policy: sessions idle longer than
// olderThan are deleted (zero keeps everything), then the oldest sessions
// beyond maxSessions are trimmed (zero means unlimited). Returns how many
// sessions were removed.
func (s *Store) Cleanup(olderThan time.Duration, maxSessions int) (int64, error) {
	var deleted int64

	if olderThan > 0 {
		cutoff := time.Now().Add(-olderThan).UnixMilli()
		res, err := s.db.Exec(`DELETE FROM sessions WHERE updated_at < ?`, cutoff)
		if err != nil {
			return deleted, fmt.Errorf("cleanup: %w", err)
		}
		n, _ := res.RowsAffected()
		deleted += n
	}

	if maxSessions > 0 {
		res, err := s.db.Exec(`
			DELETE FROM sessions WHERE id IN (
				SELECT id FROM sessions ORDER BY updated_at DESC LIMIT -1 OFFSET ?
			)
		`, maxSessions)
		if err != nil {
			return deleted, fmt.Errorf("cleanup: %w", err)
		}
		n, _ := res.RowsAffected()
		deleted += n
	}

	// PERFORMANCE: PRAGMA optimize only; VACUUM blocks the database.
	if deleted > 0 {
		_, _ = s.db.Exec("PRAGMA optimize")
	}

	return deleted, nil
}

// ClearAll deletes every session and message, returning the session count.
func (s *Store) ClearAll() (int64, error) {
	var count int64
	_ = s.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count)

	if _, err := s.db.Exec(`DELETE FROM sessions`); err != nil {
		return 0, fmt.Errorf("clear all: %w", err)
	}
	_, _ = s.db.Exec("PRAGMA optimize")

	return count, nil
}

// =============================================================================
// STATISTICS
// =============================================================================

// Stats summarizes the store for the status display.
type Stats struct {
	Sessions    int64
	Messages    int64
	TotalTokens int64
	DBSizeBytes int64
	FTSEnabled  bool
}

// Stats returns row counts and the database size.
func (s *Store) Stats() (Stats, error) {
	st := Stats{FTSEnabled: s.fts}

	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(total_tokens), 0) FROM sessions
	`).Scan(&st.Sessions, &st.TotalTokens)
	if err != nil {
		return st, fmt.Errorf("stats: %w", err)
	}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&st.Messages); err != nil {
		return st, fmt.Errorf("stats: %w", err)
	}

	_ = s.db.QueryRow(`
		SELECT page_count * page_size FROM pragma_page_count, pragma_page_size
	`).Scan(&st.DBSizeBytes)

	return st, nil
}
