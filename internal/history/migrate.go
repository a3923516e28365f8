// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/aerochat/internal/model"
	"github.com/jeranaias/aerochat/internal/util"
)

// =============================================================================
// LEGACY FLAT-FILE MIGRATION
// =============================================================================

// Legacy transcript format: one JSON document per conversation, as written
// by the pre-sqlite storage layer. The decoder is tolerant; fields the old
// files never carried stay zero.
type legacyConversation struct {
	ID         string          `json:"id"`
	Summary    string          `json:"summary"`
	Model      string          `json:"model"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	Messages   []legacyMessage `json:"messages"`
	TokensUsed int             `json:"tokens_used,omitempty"`
}

type legacyMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	TokenCount   int     `json:"token_count,omitempty"`
	DurationMs   int64   `json:"duration_ms,omitempty"`
	TokensPerSec float64 `json:"tokens_per_sec,omitempty"`
	TTFTMs       int64   `json:"ttft_ms,omitempty"`

	ToolName   string `json:"tool_name,omitempty"`
	ToolInput  string `json:"tool_input,omitempty"`
	ToolResult string `json:"tool_result,omitempty"`
	IsSuccess  bool   `json:"is_success,omitempty"`
}

// migratedSuffix marks a legacy file that has been absorbed into sqlite.
const migratedSuffix = ".migrated"

// MigrateFromJSON absorbs legacy flat-file conversations from dir into the
// database and renames each absorbed file with a .migrated suffix so the
// migration never runs twice. Existing sessions win: a legacy conversation
// whose ID is already stored is left untouched. Corrupt files are skipped
// and keep their name for inspection. Returns how many conversations were
// migrated.
func (s *Store) MigrateFromJSON(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read legacy dir: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()

	var migrated []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var conv legacyConversation
		if err := json.Unmarshal(data, &conv); err != nil {
			continue // Skip corrupted files
		}
		if conv.ID == "" {
			conv.ID = strings.TrimSuffix(name, ".json")
		}

		if err := insertLegacy(tx, &conv); err != nil {
			return 0, err
		}
		migrated = append(migrated, path)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit migration: %w", err)
	}

	// Rebuild the search index after the bulk load.
	if s.fts && len(migrated) > 0 {
		_, _ = s.db.Exec(`INSERT INTO messages_fts(messages_fts) VALUES('rebuild')`)
	}

	for _, path := range migrated {
		_ = os.Rename(path, path+migratedSuffix)
	}

	return len(migrated), nil
}

// insertLegacy writes one legacy conversation. INSERT OR IGNORE keeps any
// session or message the store already has.
func insertLegacy(tx *sql.Tx, conv *legacyConversation) error {
	created := conv.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	updated := conv.UpdatedAt
	if updated.IsZero() {
		updated = created
	}

	totalTokens := conv.TokensUsed
	if totalTokens == 0 {
		for _, msg := range conv.Messages {
			totalTokens += msg.TokenCount
		}
	}

	// The legacy format predates provider tracking; provider stays empty.
	_, err := tx.Exec(`
		INSERT OR IGNORE INTO sessions (id, title, provider, model,
			system_prompt, message_count, total_tokens, created_at, updated_at)
		VALUES (?, ?, '', ?, '', ?, ?, ?, ?)
	`, conv.ID, conv.Summary, conv.Model, len(conv.Messages), totalTokens,
		created.UnixMilli(), updated.UnixMilli())
	if err != nil {
		return fmt.Errorf("migrate session %s: %w", conv.ID, err)
	}

	for _, msg := range conv.Messages {
		id := msg.ID
		if id == "" {
			id = uuid.NewString()
		}
		ts := msg.Timestamp
		if ts.IsZero() {
			ts = created
		}
		isSuccess := 0
		if msg.IsSuccess {
			isSuccess = 1
		}

		_, err := tx.Exec(`
			INSERT OR IGNORE INTO messages (id, session_id, role, content,
				thinking, tool_calls, tool_name, tool_result, is_success,
				token_count, ttft_ms, duration_ms, tokens_per_sec,
				finish_reason, created_at)
			VALUES (?, ?, ?, ?, '', '', ?, ?, ?, ?, ?, ?, ?, '', ?)
		`, id, conv.ID, msg.Role, msg.Content, msg.ToolName, msg.ToolResult,
			isSuccess, msg.TokenCount, msg.TTFTMs, msg.DurationMs,
			msg.TokensPerSec, ts.UnixMilli())
		if err != nil {
			return fmt.Errorf("migrate message %s: %w", id, err)
		}
	}

	return nil
}

// =============================================================================
// EXPORT / IMPORT
// =============================================================================

// ExportSession writes a session as pretty-printed JSON. The document is
// the session's own JSON form; ImportSession accepts the same document.
func (s *Store) ExportSession(id, path string) error {
	sess, err := s.GetSession(id)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	if err := util.AtomicWriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// ImportSession reads an exported session document and upserts it,
// preserving the document's IDs and timestamps.
func (s *Store) ImportSession(path string) (*model.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read import: %w", err)
	}

	var sess model.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parse import: %w", err)
	}

	if err := s.SaveSession(&sess); err != nil {
		return nil, err
	}
	return &sess, nil
}
