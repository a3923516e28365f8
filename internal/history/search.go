// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/aerochat/internal/model"
)

// =============================================================================
// SEARCH
// =============================================================================

// SearchResult is one full-text match across all stored messages.
type SearchResult struct {
	MessageID    string
	SessionID    string
	SessionTitle string
	Role         model.Role
	Content      string
	CreatedAt    time.Time

	// Snippet is the match context with <mark> around the hit. All other
	// HTML in it is escaped.
	Snippet string
}

// defaultSearchLimit is used when Search gets a non-positive limit.
const defaultSearchLimit = 50

// Search finds messages matching the query. The query is treated as a
// literal phrase; FTS5 operators in user input have no effect. An empty
// query returns no results.
func (s *Store) Search(query string, limit int) ([]SearchResult, error) {
	if !s.fts {
		if s.ftsErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, s.ftsErr)
		}
		return nil, ErrSearchUnavailable
	}

	safe := sanitizeFTSQuery(query)
	if safe == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	rows, err := s.db.Query(`
		SELECT m.id, m.session_id, s.title, m.role, m.content, m.created_at,
			snippet(messages_fts, 0, '<mark>', '</mark>', '...', 40)
		FROM messages_fts
		JOIN messages m ON m.rowid = messages_fts.rowid
		JOIN sessions s ON s.id = m.session_id
		WHERE messages_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, safe, limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var (
			r             SearchResult
			role, snippet string
			createdMS     int64
		)
		if err := rows.Scan(&r.MessageID, &r.SessionID, &r.SessionTitle,
			&role, &r.Content, &createdMS, &snippet); err != nil {
			continue
		}
		r.Role = model.Role(role)
		r.CreatedAt = time.UnixMilli(createdMS)
		r.Snippet = sanitizeSnippet(snippet)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	return results, nil
}

// sanitizeFTSQuery turns user input into a quoted FTS5 phrase.
// SECURITY: quoting neutralizes MATCH syntax (AND, OR, NEAR, column
// filters) so a query can only ever be a phrase lookup.
func sanitizeFTSQuery(query string) string {
	cleaned := strings.TrimSpace(strings.ReplaceAll(query, `"`, `""`))
	if cleaned == "" {
		return ""
	}
	return `"` + cleaned + `"`
}

// sanitizeSnippet escapes HTML in a snippet while keeping the <mark>
// highlights the snippet() call itself inserted.
// SECURITY: message content is untrusted; only the marker tags survive.
func sanitizeSnippet(snippet string) string {
	out := strings.ReplaceAll(snippet, "&", "&amp;")
	out = strings.ReplaceAll(out, "<", "&lt;")
	out = strings.ReplaceAll(out, ">", "&gt;")
	out = strings.ReplaceAll(out, "&lt;mark&gt;", "<mark>")
	out = strings.ReplaceAll(out, "&lt;/mark&gt;", "</mark>")
	return out
}
