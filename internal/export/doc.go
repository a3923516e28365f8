// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chat sessions to shareable files.
//
// This package supports exporting sessions to Markdown, HTML, and JSON.
// Markdown and HTML exports are formatted transcripts with metadata and
// per-message statistics; JSON export is the raw session document, which
// the history store can import back.
//
// # Key Types
//
//   - Exporter: the per-format export interface
//   - Options: export configuration (metadata, timestamps, theme)
//
// # Supported Formats
//
//   - Markdown: human-readable with YAML frontmatter
//   - HTML: self-contained page with embedded CSS and theme toggle
//   - JSON: machine-readable, round trips through import
//
// # Usage
//
// Export a session to a generated filename:
//
//	exporter := export.NewMarkdownExporter(opts)
//	path, err := export.ExportToFile(sess, exporter, opts)
//
// Export to a specific file:
//
//	err := export.ExportToPath(sess, exporter, "output.md")
//
// HTML exports run message content through the same splitter as the
// terminal renderer, so tool chips and code fences land in the same places
// in both views. All untrusted text is HTML-escaped and stripped of
// bidirectional override characters.
package export
