// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// export.go - Exporter interface, options, and the shared helpers the
// format implementations lean on.

package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/aerochat/internal/model"
	"github.com/jeranaias/aerochat/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter converts a settled session into one output format.
type Exporter interface {
	// Export renders the whole transcript and returns the file content.
	Export(sess *model.Session) ([]byte, error)

	// FileExtension is the extension for generated filenames, dot included.
	FileExtension() string

	// MimeType identifies the exported format.
	MimeType() string
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options controls what the transcript exporters include.
type Options struct {
	// OutputDir is where generated filenames land (default: working directory).
	OutputDir string

	// IncludeMetadata adds the session header and per-message statistics.
	IncludeMetadata bool

	// IncludeTimestamps adds per-message timestamps.
	IncludeTimestamps bool

	// IncludeThinking adds collapsed reasoning traces where a message has one.
	IncludeThinking bool

	// Theme picks the HTML palette, "light" or "dark" (default: "dark").
	Theme string
}

// DefaultOptions returns the options every exporter starts from.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
		IncludeThinking:   false,
		Theme:             "dark",
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ForFormat returns the exporter for a format name. Accepted names:
// "markdown"/"md", "html", "json".
func ForFormat(format string, opts *Options) (Exporter, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	switch format {
	case "markdown", "md":
		return NewMarkdownExporter(opts), nil
	case "html":
		return NewHTMLExporter(opts), nil
	case "json":
		return NewJSONExporter(), nil
	default:
		return nil, fmt.Errorf("unknown export format: %q (want markdown, html, or json)", format)
	}
}

// ExportToFile exports a session to a generated filename under
// opts.OutputDir and returns the output path.
//
// NOTE: The whole transcript is formatted in memory before writing. A
// session is capped at the store's load limit, so this stays small.
func ExportToFile(sess *model.Session, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(sess)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	name := fmt.Sprintf("chat_%s_%s%s",
		sanitizeFilename(sess.GetTitle()),
		time.Now().Format("20060102_150405"),
		exporter.FileExtension(),
	)
	path := filepath.Join(opts.OutputDir, name)

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	// RELIABILITY: atomic rename; a crashed export never leaves a torn file
	if err := util.AtomicWriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// ExportToPath exports a session to an explicit file path, creating parent
// directories as needed.
func ExportToPath(sess *model.Session, exporter Exporter, path string) error {
	content, err := exporter.Export(sess)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	if err := util.AtomicWriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// =============================================================================
// SHARED FORMAT HELPERS
// =============================================================================

// roleLabel returns the bracketed display label for a message role. Unknown
// roles are title-cased so a provider extension still reads sensibly.
func roleLabel(role model.Role) string {
	switch role {
	case model.RoleUser:
		return "[User]"
	case model.RoleAssistant:
		return "[Assistant]"
	case model.RoleSystem:
		return "[System]"
	case model.RoleTool:
		return "[Tool]"
	}
	if role == "" {
		return "Unknown"
	}
	runes := []rune(string(role))
	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}

// collectStats gathers the displayable delivery statistics for a message in
// display order. Zero values are omitted; an empty slice means the message
// carries no stats worth a line.
func collectStats(msg *model.Message) []string {
	var stats []string
	if msg.TokenCount > 0 {
		stats = append(stats, fmt.Sprintf("Tokens: %d", msg.TokenCount))
	}
	if ms := msg.TotalDuration.Milliseconds(); ms > 0 {
		stats = append(stats, fmt.Sprintf("Time: %s", formatDuration(ms)))
	}
	if ms := msg.TTFT.Milliseconds(); ms > 0 {
		stats = append(stats, fmt.Sprintf("TTFT: %s", formatDuration(ms)))
	}
	if msg.TokensPerSec > 0 {
		stats = append(stats, fmt.Sprintf("Speed: %s", formatTokensPerSec(msg.TokensPerSec)))
	}
	return stats
}

// sanitizeFilename makes a session title safe to embed in a file name on
// both Unix and Windows. The result is capped at 50 runes.
func sanitizeFilename(s string) string {
	if runes := []rune(s); len(runes) > 50 {
		s = string(runes[:50])
	}
	out := strings.Map(func(r rune) rune {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			return '_'
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return '-'
		case r < 32 || r == 127:
			return '-'
		}
		return r
	}, s)
	if out == "" {
		return "chat"
	}
	return out
}

// formatDuration renders milliseconds the way the interactive stats line
// does: raw ms under a second, fractional seconds under a minute, then
// minutes and seconds.
func formatDuration(ms int64) string {
	switch {
	case ms < 1000:
		return fmt.Sprintf("%dms", ms)
	case ms < 60000:
		return fmt.Sprintf("%.2fs", float64(ms)/1000.0)
	}
	total := ms / 1000
	return fmt.Sprintf("%dm %ds", total/60, total%60)
}

// formatTokensPerSec renders a throughput figure.
func formatTokensPerSec(tps float64) string {
	if tps == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.1f tok/s", tps)
}

// formatTimestamp renders a full date and time.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// formatShortTimestamp renders a time of day for inline use.
func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}
