// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// newMarkdownRenderer builds a glamour renderer for the given theme and wrap
// column. Returns nil when construction fails; callers treat nil as "pass
// content through unchanged".
func newMarkdownRenderer(theme string, wrap int) *glamour.TermRenderer {
	opts := []glamour.TermRendererOption{
		glamour.WithWordWrap(wrap),
	}

	switch strings.ToLower(theme) {
	case "dark":
		opts = append(opts, glamour.WithStandardStyle("dark"))
	case "light":
		opts = append(opts, glamour.WithStandardStyle("light"))
	default:
		opts = append(opts, glamour.WithAutoStyle())
	}

	renderer, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		// Fallback to plain text if renderer initialization fails
		return nil
	}
	return renderer
}

// Markdown renders markdown content for terminal display.
// Returns the original content if rendering fails or the renderer is
// unavailable; the render path must never lose text.
func (r *Renderer) Markdown(content string) string {
	if r.md == nil {
		return content
	}

	rendered, err := r.md.Render(content)
	if err != nil {
		return content
	}
	return rendered
}
