// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
)

// =============================================================================
// SYNTAX HIGHLIGHTING (Chroma-based)
// =============================================================================

// Highlighter applies chroma syntax highlighting for terminal output.
type Highlighter struct {
	style     string
	formatter string
}

// NewHighlighter creates a highlighter using the named chroma style.
// When color is false the formatter emits plain text, but the code still
// counts as processed by a trusted highlighter.
func NewHighlighter(styleName string, color bool) *Highlighter {
	formatter := "terminal256"
	if !color {
		formatter = "noop"
	}
	return &Highlighter{
		style:     styleName,
		formatter: formatter,
	}
}

// Highlight highlights code for the given language tag.
//
// The second return value reports whether a grammar was available: false
// means no lexer matched the tag and analysis found nothing, and the caller
// must fall back to the sanitizer's escape path. There is deliberately no
// catch-all fallback lexer here: a fallback would claim trust for text no
// grammar ever inspected.
func (h *Highlighter) Highlight(code, language string) (string, bool) {
	// Get lexer for language
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		return "", false
	}
	lexer = chroma.Coalesce(lexer)

	// Get style (use terminal-friendly style)
	style := chromaStyles.Get(h.style)
	if style == nil {
		style = chromaStyles.Fallback
	}

	// Get terminal formatter
	formatter := formatters.Get(h.formatter)
	if formatter == nil {
		formatter = formatters.Fallback
	}

	// Tokenize and format
	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", false
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return "", false
	}

	return buf.String(), true
}

// DetectLanguage attempts to detect the programming language of the given code.
func DetectLanguage(code string) string {
	lexer := lexers.Analyse(code)
	if lexer != nil {
		return lexer.Config().Name
	}
	return ""
}
