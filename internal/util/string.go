// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// UNICODE: all truncation here cuts on rune or column boundaries, never on
// bytes. A byte cut through a multi-byte sequence leaves mojibake in list
// columns and previews; a column-blind cut lets CJK text overflow them.

// TruncateRunes cuts s to at most limit runes, replacing the removed tail
// with "..." when there is room for one.
func TruncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// TruncateWidth cuts s to at most limit terminal columns, counting wide
// characters as two, with "..." when there is room. Use this over
// TruncateRunes wherever the result has to fit a layout.
func TruncateWidth(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= limit {
		return s
	}
	if limit <= 3 {
		return runewidth.Truncate(s, limit, "")
	}
	return runewidth.Truncate(s, limit, "...")
}

// StringWidth is the terminal column count of s, wide characters counted
// as two.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}

// CollapseLine flattens newlines to spaces for one-line previews.
func CollapseLine(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", " ")
}
