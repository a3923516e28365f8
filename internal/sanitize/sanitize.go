// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sanitize neutralizes hostile text before it reaches a terminal or
// exported markup. Model output is untrusted input: it can carry Unicode
// bidirectional overrides that visually reorder rendered text ("Trojan
// Source" attacks) and raw HTML metacharacters that become live markup when a
// chunk bypasses the syntax highlighter.
package sanitize

import (
	"html"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// SECURITY: Bidirectional override characters can make rendered text read
// differently from its logical byte order. They carry no legitimate meaning
// in model output, so they are removed outright rather than escaped.
//
// Covered ranges:
//
//	U+202A-U+202E  LRE, RLE, PDF, LRO, RLO (explicit embedding/override)
//	U+2066-U+2069  LRI, RLI, FSI, PDI (isolates)
//	U+200E-U+200F  LRM, RLM (directional marks)
var bidiOverrides = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x200E, Hi: 0x200F, Stride: 1},
		{Lo: 0x202A, Hi: 0x202E, Stride: 1},
		{Lo: 0x2066, Hi: 0x2069, Stride: 1},
	},
}

// bidiStripper removes every rune in the bidiOverrides table.
var bidiStripper = runes.Remove(runes.In(bidiOverrides))

// StripBidiOverrides removes bidirectional override control characters from s.
// All other characters, including legitimate RTL text, pass through unchanged.
func StripBidiOverrides(s string) string {
	// PERFORMANCE: Most chunks carry no override characters at all; scan
	// before paying for a transform pass.
	if !containsBidiOverride(s) {
		return s
	}

	out, _, err := transform.String(bidiStripper, s)
	if err == nil {
		return out
	}

	// The transformer does not error on well-formed input, but a sanitizer
	// must never return unstripped text, so fall back to a direct filter.
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !unicode.Is(bidiOverrides, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// containsBidiOverride reports whether s contains any override character.
func containsBidiOverride(s string) bool {
	for _, r := range s {
		if unicode.Is(bidiOverrides, r) {
			return true
		}
	}
	return false
}

// EscapeHTML escapes the five HTML metacharacters (& < > " ') in s.
//
// SECURITY: This is the fallback path for code spans whose language has no
// trusted highlighter grammar. Text that went through a highlighter must NOT
// pass through here as well: escaping already-escaped markup corrupts
// entities (&amp;lt;). Callers pick exactly one of the two paths.
func EscapeHTML(s string) string {
	return html.EscapeString(s)
}

// Clean applies the full sanitizer chain used for untrusted display text:
// bidi stripping followed by HTML escaping.
func Clean(s string) string {
	return EscapeHTML(StripBidiOverrides(s))
}
