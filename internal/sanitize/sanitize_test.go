// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sanitize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// =============================================================================
// BIDI OVERRIDE STRIPPING
// =============================================================================

func TestStripBidiOverrides(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain ascii", "hello world", "hello world"},
		{"rlo between letters", "a‮b", "ab"},
		{"lre", "x‪y", "xy"},
		{"rle", "x‫y", "xy"},
		{"pdf", "x‬y", "xy"},
		{"lro", "x‭y", "xy"},
		{"lri isolate", "x⁦y", "xy"},
		{"rli isolate", "x⁧y", "xy"},
		{"fsi isolate", "x⁨y", "xy"},
		{"pdi isolate", "x⁩y", "xy"},
		{"lrm mark", "x‎y", "xy"},
		{"rlm mark", "x‏y", "xy"},
		{"multiple overrides", "‮a⁦b‏c‬", "abc"},
		{"only overrides", "‪‫‬‭‮", ""},
		{
			name:  "trojan source comment",
			input: "/* ‮ } ⁦ if (admin) ⁩ ⁦ begin admins only */",
			want:  "/*  }  if (admin)   begin admins only */",
		},
		// Legitimate RTL text carries no override characters and must
		// survive untouched.
		{"hebrew passthrough", "שלום עולם", "שלום עולם"},
		{"arabic passthrough", "مرحبا", "مرحبا"},
		{"cjk passthrough", "你好世界", "你好世界"},
		{"emoji passthrough", "ok \U0001F600", "ok \U0001F600"},
		// Neighbors of the stripped ranges stay.
		{"zwsp kept", "a​b", "a​b"},
		{"zwj kept", "a‍b", "a‍b"},
		{"word joiner kept", "a⁠b", "a⁠b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, StripBidiOverrides(tt.input))
		})
	}
}

func TestStripBidiOverrides_FastPathReturnsSameString(t *testing.T) {
	// Clean input should come back without reallocation.
	in := "no overrides here, just text"
	out := StripBidiOverrides(in)
	require.Equal(t, in, out)
}

func TestStripBidiOverrides_Idempotent(t *testing.T) {
	in := "a‮b⁦c"
	once := StripBidiOverrides(in)
	twice := StripBidiOverrides(once)
	require.Equal(t, once, twice)
}

// =============================================================================
// HTML ESCAPING
// =============================================================================

func TestEscapeHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "hello", "hello"},
		{"ampersand", "a & b", "a &amp; b"},
		{"angle brackets", "<div>", "&lt;div&gt;"},
		{"double quote", `say "hi"`, "say &#34;hi&#34;"},
		{"single quote", "it's", "it&#39;s"},
		{
			name:  "img onerror payload",
			input: "<img onerror=alert(1)>",
			want:  "&lt;img onerror=alert(1)&gt;",
		},
		{
			name:  "script tag",
			input: "<script>alert('xss')</script>",
			want:  "&lt;script&gt;alert(&#39;xss&#39;)&lt;/script&gt;",
		},
		{"already escaped double-escapes", "&lt;", "&amp;lt;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, EscapeHTML(tt.input))
		})
	}
}

// =============================================================================
// FULL CHAIN
// =============================================================================

func TestClean(t *testing.T) {
	// Override characters disappear first, then markup is neutralized.
	in := "‮<b>bold</b>"
	require.Equal(t, "&lt;b&gt;bold&lt;/b&gt;", Clean(in))
}

func TestClean_Empty(t *testing.T) {
	require.Equal(t, "", Clean(""))
}
