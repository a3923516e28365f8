// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/aerochat/internal/config"
	"github.com/jeranaias/aerochat/internal/sanitize"
	"github.com/jeranaias/aerochat/internal/segment"
)

// defaultWrap is the wrap width used when neither the configuration nor the
// caller supplies one.
const defaultWrap = 100

// Renderer turns assistant message text into styled terminal output.
//
// A nil markdown renderer (glamour failed to initialize) degrades to raw
// text passthrough; rendering never fails and never loses content.
type Renderer struct {
	md      *glamour.TermRenderer
	hl      *Highlighter
	width   int
	profile Profile
}

// New builds a Renderer from the render configuration and the terminal
// width in columns (0 when unknown). An explicit word_wrap setting wins;
// otherwise the terminal width is used, then a fixed default.
func New(cfg *config.Config, width int) *Renderer {
	profile := Detect(cfg.Render.Color)
	wrap := cfg.Render.WordWrap
	if wrap <= 0 {
		wrap = width
	}
	if wrap <= 0 {
		wrap = defaultWrap
	}
	return &Renderer{
		md:      newMarkdownRenderer(cfg.Render.Theme, wrap),
		hl:      NewHighlighter(cfg.Render.CodeStyle, profile.ColorEnabled()),
		width:   wrap,
		profile: profile,
	}
}

// Profile reports the detected terminal capabilities.
func (r *Renderer) Profile() Profile {
	return r.profile
}

// RenderMessage renders a settled message: tool chips as compact lines and
// everything else through the markdown renderer, which handles its own code
// fences. Content that produces no segments comes back with only the bidi
// sweep applied.
func (r *Renderer) RenderMessage(content string) string {
	// SECURITY: direction overrides are removed before segmentation so they
	// can neither reorder rendered prose nor hide marker text from the
	// scanner.
	content = sanitize.StripBidiOverrides(content)
	segs := segment.Split(content)
	if len(segs) == 0 {
		return content
	}
	pieces := make([]string, 0, len(segs))
	for _, seg := range segs {
		var piece string
		if seg.Kind == segment.KindToolChip {
			piece = r.Chip(seg)
		} else {
			piece = strings.TrimRight(r.Markdown(seg.Text), "\n")
		}
		if piece != "" {
			pieces = append(pieces, piece)
		}
	}
	return strings.Join(pieces, "\n\n")
}

// RenderStreaming renders a still-growing message. Prose segments with a
// later segment after them are settled and render as one memoized markdown
// piece. The live last segment finalizes incrementally: its finalized chunks
// render once and memoize in the arena, while the volatile tail is shown as
// plain text, because partially received markdown renders unstably and would
// flicker as delimiters complete.
//
// The arena must be dedicated to this message and reused across calls as
// the buffer grows, or the memoization does nothing.
func (r *Renderer) RenderStreaming(arena *ChunkArena, content string) string {
	return r.renderIncremental(arena, content, true)
}

// RenderFinal renders the message after its stream has closed, reusing the
// arena from the streaming passes. Closed-stream finalization settles the
// tail, so text shown plain while streaming collapses into its markdown or
// code-block form. It only appends chunks, never rewrites earlier ones, so
// every chunk rendered during streaming is reused byte-identical.
func (r *Renderer) RenderFinal(arena *ChunkArena, content string) string {
	return r.renderIncremental(arena, content, false)
}

func (r *Renderer) renderIncremental(arena *ChunkArena, content string, streaming bool) string {
	// SECURITY: the bidi sweep runs before segmentation. Stripping is a
	// per-rune filter, so on an append-grown buffer the stripped text grows
	// append-only too and chunk prefix stability is preserved.
	content = sanitize.StripBidiOverrides(content)
	segs := segment.Split(content)
	if len(segs) == 0 {
		return ""
	}
	var pieces []string
	for i, seg := range segs {
		if seg.Kind == segment.KindToolChip {
			// Chips are cheap to restyle, and re-rendering every pass lets a
			// header that briefly split as prose settle into a chip without
			// any cache bookkeeping.
			if piece := r.Chip(seg); piece != "" {
				pieces = append(pieces, piece)
			}
			continue
		}
		if i < len(segs)-1 {
			// A later segment exists, so this prose is settled: render the
			// whole text as markdown in one memoized piece. The stored source
			// text keeps the rare case honest where a trailing fragment is
			// later absorbed into a tool chip's arguments.
			rendered, ok := arena.Rendered(i, 0, seg.Text)
			if !ok {
				rendered = strings.TrimRight(r.Markdown(seg.Text), "\n")
				arena.Store(i, 0, seg.Text, rendered)
			}
			if rendered != "" {
				pieces = append(pieces, rendered)
			}
			continue
		}
		// The streaming walk decides the chunk list in both modes, so chunk
		// indexes stay stable across the streaming-to-final transition and
		// every chunk rendered while streaming is served from the arena.
		res := segment.Finalize(seg.Text, true)
		for ci, chunk := range res.Finalized {
			rendered, ok := arena.Rendered(i, ci, chunk)
			if !ok {
				rendered = r.renderChunk(chunk)
				arena.Store(i, ci, chunk, rendered)
			}
			if rendered != "" {
				pieces = append(pieces, rendered)
			}
		}
		if strings.TrimSpace(res.InProgress) == "" {
			continue
		}
		if streaming {
			// Volatile tail: shown plain, because partially received markdown
			// renders unstably and would flicker as delimiters complete.
			pieces = append(pieces, strings.TrimRight(res.InProgress, "\n"))
			continue
		}
		// The stream is closed, so the tail cannot change again: it settles
		// as one more finalized chunk at the next index.
		ci := len(res.Finalized)
		rendered, ok := arena.Rendered(i, ci, res.InProgress)
		if !ok {
			rendered = r.renderChunk(res.InProgress)
			arena.Store(i, ci, res.InProgress, rendered)
		}
		if rendered != "" {
			pieces = append(pieces, rendered)
		}
	}
	return strings.Join(pieces, "\n\n")
}

// renderChunk renders one finalized chunk. A chunk starts with "```" only
// when the finalization walk entered fence mode at its first byte, so the
// prefix check is an exact discriminator between code and prose.
func (r *Renderer) renderChunk(chunk string) string {
	if strings.HasPrefix(chunk, "```") {
		return r.renderCodeChunk(chunk)
	}
	return strings.TrimRight(r.Markdown(chunk), "\n")
}

// renderCodeChunk renders a fenced code block: a language badge above a
// bordered block, highlighted when a grammar claims the language.
//
// A chunk finalized while streaming has an opening fence line, the body, and
// a newline-terminated closing fence line; a tail settled at end of stream
// may lack the closing fence, in which case everything after the opening
// line is the body. The body cannot itself contain a line-initial fence, so
// the last "\n```" is the closing one.
func (r *Renderer) renderCodeChunk(chunk string) string {
	nl := strings.IndexByte(chunk, '\n')
	if nl < 0 {
		return strings.TrimRight(r.Markdown(chunk), "\n")
	}
	lang := strings.TrimSpace(strings.TrimLeft(chunk[:nl], "`"))
	body := strings.TrimRight(chunk[nl+1:], "\n")
	if idx := strings.LastIndex(chunk, "\n```"); idx > nl {
		body = chunk[nl+1 : idx]
	} else if idx == nl {
		// Opening line's newline doubles as the closing fence's: empty body.
		body = ""
	}

	// SECURITY: bidi overrides are stripped before the body reaches either
	// path below, so reordering controls can't survive inside highlighted
	// output any more than inside escaped output.
	body = sanitize.StripBidiOverrides(body)

	display, trusted := r.hl.Highlight(body, lang)
	if !trusted {
		display = sanitize.EscapeHTML(body)
	}

	block := codeBlockStyle.Render(display)
	if lang == "" {
		return block
	}
	return langBadgeStyle.Render(lang) + "\n" + block
}
