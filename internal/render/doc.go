// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns segmented chat content into styled terminal output.
//
// The package sits downstream of segment: Split carves a message into prose
// and tool-chip segments, Finalize carves streaming prose into stable chunks,
// and the Renderer here maps both onto glamour markdown, chroma-highlighted
// code blocks, and lipgloss tool chips.
//
// # Key Types
//
//   - Renderer: Orchestrates segment splitting, chunk finalization, and
//     per-chunk rendering
//   - ChunkArena: Append-only memo of rendered chunks keyed by
//     (segment, chunk); safe because finalized chunks never change
//   - Highlighter: Chroma syntax highlighting; reports when no grammar
//     exists so the caller can fall back to escaping
//   - Profile: Detected terminal color capability and background
//
// # Streaming Contract
//
// RenderStreaming may be called repeatedly as content grows. Finalized
// chunks render exactly once and are served from the arena afterwards; only
// the in-progress tail is reprocessed per call. The caller must serialize
// calls for one message (single logical writer). RenderFinal closes the
// message: it reuses every streamed chunk verbatim and settles the leftover
// tail, so output printed from earlier frames never has to be redrawn.
//
// # Usage
//
//	r := render.New(config.Global(), width)
//	arena := render.NewChunkArena()
//	for token := range stream {
//	    acc += token
//	    repaint(r.RenderStreaming(arena, acc))
//	}
//	repaint(r.RenderFinal(arena, acc))
package render
