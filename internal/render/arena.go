// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

// =============================================================================
// CHUNK ARENA
// =============================================================================

// chunkKey addresses one finalized chunk within one segment of a message.
type chunkKey struct {
	Segment int
	Chunk   int
}

// chunkRecord pairs a finalized chunk with its rendered form. The source
// text is kept so a lookup can verify identity instead of trusting position
// alone.
type chunkRecord struct {
	source   string
	rendered string
}

// ChunkArena memoizes rendered chunks for a single streaming message.
//
// Finalized chunks never change, reorder, or shrink as the message grows, so
// a chunk rendered once at (segment, chunk) is valid for the rest of the
// stream. The arena is append-only in the common case; entries are only
// replaced when the source text at a key diverges, which happens when a
// partially streamed tool header briefly parsed as prose.
//
// RELIABILITY: One arena serves one message and must be written by a single
// logical writer; concurrent messages each get their own arena so they
// cannot interfere.
type ChunkArena struct {
	chunks map[chunkKey]chunkRecord
	counts map[int]int
}

// NewChunkArena creates an empty arena.
func NewChunkArena() *ChunkArena {
	return &ChunkArena{
		chunks: make(map[chunkKey]chunkRecord),
		counts: make(map[int]int),
	}
}

// Rendered returns the memoized rendering of a chunk, if present and still
// matching the given source text.
func (a *ChunkArena) Rendered(segment, chunk int, source string) (string, bool) {
	rec, ok := a.chunks[chunkKey{segment, chunk}]
	if !ok || rec.source != source {
		return "", false
	}
	return rec.rendered, true
}

// Store records the rendering of a finalized chunk.
func (a *ChunkArena) Store(segment, chunk int, source, rendered string) {
	a.chunks[chunkKey{segment, chunk}] = chunkRecord{source: source, rendered: rendered}
	if chunk+1 > a.counts[segment] {
		a.counts[segment] = chunk + 1
	}
}

// FinalizedCount returns how many chunks have been stored for a segment.
// Monotonically non-decreasing while the message grows.
func (a *ChunkArena) FinalizedCount(segment int) int {
	return a.counts[segment]
}

// InvalidateSegment drops every record for one segment, forcing a re-render
// on the next pass.
func (a *ChunkArena) InvalidateSegment(segment int) {
	count := a.counts[segment]
	for i := 0; i < count; i++ {
		delete(a.chunks, chunkKey{segment, i})
	}
	delete(a.counts, segment)
}

// Reset drops every record, e.g. after a style change mid-stream.
func (a *ChunkArena) Reset() {
	a.chunks = make(map[chunkKey]chunkRecord)
	a.counts = make(map[int]int)
}

// Len returns the number of memoized chunks across all segments.
func (a *ChunkArena) Len() int {
	return len(a.chunks)
}
