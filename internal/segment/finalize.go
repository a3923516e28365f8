// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package segment

import "strings"

// Finalize splits a prose buffer into immutable finalized chunks and a
// volatile tail.
//
// With streaming=false the whole buffer is one finalized chunk and no
// scanning happens. With streaming=true a single forward pass walks the
// buffer with an explicit cursor and two states:
//
//   - Scanning text, a paragraph break ("\n\n") finalizes everything from
//     the cursor through the break as one chunk. Chunks that trim to nothing
//     are skipped, but the cursor still advances past them.
//   - A code fence (line-initial "```") switches to fence mode. The chunk
//     then runs from the fence through the end of the closing fence's line,
//     internal paragraph breaks included. The closing fence must itself be
//     line-initial and its line newline-terminated; until both hold, the
//     whole span from the opening fence is the InProgress tail, because the
//     language tag, body, or closing delimiter may still change.
//
// Prose that runs straight into a fence with no paragraph break between them
// is not emitted: the cursor moves to the fence start and scanning resumes
// there. The end-of-stream call with streaming=false returns the complete
// text, so nothing is lost once the message settles.
//
// STREAMING: chunks already returned for a shorter buffer are returned
// unchanged, at the same indexes, by every later call on an append-grown
// buffer. Renderers rely on this to memoize finalized chunks permanently.
func Finalize(content string, streaming bool) FinalizeResult {
	if !streaming {
		return FinalizeResult{Finalized: []string{content}}
	}

	var finalized []string
	cursor := 0
	for cursor < len(content) {
		fence := nextFence(content, cursor)
		if fence != cursor {
			brk := nextBreak(content, cursor)
			if brk >= 0 && (fence < 0 || brk < fence) {
				end := brk + 2
				if chunk := content[cursor:end]; strings.TrimSpace(chunk) != "" {
					finalized = append(finalized, chunk)
				}
				cursor = end
				continue
			}
			if fence < 0 {
				// No boundary ahead at all: the remainder is volatile.
				return FinalizeResult{Finalized: finalized, InProgress: content[cursor:]}
			}
			// Fence ahead with no break before it. Jump without emitting.
			cursor = fence
		}
		end, ok := closeFence(content, cursor)
		if !ok {
			return FinalizeResult{Finalized: finalized, InProgress: content[cursor:]}
		}
		finalized = append(finalized, content[cursor:end])
		cursor = end
	}
	return FinalizeResult{Finalized: finalized}
}

// nextFence returns the index of the first line-initial "```" at or after
// from, or -1. Line-initial means buffer start or immediately after '\n'.
func nextFence(content string, from int) int {
	if from < 0 {
		from = 0
	}
	for i := from; ; i++ {
		j := strings.Index(content[i:], "```")
		if j < 0 {
			return -1
		}
		i += j
		if i == 0 || content[i-1] == '\n' {
			return i
		}
	}
}

// nextBreak returns the index of the first "\n\n" at or after from, or -1.
func nextBreak(content string, from int) int {
	j := strings.Index(content[from:], "\n\n")
	if j < 0 {
		return -1
	}
	return from + j
}

// closeFence finds where the fenced block opening at open is complete.
// It returns the index just past the newline ending the closing fence's
// line, or ok=false while the block is still growing: the opening line has
// no newline yet, no line-initial "```" follows it, or the closing line is
// not newline-terminated yet.
func closeFence(content string, open int) (end int, ok bool) {
	nl := strings.IndexByte(content[open:], '\n')
	if nl < 0 {
		return 0, false
	}
	j := strings.Index(content[open+nl:], "\n```")
	if j < 0 {
		return 0, false
	}
	closing := open + nl + j + 1
	lineEnd := strings.IndexByte(content[closing:], '\n')
	if lineEnd < 0 {
		return 0, false
	}
	return closing + lineEnd + 1, true
}
