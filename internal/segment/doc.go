// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package segment turns a streaming AI chat buffer into renderable pieces.
//
// The buffer grows by appended tokens while a response streams. Each update
// the caller re-runs the same pure functions over the whole buffer; nothing
// in this package keeps state between calls.
//
// # Key Types
//
//   - Segment: one piece of a message, either prose or an inline tool chip
//   - Kind: segment discriminator (KindProse, KindToolChip)
//   - FinalizeResult: finalized markdown chunks plus the volatile tail
//
// # Key Functions
//
//   - Split: partitions a buffer into prose and tool-chip segments
//   - ExtractBalancedObject: bounds a JSON object by brace counting
//   - Finalize: splits streaming prose into immutable chunks and a live tail
//
// # Stability Guarantee
//
// Finalize promises that once a chunk is emitted at index i, every later call
// on an append-grown buffer returns the identical chunk at index i, and the
// number of finalized chunks never decreases. A renderer may therefore key
// chunk i of segment s as (s, i) and memoize its rendering permanently; only
// the InProgress tail needs re-rendering per update. See render.ChunkArena
// for the memoization side.
//
// # Usage
//
//	for token := range stream {
//	    buf += token
//	    for i, seg := range segment.Split(buf) {
//	        if seg.Kind == segment.KindToolChip {
//	            drawChip(seg.ToolName, seg.ArgsJSON)
//	            continue
//	        }
//	        res := segment.Finalize(seg.Text, true)
//	        drawCached(i, res.Finalized)
//	        drawVolatile(res.InProgress)
//	    }
//	}
//	// Stream ended: collapse the tail.
//	final := segment.Finalize(buf, false)
//
// RELIABILITY: every function here is total. Malformed markers, unbalanced
// braces, invalid JSON, and unterminated fences all degrade to a displayable
// result; nothing returns an error and nothing panics.
package segment
