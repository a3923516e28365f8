// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// PERFORMANCE: Token batching prevents render thrash during fast streams

const (
	defaultBatchSize = 3
	defaultMaxFPS    = 30
)

// Buffer batches streamed tokens so the display repaints at a sane rate
// instead of once per delta. A flush is due when a full batch is waiting,
// or when the frame-rate limiter grants a slot for a partial one, so slow
// trickles still reach the screen promptly.
type Buffer struct {
	mu      sync.Mutex
	buf     strings.Builder
	tokens  int
	batch   int
	limiter *rate.Limiter
	due     bool
}

// NewBuffer returns a buffer that flushes every batchSize tokens, paced to
// at most maxFPS partial flushes per second. Out-of-range values fall back
// to the defaults (3 tokens, 30 fps).
func NewBuffer(batchSize, maxFPS int) *Buffer {
	if batchSize < 1 {
		batchSize = defaultBatchSize
	}
	if maxFPS < 1 || maxFPS > 120 {
		maxFPS = defaultMaxFPS
	}
	return &Buffer{
		batch:   batchSize,
		limiter: rate.NewLimiter(rate.Limit(maxFPS), 1),
	}
}

// Write appends one token to the pending batch.
func (b *Buffer) Write(token string) {
	if token == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.WriteString(token)
	b.tokens++
}

// Flush returns the pending content when a flush is due, draining the
// buffer. The second return is false when nothing should go out yet.
func (b *Buffer) Flush() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.dueLocked() {
		return "", false
	}
	return b.drainLocked(), true
}

// ShouldFlush reports whether Flush would return content right now.
func (b *Buffer) ShouldFlush() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dueLocked()
}

// ForceFlush drains the buffer regardless of batch size or pacing. Used
// for the final repaint when a stream ends.
func (b *Buffer) ForceFlush() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.drainLocked()
}

// Reset discards pending content without returning it.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
	b.tokens = 0
	b.due = false
}

// Pending returns the number of buffered bytes.
func (b *Buffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

// dueLocked decides whether a flush should happen. Allow spends a limiter
// slot, so the grant is remembered: ShouldFlush followed by Flush
// consumes one slot, not two.
func (b *Buffer) dueLocked() bool {
	if b.buf.Len() == 0 {
		return false
	}
	if b.tokens >= b.batch {
		return true
	}
	if b.due {
		return true
	}
	if b.limiter.Allow() {
		b.due = true
		return true
	}
	return false
}

func (b *Buffer) drainLocked() string {
	out := b.buf.String()
	b.buf.Reset()
	b.tokens = 0
	b.due = false
	return out
}
