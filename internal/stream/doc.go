// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream captures incremental AI responses from chat providers.
//
// Three wire protocols are supported: OpenAI-compatible SSE (OpenAI, xAI,
// OpenRouter, and any custom endpoint), Anthropic's event-typed SSE, and
// Ollama's newline-delimited JSON. Every provider is reduced to the same
// Chunk sequence: zero or more content/thinking increments followed by
// exactly one terminal chunk with Done set.
//
// # Key Types
//
//   - Chunk: One streaming increment: content, thinking, tool calls,
//     usage, or the terminal done marker
//   - Client: Provider-neutral streaming interface; New picks the
//     implementation from config
//   - SSEReader: Capped server-sent-events reader shared by the OpenAI
//     and Anthropic clients
//   - Buffer: Token batcher that paces display flushes to a frame rate
//   - Accumulator: Collects a chunk sequence back into full content,
//     thinking, tool calls, and statistics
//
// # Delivery Contract
//
// Chunks arrive on the caller's goroutine through the Callback, in order.
// The terminal chunk is emitted exactly once per Stream call, even when
// the connection drops mid-response or the byte caps trip. Transient
// failures (5xx, network) are retried with backoff only while nothing has
// been delivered yet; once chunks have gone out, a failure surfaces as a
// StreamError carrying the partial content instead of a silent replay.
//
// # Usage
//
//	client, err := stream.New(config.Global())
//	if err != nil { ... }
//	err = client.Stream(ctx, stream.Request{
//	    Model:    cfg.Provider.ResolvedModel(),
//	    Messages: session.History(),
//	}, func(ch stream.Chunk) error {
//	    buf.Write(ch.Content)
//	    if s, ok := buf.Flush(); ok {
//	        repaint(s)
//	    }
//	    return nil
//	})
package stream
