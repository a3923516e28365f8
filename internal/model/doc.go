// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
//
// # Key Types
//
//   - Provider: AI backend identifier (openai, anthropic, xai, openrouter,
//     ollama, custom)
//   - Role: message sender (user, assistant, system, tool)
//   - Message: one message, including live streaming accumulation state
//   - ToolCall: a tool invocation captured from a streamed response
//   - Statistics: timing and token metrics for one generation
//   - Session: a conversation with metadata, history, and token tracking
//   - ModelInfo: registry entry describing a known model
//
// # Streaming
//
// An assistant Message is created in streaming mode and accumulates content
// and thinking tokens through AppendToken and AppendThinking. FinalizeStream
// merges the accumulated text into the persisted fields and records the
// generation statistics. GetDisplayContent always returns whatever should be
// on screen right now, streaming or settled.
//
// Messages are not safe for concurrent mutation; a single goroutine owns a
// streaming message at a time.
package model
