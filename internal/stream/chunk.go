// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/jeranaias/aerochat/internal/model"
)

// =============================================================================
// CHUNK TYPE
// =============================================================================

// Chunk is one increment of a streaming response. Most chunks carry only
// Content or Thinking; the terminal chunk carries Done plus whatever the
// provider reported at the end (tool calls, usage, finish reason).
type Chunk struct {
	// Content is a fragment of the assistant's visible reply.
	Content string

	// Thinking is a fragment of the model's reasoning trace, when the
	// provider streams one separately from content.
	Thinking string

	// ThinkingDone marks the end of the reasoning trace. Sent at most
	// once, always before the terminal chunk.
	ThinkingDone bool

	// Done marks the terminal chunk. Emitted exactly once per stream,
	// including on mid-stream failure.
	Done bool

	// ToolCalls are the fully assembled tool invocations the model
	// requested, present only on the terminal chunk.
	ToolCalls []model.ToolCall

	// InputTokens and OutputTokens are provider-reported usage, zero when
	// the provider never said.
	InputTokens  int
	OutputTokens int

	// FinishReason is the provider's stop reason: "stop", "length",
	// "tool_calls", "end_turn". Empty until the terminal chunk.
	FinishReason string

	// Err is set on a terminal chunk produced by a mid-stream failure,
	// so channel consumers see why the stream ended early.
	Err error
}

// Callback receives chunks in order on the streaming goroutine. Returning
// an error aborts the stream.
type Callback func(Chunk) error

// =============================================================================
// REQUEST TYPE
// =============================================================================

// Request is the provider-neutral description of one chat completion.
type Request struct {
	// Model is the model ID to request. Empty means the client's
	// configured model.
	Model string

	// Messages is the conversation so far, oldest first. Tool-result
	// messages are dropped on the wire: this client renders tool calls
	// as chips but never executes them.
	Messages []*model.Message

	// MaxTokens caps the response length. Zero means provider default.
	MaxTokens int
}

// chatMessage is the wire form shared by the OpenAI-compatible and Ollama
// request bodies.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// wireMessages lowers conversation history to role/content pairs, skipping
// roles the wire format has no slot for.
func wireMessages(msgs []*model.Message, includeSystem bool) []chatMessage {
	out := make([]chatMessage, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		switch m.Role {
		case model.RoleUser, model.RoleAssistant:
			out = append(out, chatMessage{Role: m.Role.String(), Content: m.GetDisplayContent()})
		case model.RoleSystem:
			if includeSystem {
				out = append(out, chatMessage{Role: m.Role.String(), Content: m.GetDisplayContent()})
			}
		}
	}
	return out
}

// systemText extracts the first system message, for providers that take the
// system prompt as a top-level field instead of a message.
func systemText(msgs []*model.Message) string {
	for _, m := range msgs {
		if m != nil && m.Role == model.RoleSystem {
			return m.GetDisplayContent()
		}
	}
	return ""
}

// =============================================================================
// PARTIAL TOOL CALLS
// =============================================================================

// partialToolCall grows from the fragments a provider streams: id and name
// arrive once, arguments accumulate as raw text until the stream ends.
type partialToolCall struct {
	id   string
	name string
	args strings.Builder
}

// assembleToolCalls orders partials by stream index and validates each
// argument blob. Fragments that never assembled into JSON degrade to "{}"
// rather than propagating invalid text.
func assembleToolCalls(partials map[int]*partialToolCall) []model.ToolCall {
	if len(partials) == 0 {
		return nil
	}
	idxs := make([]int, 0, len(partials))
	for i := range partials {
		idxs = append(idxs, i)
	}
	sort.Ints(idxs)

	calls := make([]model.ToolCall, 0, len(idxs))
	for _, i := range idxs {
		p := partials[i]
		args := strings.TrimSpace(p.args.String())
		if args == "" || !json.Valid([]byte(args)) {
			args = "{}"
		}
		calls = append(calls, model.ToolCall{ID: p.id, Name: p.name, ArgsJSON: args})
	}
	return calls
}

// =============================================================================
// EMITTER
// =============================================================================

// emitter funnels every chunk a provider produces through one gate so the
// done-exactly-once contract holds no matter how a stream ends. It also
// keeps the delivered content for StreamError reporting.
type emitter struct {
	fn        Callback
	delivered bool
	done      bool
	aborted   bool
	partial   strings.Builder
}

func newEmitter(fn Callback) *emitter {
	return &emitter{fn: fn}
}

// send forwards one chunk. Chunks after the terminal one are dropped, and
// a callback that returned an error is never called again.
func (e *emitter) send(ch Chunk) error {
	if e.done || e.aborted {
		return nil
	}
	if ch.Done {
		e.done = true
	}
	e.delivered = true
	e.partial.WriteString(ch.Content)
	if err := e.fn(ch); err != nil {
		e.aborted = true
		return err
	}
	return nil
}

// finish forces ch to be the terminal chunk. Safe to call more than once;
// only the first call emits.
func (e *emitter) finish(ch Chunk) error {
	ch.Done = true
	return e.send(ch)
}

// =============================================================================
// ACCUMULATOR
// =============================================================================

// Accumulator collects a chunk sequence back into a whole response.
type Accumulator struct {
	content   strings.Builder
	thinking  strings.Builder
	toolCalls []model.ToolCall
	finish    string
	done      bool
	chunks    int
	stats     *model.Statistics
}

// NewAccumulator returns an empty accumulator with timing started now.
func NewAccumulator() *Accumulator {
	return &Accumulator{stats: model.NewStatistics()}
}

// Add folds one chunk into the accumulated state.
func (a *Accumulator) Add(ch Chunk) {
	if ch.Content != "" {
		a.stats.RecordFirstToken()
		a.content.WriteString(ch.Content)
		a.chunks++
	}
	if ch.Thinking != "" {
		a.thinking.WriteString(ch.Thinking)
	}
	if len(ch.ToolCalls) > 0 {
		a.toolCalls = append(a.toolCalls, ch.ToolCalls...)
	}
	if ch.InputTokens > 0 || ch.OutputTokens > 0 {
		a.stats.SetUsage(ch.InputTokens, ch.OutputTokens)
	}
	if ch.FinishReason != "" {
		a.finish = ch.FinishReason
	}
	if ch.Done && !a.done {
		a.done = true
		// Each content delta approximates one token when the provider
		// never reported usage.
		a.stats.Finalize(a.chunks)
	}
}

// Callback returns an adapter that feeds the accumulator, for passing
// straight to Client.Stream.
func (a *Accumulator) Callback() Callback {
	return func(ch Chunk) error {
		a.Add(ch)
		return nil
	}
}

// Content returns the assembled visible reply.
func (a *Accumulator) Content() string { return a.content.String() }

// Thinking returns the assembled reasoning trace.
func (a *Accumulator) Thinking() string { return a.thinking.String() }

// ToolCalls returns the tool invocations the model requested.
func (a *Accumulator) ToolCalls() []model.ToolCall { return a.toolCalls }

// FinishReason returns the provider's stop reason, empty if none arrived.
func (a *Accumulator) FinishReason() string { return a.finish }

// Done reports whether the terminal chunk arrived.
func (a *Accumulator) Done() bool { return a.done }

// Stats returns the generation statistics. Finalized once Done.
func (a *Accumulator) Stats() *model.Statistics { return a.stats }

// =============================================================================
// CHANNEL VARIANT
// =============================================================================

// StreamChan runs client.Stream on its own goroutine and delivers chunks
// over a channel. Both channels close when the stream ends; the error
// channel yields at most one error.
func StreamChan(ctx context.Context, client Client, req Request) (<-chan Chunk, <-chan error) {
	chunks := make(chan Chunk, 64)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		err := client.Stream(ctx, req, func(ch Chunk) error {
			select {
			case chunks <- ch:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			errs <- err
		}
	}()

	return chunks, errs
}
