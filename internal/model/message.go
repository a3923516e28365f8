// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// message.go - Message, role, and generation statistics types.

package model

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/jeranaias/aerochat/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// String returns the wire form of the role.
func (r Role) String() string {
	return string(r)
}

var roleNames = map[Role]string{
	RoleUser:      "You",
	RoleAssistant: "Assistant",
	RoleSystem:    "System",
	RoleTool:      "Tool",
}

// DisplayName returns the label shown in the transcript header for this role.
func (r Role) DisplayName() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return string(r)
}

// =============================================================================
// TOOL CALL TYPE
// =============================================================================

// ToolCall is one tool invocation requested by the model during a response.
// ArgsJSON holds the argument object exactly as the provider sent it, or
// "{}" when the fragments never assembled into valid JSON.
type ToolCall struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	ArgsJSON string `json:"args_json"`
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single transcript entry. A message starts in streaming mode
// when the assistant is still producing it; the accumulated text moves into
// Content and Thinking once the stream settles.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	Content string `json:"content"`

	// Thinking holds the model's reasoning trace when the provider streams
	// one (reasoning_content, thinking deltas). Displayed collapsed.
	Thinking string `json:"thinking,omitempty"`

	// PERFORMANCE: builders avoid quadratic reallocation while tokens arrive.
	// None of the streaming state is persisted.
	IsStreaming    bool            `json:"-"`
	streamContent  strings.Builder `json:"-"`
	streamThinking strings.Builder `json:"-"`

	// Tool invocations the model requested in this message.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	TokenCount int `json:"token_count,omitempty"`

	// Result fields, set on RoleTool messages only.
	ToolName   string `json:"tool_name,omitempty"`
	ToolResult string `json:"tool_result,omitempty"`
	IsSuccess  bool   `json:"is_success,omitempty"`

	// Generation metrics, set on assistant messages when the stream settles.
	TTFT          time.Duration `json:"ttft_ns,omitempty"`
	TotalDuration time.Duration `json:"total_duration_ns,omitempty"`
	TokensPerSec  float64       `json:"tokens_per_sec,omitempty"`

	// FinishReason reports why the provider stopped: stop, length,
	// tool_calls, content_filter. Empty while streaming.
	FinishReason string `json:"finish_reason,omitempty"`
}

// newMessage is the base all constructors share.
func newMessage(role Role) *Message {
	return &Message{
		ID:        generateID(),
		Role:      role,
		Timestamp: time.Now(),
	}
}

// NewMessage creates a settled message with a generated ID.
func NewMessage(role Role, content string) *Message {
	m := newMessage(role)
	m.Content = content
	return m
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) *Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates an assistant message in streaming mode.
func NewAssistantMessage() *Message {
	m := newMessage(RoleAssistant)
	m.IsStreaming = true
	return m
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) *Message {
	return NewMessage(RoleSystem, content)
}

// NewToolMessage creates a settled tool result message.
func NewToolMessage(toolName string, result string, success bool) *Message {
	m := NewMessage(RoleTool, result)
	m.ToolName = toolName
	m.ToolResult = result
	m.IsSuccess = success
	return m
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// AppendToken adds a content token. Tokens arriving after the stream has
// settled are dropped.
func (m *Message) AppendToken(token string) {
	if m.IsStreaming {
		m.streamContent.WriteString(token)
	}
}

// AppendThinking adds a reasoning token, with the same settled-stream guard.
func (m *Message) AppendThinking(token string) {
	if m.IsStreaming {
		m.streamThinking.WriteString(token)
	}
}

// AddToolCall records a tool invocation captured from the stream.
func (m *Message) AddToolCall(tc ToolCall) {
	m.ToolCalls = append(m.ToolCalls, tc)
}

// FinalizeStream moves the accumulated text into the persisted fields and
// copies generation metrics from stats when given. Safe to call twice.
func (m *Message) FinalizeStream(stats *Statistics) {
	if !m.IsStreaming {
		return
	}

	m.Content = m.streamContent.String()
	m.Thinking = m.streamThinking.String()
	m.streamContent.Reset()
	m.streamThinking.Reset()
	m.IsStreaming = false

	if stats != nil {
		m.TTFT = stats.TTFT
		m.TotalDuration = stats.TotalDuration
		m.TokenCount = stats.CompletionTokens
		m.TokensPerSec = stats.TokensPerSecond
	}
}

// GetDisplayContent returns the text to show right now: the live builder
// while streaming, the persisted content after.
func (m *Message) GetDisplayContent() string {
	if m.IsStreaming {
		return m.streamContent.String()
	}
	return m.Content
}

// GetDisplayThinking is GetDisplayContent for the reasoning trace.
func (m *Message) GetDisplayThinking() string {
	if m.IsStreaming {
		return m.streamThinking.String()
	}
	return m.Thinking
}

// HasToolCalls reports whether the model requested any tools.
func (m *Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// Preview returns a single-line preview truncated to maxLen runes.
func (m *Message) Preview(maxLen int) string {
	return util.TruncateRunes(util.CollapseLine(m.GetDisplayContent()), maxLen)
}

// IsEmpty reports whether the message has no content, settled or streaming.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0 && m.streamContent.Len() == 0
}

// EstimateTokens approximates the token count at ~4 characters per token.
func (m *Message) EstimateTokens() int {
	return (len(m.GetDisplayContent()) + 3) / 4
}

// FormatStats renders the metrics line for an assistant message, or ""
// when the message has none.
func (m *Message) FormatStats() string {
	if m.Role != RoleAssistant || m.TotalDuration == 0 {
		return ""
	}
	return statsLine(m.TotalDuration, m.TokenCount, m.TokensPerSec, m.TTFT)
}

// =============================================================================
// STATISTICS TYPE
// =============================================================================

// Statistics accumulates timing and token counts over one generation.
type Statistics struct {
	StartTime      time.Time
	FirstTokenTime time.Time
	EndTime        time.Time

	PromptTokens     int
	CompletionTokens int

	// Derived on Finalize.
	TTFT            time.Duration
	TotalDuration   time.Duration
	TokensPerSecond float64
}

// NewStatistics starts the clock.
func NewStatistics() *Statistics {
	return &Statistics{StartTime: time.Now()}
}

// RecordFirstToken stamps the first token arrival. Later calls are no-ops,
// so callers can invoke it on every token.
func (s *Statistics) RecordFirstToken() {
	if s.FirstTokenTime.IsZero() {
		s.FirstTokenTime = time.Now()
		s.TTFT = s.FirstTokenTime.Sub(s.StartTime)
	}
}

// SetUsage records provider-reported token counts, which win over
// estimates when present.
func (s *Statistics) SetUsage(promptTokens, completionTokens int) {
	if promptTokens > 0 {
		s.PromptTokens = promptTokens
	}
	if completionTokens > 0 {
		s.CompletionTokens = completionTokens
	}
}

// Finalize stops the clock and derives the rates. tokenCount is the
// caller's estimate, used only when the provider never reported usage.
func (s *Statistics) Finalize(tokenCount int) {
	s.EndTime = time.Now()
	if s.CompletionTokens == 0 {
		s.CompletionTokens = tokenCount
	}
	s.TotalDuration = s.EndTime.Sub(s.StartTime)

	if s.TotalDuration > 0 {
		s.TokensPerSecond = float64(s.CompletionTokens) / s.TotalDuration.Seconds()
	}
}

// Format renders the metrics line for a completed generation.
func (s *Statistics) Format() string {
	return statsLine(s.TotalDuration, s.CompletionTokens, s.TokensPerSecond, s.TTFT)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateID returns a fresh message ID, "msg_" plus 16 hex characters.
func generateID() string {
	var b [8]byte
	rand.Read(b[:])
	return "msg_" + hex.EncodeToString(b[:])
}

// statsLine renders "2.5s | 128 tokens | 51.2 tok/s | TTFT 234ms".
func statsLine(total time.Duration, tokens int, tps float64, ttft time.Duration) string {
	return formatSeconds(total.Seconds()) + " | " +
		util.IntToString(tokens) + " tokens | " +
		util.FloatToStringPrec(tps, 1) + " tok/s | " +
		"TTFT " + util.IntToString(int(ttft.Milliseconds())) + "ms"
}

// formatSeconds renders a duration in seconds as "850ms" or "2.5s".
func formatSeconds(seconds float64) string {
	if seconds < 1 {
		return util.IntToString(int(seconds*1000)) + "ms"
	}
	return util.FloatToStringPrec(seconds, 1) + "s"
}
