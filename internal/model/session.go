// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// MaxMessages is the maximum number of messages to keep in session history.
// When exceeded, old messages are pruned to prevent unbounded memory growth.
const MaxMessages = 1000

// =============================================================================
// SESSION TYPE
// =============================================================================

// Session holds a complete chat session with history and metadata. The
// field set mirrors the history store's sessions table so a Session round
// trips through persistence without translation.
type Session struct {
	// Identity
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Backend configuration
	Provider Provider `json:"provider"`
	Model    string   `json:"model"`

	// Messages
	Messages []*Message `json:"messages"`

	// Context tracking
	TokensUsed     int     `json:"tokens_used"`
	MaxTokens      int     `json:"max_tokens"`
	ContextPercent float64 `json:"-"` // Computed, not persisted

	// System prompt (optional)
	SystemPrompt string `json:"system_prompt,omitempty"`
}

// NewSession creates a new session with a generated ID.
func NewSession() *Session {
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Messages:  make([]*Message, 0),
		MaxTokens: 128000, // Default context window
	}
}

// NewSessionWith creates a new session bound to a provider and model.
func NewSessionWith(provider Provider, modelID string) *Session {
	s := NewSession()
	s.Provider = provider
	s.Model = modelID
	if info, ok := GetModelInfo(modelID); ok && info.MaxTokens > 0 {
		s.MaxTokens = info.MaxTokens
	}
	return s
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AddMessage adds a message to the session.
func (s *Session) AddMessage(msg *Message) {
	s.Messages = append(s.Messages, msg)
	s.UpdatedAt = time.Now()
	s.updateTokenEstimate()
	s.updateTitle()
	s.pruneOldMessages()
}

// AddUserMessage creates and adds a user message.
func (s *Session) AddUserMessage(content string) *Message {
	msg := NewUserMessage(content)
	s.AddMessage(msg)
	return msg
}

// AddAssistantMessage creates and adds a streaming assistant message.
func (s *Session) AddAssistantMessage() *Message {
	msg := NewAssistantMessage()
	s.AddMessage(msg)
	return msg
}

// AddSystemMessage creates and adds a system message.
func (s *Session) AddSystemMessage(content string) *Message {
	msg := NewSystemMessage(content)
	s.AddMessage(msg)
	return msg
}

// AddToolMessage creates and adds a tool result message.
func (s *Session) AddToolMessage(toolName string, result string, success bool) *Message {
	msg := NewToolMessage(toolName, result, success)
	s.AddMessage(msg)
	return msg
}

// GetLastMessage returns the most recent message, or nil if empty.
func (s *Session) GetLastMessage() *Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return s.Messages[len(s.Messages)-1]
}

// GetLastAssistantMessage returns the most recent assistant message.
func (s *Session) GetLastAssistantMessage() *Message {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i]
		}
	}
	return nil
}

// GetLastUserMessage returns the most recent user message.
func (s *Session) GetLastUserMessage() *Message {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i]
		}
	}
	return nil
}

// AppendToLast appends a content token to the last (streaming) message.
func (s *Session) AppendToLast(token string) {
	last := s.GetLastMessage()
	if last != nil && last.IsStreaming {
		last.AppendToken(token)
	}
}

// FinalizeLast finalizes the last streaming message with statistics.
func (s *Session) FinalizeLast(stats *Statistics) {
	last := s.GetLastMessage()
	if last != nil && last.IsStreaming {
		last.FinalizeStream(stats)
		s.updateTokenEstimate()
	}
}

// ClearHistory removes all messages from the session.
func (s *Session) ClearHistory() {
	s.Messages = make([]*Message, 0)
	s.TokensUsed = 0
	s.ContextPercent = 0
	s.UpdatedAt = time.Now()
}

// RemoveMessage removes a message by ID.
func (s *Session) RemoveMessage(id string) bool {
	for i, msg := range s.Messages {
		if msg.ID == id {
			s.Messages = append(s.Messages[:i], s.Messages[i+1:]...)
			s.UpdatedAt = time.Now()
			s.updateTokenEstimate()
			return true
		}
	}
	return false
}

// GetMessageByID returns a message by its ID.
func (s *Session) GetMessageByID(id string) *Message {
	for _, msg := range s.Messages {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

// MessageCount returns the number of messages.
func (s *Session) MessageCount() int {
	return len(s.Messages)
}

// IsEmpty returns true if there are no messages.
func (s *Session) IsEmpty() bool {
	return len(s.Messages) == 0
}

// History returns the message history for display.
func (s *Session) History() []*Message {
	return s.Messages
}

// =============================================================================
// TOKEN TRACKING
// =============================================================================

// EstimateTokens estimates the total token count of the session.
func (s *Session) EstimateTokens() int {
	total := 0

	// System prompt tokens
	if s.SystemPrompt != "" {
		total += (len(s.SystemPrompt) + 3) / 4
	}

	// Message tokens
	for _, msg := range s.Messages {
		total += msg.EstimateTokens()
		// Add overhead for message structure (~4 tokens per message)
		total += 4
	}

	return total
}

// updateTokenEstimate updates the token usage and context percentage.
func (s *Session) updateTokenEstimate() {
	s.TokensUsed = s.EstimateTokens()
	if s.MaxTokens > 0 {
		s.ContextPercent = float64(s.TokensUsed) / float64(s.MaxTokens) * 100
	}
}

// GetContextPercent returns the percentage of context window used.
func (s *Session) GetContextPercent() float64 {
	return s.ContextPercent
}

// IsContextNearLimit returns true if context usage is above 75%.
func (s *Session) IsContextNearLimit() bool {
	return s.ContextPercent >= 75
}

// IsContextCritical returns true if context usage is above 90%.
func (s *Session) IsContextCritical() bool {
	return s.ContextPercent >= 90
}

// SetMaxTokens updates the maximum context window.
func (s *Session) SetMaxTokens(max int) {
	s.MaxTokens = max
	s.updateTokenEstimate()
}

// =============================================================================
// TITLE MANAGEMENT
// =============================================================================

// updateTitle auto-generates a title from the first user message if not set.
func (s *Session) updateTitle() {
	if s.Title != "" {
		return
	}

	for _, msg := range s.Messages {
		if msg.Role == RoleUser {
			s.Title = msg.Preview(50)
			return
		}
	}
}

// SetTitle manually sets the session title.
func (s *Session) SetTitle(title string) {
	s.Title = title
	s.UpdatedAt = time.Now()
}

// GetTitle returns the session title or a default.
func (s *Session) GetTitle() string {
	if s.Title != "" {
		return s.Title
	}
	return "New Chat"
}

// =============================================================================
// METADATA
// =============================================================================

// Preview returns a short preview of the session.
func (s *Session) Preview() string {
	if len(s.Messages) == 0 {
		return "Empty session"
	}

	msg := s.GetLastUserMessage()
	if msg == nil {
		msg = s.Messages[0]
	}

	return msg.Preview(100)
}

// Meta returns lightweight metadata about the session.
func (s *Session) Meta() SessionMeta {
	return SessionMeta{
		ID:           s.ID,
		Title:        s.GetTitle(),
		Provider:     s.Provider,
		Model:        s.Model,
		MessageCount: len(s.Messages),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		Preview:      s.Preview(),
	}
}

// SessionMeta holds lightweight metadata for listing sessions.
type SessionMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Provider     Provider  `json:"provider"`
	Model        string    `json:"model"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Preview      string    `json:"preview"`
}

// Clone creates a deep copy of the session. A message still streaming is
// captured as a settled snapshot of its content so far.
func (s *Session) Clone() *Session {
	clone := &Session{
		ID:           s.ID,
		Title:        s.Title,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		Provider:     s.Provider,
		Model:        s.Model,
		TokensUsed:   s.TokensUsed,
		MaxTokens:    s.MaxTokens,
		SystemPrompt: s.SystemPrompt,
		Messages:     make([]*Message, len(s.Messages)),
	}

	for i, msg := range s.Messages {
		msgCopy := Message{
			ID:            msg.ID,
			Role:          msg.Role,
			Timestamp:     msg.Timestamp,
			Content:       msg.GetDisplayContent(),
			Thinking:      msg.GetDisplayThinking(),
			TokenCount:    msg.TokenCount,
			ToolName:      msg.ToolName,
			ToolResult:    msg.ToolResult,
			IsSuccess:     msg.IsSuccess,
			TTFT:          msg.TTFT,
			TotalDuration: msg.TotalDuration,
			TokensPerSec:  msg.TokensPerSec,
			FinishReason:  msg.FinishReason,
		}
		if len(msg.ToolCalls) > 0 {
			msgCopy.ToolCalls = append([]ToolCall(nil), msg.ToolCalls...)
		}
		clone.Messages[i] = &msgCopy
	}

	return clone
}

// pruneOldMessages removes old messages when history exceeds MaxMessages.
// System messages are always kept.
func (s *Session) pruneOldMessages() {
	if len(s.Messages) <= MaxMessages {
		return
	}

	var systemMessages []*Message
	var otherMessages []*Message
	for _, msg := range s.Messages {
		if msg.Role == RoleSystem {
			systemMessages = append(systemMessages, msg)
		} else {
			otherMessages = append(otherMessages, msg)
		}
	}

	if len(otherMessages) > MaxMessages {
		otherMessages = otherMessages[len(otherMessages)-MaxMessages:]
	}

	s.Messages = make([]*Message, 0, len(systemMessages)+len(otherMessages))
	s.Messages = append(s.Messages, systemMessages...)
	s.Messages = append(s.Messages, otherMessages...)
}
