// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jeranaias/aerochat/internal/config"
	"github.com/jeranaias/aerochat/internal/model"
)

// anthropicVersion is required on every request; this one enables prompt
// caching and thinking blocks.
const anthropicVersion = "2025-04-15"

// anthropicDefaultMaxTokens applies when the request does not say;
// max_tokens is mandatory on this API.
const anthropicDefaultMaxTokens = 4096

// =============================================================================
// ANTHROPIC CLIENT
// =============================================================================

// AnthropicClient streams messages from the Anthropic API, whose SSE
// events are typed rather than raw deltas.
type AnthropicClient struct {
	baseURL    string
	apiKey     string
	modelID    string
	timeout    time.Duration
	retry      retryPolicy
	maxBuffer  int64
	httpClient *http.Client
}

// NewAnthropic builds a client from the [provider] and [stream] config
// sections. The API key is resolved from the environment at construction.
func NewAnthropic(cfg *config.Config) *AnthropicClient {
	return &AnthropicClient{
		baseURL: resolveBaseURL(model.ProviderAnthropic, cfg.Provider.BaseURL),
		apiKey:  cfg.Provider.APIKey(),
		modelID: cfg.Provider.ResolvedModel(),
		timeout: time.Duration(cfg.Provider.TimeoutSecs) * time.Second,
		retry: retryPolicy{
			maxRetries: cfg.Stream.MaxRetries,
			baseDelay:  time.Duration(cfg.Stream.RetryBaseMs) * time.Millisecond,
		},
		maxBuffer:  int64(cfg.Stream.MaxBufferMB) * 1024 * 1024,
		httpClient: sharedStreamingClient,
	}
}

// WithBaseURL overrides the endpoint. Chainable.
func (c *AnthropicClient) WithBaseURL(url string) *AnthropicClient {
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// WithModel overrides the model ID. Chainable.
func (c *AnthropicClient) WithModel(id string) *AnthropicClient {
	c.modelID = id
	return c
}

// WithTimeout overrides the whole-request timeout; zero disables it.
// Chainable.
func (c *AnthropicClient) WithTimeout(d time.Duration) *AnthropicClient {
	c.timeout = d
	return c
}

// WithMaxRetries overrides the retry budget. Chainable.
func (c *AnthropicClient) WithMaxRetries(n int) *AnthropicClient {
	c.retry.maxRetries = n
	return c
}

// Provider returns model.ProviderAnthropic.
func (c *AnthropicClient) Provider() model.Provider { return model.ProviderAnthropic }

// IsConfigured reports whether an API key is present.
func (c *AnthropicClient) IsConfigured() bool { return c.apiKey != "" }

// MaskedKey returns a log-safe rendering of the API key.
func (c *AnthropicClient) MaskedKey() string { return maskKey(c.apiKey) }

// =============================================================================
// WIRE TYPES
// =============================================================================

type anCacheControl struct {
	Type string `json:"type"`
}

// anSystemBlock carries the system prompt as a cacheable content block.
type anSystemBlock struct {
	Type         string          `json:"type"`
	Text         string          `json:"text"`
	CacheControl *anCacheControl `json:"cache_control,omitempty"`
}

type anRequest struct {
	Model     string          `json:"model"`
	Messages  []chatMessage   `json:"messages"`
	System    []anSystemBlock `json:"system,omitempty"`
	MaxTokens int             `json:"max_tokens"`
	Stream    bool            `json:"stream"`
}

type anUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
}

type anContentBlock struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

// anDelta is the union of every delta shape: text_delta, thinking_delta,
// input_json_delta, and the message_delta stop reason.
type anDelta struct {
	Type        string `json:"type"`
	Text        string `json:"text"`
	Thinking    string `json:"thinking"`
	PartialJSON string `json:"partial_json"`
	StopReason  string `json:"stop_reason"`
}

type anEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`

	Message *struct {
		Usage anUsage `json:"usage"`
	} `json:"message"`

	ContentBlock *anContentBlock `json:"content_block"`
	Delta        *anDelta        `json:"delta"`
	Usage        *anUsage        `json:"usage"`

	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// =============================================================================
// STREAMING
// =============================================================================

// Stream sends the request and delivers chunks through fn until the
// terminal chunk. See the package doc for the delivery contract.
func (c *AnthropicClient) Stream(ctx context.Context, req Request, fn Callback) error {
	if !c.IsConfigured() {
		return fmt.Errorf("%w: anthropic", ErrNotConfigured)
	}
	modelID := req.Model
	if modelID == "" {
		modelID = c.modelID
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	em := newEmitter(fn)
	return streamWithRetry(ctx, c.retry, em, func(ctx context.Context) error {
		return c.streamOnce(ctx, modelID, req, em)
	})
}

func (c *AnthropicClient) streamOnce(ctx context.Context, modelID string, req Request, em *emitter) error {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}
	wireReq := anRequest{
		Model:     modelID,
		Messages:  wireMessages(req.Messages, false),
		MaxTokens: maxTokens,
		Stream:    true,
	}
	if sys := systemText(req.Messages); sys != "" {
		wireReq.System = []anSystemBlock{{
			Type:         "text",
			Text:         sys,
			CacheControl: &anCacheControl{Type: "ephemeral"},
		}}
	}

	body, err := json.Marshal(wireReq)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return handleErrorResponse(resp)
	}
	return c.readStream(resp.Body, em)
}

// readStream walks the typed event sequence. Thinking blocks close with a
// ThinkingDone chunk, whether they end at content_block_stop or at the
// start of the text block that follows.
func (c *AnthropicClient) readStream(body io.Reader, em *emitter) error {
	sr := NewSSEReader(body, c.maxBuffer)

	var (
		partials     map[int]*partialToolCall
		inThinking   bool
		thinkingDone bool
		finishReason string
		inTok        int
		outTok       int
	)

	closeThinking := func() error {
		if !inThinking {
			return nil
		}
		inThinking = false
		if thinkingDone {
			return nil
		}
		thinkingDone = true
		return em.send(Chunk{ThinkingDone: true})
	}

	finish := func() error {
		if err := closeThinking(); err != nil {
			return err
		}
		return em.finish(Chunk{
			ToolCalls:    assembleToolCalls(partials),
			InputTokens:  inTok,
			OutputTokens: outTok,
			FinishReason: finishReason,
		})
	}

	for {
		sse, err := sr.ReadEvent()
		if err == io.EOF {
			// A dropped connection still terminates the chunk sequence.
			return finish()
		}
		if err != nil {
			return err
		}
		data := strings.TrimSpace(sse.Data)
		if data == "" {
			continue
		}

		var ev anEvent
		if json.Unmarshal([]byte(data), &ev) != nil {
			continue
		}

		switch ev.Type {
		case "message_start":
			if ev.Message != nil {
				u := ev.Message.Usage
				inTok = u.InputTokens + u.CacheCreationInputTokens + u.CacheReadInputTokens
			}

		case "content_block_start":
			if ev.ContentBlock == nil {
				continue
			}
			switch ev.ContentBlock.Type {
			case "tool_use":
				if partials == nil {
					partials = make(map[int]*partialToolCall)
				}
				partials[ev.Index] = &partialToolCall{
					id:   ev.ContentBlock.ID,
					name: ev.ContentBlock.Name,
				}
			case "thinking", "redacted_thinking":
				inThinking = true
			case "text":
				if err := closeThinking(); err != nil {
					return err
				}
			}

		case "content_block_delta":
			if ev.Delta == nil {
				continue
			}
			switch ev.Delta.Type {
			case "text_delta":
				if ev.Delta.Text != "" {
					if err := em.send(Chunk{Content: ev.Delta.Text}); err != nil {
						return err
					}
				}
			case "thinking_delta":
				if ev.Delta.Thinking != "" {
					if err := em.send(Chunk{Thinking: ev.Delta.Thinking}); err != nil {
						return err
					}
				}
			case "input_json_delta":
				if p := partials[ev.Index]; p != nil {
					p.args.WriteString(ev.Delta.PartialJSON)
				}
			}

		case "content_block_stop":
			if err := closeThinking(); err != nil {
				return err
			}

		case "message_delta":
			if ev.Delta != nil && ev.Delta.StopReason != "" {
				finishReason = ev.Delta.StopReason
			}
			if ev.Usage != nil && ev.Usage.OutputTokens > 0 {
				outTok = ev.Usage.OutputTokens
			}

		case "message_stop":
			return finish()

		case "error":
			if ev.Error != nil {
				return fmt.Errorf("%s: %s", ev.Error.Type, ev.Error.Message)
			}
			return fmt.Errorf("provider reported an unspecified stream error")
		}
		// ping and unknown event types are skipped
	}
}
