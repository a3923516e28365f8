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

// =============================================================================
// OPENAI-COMPATIBLE CLIENT
// =============================================================================

// OpenAIClient streams chat completions from any OpenAI-compatible
// endpoint: OpenAI itself, xAI, OpenRouter, and custom servers (LM Studio,
// vLLM, llama.cpp server).
type OpenAIClient struct {
	provider   model.Provider
	baseURL    string
	apiKey     string
	modelID    string
	timeout    time.Duration
	retry      retryPolicy
	maxBuffer  int64
	httpClient *http.Client
}

// NewOpenAI builds a client from the [provider] and [stream] config
// sections. The API key is resolved from the environment at construction.
func NewOpenAI(cfg *config.Config) *OpenAIClient {
	p := model.Provider(strings.ToLower(cfg.Provider.Type))
	if !p.OpenAICompatible() {
		p = model.ProviderOpenAI
	}
	return &OpenAIClient{
		provider: p,
		baseURL:  resolveBaseURL(p, cfg.Provider.BaseURL),
		apiKey:   cfg.Provider.APIKey(),
		modelID:  cfg.Provider.ResolvedModel(),
		timeout:  time.Duration(cfg.Provider.TimeoutSecs) * time.Second,
		retry: retryPolicy{
			maxRetries: cfg.Stream.MaxRetries,
			baseDelay:  time.Duration(cfg.Stream.RetryBaseMs) * time.Millisecond,
		},
		maxBuffer:  int64(cfg.Stream.MaxBufferMB) * 1024 * 1024,
		httpClient: sharedStreamingClient,
	}
}

// WithBaseURL overrides the endpoint. Chainable.
func (c *OpenAIClient) WithBaseURL(url string) *OpenAIClient {
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// WithModel overrides the model ID. Chainable.
func (c *OpenAIClient) WithModel(id string) *OpenAIClient {
	c.modelID = id
	return c
}

// WithTimeout overrides the whole-request timeout; zero disables it.
// Chainable.
func (c *OpenAIClient) WithTimeout(d time.Duration) *OpenAIClient {
	c.timeout = d
	return c
}

// WithMaxRetries overrides the retry budget. Chainable.
func (c *OpenAIClient) WithMaxRetries(n int) *OpenAIClient {
	c.retry.maxRetries = n
	return c
}

// Provider returns which OpenAI-compatible provider this client targets.
func (c *OpenAIClient) Provider() model.Provider { return c.provider }

// IsConfigured reports whether a request could be attempted. Custom
// endpoints only need a base URL; the hosted providers need a key.
func (c *OpenAIClient) IsConfigured() bool {
	if c.provider == model.ProviderCustom {
		return c.baseURL != ""
	}
	return c.apiKey != ""
}

// MaskedKey returns a log-safe rendering of the API key.
func (c *OpenAIClient) MaskedKey() string { return maskKey(c.apiKey) }

// =============================================================================
// WIRE TYPES
// =============================================================================

type oaRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	Stream    bool          `json:"stream"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type oaToolCallDelta struct {
	Index    int    `json:"index"`
	ID       string `json:"id"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type oaDelta struct {
	Content string `json:"content"`
	// Reasoning traces arrive under either key depending on the vendor.
	ReasoningContent string            `json:"reasoning_content"`
	Reasoning        string            `json:"reasoning"`
	ToolCalls        []oaToolCallDelta `json:"tool_calls"`
}

type oaChoice struct {
	Delta        oaDelta `json:"delta"`
	FinishReason string  `json:"finish_reason"`
}

type oaUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type oaEvent struct {
	Choices []oaChoice `json:"choices"`
	Usage   *oaUsage   `json:"usage"`
}

// =============================================================================
// STREAMING
// =============================================================================

// Stream sends the request and delivers chunks through fn until the
// terminal chunk. See the package doc for the delivery contract.
func (c *OpenAIClient) Stream(ctx context.Context, req Request, fn Callback) error {
	if !c.IsConfigured() {
		return fmt.Errorf("%w: %s", ErrNotConfigured, c.provider)
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

func (c *OpenAIClient) streamOnce(ctx context.Context, modelID string, req Request, em *emitter) error {
	body, err := json.Marshal(oaRequest{
		Model:     modelID,
		Messages:  wireMessages(req.Messages, true),
		Stream:    true,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)

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

func (c *OpenAIClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("User-Agent", userAgent)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if c.provider == model.ProviderOpenRouter {
		req.Header.Set("HTTP-Referer", openRouterReferer)
		req.Header.Set("X-Title", openRouterTitle)
	}
}

// readStream consumes SSE events until [DONE] or EOF. Reasoning deltas
// become Thinking chunks; when any arrived, a ThinkingDone chunk goes out
// before the terminal one.
func (c *OpenAIClient) readStream(body io.Reader, em *emitter) error {
	sr := NewSSEReader(body, c.maxBuffer)

	var (
		partials     map[int]*partialToolCall
		hadReasoning bool
		finishReason string
		inTok        int
		outTok       int
	)

	finish := func() error {
		if hadReasoning {
			if err := em.send(Chunk{ThinkingDone: true}); err != nil {
				return err
			}
		}
		return em.finish(Chunk{
			ToolCalls:    assembleToolCalls(partials),
			InputTokens:  inTok,
			OutputTokens: outTok,
			FinishReason: finishReason,
		})
	}

	for {
		ev, err := sr.ReadEvent()
		if err == io.EOF {
			// Some servers close without [DONE]; the terminal chunk
			// still goes out exactly once.
			return finish()
		}
		if err != nil {
			return err
		}

		data := strings.TrimSpace(ev.Data)
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			return finish()
		}

		var event oaEvent
		if json.Unmarshal([]byte(data), &event) != nil {
			// Skip lines that are not deltas (keep-alives, vendor noise).
			continue
		}

		if event.Usage != nil {
			inTok = event.Usage.PromptTokens
			outTok = event.Usage.CompletionTokens
		}
		if len(event.Choices) == 0 {
			continue
		}
		choice := event.Choices[0]
		if choice.FinishReason != "" {
			finishReason = choice.FinishReason
		}

		reasoning := choice.Delta.ReasoningContent
		if reasoning == "" {
			reasoning = choice.Delta.Reasoning
		}
		if reasoning != "" {
			hadReasoning = true
			if err := em.send(Chunk{Thinking: reasoning}); err != nil {
				return err
			}
		}
		if choice.Delta.Content != "" {
			if err := em.send(Chunk{Content: choice.Delta.Content}); err != nil {
				return err
			}
		}
		for _, tc := range choice.Delta.ToolCalls {
			if partials == nil {
				partials = make(map[int]*partialToolCall)
			}
			p := partials[tc.Index]
			if p == nil {
				p = &partialToolCall{}
				partials[tc.Index] = p
			}
			if tc.ID != "" {
				p.id = tc.ID
			}
			if tc.Function.Name != "" {
				p.name = tc.Function.Name
			}
			p.args.WriteString(tc.Function.Arguments)
		}
	}
}
