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
// OLLAMA CLIENT
// =============================================================================

// OllamaClient streams chat responses from a local Ollama server, which
// speaks newline-delimited JSON rather than SSE.
type OllamaClient struct {
	baseURL    string
	modelID    string
	timeout    time.Duration
	retry      retryPolicy
	maxBuffer  int64
	httpClient *http.Client
}

// NewOllama builds a client from the [provider] and [stream] config
// sections. No API key is involved; the server is local.
func NewOllama(cfg *config.Config) *OllamaClient {
	return &OllamaClient{
		baseURL: resolveBaseURL(model.ProviderOllama, cfg.Provider.BaseURL),
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
func (c *OllamaClient) WithBaseURL(url string) *OllamaClient {
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// WithModel overrides the model ID. Chainable.
func (c *OllamaClient) WithModel(id string) *OllamaClient {
	c.modelID = id
	return c
}

// WithTimeout overrides the whole-request timeout; zero disables it.
// Chainable.
func (c *OllamaClient) WithTimeout(d time.Duration) *OllamaClient {
	c.timeout = d
	return c
}

// WithMaxRetries overrides the retry budget. Chainable.
func (c *OllamaClient) WithMaxRetries(n int) *OllamaClient {
	c.retry.maxRetries = n
	return c
}

// Provider returns model.ProviderOllama.
func (c *OllamaClient) Provider() model.Provider { return model.ProviderOllama }

// IsConfigured reports whether a base URL is known. Always true in
// practice; the default points at localhost.
func (c *OllamaClient) IsConfigured() bool { return c.baseURL != "" }

// =============================================================================
// WIRE TYPES
// =============================================================================

type olOptions struct {
	NumPredict int `json:"num_predict,omitempty"`
}

type olRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *olOptions    `json:"options,omitempty"`
}

type olResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role     string `json:"role"`
		Content  string `json:"content"`
		Thinking string `json:"thinking"`
	} `json:"message"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// =============================================================================
// STREAMING
// =============================================================================

// Stream sends the request and delivers chunks through fn until the
// terminal chunk. See the package doc for the delivery contract.
func (c *OllamaClient) Stream(ctx context.Context, req Request, fn Callback) error {
	if !c.IsConfigured() {
		return fmt.Errorf("%w: ollama", ErrNotConfigured)
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

func (c *OllamaClient) streamOnce(ctx context.Context, modelID string, req Request, em *emitter) error {
	wireReq := olRequest{
		Model:    modelID,
		Messages: wireMessages(req.Messages, true),
		Stream:   true,
	}
	if req.MaxTokens > 0 {
		wireReq.Options = &olOptions{NumPredict: req.MaxTokens}
	}

	body, err := json.Marshal(wireReq)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
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

// readStream consumes NDJSON lines. Unparseable lines are skipped so one
// mangled line cannot kill a response that is otherwise fine.
func (c *OllamaClient) readStream(body io.Reader, em *emitter) error {
	lr := newLineReader(body, c.maxBuffer)

	var (
		hadThinking  bool
		thinkingDone bool
	)

	for {
		line, err := lr.readLine()
		if err == io.EOF {
			// Server closed without a done line; terminate the sequence.
			return em.finish(Chunk{})
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		var r olResponse
		if json.Unmarshal([]byte(line), &r) != nil {
			continue
		}

		if r.Message.Thinking != "" {
			hadThinking = true
			if err := em.send(Chunk{Thinking: r.Message.Thinking}); err != nil {
				return err
			}
		}
		if r.Message.Content != "" {
			if hadThinking && !thinkingDone {
				thinkingDone = true
				if err := em.send(Chunk{ThinkingDone: true}); err != nil {
					return err
				}
			}
			if err := em.send(Chunk{Content: r.Message.Content}); err != nil {
				return err
			}
		}

		if r.Done {
			if hadThinking && !thinkingDone {
				thinkingDone = true
				if err := em.send(Chunk{ThinkingDone: true}); err != nil {
					return err
				}
			}
			return em.finish(Chunk{
				InputTokens:  r.PromptEvalCount,
				OutputTokens: r.EvalCount,
				FinishReason: r.DoneReason,
			})
		}
	}
}
