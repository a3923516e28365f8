// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/aerochat/internal/model"
	"github.com/jeranaias/aerochat/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultMaxRetries is the number of reconnect attempts on transient
	// failures before giving up.
	DefaultMaxRetries = 3

	// retryBaseDelay is the initial backoff, doubled per attempt.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay caps the computed backoff.
	retryMaxDelay = 10 * time.Second

	// maxErrorBody caps how much of an error response body is read.
	maxErrorBody = 64 * 1024

	userAgent = "aerochat/0.3.0"
)

// OpenRouter attribution headers, sent only to OpenRouter.
const (
	openRouterReferer = "https://github.com/jeranaias/aerochat"
	openRouterTitle   = "aerochat"
)

// =============================================================================
// SHARED HTTP CLIENT
// =============================================================================

// PERFORMANCE: one pooled client for all providers; no client-level
// timeout because a stream lives until its context says otherwise.
var sharedStreamingClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		// SECURITY: TLS 1.2 minimum
		TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
	},
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotConfigured indicates the provider has no API key (or, for a
	// custom endpoint, no base URL).
	ErrNotConfigured = errors.New("provider not configured")

	// ErrAuthFailed indicates authentication failed (invalid or expired API key).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrModelNotFound indicates the requested model does not exist.
	ErrModelNotFound = errors.New("model not found")

	// ErrInsufficientCredits indicates the account has insufficient credits.
	ErrInsufficientCredits = errors.New("insufficient credits")
)

// APIError is a non-2xx response that maps to no sentinel above.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return "HTTP " + strconv.Itoa(e.Status)
	}
	return "HTTP " + strconv.Itoa(e.Status) + ": " + e.Message
}

// RateLimitError carries the server's requested wait, when it sent one.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
	}
	if e.Message != "" {
		return "rate limited: " + e.Message
	}
	return "rate limited"
}

// Is lets errors.Is(err, ErrRateLimited) match.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// StreamError wraps a failure that interrupted a stream, keeping whatever
// content was delivered before it.
type StreamError struct {
	Partial string
	Err     error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream failed after %d bytes of partial content: %v", len(e.Partial), e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR RESPONSE HANDLING
// =============================================================================

// apiErrorBody matches the {"error": {...}} envelope the OpenAI-compatible
// and Anthropic APIs share.
type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// handleErrorResponse turns a non-2xx response into a typed error. 4xx
// statuses map to sentinels so callers can branch without string matching.
func handleErrorResponse(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	msg := ""
	var parsed apiErrorBody
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error.Message != "" {
		msg = parsed.Error.Message
	} else {
		msg = util.TruncateRunes(strings.TrimSpace(string(raw)), 500)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrAuthFailed, msg)
	case http.StatusPaymentRequired:
		return fmt.Errorf("%w: %s", ErrInsufficientCredits, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrModelNotFound, msg)
	case http.StatusTooManyRequests:
		return &RateLimitError{
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Message:    msg,
		}
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}

// parseRetryAfter handles both forms of the header: delay seconds and an
// HTTP date.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// isRetryable reports whether a fresh attempt could plausibly succeed.
// Client mistakes (4xx other than 429) and context errors never retry.
func isRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	if errors.Is(err, ErrAuthFailed) ||
		errors.Is(err, ErrInsufficientCredits) ||
		errors.Is(err, ErrModelNotFound) ||
		errors.Is(err, ErrNotConfigured) {
		return false
	}
	// A response that tripped a byte cap would trip it again.
	if errors.Is(err, ErrEventTooLarge) || errors.Is(err, ErrStreamTooLarge) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// Network-level failures land here.
	return true
}

// calculateBackoff returns the wait before retry number attempt (0-based),
// honoring a server-provided Retry-After when it is longer.
func calculateBackoff(attempt int, base time.Duration, err error) time.Duration {
	if base <= 0 {
		base = retryBaseDelay
	}
	delay := base << attempt
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	var rl *RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter > delay {
		delay = rl.RetryAfter
	}
	return delay
}

// =============================================================================
// RETRY LOOP
// =============================================================================

// retryPolicy is derived from the [stream] config section.
type retryPolicy struct {
	maxRetries int
	baseDelay  time.Duration
}

// streamWithRetry runs attempt until it succeeds, a non-retryable error
// occurs, or retries are exhausted. Only streams that have delivered
// nothing are restarted; after delivery a failure is terminal, because
// replaying the stream would duplicate content the caller has rendered.
func streamWithRetry(ctx context.Context, policy retryPolicy, em *emitter, attempt func(context.Context) error) error {
	if policy.maxRetries < 0 {
		policy.maxRetries = 0
	}
	var lastErr error
	for try := 0; try <= policy.maxRetries; try++ {
		if try > 0 {
			select {
			case <-time.After(calculateBackoff(try-1, policy.baseDelay, lastErr)):
			case <-ctx.Done():
				return failStream(em, ctx.Err())
			}
		}

		err := attempt(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return failStream(em, ctx.Err())
		}
		if !isRetryable(err) || em.delivered {
			return failStream(em, err)
		}
		lastErr = err
	}
	return failStream(em, fmt.Errorf("max retries exceeded: %w", lastErr))
}

// failStream emits the terminal error chunk, then reports the failure,
// wrapped with the partial content when any was delivered.
func failStream(em *emitter, err error) error {
	_ = em.finish(Chunk{Err: err})
	if em.partial.Len() > 0 {
		return &StreamError{Partial: em.partial.String(), Err: err}
	}
	return err
}

// =============================================================================
// KEY MASKING
// =============================================================================

// maskKey renders an API key safe for logs: length and a short
// fingerprint, never any part of the key itself.
// SECURITY: the fingerprint is the first 4 bytes of the SHA-256, enough to
// tell two keys apart and useless for recovery.
func maskKey(key string) string {
	if key == "" {
		return "[not set]"
	}
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("[REDACTED, length=%d, fingerprint=%s]", len(key), hex.EncodeToString(sum[:4]))
}

// =============================================================================
// BASE URLS
// =============================================================================

var defaultBaseURLs = map[model.Provider]string{
	model.ProviderOpenAI:     "https://api.openai.com/v1",
	model.ProviderXAI:        "https://api.x.ai/v1",
	model.ProviderOpenRouter: "https://openrouter.ai/api/v1",
	model.ProviderAnthropic:  "https://api.anthropic.com/v1",
	model.ProviderOllama:     "http://localhost:11434",
}

// resolveBaseURL returns the endpoint to use, preferring the configured
// override and normalizing away a trailing slash.
func resolveBaseURL(p model.Provider, override string) string {
	if override != "" {
		return strings.TrimSuffix(override, "/")
	}
	return defaultBaseURLs[p]
}
