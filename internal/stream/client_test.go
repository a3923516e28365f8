// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/aerochat/internal/model"
)

func TestMaskKey(t *testing.T) {
	if got := maskKey(""); got != "[not set]" {
		t.Errorf("empty key = %q", got)
	}

	// sha256("test") begins 9f86d081.
	got := maskKey("test")
	want := "[REDACTED, length=4, fingerprint=9f86d081]"
	if got != want {
		t.Errorf("maskKey = %q, want %q", got, want)
	}

	// SECURITY: no fragment of the key may survive masking.
	key := "sk-or-v1-abcdef0123456789"
	masked := maskKey(key)
	for i := 0; i+6 <= len(key); i++ {
		if strings.Contains(masked, key[i:i+6]) {
			t.Fatalf("masked output %q leaks key material", masked)
		}
	}
}

func TestMaskKey_DistinguishesKeys(t *testing.T) {
	if maskKey("key-one-aaaaaaaaaaaaaaaaa") == maskKey("key-two-aaaaaaaaaaaaaaaaa") {
		t.Error("different keys produced identical fingerprints")
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"empty", "", 0},
		{"seconds", "3", 3 * time.Second},
		{"zero seconds", "0", 0},
		{"negative", "-5", 0},
		{"garbage", "soon", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseRetryAfter(tt.value); got != tt.want {
				t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}

	t.Run("http date in the future", func(t *testing.T) {
		date := time.Now().Add(5 * time.Second).UTC().Format(http.TimeFormat)
		got := parseRetryAfter(date)
		if got <= 0 || got > 5*time.Second {
			t.Errorf("parseRetryAfter(future date) = %v", got)
		}
	})

	t.Run("http date in the past", func(t *testing.T) {
		date := time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat)
		if got := parseRetryAfter(date); got != 0 {
			t.Errorf("parseRetryAfter(past date) = %v, want 0", got)
		}
	})
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"server error", &APIError{Status: 500}, true},
		{"bad gateway", &APIError{Status: 502}, true},
		{"client error", &APIError{Status: 400}, false},
		{"auth failure", fmt.Errorf("%w: bad key", ErrAuthFailed), false},
		{"missing model", fmt.Errorf("%w: gpt-x", ErrModelNotFound), false},
		{"no credits", fmt.Errorf("%w: topped out", ErrInsufficientCredits), false},
		{"not configured", ErrNotConfigured, false},
		{"rate limited", &RateLimitError{}, true},
		{"event too large", ErrEventTooLarge, false},
		{"stream too large", fmt.Errorf("read: %w", ErrStreamTooLarge), false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"network failure", errors.New("connection refused"), true},
		{"wrapped context error", fmt.Errorf("request failed: %w", context.Canceled), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.err); got != tt.want {
				t.Errorf("isRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff(t *testing.T) {
	base := 500 * time.Millisecond
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 500 * time.Millisecond},
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second}, // capped
		{10, 10 * time.Second},
	}
	for _, tt := range tests {
		if got := calculateBackoff(tt.attempt, base, nil); got != tt.want {
			t.Errorf("attempt %d: backoff = %v, want %v", tt.attempt, got, tt.want)
		}
	}

	t.Run("zero base falls back to default", func(t *testing.T) {
		if got := calculateBackoff(0, 0, nil); got != retryBaseDelay {
			t.Errorf("backoff = %v, want %v", got, retryBaseDelay)
		}
	})

	t.Run("server retry-after wins when longer", func(t *testing.T) {
		err := &RateLimitError{RetryAfter: 30 * time.Second}
		if got := calculateBackoff(0, base, err); got != 30*time.Second {
			t.Errorf("backoff = %v, want 30s", got)
		}
	})

	t.Run("short retry-after does not shrink backoff", func(t *testing.T) {
		err := &RateLimitError{RetryAfter: time.Millisecond}
		if got := calculateBackoff(3, base, err); got != 4*time.Second {
			t.Errorf("backoff = %v, want 4s", got)
		}
	})
}

func TestHandleErrorResponse(t *testing.T) {
	mkResp := func(status int, body string, header http.Header) *http.Response {
		if header == nil {
			header = http.Header{}
		}
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     header,
		}
	}

	t.Run("401 maps to auth failure with message", func(t *testing.T) {
		err := handleErrorResponse(mkResp(401, `{"error":{"message":"invalid api key"}}`, nil))
		if !errors.Is(err, ErrAuthFailed) {
			t.Fatalf("expected ErrAuthFailed, got %v", err)
		}
		if !strings.Contains(err.Error(), "invalid api key") {
			t.Errorf("error lost the provider message: %v", err)
		}
	})

	t.Run("403 maps to auth failure", func(t *testing.T) {
		if err := handleErrorResponse(mkResp(403, "", nil)); !errors.Is(err, ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("402 maps to insufficient credits", func(t *testing.T) {
		if err := handleErrorResponse(mkResp(402, "", nil)); !errors.Is(err, ErrInsufficientCredits) {
			t.Errorf("expected ErrInsufficientCredits, got %v", err)
		}
	})

	t.Run("404 maps to model not found", func(t *testing.T) {
		if err := handleErrorResponse(mkResp(404, "", nil)); !errors.Is(err, ErrModelNotFound) {
			t.Errorf("expected ErrModelNotFound, got %v", err)
		}
	})

	t.Run("429 carries retry-after", func(t *testing.T) {
		h := http.Header{}
		h.Set("Retry-After", "7")
		err := handleErrorResponse(mkResp(429, `{"error":{"message":"slow down"}}`, h))
		if !errors.Is(err, ErrRateLimited) {
			t.Fatalf("expected ErrRateLimited, got %v", err)
		}
		var rl *RateLimitError
		if !errors.As(err, &rl) {
			t.Fatalf("expected *RateLimitError, got %T", err)
		}
		if rl.RetryAfter != 7*time.Second {
			t.Errorf("RetryAfter = %v, want 7s", rl.RetryAfter)
		}
	})

	t.Run("unmapped status becomes APIError with raw body", func(t *testing.T) {
		err := handleErrorResponse(mkResp(503, "upstream exploded", nil))
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError, got %T", err)
		}
		if apiErr.Status != 503 || !strings.Contains(apiErr.Message, "upstream exploded") {
			t.Errorf("APIError = %+v", apiErr)
		}
	})
}

func TestStreamError(t *testing.T) {
	inner := errors.New("connection reset")
	err := &StreamError{Partial: "half a reply", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("Unwrap chain broken")
	}
	if !strings.Contains(err.Error(), "12 bytes") {
		t.Errorf("Error() = %q, want partial byte count", err.Error())
	}
}

func TestResolveBaseURL(t *testing.T) {
	if got := resolveBaseURL(model.ProviderOpenAI, ""); got != "https://api.openai.com/v1" {
		t.Errorf("openai default = %q", got)
	}
	if got := resolveBaseURL(model.ProviderOllama, ""); got != "http://localhost:11434" {
		t.Errorf("ollama default = %q", got)
	}
	if got := resolveBaseURL(model.ProviderOpenAI, "http://proxy:9000/v1/"); got != "http://proxy:9000/v1" {
		t.Errorf("override = %q, want trailing slash trimmed", got)
	}
}
