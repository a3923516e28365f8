// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeranaias/aerochat/internal/config"
	"github.com/jeranaias/aerochat/internal/model"
)

// Client is the provider-neutral streaming interface. One Stream call
// produces an ordered chunk sequence ending in exactly one terminal chunk.
type Client interface {
	// Provider identifies the backend this client talks to.
	Provider() model.Provider

	// IsConfigured reports whether Stream could plausibly succeed:
	// an API key for hosted providers, a base URL for custom ones.
	IsConfigured() bool

	// Stream sends one chat request and delivers chunks through fn in
	// order. A mid-stream failure after delivery surfaces as a
	// StreamError carrying the partial content.
	Stream(ctx context.Context, req Request, fn Callback) error
}

// New picks the streaming client for the configured provider type.
func New(cfg *config.Config) (Client, error) {
	p := model.Provider(strings.ToLower(strings.TrimSpace(cfg.Provider.Type)))
	switch {
	case p.OpenAICompatible():
		return NewOpenAI(cfg), nil
	case p == model.ProviderAnthropic:
		return NewAnthropic(cfg), nil
	case p == model.ProviderOllama:
		return NewOllama(cfg), nil
	}
	return nil, fmt.Errorf("no streaming client for provider %q (supported: %s)", cfg.Provider.Type, supportedProviders())
}

func supportedProviders() string {
	names := make([]string, len(model.AllProviders))
	for i, p := range model.AllProviders {
		names[i] = p.String()
	}
	return strings.Join(names, ", ")
}
