// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// Provider identifies an AI backend.
type Provider string

const (
	ProviderOpenAI     Provider = "openai"
	ProviderAnthropic  Provider = "anthropic"
	ProviderXAI        Provider = "xai"
	ProviderOpenRouter Provider = "openrouter"
	ProviderOllama     Provider = "ollama"

	// ProviderCustom is any OpenAI-compatible endpoint the user points the
	// client at (LM Studio, vLLM, llama.cpp server, a corporate proxy).
	ProviderCustom Provider = "custom"
)

// AllProviders lists every supported provider in display order.
var AllProviders = []Provider{
	ProviderOpenAI,
	ProviderAnthropic,
	ProviderXAI,
	ProviderOpenRouter,
	ProviderOllama,
	ProviderCustom,
}

// String returns the wire identifier of the provider.
func (p Provider) String() string {
	return string(p)
}

// Valid reports whether p is a known provider.
func (p Provider) Valid() bool {
	switch p {
	case ProviderOpenAI, ProviderAnthropic, ProviderXAI, ProviderOpenRouter,
		ProviderOllama, ProviderCustom:
		return true
	}
	return false
}

// DisplayName returns a human-readable provider name.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderOpenAI:
		return "OpenAI"
	case ProviderAnthropic:
		return "Anthropic"
	case ProviderXAI:
		return "xAI"
	case ProviderOpenRouter:
		return "OpenRouter"
	case ProviderOllama:
		return "Ollama"
	case ProviderCustom:
		return "Custom"
	default:
		return string(p)
	}
}

// IsLocal reports whether the provider runs on the user's machine and needs
// no API key.
func (p Provider) IsLocal() bool {
	return p == ProviderOllama
}

// OpenAICompatible reports whether the provider speaks the OpenAI chat
// completions wire format.
func (p Provider) OpenAICompatible() bool {
	switch p {
	case ProviderOpenAI, ProviderXAI, ProviderOpenRouter, ProviderCustom:
		return true
	}
	return false
}
