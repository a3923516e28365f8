// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
)

// =============================================================================
// MODEL INFO TYPE
// =============================================================================

// ModelInfo contains detailed information about a model.
// This is used for model selection and display.
type ModelInfo struct {
	// ID is the model identifier used in API calls
	ID string `json:"id"`

	// Name is the human-readable display name
	Name string `json:"name"`

	// Provider identifies which backend serves the model
	Provider Provider `json:"provider"`

	// Tier categorizes the model's capability level
	Tier string `json:"tier"`

	// CostPer1K is the cost per 1000 tokens in dollars (0 for local models)
	CostPer1K float64 `json:"cost_per_1k"`

	// MaxTokens is the maximum context window size
	MaxTokens int `json:"max_tokens"`

	// SupportsThinking marks models that stream a reasoning trace
	SupportsThinking bool `json:"supports_thinking,omitempty"`

	// Description is a brief explanation of the model's strengths
	Description string `json:"description"`
}

// =============================================================================
// MODEL REGISTRY
// =============================================================================

// Models is the registry of known models with their metadata. Custom
// endpoints and unlisted models still work; the registry only feeds
// selection menus and context-window defaults.
var Models = map[string]ModelInfo{
	// Anthropic Claude models
	"haiku": {
		ID:          "claude-3-5-haiku-20241022",
		Name:        "Claude 3.5 Haiku",
		Provider:    ProviderAnthropic,
		Tier:        "Fast",
		CostPer1K:   0.0008,
		MaxTokens:   200000,
		Description: "Fast and efficient for simple tasks",
	},
	"sonnet": {
		ID:          "claude-3-5-sonnet-20241022",
		Name:        "Claude 3.5 Sonnet",
		Provider:    ProviderAnthropic,
		Tier:        "Balanced",
		CostPer1K:   0.003,
		MaxTokens:   200000,
		Description: "Best balance of speed and capability",
	},
	"opus": {
		ID:          "claude-3-opus-20240229",
		Name:        "Claude 3 Opus",
		Provider:    ProviderAnthropic,
		Tier:        "Powerful",
		CostPer1K:   0.015,
		MaxTokens:   200000,
		Description: "Most capable for complex reasoning",
	},

	// OpenAI models
	"gpt-4o": {
		ID:          "gpt-4o",
		Name:        "GPT-4o",
		Provider:    ProviderOpenAI,
		Tier:        "Balanced",
		CostPer1K:   0.0025,
		MaxTokens:   128000,
		Description: "Fast multimodal model with vision",
	},
	"gpt-4o-mini": {
		ID:          "gpt-4o-mini",
		Name:        "GPT-4o Mini",
		Provider:    ProviderOpenAI,
		Tier:        "Fast",
		CostPer1K:   0.00015,
		MaxTokens:   128000,
		Description: "Cost-effective for simple tasks",
	},
	"o3-mini": {
		ID:               "o3-mini",
		Name:             "o3-mini",
		Provider:         ProviderOpenAI,
		Tier:             "Powerful",
		CostPer1K:        0.0011,
		MaxTokens:        200000,
		SupportsThinking: true,
		Description:      "Reasoning model for hard problems",
	},

	// xAI models
	"grok-2": {
		ID:          "grok-2-latest",
		Name:        "Grok 2",
		Provider:    ProviderXAI,
		Tier:        "Balanced",
		CostPer1K:   0.002,
		MaxTokens:   131072,
		Description: "xAI's flagship conversational model",
	},

	// OpenRouter meta-routing
	"or-auto": {
		ID:          "openrouter/auto",
		Name:        "OpenRouter Auto",
		Provider:    ProviderOpenRouter,
		Tier:        "Balanced",
		CostPer1K:   0.002,
		MaxTokens:   128000,
		Description: "Routes to the best available model",
	},

	// Local Ollama models (commonly used)
	"llama3.1": {
		ID:          "llama3.1",
		Name:        "Llama 3.1",
		Provider:    ProviderOllama,
		Tier:        "Fast",
		CostPer1K:   0.0,
		MaxTokens:   128000,
		Description: "Meta's versatile open model",
	},
	"qwen2.5-coder": {
		ID:          "qwen2.5-coder",
		Name:        "Qwen 2.5 Coder",
		Provider:    ProviderOllama,
		Tier:        "Balanced",
		CostPer1K:   0.0,
		MaxTokens:   32768,
		Description: "Optimized for code generation",
	},
	"deepseek-r1": {
		ID:               "deepseek-r1",
		Name:             "DeepSeek R1",
		Provider:         ProviderOllama,
		Tier:             "Powerful",
		CostPer1K:        0.0,
		MaxTokens:        65536,
		SupportsThinking: true,
		Description:      "Open reasoning model with visible thinking",
	},
	"mistral": {
		ID:          "mistral",
		Name:        "Mistral",
		Provider:    ProviderOllama,
		Tier:        "Fast",
		CostPer1K:   0.0,
		MaxTokens:   32768,
		Description: "Fast and efficient general purpose",
	},
}

// defaultModels maps each provider to a sensible starting model.
var defaultModels = map[Provider]string{
	ProviderOpenAI:     "gpt-4o-mini",
	ProviderAnthropic:  "claude-3-5-sonnet-20241022",
	ProviderXAI:        "grok-2-latest",
	ProviderOpenRouter: "openrouter/auto",
	ProviderOllama:     "llama3.1",
}

// DefaultModelFor returns the default model ID for a provider. Custom
// endpoints have no default; the user names the model.
func DefaultModelFor(p Provider) string {
	return defaultModels[p]
}

// =============================================================================
// MODEL INFO METHODS
// =============================================================================

// CapabilitiesString returns a comma-separated list of model capabilities.
// Infers capabilities from model properties like context size and tier.
func (m ModelInfo) CapabilitiesString() string {
	caps := []string{}

	// Context window capability
	if m.MaxTokens >= 100000 {
		caps = append(caps, "Long context")
	} else if m.MaxTokens >= 32000 {
		caps = append(caps, "Extended context")
	}

	// Speed/latency capability
	if m.Tier == "Fast" {
		caps = append(caps, "Low latency")
	}

	// Cost capability
	if m.CostPer1K == 0 {
		caps = append(caps, "Free (local)")
	} else if m.CostPer1K < 0.001 {
		caps = append(caps, "Low cost")
	}

	if m.Provider.IsLocal() {
		caps = append(caps, "Offline capable")
	}

	if m.SupportsThinking {
		caps = append(caps, "Visible reasoning")
	}

	// Code-focused models
	if strings.Contains(strings.ToLower(m.Name), "code") ||
		strings.Contains(strings.ToLower(m.ID), "coder") {
		caps = append(caps, "Code optimized")
	}

	if len(caps) == 0 {
		return "General purpose"
	}

	return strings.Join(caps, ", ")
}

// CostString returns a formatted cost string.
// Returns "Free" for local models, otherwise shows cost per 1K tokens.
func (m ModelInfo) CostString() string {
	if m.CostPer1K == 0 {
		return "Free"
	}
	if m.CostPer1K < 0.001 {
		return fmt.Sprintf("$%.5f/1K", m.CostPer1K)
	}
	return fmt.Sprintf("$%.4f/1K", m.CostPer1K)
}

// ContextString returns a formatted context window string.
func (m ModelInfo) ContextString() string {
	if m.MaxTokens >= 1000000 {
		return fmt.Sprintf("%.1fM tokens", float64(m.MaxTokens)/1000000)
	}
	if m.MaxTokens >= 1000 {
		return fmt.Sprintf("%dK tokens", m.MaxTokens/1000)
	}
	return fmt.Sprintf("%d tokens", m.MaxTokens)
}

// =============================================================================
// MODEL LOOKUP FUNCTIONS
// =============================================================================

// GetModelInfo looks up a model by short name or ID.
// Returns the ModelInfo and true if found, otherwise empty ModelInfo and false.
func GetModelInfo(nameOrID string) (ModelInfo, bool) {
	// Try direct lookup by short name
	if info, ok := Models[nameOrID]; ok {
		return info, true
	}

	// Try lookup by ID
	for _, info := range Models {
		if info.ID == nameOrID {
			return info, true
		}
	}

	// Try partial match on name or ID
	lower := strings.ToLower(nameOrID)
	for _, info := range Models {
		if strings.Contains(strings.ToLower(info.Name), lower) ||
			strings.Contains(strings.ToLower(info.ID), lower) {
			return info, true
		}
	}

	return ModelInfo{}, false
}

// GetModelsByProvider returns all models served by a provider.
func GetModelsByProvider(p Provider) []ModelInfo {
	result := []ModelInfo{}
	for _, info := range Models {
		if info.Provider == p {
			result = append(result, info)
		}
	}
	return result
}

// GetLocalModels returns all local (free) models.
func GetLocalModels() []ModelInfo {
	return GetModelsByProvider(ProviderOllama)
}

// GetCloudModels returns all cloud (paid) models.
func GetCloudModels() []ModelInfo {
	result := []ModelInfo{}
	for _, info := range Models {
		if !info.Provider.IsLocal() {
			result = append(result, info)
		}
	}
	return result
}

// GetThinkingModels returns models that stream a reasoning trace.
func GetThinkingModels() []ModelInfo {
	result := []ModelInfo{}
	for _, info := range Models {
		if info.SupportsThinking {
			result = append(result, info)
		}
	}
	return result
}

// ModelShortNames returns a slice of all registry short names.
func ModelShortNames() []string {
	names := make([]string, 0, len(Models))
	for name := range Models {
		names = append(names, name)
	}
	return names
}
