// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads, validates, and watches aerochat's configuration.
//
// A single Config aggregates one section per concern: ProviderConfig picks
// the chat backend and resolves its API key, RenderConfig shapes terminal
// output, StreamConfig bounds the streaming pipeline and its retry policy,
// and HistoryConfig places transcript storage. Watcher reloads the global
// config when the file changes on disk.
//
// Values resolve in precedence order: AEROCHAT_* and NO_COLOR environment
// variables win over ~/.aerochat/config.toml, which wins over
// ~/.aerochat/config.json, which wins over the built-in defaults.
//
// API keys never live in the config file. The [provider] section names an
// environment variable (api_key_env) and ProviderConfig.APIKey reads it at
// call time, falling back to the provider's conventional variable such as
// OPENAI_API_KEY or ANTHROPIC_API_KEY.
//
// Typical use:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	wrap := cfg.Render.WordWrap
package config
