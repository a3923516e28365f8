// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// unsetEnv removes an environment variable for the duration of the test.
// t.Setenv(key, "") is not enough: presence-checked variables like NO_COLOR
// treat an empty value as set.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	if old, ok := os.LookupEnv(key); ok {
		os.Unsetenv(key)
		t.Cleanup(func() { os.Setenv(key, old) })
	}
}

// The TestGlobal_* tests exercise the process-wide config under contention.
// Run them with the race detector: go test -race ./internal/config/
func TestGlobal_ConcurrentReadersAndWriters(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	ResetGlobalForTesting()

	const pairs = 50

	var wg sync.WaitGroup
	wg.Add(2 * pairs)
	for i := 0; i < pairs; i++ {
		go func() {
			defer wg.Done()
			SetGlobal(&Config{
				Version:  "test",
				Provider: ProviderConfig{Type: "ollama", Model: "llama3.1"},
			})
		}()
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}

func TestGlobal_ConcurrentReload(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	ResetGlobalForTesting()

	_ = Global() // force the first load before the contention starts

	const n = 100

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		if i%5 == 0 {
			go func() {
				defer wg.Done()
				// No file on disk, so the reload itself may fail. Only the
				// data race matters here.
				_ = ReloadGlobal()
			}()
			continue
		}
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}

func TestGlobal_FirstAccessAppliesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	ResetGlobalForTesting()

	cfg := Global()
	if cfg == nil {
		t.Fatal("Global() returned nil")
	}
	if cfg.Version == "" || cfg.Provider.Type == "" {
		t.Errorf("first Global() call left defaults unset: version=%q provider=%q",
			cfg.Version, cfg.Provider.Type)
	}
}

func TestSetGlobal_Replaces(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	ResetGlobalForTesting()

	_ = Global()
	SetGlobal(&Config{
		Version:  "custom-version",
		Provider: ProviderConfig{Model: "custom-model"},
	})

	got := Global()
	if got.Version != "custom-version" || got.Provider.Model != "custom-model" {
		t.Errorf("Global() after SetGlobal = version %q, model %q; want the replacement",
			got.Version, got.Provider.Model)
	}
}

// TestConfig_ReloadGlobal tests that ReloadGlobal picks up on-disk changes.
func TestConfig_ReloadGlobal(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	ResetGlobalForTesting()

	// First access loads defaults (no file on disk yet)
	if got := Global().Provider.Type; got != "ollama" {
		t.Fatalf("Expected default provider 'ollama', got '%s'", got)
	}

	// Write a modified config and reload
	modified := Default()
	modified.Provider.Type = "openrouter"
	if err := Save(modified); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := ReloadGlobal(); err != nil {
		t.Fatalf("ReloadGlobal failed: %v", err)
	}

	if got := Global().Provider.Type; got != "openrouter" {
		t.Errorf("Expected reloaded provider 'openrouter', got '%s'", got)
	}
}

// TestConfig_Default tests that Default() returns a valid config with defaults.
func TestConfig_Default(t *testing.T) {
	cfg := Default()

	if got := cfg.Provider.Type; got != "ollama" {
		t.Errorf("default provider = %q, want 'ollama'", got)
	}
	if cfg.Version == "" {
		t.Error("default config should carry a version")
	}
	if cfg.Render.CodeStyle == "" {
		t.Error("default config should pick a code style")
	}
	if cfg.Stream.MaxBufferMB == 0 {
		t.Error("default config should cap the stream buffer")
	}
	if !cfg.History.Enabled {
		t.Error("default config should enable history")
	}

	// The defaults must pass their own validation.
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

// TestConfig_Validate applies one mutation to a default config per case and
// checks whether Validate accepts the result.
func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid default config", nil, false},
		{"invalid provider type", func(c *Config) { c.Provider.Type = "gemini" }, true},
		{"custom provider without base_url or model", func(c *Config) { c.Provider.Type = "custom" }, true},
		{"custom provider fully specified", func(c *Config) {
			c.Provider.Type = "custom"
			c.Provider.BaseURL = "http://localhost:8080/v1"
			c.Provider.Model = "local-model"
		}, false},
		{"non-http base_url scheme", func(c *Config) { c.Provider.BaseURL = "ftp://example.com/v1" }, true},
		{"literal secret pasted into api_key_env", func(c *Config) { c.Provider.APIKeyEnv = "sk-proj-abc123" }, true},
		{"valid api_key_env name", func(c *Config) { c.Provider.APIKeyEnv = "TEAM_OPENAI_KEY" }, false},
		{"timeout zero", func(c *Config) { c.Provider.TimeoutSecs = 0 }, true},
		{"invalid theme", func(c *Config) { c.Render.Theme = "solarized" }, true},
		{"invalid color mode", func(c *Config) { c.Render.Color = "maybe" }, true},
		{"negative word wrap", func(c *Config) { c.Render.WordWrap = -1 }, true},
		{"word wrap at maximum (500)", func(c *Config) { c.Render.WordWrap = 500 }, false},
		{"batch size zero", func(c *Config) { c.Stream.BatchSize = 0 }, true},
		{"max fps above limit", func(c *Config) { c.Stream.MaxFPS = 240 }, true},
		{"buffer cap disabled", func(c *Config) { c.Stream.MaxBufferMB = 0 }, true},
		{"too many retries", func(c *Config) { c.Stream.MaxRetries = 11 }, true},
		{"retries disabled (zero) is allowed", func(c *Config) { c.Stream.MaxRetries = 0 }, false},
		{"max sessions zero", func(c *Config) { c.History.MaxSessions = 0 }, true},
		{"negative retention", func(c *Config) { c.History.RetentionDays = -7 }, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			if tc.mutate != nil {
				tc.mutate(cfg)
			}
			if err := cfg.Validate(); (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

// TestConfig_GetSet covers the dot-notation Get and Set used by the config
// subcommands, including string-to-int and string-to-bool coercion.
func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	t.Run("get dotted key", func(t *testing.T) {
		val, err := cfg.Get("provider.type")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if val != "ollama" {
			t.Errorf("Get('provider.type') = %v, want 'ollama'", val)
		}
	})

	t.Run("set string field", func(t *testing.T) {
		if err := cfg.Set("provider.model", "gpt-4o"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if val, _ := cfg.Get("provider.model"); val != "gpt-4o" {
			t.Errorf("Get('provider.model') after Set = %v, want 'gpt-4o'", val)
		}
	})

	t.Run("set coerces int", func(t *testing.T) {
		if err := cfg.Set("stream.batch_size", "8"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if cfg.Stream.BatchSize != 8 {
			t.Errorf("BatchSize after Set = %d, want 8", cfg.Stream.BatchSize)
		}
	})

	t.Run("set coerces bool", func(t *testing.T) {
		if err := cfg.Set("history.fts", "false"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if cfg.History.FTS {
			t.Error("FTS after Set('false') should be false")
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		if _, err := cfg.Get("invalid.key"); err == nil {
			t.Error("Get() with invalid key should return error")
		}
	})

	t.Run("non-numeric value for int field", func(t *testing.T) {
		if err := cfg.Set("stream.max_fps", "not-a-number"); err == nil {
			t.Error("Set() should reject a non-numeric value for an int field")
		}
	})
}

// TestConfig_Clone verifies that a clone and its original do not share state,
// including nested sections.
func TestConfig_Clone(t *testing.T) {
	original := Default()
	original.Version = "v-original"
	original.Provider.Model = "m-original"

	clone := original.Clone()
	clone.Version = "v-clone"
	clone.Provider.Model = "m-clone"

	if original.Version != "v-original" || original.Provider.Model != "m-original" {
		t.Errorf("mutating the clone changed the original: version=%q model=%q",
			original.Version, original.Provider.Model)
	}
	if clone.Version != "v-clone" || clone.Provider.Model != "m-clone" {
		t.Errorf("clone did not take writes: version=%q model=%q",
			clone.Version, clone.Provider.Model)
	}
}

// TestConfig_ApplyEnvOverrides tests environment variable overrides.
func TestConfig_ApplyEnvOverrides(t *testing.T) {
	t.Run("aerochat variables", func(t *testing.T) {
		unsetEnv(t, "NO_COLOR")
		t.Setenv("AEROCHAT_PROVIDER", "anthropic")
		t.Setenv("AEROCHAT_MODEL", "claude-3-5-haiku-20241022")
		t.Setenv("AEROCHAT_BASE_URL", "https://proxy.internal/v1")
		t.Setenv("AEROCHAT_API_KEY_ENV", "TEAM_KEY")
		t.Setenv("AEROCHAT_CODE_STYLE", "dracula")
		t.Setenv("AEROCHAT_COLOR", "always")
		t.Setenv("AEROCHAT_HISTORY_DIR", "/tmp/aerochat-history")

		cfg := Default()
		cfg.ApplyEnvOverrides()

		if cfg.Provider.Type != "anthropic" {
			t.Errorf("Provider.Type = %s, want anthropic", cfg.Provider.Type)
		}
		if cfg.Provider.Model != "claude-3-5-haiku-20241022" {
			t.Errorf("Provider.Model = %s, want claude-3-5-haiku-20241022", cfg.Provider.Model)
		}
		if cfg.Provider.BaseURL != "https://proxy.internal/v1" {
			t.Errorf("Provider.BaseURL = %s", cfg.Provider.BaseURL)
		}
		if cfg.Provider.APIKeyEnv != "TEAM_KEY" {
			t.Errorf("Provider.APIKeyEnv = %s, want TEAM_KEY", cfg.Provider.APIKeyEnv)
		}
		if cfg.Render.CodeStyle != "dracula" {
			t.Errorf("Render.CodeStyle = %s, want dracula", cfg.Render.CodeStyle)
		}
		if cfg.Render.Color != "always" {
			t.Errorf("Render.Color = %s, want always", cfg.Render.Color)
		}
		if cfg.History.Dir != "/tmp/aerochat-history" {
			t.Errorf("History.Dir = %s", cfg.History.Dir)
		}
	})

	t.Run("no_color wins over aerochat_color", func(t *testing.T) {
		t.Setenv("AEROCHAT_COLOR", "always")
		t.Setenv("NO_COLOR", "1")

		cfg := Default()
		cfg.ApplyEnvOverrides()

		if cfg.Render.Color != "never" {
			t.Errorf("Render.Color = %s, want never (NO_COLOR set)", cfg.Render.Color)
		}
	})

	t.Run("provider override resets configured model", func(t *testing.T) {
		unsetEnv(t, "AEROCHAT_MODEL")
		t.Setenv("AEROCHAT_PROVIDER", "openai")

		cfg := Default()
		cfg.Provider.Model = "llama3.1" // belongs to the old provider
		cfg.ApplyEnvOverrides()

		if cfg.Provider.Model != "" {
			t.Errorf("Provider.Model = %s, want empty after provider switch", cfg.Provider.Model)
		}
		if got := cfg.Provider.ResolvedModel(); got != "gpt-4o-mini" {
			t.Errorf("ResolvedModel() = %s, want gpt-4o-mini", got)
		}
	})
}

// TestConfig_APIKeyResolution tests the env-only key lookup chain.
func TestConfig_APIKeyResolution(t *testing.T) {
	t.Run("aerochat key takes precedence", func(t *testing.T) {
		t.Setenv("AEROCHAT_API_KEY", "direct-key")
		t.Setenv("OPENAI_API_KEY", "conventional-key")

		p := ProviderConfig{Type: "openai"}
		if got := p.APIKey(); got != "direct-key" {
			t.Errorf("APIKey() = %s, want direct-key", got)
		}
	})

	t.Run("named variable", func(t *testing.T) {
		unsetEnv(t, "AEROCHAT_API_KEY")
		t.Setenv("MY_CUSTOM_KEY", "named-key")

		p := ProviderConfig{Type: "openai", APIKeyEnv: "MY_CUSTOM_KEY"}
		if got := p.APIKey(); got != "named-key" {
			t.Errorf("APIKey() = %s, want named-key", got)
		}
	})

	t.Run("conventional variable", func(t *testing.T) {
		unsetEnv(t, "AEROCHAT_API_KEY")
		t.Setenv("ANTHROPIC_API_KEY", "conventional-key")

		p := ProviderConfig{Type: "anthropic"}
		if got := p.APIKey(); got != "conventional-key" {
			t.Errorf("APIKey() = %s, want conventional-key", got)
		}
	})

	t.Run("local provider has no key", func(t *testing.T) {
		unsetEnv(t, "AEROCHAT_API_KEY")

		p := ProviderConfig{Type: "ollama"}
		if got := p.APIKey(); got != "" {
			t.Errorf("APIKey() = %s, want empty for ollama", got)
		}
	})
}

// TestConfig_StringRedaction tests that String() never exposes a literal
// secret pasted into api_key_env by mistake.
func TestConfig_StringRedaction(t *testing.T) {
	cfg := Default()
	cfg.Provider.APIKeyEnv = "sk-proj-supersecret123"

	out := cfg.String()
	if strings.Contains(out, "supersecret123") {
		t.Error("String() leaked a pasted secret")
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Error("String() should mark the redacted field")
	}

	// A proper variable name passes through untouched
	cfg.Provider.APIKeyEnv = "OPENAI_API_KEY"
	out = cfg.String()
	if !strings.Contains(out, "OPENAI_API_KEY") {
		t.Error("String() should keep legitimate variable names")
	}
}

// TestConfig_SaveLoadRoundTrip tests that a saved config loads back intact
// with secure file permissions.
func TestConfig_SaveLoadRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	unsetEnv(t, "NO_COLOR")

	cfg := Default()
	cfg.Provider.Type = "anthropic"
	cfg.Provider.Model = "claude-3-5-sonnet-20241022"
	cfg.Render.CodeStyle = "dracula"
	cfg.Stream.BatchSize = 8
	if err := Save(cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// SECURITY: Saved config must be owner read/write only
	path, err := ConfigPathTOML()
	if err != nil {
		t.Fatalf("ConfigPathTOML failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("Config file permissions = %o, want 0600", perm)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Provider.Type != "anthropic" {
		t.Errorf("Provider.Type = %s, want anthropic", loaded.Provider.Type)
	}
	if loaded.Provider.Model != "claude-3-5-sonnet-20241022" {
		t.Errorf("Provider.Model = %s", loaded.Provider.Model)
	}
	if loaded.Render.CodeStyle != "dracula" {
		t.Errorf("Render.CodeStyle = %s, want dracula", loaded.Render.CodeStyle)
	}
	if loaded.Stream.BatchSize != 8 {
		t.Errorf("Stream.BatchSize = %d, want 8", loaded.Stream.BatchSize)
	}
	// Untouched fields keep their defaults
	if loaded.Stream.MaxFPS != 30 {
		t.Errorf("Stream.MaxFPS = %d, want 30", loaded.Stream.MaxFPS)
	}
}

// TestConfig_LoadFromPathPartial tests that a partial TOML file keeps
// defaults for everything it does not mention.
func TestConfig_LoadFromPathPartial(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := "[provider]\ntype = \"anthropic\"\n\n[render]\ncode_style = \"github\"\n"
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Provider.Type != "anthropic" {
		t.Errorf("Provider.Type = %s, want anthropic", cfg.Provider.Type)
	}
	if got := cfg.Provider.ResolvedModel(); got != "claude-3-5-sonnet-20241022" {
		t.Errorf("ResolvedModel() = %s, want the anthropic default", got)
	}
	if cfg.Render.CodeStyle != "github" {
		t.Errorf("Render.CodeStyle = %s, want github", cfg.Render.CodeStyle)
	}
	// Absent sections keep their defaults, including booleans
	if !cfg.History.FTS {
		t.Error("History.FTS should default to true for absent section")
	}
	if cfg.Stream.BatchSize != 3 {
		t.Errorf("Stream.BatchSize = %d, want default 3", cfg.Stream.BatchSize)
	}
}

// TestConfig_InsecurePermissionsFixed tests that loading tightens loose
// config file permissions.
func TestConfig_InsecurePermissionsFixed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("version = \"1.0.0\"\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		t.Fatalf("LoadTOML failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("Permissions after load = %o, want 0600", perm)
	}
}

// TestIsEnvVarName tests the environment variable name check.
func TestIsEnvVarName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"conventional name", "OPENAI_API_KEY", true},
		{"leading underscore", "_KEY", true},
		{"lowercase", "my_key", true},
		{"digit inside", "KEY2", true},
		{"leading digit", "2KEY", false},
		{"pasted openai key", "sk-proj-abc123", false},
		{"space", "MY KEY", false},
		{"empty", "", false},
		{"punctuation", "KEY!", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isEnvVarName(tt.in); got != tt.want {
				t.Errorf("isEnvVarName(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

// TestWatcher_Lifecycle tests watcher creation, start, and shutdown.
func TestWatcher_Lifecycle(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	w, err := NewWatcher(nil, nil)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	if err := w.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
