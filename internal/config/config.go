// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Configuration structures, defaults, load/save, validation,
// and the dot-notation access used by the config command.

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/jeranaias/aerochat/internal/model"
	"github.com/jeranaias/aerochat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete aerochat configuration.
type Config struct {
	// General settings
	Version string `toml:"version" json:"version"`

	// Provider (chat backend) configuration
	Provider ProviderConfig `toml:"provider" json:"provider"`

	// Render (terminal output) configuration
	Render RenderConfig `toml:"render" json:"render"`

	// Stream (incremental delivery) configuration
	Stream StreamConfig `toml:"stream" json:"stream"`

	// History (transcript storage) configuration
	History HistoryConfig `toml:"history" json:"history"`
}

// ProviderConfig contains chat provider configuration.
type ProviderConfig struct {
	// Type is the provider kind: "openai", "anthropic", "xai", "openrouter",
	// "ollama", or "custom"
	Type string `toml:"type" json:"type"`
	// BaseURL overrides the provider's default endpoint (empty = provider default).
	// Required when Type is "custom".
	BaseURL string `toml:"base_url" json:"base_url"`
	// Model is the model ID to request (empty = provider default)
	Model string `toml:"model" json:"model"`
	// APIKeyEnv names the environment variable holding the API key.
	// SECURITY: The key itself is never stored in the config file; it is read
	// from the environment each time it is needed.
	APIKeyEnv string `toml:"api_key_env" json:"api_key_env"`
	// TimeoutSecs is the per-request timeout in seconds
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
}

// RenderConfig contains terminal rendering configuration.
type RenderConfig struct {
	// Theme selects the markdown style: "dark", "light", or "auto"
	Theme string `toml:"theme" json:"theme"`
	// CodeStyle is the syntax highlighting style for fenced code (chroma style name)
	CodeStyle string `toml:"code_style" json:"code_style"`
	// WordWrap is the wrap column for rendered markdown (0 = terminal width)
	WordWrap int `toml:"word_wrap" json:"word_wrap"`
	// Color controls ANSI output: "auto" (TTY detection), "always", or "never"
	Color string `toml:"color" json:"color"`
}

// StreamConfig contains incremental streaming configuration.
type StreamConfig struct {
	// BatchSize is the number of tokens coalesced per display flush
	BatchSize int `toml:"batch_size" json:"batch_size"`
	// MaxFPS caps display refreshes per second during streaming
	MaxFPS int `toml:"max_fps" json:"max_fps"`
	// MaxBufferMB caps the total bytes accepted from a single response.
	// RELIABILITY: Guards against unbounded memory growth on runaway streams.
	MaxBufferMB int `toml:"max_buffer_mb" json:"max_buffer_mb"`
	// MaxRetries is the number of reconnect attempts on transient failures
	MaxRetries int `toml:"max_retries" json:"max_retries"`
	// RetryBaseMs is the base backoff delay in milliseconds (doubles per attempt)
	RetryBaseMs int `toml:"retry_base_ms" json:"retry_base_ms"`
}

// HistoryConfig contains transcript storage configuration.
type HistoryConfig struct {
	// Enabled turns session persistence on or off
	Enabled bool `toml:"enabled" json:"enabled"`
	// Dir is the storage directory (empty = ~/.aerochat/history)
	Dir string `toml:"dir" json:"dir"`
	// MaxSessions is the number of sessions kept before cleanup trims the oldest
	MaxSessions int `toml:"max_sessions" json:"max_sessions"`
	// RetentionDays deletes sessions older than this many days (0 = keep forever)
	RetentionDays int `toml:"retention_days" json:"retention_days"`
	// FTS enables full-text search over stored messages
	FTS bool `toml:"fts" json:"fts"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Provider: ProviderConfig{
			Type:        "ollama",
			BaseURL:     "", // provider default endpoint
			Model:       "", // provider default model, resolved at request time
			APIKeyEnv:   "",
			TimeoutSecs: 120,
		},

		Render: RenderConfig{
			Theme:     "auto",
			CodeStyle: "monokai",
			WordWrap:  0, // terminal width
			Color:     "auto",
		},

		Stream: StreamConfig{
			BatchSize:   3,
			MaxFPS:      30,
			MaxBufferMB: 50,
			MaxRetries:  3,
			RetryBaseMs: 500,
		},

		History: HistoryConfig{
			Enabled:       true,
			Dir:           "",
			MaxSessions:   500,
			RetentionDays: 0, // keep forever
			FTS:           true,
		},
	}
}

// =============================================================================
// CONFIG PATHS
// =============================================================================

// ConfigDir returns the aerochat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".aerochat"), nil
}

// configFile resolves a file name inside the config directory.
func configFile(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) { return configFile("config.toml") }

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) { return configFile("config.json") }

// EnsureConfigDir creates the config directory if it does not exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// HistoryDir returns the transcript storage directory, creating no files.
func (c *Config) HistoryDir() (string, error) {
	if c.History.Dir != "" {
		return c.History.Dir, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history"), nil
}

// HistoryDBPath returns the path to the session database file.
func (c *Config) HistoryDBPath() (string, error) {
	dir, err := c.HistoryDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// =============================================================================
// LOAD
// =============================================================================

// tightenPermissions chmods a config file to 0600 before it is read.
// SECURITY: A group or world writable config would let another local user
// redirect chat traffic by editing the endpoint. The mode is fixed in
// place; when the chmod itself fails a warning is printed and loading
// continues.
func tightenPermissions(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	perm := info.Mode().Perm()
	if perm == 0600 {
		return
	}
	if err := os.Chmod(path, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s (mode %o): %v\n", path, perm, err)
	}
}

// Load reads the configuration from disk, trying config.toml first and
// config.json second. Whichever file parses is decoded over the defaults,
// then environment overrides and validation run. A file that exists but
// fails to parse is skipped; the parse error rides along with the returned
// defaults so callers can warn without losing the session. A file that
// parses but fails validation is refused outright.
func Load() (*Config, error) {
	var parseErr error

	for _, candidate := range []struct {
		path   func() (string, error)
		decode func(*Config, string) error
	}{
		{ConfigPathTOML, LoadTOML},
		{ConfigPathJSON, LoadJSON},
	} {
		path, err := candidate.path()
		if err != nil {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		cfg := Default()
		if err := candidate.decode(cfg, path); err != nil {
			parseErr = fmt.Errorf("failed to load config from %s: %w", path, err)
			continue
		}
		return finalize(cfg)
	}

	cfg, err := finalize(Default())
	if err != nil {
		return nil, err
	}
	return cfg, parseErr
}

// finalize applies environment overrides and validates the result.
func finalize(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML config file over cfg.
func LoadTOML(cfg *Config, path string) error {
	tightenPermissions(path)
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// LoadJSON decodes a JSON config file over cfg. JSON is read-only legacy
// support for configs written before TOML became the save format.
func LoadJSON(cfg *Config, path string) error {
	tightenPermissions(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// LoadFromPath loads configuration from an explicit file path. Files ending
// in .json decode as JSON; everything else is treated as TOML.
func LoadFromPath(path string) (*Config, error) {
	// Decode over defaults so absent sections keep their documented behavior
	// (a zero-value start would flip booleans like history.fts).
	cfg := Default()
	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
	}
	return finalize(cfg)
}

// fillDefaults restores defaults for fields where a decoded zero would
// break the documented behavior. Zero-meaningful settings (word_wrap,
// max_retries, retention_days) and booleans are left alone; decoding
// already starts from Default(), so absent sections carry their defaults
// without help.
func fillDefaults(cfg *Config) {
	d := Default()
	defaultString(&cfg.Version, d.Version)
	defaultString(&cfg.Provider.Type, d.Provider.Type)
	defaultInt(&cfg.Provider.TimeoutSecs, d.Provider.TimeoutSecs)
	defaultString(&cfg.Render.Theme, d.Render.Theme)
	defaultString(&cfg.Render.CodeStyle, d.Render.CodeStyle)
	defaultString(&cfg.Render.Color, d.Render.Color)
	defaultInt(&cfg.Stream.BatchSize, d.Stream.BatchSize)
	defaultInt(&cfg.Stream.MaxFPS, d.Stream.MaxFPS)
	defaultInt(&cfg.Stream.MaxBufferMB, d.Stream.MaxBufferMB)
	defaultInt(&cfg.Stream.RetryBaseMs, d.Stream.RetryBaseMs)
	defaultInt(&cfg.History.MaxSessions, d.History.MaxSessions)
}

func defaultString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func defaultInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

// =============================================================================
// SAVE
// =============================================================================

// configHeader introduces the generated TOML file.
const configHeader = `# aerochat configuration file
# Generated by aerochat - edit with care
#
# API keys are read from the environment and are never stored here.
# Documentation: https://github.com/jeranaias/aerochat

`

// Save writes the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to path as TOML.
// SECURITY: The file is created with 0600 permissions (owner read/write only).
// RELIABILITY: The write goes through a temp file and rename, so a crash
// mid-save leaves the previous config intact.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString(configHeader)
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	// AtomicWriteFile creates the config directory as needed.
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a single failed configuration check.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every failed check so one pass reports them all.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks every section and returns the collected errors, nil when
// the configuration is usable.
func (c *Config) Validate() error {
	var errs ValidationErrors
	errs = append(errs, c.Provider.validate()...)
	errs = append(errs, c.Render.validate()...)
	errs = append(errs, c.Stream.validate()...)
	errs = append(errs, c.History.validate()...)
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (p ProviderConfig) validate() ValidationErrors {
	var errs ValidationErrors

	if !model.Provider(strings.ToLower(p.Type)).Valid() {
		errs = append(errs, ValidationError{
			Field:   "provider.type",
			Message: fmt.Sprintf("invalid provider '%s', must be one of: openai, anthropic, xai, openrouter, ollama, custom", p.Type),
		})
	}

	// SECURITY: Only http/https endpoints are accepted; anything else is a
	// misconfiguration that could silently route chat traffic elsewhere.
	if p.BaseURL != "" {
		u, err := url.Parse(p.BaseURL)
		switch {
		case err != nil:
			errs = append(errs, ValidationError{
				Field:   "provider.base_url",
				Message: fmt.Sprintf("invalid URL: %v", err),
			})
		case u.Scheme != "http" && u.Scheme != "https":
			errs = append(errs, ValidationError{
				Field:   "provider.base_url",
				Message: fmt.Sprintf("scheme must be http or https, got '%s'", u.Scheme),
			})
		}
	}

	// A custom endpoint has no default URL or model to fall back to
	if strings.EqualFold(p.Type, "custom") {
		if p.BaseURL == "" {
			errs = append(errs, ValidationError{
				Field:   "provider.base_url",
				Message: "required when provider.type is 'custom'",
			})
		}
		if p.Model == "" {
			errs = append(errs, ValidationError{
				Field:   "provider.model",
				Message: "required when provider.type is 'custom'",
			})
		}
	}

	// SECURITY: api_key_env must name an environment variable. Rejecting
	// values that cannot be variable names catches the common mistake of
	// pasting the key itself into the config file.
	if p.APIKeyEnv != "" && !isEnvVarName(p.APIKeyEnv) {
		errs = append(errs, ValidationError{
			Field:   "provider.api_key_env",
			Message: "must name an environment variable (letters, digits, underscore); put the key in the environment, not in the config",
		})
	}

	return intRange(errs, "provider.timeout_secs", p.TimeoutSecs, 1, 600)
}

func (r RenderConfig) validate() ValidationErrors {
	var errs ValidationErrors
	if !oneOf(r.Theme, "dark", "light", "auto") {
		errs = append(errs, ValidationError{
			Field:   "render.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", r.Theme),
		})
	}
	if !oneOf(r.Color, "auto", "always", "never") {
		errs = append(errs, ValidationError{
			Field:   "render.color",
			Message: fmt.Sprintf("invalid color mode '%s', must be one of: auto, always, never", r.Color),
		})
	}
	return intRange(errs, "render.word_wrap", r.WordWrap, 0, 500)
}

func (s StreamConfig) validate() ValidationErrors {
	var errs ValidationErrors
	errs = intRange(errs, "stream.batch_size", s.BatchSize, 1, 256)
	errs = intRange(errs, "stream.max_fps", s.MaxFPS, 1, 120)
	// RELIABILITY: The buffer cap bounds memory on runaway streams; the
	// allowed range keeps it from being disabled outright.
	errs = intRange(errs, "stream.max_buffer_mb", s.MaxBufferMB, 1, 1024)
	errs = intRange(errs, "stream.max_retries", s.MaxRetries, 0, 10)
	return intRange(errs, "stream.retry_base_ms", s.RetryBaseMs, 50, 10000)
}

func (h HistoryConfig) validate() ValidationErrors {
	errs := intRange(nil, "history.max_sessions", h.MaxSessions, 1, 100000)
	if h.RetentionDays < 0 {
		errs = append(errs, ValidationError{
			Field:   "history.retention_days",
			Message: "cannot be negative",
		})
	}
	return errs
}

// intRange appends an error when v falls outside [lo, hi].
func intRange(errs ValidationErrors, field string, v, lo, hi int) ValidationErrors {
	if v < lo || v > hi {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be %d-%d, got %d", lo, hi, v),
		})
	}
	return errs
}

// oneOf reports whether v matches one of the choices, ignoring case.
func oneOf(v string, choices ...string) bool {
	for _, c := range choices {
		if strings.EqualFold(v, c) {
			return true
		}
	}
	return false
}

// isEnvVarName reports whether s is a plausible environment variable name.
func isEnvVarName(s string) bool {
	for i, r := range s {
		switch {
		case r == '_':
		case r >= 'A' && r <= 'Z':
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return s != ""
}

// =============================================================================
// API KEY RESOLUTION
// =============================================================================

// defaultKeyEnvs maps provider types to their conventional key variables.
var defaultKeyEnvs = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"anthropic":  "ANTHROPIC_API_KEY",
	"xai":        "XAI_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
}

// ResolvedModel returns the model to request: the configured model when set,
// otherwise the provider's default.
func (p ProviderConfig) ResolvedModel() string {
	if p.Model != "" {
		return p.Model
	}
	return model.DefaultModelFor(model.Provider(strings.ToLower(p.Type)))
}

// APIKey resolves the API key for the configured provider.
// SECURITY: Keys live in the environment only and are read at call time;
// nothing returned here is ever written back to disk. Precedence:
// AEROCHAT_API_KEY, then the variable named by api_key_env, then the
// provider's conventional variable (e.g. OPENAI_API_KEY).
func (p ProviderConfig) APIKey() string {
	if key := os.Getenv("AEROCHAT_API_KEY"); key != "" {
		return key
	}
	if p.APIKeyEnv != "" {
		return os.Getenv(p.APIKeyEnv)
	}
	if env, ok := defaultKeyEnvs[strings.ToLower(p.Type)]; ok {
		return os.Getenv(env)
	}
	return ""
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - AEROCHAT_PROVIDER: overrides provider.type
//   - AEROCHAT_MODEL: overrides provider.model
//   - AEROCHAT_BASE_URL: overrides provider.base_url
//   - AEROCHAT_API_KEY_ENV: overrides provider.api_key_env
//   - AEROCHAT_CODE_STYLE: overrides render.code_style
//   - AEROCHAT_COLOR: overrides render.color
//   - AEROCHAT_HISTORY_DIR: overrides history.dir
//   - NO_COLOR: any value forces render.color to "never"
//
// AEROCHAT_API_KEY is deliberately not handled here: it is read at call time
// by APIKey() so the key never lands in a struct that could be serialized.
func (c *Config) ApplyEnvOverrides() {
	// AEROCHAT_PROVIDER goes first: switching providers abandons the
	// configured model, which belongs to the old provider. AEROCHAT_MODEL
	// below may then name a model for the new one.
	if provider := os.Getenv("AEROCHAT_PROVIDER"); provider != "" {
		c.Provider.Type = provider
		c.Provider.Model = ""
	}

	for _, o := range []struct {
		env string
		dst *string
	}{
		{"AEROCHAT_MODEL", &c.Provider.Model},
		{"AEROCHAT_BASE_URL", &c.Provider.BaseURL},
		{"AEROCHAT_API_KEY_ENV", &c.Provider.APIKeyEnv},
		{"AEROCHAT_CODE_STYLE", &c.Render.CodeStyle},
		{"AEROCHAT_COLOR", &c.Render.Color},
		{"AEROCHAT_HISTORY_DIR", &c.History.Dir},
	} {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}

	// NO_COLOR (https://no-color.org - presence alone disables color)
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		c.Render.Color = "never"
	}
}

// =============================================================================
// DOT-NOTATION ACCESS
// =============================================================================

// Get returns the value at a dot-notation key such as "provider.model".
func (c *Config) Get(key string) (any, error) {
	field, err := c.fieldByPath(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set writes a value at a dot-notation key. String input is converted to
// the field's type, which is what `aerochat config set` passes through.
func (c *Config) Set(key string, value any) error {
	field, err := c.fieldByPath(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return assignField(field, value)
}

// fieldByPath resolves a dot-notation key to the struct field it names.
// Key parts match Go field names case-insensitively after snake_case and
// kebab-case separators are folded away, so "provider.api_key_env" and
// "Provider.APIKeyEnv" reach the same field.
func (c *Config) fieldByPath(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	v := reflect.ValueOf(c).Elem()
	parts := strings.Split(key, ".")
	for i, part := range parts {
		if v.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i], "."))
		}
		want := normalizeFieldName(part)
		v = v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, want)
		})
		if !v.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
	}
	return v, nil
}

// normalizeFieldName folds a snake_case or kebab-case key part into the
// shape of an exported Go field name.
func normalizeFieldName(name string) string {
	var b strings.Builder
	for _, part := range strings.FieldsFunc(name, func(r rune) bool { return r == '_' || r == '-' }) {
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(strings.ToLower(part[1:]))
	}
	return b.String()
}

// assignField stores value into a struct field, converting strings to the
// field's type. TOML and JSON decoding deliver typed values; the string
// path serves `config set`, where everything arrives as text.
func assignField(field reflect.Value, value any) error {
	if s, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(s)
			return nil
		case reflect.Int, reflect.Int64:
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(n)
			return nil
		case reflect.Float64:
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(f)
			return nil
		case reflect.Bool:
			switch strings.ToLower(s) {
			case "1", "true", "yes":
				field.SetBool(true)
			default:
				field.SetBool(false)
			}
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	switch {
	case val.Type().AssignableTo(field.Type()):
		field.Set(val)
	case val.Type().ConvertibleTo(field.Type()):
		field.Set(val.Convert(field.Type()))
	default:
		return fmt.Errorf("cannot assign %T to %s", value, field.Type())
	}
	return nil
}

// =============================================================================
// COPY AND DISPLAY
// =============================================================================

// Clone returns a deep copy of the config.
// All fields are value types, so a struct copy is a full copy.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a string representation of the config for debugging.
// SECURITY: API keys are never stored in the config, so there is normally
// nothing to redact. The one hole is a literal secret pasted into
// api_key_env by mistake; that value is masked here so it cannot leak
// through logs or error output even before validation rejects it.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Provider.APIKeyEnv != "" && !isEnvVarName(safe.Provider.APIKeyEnv) {
		safe.Provider.APIKeyEnv = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

// =============================================================================
// GLOBAL INSTANCE
// =============================================================================

var (
	global     *Config
	globalOnce sync.Once
	globalMu   sync.RWMutex
)

// Global returns the process-wide configuration, loading it on first use.
// A load failure falls back to defaults; the warning prints once, not on
// every access. Safe for concurrent use.
func Global() *Config {
	globalOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		if cfg == nil {
			cfg = Default()
		}
		globalMu.Lock()
		global = cfg
		globalMu.Unlock()
	})

	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

// ReloadGlobal replaces the global configuration with a fresh load from
// disk. The previous config stays in place when the load fails.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalMu.Lock()
	global = cfg
	globalMu.Unlock()
	return nil
}

// SetGlobal replaces the global configuration instance.
func SetGlobal(cfg *Config) {
	globalMu.Lock()
	global = cfg
	globalMu.Unlock()
}

// ResetGlobalForTesting clears the global instance so the next Global()
// loads from scratch. Tests only.
func ResetGlobalForTesting() {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = nil
	globalOnce = sync.Once{}
}
