// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Config command implementation for aerochat.
//
// CLI: Comprehensive help and examples for all commands
//
// Command: config [subcommand]
// Short:   View and modify configuration
// Aliases: (none)
//
// Subcommands:
//   show (default)      Display current configuration
//   get <key>           Print one value, script-friendly
//   set <key> <value>   Set a configuration value
//   init                Write the default config file if none exists
//   reset               Reset to default configuration
//   path                Show configuration file path
//
// Examples:
//   aerochat config                                Show current config (default)
//   aerochat config show --json                    Config in JSON format
//   aerochat config get provider.model             Print the model ID
//   aerochat config set provider.type openrouter
//   aerochat config set provider.api_key_env OPENROUTER_API_KEY
//   aerochat config set render.theme light
//   aerochat config set stream.max_fps 30
//   aerochat config set history.fts true
//   aerochat config init                           Create the config file
//   aerochat config path                           Show config file location
//
// Keys use dot notation: section.field, matching the TOML layout. Run
// 'config set' with a bad key to get the full list.
//
// SECURITY: API keys are never written to the config file. The provider
// section names an environment variable instead, and show only reports
// whether that variable currently resolves to a key.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/aerochat/internal/config"
)

// =============================================================================
// CONFIG STYLES
// =============================================================================

var (
	// Config title style
	configTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")). // Cyan
				MarginBottom(1)

	// Config section style
	configSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("255")). // White
				MarginTop(1)

	// Config key style
	configKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")). // Light gray
			Width(20)

	// Config value style
	configValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("82")) // Green

	// Dim style for notes and separators
	configDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))

	// Success style
	configSuccessStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("82")).
				Bold(true)

	// Path style
	configPathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)
)

// configKeyHelp lists every settable key with a one-line description.
const configKeyHelp = `  provider.type           Provider: openai, anthropic, xai, openrouter, ollama, custom
  provider.base_url       API endpoint override
  provider.model          Model ID for requests
  provider.api_key_env    Environment variable that holds the API key
  provider.timeout_secs   Request timeout in seconds
  render.theme            Markdown theme: auto, dark, light
  render.code_style       Chroma style for code blocks
  render.word_wrap        Wrap column (0 = terminal width)
  render.color            Color mode: auto, always, never
  stream.batch_size       Tokens per repaint batch
  stream.max_fps          Repaint rate cap
  stream.max_buffer_mb    Response size cap in MB
  stream.max_retries      Retries before a stream fails
  stream.retry_base_ms    Base backoff delay in ms
  history.enabled         Persist sessions (true/false)
  history.dir             Storage directory override
  history.max_sessions    Session count cap (0 = unlimited)
  history.retention_days  Prune sessions older than this (0 = keep)
  history.fts             Full-text search (true/false)`

// =============================================================================
// HANDLE CONFIG
// =============================================================================

// HandleConfig handles the "config" command.
func HandleConfig(args Args) error {
	switch args.Subcommand {
	case "", "show":
		if args.JSON {
			return handleConfigShowJSON()
		}
		return handleConfigShow()

	case "get":
		return handleConfigGet(args.ConfigKey)

	case "set":
		return handleConfigSet(args.ConfigKey, args.ConfigVal)

	case "init":
		return handleConfigInit()

	case "reset":
		return handleConfigReset()

	case "path":
		if args.JSON {
			return handleConfigPathJSON()
		}
		return handleConfigPath()

	default:
		return fmt.Errorf("unknown config subcommand: %s\nUsage: aerochat config [show|get|set|init|reset|path]", args.Subcommand)
	}
}

// loadOrDefault loads the config file, falling back to defaults with a
// warning so show/set keep working on a broken file.
func loadOrDefault() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %s (using defaults)\n", err)
		cfg = config.Default()
	}
	return cfg
}

// configFilePath returns the config path, "" when the home directory
// cannot be determined.
func configFilePath() string {
	path, err := config.ConfigPathTOML()
	if err != nil {
		return ""
	}
	return path
}

// =============================================================================
// CONFIG SHOW
// =============================================================================

// handleConfigShow displays the current configuration.
func handleConfigShow() error {
	cfg := loadOrDefault()

	separator := strings.Repeat("=", 44)
	fmt.Println()
	fmt.Println(configTitleStyle.Render("aerochat Configuration"))
	fmt.Println(configDimStyle.Render(separator))
	fmt.Println()

	// Provider section
	fmt.Println(configSectionStyle.Render("[provider]"))
	printConfigValue("type:", cfg.Provider.Type)
	baseURL := cfg.Provider.BaseURL
	if baseURL == "" {
		baseURL = "(provider default)"
	}
	printConfigValue("base_url:", baseURL)
	printConfigValue("model:", cfg.Provider.ResolvedModel())
	keyEnv := cfg.Provider.APIKeyEnv
	if keyEnv == "" {
		keyEnv = "(provider default)"
	}
	printConfigValue("api_key_env:", keyEnv)
	printConfigValue("timeout_secs:", fmt.Sprintf("%d", cfg.Provider.TimeoutSecs))
	// SECURITY: report presence only; the key itself never prints.
	keyState := "not set"
	if cfg.Provider.APIKey() != "" {
		keyState = "set"
	}
	fmt.Printf("  %s%s\n",
		configKeyStyle.Render("api_key:"),
		configDimStyle.Render("("+keyState+")"))
	fmt.Println()

	// Render section
	fmt.Println(configSectionStyle.Render("[render]"))
	printConfigValue("theme:", cfg.Render.Theme)
	printConfigValue("code_style:", cfg.Render.CodeStyle)
	wrap := fmt.Sprintf("%d", cfg.Render.WordWrap)
	if cfg.Render.WordWrap == 0 {
		wrap = "0 (terminal width)"
	}
	printConfigValue("word_wrap:", wrap)
	printConfigValue("color:", cfg.Render.Color)
	fmt.Println()

	// Stream section
	fmt.Println(configSectionStyle.Render("[stream]"))
	printConfigValue("batch_size:", fmt.Sprintf("%d", cfg.Stream.BatchSize))
	printConfigValue("max_fps:", fmt.Sprintf("%d", cfg.Stream.MaxFPS))
	printConfigValue("max_buffer_mb:", fmt.Sprintf("%d", cfg.Stream.MaxBufferMB))
	printConfigValue("max_retries:", fmt.Sprintf("%d", cfg.Stream.MaxRetries))
	printConfigValue("retry_base_ms:", fmt.Sprintf("%d", cfg.Stream.RetryBaseMs))
	fmt.Println()

	// History section
	fmt.Println(configSectionStyle.Render("[history]"))
	printConfigValue("enabled:", boolText(cfg.History.Enabled))
	dir := cfg.History.Dir
	if dir == "" {
		if d, err := cfg.HistoryDir(); err == nil {
			dir = d + " (default)"
		}
	}
	printConfigValue("dir:", dir)
	printConfigValue("max_sessions:", fmt.Sprintf("%d", cfg.History.MaxSessions))
	printConfigValue("retention_days:", fmt.Sprintf("%d", cfg.History.RetentionDays))
	printConfigValue("fts:", boolText(cfg.History.FTS))
	fmt.Println()

	fmt.Println(configDimStyle.Render(strings.Repeat("-", 44)))
	fmt.Printf("Config file: %s\n", configPathStyle.Render(configFilePath()))
	fmt.Println()

	return nil
}

// printConfigValue prints one aligned key/value row.
func printConfigValue(key, value string) {
	fmt.Printf("  %s%s\n",
		configKeyStyle.Render(key),
		configValueStyle.Render(value))
}

// boolText formats a bool the way the TOML file spells it.
func boolText(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// handleConfigShowJSON outputs the configuration in JSON format. The
// config body goes through String(), which masks a secret pasted into
// api_key_env by mistake.
func handleConfigShowJSON() error {
	cfg := loadOrDefault()

	out := struct {
		Config        json.RawMessage `json:"config"`
		Path          string          `json:"path"`
		APIKeyPresent bool            `json:"api_key_present"`
	}{
		Config:        json.RawMessage(cfg.String()),
		Path:          configFilePath(),
		APIKeyPresent: cfg.Provider.APIKey() != "",
	}
	return outputJSON(out)
}

// =============================================================================
// CONFIG GET / SET
// =============================================================================

// handleConfigGet prints a single value by dot-notation key.
func handleConfigGet(key string) error {
	if key == "" {
		return ErrMissingArgument("no config key provided", "aerochat config get <key>")
	}

	cfg := config.Global()
	val, err := cfg.Get(strings.ToLower(key))
	if err != nil {
		return fmt.Errorf("%w\n\nValid keys:\n%s", err, configKeyHelp)
	}

	fmt.Println(val)
	return nil
}

// handleConfigSet sets a configuration value.
func handleConfigSet(key, value string) error {
	if key == "" {
		return ErrMissingArgument("no config key provided", "aerochat config set <key> <value>")
	}
	if value == "" {
		return ErrMissingArgument("no config value provided", fmt.Sprintf("aerochat config set %s <value>", key))
	}

	cfg := loadOrDefault()

	if err := cfg.Set(strings.ToLower(key), value); err != nil {
		return fmt.Errorf("%w\n\nValid keys:\n%s", err, configKeyHelp)
	}

	// Validate before saving so a bad value never lands on disk.
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration value: %w", err)
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("%s %s = %s\n", configSuccessStyle.Render("[OK]"), strings.ToLower(key), value)
	return nil
}

// =============================================================================
// CONFIG INIT / RESET
// =============================================================================

// handleConfigInit writes the default config file, refusing to clobber
// an existing one.
func handleConfigInit() error {
	path := configFilePath()
	if path == "" {
		return fmt.Errorf("could not determine config path")
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s (use 'aerochat config reset' to overwrite)", path)
	}

	if err := config.Save(config.Default()); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("%s Wrote default configuration\n", configSuccessStyle.Render("[OK]"))
	fmt.Printf("Config file: %s\n", configPathStyle.Render(path))
	return nil
}

// handleConfigReset resets configuration to defaults.
func handleConfigReset() error {
	if err := config.Save(config.Default()); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("%s Configuration reset to defaults\n", configSuccessStyle.Render("[OK]"))
	fmt.Printf("Config file: %s\n", configPathStyle.Render(configFilePath()))
	return nil
}

// =============================================================================
// CONFIG PATH
// =============================================================================

// handleConfigPath shows the config file path.
func handleConfigPath() error {
	path := configFilePath()
	fmt.Println(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "%s (file does not exist - will be created on first use)\n",
			configDimStyle.Render("Note"))
	}

	return nil
}

// handleConfigPathJSON outputs the config path in JSON format.
func handleConfigPathJSON() error {
	path := configFilePath()
	_, err := os.Stat(path)
	exists := !os.IsNotExist(err)

	return outputJSON(map[string]interface{}{
		"path":   path,
		"exists": exists,
	})
}
