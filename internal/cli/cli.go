// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for aerochat.
//
// CLI: Comprehensive help and examples for all commands
package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Build metadata, stamped via -ldflags on release builds.
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command selects which top-level handler runs.
type Command int

const (
	CmdRender Command = iota
	CmdStream
	CmdHistory
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet    bool
	Verbose  bool
	JSON     bool   // Output in JSON format where supported
	Provider string // Provider override for this run
	Model    string // Model override for this run

	// Command-specific
	Prompt     string // stream: the one-shot prompt
	File       string // render: input file ("" or "-" means stdin)
	Raw        bool   // render: sanitized passthrough, no markdown
	Width      int    // render: wrap column override (0 = detect)
	Follow     bool   // render: repaint when the watched file changes
	Save       bool   // stream: persist the exchange to history
	Subcommand string // history/config: first positional after the command
	ConfigKey  string
	ConfigVal  string

	// Rest holds the raw args after the command name, for handlers that
	// do their own subcommand parsing.
	Rest []string
}

const usageText = `aerochat - streaming chat renderer for the terminal

Aerochat renders AI assistant output in the terminal: fenced code blocks
are syntax highlighted, tool invocations show as compact chips, and
streamed responses repaint incrementally without flicker or reflow of
already-settled text.

Usage:
  aerochat render [file]         Render chat markup from a file or stdin
  aerochat stream "prompt"       Stream a one-shot prompt, rendered live
  aerochat history [subcommand]  Saved transcript management
  aerochat config [show|set]     Configuration
  aerochat version               Show version information

Render Command:
  aerochat render reply.md           Render a saved reply
  cat reply.txt | aerochat render    Render from stdin
    --raw                            Skip markdown; sanitize and print only
    --width N                        Wrap column (default: terminal width)
    -f, --follow                     Live preview: repaint on file change

Stream Command:
  aerochat stream "Explain goroutines"
    --provider NAME                  Override configured provider
    --model NAME                     Override configured model
    --save                           Save the exchange to history

History Commands:
  aerochat history list              List saved sessions
    --limit N                        Show at most N sessions (default: 20)
  aerochat history show <id>         Render a stored transcript
  aerochat history search <query>    Full-text search across all messages
    --limit N                        Show at most N matches (default: 20)
  aerochat history export <id>       Export a session transcript
    --format markdown|html|json      Export format (default: markdown)
    --output PATH                    Write to an explicit path
  aerochat history delete <id>       Delete a session
    --confirm                        Required confirmation flag
  aerochat history migrate <dir>     Import legacy JSON transcripts
  aerochat history stats             Storage statistics

Config Commands:
  aerochat config show               Show current configuration
  aerochat config set <key> <value>  Set a value (dot notation)
  aerochat config path               Show config file location
  aerochat config init               Write a default config file

Configuration Keys (dot notation):
  provider.type       Provider: openai, anthropic, xai, openrouter, ollama, custom
  provider.model      Model ID to request
  provider.base_url   Endpoint override (required for custom)
  provider.api_key_env  Env var holding the API key (never the key itself)
  render.theme        Markdown theme: dark, light, auto
  render.code_style   Syntax highlighting style (chroma style name)
  render.word_wrap    Wrap column (0 = terminal width)
  render.color        ANSI color: auto, always, never
  stream.batch_size   Tokens coalesced per display flush
  stream.max_fps      Display refreshes per second cap
  history.enabled     Session persistence on/off
  history.fts         Full-text search index on/off

Global Flags:
  -q, --quiet       Minimal output
  -v, --verbose     Debug output
  --provider NAME   Override configured provider for this run
  --model NAME      Override configured model for this run
  --json            Output in JSON format where supported

Environment:
  AEROCHAT_API_KEY    API key override (checked before api_key_env)
  AEROCHAT_PROVIDER   Provider override
  AEROCHAT_MODEL      Model override
  NO_COLOR            Disable ANSI color output

Examples:
  aerochat render notes.md                  Render a file
  git show HEAD:README.md | aerochat render
  aerochat stream "Write a haiku about Go"
  aerochat stream --model llama3.1 "hi" --save
  aerochat history search "retry backoff"
  aerochat history export 1 --format html
  aerochat config set render.code_style dracula

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints the build metadata.
func PrintVersion() {
	fmt.Printf("aerochat version %s\n  Git commit: %s\n  Build date: %s\n",
		Version, GitCommit, BuildDate)
}

// Parse reads os.Args and returns the command plus everything parsed out
// of the command line.
func Parse() (Command, Args) {
	remaining, parsed := parseGlobalFlags(os.Args[1:])
	if len(remaining) == 0 {
		return CmdHelp, parsed
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsed.Rest = remaining

	switch cmd {
	case "render", "r":
		parseRenderArgs(&parsed, remaining)
		return CmdRender, parsed

	case "stream", "ask":
		parseStreamArgs(&parsed, remaining)
		return CmdStream, parsed

	case "history", "sessions":
		parseHistoryArgs(&parsed, remaining)
		return CmdHistory, parsed

	case "config":
		parseConfigArgs(&parsed, remaining)
		return CmdConfig, parsed

	case "version", "--version":
		return CmdVersion, parsed

	case "help", "--help", "-h":
		return CmdHelp, parsed

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		return CmdHelp, parsed
	}
}

// parseGlobalFlags extracts flags valid for every command, returning the
// args they did not consume. Global flags may appear on either side of
// the command name.
func parseGlobalFlags(args []string) ([]string, Args) {
	var rest []string
	var parsed Args

	for i := 0; i < len(args); i++ {
		switch arg := args[i]; arg {
		case "-q", "--quiet":
			parsed.Quiet = true
		case "-v", "--verbose":
			parsed.Verbose = true
		case "--json":
			parsed.JSON = true
		case "--provider":
			if i+1 < len(args) {
				i++
				parsed.Provider = args[i]
			}
		case "--model", "-m":
			if i+1 < len(args) {
				i++
				parsed.Model = args[i]
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--provider="):
				parsed.Provider = strings.TrimPrefix(arg, "--provider=")
			case strings.HasPrefix(arg, "--model="):
				parsed.Model = strings.TrimPrefix(arg, "--model=")
			default:
				rest = append(rest, arg)
			}
		}
	}

	return rest, parsed
}

// parseWidth parses a positive wrap column; anything else returns 0.
func parseWidth(s string) int {
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return 0
}

// parseRenderArgs parses render command specific arguments.
func parseRenderArgs(args *Args, remaining []string) {
	for i := 0; i < len(remaining); i++ {
		switch arg := remaining[i]; arg {
		case "--raw":
			args.Raw = true
		case "-f", "--follow":
			args.Follow = true
		case "-w", "--width":
			if i+1 < len(remaining) {
				i++
				if n := parseWidth(remaining[i]); n > 0 {
					args.Width = n
				}
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--width="):
				if n := parseWidth(strings.TrimPrefix(arg, "--width=")); n > 0 {
					args.Width = n
				}
			case !strings.HasPrefix(arg, "-") && args.File == "":
				args.File = arg
			}
		}
	}
}

// parseStreamArgs parses stream command specific arguments. Everything that
// is not a flag joins the prompt, so quoting is optional.
func parseStreamArgs(args *Args, remaining []string) {
	var words []string
	for _, arg := range remaining {
		switch {
		case arg == "--save":
			args.Save = true
		case !strings.HasPrefix(arg, "-"):
			words = append(words, arg)
		}
	}
	args.Prompt = strings.Join(words, " ")
}

// parseHistoryArgs records the first positional as the subcommand. The
// detailed per-subcommand parsing happens in history_cmd.go.
func parseHistoryArgs(args *Args, remaining []string) {
	for _, arg := range remaining {
		if !strings.HasPrefix(arg, "-") {
			args.Subcommand = arg
			break
		}
	}
}

// parseConfigArgs fills subcommand, key, and value from the positionals.
func parseConfigArgs(args *Args, remaining []string) {
	dst := []*string{&args.Subcommand, &args.ConfigKey, &args.ConfigVal}
	for i, field := range dst {
		if i >= len(remaining) {
			break
		}
		*field = remaining[i]
	}
}
