// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli tests cover argument parsing and exit-code mapping: the
// surfaces scripts depend on staying stable.
package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/jeranaias/aerochat/internal/history"
	"github.com/jeranaias/aerochat/internal/stream"
)

// =============================================================================
// ARG PARSER TESTS (args.go)
// =============================================================================

func TestArgParser(t *testing.T) {
	t.Run("simple subcommand", func(t *testing.T) {
		p := NewArgParser([]string{"show"})
		if got := p.Subcommand(); got != "show" {
			t.Errorf("Subcommand() = %q, want 'show'", got)
		}
	})

	t.Run("flag with separate value", func(t *testing.T) {
		p := NewArgParser([]string{"list", "--limit", "5"})
		if p.Subcommand() != "list" || p.Flag("limit") != "5" {
			t.Errorf("parsed sub=%q limit=%q, want 'list' and '5'", p.Subcommand(), p.Flag("limit"))
		}
	})

	t.Run("equals form keeps positionals", func(t *testing.T) {
		p := NewArgParser([]string{"export", "3", "--format=html"})
		if got := p.Flag("format"); got != "html" {
			t.Errorf("Flag(format) = %q, want 'html'", got)
		}
		if got := p.Positional(1); got != "3" {
			t.Errorf("Positional(1) = %q, want '3'", got)
		}
	})

	t.Run("boolean flag", func(t *testing.T) {
		p := NewArgParser([]string{"delete", "3", "--confirm"})
		if !p.BoolFlag("confirm") {
			t.Error("BoolFlag(confirm) should be true")
		}
	})

	t.Run("explicit false still registers the flag", func(t *testing.T) {
		p := NewArgParser([]string{"delete", "--confirm=false"})
		if p.BoolFlag("confirm") {
			t.Error("BoolFlag(confirm) should be false")
		}
		if !p.HasFlag("confirm") {
			t.Error("HasFlag(confirm) should be true even when false")
		}
	})

	t.Run("positional run after the subcommand", func(t *testing.T) {
		p := NewArgParser([]string{"search", "rate", "limiter", "design"})
		if n := p.PositionalCount(); n != 4 {
			t.Fatalf("PositionalCount() = %d, want 4", n)
		}
		if got := strings.Join(p.PositionalFrom(1), " "); got != "rate limiter design" {
			t.Errorf("PositionalFrom(1) = %q, want 'rate limiter design'", got)
		}
	})

	t.Run("flags interleaved with positionals", func(t *testing.T) {
		p := NewArgParser([]string{"export", "--format", "markdown", "7", "--thinking"})
		if p.Flag("format") != "markdown" || p.Positional(1) != "7" || !p.BoolFlag("thinking") {
			t.Errorf("parsed format=%q pos=%q thinking=%v, want 'markdown', '7', true",
				p.Flag("format"), p.Positional(1), p.BoolFlag("thinking"))
		}
	})
}

func TestArgParser_FlagIntOrDefault(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want int
	}{
		{"flag present", []string{"list", "--limit", "10"}, 10},
		{"flag missing uses default", []string{"list"}, 20},
		{"invalid int uses default", []string{"list", "--limit", "many"}, 20},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NewArgParser(tc.args).FlagIntOrDefault("limit", 20); got != tc.want {
				t.Errorf("FlagIntOrDefault(limit, 20) = %d, want %d", got, tc.want)
			}
		})
	}
}

// =============================================================================
// PARSE INTEGRATION TESTS (full command lines through Parse)
// =============================================================================

// parseArgv runs Parse against a fabricated command line, restoring os.Args
// when the test finishes.
func parseArgv(t *testing.T, argv ...string) (Command, Args) {
	t.Helper()
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })
	os.Args = append([]string{"aerochat"}, argv...)
	return Parse()
}

func TestParse_Integration(t *testing.T) {
	tests := []struct {
		name     string
		argv     []string
		wantCmd  Command
		validate func(*testing.T, Args)
	}{
		{
			name:    "render with file",
			argv:    []string{"render", "reply.md"},
			wantCmd: CmdRender,
			validate: func(t *testing.T, a Args) {
				if a.File != "reply.md" {
					t.Errorf("File = %q, want %q", a.File, "reply.md")
				}
			},
		},
		{
			name:    "render alias",
			argv:    []string{"r", "reply.md"},
			wantCmd: CmdRender,
		},
		{
			name:    "render raw with width",
			argv:    []string{"render", "--raw", "--width", "72", "reply.md"},
			wantCmd: CmdRender,
			validate: func(t *testing.T, a Args) {
				if !a.Raw {
					t.Error("Raw should be true")
				}
				if a.Width != 72 {
					t.Errorf("Width = %d, want 72", a.Width)
				}
			},
		},
		{
			name:    "render width equals form",
			argv:    []string{"render", "--width=100", "reply.md"},
			wantCmd: CmdRender,
			validate: func(t *testing.T, a Args) {
				if a.Width != 100 {
					t.Errorf("Width = %d, want 100", a.Width)
				}
			},
		},
		{
			name:    "render follow",
			argv:    []string{"render", "--follow", "notes.md"},
			wantCmd: CmdRender,
			validate: func(t *testing.T, a Args) {
				if !a.Follow {
					t.Error("Follow should be true")
				}
				if a.File != "notes.md" {
					t.Errorf("File = %q, want %q", a.File, "notes.md")
				}
			},
		},
		{
			name:    "stream joins unquoted prompt",
			argv:    []string{"stream", "explain", "CRDTs", "briefly"},
			wantCmd: CmdStream,
			validate: func(t *testing.T, a Args) {
				if a.Prompt != "explain CRDTs briefly" {
					t.Errorf("Prompt = %q, want %q", a.Prompt, "explain CRDTs briefly")
				}
			},
		},
		{
			name:    "ask alias",
			argv:    []string{"ask", "hello"},
			wantCmd: CmdStream,
			validate: func(t *testing.T, a Args) {
				if a.Prompt != "hello" {
					t.Errorf("Prompt = %q, want %q", a.Prompt, "hello")
				}
			},
		},
		{
			name:    "stream with save and model",
			argv:    []string{"stream", "--save", "-m", "gpt-4o", "hello"},
			wantCmd: CmdStream,
			validate: func(t *testing.T, a Args) {
				if !a.Save {
					t.Error("Save should be true")
				}
				if a.Model != "gpt-4o" {
					t.Errorf("Model = %q, want %q", a.Model, "gpt-4o")
				}
				if a.Prompt != "hello" {
					t.Errorf("Prompt = %q, want %q", a.Prompt, "hello")
				}
			},
		},
		{
			name:    "provider equals form",
			argv:    []string{"stream", "--provider=ollama", "hi"},
			wantCmd: CmdStream,
			validate: func(t *testing.T, a Args) {
				if a.Provider != "ollama" {
					t.Errorf("Provider = %q, want %q", a.Provider, "ollama")
				}
			},
		},
		{
			name:    "quiet before command",
			argv:    []string{"-q", "stream", "hi"},
			wantCmd: CmdStream,
			validate: func(t *testing.T, a Args) {
				if !a.Quiet {
					t.Error("Quiet should be true")
				}
			},
		},
		{
			name:    "history default",
			argv:    []string{"history"},
			wantCmd: CmdHistory,
			validate: func(t *testing.T, a Args) {
				if a.Subcommand != "" {
					t.Errorf("Subcommand = %q, want empty", a.Subcommand)
				}
			},
		},
		{
			name:    "history show with id",
			argv:    []string{"history", "show", "3"},
			wantCmd: CmdHistory,
			validate: func(t *testing.T, a Args) {
				if a.Subcommand != "show" {
					t.Errorf("Subcommand = %q, want %q", a.Subcommand, "show")
				}
				if len(a.Rest) != 2 {
					t.Errorf("Rest = %v, want [show 3]", a.Rest)
				}
			},
		},
		{
			name:    "sessions alias skips flags for subcommand",
			argv:    []string{"sessions", "--json"},
			wantCmd: CmdHistory,
			validate: func(t *testing.T, a Args) {
				if !a.JSON {
					t.Error("JSON should be true")
				}
				if a.Subcommand != "" {
					t.Errorf("Subcommand = %q, want empty", a.Subcommand)
				}
			},
		},
		{
			name:    "config set",
			argv:    []string{"config", "set", "render.theme", "light"},
			wantCmd: CmdConfig,
			validate: func(t *testing.T, a Args) {
				if a.Subcommand != "set" {
					t.Errorf("Subcommand = %q, want %q", a.Subcommand, "set")
				}
				if a.ConfigKey != "render.theme" {
					t.Errorf("ConfigKey = %q, want %q", a.ConfigKey, "render.theme")
				}
				if a.ConfigVal != "light" {
					t.Errorf("ConfigVal = %q, want %q", a.ConfigVal, "light")
				}
			},
		},
		{
			name:    "version command",
			argv:    []string{"version"},
			wantCmd: CmdVersion,
		},
		{
			name:    "version flag",
			argv:    []string{"--version"},
			wantCmd: CmdVersion,
		},
		{
			name:    "help command",
			argv:    []string{"help"},
			wantCmd: CmdHelp,
		},
		{
			name:    "no arguments",
			argv:    nil,
			wantCmd: CmdHelp,
		},
		{
			name:    "unknown command falls back to help",
			argv:    []string{"bogus"},
			wantCmd: CmdHelp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := parseArgv(t, tt.argv...)
			if cmd != tt.wantCmd {
				t.Errorf("Command = %v, want %v", cmd, tt.wantCmd)
			}
			if tt.validate != nil {
				tt.validate(t, args)
			}
		})
	}
}

// =============================================================================
// HISTORY ARG PARSING TESTS
// =============================================================================

func TestParseHistoryCmdArgs(t *testing.T) {
	tests := []struct {
		name     string
		rest     []string
		validate func(*testing.T, HistoryArgs)
	}{
		{
			name: "search joins query words",
			rest: []string{"search", "rate", "limiter"},
			validate: func(t *testing.T, h HistoryArgs) {
				if h.Query != "rate limiter" {
					t.Errorf("Query = %q, want %q", h.Query, "rate limiter")
				}
			},
		},
		{
			name: "export with format and out",
			rest: []string{"export", "3", "--format=html", "--out", "notes.html"},
			validate: func(t *testing.T, h HistoryArgs) {
				if h.SessionID != "3" {
					t.Errorf("SessionID = %q, want %q", h.SessionID, "3")
				}
				if h.Format != "html" {
					t.Errorf("Format = %q, want %q", h.Format, "html")
				}
				if h.OutPath != "notes.html" {
					t.Errorf("OutPath = %q, want %q", h.OutPath, "notes.html")
				}
			},
		},
		{
			name: "format defaults to markdown",
			rest: []string{"export", "3"},
			validate: func(t *testing.T, h HistoryArgs) {
				if h.Format != "markdown" {
					t.Errorf("Format = %q, want %q", h.Format, "markdown")
				}
			},
		},
		{
			name: "migrate takes a directory",
			rest: []string{"migrate", "/tmp/old-sessions"},
			validate: func(t *testing.T, h HistoryArgs) {
				if h.Dir != "/tmp/old-sessions" {
					t.Errorf("Dir = %q, want %q", h.Dir, "/tmp/old-sessions")
				}
				if h.SessionID != "" {
					t.Errorf("SessionID = %q, want empty", h.SessionID)
				}
			},
		},
		{
			name: "delete with confirm",
			rest: []string{"delete", "abc123", "--confirm"},
			validate: func(t *testing.T, h HistoryArgs) {
				if h.SessionID != "abc123" {
					t.Errorf("SessionID = %q, want %q", h.SessionID, "abc123")
				}
				if !h.Confirm {
					t.Error("Confirm should be true")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseHistoryCmdArgs(Args{Rest: tt.rest})
			if got.Subcommand != tt.rest[0] {
				t.Errorf("Subcommand = %q, want %q", got.Subcommand, tt.rest[0])
			}
			tt.validate(t, got)
		})
	}
}

// =============================================================================
// ERROR AND EXIT CODE TESTS (errors.go)
// =============================================================================

func TestUsageError_Format(t *testing.T) {
	err := ErrMissingArgument("no prompt given", `aerochat stream "question"`)

	msg := err.Error()
	if !strings.Contains(msg, "no prompt given") {
		t.Errorf("error %q missing the reason", msg)
	}
	if !strings.Contains(msg, `Usage: aerochat stream "question"`) {
		t.Errorf("error %q missing the usage line", msg)
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil is success", nil, ExitSuccess},
		{"generic error", errors.New("boom"), ExitGeneralError},
		{"usage error", ErrMissingArgument("bad", "usage"), ExitUsageError},
		{"not found error", ErrNotFound("session", "#9"), ExitNotFoundError},
		{"wrapped session not found", fmt.Errorf("session %q: %w", "x", history.ErrSessionNotFound), ExitNotFoundError},
		{"not configured", fmt.Errorf("%w: set a key", stream.ErrNotConfigured), ExitConfigError},
		{"auth failed", stream.ErrAuthFailed, ExitAuthError},
		{"insufficient credits", stream.ErrInsufficientCredits, ExitAuthError},
		{"rate limited", fmt.Errorf("request: %w", stream.ErrRateLimited), ExitNetworkError},
		{"model not found", stream.ErrModelNotFound, ExitNetworkError},
		{"stream error", &stream.StreamError{Partial: "half", Err: errors.New("reset")}, ExitNetworkError},
		{"api error", &stream.APIError{Status: 502, Message: "bad gateway"}, ExitNetworkError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.want {
				t.Errorf("GetExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

// =============================================================================
// PROMPT RESOLUTION TESTS (stream_cmd.go)
// =============================================================================

func TestResolvePrompt(t *testing.T) {
	t.Run("uses the argument prompt", func(t *testing.T) {
		got, err := resolvePrompt(Args{Prompt: "  explain CRDTs  "})
		if err != nil {
			t.Fatalf("resolvePrompt() error = %v", err)
		}
		if got != "explain CRDTs" {
			t.Errorf("prompt = %q, want trimmed %q", got, "explain CRDTs")
		}
	})

	t.Run("missing prompt is a usage error", func(t *testing.T) {
		_, err := resolvePrompt(Args{})
		if err == nil {
			t.Fatal("expected an error for a missing prompt")
		}
		var usageErr *UsageError
		if !errors.As(err, &usageErr) {
			t.Errorf("error = %T, want *UsageError", err)
		}
	})
}

// =============================================================================
// OUTPUT HELPER TESTS (helpers.go, history_cmd.go)
// =============================================================================

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{512, "512 bytes"},
		{2048, "2.00 KB"},
		{5 * 1024 * 1024, "5.00 MB"},
		{3 * 1024 * 1024 * 1024, "3.00 GB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.bytes); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestTerminalSnippet(t *testing.T) {
	snippet := "before <mark>token bucket</mark> after &amp; more"

	got := terminalSnippet(snippet)
	if !strings.Contains(got, "[token bucket]") {
		t.Errorf("snippet %q should bracket the match", got)
	}
	if !strings.Contains(got, "& more") {
		t.Errorf("snippet %q should unescape HTML entities", got)
	}
	if strings.Contains(got, "<mark>") {
		t.Errorf("snippet %q should not leak markup", got)
	}
}
