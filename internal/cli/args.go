// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// args.go - Unified argument parsing for aerochat subcommands.
//
// History and config take subcommands with their own flags; parsing them
// in one place keeps the flag formats consistent across handlers.

package cli

import (
	"strconv"
	"strings"
)

// ArgParser splits a subcommand argument list into positionals and flags.
//
// Recognized shapes:
//
//	--flag value   -f value       value flag
//	--flag=value                  value flag, explicit
//	--flag                        boolean flag
//	--flag=true  --flag=false     boolean flag, explicit
//
// Everything else is positional; the first positional is the subcommand.
type ArgParser struct {
	positional []string
	values     map[string]string
	bools      map[string]bool
}

// NewArgParser parses raw.
//
//	p := NewArgParser([]string{"export", "3", "--format=html", "--confirm"})
//	p.Subcommand()        // "export"
//	p.Positional(1)       // "3"
//	p.Flag("format")      // "html"
//	p.BoolFlag("confirm") // true
func NewArgParser(raw []string) *ArgParser {
	p := &ArgParser{
		values: make(map[string]string),
		bools:  make(map[string]bool),
	}
	for i := 0; i < len(raw); i++ {
		arg := raw[i]
		if !strings.HasPrefix(arg, "-") {
			p.positional = append(p.positional, arg)
			continue
		}
		if name, value, found := strings.Cut(arg, "="); found {
			name = strings.TrimLeft(name, "-")
			// Booleans may be spelled out: --confirm=false.
			if value == "true" || value == "false" {
				p.bools[name] = value == "true"
			} else {
				p.values[name] = value
			}
			continue
		}
		name := strings.TrimLeft(arg, "-")
		if i+1 < len(raw) && !strings.HasPrefix(raw[i+1], "-") {
			p.values[name] = raw[i+1]
			i++
			continue
		}
		p.bools[name] = true
	}
	return p
}

// Subcommand is the first positional argument, "" when there is none.
func (p *ArgParser) Subcommand() string {
	return p.Positional(0)
}

// Flag is the value of a string flag, "" when absent.
func (p *ArgParser) Flag(name string) string {
	return p.values[strings.TrimLeft(name, "-")]
}

// FlagOrDefault is the flag value, or fallback when the flag is absent.
func (p *ArgParser) FlagOrDefault(name, fallback string) string {
	if v := p.Flag(name); v != "" {
		return v
	}
	return fallback
}

// FlagIntOrDefault is the flag value as an integer, or fallback when the
// flag is absent or not a number.
func (p *ArgParser) FlagIntOrDefault(name string, fallback int) int {
	n, err := strconv.Atoi(p.Flag(name))
	if err != nil {
		return fallback
	}
	return n
}

// BoolFlag reports a boolean flag, false when absent.
func (p *ArgParser) BoolFlag(name string) bool {
	return p.bools[strings.TrimLeft(name, "-")]
}

// HasFlag reports whether the flag appeared at all, in either form.
func (p *ArgParser) HasFlag(name string) bool {
	name = strings.TrimLeft(name, "-")
	_, inValues := p.values[name]
	_, inBools := p.bools[name]
	return inValues || inBools
}

// Positional is the positional argument at index, "" out of bounds.
// Index 0 is the subcommand.
func (p *ArgParser) Positional(index int) string {
	if index < 0 || index >= len(p.positional) {
		return ""
	}
	return p.positional[index]
}

// PositionalFrom is the positional tail starting at index, nil when index
// is out of range. Handlers join it back together for free-text queries.
func (p *ArgParser) PositionalFrom(index int) []string {
	if index < 0 || index >= len(p.positional) {
		return nil
	}
	return p.positional[index:]
}

// PositionalCount is the number of positional arguments.
func (p *ArgParser) PositionalCount() int {
	return len(p.positional)
}
