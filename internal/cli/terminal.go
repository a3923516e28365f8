// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - Terminal detection for the aerochat CLI.
//
// USABILITY: TTY detection for proper terminal handling
//
// Markdown rendering, live repaint, and color are only wanted on an
// interactive terminal. Piped output gets plain text so transcripts stay
// grep-able, and CI environments can force the decision with NO_COLOR or
// FORCE_COLOR.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"sync"

	"golang.org/x/term"
)

// Fallbacks for when size detection fails (output is not a terminal, or
// the terminal will not say).
const (
	DefaultTerminalWidth  = 80
	DefaultTerminalHeight = 24
)

// minTerminalWidth floors the wrap column; markdown layouts collapse
// below it.
const minTerminalWidth = 40

// IsStdoutTTY reports whether stdout is an interactive terminal. The
// rendered-versus-plain output decision hangs on this.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// IsStdinPiped reports whether stdin carries piped or redirected data.
func IsStdinPiped() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice == 0
}

// GetTerminalWidth is the stdout width in columns, floored at
// minTerminalWidth, or DefaultTerminalWidth when there is no terminal.
func GetTerminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return DefaultTerminalWidth
	}
	if w < minTerminalWidth {
		return minTerminalWidth
	}
	return w
}

// GetTerminalSize is the stdout width and height, with 80x24 fallbacks.
// The live printer bounds its erasable region with the height.
func GetTerminalSize() (width, height int) {
	w, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 || h <= 0 {
		return DefaultTerminalWidth, DefaultTerminalHeight
	}
	return w, h
}

// colorsOnce caches the color decision; it cannot change mid-run.
var (
	colorsOnce sync.Once
	colorsOn   bool
)

// ColorsEnabled reports whether output should carry color. NO_COLOR wins
// over everything (https://no-color.org/), FORCE_COLOR wins over TTY
// detection, and otherwise color follows IsStdoutTTY.
func ColorsEnabled() bool {
	colorsOnce.Do(func() {
		switch {
		case os.Getenv("NO_COLOR") != "":
			colorsOn = false
		case os.Getenv("FORCE_COLOR") != "":
			colorsOn = true
		default:
			colorsOn = IsStdoutTTY()
		}
	})
	return colorsOn
}
