// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// =============================================================================
// TERMINAL PROFILE DETECTION
// =============================================================================

// Profile describes the terminal's color capability and background.
type Profile struct {
	Color        termenv.Profile
	IsDark       bool
	HasTrueColor bool
}

// Detect inspects the terminal and applies the configured color mode.
// Mode "never" forces monochrome output, "always" forces at least ANSI256
// even when stdout is not a terminal, and "auto" trusts detection.
// Side effect: sets the lipgloss color profile so every style in the
// process renders consistently.
func Detect(colorMode string) Profile {
	profile := termenv.ColorProfile()

	switch strings.ToLower(colorMode) {
	case "never":
		profile = termenv.Ascii
	case "always":
		if profile == termenv.Ascii {
			profile = termenv.ANSI256
		}
	}

	lipgloss.SetColorProfile(profile)

	return Profile{
		Color:        profile,
		IsDark:       termenv.HasDarkBackground(),
		HasTrueColor: profile == termenv.TrueColor,
	}
}

// ColorEnabled reports whether any color output is possible.
func (p Profile) ColorEnabled() bool {
	return p.Color != termenv.Ascii
}

// =============================================================================
// PALETTE
// =============================================================================

// Colors follow light/dark pairs so output reads well on both backgrounds.

// Cyan - info accents, language badges
var Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// Overlay - borders and separators
var Overlay = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}

// OverlayDim - dimmer overlay for badges
var OverlayDim = lipgloss.AdaptiveColor{Light: "#D4D4D4", Dark: "#45475A"}

// SurfaceDim - code block background
var SurfaceDim = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#181825"}

// TextMuted - hints, args previews, tail text
var TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// Language badge on code blocks
	langBadgeStyle = lipgloss.NewStyle().
			Foreground(TextMuted).
			Background(OverlayDim).
			Padding(0, 1).
			Bold(true)

	// Code block container
	codeBlockStyle = lipgloss.NewStyle().
			Background(SurfaceDim).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(Overlay).
			Padding(1, 2)

	// Args preview on tool chips
	chipArgsStyle = lipgloss.NewStyle().
			Foreground(TextMuted)

	// Chip for tools missing from the catalog
	chipUnknownStyle = lipgloss.NewStyle().
				Foreground(TextMuted).
				Bold(true)
)
