// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/aerochat/internal/sanitize"
	"github.com/jeranaias/aerochat/internal/segment"
	"github.com/jeranaias/aerochat/internal/tools"
	"github.com/jeranaias/aerochat/internal/util"
)

// =============================================================================
// TOOL CHIPS
// =============================================================================

// chipIcon marks tool invocations in the transcript.
const chipIcon = "⚙"

// Chip renders a ToolChip segment as a one-line badge: icon, catalog label,
// and a compact args preview. The label color follows the tool's risk level
// so destructive operations stand out in the transcript.
func (r *Renderer) Chip(seg segment.Segment) string {
	// SECURITY: Tool name and args come from model output; strip direction
	// overrides before they reach the terminal.
	name := sanitize.StripBidiOverrides(seg.ToolName)
	preview := sanitize.StripBidiOverrides(tools.ArgsPreview(name, seg.ArgsJSON))

	var label string
	var labelStyle lipgloss.Style
	if tool, ok := tools.Lookup(name); ok {
		label = tool.Label
		labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(tool.Risk.Color())).
			Bold(true)
	} else {
		// Unknown tools still render; the conversation context must not be
		// silently dropped.
		label = name
		labelStyle = chipUnknownStyle
	}

	// UNICODE: clamp by display width, not bytes, and before styling, since
	// ANSI escape sequences would throw off the width measurement.
	if r.width > 0 {
		base := util.StringWidth(chipIcon + " " + label)
		if base > r.width {
			label = util.TruncateWidth(label, r.width-util.StringWidth(chipIcon)-1)
			preview = ""
		} else if preview != "" {
			avail := r.width - base - 1
			if avail < 4 {
				preview = ""
			} else {
				preview = util.TruncateWidth(preview, avail)
			}
		}
	}

	line := labelStyle.Render(chipIcon + " " + label)
	if preview != "" {
		line += " " + chipArgsStyle.Render(preview)
	}
	return line
}
