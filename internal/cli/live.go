// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// live.go - In-place terminal repaint for streamed replies.
//
// Frames from the renderer are prefix-stable while a reply streams:
// settled output re-renders byte-identical on every call and new output
// only appends. The painter leans on that invariant. Lines that scroll
// past the top of the erasable window are committed - printed once and
// never touched again - and each repaint erases and redraws only the
// bottom screenful. Replies taller than the terminal therefore scroll
// naturally, with the scrollback holding their final form. One exception:
// an in-flight block taller than the whole window commits rows before it
// settles, and those keep their plain streamed look in the scrollback.

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/aerochat/internal/render"
)

// =============================================================================
// LIVE PRINTER
// =============================================================================

// livePrinter repaints a growing reply in place on a TTY.
type livePrinter struct {
	out   io.Writer
	r     *render.Renderer
	arena *render.ChunkArena

	width  int
	height int

	// lines holds the logical lines of the frame currently on screen;
	// the first committed of them sit above the erasable window.
	lines     []string
	committed int

	// status is true while a transient status note occupies the line.
	status bool
}

func newLivePrinter(out io.Writer, r *render.Renderer, width, height int) *livePrinter {
	if width < 1 {
		width = DefaultTerminalWidth
	}
	if height < 2 {
		height = DefaultTerminalHeight
	}
	return &livePrinter{
		out:    out,
		r:      r,
		arena:  render.NewChunkArena(),
		width:  width,
		height: height,
	}
}

// Status shows a transient note (e.g. a dim "thinking…") while nothing
// else is on screen. The first painted frame replaces it. Repeat calls
// are no-ops so callers can invoke it per chunk.
func (p *livePrinter) Status(text string) {
	if p.status || len(p.lines) > 0 {
		return
	}
	fmt.Fprint(p.out, text)
	p.status = true
}

// Paint renders the still-streaming reply and repaints the live region.
func (p *livePrinter) Paint(content string) {
	p.paintFrame(p.r.RenderStreaming(p.arena, content))
}

// Finish renders the reply one last time with the stream closed, so the
// dangling tail settles into its final form, then moves the cursor to a
// fresh line. Safe to call after a partial stream; whatever arrived
// stays on screen.
func (p *livePrinter) Finish(content string) {
	if strings.TrimSpace(content) == "" {
		p.clearStatus()
		return
	}
	p.paintFrame(p.r.RenderFinal(p.arena, content))
	fmt.Fprintln(p.out)
}

// paintFrame replaces the erasable region with the new frame's suffix.
// The cursor is parked at the end of the last painted line between
// calls, which is what makes the relative cursor moves below valid.
func (p *livePrinter) paintFrame(frame string) {
	p.clearStatus()

	next := strings.Split(frame, "\n")

	// Erase everything below the committed prefix. The cursor sits on
	// the last physical row of the region, so it moves up one row fewer
	// than the region is tall.
	erase := 0
	for _, line := range p.lines[p.committed:] {
		erase += p.rows(line)
	}
	if erase > 1 {
		fmt.Fprintf(p.out, "\r\x1b[%dA\x1b[J", erase-1)
	} else if erase == 1 {
		fmt.Fprint(p.out, "\r\x1b[J")
	}

	// Prefix stability guarantees next[:p.committed] matches the lines
	// already settled above the window, so only the suffix is printed.
	if p.committed < len(next) {
		fmt.Fprint(p.out, strings.Join(next[p.committed:], "\n"))
	}

	p.lines = next
	p.advanceCommitted()
}

// advanceCommitted pushes the committed boundary forward until the
// erasable region fits on screen. Rows that leave the window cannot be
// reached by cursor moves anymore; committing them before they scroll
// off keeps the erase count honest. The last line always stays
// erasable, even when it alone overflows the terminal.
func (p *livePrinter) advanceCommitted() {
	live := 0
	for _, line := range p.lines[p.committed:] {
		live += p.rows(line)
	}
	for live > p.height-1 && p.committed < len(p.lines)-1 {
		live -= p.rows(p.lines[p.committed])
		p.committed++
	}
}

// rows is the physical row count of one logical line after terminal
// wrapping. lipgloss measures display width through ANSI styling, so
// colored lines count the same as their visible text.
func (p *livePrinter) rows(line string) int {
	w := lipgloss.Width(line)
	if w <= p.width {
		return 1
	}
	return (w + p.width - 1) / p.width
}

func (p *livePrinter) clearStatus() {
	if !p.status {
		return
	}
	fmt.Fprint(p.out, "\r\x1b[J")
	p.status = false
}
