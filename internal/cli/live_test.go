// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jeranaias/aerochat/internal/config"
	"github.com/jeranaias/aerochat/internal/render"
)

// testPrinter builds a livePrinter around a buffer without a renderer;
// paintFrame and friends never touch r, so frame-level tests can feed
// frames directly.
func testPrinter(buf *bytes.Buffer, width, height int) *livePrinter {
	return &livePrinter{out: buf, width: width, height: height}
}

func TestLivePrinter_FirstPaintHasNoEraseSequence(t *testing.T) {
	var buf bytes.Buffer
	p := testPrinter(&buf, 80, 24)

	p.paintFrame("alpha\nbeta")

	if got := buf.String(); got != "alpha\nbeta" {
		t.Errorf("first frame = %q, want plain %q", got, "alpha\nbeta")
	}
	if strings.Contains(buf.String(), "\x1b") {
		t.Error("first frame should not move the cursor")
	}
}

func TestLivePrinter_RepaintErasesPreviousFrame(t *testing.T) {
	var buf bytes.Buffer
	p := testPrinter(&buf, 80, 24)

	p.paintFrame("alpha\nbeta")
	buf.Reset()
	p.paintFrame("alpha\nbeta more\ngamma")

	// Two rows on screen: move up one, clear to end, reprint.
	want := "\r\x1b[1A\x1b[J" + "alpha\nbeta more\ngamma"
	if got := buf.String(); got != want {
		t.Errorf("repaint = %q, want %q", got, want)
	}
}

func TestLivePrinter_SingleRowRepaintStaysOnLine(t *testing.T) {
	var buf bytes.Buffer
	p := testPrinter(&buf, 80, 24)

	p.paintFrame("alp")
	buf.Reset()
	p.paintFrame("alpha")

	if got := buf.String(); got != "\r\x1b[J"+"alpha" {
		t.Errorf("repaint = %q, want carriage return without cursor-up", got)
	}
}

func TestLivePrinter_CommitsRowsThatLeaveTheWindow(t *testing.T) {
	var buf bytes.Buffer
	p := testPrinter(&buf, 80, 4) // 3 erasable rows

	p.paintFrame("a\nb\nc\nd\ne")
	if p.committed != 2 {
		t.Fatalf("committed = %d after tall frame, want 2", p.committed)
	}

	buf.Reset()
	p.paintFrame("a\nb\nc\nd\ne\nf")

	// Only the erasable suffix repaints; a and b are settled for good.
	want := "\r\x1b[2A\x1b[J" + "c\nd\ne\nf"
	if got := buf.String(); got != want {
		t.Errorf("repaint = %q, want %q", got, want)
	}
	if strings.Contains(buf.String(), "a\nb") {
		t.Error("committed lines must not reprint")
	}
}

func TestLivePrinter_LastLineStaysErasableEvenWhenTall(t *testing.T) {
	var buf bytes.Buffer
	p := testPrinter(&buf, 10, 4)

	// One logical line spanning 5 physical rows: taller than the window,
	// but committing it would orphan the live tail.
	p.paintFrame(strings.Repeat("x", 48))
	if p.committed != 0 {
		t.Errorf("committed = %d, want 0 for a lone oversized line", p.committed)
	}
}

func TestLivePrinter_WrappedLinesCountPhysicalRows(t *testing.T) {
	var buf bytes.Buffer
	p := testPrinter(&buf, 10, 24)

	p.paintFrame(strings.Repeat("x", 25)) // 3 physical rows
	buf.Reset()
	p.paintFrame(strings.Repeat("x", 25) + "\ny")

	if got := buf.String(); !strings.HasPrefix(got, "\r\x1b[2A\x1b[J") {
		t.Errorf("repaint = %q, want erase of 3 physical rows (up 2)", got)
	}
}

func TestLivePrinter_StatusShowsOnceAndClears(t *testing.T) {
	var buf bytes.Buffer
	p := testPrinter(&buf, 80, 24)

	p.Status("thinking…")
	p.Status("thinking…")
	p.paintFrame("hi")

	want := "thinking…" + "\r\x1b[J" + "hi"
	if got := buf.String(); got != want {
		t.Errorf("status sequence = %q, want %q", got, want)
	}
}

func TestLivePrinter_FinishOnEmptyReplyOnlyClearsStatus(t *testing.T) {
	var buf bytes.Buffer
	p := testPrinter(&buf, 80, 24)

	p.Status("thinking…")
	p.Finish("   ")

	if got := buf.String(); got != "thinking…"+"\r\x1b[J" {
		t.Errorf("finish on empty reply = %q, want status cleared only", got)
	}
}

func TestLivePrinter_PaintAndFinishThroughRenderer(t *testing.T) {
	cfg := config.Default()
	cfg.Render.Color = "never"

	var buf bytes.Buffer
	p := newLivePrinter(&buf, render.New(cfg, 40), 40, 24)

	p.Paint("Streaming keeps the prefix")
	p.Finish("Streaming keeps the prefix stable.\n\nAnd the tail settles.")

	out := buf.String()
	if !strings.Contains(out, "prefix stable") {
		t.Errorf("final frame missing reply text:\n%s", out)
	}
	if !strings.Contains(out, "tail settles") {
		t.Errorf("final frame missing settled tail:\n%s", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("Finish should leave the cursor on a fresh line")
	}
}
