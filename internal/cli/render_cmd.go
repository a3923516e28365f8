// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// render_cmd.go - Render command implementation for aerochat.
//
// CLI: Comprehensive help and examples for all commands
//
// Command: render [file]
// Short:   Render chat markup from a file or stdin
//
// Examples:
//   aerochat render reply.md              Render a saved reply
//   cat reply.txt | aerochat render       Render from stdin
//   aerochat render --raw reply.md        Sanitized passthrough, no markdown
//   aerochat render --width 72 reply.md   Pin the wrap column
//   aerochat render --follow notes.md     Live preview, repaint on save
//
// Flags:
//   --raw         Skip markdown; strip bidi overrides and print
//   --width N     Wrap column (default: terminal width)
//   -f, --follow  Watch the file and repaint on change
//
// Markdown layout happens on a TTY, or when --width pins a column for
// piped output. Everything else gets sanitized passthrough so transcripts
// stay grep-able.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jeranaias/aerochat/internal/config"
	"github.com/jeranaias/aerochat/internal/render"
	"github.com/jeranaias/aerochat/internal/sanitize"
)

// maxRenderInput caps stdin reads.
// RELIABILITY: Guards against unbounded memory growth on runaway pipes.
const maxRenderInput = 50 * 1024 * 1024

// HandleRender handles the "render" command.
func HandleRender(args Args) error {
	if args.Follow {
		return followRender(args)
	}

	content, err := readRenderInput(args)
	if err != nil {
		return err
	}

	// Plain paths still get the bidi sweep: content from a file or pipe is
	// as untrusted as content off the wire.
	if args.Raw || (!IsStdoutTTY() && args.Width <= 0) {
		out := sanitize.StripBidiOverrides(content)
		fmt.Print(out)
		if !strings.HasSuffix(out, "\n") {
			fmt.Println()
		}
		return nil
	}

	cfg := config.Global().Clone()
	if !ColorsEnabled() {
		cfg.Render.Color = "never"
	}

	width := args.Width
	if width <= 0 {
		width = GetTerminalWidth()
	}

	r := render.New(cfg, width)
	out := r.RenderMessage(content)

	fmt.Print(out)
	if !strings.HasSuffix(out, "\n") {
		fmt.Println()
	}
	return nil
}

// readRenderInput reads the render source: the named file, or stdin when
// no file is given (or the file is "-") and data is piped in.
func readRenderInput(args Args) (string, error) {
	if args.File != "" && args.File != "-" {
		data, err := os.ReadFile(args.File)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", args.File, err)
		}
		return string(data), nil
	}

	if !IsStdinPiped() {
		return "", ErrMissingArgument(
			"no input: give a file or pipe content in",
			"aerochat render <file>  (or: cat reply.txt | aerochat render)",
		)
	}

	data, err := io.ReadAll(io.LimitReader(os.Stdin, maxRenderInput+1))
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	if len(data) > maxRenderInput {
		return "", fmt.Errorf("stdin exceeds %d MB input cap", maxRenderInput/(1024*1024))
	}
	return string(data), nil
}
