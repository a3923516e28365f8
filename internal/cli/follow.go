// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// follow.go - Live preview mode for the render command.
//
// Repaints the terminal whenever the watched file changes, so a reply can
// be edited in one window and previewed in another. Config file edits
// repaint too, which makes theme and wrap changes visible immediately.

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jeranaias/aerochat/internal/config"
	"github.com/jeranaias/aerochat/internal/render"
	"github.com/jeranaias/aerochat/internal/sanitize"
)

// followRender re-renders the watched file on every change until
// interrupted. The watch is placed on the file's directory rather than the
// file itself: editors replace files by rename, which would silently detach
// a watch on the old inode.
func followRender(args Args) error {
	if args.File == "" || args.File == "-" {
		return ErrMissingArgument(
			"--follow needs a file to watch",
			"aerochat render --follow notes.md",
		)
	}
	if !IsStdoutTTY() {
		return fmt.Errorf("--follow repaints the screen and needs a terminal")
	}

	abs, err := filepath.Abs(args.File)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", args.File, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start file watch: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	// Config edits repaint as well. Hot reload is best effort: a preview
	// without it still works, so watcher setup failures are not fatal.
	reload := make(chan struct{}, 1)
	poke := func() {
		select {
		case reload <- struct{}{}:
		default:
		}
	}
	if cw, err := config.NewWatcher(func(*config.Config) { poke() }, nil); err == nil {
		if err := cw.Watch(); err != nil {
			cw.Close()
		} else {
			defer cw.Close()
		}
	}

	if err := paintFollowFrame(args, abs); err != nil {
		return err
	}

	base := filepath.Base(abs)
	var pending bool
	var changed time.Time
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				pending = true
				changed = time.Now()
			}

		case werr, ok := <-fw.Errors:
			if ok && werr != nil && !args.Quiet {
				fmt.Fprintf(os.Stderr, "Warning: watch error: %v\n", werr)
			}

		case <-reload:
			pending = true
			changed = time.Now()

		case <-ticker.C:
			if !pending || time.Since(changed) < config.DefaultDebounce {
				continue
			}
			pending = false
			if err := paintFollowFrame(args, abs); err != nil && !args.Quiet {
				// A save-by-rename briefly leaves no file; the create event
				// that follows repaints.
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
		}
	}
}

// paintFollowFrame clears the screen and renders the file's current content.
func paintFollowFrame(args Args, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	content := string(data)

	fmt.Print("\x1b[2J\x1b[H")

	if args.Raw {
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

	out := render.New(cfg, width).RenderMessage(content)
	fmt.Print(out)
	if !strings.HasSuffix(out, "\n") {
		fmt.Println()
	}
	if !args.Quiet {
		fmt.Println(streamNoteStyle.Render("watching " + args.File + " (Ctrl-C to stop)"))
	}
	return nil
}
