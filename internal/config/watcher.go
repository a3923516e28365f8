// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// CONFIG FILE WATCHER
// =============================================================================

// DefaultDebounce is the delay between the last observed change and the
// reload. Editors and SaveTOML produce several events per save; the debounce
// collapses them into a single reload.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads the global configuration when the config file changes on
// disk. The watch is placed on the config directory rather than the file
// itself: most editors (and SaveTOML's atomic write) replace the file by
// rename, which would silently detach a watch on the old inode.
type Watcher struct {
	dir      string
	names    map[string]bool // base names that trigger a reload
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onReload func(*Config)
	onError  func(error)
	mu       sync.Mutex
	pending  bool
	changed  time.Time
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewWatcher creates a config watcher. onReload is called with the freshly
// loaded config after each successful reload; onError is called when a reload
// fails. Either callback may be nil.
func NewWatcher(onReload func(*Config), onError func(error)) (*Watcher, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		dir:      dir,
		names:    map[string]bool{"config.toml": true, "config.json": true},
		watcher:  fsw,
		debounce: DefaultDebounce,
		onReload: onReload,
		onError:  onError,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Watch starts watching for config file changes.
func (w *Watcher) Watch() error {
	// The directory must exist before it can be watched
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}

	// Start event processing goroutine
	go w.processEvents()

	// Start debounce timer goroutine
	go w.processPending()

	return nil
}

// processEvents processes file system events.
func (w *Watcher) processEvents() {
	// Add panic recovery to prevent crashes
	defer func() {
		if r := recover(); r != nil {
			// Non-fatal, goroutine exits
			_ = r
		}
	}()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// Only config files in the watched directory are interesting
			if !w.names[filepath.Base(event.Name)] {
				continue
			}

			// Write, Create, and Rename all indicate new content; Remove
			// means a reload falls back to defaults.
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				w.markPending()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}

// markPending records a change; the actual reload happens after the debounce.
func (w *Watcher) markPending() {
	w.mu.Lock()
	w.pending = true
	w.changed = time.Now()
	w.mu.Unlock()
}

// processPending reloads once events have been quiet for the debounce window.
func (w *Watcher) processPending() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			w.mu.Lock()
			ready := w.pending && time.Since(w.changed) >= w.debounce
			if ready {
				w.pending = false
			}
			w.mu.Unlock()

			if !ready {
				continue
			}

			if err := ReloadGlobal(); err != nil {
				if w.onError != nil {
					w.onError(err)
				}
				continue
			}
			if w.onReload != nil {
				w.onReload(Global())
			}
		}
	}
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.cancel()
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}
