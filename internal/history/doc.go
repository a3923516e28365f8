// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history persists chat sessions in a local SQLite database.
//
// The store replaces flat JSON transcript files with a WAL-mode database:
// writes are crash-safe, a session loads without reading every transcript
// on disk, and an FTS5 index makes every stored message searchable. When
// the FTS5 extension is unavailable the store still opens; only Search
// degrades.
//
// # Key Types
//
//   - Store: The open database; all operations hang off it
//   - Options: Open-time knobs (database path, FTS on/off)
//   - SearchResult: One full-text match with a highlighted snippet
//   - Stats: Row counts and database size for the status display
//
// # Usage
//
//	st, err := history.Open(history.DefaultOptions(dbPath))
//	if err != nil { ... }
//	defer st.Close()
//
//	sess := model.NewSessionWith(model.ProviderOllama, "llama3.2")
//	sess.AddUserMessage("explain goroutines")
//	if err := st.SaveSession(sess); err != nil { ... }
//
//	hits, err := st.Search("goroutines", 20)
//
// Sessions round trip through the model package types: SaveSession writes
// a model.Session, GetSession returns one.
package history
