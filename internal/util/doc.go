// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds the small helpers shared across aerochat packages:
// rune- and column-aware truncation for list columns and previews, decimal
// formatting for stats lines, and crash-safe file replacement.
//
// AtomicWriteFile is the only way aerochat writes a file. Config saves,
// history exports, and JSON migration all route through it, so a crash
// mid-write can corrupt none of them.
package util
