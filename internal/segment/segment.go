// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package segment

// Kind discriminates the two segment shapes a chat buffer splits into.
type Kind string

const (
	// KindProse is ordinary markdown text.
	KindProse Kind = "prose"

	// KindToolChip is an inline tool invocation rendered as a compact chip
	// instead of raw marker text.
	KindToolChip Kind = "tool_chip"
)

// Segment is one ordered piece of a chat message buffer.
//
// Segments are plain values regenerated from scratch on every Split call;
// nothing survives between calls except by value equality. Order is
// significant: segments appear in buffer order.
type Segment struct {
	Kind Kind

	// Text is the trimmed prose for KindProse segments. Empty for chips.
	Text string

	// ToolName is the matched tool word for KindToolChip segments.
	ToolName string

	// ArgsJSON is the exact JSON argument substring for KindToolChip
	// segments, or "{}" when the arguments were unbalanced or invalid.
	ArgsJSON string
}

// FinalizeResult is the output of Finalize: the immutable prefix of a
// streaming buffer split into chunks, plus the still-changing suffix.
type FinalizeResult struct {
	// Finalized chunks never change once emitted. On any append-grown
	// buffer a later call returns these exact strings at the same indexes,
	// possibly followed by more.
	Finalized []string

	// InProgress is the volatile tail. It may be empty, it may shrink or
	// change wholesale between calls, and it must be re-rendered every
	// update.
	InProgress string
}
