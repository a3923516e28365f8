// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package segment

import (
	"encoding/json"
	"strings"
)

// marker is one matched tool-invocation header inside the buffer.
type marker struct {
	start     int    // index of the 'T' in "TOOL:"
	headerEnd int    // index just past the colon of "ARGS:"
	name      string // the tool word between the two keywords
}

// Split partitions a chat buffer into prose and tool-chip segments.
//
// The scanner looks for the case-insensitive header
//
//	TOOL: <word>
//	ARGS: <json object>
//
// anywhere in text. <word> is [A-Za-z0-9_]+; spaces, tabs, and a carriage
// return are tolerated after "TOOL:" and after the word; "ARGS:" must start
// immediately after the newline. Text between headers becomes trimmed prose
// segments; each header becomes one KindToolChip segment carrying the exact
// JSON substring bounded by ExtractBalancedObject.
//
// STREAMING: arguments that have not finished arriving, or that bound to
// invalid JSON, degrade to ArgsJSON "{}" with the cursor advanced only past
// the header, so the unconsumed text is re-scanned as ordinary prose on this
// and later calls. The chip is still emitted either way.
//
// Empty and whitespace-only input returns nil. Callers that need at least
// one segment substitute the raw buffer as a single prose segment themselves.
// Split never panics and has no failure mode.
func Split(text string) []Segment {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var segs []Segment
	cursor := 0
	for {
		m, ok := findMarker(text, cursor)
		if !ok {
			break
		}
		if prose := strings.TrimSpace(text[cursor:m.start]); prose != "" {
			segs = append(segs, Segment{Kind: KindProse, Text: prose})
		}
		args, next := extractArgs(text, m.headerEnd)
		segs = append(segs, Segment{Kind: KindToolChip, ToolName: m.name, ArgsJSON: args})
		cursor = next
	}
	if prose := strings.TrimSpace(text[cursor:]); prose != "" {
		segs = append(segs, Segment{Kind: KindProse, Text: prose})
	}
	return segs
}

// extractArgs bounds and validates the JSON payload after an "ARGS:" header
// ending at headerEnd. On success it returns the exact JSON substring and the
// cursor just past it. On any failure it returns "{}" and headerEnd itself,
// leaving the unparsed text to the prose scanner.
func extractArgs(text string, headerEnd int) (argsJSON string, next int) {
	from := headerEnd
	for from < len(text) && isJSONSpace(text[from]) {
		from++
	}
	end, ok := ExtractBalancedObject(text, from)
	if !ok {
		return "{}", headerEnd
	}
	raw := text[from:end]
	if !json.Valid([]byte(raw)) {
		return "{}", headerEnd
	}
	return raw, end
}

// findMarker returns the first tool header at or after from.
func findMarker(text string, from int) (marker, bool) {
	if from < 0 {
		from = 0
	}
	for i := from; i+5 <= len(text); i++ {
		if !foldEq(text[i:i+5], "tool:") {
			continue
		}
		j := skipInline(text, i+5)
		nameStart := j
		for j < len(text) && isWordByte(text[j]) {
			j++
		}
		if j == nameStart {
			continue
		}
		name := text[nameStart:j]
		j = skipInline(text, j)
		if j >= len(text) || text[j] != '\n' {
			continue
		}
		j++
		if j+5 > len(text) || !foldEq(text[j:j+5], "args:") {
			continue
		}
		return marker{start: i, headerEnd: j + 5, name: name}, true
	}
	return marker{}, false
}

// foldEq reports whether s equals lower under ASCII case folding. lower must
// already be lowercase and the two must have equal length.
func foldEq(s, lower string) bool {
	for i := 0; i < len(lower); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != lower[i] {
			return false
		}
	}
	return true
}

// skipInline advances past spaces, tabs, and carriage returns, never newlines.
func skipInline(text string, i int) int {
	for i < len(text) && (text[i] == ' ' || text[i] == '\t' || text[i] == '\r') {
		i++
	}
	return i
}

// isWordByte matches the ASCII word class: letters, digits, underscore.
func isWordByte(c byte) bool {
	return c == '_' ||
		('0' <= c && c <= '9') ||
		('a' <= c && c <= 'z') ||
		('A' <= c && c <= 'Z')
}

// isJSONSpace matches the whitespace JSON itself allows around values.
func isJSONSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
