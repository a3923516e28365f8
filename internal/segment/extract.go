// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package segment

// ExtractBalancedObject bounds a top-level JSON object in text by brace
// counting, starting at from. It scans forward adding 1 for every '{' and
// subtracting 1 for every '}', and returns the index just past the '}' at
// which the depth first returns to zero, with ok=true. Characters before the
// first brace are scanned over without effect.
//
// ok=false means end-of-text was reached before the object balanced: during
// streaming that simply means the payload has not fully arrived yet, and the
// caller retries on the next buffer update.
//
// Known limitation, kept on purpose: the scan is string-literal-unaware.
// Braces inside quoted JSON string values count like structural braces, so a
// payload such as {"snippet":"}"} bounds early at the quoted brace. Downstream
// validation catches the resulting invalid slice and falls back to empty
// arguments rather than this function guessing at string syntax.
func ExtractBalancedObject(text string, from int) (end int, ok bool) {
	if from < 0 {
		return 0, false
	}
	depth := 0
	for i := from; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}
