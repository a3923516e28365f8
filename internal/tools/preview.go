// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jeranaias/aerochat/internal/util"
)

// maxPreviewRunes caps the argument preview shown on a chip.
const maxPreviewRunes = 40

// genericPreviewKeys are tried for tools outside the catalog.
var genericPreviewKeys = []string{"path", "query", "dest", "from", "paths"}

// ArgsPreview extracts the most salient argument from a tool's JSON args
// for display on the chip, truncated for width. Malformed JSON, missing
// keys, and empty args all return "": the chip then shows only the label.
func ArgsPreview(name, argsJSON string) string {
	if argsJSON == "" || argsJSON == "{}" {
		return ""
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return ""
	}

	keys := genericPreviewKeys
	if t, ok := catalog[name]; ok {
		keys = t.PreviewKeys
	}

	for _, key := range keys {
		v, ok := args[key]
		if !ok {
			continue
		}
		switch val := v.(type) {
		case string:
			if val == "" {
				continue
			}
			return util.TruncateRunes(util.CollapseLine(val), maxPreviewRunes)
		case []any:
			if len(val) == 0 {
				continue
			}
			if len(val) == 1 {
				if s, ok := val[0].(string); ok && s != "" {
					return util.TruncateRunes(util.CollapseLine(s), maxPreviewRunes)
				}
			}
			return util.IntToString(len(val)) + " files"
		}
	}
	return ""
}

// ValidatePath rejects path arguments that could not name a legitimate
// transfer target: overlong paths, embedded null bytes, and any ".."
// traversal component under either separator convention. param names the
// argument in the error.
func ValidatePath(path, param string) error {
	if len(path) > 4096 {
		return fmt.Errorf("%s: path exceeds 4096 characters", param)
	}
	if strings.ContainsRune(path, 0) {
		return fmt.Errorf("%s: path contains null bytes", param)
	}
	for _, sep := range []string{"/", "\\"} {
		for _, component := range strings.Split(path, sep) {
			if component == ".." {
				return fmt.Errorf("%s: path traversal ('..') not allowed", param)
			}
		}
	}
	return nil
}
