// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools describes the file-transfer tools the AI assistant may
// invoke. This client renders tool invocations as chips in the chat
// transcript; execution happens on the transfer backend. The catalog is the
// allow-list: a name outside it is never presented as a known tool.
package tools

import "sort"

// =============================================================================
// RISK LEVELS
// =============================================================================

// RiskLevel indicates how dangerous a tool operation is.
type RiskLevel int

const (
	// RiskLow - Read-only operations, no side effects
	RiskLow RiskLevel = iota

	// RiskMedium - Creates or transfers data, easily undone
	RiskMedium

	// RiskHigh - Modifies or deletes data, harder to undo
	RiskHigh
)

// String returns the string representation of a risk level.
func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "Low"
	case RiskMedium:
		return "Medium"
	case RiskHigh:
		return "High"
	default:
		return "Unknown"
	}
}

// Color returns the accent color associated with a risk level.
func (r RiskLevel) Color() string {
	switch r {
	case RiskLow:
		return "#34D399" // Emerald
	case RiskMedium:
		return "#FBBF24" // Amber
	case RiskHigh:
		return "#FB7185" // Rose
	default:
		return "#A6ADC8" // Text secondary
	}
}

// =============================================================================
// CATEGORIES
// =============================================================================

// Category groups tools by where they act.
type Category string

const (
	CategoryRemote   Category = "remote"
	CategoryLocal    Category = "local"
	CategoryTransfer Category = "transfer"
	CategoryArchive  Category = "archive"
)

// =============================================================================
// TOOL DEFINITION
// =============================================================================

// Tool describes one tool the assistant may request.
type Tool struct {
	// Name is the wire identifier matched in chat output (e.g. "remote_list")
	Name string

	// Label is the human-readable chip text (e.g. "List remote folder")
	Label string

	// Category groups the tool for display
	Category Category

	// Risk drives the chip accent color
	Risk RiskLevel

	// PreviewKeys name the arguments worth surfacing on the chip, in
	// priority order. The first present key wins.
	PreviewKeys []string
}

// catalog is the fixed allow-list of tools, keyed by wire name.
var catalog = map[string]Tool{
	"remote_list":   {Name: "remote_list", Label: "List remote folder", Category: CategoryRemote, Risk: RiskLow, PreviewKeys: []string{"path"}},
	"remote_read":   {Name: "remote_read", Label: "Read remote file", Category: CategoryRemote, Risk: RiskLow, PreviewKeys: []string{"path"}},
	"remote_upload": {Name: "remote_upload", Label: "Upload to remote", Category: CategoryRemote, Risk: RiskMedium, PreviewKeys: []string{"remote_path", "path"}},
	"remote_download": {Name: "remote_download", Label: "Download from remote", Category: CategoryRemote, Risk: RiskMedium,
		PreviewKeys: []string{"remote_path", "path"}},
	"remote_delete": {Name: "remote_delete", Label: "Delete remote file", Category: CategoryRemote, Risk: RiskHigh, PreviewKeys: []string{"path"}},
	"remote_rename": {Name: "remote_rename", Label: "Rename remote file", Category: CategoryRemote, Risk: RiskHigh, PreviewKeys: []string{"from", "path"}},
	"remote_mkdir":  {Name: "remote_mkdir", Label: "Create remote folder", Category: CategoryRemote, Risk: RiskMedium, PreviewKeys: []string{"path"}},
	"remote_search": {Name: "remote_search", Label: "Search remote files", Category: CategoryRemote, Risk: RiskLow, PreviewKeys: []string{"query", "path"}},
	"remote_info":   {Name: "remote_info", Label: "Remote file info", Category: CategoryRemote, Risk: RiskLow, PreviewKeys: []string{"path"}},
	"remote_edit":   {Name: "remote_edit", Label: "Edit remote file", Category: CategoryRemote, Risk: RiskHigh, PreviewKeys: []string{"path"}},

	"local_list":   {Name: "local_list", Label: "List local folder", Category: CategoryLocal, Risk: RiskLow, PreviewKeys: []string{"path"}},
	"local_read":   {Name: "local_read", Label: "Read local file", Category: CategoryLocal, Risk: RiskLow, PreviewKeys: []string{"path"}},
	"local_write":  {Name: "local_write", Label: "Write local file", Category: CategoryLocal, Risk: RiskHigh, PreviewKeys: []string{"path"}},
	"local_mkdir":  {Name: "local_mkdir", Label: "Create local folder", Category: CategoryLocal, Risk: RiskMedium, PreviewKeys: []string{"path"}},
	"local_delete": {Name: "local_delete", Label: "Delete local file", Category: CategoryLocal, Risk: RiskHigh, PreviewKeys: []string{"path"}},
	"local_rename": {Name: "local_rename", Label: "Rename local file", Category: CategoryLocal, Risk: RiskHigh, PreviewKeys: []string{"from", "path"}},
	"local_search": {Name: "local_search", Label: "Search local files", Category: CategoryLocal, Risk: RiskLow, PreviewKeys: []string{"query", "path"}},
	"local_edit":   {Name: "local_edit", Label: "Edit local file", Category: CategoryLocal, Risk: RiskHigh, PreviewKeys: []string{"path"}},

	"upload_files":   {Name: "upload_files", Label: "Upload files", Category: CategoryTransfer, Risk: RiskMedium, PreviewKeys: []string{"remote_dir", "paths"}},
	"download_files": {Name: "download_files", Label: "Download files", Category: CategoryTransfer, Risk: RiskMedium, PreviewKeys: []string{"local_dir", "paths"}},
	"sync_preview":   {Name: "sync_preview", Label: "Preview sync", Category: CategoryTransfer, Risk: RiskLow, PreviewKeys: []string{"local_dir", "remote_dir"}},

	"archive_create":  {Name: "archive_create", Label: "Create archive", Category: CategoryArchive, Risk: RiskMedium, PreviewKeys: []string{"dest", "path"}},
	"archive_extract": {Name: "archive_extract", Label: "Extract archive", Category: CategoryArchive, Risk: RiskMedium, PreviewKeys: []string{"path", "dest"}},
}

// =============================================================================
// LOOKUP
// =============================================================================

// Known reports whether name is in the allow-list. Matching is exact and
// case-sensitive: the wire names are lowercase by contract.
func Known(name string) bool {
	_, ok := catalog[name]
	return ok
}

// Lookup returns the catalog entry for name.
func Lookup(name string) (Tool, bool) {
	t, ok := catalog[name]
	return t, ok
}

// Label returns the display label for name, falling back to the raw name
// for tools outside the catalog so unknown invocations stay visible.
func Label(name string) string {
	if t, ok := catalog[name]; ok {
		return t.Label
	}
	return name
}

// Names returns all allow-listed tool names, sorted.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByCategory returns all tools in a category, sorted by name.
func ByCategory(c Category) []Tool {
	var result []Tool
	for _, name := range Names() {
		if t := catalog[name]; t.Category == c {
			result = append(result, t)
		}
	}
	return result
}
