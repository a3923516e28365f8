// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// helpers.go - Shared output helpers for aerochat CLI commands.

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// byteUnits in descending order so formatBytes can take the first match.
var byteUnits = []struct {
	limit int64
	name  string
}{
	{1 << 30, "GB"},
	{1 << 20, "MB"},
	{1 << 10, "KB"},
}

// formatBytes renders a byte count with a binary unit and two decimals.
func formatBytes(bytes int64) string {
	for _, u := range byteUnits {
		if bytes >= u.limit {
			return fmt.Sprintf("%.2f %s", float64(bytes)/float64(u.limit), u.name)
		}
	}
	return fmt.Sprintf("%d bytes", bytes)
}

// formatTimeAgo renders a timestamp relative to now for list columns.
// Anything older than a week falls back to the plain date.
func formatTimeAgo(t time.Time) string {
	since := time.Since(t)
	switch {
	case since < time.Minute:
		return "just now"
	case since < time.Hour:
		return agoLine(int(since.Minutes()), "minute")
	case since < 24*time.Hour:
		return agoLine(int(since.Hours()), "hour")
	case since < 7*24*time.Hour:
		return agoLine(int(since.Hours()/24), "day")
	default:
		return t.Format("2006-01-02")
	}
}

// agoLine renders "1 minute ago" or "5 minutes ago".
func agoLine(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// outputJSON writes data to stdout as indented JSON.
func outputJSON(data any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
