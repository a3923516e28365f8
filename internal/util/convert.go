// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import "strconv"

// PERFORMANCE: stats lines are rebuilt on every repaint; these wrappers
// keep that path on strconv instead of fmt.

// IntToString formats i in decimal.
func IntToString(i int) string { return strconv.Itoa(i) }

// FloatToStringPrec formats f with prec digits after the decimal point.
func FloatToStringPrec(f float64, prec int) string {
	return strconv.FormatFloat(f, 'f', prec, 64)
}
