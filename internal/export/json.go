// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json.go - JSON session export.

package export

import (
	"encoding/json"
	"fmt"

	"github.com/jeranaias/aerochat/internal/model"
)

// JSONExporter serializes the full session document.
// NOTE: JSON exports ignore the filtering options. The output is the same
// document the history store's import accepts, so it round trips.
type JSONExporter struct{}

// NewJSONExporter returns a JSON exporter.
func NewJSONExporter() *JSONExporter { return &JSONExporter{} }

// Export marshals the session with indentation.
func (e *JSONExporter) Export(sess *model.Session) ([]byte, error) {
	if sess == nil {
		return nil, fmt.Errorf("session is nil")
	}
	return json.MarshalIndent(sess, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string { return ".json" }

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string { return "application/json" }
