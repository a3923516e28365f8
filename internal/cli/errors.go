// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types and exit codes for aerochat commands.
//
// Handlers always return errors; main decides how to display them and
// which exit code the process ends with.
//
// ERROR HANDLING: Errors must not be silently ignored
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"

	"github.com/jeranaias/aerochat/internal/history"
	"github.com/jeranaias/aerochat/internal/stream"
)

// Exit codes, one per error category so scripts can branch on them.
const (
	ExitSuccess       = 0
	ExitGeneralError  = 1 // uncategorized failure
	ExitUsageError    = 2 // bad command line
	ExitConfigError   = 3 // configuration file or settings problem
	ExitAuthError     = 4 // provider rejected the credentials
	ExitNetworkError  = 5 // transport or provider failure
	ExitNotFoundError = 6 // resource does not exist
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError reports invalid command-line input. The Usage line is shown
// alongside the reason so the fix is one read away.
type UsageError struct {
	Reason string
	Usage  string
}

func (e *UsageError) Error() string {
	if e.Usage == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s\nUsage: %s", e.Reason, e.Usage)
}

// NotFoundError reports a resource that does not exist.
type NotFoundError struct {
	Resource string // "session", "file"
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrMissingArgument builds a UsageError for a missing required argument.
func ErrMissingArgument(reason, usage string) error {
	return &UsageError{Reason: reason, Usage: usage}
}

// ErrNotFound builds a NotFoundError.
func ErrNotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// sentinelCodes maps provider and storage sentinels to exit codes. Checked
// with errors.Is, so wrapping preserves the category.
var sentinelCodes = []struct {
	err  error
	code int
}{
	{history.ErrSessionNotFound, ExitNotFoundError},
	{stream.ErrNotConfigured, ExitConfigError},
	{stream.ErrAuthFailed, ExitAuthError},
	{stream.ErrInsufficientCredits, ExitAuthError},
	{stream.ErrRateLimited, ExitNetworkError},
	{stream.ErrModelNotFound, ExitNetworkError},
}

// GetExitCode maps an error to the process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		return ExitUsageError
	}
	var notFoundErr *NotFoundError
	if errors.As(err, &notFoundErr) {
		return ExitNotFoundError
	}

	for _, s := range sentinelCodes {
		if errors.Is(err, s.err) {
			return s.code
		}
	}

	// StreamError and APIError wrap the transport failure behind any
	// partial content that was already delivered.
	var streamErr *stream.StreamError
	var apiErr *stream.APIError
	if errors.As(err, &streamErr) || errors.As(err, &apiErr) {
		return ExitNetworkError
	}

	return ExitGeneralError
}
