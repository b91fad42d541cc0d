// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorKind categorizes provider failures for user-facing messages.
type ErrorKind int

const (
	// ErrorUnknown is anything the classifier could not place.
	ErrorUnknown ErrorKind = iota
	// ErrorAuthFailure means the API key is missing, wrong, or expired.
	ErrorAuthFailure
	// ErrorRateLimited means the provider refused the request for quota.
	ErrorRateLimited
	// ErrorTimeout covers timeouts and connection failures.
	ErrorTimeout
	// ErrorModelDeprecated means the remote model no longer exists.
	ErrorModelDeprecated
)

// String returns a short label for the kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrorAuthFailure:
		return "auth_failure"
	case ErrorRateLimited:
		return "rate_limited"
	case ErrorTimeout:
		return "timeout"
	case ErrorModelDeprecated:
		return "model_deprecated"
	default:
		return "unknown"
	}
}

// ProviderError wraps a failure from the completion API with a category
// and a message fit for the terminal.
type ProviderError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

// Classify turns an arbitrary provider error into a ProviderError.
//
// Providers do not expose structured error codes through this client, so
// classification sniffs the lowercased error text for known substrings.
// Every such heuristic lives here; when structured codes become
// available only this function changes.
func Classify(err error) *ProviderError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api key"), strings.Contains(msg, "authentication"):
		return &ProviderError{
			Kind:    ErrorAuthFailure,
			Message: "authentication failed, check the provider API key",
			Cause:   err,
		}
	case strings.Contains(msg, "rate limit"):
		return &ProviderError{
			Kind:    ErrorRateLimited,
			Message: "rate limited by the provider, wait a moment and retry",
			Cause:   err,
		}
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "connection"):
		return &ProviderError{
			Kind:    ErrorTimeout,
			Message: "connection to the provider failed or timed out",
			Cause:   err,
		}
	case strings.Contains(msg, "not found"), strings.Contains(msg, "404"):
		return &ProviderError{
			Kind:    ErrorModelDeprecated,
			Message: "the remote model was not found and may be deprecated",
			Cause:   err,
		}
	}
	return &ProviderError{Kind: ErrorUnknown, Message: "provider request failed", Cause: err}
}

// IsAuthFailure reports whether err classifies as an authentication error.
func IsAuthFailure(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == ErrorAuthFailure
}

// IsRateLimited reports whether err classifies as a rate-limit error.
func IsRateLimited(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == ErrorRateLimited
}

// IsTimeout reports whether err classifies as a timeout or connection error.
func IsTimeout(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == ErrorTimeout
}
