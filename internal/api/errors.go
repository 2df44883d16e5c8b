// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"fmt"
)

// Sentinel errors for the conditions callers branch on.
var (
	// ErrUnauthorized indicates the token is missing, invalid or expired.
	// The component that sees this on a protected request is responsible
	// for triggering logout; the session store does not auto-logout.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the identity lacks the role for the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrUnavailable indicates no usable response was received (network
	// failure, timeout, or a 5xx that survived retries). Recoverable;
	// surfaced as a "try again" condition, never a crash.
	ErrUnavailable = errors.New("backend unavailable")
)

// APIError is a rejection the server articulated. Message carries the
// server's error string verbatim so forms can surface it unchanged.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("portal error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("portal error (HTTP %d)", e.Status)
}

// Unwrap maps auth-relevant statuses onto the sentinels so callers can
// use errors.Is without inspecting status codes.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case 401:
		return ErrUnauthorized
	case 403:
		return ErrForbidden
	}
	return nil
}

// UserMessage returns the text to show next to the form or record that
// caused the failure.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, ErrUnavailable) {
		return "Could not reach the server. Please try again."
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
