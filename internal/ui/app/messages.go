// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import "github.com/morganforge/aegis-tui/internal/api"

// LoginResultMsg carries the outcome of a first-factor attempt.
type LoginResultMsg struct {
	Username string
	Result   *api.LoginResult
	Err      error
}

// RegisterResultMsg carries the outcome of account registration. Token
// is the demo backend's emailed verification token, surfaced directly.
type RegisterResultMsg struct {
	Token string
	Err   error
}

// VerifyRegistrationResultMsg carries the outcome of account
// verification.
type VerifyRegistrationResultMsg struct {
	Err error
}
