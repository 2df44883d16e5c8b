// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package otp

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/aegis-tui/internal/api"
)

// verifyTimeout bounds a single code verification request.
const verifyTimeout = 15 * time.Second

// TickMsg drives the one-second countdown.
type TickMsg struct{}

// VerifyResultMsg carries the outcome of a code verification.
type VerifyResultMsg struct {
	Auth *api.AuthResult
	Err  error
}

// TickCmd emits one TickMsg after a second. The update loop re-arms it
// while a code is pending.
func TickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

// VerifyCmd sends the entered code to the server in the background.
func VerifyCmd(backend api.Backend, username, code string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
		defer cancel()

		auth, err := backend.VerifyOTP(ctx, username, code)
		return VerifyResultMsg{Auth: auth, Err: err}
	}
}
