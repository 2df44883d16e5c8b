// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/aegis-tui/internal/api"
)

// requestTimeout bounds the auth-flow background requests.
const requestTimeout = 15 * time.Second

// loginCmd performs the first authentication factor in the background.
func loginCmd(backend api.Backend, username, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		res, err := backend.Login(ctx, username, password)
		return LoginResultMsg{Username: username, Result: res, Err: err}
	}
}

// registerCmd creates an account in the background.
func registerCmd(backend api.Backend, req api.RegisterRequest) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		token, err := backend.Register(ctx, req)
		return RegisterResultMsg{Token: token, Err: err}
	}
}

// verifyRegistrationCmd activates an account in the background.
func verifyRegistrationCmd(backend api.Backend, username, token string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		err := backend.VerifyRegistration(ctx, username, token)
		return VerifyRegistrationResultMsg{Err: err}
	}
}
