// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package users

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/aegis-tui/internal/api"
	"github.com/morganforge/aegis-tui/internal/session"
)

// requestTimeout bounds each background directory request.
const requestTimeout = 15 * time.Second

// ListResultMsg carries a fetched user list.
type ListResultMsg struct {
	Gen   uint64
	Users []api.User
	Err   error
}

// UnlockResultMsg carries the outcome of an account unlock.
type UnlockResultMsg struct {
	UserID  string
	Gen     uint64
	Message string
	Err     error
}

// PatientsResultMsg carries a fetched patient roster.
type PatientsResultMsg struct {
	Gen      uint64
	Patients []api.User
	Err      error
}

// ListCmd fetches the full user directory in the background.
func ListCmd(store *session.Store, gen uint64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		var list []api.User
		err := store.Request(ctx, func(ctx context.Context, token string) error {
			var err error
			list, err = store.Backend().ListUsers(ctx, token)
			return err
		})
		return ListResultMsg{Gen: gen, Users: list, Err: err}
	}
}

// UnlockCmd resets a locked account in the background.
func UnlockCmd(store *session.Store, userID string, gen uint64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		var message string
		err := store.Request(ctx, func(ctx context.Context, token string) error {
			var err error
			message, err = store.Backend().UnlockUser(ctx, token, userID)
			return err
		})
		return UnlockResultMsg{UserID: userID, Gen: gen, Message: message, Err: err}
	}
}

// PatientsCmd fetches the patient roster in the background.
func PatientsCmd(store *session.Store, gen uint64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		var list []api.User
		err := store.Request(ctx, func(ctx context.Context, token string) error {
			var err error
			list, err = store.Backend().ListPatients(ctx, token)
			return err
		})
		return PatientsResultMsg{Gen: gen, Patients: list, Err: err}
	}
}
