// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/aegis-tui/internal/api"
)

// bootstrapTimeout bounds startup identity resolution so a dead server
// cannot hold the UI in the pending state forever.
const bootstrapTimeout = 10 * time.Second

// BootstrapResultMsg reports the outcome of session bootstrap.
type BootstrapResultMsg struct {
	State    State
	Identity *api.User
}

// BootstrapCmd resolves the persisted token in the background. The UI
// stays in the pending state until the result message arrives.
func BootstrapCmd(store *Store) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), bootstrapTimeout)
		defer cancel()

		state := store.Bootstrap(ctx)
		return BootstrapResultMsg{State: state, Identity: store.Identity()}
	}
}
