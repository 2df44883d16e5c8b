// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package records

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/aegis-tui/internal/api"
	"github.com/morganforge/aegis-tui/internal/session"
)

// requestTimeout bounds each background record request.
const requestTimeout = 15 * time.Second

// ListResultMsg carries a fetched record list.
type ListResultMsg struct {
	Gen     uint64
	Records []api.Record
	Err     error
}

// DecryptResultMsg carries one record's decrypt outcome.
type DecryptResultMsg struct {
	RecordID string
	Gen      uint64
	Result   *api.DecryptResult
	Err      error
}

// CreateResultMsg carries the outcome of authoring a record.
type CreateResultMsg struct {
	Err error
}

// ListCmd fetches the caller's visible records in the background.
func ListCmd(store *session.Store, gen uint64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		var recs []api.Record
		err := store.Request(ctx, func(ctx context.Context, token string) error {
			var err error
			recs, err = store.Backend().ListRecords(ctx, token)
			return err
		})
		return ListResultMsg{Gen: gen, Records: recs, Err: err}
	}
}

// DecryptCmd requests one record's plaintext in the background.
func DecryptCmd(store *session.Store, recordID string, gen uint64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		var res *api.DecryptResult
		err := store.Request(ctx, func(ctx context.Context, token string) error {
			var err error
			res, err = store.Backend().DecryptRecord(ctx, token, recordID)
			return err
		})
		return DecryptResultMsg{RecordID: recordID, Gen: gen, Result: res, Err: err}
	}
}

// CreateCmd submits a new record in the background. The server
// encrypts and signs; the client never sees key material.
func CreateCmd(store *session.Store, req api.CreateRecordRequest) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		err := store.Request(ctx, func(ctx context.Context, token string) error {
			return store.Backend().CreateRecord(ctx, token, req)
		})
		return CreateResultMsg{Err: err}
	}
}
