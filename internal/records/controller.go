// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package records tracks the record list and the per-record decrypt
// lifecycle. Records arrive encrypted and stay encrypted; plaintext
// exists only inside this controller, per record, for the life of the
// session, and is dropped on reset.
package records

import (
	"github.com/morganforge/aegis-tui/internal/api"
	"github.com/morganforge/aegis-tui/internal/authz"
)

// =============================================================================
// DECRYPT STATE
// =============================================================================

// DecryptState is the per-record access phase.
type DecryptState int

const (
	// StateLocked: ciphertext only, nothing requested.
	StateLocked DecryptState = iota

	// StateDecrypting: a decrypt request is in flight.
	StateDecrypting

	// StateOpen: plaintext is held locally alongside the signature
	// verdict.
	StateOpen
)

// String returns the state name.
func (s DecryptState) String() string {
	switch s {
	case StateLocked:
		return "locked"
	case StateDecrypting:
		return "decrypting"
	case StateOpen:
		return "open"
	}
	return "unknown"
}

// DecryptedView is the session-local plaintext view of one record.
// SignatureValid is a trust verdict on successfully decrypted content,
// not an error: an open record with a bad signature still renders,
// flagged as unverified.
type DecryptedView struct {
	Data           api.RecordData
	SignatureValid bool
}

// recordAccess is the controller's private per-record slot.
type recordAccess struct {
	state DecryptState
	view  DecryptedView
	err   string
	gen   uint64 // generation of the in-flight or last decrypt
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns the record list and every record's decrypt slot. Not
// safe for concurrent use; it lives on the single UI event loop, and
// background request results re-enter through Handle* methods carrying
// the generation they were issued under.
type Controller struct {
	records []api.Record
	loading bool
	listErr string

	access map[string]*recordAccess

	// gen invalidates every outstanding request when bumped. Results
	// from before a Reset or reload carry an older generation and are
	// discarded on arrival.
	gen uint64
}

// NewController creates an empty controller.
func NewController() *Controller {
	return &Controller{access: make(map[string]*recordAccess)}
}

// Records returns the current list.
func (c *Controller) Records() []api.Record { return c.records }

// Loading reports whether a list request is in flight.
func (c *Controller) Loading() bool { return c.loading }

// ListError returns the last list failure to surface, or "".
func (c *Controller) ListError() string { return c.listErr }

// Generation returns the current invalidation generation. Commands
// capture it so their results can be matched on arrival.
func (c *Controller) Generation() uint64 { return c.gen }

// State returns the decrypt phase for a record.
func (c *Controller) State(recordID string) DecryptState {
	if a, ok := c.access[recordID]; ok {
		return a.state
	}
	return StateLocked
}

// View returns the decrypted view for an open record.
func (c *Controller) View(recordID string) (DecryptedView, bool) {
	a, ok := c.access[recordID]
	if !ok || a.state != StateOpen {
		return DecryptedView{}, false
	}
	return a.view, true
}

// DecryptError returns the last decrypt failure for a record, or "".
func (c *Controller) DecryptError(recordID string) string {
	if a, ok := c.access[recordID]; ok {
		return a.err
	}
	return ""
}

// =============================================================================
// LIST LIFECYCLE
// =============================================================================

// BeginLoad marks a list request as in flight and returns the
// generation the command must carry back.
func (c *Controller) BeginLoad() uint64 {
	c.loading = true
	c.listErr = ""
	return c.gen
}

// HandleList installs a fetched record list. Results issued before the
// last reset are discarded. A reload keeps open records open: the
// plaintext a user already unlocked does not re-lock because the list
// refreshed.
func (c *Controller) HandleList(gen uint64, recs []api.Record, err error) {
	if gen != c.gen {
		return
	}
	c.loading = false
	if err != nil {
		c.listErr = api.UserMessage(err)
		return
	}
	c.records = recs
	c.listErr = ""

	// Drop slots for records that no longer exist.
	known := make(map[string]bool, len(recs))
	for _, r := range recs {
		known[r.ID] = true
	}
	for id := range c.access {
		if !known[id] {
			delete(c.access, id)
		}
	}
}

// =============================================================================
// DECRYPT LIFECYCLE
// =============================================================================

// BeginDecrypt moves a locked record to decrypting and returns the
// generation for the command. A record already decrypting or already
// open reports ok=false; duplicate requests while one is in flight are
// ignored at this boundary, so at most one decrypt per record is ever
// outstanding.
func (c *Controller) BeginDecrypt(recordID string) (gen uint64, ok bool) {
	a := c.access[recordID]
	if a == nil {
		a = &recordAccess{}
		c.access[recordID] = a
	}
	if a.state != StateLocked {
		return 0, false
	}
	a.state = StateDecrypting
	a.err = ""
	a.gen = c.gen
	return c.gen, true
}

// HandleDecrypt applies a decrypt outcome. Stale results, and results
// for records no longer decrypting, are discarded. Failure returns the
// record to locked with the error surfaced on that record alone;
// success opens it, carrying the server's signature verdict verbatim.
func (c *Controller) HandleDecrypt(recordID string, gen uint64, res *api.DecryptResult, err error) {
	a, ok := c.access[recordID]
	if !ok || a.state != StateDecrypting || gen != a.gen || gen != c.gen {
		return
	}
	if err != nil {
		a.state = StateLocked
		a.err = api.UserMessage(err)
		return
	}
	a.state = StateOpen
	a.err = ""
	a.view = DecryptedView{Data: res.Data, SignatureValid: res.SignatureValid}
}

// Close re-locks an open record and drops its plaintext. The next view
// requires a fresh decrypt.
func (c *Controller) Close(recordID string) {
	a, ok := c.access[recordID]
	if !ok || a.state != StateOpen {
		return
	}
	a.state = StateLocked
	a.view = DecryptedView{}
}

// Reset drops the list, every decrypt slot and all plaintext, and
// invalidates every outstanding request. Called on logout and when
// leaving the records surface.
func (c *Controller) Reset() {
	c.records = nil
	c.loading = false
	c.listErr = ""
	c.access = make(map[string]*recordAccess)
	c.gen++
}

// =============================================================================
// CREATE
// =============================================================================

// CanCreate reports whether the identity may author records. The
// server enforces this too; the client check only keeps the create
// form off the screen for roles that would be rejected.
func CanCreate(identity *api.User) bool {
	if identity == nil {
		return false
	}
	role, ok := authz.ParseRole(identity.Role)
	if !ok {
		return false
	}
	return authz.CanManageRecords(role)
}
