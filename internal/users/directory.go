// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package users tracks the administrative user directory and the
// patient roster used when authoring records.
package users

import (
	"strings"

	"github.com/morganforge/aegis-tui/internal/api"
)

// Directory owns the admin user list and per-user unlock state. Not
// safe for concurrent use; it lives on the single UI event loop.
type Directory struct {
	users   []api.User
	loading bool
	listErr string

	// unlocking tracks users with an unlock request in flight so the
	// action cannot be double-fired.
	unlocking map[string]bool
	lastErr   string

	filter string

	gen uint64
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{unlocking: make(map[string]bool)}
}

// Users returns the full fetched list.
func (d *Directory) Users() []api.User { return d.users }

// Loading reports whether a list request is in flight.
func (d *Directory) Loading() bool { return d.loading }

// ListError returns the last list failure, or "".
func (d *Directory) ListError() string { return d.listErr }

// LastError returns the last unlock failure, or "".
func (d *Directory) LastError() string { return d.lastErr }

// Unlocking reports whether an unlock is in flight for a user.
func (d *Directory) Unlocking(userID string) bool { return d.unlocking[userID] }

// Generation returns the current invalidation generation.
func (d *Directory) Generation() uint64 { return d.gen }

// =============================================================================
// FILTERING
// =============================================================================

// SetFilter installs a case-insensitive substring filter over
// username, email and role.
func (d *Directory) SetFilter(filter string) {
	d.filter = strings.ToLower(strings.TrimSpace(filter))
}

// Filter returns the active filter text.
func (d *Directory) Filter() string { return d.filter }

// Visible returns the users matching the active filter, in fetched
// order.
func (d *Directory) Visible() []api.User {
	if d.filter == "" {
		return d.users
	}
	var out []api.User
	for _, u := range d.users {
		if strings.Contains(strings.ToLower(u.Username), d.filter) ||
			strings.Contains(strings.ToLower(u.Email), d.filter) ||
			strings.Contains(strings.ToLower(u.Role), d.filter) {
			out = append(out, u)
		}
	}
	return out
}

// =============================================================================
// LIST LIFECYCLE
// =============================================================================

// BeginLoad marks a list request as in flight and returns the
// generation the command carries back.
func (d *Directory) BeginLoad() uint64 {
	d.loading = true
	d.listErr = ""
	return d.gen
}

// HandleList installs a fetched user list. Stale results are dropped.
func (d *Directory) HandleList(gen uint64, users []api.User, err error) {
	if gen != d.gen {
		return
	}
	d.loading = false
	if err != nil {
		d.listErr = api.UserMessage(err)
		return
	}
	d.users = users
	d.listErr = ""
}

// =============================================================================
// UNLOCK LIFECYCLE
// =============================================================================

// BeginUnlock marks an unlock request as in flight. Returns false if
// one is already outstanding for this user.
func (d *Directory) BeginUnlock(userID string) (gen uint64, ok bool) {
	if d.unlocking[userID] {
		return 0, false
	}
	d.unlocking[userID] = true
	d.lastErr = ""
	return d.gen, true
}

// HandleUnlock applies an unlock outcome. Success patches the local
// row so the UI reflects the change without a refetch; the next list
// load remains authoritative.
func (d *Directory) HandleUnlock(userID string, gen uint64, err error) {
	if gen != d.gen {
		return
	}
	delete(d.unlocking, userID)
	if err != nil {
		d.lastErr = api.UserMessage(err)
		return
	}
	for i := range d.users {
		if d.users[i].ID == userID {
			d.users[i].Locked = false
			break
		}
	}
}

// Reset drops everything and invalidates outstanding requests. Called
// on logout and when leaving the admin surface.
func (d *Directory) Reset() {
	d.users = nil
	d.loading = false
	d.listErr = ""
	d.lastErr = ""
	d.unlocking = make(map[string]bool)
	d.filter = ""
	d.gen++
}

// =============================================================================
// PATIENT ROSTER
// =============================================================================

// Roster holds the patient list backing the record create form.
type Roster struct {
	patients []api.User
	loading  bool
	err      string
	gen      uint64
}

// NewRoster creates an empty roster.
func NewRoster() *Roster { return &Roster{} }

// Patients returns the fetched patients.
func (r *Roster) Patients() []api.User { return r.patients }

// Loading reports whether a fetch is in flight.
func (r *Roster) Loading() bool { return r.loading }

// Error returns the last fetch failure, or "".
func (r *Roster) Error() string { return r.err }

// BeginLoad marks a fetch as in flight.
func (r *Roster) BeginLoad() uint64 {
	r.loading = true
	r.err = ""
	return r.gen
}

// HandleList installs a fetched patient list, dropping stale results.
func (r *Roster) HandleList(gen uint64, patients []api.User, err error) {
	if gen != r.gen {
		return
	}
	r.loading = false
	if err != nil {
		r.err = api.UserMessage(err)
		return
	}
	r.patients = patients
	r.err = ""
}

// Reset drops the roster and invalidates outstanding fetches.
func (r *Roster) Reset() {
	r.patients = nil
	r.loading = false
	r.err = ""
	r.gen++
}
