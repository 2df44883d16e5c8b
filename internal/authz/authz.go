// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package authz decides whether a protected view may render.
//
// The gate is a pure function over (session state, identity, required
// roles). It owns no state and performs no I/O, so it is tested as a
// decision table independent of any rendering.
package authz

import (
	"github.com/morganforge/aegis-tui/internal/api"
	"github.com/morganforge/aegis-tui/internal/session"
)

// =============================================================================
// ROLES
// =============================================================================

// Role is an account's authorization level.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// ParseRole maps a server role string onto a Role. Unknown strings
// return false; an unknown role authorizes nothing.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleDoctor, RolePatient:
		return Role(s), true
	}
	return "", false
}

// RoleSet is a set of roles permitted to reach a view or action.
// The empty set means any authenticated identity.
type RoleSet []Role

// Contains reports whether the set permits r. An empty set permits all.
func (rs RoleSet) Contains(r Role) bool {
	if len(rs) == 0 {
		return true
	}
	for _, allowed := range rs {
		if allowed == r {
			return true
		}
	}
	return false
}

// CanManageRecords reports whether the role may create records.
// Client-side defense in depth; the server check is authoritative.
func CanManageRecords(r Role) bool {
	return r == RoleDoctor || r == RoleAdmin
}

// =============================================================================
// GATE DECISIONS
// =============================================================================

// Decision is the gate's verdict for one navigation attempt.
type Decision int

const (
	// DecisionWait renders a neutral loading state: the session is
	// still resolving and redirecting now would flash valid sessions
	// through the login view.
	DecisionWait Decision = iota

	// DecisionRedirectLogin sends an anonymous visitor to the login view.
	DecisionRedirectLogin

	// DecisionRedirectHome sends an authenticated-but-unauthorized
	// identity to the default landing view. Never to login: the user
	// is logged in, just not allowed here.
	DecisionRedirectHome

	// DecisionAllow renders the requested view.
	DecisionAllow
)

// String returns the decision name for logs and test output.
func (d Decision) String() string {
	switch d {
	case DecisionWait:
		return "wait"
	case DecisionRedirectLogin:
		return "redirect-login"
	case DecisionRedirectHome:
		return "redirect-home"
	case DecisionAllow:
		return "allow"
	}
	return "unknown"
}

// Decide evaluates one navigation attempt. identity may be nil unless
// state is authenticated.
func Decide(state session.State, identity *api.User, required RoleSet) Decision {
	switch state {
	case session.StatePending:
		return DecisionWait
	case session.StateAnonymous:
		return DecisionRedirectLogin
	case session.StateAuthenticated:
		if identity == nil {
			// Cannot happen per the session store's invariant; treat a
			// broken session as anonymous rather than rendering.
			return DecisionRedirectLogin
		}
		role, ok := ParseRole(identity.Role)
		if !ok || !required.Contains(role) {
			return DecisionRedirectHome
		}
		return DecisionAllow
	}
	return DecisionRedirectLogin
}
