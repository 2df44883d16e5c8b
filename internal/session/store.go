// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the authenticated session: the token, the
// identity it resolves to, and the pending/anonymous/authenticated
// state machine.
//
// The Store is the single owner of the persisted token. All mutation
// funnels through Bootstrap, Login and Logout; no other component
// writes session state.
package session

import (
	"context"
	"sync"

	"github.com/morganforge/aegis-tui/internal/api"
)

// =============================================================================
// SESSION STATE
// =============================================================================

// State is the session lifecycle state.
type State int

const (
	// StatePending means a persisted token is being resolved. Protected
	// views block on a loading state instead of redirecting, so a valid
	// session never flashes through the login view.
	StatePending State = iota

	// StateAnonymous means there is no session. Protected views redirect
	// to login.
	StateAnonymous

	// StateAuthenticated means the token resolved to an identity.
	// Invariant: identity is non-nil and the token is non-empty.
	StateAuthenticated
)

// String returns the state name for logs and test output.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	}
	return "unknown"
}

// =============================================================================
// STORE
// =============================================================================

// Store is the single source of truth for "who is logged in".
type Store struct {
	mu       sync.RWMutex
	state    State
	token    string
	identity *api.User

	tokens  TokenStore
	backend api.Backend
}

// NewStore creates a session store. The store starts in StatePending;
// Bootstrap resolves it to anonymous or authenticated.
func NewStore(backend api.Backend, tokens TokenStore) *Store {
	return &Store{
		state:   StatePending,
		tokens:  tokens,
		backend: backend,
	}
}

// State returns the current lifecycle state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Identity returns the authenticated identity, or nil.
func (s *Store) Identity() *api.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// Token returns the current bearer token. Empty when anonymous.
// Callers needing an authenticated identity must check State first;
// requests with an empty token are simply sent unauthenticated.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Backend returns the portal backend the session talks to.
func (s *Store) Backend() api.Backend {
	return s.backend
}

// =============================================================================
// LIFECYCLE OPERATIONS
// =============================================================================

// Bootstrap resolves a previously persisted token into an identity.
// Every failure mode (no token, unreadable store, network error,
// rejection) lands in StateAnonymous with the persisted token cleared;
// a failed bootstrap is "no session", never a fatal error.
func (s *Store) Bootstrap(ctx context.Context) State {
	token, err := s.tokens.Load()
	if err != nil || token == "" {
		s.toAnonymous()
		return StateAnonymous
	}

	identity, err := s.backend.Me(ctx, token)
	if err != nil {
		// Invalid, expired, or unreachable: clear and start clean.
		_ = s.tokens.Clear()
		s.toAnonymous()
		return StateAnonymous
	}

	s.mu.Lock()
	s.state = StateAuthenticated
	s.token = token
	s.identity = identity
	s.mu.Unlock()
	return StateAuthenticated
}

// Login stores the token durably and marks the session authenticated.
// Idempotent: a second call simply replaces the session.
func (s *Store) Login(token string, identity api.User) error {
	err := s.tokens.Save(token)

	s.mu.Lock()
	s.state = StateAuthenticated
	s.token = token
	s.identity = &identity
	s.mu.Unlock()

	return err
}

// Logout clears the durable token and resets to anonymous. Safe to call
// when already anonymous. Session-scoped derived state (open decrypted
// views) is owned by its controllers; the UI resets those on the same
// event.
func (s *Store) Logout() error {
	err := s.tokens.Clear()
	s.toAnonymous()
	return err
}

func (s *Store) toAnonymous() {
	s.mu.Lock()
	s.state = StateAnonymous
	s.token = ""
	s.identity = nil
	s.mu.Unlock()
}

// Request runs fn with the current bearer token. The token may be
// empty; authorization is the server's call. The store never
// auto-logs-out on a failed request - the caller that discovers a
// stale token triggers Logout, keeping transient network errors from
// killing the session.
func (s *Store) Request(ctx context.Context, fn func(ctx context.Context, token string) error) error {
	return fn(ctx, s.Token())
}
