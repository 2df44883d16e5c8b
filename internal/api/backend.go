// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import "context"

// Backend is the portal surface the client consumes, one method per
// endpoint. Methods taking a token perform an authenticated request;
// an empty token sends the request unauthenticated (authorization is
// the server's decision, not this interface's).
type Backend interface {
	// Login performs the first authentication factor.
	Login(ctx context.Context, username, password string) (*LoginResult, error)

	// VerifyOTP exchanges a pending username and one-time code for a session.
	VerifyOTP(ctx context.Context, username, code string) (*AuthResult, error)

	// Me resolves a session token into the identity it belongs to.
	Me(ctx context.Context, token string) (*User, error)

	// Register creates an account and returns the verification token.
	// Real deployments deliver the token out of band; it is returned
	// here because the reference backend surfaces it for development.
	Register(ctx context.Context, req RegisterRequest) (string, error)

	// VerifyRegistration activates a registered account.
	VerifyRegistration(ctx context.Context, username, token string) error

	// ListRecords returns the records visible to the token's identity.
	// Visibility is enforced server-side; the client renders exactly
	// what it is given.
	ListRecords(ctx context.Context, token string) ([]Record, error)

	// CreateRecord submits plaintext for server-side encryption/signing.
	CreateRecord(ctx context.Context, token string, req CreateRecordRequest) error

	// DecryptRecord asks the server to decrypt and verify one record.
	DecryptRecord(ctx context.Context, token, recordID string) (*DecryptResult, error)

	// ListPatients returns the patient roster (doctor/admin).
	ListPatients(ctx context.Context, token string) ([]User, error)

	// ListUsers returns all accounts (admin).
	ListUsers(ctx context.Context, token string) ([]User, error)

	// UnlockUser clears a lockout on an account (admin).
	UnlockUser(ctx context.Context, token, userID string) (string, error)
}
