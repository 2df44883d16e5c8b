// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api defines the portal backend contract and its two
// implementations.
//
// The Backend interface mirrors the portal's HTTP surface one method
// per endpoint: first-factor login, OTP verification, identity
// resolution, registration, record listing/creation, the per-record
// decrypt-and-verify operation, and the admin user directory.
//
// Client talks to a real backend over HTTP. Demo is a self-contained
// in-memory backend with seeded fixtures for running the TUI without a
// server; it implements the same interface and is selected purely by
// configuration, never by special cases in calling code.
//
// Tokens are passed per call. The session store owns the token; this
// package never persists one.
package api
