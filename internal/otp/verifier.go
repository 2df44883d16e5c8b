// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package otp implements the second-factor verification state machine.
//
// The machine is pure: ticks, digit entry and request outcomes arrive
// as method calls, rendering and networking live elsewhere. States:
//
//	Collecting -> AwaitingCode -> Verifying -> Authenticated
//	                  ^              |
//	                  +---- failed --+        (countdown keeps running)
//	AwaitingCode -> Expired                   (countdown reached zero)
//
// The countdown is local and non-authoritative; the server decides
// real code expiry. Local expiry only blocks new submissions - an
// in-flight verification still applies when its response arrives.
package otp

import (
	"strings"

	"github.com/morganforge/aegis-tui/internal/util"
)

// CodeLength is the number of digits in a one-time code.
const CodeLength = 6

// DefaultTTLSeconds is the local countdown for a pending code.
const DefaultTTLSeconds = 120

// =============================================================================
// STATES
// =============================================================================

// State is the verifier's phase.
type State int

const (
	// StateCollecting: no second factor pending; the login form owns
	// the screen.
	StateCollecting State = iota

	// StateAwaitingCode: first factor succeeded, a code is pending and
	// the countdown is running.
	StateAwaitingCode

	// StateVerifying: a code is in flight to the server.
	StateVerifying

	// StateAuthenticated: the server accepted a code. Terminal; the
	// pending second factor is destroyed.
	StateAuthenticated

	// StateExpired: the local countdown reached zero with no accepted
	// code. Submission is disabled; the user restarts from the login
	// form.
	StateExpired
)

// String returns the state name for logs and test output.
func (s State) String() string {
	switch s {
	case StateCollecting:
		return "collecting-credentials"
	case StateAwaitingCode:
		return "awaiting-code"
	case StateVerifying:
		return "verifying"
	case StateAuthenticated:
		return "authenticated"
	case StateExpired:
		return "expired"
	}
	return "unknown"
}

// =============================================================================
// VERIFIER
// =============================================================================

// Verifier tracks one pending second factor. Not safe for concurrent
// use; it lives on the single UI event loop.
type Verifier struct {
	state     State
	username  string
	remaining int // seconds left on the local countdown
	ttl       int

	digits []rune
	cursor int

	lastError string
}

// NewVerifier creates a verifier in the collecting state. ttlSeconds
// zero or negative falls back to the default.
func NewVerifier(ttlSeconds int) *Verifier {
	if ttlSeconds <= 0 {
		ttlSeconds = DefaultTTLSeconds
	}
	return &Verifier{
		state:  StateCollecting,
		ttl:    ttlSeconds,
		digits: make([]rune, 0, CodeLength),
	}
}

// State returns the current phase.
func (v *Verifier) State() State { return v.state }

// Username returns the pending username, if any.
func (v *Verifier) Username() string { return v.username }

// Remaining returns the seconds left on the countdown.
func (v *Verifier) Remaining() int { return v.remaining }

// LastError returns the most recent error to surface inline.
func (v *Verifier) LastError() string { return v.lastError }

// Code returns the digits entered so far.
func (v *Verifier) Code() string { return string(v.digits) }

// Digit returns the digit at cell i as a display string, or "".
func (v *Verifier) Digit(i int) string {
	if i < len(v.digits) {
		return string(v.digits[i])
	}
	return ""
}

// Cursor returns the active cell index.
func (v *Verifier) Cursor() int { return v.cursor }

// Complete reports whether all cells are filled.
func (v *Verifier) Complete() bool { return len(v.digits) == CodeLength }

// CanSubmit reports whether a submission is currently allowed.
func (v *Verifier) CanSubmit() bool {
	return v.state == StateAwaitingCode && v.remaining > 0
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// Begin starts the awaiting-code phase for a username whose first
// factor succeeded. Resets any previous pending factor.
func (v *Verifier) Begin(username string) {
	v.state = StateAwaitingCode
	v.username = username
	v.remaining = v.ttl
	v.digits = v.digits[:0]
	v.cursor = 0
	v.lastError = ""
}

// Reset destroys the pending second factor and returns to collecting.
func (v *Verifier) Reset() {
	v.state = StateCollecting
	v.username = ""
	v.remaining = 0
	v.digits = v.digits[:0]
	v.cursor = 0
	v.lastError = ""
}

// Tick advances the countdown by one second. Reaching zero while
// awaiting a code expires the factor. A tick during verification only
// burns the countdown; the in-flight request is not cancelled and its
// outcome still applies.
func (v *Verifier) Tick() {
	switch v.state {
	case StateAwaitingCode:
		if v.remaining > 0 {
			v.remaining--
		}
		if v.remaining == 0 {
			v.state = StateExpired
			v.digits = v.digits[:0]
			v.cursor = 0
		}
	case StateVerifying:
		if v.remaining > 0 {
			v.remaining--
		}
	}
}

// EnterDigit appends one digit. Non-digits and extra input are ignored.
func (v *Verifier) EnterDigit(r rune) {
	if v.state != StateAwaitingCode {
		return
	}
	if r < '0' || r > '9' || len(v.digits) >= CodeLength {
		return
	}
	v.digits = append(v.digits, r)
	if v.cursor < CodeLength-1 {
		v.cursor++
	}
}

// Backspace removes the last digit.
func (v *Verifier) Backspace() {
	if v.state != StateAwaitingCode || len(v.digits) == 0 {
		return
	}
	v.digits = v.digits[:len(v.digits)-1]
	v.cursor = len(v.digits)
	if v.cursor > CodeLength-1 {
		v.cursor = CodeLength - 1
	}
}

// Paste fills the cells from pasted text. Only a full-length all-digit
// paste is accepted, and it populates the fields without submitting;
// submission stays an explicit action.
func (v *Verifier) Paste(text string) {
	if v.state != StateAwaitingCode {
		return
	}
	text = strings.TrimSpace(text)
	if len(text) != CodeLength || !util.DigitsOnly(text) {
		return
	}
	v.digits = []rune(text)
	v.cursor = CodeLength - 1
}

// Submit attempts to move to verifying. An incomplete code is rejected
// locally with no network traffic; an expired countdown disables
// submission entirely.
func (v *Verifier) Submit() bool {
	if v.state == StateExpired {
		v.lastError = "Code expired. Please sign in again."
		return false
	}
	if !v.CanSubmit() {
		return false
	}
	if !v.Complete() {
		v.lastError = "Please enter all 6 digits"
		return false
	}
	v.state = StateVerifying
	v.lastError = ""
	return true
}

// HandleSuccess records a server-accepted code. The pending factor is
// destroyed. Applies even if the local countdown ran out while the
// request was in flight; the server is authoritative.
func (v *Verifier) HandleSuccess() {
	if v.state != StateVerifying {
		return
	}
	v.state = StateAuthenticated
	v.digits = v.digits[:0]
	v.lastError = ""
}

// HandleFailure records a server rejection. The entered code is
// cleared, the error is surfaced, and the countdown keeps whatever
// time it had - a failed attempt does not reset the clock. If the
// countdown ran out during the attempt, the factor expires now.
func (v *Verifier) HandleFailure(message string) {
	if v.state != StateVerifying {
		return
	}
	v.digits = v.digits[:0]
	v.cursor = 0
	v.lastError = message
	if v.remaining == 0 {
		v.state = StateExpired
		return
	}
	v.state = StateAwaitingCode
}
