// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import "time"

// =============================================================================
// RECORD CATEGORIES
// =============================================================================

// Record categories as the portal stores them.
const (
	CategoryDiagnosis    = "diagnosis"
	CategoryPrescription = "prescription"
	CategoryLabResult    = "lab-result"
	CategoryImaging      = "imaging"
	CategoryNotes        = "notes"
)

// Categories lists all valid record categories in display order.
var Categories = []string{
	CategoryDiagnosis,
	CategoryPrescription,
	CategoryLabResult,
	CategoryImaging,
	CategoryNotes,
}

// ValidCategory reports whether c is a known record category.
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// User is an account as the portal returns it. Account attributes are
// read-only to the client; verification and unlock happen server-side.
type User struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"` // "admin", "doctor", or "patient"
	Verified bool   `json:"isVerified"`
	Locked   bool   `json:"isLocked"`
}

// UserRef is the abbreviated user the portal embeds in record listings.
type UserRef struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
}

// Record is one at-rest-encrypted medical record. The client never sees
// plaintext here; Ciphertext, IV and Signature are opaque and only the
// decrypt endpoint can open them.
type Record struct {
	ID         string    `json:"_id"`
	Title      string    `json:"title"`
	Category   string    `json:"category"`
	Patient    UserRef   `json:"patientId"`
	Doctor     UserRef   `json:"doctorId"`
	CreatedAt  time.Time `json:"createdAt"`
	Ciphertext string    `json:"encryptedData"`
	IV         string    `json:"iv"`
	Signature  string    `json:"digitalSignature"`
	Encrypted  bool      `json:"isEncrypted"`
}

// RecordData is the decrypted payload of a record.
type RecordData struct {
	Content   string `json:"content"`
	CreatedBy string `json:"createdBy"`
	Timestamp string `json:"timestamp,omitempty"`
}

// =============================================================================
// REQUEST / RESPONSE SHAPES
// =============================================================================

// LoginResult is the outcome of a first-factor login. Either RequiresOTP
// is true and the caller proceeds to the second factor, or Token and
// User carry a complete session.
type LoginResult struct {
	RequiresOTP bool   `json:"requiresOTP"`
	Token       string `json:"token"`
	User        *User  `json:"user"`
}

// AuthResult is a completed authentication: a session token plus the
// identity it belongs to.
type AuthResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// CreateRecordRequest submits plaintext for server-side encryption and
// signing. The client never encrypts.
type CreateRecordRequest struct {
	PatientID string     `json:"patientId"`
	Title     string     `json:"title"`
	Category  string     `json:"category"`
	Data      RecordData `json:"data"`
}

// DecryptResult is the server's answer to a decrypt request.
// SignatureValid is a trust signal, not an error: the request succeeded
// either way, and false must be surfaced, never suppressed.
type DecryptResult struct {
	Data           RecordData `json:"data"`
	SignatureValid bool       `json:"signatureValid"`
}
