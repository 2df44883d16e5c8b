// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// demoLogin runs the full two-factor flow against the demo backend and
// returns the session token.
func demoLogin(t *testing.T, d *Demo, username, password string) *AuthResult {
	t.Helper()

	var sink bytes.Buffer
	d.OTPSink = &sink

	res, err := d.Login(context.Background(), username, password)
	require.NoError(t, err)
	require.True(t, res.RequiresOTP, "demo backend always requires the second factor")

	code := lastOTPCode(t, sink.String())
	auth, err := d.VerifyOTP(context.Background(), username, code)
	require.NoError(t, err)
	require.NotEmpty(t, auth.Token)
	return auth
}

func lastOTPCode(t *testing.T, sink string) string {
	t.Helper()
	lines := strings.Fields(strings.TrimSpace(sink))
	require.NotEmpty(t, lines, "no OTP was issued")
	return lines[len(lines)-1]
}

func TestDemo_TwoFactorLogin(t *testing.T) {
	d := NewDemo()
	auth := demoLogin(t, d, "alexj", "patient1234")
	require.Equal(t, "patient", auth.User.Role)

	me, err := d.Me(context.Background(), auth.Token)
	require.NoError(t, err)
	require.Equal(t, auth.User.ID, me.ID)
}

func TestDemo_WrongPassword(t *testing.T) {
	d := NewDemo()
	_, err := d.Login(context.Background(), "alexj", "nope")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 401, apiErr.Status)
}

func TestDemo_ThreeBadCodesLockAccount(t *testing.T) {
	d := NewDemo()
	var sink bytes.Buffer
	d.OTPSink = &sink

	_, err := d.Login(context.Background(), "alexj", "patient1234")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = d.VerifyOTP(context.Background(), "alexj", "000000")
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, 401, apiErr.Status)
	}

	// Third failure locks.
	_, err = d.VerifyOTP(context.Background(), "alexj", "000000")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 403, apiErr.Status)

	// Locked account cannot log in at all.
	_, err = d.Login(context.Background(), "alexj", "patient1234")
	require.ErrorIs(t, err, ErrForbidden)

	// Admin unlocks; login works again.
	admin := demoLogin(t, d, "admin", "admin1234")
	users, err := d.ListUsers(context.Background(), admin.Token)
	require.NoError(t, err)
	var alexID string
	for _, u := range users {
		if u.Username == "alexj" {
			require.True(t, u.Locked)
			alexID = u.ID
		}
	}
	require.NotEmpty(t, alexID)

	msg, err := d.UnlockUser(context.Background(), admin.Token, alexID)
	require.NoError(t, err)
	require.Equal(t, "User unlocked", msg)

	demoLogin(t, d, "alexj", "patient1234")
}

func TestDemo_RecordVisibilityScoped(t *testing.T) {
	d := NewDemo()

	patient := demoLogin(t, d, "alexj", "patient1234")
	doctor := demoLogin(t, d, "drwilliams", "doctor1234")

	patientRecords, err := d.ListRecords(context.Background(), patient.Token)
	require.NoError(t, err)
	for _, r := range patientRecords {
		require.Equal(t, patient.User.ID, r.Patient.ID, "patient must only see own records")
		require.True(t, r.Encrypted)
		require.Equal(t, "***ENCRYPTED***", r.Ciphertext)
	}

	doctorRecords, err := d.ListRecords(context.Background(), doctor.Token)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(doctorRecords), len(patientRecords))
}

func TestDemo_DecryptAndTamperedSignature(t *testing.T) {
	d := NewDemo()
	doctor := demoLogin(t, d, "drwilliams", "doctor1234")

	records, err := d.ListRecords(context.Background(), doctor.Token)
	require.NoError(t, err)

	valid := 0
	invalid := 0
	for _, r := range records {
		res, err := d.DecryptRecord(context.Background(), doctor.Token, r.ID)
		require.NoError(t, err, "tampered records still decrypt; trust arrives as a flag")
		require.NotEmpty(t, res.Data.Content)
		if res.SignatureValid {
			valid++
		} else {
			invalid++
		}
	}
	require.NotZero(t, valid)
	require.NotZero(t, invalid, "seed data must include a signature-invalid record")
}

func TestDemo_CreateRecord_RoleEnforced(t *testing.T) {
	d := NewDemo()
	patient := demoLogin(t, d, "alexj", "patient1234")
	doctor := demoLogin(t, d, "drwilliams", "doctor1234")

	req := CreateRecordRequest{
		PatientID: patient.User.ID,
		Title:     "Follow-up Notes",
		Category:  CategoryNotes,
		Data:      RecordData{Content: "Recovery on track.", CreatedBy: "drwilliams"},
	}

	err := d.CreateRecord(context.Background(), patient.Token, req)
	require.ErrorIs(t, err, ErrForbidden, "patients must not create records")

	require.NoError(t, d.CreateRecord(context.Background(), doctor.Token, req))

	// New record appears on a subsequent listing.
	records, err := d.ListRecords(context.Background(), patient.Token)
	require.NoError(t, err)
	found := false
	for _, r := range records {
		if r.Title == "Follow-up Notes" {
			found = true
		}
	}
	require.True(t, found)
}

func TestDemo_Registration(t *testing.T) {
	d := NewDemo()

	token, err := d.Register(context.Background(), RegisterRequest{
		Username: "newpatient",
		Email:    "new@aegis.med",
		Password: "secret123",
		Role:     "patient",
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// Unverified accounts cannot log in.
	_, err = d.Login(context.Background(), "newpatient", "secret123")
	require.ErrorIs(t, err, ErrForbidden)

	require.Error(t, d.VerifyRegistration(context.Background(), "newpatient", "wrong-token"))
	require.NoError(t, d.VerifyRegistration(context.Background(), "newpatient", token))

	demoLogin(t, d, "newpatient", "secret123")
}

func TestDemo_DirectoryRoleGates(t *testing.T) {
	d := NewDemo()
	patient := demoLogin(t, d, "alexj", "patient1234")
	doctor := demoLogin(t, d, "drwilliams", "doctor1234")

	_, err := d.ListUsers(context.Background(), doctor.Token)
	require.ErrorIs(t, err, ErrForbidden, "directory is admin-only")

	_, err = d.ListPatients(context.Background(), patient.Token)
	require.ErrorIs(t, err, ErrForbidden)

	patients, err := d.ListPatients(context.Background(), doctor.Token)
	require.NoError(t, err)
	for _, p := range patients {
		require.Equal(t, "patient", p.Role)
	}
}

func TestDemo_InvalidToken(t *testing.T) {
	d := NewDemo()
	_, err := d.ListRecords(context.Background(), "bogus")
	require.True(t, errors.Is(err, ErrUnauthorized))
}
