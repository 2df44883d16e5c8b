// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package records

import (
	"testing"

	"github.com/morganforge/aegis-tui/internal/api"
)

func sampleRecords() []api.Record {
	return []api.Record{
		{ID: "r1", Title: "Blood Panel", Category: api.CategoryLabResult},
		{ID: "r2", Title: "MRI Scan", Category: api.CategoryImaging},
		{ID: "r3", Title: "Prescription", Category: api.CategoryPrescription},
	}
}

func loadedController(t *testing.T) *Controller {
	t.Helper()
	c := NewController()
	gen := c.BeginLoad()
	c.HandleList(gen, sampleRecords(), nil)
	if len(c.Records()) != 3 {
		t.Fatalf("records = %d, want 3", len(c.Records()))
	}
	return c
}

func TestDecrypt_HappyPath(t *testing.T) {
	c := loadedController(t)

	gen, ok := c.BeginDecrypt("r1")
	if !ok {
		t.Fatal("BeginDecrypt rejected a locked record")
	}
	if c.State("r1") != StateDecrypting {
		t.Fatalf("state = %v, want decrypting", c.State("r1"))
	}

	c.HandleDecrypt("r1", gen, &api.DecryptResult{
		Data:           api.RecordData{Content: "Hemoglobin normal."},
		SignatureValid: true,
	}, nil)

	if c.State("r1") != StateOpen {
		t.Fatalf("state = %v, want open", c.State("r1"))
	}
	view, ok := c.View("r1")
	if !ok {
		t.Fatal("no view for open record")
	}
	if view.Data.Content != "Hemoglobin normal." || !view.SignatureValid {
		t.Errorf("view = %+v", view)
	}
}

func TestDecrypt_DuplicateRequestIgnored(t *testing.T) {
	c := loadedController(t)

	if _, ok := c.BeginDecrypt("r1"); !ok {
		t.Fatal("first BeginDecrypt failed")
	}
	if _, ok := c.BeginDecrypt("r1"); ok {
		t.Error("second BeginDecrypt issued while one is in flight")
	}
	if c.State("r1") != StateDecrypting {
		t.Errorf("state = %v", c.State("r1"))
	}
}

func TestDecrypt_RecordsAreIndependent(t *testing.T) {
	c := loadedController(t)

	g1, _ := c.BeginDecrypt("r1")
	g2, _ := c.BeginDecrypt("r2")

	// r2 fails, r1 succeeds. Neither outcome leaks onto the other.
	c.HandleDecrypt("r2", g2, nil, &api.APIError{Status: 403, Message: "Not your record"})
	c.HandleDecrypt("r1", g1, &api.DecryptResult{SignatureValid: true}, nil)

	if c.State("r1") != StateOpen {
		t.Errorf("r1 state = %v, want open", c.State("r1"))
	}
	if c.State("r2") != StateLocked {
		t.Errorf("r2 state = %v, want locked after failure", c.State("r2"))
	}
	if c.DecryptError("r2") != "Not your record" {
		t.Errorf("r2 error = %q", c.DecryptError("r2"))
	}
	if c.DecryptError("r1") != "" {
		t.Errorf("r1 error = %q, failure leaked across records", c.DecryptError("r1"))
	}
	if c.State("r3") != StateLocked {
		t.Errorf("untouched r3 state = %v", c.State("r3"))
	}
}

func TestDecrypt_FailureAllowsRetry(t *testing.T) {
	c := loadedController(t)

	gen, _ := c.BeginDecrypt("r1")
	c.HandleDecrypt("r1", gen, nil, api.ErrUnavailable)
	if c.State("r1") != StateLocked {
		t.Fatalf("state = %v, want locked", c.State("r1"))
	}

	if _, ok := c.BeginDecrypt("r1"); !ok {
		t.Error("retry blocked after failure")
	}
}

func TestDecrypt_InvalidSignatureStillOpens(t *testing.T) {
	// A failed signature check is a trust verdict, not an error: the
	// plaintext renders, flagged.
	c := loadedController(t)

	gen, _ := c.BeginDecrypt("r2")
	c.HandleDecrypt("r2", gen, &api.DecryptResult{
		Data:           api.RecordData{Content: "MRI notes."},
		SignatureValid: false,
	}, nil)

	if c.State("r2") != StateOpen {
		t.Fatalf("state = %v, want open", c.State("r2"))
	}
	view, _ := c.View("r2")
	if view.SignatureValid {
		t.Error("signature verdict not carried verbatim")
	}
	if view.Data.Content != "MRI notes." {
		t.Error("plaintext withheld on invalid signature")
	}
}

func TestDecrypt_StaleResultDiscarded(t *testing.T) {
	c := loadedController(t)

	gen, _ := c.BeginDecrypt("r1")
	c.Reset()

	// The old response lands after a reset. It must not resurrect state.
	c.HandleDecrypt("r1", gen, &api.DecryptResult{
		Data:           api.RecordData{Content: "stale plaintext"},
		SignatureValid: true,
	}, nil)

	if c.State("r1") != StateLocked {
		t.Errorf("state = %v, stale decrypt applied after reset", c.State("r1"))
	}
	if _, ok := c.View("r1"); ok {
		t.Error("stale plaintext retained after reset")
	}
}

func TestList_StaleResultDiscarded(t *testing.T) {
	c := NewController()
	gen := c.BeginLoad()
	c.Reset()

	c.HandleList(gen, sampleRecords(), nil)
	if len(c.Records()) != 0 {
		t.Error("stale list applied after reset")
	}
	if c.Loading() {
		t.Error("loading flag stuck after reset")
	}
}

func TestList_ReloadKeepsOpenRecords(t *testing.T) {
	c := loadedController(t)

	gen, _ := c.BeginDecrypt("r1")
	c.HandleDecrypt("r1", gen, &api.DecryptResult{SignatureValid: true}, nil)

	// Refresh returns r1 and r2 only; r3 was deleted server-side.
	lg := c.BeginLoad()
	c.HandleList(lg, sampleRecords()[:2], nil)

	if c.State("r1") != StateOpen {
		t.Error("reload re-locked an open record")
	}
	if len(c.Records()) != 2 {
		t.Errorf("records = %d, want 2", len(c.Records()))
	}
	if c.State("r3") != StateLocked {
		t.Error("slot for removed record survived reload")
	}
}

func TestList_ErrorSurfaced(t *testing.T) {
	c := NewController()
	gen := c.BeginLoad()
	c.HandleList(gen, nil, &api.APIError{Status: 500, Message: "Failed to fetch records"})

	if c.Loading() {
		t.Error("loading flag stuck after error")
	}
	if c.ListError() != "Failed to fetch records" {
		t.Errorf("ListError() = %q", c.ListError())
	}
}

func TestClose_DropsPlaintext(t *testing.T) {
	c := loadedController(t)
	gen, _ := c.BeginDecrypt("r1")
	c.HandleDecrypt("r1", gen, &api.DecryptResult{
		Data: api.RecordData{Content: "secret"},
	}, nil)

	c.Close("r1")
	if c.State("r1") != StateLocked {
		t.Fatalf("state = %v, want locked", c.State("r1"))
	}
	if _, ok := c.View("r1"); ok {
		t.Error("plaintext survived Close")
	}

	// Re-viewing takes a fresh decrypt.
	if _, ok := c.BeginDecrypt("r1"); !ok {
		t.Error("re-decrypt blocked after Close")
	}
}

func TestCanCreate(t *testing.T) {
	tests := []struct {
		identity *api.User
		want     bool
	}{
		{nil, false},
		{&api.User{Role: "patient"}, false},
		{&api.User{Role: "doctor"}, true},
		{&api.User{Role: "admin"}, true},
		{&api.User{Role: "superuser"}, false},
	}
	for _, tc := range tests {
		if got := CanCreate(tc.identity); got != tc.want {
			t.Errorf("CanCreate(%+v) = %v, want %v", tc.identity, got, tc.want)
		}
	}
}
