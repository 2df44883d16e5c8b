// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"

	"github.com/morganforge/aegis-tui/internal/api"
	"github.com/morganforge/aegis-tui/internal/otp"
	"github.com/morganforge/aegis-tui/internal/ui/styles"
)

func TestOTPInput_View(t *testing.T) {
	theme := styles.NewTheme()
	in := NewOTPInput(theme)

	v := otp.NewVerifier(120)
	v.Begin("alexj")
	v.EnterDigit('1')
	v.EnterDigit('2')

	out := in.View(v)
	if !strings.Contains(out, "1") || !strings.Contains(out, "2") {
		t.Error("entered digits not rendered")
	}
	if !strings.Contains(out, "2:00") {
		t.Errorf("countdown not rendered: %q", out)
	}

	// Expired state renders the terminal message, not a countdown.
	for i := 0; i < 120; i++ {
		v.Tick()
	}
	out = in.View(v)
	if !strings.Contains(out, "expired") {
		t.Error("expiry not rendered")
	}
}

func TestForm_FocusCycling(t *testing.T) {
	theme := styles.NewTheme()
	f := NewForm(theme,
		NewField("Username", "username", false),
		NewField("Password", "password", true),
	)

	if f.Focused() != 0 {
		t.Fatalf("initial focus = %d", f.Focused())
	}
	f.Next()
	if f.Focused() != 1 || !f.OnLastField() {
		t.Errorf("focus after Next = %d", f.Focused())
	}
	f.Next()
	if f.Focused() != 0 {
		t.Errorf("focus did not wrap: %d", f.Focused())
	}
	f.Prev()
	if f.Focused() != 1 {
		t.Errorf("focus after Prev = %d", f.Focused())
	}
}

func TestForm_ValuesAndReset(t *testing.T) {
	theme := styles.NewTheme()
	f := NewForm(theme, NewField("Username", "", false))
	f.SetValue(0, "  alexj  ")
	if f.Value(0) != "alexj" {
		t.Errorf("Value(0) = %q", f.Value(0))
	}
	if f.Value(7) != "" {
		t.Error("out-of-range value not empty")
	}

	f.Reset()
	if f.Value(0) != "" || f.Focused() != 0 {
		t.Error("Reset left state behind")
	}
}

func TestStatusBar_View(t *testing.T) {
	theme := styles.NewTheme()
	bar := NewStatusBar(theme)
	bar.SetWidth(100)

	out := bar.View(&api.User{Username: "drwilliams", Role: "doctor"}, []Shortcut{
		{Key: "q", Desc: "quit"},
		{Key: "tab", Desc: "next"},
	})
	if !strings.Contains(out, "drwilliams") || !strings.Contains(out, "doctor") {
		t.Error("identity segment missing")
	}
	if !strings.Contains(out, "quit") {
		t.Error("shortcut hints missing")
	}

	anon := bar.View(nil, nil)
	if !strings.Contains(anon, "not signed in") {
		t.Error("anonymous segment missing")
	}
}
