// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the aegis TUI.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/morganforge/aegis-tui/internal/otp"
	"github.com/morganforge/aegis-tui/internal/ui/styles"
)

// =============================================================================
// OTP INPUT COMPONENT - six-cell one-time code entry
// =============================================================================

// lowCountdownThreshold is where the countdown switches to the warning
// style, in seconds.
const lowCountdownThreshold = 15

// OTPInput renders the verifier's digit cells and countdown. All state
// lives in the verifier; this component only draws it.
type OTPInput struct {
	theme *styles.Theme
}

// NewOTPInput creates an OTP input renderer.
func NewOTPInput(theme *styles.Theme) *OTPInput {
	return &OTPInput{theme: theme}
}

// View renders the cell row, countdown and any inline error.
func (o *OTPInput) View(v *otp.Verifier) string {
	var cells []string
	for i := 0; i < otp.CodeLength; i++ {
		digit := v.Digit(i)
		if digit == "" {
			digit = " "
		}
		style := o.theme.OTPCell
		if i == v.Cursor() && v.State() == otp.StateAwaitingCode {
			style = o.theme.OTPCellActive
		}
		cells = append(cells, style.Render(digit))
	}
	row := lipgloss.JoinHorizontal(lipgloss.Center, cells...)

	var b strings.Builder
	b.WriteString(row)
	b.WriteString("\n")
	b.WriteString(o.countdown(v))

	if v.State() == otp.StateVerifying {
		b.WriteString("\n")
		b.WriteString(o.theme.FormHint.Render("Verifying..."))
	}
	if msg := v.LastError(); msg != "" {
		b.WriteString("\n")
		b.WriteString(o.theme.FormError.Render(msg))
	}
	return b.String()
}

// countdown renders the remaining time, switching to the warning style
// when the clock runs low.
func (o *OTPInput) countdown(v *otp.Verifier) string {
	if v.State() == otp.StateExpired {
		return o.theme.FormError.Render("Code expired")
	}
	remaining := v.Remaining()
	text := fmt.Sprintf("Code expires in %d:%02d", remaining/60, remaining%60)
	if remaining <= lowCountdownThreshold {
		return o.theme.OTPCountdownLow.Render(text)
	}
	return o.theme.OTPCountdown.Render(text)
}
