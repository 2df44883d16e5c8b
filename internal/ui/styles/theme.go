// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// APPLICATION CONTAINER STYLES
	// ==========================================================================

	App       lipgloss.Style
	Container lipgloss.Style

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// ==========================================================================
	// FORM STYLES
	// ==========================================================================

	FormBox      lipgloss.Style
	FormLabel    lipgloss.Style
	FormValue    lipgloss.Style
	FormHint     lipgloss.Style
	FormError    lipgloss.Style
	ButtonIdle   lipgloss.Style
	ButtonActive lipgloss.Style

	// ==========================================================================
	// OTP ENTRY STYLES
	// ==========================================================================

	OTPCell         lipgloss.Style
	OTPCellActive   lipgloss.Style
	OTPCountdown    lipgloss.Style
	OTPCountdownLow lipgloss.Style

	// ==========================================================================
	// RECORD LIST STYLES
	// ==========================================================================

	RecordRow         lipgloss.Style
	RecordRowSelected lipgloss.Style
	RecordTitle       lipgloss.Style
	RecordMeta        lipgloss.Style
	RecordLocked      lipgloss.Style
	RecordOpen        lipgloss.Style
	CategoryBadge     lipgloss.Style

	// ==========================================================================
	// SIGNATURE BANNER STYLES
	// ==========================================================================

	SignatureValid   lipgloss.Style
	SignatureInvalid lipgloss.Style

	// ==========================================================================
	// DIRECTORY STYLES
	// ==========================================================================

	UserRow         lipgloss.Style
	UserRowSelected lipgloss.Style
	UserLockedBadge lipgloss.Style
	RoleBadge       lipgloss.Style

	// ==========================================================================
	// STATUS BAR AND FEEDBACK STYLES
	// ==========================================================================

	StatusBar    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
	Spinner      lipgloss.Style
	ErrorBox     lipgloss.Style
	SuccessStyle lipgloss.Style
	WarningStyle lipgloss.Style
	InfoStyle    lipgloss.Style
}

// NewTheme creates a new theme with all styles configured.
func NewTheme() *Theme {
	colorProfile := termenv.ColorProfile()
	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}
	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	// App container
	t.App = lipgloss.NewStyle()
	t.Container = lipgloss.NewStyle().Padding(0, 1)

	// Header
	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Teal).
		Background(SurfaceDim).
		Padding(0, 2)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Teal)

	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	// Forms
	t.FormBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(1, 3)

	t.FormLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextSecondary)

	t.FormValue = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.FormHint = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.FormError = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	t.ButtonIdle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Padding(0, 3).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay)

	t.ButtonActive = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Teal).
		Bold(true).
		Padding(0, 3).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Teal)

	// OTP entry
	t.OTPCell = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Foreground(TextPrimary).
		Bold(true).
		Padding(0, 1)

	t.OTPCellActive = t.OTPCell.
		BorderForeground(Teal).
		Foreground(Teal)

	t.OTPCountdown = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.OTPCountdownLow = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)

	// Record list
	t.RecordRow = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Padding(0, 1)

	t.RecordRowSelected = lipgloss.NewStyle().
		Foreground(Teal).
		Bold(true).
		Padding(0, 1)

	t.RecordTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextPrimary)

	t.RecordMeta = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.RecordLocked = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.RecordOpen = lipgloss.NewStyle().
		Foreground(Emerald)

	t.CategoryBadge = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	// Signature banners
	t.SignatureValid = lipgloss.NewStyle().
		Foreground(Emerald).
		Background(EmeraldDeep).
		Bold(true).
		Padding(0, 1)

	t.SignatureInvalid = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Rose).
		Bold(true).
		Padding(0, 1)

	// Directory
	t.UserRow = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Padding(0, 1)

	t.UserRowSelected = lipgloss.NewStyle().
		Foreground(Teal).
		Bold(true).
		Padding(0, 1)

	t.UserLockedBadge = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)

	t.RoleBadge = lipgloss.NewStyle().
		Foreground(Cyan)

	// Status bar and feedback
	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)

	t.ShortcutKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Spinner = lipgloss.NewStyle().
		Foreground(Teal)

	t.ErrorBox = lipgloss.NewStyle().
		Foreground(Rose).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Rose).
		Padding(0, 2)

	t.SuccessStyle = lipgloss.NewStyle().Foreground(Emerald).Bold(true)
	t.WarningStyle = lipgloss.NewStyle().Foreground(Amber).Bold(true)
	t.InfoStyle = lipgloss.NewStyle().Foreground(Cyan)
}

// SetSize records the terminal dimensions for layout decisions.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}
