// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/morganforge/aegis-tui/internal/api"
	"github.com/morganforge/aegis-tui/internal/ui/styles"
	"github.com/morganforge/aegis-tui/internal/util"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// Shortcut is one key hint in the status bar.
type Shortcut struct {
	Key  string
	Desc string
}

// StatusBar renders the identity segment and the active key hints.
type StatusBar struct {
	theme *styles.Theme
	width int
}

// NewStatusBar creates a status bar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{theme: theme, width: 80}
}

// SetWidth updates the bar width.
func (s *StatusBar) SetWidth(width int) { s.width = width }

// View renders identity on the left and shortcuts on the right,
// truncated to fit.
func (s *StatusBar) View(identity *api.User, shortcuts []Shortcut) string {
	left := "not signed in"
	if identity != nil {
		left = identity.Username + " (" + identity.Role + ")"
	}
	left = util.TruncateWidth(left, s.width/3)

	var parts []string
	for _, sc := range shortcuts {
		parts = append(parts,
			s.theme.ShortcutKey.Render(sc.Key)+" "+s.theme.ShortcutDesc.Render(sc.Desc))
	}
	right := strings.Join(parts, "  ")

	gap := s.width - runewidth.StringWidth(left) - visibleWidth(right) - 2
	if gap < 1 {
		gap = 1
	}
	return s.theme.StatusBar.Render(left + strings.Repeat(" ", gap) + right)
}

// visibleWidth measures rendered text, skipping ANSI escape sequences.
func visibleWidth(s string) int {
	width := 0
	inEscape := false
	for _, r := range s {
		switch {
		case inEscape:
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEscape = false
			}
		case r == '\x1b':
			inEscape = true
		default:
			width += runewidth.RuneWidth(r)
		}
	}
	return width
}
