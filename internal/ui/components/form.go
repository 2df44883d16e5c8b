// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/aegis-tui/internal/ui/styles"
)

// =============================================================================
// FORM COMPONENT - labeled text fields with focus cycling
// =============================================================================

// Field is one labeled input in a form.
type Field struct {
	Label string
	Input textinput.Model
}

// NewField creates a labeled text field.
func NewField(label, placeholder string, secret bool) Field {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = 128
	in.Width = 32
	if secret {
		in.EchoMode = textinput.EchoPassword
		in.EchoCharacter = '•'
	}
	return Field{Label: label, Input: in}
}

// Form is a vertical stack of fields with a single focus.
type Form struct {
	theme  *styles.Theme
	fields []Field
	focus  int
}

// NewForm creates a form and focuses its first field.
func NewForm(theme *styles.Theme, fields ...Field) *Form {
	f := &Form{theme: theme, fields: fields}
	if len(f.fields) > 0 {
		f.fields[0].Input.Focus()
	}
	return f
}

// Value returns the trimmed value of field i.
func (f *Form) Value(i int) string {
	if i < 0 || i >= len(f.fields) {
		return ""
	}
	return strings.TrimSpace(f.fields[i].Input.Value())
}

// SetValue replaces the value of field i.
func (f *Form) SetValue(i int, value string) {
	if i >= 0 && i < len(f.fields) {
		f.fields[i].Input.SetValue(value)
	}
}

// Focused returns the index of the focused field.
func (f *Form) Focused() int { return f.focus }

// OnLastField reports whether focus is on the final field.
func (f *Form) OnLastField() bool { return f.focus == len(f.fields)-1 }

// Next moves focus to the following field, wrapping around.
func (f *Form) Next() {
	f.setFocus((f.focus + 1) % len(f.fields))
}

// Prev moves focus to the preceding field, wrapping around.
func (f *Form) Prev() {
	f.setFocus((f.focus - 1 + len(f.fields)) % len(f.fields))
}

func (f *Form) setFocus(i int) {
	f.fields[f.focus].Input.Blur()
	f.focus = i
	f.fields[f.focus].Input.Focus()
}

// Reset clears every field and returns focus to the first.
func (f *Form) Reset() {
	for i := range f.fields {
		f.fields[i].Input.SetValue("")
		f.fields[i].Input.Blur()
	}
	f.focus = 0
	if len(f.fields) > 0 {
		f.fields[0].Input.Focus()
	}
}

// Update routes a message to the focused field.
func (f *Form) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.fields[f.focus].Input, cmd = f.fields[f.focus].Input.Update(msg)
	return cmd
}

// View renders the labeled fields.
func (f *Form) View() string {
	var b strings.Builder
	for i, field := range f.fields {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(f.theme.FormLabel.Render(field.Label))
		b.WriteString("\n")
		b.WriteString(field.Input.View())
		b.WriteString("\n")
	}
	return b.String()
}
