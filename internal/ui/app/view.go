// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/morganforge/aegis-tui/internal/api"
	"github.com/morganforge/aegis-tui/internal/authz"
	"github.com/morganforge/aegis-tui/internal/records"
	"github.com/morganforge/aegis-tui/internal/session"
	"github.com/morganforge/aegis-tui/internal/ui/components"
	"github.com/morganforge/aegis-tui/internal/util"
)

// View renders the active route between the header and status bar.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.store.State() == session.StatePending {
		return m.theme.Container.Render(
			m.spinner.View() + " Resuming session...")
	}

	var body string
	switch m.route {
	case authz.RouteLogin:
		body = m.viewLogin()
	case authz.RouteOTP:
		body = m.viewOTP()
	case authz.RouteRegister:
		body = m.viewRegister()
	case authz.RouteVerify:
		body = m.viewVerify()
	case authz.RouteDashboard:
		body = m.viewDashboard()
	case authz.RouteRecords:
		body = m.viewRecords()
	case authz.RouteAdminUsers:
		body = m.viewAdminUsers()
	}

	header := m.theme.HeaderTitle.Render("aegis") + " " +
		m.theme.HeaderSubtitle.Render("medical records portal")

	return lipgloss.JoinVertical(lipgloss.Left,
		m.theme.Container.Render(header),
		m.theme.Container.Render(body),
		m.statusBar.View(m.identity(), m.shortcuts()),
	)
}

// shortcuts returns the status bar hints for the active route.
func (m *Model) shortcuts() []components.Shortcut {
	switch m.route {
	case authz.RouteLogin:
		return []components.Shortcut{
			{Key: "enter", Desc: "sign in"},
			{Key: "ctrl+n", Desc: "register"},
			{Key: "ctrl+c", Desc: "quit"},
		}
	case authz.RouteOTP:
		return []components.Shortcut{
			{Key: "enter", Desc: "verify"},
			{Key: "esc", Desc: "back"},
		}
	case authz.RouteRegister, authz.RouteVerify:
		return []components.Shortcut{
			{Key: "enter", Desc: "submit"},
			{Key: "esc", Desc: "back"},
		}
	case authz.RouteRecords:
		s := []components.Shortcut{
			{Key: "enter", Desc: "unlock/close"},
			{Key: "g", Desc: "refresh"},
		}
		if records.CanCreate(m.identity()) {
			s = append(s, components.Shortcut{Key: "n", Desc: "new"})
		}
		return append(s, components.Shortcut{Key: "ctrl+l", Desc: "logout"})
	case authz.RouteAdminUsers:
		return []components.Shortcut{
			{Key: "u", Desc: "unlock"},
			{Key: "/", Desc: "filter"},
			{Key: "ctrl+l", Desc: "logout"},
		}
	}
	return []components.Shortcut{
		{Key: "r", Desc: "records"},
		{Key: "ctrl+l", Desc: "logout"},
		{Key: "q", Desc: "quit"},
	}
}

// =============================================================================
// AUTH VIEWS
// =============================================================================

func (m *Model) viewLogin() string {
	var b strings.Builder
	b.WriteString(m.loginForm.View())
	if m.loginBusy {
		b.WriteString("\n" + m.spinner.View() + " Signing in...")
	}
	if m.loginErr != "" {
		b.WriteString("\n" + m.theme.FormError.Render(m.loginErr))
	}
	return m.theme.FormBox.Render(b.String())
}

func (m *Model) viewOTP() string {
	var b strings.Builder
	b.WriteString(m.theme.FormLabel.Render("Enter the 6-digit code for "+m.verifier.Username()) + "\n\n")
	b.WriteString(m.otpView.View(m.verifier))
	return m.theme.FormBox.Render(b.String())
}

func (m *Model) viewRegister() string {
	var b strings.Builder
	b.WriteString(m.theme.FormLabel.Render("Create a patient account") + "\n\n")
	b.WriteString(m.regForm.View())
	if m.regBusy {
		b.WriteString("\n" + m.spinner.View() + " Registering...")
	}
	if m.regErr != "" {
		b.WriteString("\n" + m.theme.FormError.Render(m.regErr))
	}
	return m.theme.FormBox.Render(b.String())
}

func (m *Model) viewVerify() string {
	var b strings.Builder
	if m.verifyOK {
		b.WriteString(m.theme.SuccessStyle.Render("Account verified.") + "\n\n")
		b.WriteString(m.theme.FormHint.Render("Press any key to sign in."))
		return m.theme.FormBox.Render(b.String())
	}
	b.WriteString(m.theme.FormLabel.Render("Verify your account") + "\n")
	if m.regToken != "" {
		// The demo backend surfaces the token instead of emailing it.
		b.WriteString(m.theme.FormHint.Render("Verification token: "+m.regToken) + "\n")
	}
	b.WriteString("\n" + m.verifyForm.View())
	if m.verifyBusy {
		b.WriteString("\n" + m.spinner.View() + " Verifying...")
	}
	if m.verifyErr != "" {
		b.WriteString("\n" + m.theme.FormError.Render(m.verifyErr))
	}
	return m.theme.FormBox.Render(b.String())
}

// =============================================================================
// DASHBOARD VIEW
// =============================================================================

func (m *Model) viewDashboard() string {
	id := m.identity()
	if id == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Welcome, %s.\n\n", id.Username))
	b.WriteString(m.theme.InfoStyle.Render("r") + "  view records\n")
	if id.Role == string(authz.RoleAdmin) {
		b.WriteString(m.theme.InfoStyle.Render("u") + "  manage users\n")
	}
	return b.String()
}

// =============================================================================
// RECORDS VIEW
// =============================================================================

func (m *Model) viewRecords() string {
	if m.createOpen {
		return m.viewCreate()
	}

	var b strings.Builder
	if m.records.Loading() {
		b.WriteString(m.spinner.View() + " Loading records...\n")
	}
	if msg := m.records.ListError(); msg != "" {
		b.WriteString(m.theme.ErrorBox.Render(msg) + "\n")
	}

	recs := m.records.Records()
	if len(recs) == 0 && !m.records.Loading() {
		b.WriteString(m.theme.FormHint.Render("No records."))
		return b.String()
	}

	for i, rec := range recs {
		b.WriteString(m.recordRow(i, rec) + "\n")
		if !m.cfg.UI.CompactMode {
			b.WriteString("\n")
		}
	}

	// The selected record's plaintext renders below the list when open.
	if len(recs) > 0 {
		b.WriteString(m.recordDetail(recs[m.recordCursor]))
	}
	if m.createDone {
		b.WriteString("\n" + m.theme.SuccessStyle.Render("Record created."))
	}
	return b.String()
}

func (m *Model) recordRow(i int, rec api.Record) string {
	marker := "  "
	style := m.theme.RecordRow
	if i == m.recordCursor {
		marker = "> "
		style = m.theme.RecordRowSelected
	}

	var state string
	switch m.records.State(rec.ID) {
	case records.StateOpen:
		state = m.theme.RecordOpen.Render("open")
	case records.StateDecrypting:
		state = m.spinner.View()
	default:
		state = m.theme.RecordLocked.Render("locked")
	}

	title := util.TruncateWidth(rec.Title, 40)
	row := fmt.Sprintf("%s%s  %s  %s  %s",
		marker,
		util.PadRight(title, 40),
		m.theme.CategoryBadge.Render(rec.Category),
		m.theme.RecordMeta.Render(rec.CreatedAt.Format("2006-01-02")),
		state,
	)
	if msg := m.records.DecryptError(rec.ID); msg != "" {
		row += "  " + m.theme.FormError.Render(msg)
	}
	return style.Render(row)
}

func (m *Model) recordDetail(rec api.Record) string {
	view, ok := m.records.View(rec.ID)
	if !ok {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n")
	if view.SignatureValid {
		b.WriteString(m.theme.SignatureValid.Render("✓ Signature verified"))
	} else {
		b.WriteString(m.theme.SignatureInvalid.Render("⚠ SIGNATURE INVALID - content integrity cannot be confirmed"))
	}
	b.WriteString("\n")
	b.WriteString(m.renderMarkdown(view.Data.Content))
	if view.Data.CreatedBy != "" {
		b.WriteString(m.theme.RecordMeta.Render("Authored by " + view.Data.CreatedBy))
	}
	return b.String()
}

func (m *Model) viewCreate() string {
	var b strings.Builder
	if m.pickingPatient {
		b.WriteString(m.theme.FormLabel.Render("New record: select patient") + "\n\n")
		if m.roster.Loading() {
			b.WriteString(m.spinner.View() + " Loading patients...\n")
		}
		if msg := m.roster.Error(); msg != "" {
			b.WriteString(m.theme.ErrorBox.Render(msg) + "\n")
		}
		for i, p := range m.roster.Patients() {
			style := m.theme.UserRow
			marker := "  "
			if i == m.rosterCursor {
				style = m.theme.UserRowSelected
				marker = "> "
			}
			b.WriteString(style.Render(marker+p.Username+"  "+p.Email) + "\n")
		}
		return b.String()
	}

	b.WriteString(m.theme.FormLabel.Render("New record for "+m.selectedPatient.Username) + "\n\n")
	b.WriteString("Category: " + m.theme.CategoryBadge.Render(api.Categories[m.categoryIdx]) +
		m.theme.FormHint.Render("  (ctrl+t to change)") + "\n\n")
	b.WriteString(m.createForm.View())
	if m.createBusy {
		b.WriteString("\n" + m.spinner.View() + " Creating...")
	}
	if m.createErr != "" {
		b.WriteString("\n" + m.theme.FormError.Render(m.createErr))
	}
	return m.theme.FormBox.Render(b.String())
}

// =============================================================================
// ADMIN DIRECTORY VIEW
// =============================================================================

func (m *Model) viewAdminUsers() string {
	var b strings.Builder
	if m.filtering || m.filterInput.Value() != "" {
		b.WriteString("Filter: " + m.filterInput.View() + "\n\n")
	}
	if m.directory.Loading() {
		b.WriteString(m.spinner.View() + " Loading users...\n")
	}
	if msg := m.directory.ListError(); msg != "" {
		b.WriteString(m.theme.ErrorBox.Render(msg) + "\n")
	}
	if msg := m.directory.LastError(); msg != "" {
		b.WriteString(m.theme.ErrorBox.Render(msg) + "\n")
	}

	visible := m.directory.Visible()
	if len(visible) == 0 && !m.directory.Loading() {
		b.WriteString(m.theme.FormHint.Render("No matching users."))
		return b.String()
	}

	for i, u := range visible {
		style := m.theme.UserRow
		marker := "  "
		if i == m.userCursor {
			style = m.theme.UserRowSelected
			marker = "> "
		}
		row := fmt.Sprintf("%s%s  %s  %s",
			marker,
			util.PadRight(util.TruncateWidth(u.Username, 20), 20),
			util.PadRight(util.TruncateWidth(u.Email, 28), 28),
			m.theme.RoleBadge.Render(u.Role),
		)
		if u.Locked {
			row += "  " + m.theme.UserLockedBadge.Render("LOCKED")
		}
		if m.directory.Unlocking(u.ID) {
			row += "  " + m.spinner.View()
		}
		b.WriteString(style.Render(row) + "\n")
	}
	return b.String()
}
