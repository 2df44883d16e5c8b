// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"errors"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/aegis-tui/internal/api"
	"github.com/morganforge/aegis-tui/internal/audit"
	"github.com/morganforge/aegis-tui/internal/authz"
	"github.com/morganforge/aegis-tui/internal/otp"
	"github.com/morganforge/aegis-tui/internal/records"
	"github.com/morganforge/aegis-tui/internal/session"
	"github.com/morganforge/aegis-tui/internal/users"
)

// Update is the single event loop. Every state transition in the
// application happens here or in a handler it calls.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
		m.statusBar.SetWidth(msg.Width)
		m.markdown = nil // re-created at the new wrap width
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.quitting = true
			return m, tea.Quit
		}
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	// Session lifecycle -------------------------------------------------------

	case session.BootstrapResultMsg:
		if msg.State == session.StateAuthenticated {
			m.trail.Record(audit.EventBootstrap, msg.Identity.Username, "", "resumed")
			return m, m.navigate(authz.HomeRoute)
		}
		m.trail.Record(audit.EventBootstrap, "", "", "anonymous")
		m.route = authz.RouteLogin
		return m, nil

	case LoginResultMsg:
		return m.handleLoginResult(msg)

	case otp.TickMsg:
		return m.handleOTPTick()

	case otp.VerifyResultMsg:
		return m.handleVerifyResult(msg)

	case RegisterResultMsg:
		m.regBusy = false
		if msg.Err != nil {
			m.regErr = api.UserMessage(msg.Err)
			return m, nil
		}
		m.regErr = ""
		m.regToken = msg.Token
		m.verifyForm.SetValue(0, m.regForm.Value(0))
		m.verifyForm.SetValue(1, msg.Token)
		m.regForm.Reset()
		m.route = authz.RouteVerify
		return m, nil

	case VerifyRegistrationResultMsg:
		m.verifyBusy = false
		if msg.Err != nil {
			m.verifyErr = api.UserMessage(msg.Err)
			return m, nil
		}
		m.verifyErr = ""
		m.verifyOK = true
		return m, nil

	// Records -----------------------------------------------------------------

	case records.ListResultMsg:
		if m.sessionExpired(msg.Err) {
			return m, nil
		}
		m.records.HandleList(msg.Gen, msg.Records, msg.Err)
		if n := len(m.records.Records()); m.recordCursor >= n && n > 0 {
			m.recordCursor = n - 1
		}
		return m, nil

	case records.DecryptResultMsg:
		if m.sessionExpired(msg.Err) {
			return m, nil
		}
		m.records.HandleDecrypt(msg.RecordID, msg.Gen, msg.Result, msg.Err)
		actor := ""
		if id := m.identity(); id != nil {
			actor = id.Username
		}
		if msg.Err != nil {
			m.trail.Record(audit.EventDecryptError, actor, msg.RecordID, api.UserMessage(msg.Err))
		} else if msg.Result != nil {
			detail := "signature=valid"
			if !msg.Result.SignatureValid {
				detail = "signature=invalid"
			}
			m.trail.Record(audit.EventDecrypt, actor, msg.RecordID, detail)
		}
		return m, nil

	case records.CreateResultMsg:
		if m.sessionExpired(msg.Err) {
			return m, nil
		}
		m.createBusy = false
		if msg.Err != nil {
			m.createErr = api.UserMessage(msg.Err)
			return m, nil
		}
		if id := m.identity(); id != nil {
			m.trail.Record(audit.EventCreateRecord, id.Username, m.selectedPatient.ID, "")
		}
		m.closeCreateForm()
		m.createDone = true
		return m, records.ListCmd(m.store, m.records.BeginLoad())

	case users.PatientsResultMsg:
		if m.sessionExpired(msg.Err) {
			return m, nil
		}
		m.roster.HandleList(msg.Gen, msg.Patients, msg.Err)
		if n := len(m.roster.Patients()); m.rosterCursor >= n && n > 0 {
			m.rosterCursor = n - 1
		}
		return m, nil

	// Admin directory ---------------------------------------------------------

	case users.ListResultMsg:
		if m.sessionExpired(msg.Err) {
			return m, nil
		}
		m.directory.HandleList(msg.Gen, msg.Users, msg.Err)
		if n := len(m.directory.Visible()); m.userCursor >= n && n > 0 {
			m.userCursor = n - 1
		}
		return m, nil

	case users.UnlockResultMsg:
		if m.sessionExpired(msg.Err) {
			return m, nil
		}
		m.directory.HandleUnlock(msg.UserID, msg.Gen, msg.Err)
		if msg.Err == nil {
			actor := ""
			if id := m.identity(); id != nil {
				actor = id.Username
			}
			m.trail.Record(audit.EventUnlockUser, actor, msg.UserID, "")
		}
		return m, nil
	}

	return m, nil
}

// =============================================================================
// AUTH FLOW HANDLERS
// =============================================================================

func (m *Model) handleLoginResult(msg LoginResultMsg) (tea.Model, tea.Cmd) {
	m.loginBusy = false
	if msg.Err != nil {
		m.loginErr = api.UserMessage(msg.Err)
		return m, nil
	}
	m.loginErr = ""

	if msg.Result.RequiresOTP {
		m.verifier.Begin(msg.Username)
		m.route = authz.RouteOTP
		if !m.ticking {
			m.ticking = true
			return m, otp.TickCmd()
		}
		return m, nil
	}

	// Single-factor deployments hand the session back directly.
	if err := m.store.Login(msg.Result.Token, *msg.Result.User); err != nil {
		m.loginErr = err.Error()
		return m, nil
	}
	m.trail.Record(audit.EventLogin, msg.Result.User.Username, "", "single-factor")
	m.loginForm.Reset()
	return m, m.navigate(authz.HomeRoute)
}

func (m *Model) handleOTPTick() (tea.Model, tea.Cmd) {
	if !m.ticking {
		return m, nil
	}
	before := m.verifier.State()
	m.verifier.Tick()

	if m.verifier.State() == otp.StateExpired && before != otp.StateExpired {
		m.trail.Record(audit.EventOTPExpired, m.verifier.Username(), "", "")
	}
	switch m.verifier.State() {
	case otp.StateAwaitingCode, otp.StateVerifying:
		return m, otp.TickCmd()
	}
	m.ticking = false
	return m, nil
}

func (m *Model) handleVerifyResult(msg otp.VerifyResultMsg) (tea.Model, tea.Cmd) {
	// Only an in-flight verification may consume a result. If the user
	// abandoned the second factor (Esc resets the verifier) before the
	// response landed, the result belongs to a dead attempt.
	if m.verifier.State() != otp.StateVerifying {
		return m, nil
	}

	if msg.Err != nil {
		m.verifier.HandleFailure(api.UserMessage(msg.Err))
		m.trail.Record(audit.EventOTPFailed, m.verifier.Username(), "", "")
		return m, nil
	}

	m.verifier.HandleSuccess()
	m.ticking = false
	if err := m.store.Login(msg.Auth.Token, msg.Auth.User); err != nil {
		// Session is live in memory even if persistence failed.
		m.loginErr = err.Error()
	}
	m.trail.Record(audit.EventLogin, msg.Auth.User.Username, "", "otp")
	m.verifier.Reset()
	m.loginForm.Reset()
	return m, m.navigate(authz.HomeRoute)
}

// =============================================================================
// KEY DISPATCH
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Authenticated surfaces share navigation and logout chords.
	if m.store.State() == session.StateAuthenticated {
		switch msg.String() {
		case "ctrl+l":
			return m.logout()
		case "ctrl+d":
			return m, m.navigate(authz.RouteDashboard)
		case "ctrl+r":
			return m, m.navigate(authz.RouteRecords)
		case "ctrl+u":
			return m, m.navigate(authz.RouteAdminUsers)
		}
	}

	switch m.route {
	case authz.RouteLogin:
		return m.handleLoginKeys(msg)
	case authz.RouteOTP:
		return m.handleOTPKeys(msg)
	case authz.RouteRegister:
		return m.handleRegisterKeys(msg)
	case authz.RouteVerify:
		return m.handleVerifyKeys(msg)
	case authz.RouteDashboard:
		return m.handleDashboardKeys(msg)
	case authz.RouteRecords:
		return m.handleRecordsKeys(msg)
	case authz.RouteAdminUsers:
		return m.handleAdminKeys(msg)
	}
	return m, nil
}

// sessionExpired ends the session when a protected request reports
// that the server no longer accepts the token. The persisted token is
// useless at that point; keeping it would just replay the rejection on
// the next resume.
func (m *Model) sessionExpired(err error) bool {
	if err == nil || !errors.Is(err, api.ErrUnauthorized) {
		return false
	}
	actor := ""
	if id := m.identity(); id != nil {
		actor = id.Username
	}
	m.store.Logout()
	m.trail.Record(audit.EventLogout, actor, "", "session expired")
	m.resetToAnonymous()
	m.loginErr = "Session expired. Please sign in again."
	return true
}

func (m *Model) logout() (tea.Model, tea.Cmd) {
	actor := ""
	if id := m.identity(); id != nil {
		actor = id.Username
	}
	if err := m.store.Logout(); err != nil {
		// Local state clears regardless; the stale file token will be
		// rejected by the server on next resume.
		m.trail.Record(audit.EventLogout, actor, "", "token cleanup failed")
	} else {
		m.trail.Record(audit.EventLogout, actor, "", "")
	}
	m.resetToAnonymous()
	return m, nil
}

// -----------------------------------------------------------------------------
// Login
// -----------------------------------------------------------------------------

func (m *Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		m.loginForm.Next()
		return m, nil
	case "shift+tab", "up":
		m.loginForm.Prev()
		return m, nil
	case "ctrl+n":
		m.route = authz.RouteRegister
		return m, nil
	case "enter":
		if !m.loginForm.OnLastField() {
			m.loginForm.Next()
			return m, nil
		}
		if m.loginBusy {
			return m, nil
		}
		username, password := m.loginForm.Value(0), m.loginForm.Value(1)
		if username == "" || password == "" {
			m.loginErr = "Username and password are required"
			return m, nil
		}
		m.loginBusy = true
		m.loginErr = ""
		return m, loginCmd(m.store.Backend(), username, password)
	}
	return m, m.loginForm.Update(msg)
}

// -----------------------------------------------------------------------------
// Second factor
// -----------------------------------------------------------------------------

func (m *Model) handleOTPKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.verifier.Reset()
		m.ticking = false
		m.route = authz.RouteLogin
		return m, nil
	case tea.KeyBackspace:
		m.verifier.Backspace()
		return m, nil
	case tea.KeyEnter:
		if !m.verifier.Submit() {
			return m, nil
		}
		return m, otp.VerifyCmd(m.store.Backend(), m.verifier.Username(), m.verifier.Code())
	case tea.KeyRunes:
		if len(msg.Runes) > 1 {
			// Terminal paste arrives as a single multi-rune key.
			m.verifier.Paste(string(msg.Runes))
			return m, nil
		}
		m.verifier.EnterDigit(msg.Runes[0])
		return m, nil
	}
	return m, nil
}

// -----------------------------------------------------------------------------
// Registration
// -----------------------------------------------------------------------------

func (m *Model) handleRegisterKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.regForm.Reset()
		m.regErr = ""
		m.route = authz.RouteLogin
		return m, nil
	case "tab", "down":
		m.regForm.Next()
		return m, nil
	case "shift+tab", "up":
		m.regForm.Prev()
		return m, nil
	case "enter":
		if !m.regForm.OnLastField() {
			m.regForm.Next()
			return m, nil
		}
		if m.regBusy {
			return m, nil
		}
		username, email, password := m.regForm.Value(0), m.regForm.Value(1), m.regForm.Value(2)
		if username == "" || email == "" || len(password) < 8 {
			m.regErr = "All fields are required; password must be at least 8 characters"
			return m, nil
		}
		m.regBusy = true
		m.regErr = ""
		return m, registerCmd(m.store.Backend(), api.RegisterRequest{
			Username: username,
			Email:    email,
			Password: password,
			Role:     string(authz.RolePatient),
		})
	}
	return m, m.regForm.Update(msg)
}

func (m *Model) handleVerifyKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.verifyOK {
		// Any key returns to login once verification succeeded.
		m.verifyOK = false
		m.verifyForm.Reset()
		m.route = authz.RouteLogin
		return m, nil
	}
	switch msg.String() {
	case "esc":
		m.verifyForm.Reset()
		m.verifyErr = ""
		m.route = authz.RouteLogin
		return m, nil
	case "tab", "down":
		m.verifyForm.Next()
		return m, nil
	case "shift+tab", "up":
		m.verifyForm.Prev()
		return m, nil
	case "enter":
		if !m.verifyForm.OnLastField() {
			m.verifyForm.Next()
			return m, nil
		}
		if m.verifyBusy {
			return m, nil
		}
		username, token := m.verifyForm.Value(0), m.verifyForm.Value(1)
		if username == "" || token == "" {
			m.verifyErr = "Username and verification token are required"
			return m, nil
		}
		m.verifyBusy = true
		m.verifyErr = ""
		return m, verifyRegistrationCmd(m.store.Backend(), username, token)
	}
	return m, m.verifyForm.Update(msg)
}

// -----------------------------------------------------------------------------
// Dashboard
// -----------------------------------------------------------------------------

func (m *Model) handleDashboardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "r":
		return m, m.navigate(authz.RouteRecords)
	case "u":
		return m, m.navigate(authz.RouteAdminUsers)
	case "q":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// -----------------------------------------------------------------------------
// Records
// -----------------------------------------------------------------------------

func (m *Model) handleRecordsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.createOpen {
		return m.handleCreateKeys(msg)
	}

	recs := m.records.Records()
	switch msg.String() {
	case "esc":
		return m, m.navigate(authz.RouteDashboard)
	case "up", "k":
		if m.recordCursor > 0 {
			m.recordCursor--
		}
		return m, nil
	case "down", "j":
		if m.recordCursor < len(recs)-1 {
			m.recordCursor++
		}
		return m, nil
	case "g":
		return m, records.ListCmd(m.store, m.records.BeginLoad())
	case "n":
		if !records.CanCreate(m.identity()) {
			return m, nil
		}
		m.createOpen = true
		m.pickingPatient = true
		m.createDone = false
		m.rosterCursor = 0
		m.categoryIdx = 0
		return m, users.PatientsCmd(m.store, m.roster.BeginLoad())
	case "enter", " ":
		if len(recs) == 0 {
			return m, nil
		}
		rec := recs[m.recordCursor]
		switch m.records.State(rec.ID) {
		case records.StateOpen:
			m.records.Close(rec.ID)
			return m, nil
		case records.StateLocked:
			gen, ok := m.records.BeginDecrypt(rec.ID)
			if !ok {
				return m, nil
			}
			return m, records.DecryptCmd(m.store, rec.ID, gen)
		}
		// Decrypting: a second request is not issued.
		return m, nil
	}
	return m, nil
}

func (m *Model) handleCreateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.pickingPatient {
		patients := m.roster.Patients()
		switch msg.String() {
		case "esc":
			m.closeCreateForm()
			return m, nil
		case "up", "k":
			if m.rosterCursor > 0 {
				m.rosterCursor--
			}
			return m, nil
		case "down", "j":
			if m.rosterCursor < len(patients)-1 {
				m.rosterCursor++
			}
			return m, nil
		case "enter":
			if len(patients) == 0 {
				return m, nil
			}
			m.selectedPatient = patients[m.rosterCursor]
			m.pickingPatient = false
			return m, nil
		}
		return m, nil
	}

	switch msg.String() {
	case "esc":
		m.pickingPatient = true
		return m, nil
	case "tab":
		m.createForm.Next()
		return m, nil
	case "shift+tab":
		m.createForm.Prev()
		return m, nil
	case "ctrl+t":
		m.categoryIdx = (m.categoryIdx + 1) % len(api.Categories)
		return m, nil
	case "enter":
		if !m.createForm.OnLastField() {
			m.createForm.Next()
			return m, nil
		}
		if m.createBusy {
			return m, nil
		}
		title, content := m.createForm.Value(0), m.createForm.Value(1)
		if title == "" || content == "" {
			m.createErr = "Title and content are required"
			return m, nil
		}
		m.createBusy = true
		m.createErr = ""
		author := ""
		if id := m.identity(); id != nil {
			author = id.Username
		}
		return m, records.CreateCmd(m.store, api.CreateRecordRequest{
			PatientID: m.selectedPatient.ID,
			Title:     title,
			Category:  api.Categories[m.categoryIdx],
			Data:      api.RecordData{Content: content, CreatedBy: author},
		})
	}
	return m, m.createForm.Update(msg)
}

func (m *Model) closeCreateForm() {
	m.createOpen = false
	m.pickingPatient = false
	m.createBusy = false
	m.createErr = ""
	m.createForm.Reset()
	m.selectedPatient = api.User{}
}

// -----------------------------------------------------------------------------
// Admin directory
// -----------------------------------------------------------------------------

func (m *Model) handleAdminKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filtering {
		switch msg.String() {
		case "esc":
			m.filtering = false
			m.filterInput.Blur()
			return m, nil
		case "enter":
			m.filtering = false
			m.filterInput.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		m.directory.SetFilter(m.filterInput.Value())
		m.userCursor = 0
		return m, cmd
	}

	visible := m.directory.Visible()
	switch msg.String() {
	case "esc":
		return m, m.navigate(authz.RouteDashboard)
	case "up", "k":
		if m.userCursor > 0 {
			m.userCursor--
		}
		return m, nil
	case "down", "j":
		if m.userCursor < len(visible)-1 {
			m.userCursor++
		}
		return m, nil
	case "/":
		m.filtering = true
		m.filterInput.Focus()
		return m, nil
	case "g":
		return m, users.ListCmd(m.store, m.directory.BeginLoad())
	case "enter", "u":
		if len(visible) == 0 {
			return m, nil
		}
		target := visible[m.userCursor]
		if !target.Locked {
			return m, nil
		}
		gen, ok := m.directory.BeginUnlock(target.ID)
		if !ok {
			return m, nil
		}
		return m, users.UnlockCmd(m.store, target.ID, gen)
	}
	return m, nil
}
