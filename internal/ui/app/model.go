// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app wires the views, controllers and session state into the
// root Bubble Tea model. All state transitions happen on the single
// event loop; background requests re-enter as typed messages carrying
// the generation they were issued under.
package app

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/morganforge/aegis-tui/internal/api"
	"github.com/morganforge/aegis-tui/internal/audit"
	"github.com/morganforge/aegis-tui/internal/authz"
	"github.com/morganforge/aegis-tui/internal/config"
	"github.com/morganforge/aegis-tui/internal/otp"
	"github.com/morganforge/aegis-tui/internal/records"
	"github.com/morganforge/aegis-tui/internal/session"
	"github.com/morganforge/aegis-tui/internal/ui/components"
	"github.com/morganforge/aegis-tui/internal/ui/styles"
	"github.com/morganforge/aegis-tui/internal/users"
)

// =============================================================================
// ROOT MODEL
// =============================================================================

// Model is the root application model.
type Model struct {
	theme *styles.Theme
	cfg   *config.Config
	store *session.Store
	trail *audit.Trail

	route  authz.Route
	width  int
	height int

	// Login
	loginForm *components.Form
	loginBusy bool
	loginErr  string

	// Second factor
	verifier *otp.Verifier
	otpView  *components.OTPInput
	ticking  bool

	// Registration
	regForm    *components.Form
	regBusy    bool
	regErr     string
	regToken   string // demo-mode verification token surfaced to the user
	verifyForm *components.Form
	verifyBusy bool
	verifyErr  string
	verifyOK   bool

	// Records
	records      *records.Controller
	recordCursor int

	// Create-record flow: pick a patient, then fill the form.
	createOpen      bool
	pickingPatient  bool
	selectedPatient api.User
	createForm      *components.Form
	createBusy      bool
	createErr       string
	createDone      bool
	roster          *users.Roster
	rosterCursor    int
	categoryIdx     int

	// Admin directory
	directory   *users.Directory
	userCursor  int
	filterInput textinput.Model
	filtering   bool

	statusBar *components.StatusBar
	spinner   spinner.Model
	markdown  *glamour.TermRenderer

	quitting bool
}

// New creates the root model. The session starts pending; Init kicks
// off bootstrap.
func New(cfg *config.Config, store *session.Store, trail *audit.Trail, theme *styles.Theme) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = theme.Spinner

	filter := textinput.New()
	filter.Placeholder = "filter users"
	filter.CharLimit = 64
	filter.Width = 24

	m := &Model{
		theme:     theme,
		cfg:       cfg,
		store:     store,
		trail:     trail,
		route:     authz.RouteLogin,
		width:     80,
		height:    24,
		verifier:  otp.NewVerifier(cfg.Session.OTPTTLSecs),
		otpView:   components.NewOTPInput(theme),
		records:   records.NewController(),
		roster:    users.NewRoster(),
		directory: users.NewDirectory(),
		statusBar: components.NewStatusBar(theme),
		spinner:   sp,
	}
	m.loginForm = components.NewForm(theme,
		components.NewField("Username", "username", false),
		components.NewField("Password", "password", true),
	)
	m.regForm = components.NewForm(theme,
		components.NewField("Username", "username", false),
		components.NewField("Email", "you@example.com", false),
		components.NewField("Password", "min 8 characters", true),
	)
	m.verifyForm = components.NewForm(theme,
		components.NewField("Username", "username", false),
		components.NewField("Verification token", "token from email", false),
	)
	m.createForm = components.NewForm(theme,
		components.NewField("Title", "record title", false),
		components.NewField("Content", "clinical notes (markdown)", false),
	)
	return m
}

// Init starts session bootstrap and the spinner.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(session.BootstrapCmd(m.store), m.spinner.Tick)
}

// identity returns the current identity, nil when anonymous.
func (m *Model) identity() *api.User { return m.store.Identity() }

// =============================================================================
// NAVIGATION
// =============================================================================

// navigate runs the authorization gate for the requested route and
// moves there, or wherever the gate redirects. Returns commands that
// load the destination's data.
func (m *Model) navigate(route authz.Route) tea.Cmd {
	decision := authz.Decide(m.store.State(), m.identity(), authz.RequiredRoles(route))
	switch decision {
	case authz.DecisionWait:
		// Bootstrap unresolved; render nothing route-specific yet.
		return nil
	case authz.DecisionRedirectLogin:
		m.leaveRoute(m.route)
		m.route = authz.RouteLogin
		return nil
	case authz.DecisionRedirectHome:
		route = authz.HomeRoute
	}

	m.leaveRoute(m.route)
	m.route = route
	return m.enterRoute(route)
}

// leaveRoute drops route-scoped state so nothing stale survives the
// transition and in-flight responses for the old surface are
// invalidated.
func (m *Model) leaveRoute(route authz.Route) {
	switch route {
	case authz.RouteRecords:
		m.records.Reset()
		m.roster.Reset()
		m.recordCursor = 0
		m.createOpen = false
		m.createBusy = false
		m.createErr = ""
		m.createForm.Reset()
	case authz.RouteAdminUsers:
		m.directory.Reset()
		m.userCursor = 0
		m.filtering = false
		m.filterInput.SetValue("")
	}
}

// enterRoute kicks off the data loads the destination needs.
func (m *Model) enterRoute(route authz.Route) tea.Cmd {
	switch route {
	case authz.RouteRecords:
		return records.ListCmd(m.store, m.records.BeginLoad())
	case authz.RouteAdminUsers:
		return users.ListCmd(m.store, m.directory.BeginLoad())
	}
	return nil
}

// resetToAnonymous clears every session-scoped surface after logout or
// a rejected session.
func (m *Model) resetToAnonymous() {
	m.records.Reset()
	m.roster.Reset()
	m.directory.Reset()
	m.verifier.Reset()
	m.ticking = false
	m.loginForm.Reset()
	m.loginBusy = false
	m.loginErr = ""
	m.recordCursor = 0
	m.userCursor = 0
	m.createOpen = false
	m.route = authz.RouteLogin
}

// renderMarkdown renders decrypted record content. Falls back to the
// raw text if the renderer is unavailable.
func (m *Model) renderMarkdown(content string) string {
	if m.markdown == nil {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(min(m.width-4, 100)),
		)
		if err != nil {
			return content
		}
		m.markdown = r
	}
	out, err := m.markdown.Render(content)
	if err != nil {
		return content
	}
	return out
}
