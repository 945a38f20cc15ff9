package ui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yildizm/ContractSum/internal/api"
	"github.com/yildizm/ContractSum/internal/logger"
	"github.com/yildizm/ContractSum/internal/session"
)

// Backend is the part of the API client the views use
type Backend interface {
	SetToken(token string)
	Login(ctx context.Context, username, password string) (*api.Token, error)
	Register(ctx context.Context, req *api.RegisterRequest) (*api.User, error)
	CurrentUser(ctx context.Context) (*api.User, error)
	UploadContracts(ctx context.Context, paths []string) ([]*api.Analysis, error)
	GetAnalysis(ctx context.Context, id string) (*api.Analysis, error)
}

// SessionStore keeps the token and analysis history between runs
type SessionStore interface {
	Restore(ctx context.Context, client session.UserChecker) (*api.User, error)
	SetToken(token, username string) error
	Clear() error
	Remember(a *api.Analysis) error
	Recent(n int) []session.RecentAnalysis
}

// Options configures the application
type Options struct {
	Context      context.Context
	Backend      Backend
	Session      SessionStore // optional
	PollInterval time.Duration
	AllowedTypes []string
	StartDir     string
	Log          *logger.Logger
}

type appState int

const (
	stateRestoring appState = iota
	stateAuth
	stateMain
)

// AppModel owns the token and switches between the auth and main views
type AppModel struct {
	opts   Options
	styles *Styles

	state appState
	token string
	user  *api.User

	auth *AuthModel
	main *MainModel

	width    int
	height   int
	quitting bool
}

// NewAppModel creates the application model
func NewAppModel(opts Options) *AppModel {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.StartDir == "" {
		opts.StartDir = "."
	}

	m := &AppModel{
		opts:   opts,
		styles: GetStyles(),
		state:  stateAuth,
		auth:   NewAuthModel(opts.Context, opts.Backend),
	}
	if opts.Session != nil {
		m.state = stateRestoring
	}
	return m
}

// Token returns the token of the logged in user, or ""
func (m *AppModel) Token() string {
	return m.token
}

// User returns the logged in user, or nil
func (m *AppModel) User() *api.User {
	return m.user
}

// Auth returns the auth view
func (m *AppModel) Auth() *AuthModel {
	return m.auth
}

// Main returns the main view, or nil before login
func (m *AppModel) Main() *MainModel {
	return m.main
}

// Init restores a saved session when a store is configured
func (m *AppModel) Init() tea.Cmd {
	if m.state == stateRestoring {
		return restoreSessionCmd(m.opts.Context, m.opts.Session, m.opts.Backend)
	}
	return m.auth.Init()
}

// Update routes messages to the active view
func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.main != nil {
			_, cmd := m.main.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "esc":
			if m.state != stateMain {
				m.quitting = true
				return m, tea.Quit
			}
		}

	case sessionRestoredMsg:
		return m.handleSessionRestored(msg)

	case loggedInMsg:
		return m.enterMain(msg.token, msg.user, true)

	case logoutMsg:
		return m.logout()
	}

	switch m.state {
	case stateAuth:
		_, cmd := m.auth.Update(msg)
		return m, cmd
	case stateMain:
		_, cmd := m.main.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *AppModel) handleSessionRestored(msg sessionRestoredMsg) (tea.Model, tea.Cmd) {
	if msg.err == nil && msg.user != nil {
		// The store already installed the token on the client
		return m.enterMain("", msg.user, false)
	}

	m.state = stateAuth
	if errors.Is(msg.err, session.ErrSessionExpired) {
		m.auth.SetNotice(msgSessionExpired)
	}
	if m.opts.Log != nil && msg.err != nil && !errors.Is(msg.err, session.ErrNotLoggedIn) {
		m.opts.Log.Debug("Session not restored: %v", msg.err)
	}
	return m, m.auth.Init()
}

// enterMain switches to the main view for a user. persist saves a freshly
// issued token to the session store.
func (m *AppModel) enterMain(token string, user *api.User, persist bool) (tea.Model, tea.Cmd) {
	if token != "" {
		m.token = token
		m.opts.Backend.SetToken(token)
	}
	m.user = user

	if persist && m.opts.Session != nil {
		if err := m.opts.Session.SetToken(token, user.Username); err != nil && m.opts.Log != nil {
			m.opts.Log.Warn("Failed to save session: %v", err)
		}
	}

	m.state = stateMain
	m.main = NewMainModel(m.opts, user)

	cmds := []tea.Cmd{m.main.Init()}
	if m.width > 0 {
		size := tea.WindowSizeMsg{Width: m.width, Height: m.height}
		cmds = append(cmds, func() tea.Msg { return size })
	}
	return m, tea.Batch(cmds...)
}

// logout drops the token and returns to the login form. Any scheduled poll
// belongs to the discarded main view and is ignored.
func (m *AppModel) logout() (tea.Model, tea.Cmd) {
	m.token = ""
	m.user = nil
	m.main = nil
	m.opts.Backend.SetToken("")

	if m.opts.Session != nil {
		if err := m.opts.Session.Clear(); err != nil && m.opts.Log != nil {
			m.opts.Log.Warn("Failed to clear session: %v", err)
		}
	}

	m.state = stateAuth
	m.auth = NewAuthModel(m.opts.Context, m.opts.Backend)
	m.auth.SetNotice(msgLoggedOut)
	return m, m.auth.Init()
}

// View renders the active view
func (m *AppModel) View() string {
	if m.quitting {
		return "Thanks for using ContractSum!\n"
	}

	var content string
	switch m.state {
	case stateRestoring:
		content = render(m.styles.Muted, "Checking saved session...")
	case stateAuth:
		content = m.auth.View()
	case stateMain:
		content = m.main.View()
	}

	if m.width == 0 || m.state == stateMain {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

// Run starts the interactive application
func Run(opts Options) error {
	model := NewAppModel(opts)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(model.opts.Context))
	_, err := p.Run()
	return err
}
