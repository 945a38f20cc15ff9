package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yildizm/ContractSum/internal/api"
	"github.com/yildizm/ContractSum/internal/emoji"
)

// AuthTab selects the login or register form
type AuthTab int

const (
	TabLogin AuthTab = iota
	TabRegister
)

const (
	msgCredentialsRequired = "Username and password are required."
	msgRegistered          = "Registration successful! Please log in."
	msgSessionExpired      = "Your session has expired. Please log in again."
	msgLoggedOut           = "You have been logged out."
)

// AuthModel collects credentials and exchanges them for a token
type AuthModel struct {
	ctx     context.Context
	backend Backend
	styles  *Styles

	tab      AuthTab
	login    []textinput.Model // username, password
	register []textinput.Model // username, email, password
	focus    int

	spinner spinner.Model
	loading bool
	err     string
	notice  string
}

// NewAuthModel creates the auth view on the login tab
func NewAuthModel(ctx context.Context, backend Backend) *AuthModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &AuthModel{
		ctx:     ctx,
		backend: backend,
		styles:  GetStyles(),
		login: []textinput.Model{
			newInput("Username", false),
			newInput("Password", true),
		},
		register: []textinput.Model{
			newInput("Username", false),
			newInput("Email", false),
			newInput("Password", true),
		},
		spinner: sp,
	}
	m.focusField(0)
	return m
}

func newInput(placeholder string, password bool) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 128
	ti.Width = 40
	if password {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	return ti
}

// Tab returns the active form
func (m *AuthModel) Tab() AuthTab {
	return m.tab
}

// Loading reports whether a request is in flight
func (m *AuthModel) Loading() bool {
	return m.loading
}

// Err returns the error line
func (m *AuthModel) Err() string {
	return m.err
}

// Notice returns the informational line
func (m *AuthModel) Notice() string {
	return m.notice
}

// SetNotice shows an informational line above the form
func (m *AuthModel) SetNotice(notice string) {
	m.notice = notice
}

func (m *AuthModel) fields() []textinput.Model {
	if m.tab == TabRegister {
		return m.register
	}
	return m.login
}

func (m *AuthModel) focusField(i int) {
	fields := m.fields()
	m.focus = i
	for j := range fields {
		if j == i {
			fields[j].Focus()
		} else {
			fields[j].Blur()
		}
	}
}

func (m *AuthModel) switchTab() {
	if m.tab == TabLogin {
		m.tab = TabRegister
	} else {
		m.tab = TabLogin
	}
	m.err = ""
	m.focusField(0)
}

// Init initializes the auth model
func (m *AuthModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles key input and request results
func (m *AuthModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loginResultMsg:
		m.loading = false
		if msg.err != nil {
			m.err = api.UserMessage(msg.err, api.MsgLoginFailed)
			return m, nil
		}
		token, user := msg.token, msg.user
		return m, func() tea.Msg { return loggedInMsg{token: token, user: user} }

	case registerResultMsg:
		m.loading = false
		if msg.err != nil {
			m.err = api.UserMessage(msg.err, api.MsgRegisterFailed)
			return m, nil
		}
		m.completeRegistration()
		return m, nil
	}

	return m, m.updateFocused(msg)
}

func (m *AuthModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}

	switch msg.String() {
	case "tab":
		m.switchTab()
		return m, nil
	case "up", "shift+tab":
		if m.focus > 0 {
			m.focusField(m.focus - 1)
		}
		return m, nil
	case "down":
		if m.focus < len(m.fields())-1 {
			m.focusField(m.focus + 1)
		}
		return m, nil
	case "enter":
		if m.focus < len(m.fields())-1 {
			m.focusField(m.focus + 1)
			return m, nil
		}
		return m, m.submit()
	}

	return m, m.updateFocused(msg)
}

func (m *AuthModel) updateFocused(msg tea.Msg) tea.Cmd {
	fields := m.fields()
	var cmd tea.Cmd
	fields[m.focus], cmd = fields[m.focus].Update(msg)
	return cmd
}

// submit validates the active form and starts the request
func (m *AuthModel) submit() tea.Cmd {
	m.err = ""
	m.notice = ""

	var req tea.Cmd
	switch m.tab {
	case TabLogin:
		username := strings.TrimSpace(m.login[0].Value())
		password := m.login[1].Value()
		if username == "" || password == "" {
			m.err = msgCredentialsRequired
			return nil
		}
		req = loginCmd(m.ctx, m.backend, username, password)

	case TabRegister:
		reg := &api.RegisterRequest{
			Username: strings.TrimSpace(m.register[0].Value()),
			Email:    strings.TrimSpace(m.register[1].Value()),
			Password: m.register[2].Value(),
		}
		if err := reg.Validate(); err != nil {
			m.err = api.UserMessage(err, api.MsgRegisterFailed)
			return nil
		}
		req = registerCmd(m.ctx, m.backend, reg)
	}

	m.loading = true
	return tea.Batch(req, m.spinner.Tick)
}

// completeRegistration returns to the login form with the new username filled in.
// Registering never logs the user in.
func (m *AuthModel) completeRegistration() {
	username := m.register[0].Value()
	for i := range m.register {
		m.register[i].Reset()
	}

	m.tab = TabLogin
	m.login[0].SetValue(username)
	m.login[1].Reset()
	m.focusField(1)
	m.notice = msgRegistered
}

// View renders the auth view
func (m *AuthModel) View() string {
	var b strings.Builder

	b.WriteString(render(m.styles.Title, emoji.GetEmoji("contract")+" ContractSum") + "\n\n")
	b.WriteString(m.renderTabs() + "\n\n")

	labels := []string{"Username", "Password"}
	if m.tab == TabRegister {
		labels = []string{"Username", "Email", "Password"}
	}
	for i, field := range m.fields() {
		b.WriteString(render(m.styles.Label, labels[i]) + " " + field.View() + "\n")
	}
	b.WriteString("\n")

	switch {
	case m.loading:
		action := "Signing in..."
		if m.tab == TabRegister {
			action = "Creating account..."
		}
		b.WriteString(m.spinner.View() + " " + action + "\n")
	case m.err != "":
		b.WriteString(render(m.styles.Error, emoji.GetEmoji("error")+" "+m.err) + "\n")
	case m.notice != "":
		b.WriteString(render(m.styles.Success, emoji.GetEmoji("info")+" "+m.notice) + "\n")
	default:
		b.WriteString("\n")
	}

	b.WriteString("\n" + render(m.styles.Muted, "tab: switch form • ↑/↓: move • enter: next/submit • esc: quit"))

	return render(m.styles.Box, b.String())
}

func (m *AuthModel) renderTabs() string {
	loginStyle, registerStyle := m.styles.TabActive, m.styles.TabInactive
	if m.tab == TabRegister {
		loginStyle, registerStyle = registerStyle, loginStyle
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom,
		render(loginStyle, "Login"),
		" ",
		render(registerStyle, "Register"),
	)
}
