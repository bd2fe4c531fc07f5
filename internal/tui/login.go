package tui

import (
	"context"
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/evanschultz/mailkan/internal/domain"
)

// login form field indexes.
const (
	loginFieldEmail = iota
	loginFieldPassword
	loginFieldName
)

// loginState holds the login/signup form.
type loginState struct {
	email    textinput.Model
	password textinput.Model
	name     textinput.Model
	field    int
	signup   bool
	busy     bool
}

func newLoginState() loginState {
	email := textinput.New()
	email.Prompt = "email: "
	email.Placeholder = "you@example.com"
	email.CharLimit = 254

	password := textinput.New()
	password.Prompt = "password: "
	password.CharLimit = 128
	password.EchoMode = textinput.EchoPassword

	name := textinput.New()
	name.Prompt = "name: "
	name.Placeholder = "optional"
	name.CharLimit = 80

	return loginState{email: email, password: password, name: name}
}

// fieldCount returns the number of visible fields.
func (s loginState) fieldCount() int {
	if s.signup {
		return 3
	}
	return 2
}

// focus focuses the active field and blurs the others.
func (s *loginState) focus() tea.Cmd {
	s.email.Blur()
	s.password.Blur()
	s.name.Blur()
	switch s.field {
	case loginFieldPassword:
		return s.password.Focus()
	case loginFieldName:
		return s.name.Focus()
	default:
		return s.email.Focus()
	}
}

// credentials reads the form.
func (s loginState) credentials() domain.Credentials {
	creds := domain.Credentials{
		Email:    strings.TrimSpace(s.email.Value()),
		Password: s.password.Value(),
	}
	if s.signup {
		creds.Name = strings.TrimSpace(s.name.Value())
	}
	return creds
}

// loggedInMsg carries the result of a login or signup.
type loggedInMsg struct {
	user domain.User
	err  error
}

// applyLoggedIn opens the board after a successful login.
func (m Model) applyLoggedIn(msg loggedInMsg) (tea.Model, tea.Cmd) {
	m.login.busy = false
	if msg.err != nil {
		m.status = "login failed: " + msg.err.Error()
		return m, nil
	}
	m.userName = msg.user.DisplayName()
	m.login = newLoginState()
	m.screen = screenBoard
	m.status = "loading..."
	return m, m.loadBoardCmd()
}

// handleLoginKey edits the form and submits it.
func (m Model) handleLoginKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if m.login.busy {
		return m, nil
	}
	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "tab", "down":
		m.login.field = wrapIndex(m.login.field, 1, m.login.fieldCount())
		return m, m.login.focus()
	case "shift+tab", "up":
		m.login.field = wrapIndex(m.login.field, -1, m.login.fieldCount())
		return m, m.login.focus()
	case "ctrl+n":
		m.login.signup = !m.login.signup
		if m.login.field >= m.login.fieldCount() {
			m.login.field = 0
		}
		return m, m.login.focus()
	case "enter":
		if m.login.field < m.login.fieldCount()-1 {
			m.login.field++
			return m, m.login.focus()
		}
		return m.submitLogin()
	}

	var cmd tea.Cmd
	switch m.login.field {
	case loginFieldPassword:
		m.login.password, cmd = m.login.password.Update(msg)
	case loginFieldName:
		m.login.name, cmd = m.login.name.Update(msg)
	default:
		m.login.email, cmd = m.login.email.Update(msg)
	}
	return m, cmd
}

// submitLogin validates the form and starts the request.
func (m Model) submitLogin() (tea.Model, tea.Cmd) {
	creds := m.login.credentials()
	if err := creds.Validate(); err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.login.busy = true
	signup := m.login.signup
	if signup {
		m.status = "creating account..."
	} else {
		m.status = "logging in..."
	}
	svc := m.svc
	return m, func() tea.Msg {
		var (
			user domain.User
			err  error
		)
		if signup {
			user, err = svc.Signup(context.Background(), creds)
		} else {
			user, err = svc.Login(context.Background(), creds)
		}
		return loggedInMsg{user: user, err: err}
	}
}

// renderLogin renders the form.
func (m Model) renderLogin() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	hint := lipgloss.NewStyle().Foreground(mutedColor)
	heading := "Log in"
	toggle := "ctrl+n create an account"
	if m.login.signup {
		heading = "Create account"
		toggle = "ctrl+n back to login"
	}
	width := clamp(m.width-8, 36, 64)
	m.login.email.SetWidth(width - 12)
	m.login.password.SetWidth(width - 12)
	m.login.name.SetWidth(width - 12)

	lines := []string{title.Render(heading), "", m.login.email.View(), m.login.password.View()}
	if m.login.signup {
		lines = append(lines, m.login.name.View())
	}
	lines = append(lines, "", hint.Render("enter submit • tab next field • "+toggle))
	if m.login.busy {
		lines = append(lines, hint.Render("waiting for server..."))
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentColor).
		Padding(1, 2).
		Width(width).
		Render(strings.Join(lines, "\n"))
}
