package view

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/pocketbook/internal/auth"
)

// Authenticator is the part of the session the login screen drives.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*auth.Identity, error)
	Register(ctx context.Context, email, password, displayName string) (*auth.Identity, error)
}

const (
	modeLogin    = "login"
	modeRegister = "register"
)

type LoginModel struct {
	CommonModel
	auth Authenticator

	form    *huh.Form
	pending bool
	err     error

	// Form bindings, kept behind a pointer so the form and the model copies
	// bubbletea passes around share them.
	fields *loginFields
}

type loginFields struct {
	mode        string
	email       string
	password    string
	displayName string
}

func NewLoginModel(a Authenticator) LoginModel {
	m := LoginModel{auth: a, fields: &loginFields{mode: modeLogin}}
	m.form = m.buildForm()

	return m
}

func (m LoginModel) Title() string { return "Sign in" }

func (m LoginModel) ShortHelp() string {
	return "Tab: next field | Enter: submit | Ctrl+C: quit"
}

func (m LoginModel) buildForm() *huh.Form {
	f := m.fields

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Account").
				Options(
					huh.NewOption("Sign in", modeLogin),
					huh.NewOption("Create account", modeRegister),
				).
				Value(&f.mode),
			huh.NewInput().
				Title("Email").
				Placeholder("you@example.com").
				Value(&f.email).
				Validate(func(s string) error {
					if !strings.Contains(s, "@") {
						return fmt.Errorf("enter an email address")
					}
					return nil
				}),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&f.password).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("password cannot be empty")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Display name").
				Description("Leave empty to use the part of your email before @").
				Value(&f.displayName),
		).WithHideFunc(func() bool { return f.mode != modeRegister }),
	).WithWidth(50).WithShowHelp(false)
}

func (m LoginModel) Init() tea.Cmd {
	return m.form.Init()
}

type loginResultMsg struct {
	err error
}

func (m LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if res, ok := msg.(loginResultMsg); ok {
		m.pending = false
		m.err = res.err

		if res.err != nil {
			// Keep what was typed except the password.
			m.fields.password = ""
			m.form = m.buildForm()

			return m, m.form.Init()
		}

		return m, nil
	}

	if m.pending {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.pending = true
	m.err = nil

	return m, m.submitCmd()
}

func (m LoginModel) submitCmd() tea.Cmd {
	f := *m.fields

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		var err error
		if f.mode == modeRegister {
			_, err = m.auth.Register(ctx, f.email, f.password, f.displayName)
		} else {
			_, err = m.auth.Login(ctx, f.email, f.password)
		}

		return loginResultMsg{err: err}
	}
}

func (m LoginModel) View() string {
	header := lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("Pocketbook")

	body := m.form.View()
	if m.pending {
		body = "Signing in..."
	}

	content := lipgloss.JoinVertical(lipgloss.Left, header, "", body)
	if m.err != nil {
		content = lipgloss.JoinVertical(lipgloss.Left, content, "", errorStyle(fmt.Sprintf("Error: %v", m.err)))
	}

	return lipgloss.NewStyle().Padding(2).Render(content)
}
