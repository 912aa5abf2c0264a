package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/pocketbook/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/pocketbook/internal/app"
	"github.com/MrJamesThe3rd/pocketbook/internal/auth"
	"github.com/MrJamesThe3rd/pocketbook/internal/config"
	"github.com/MrJamesThe3rd/pocketbook/internal/logging"
	"github.com/MrJamesThe3rd/pocketbook/internal/mirror"
	"github.com/MrJamesThe3rd/pocketbook/internal/session"
	"github.com/MrJamesThe3rd/pocketbook/internal/transaction"
)

type screen int

const (
	screenLogin screen = iota
	screenDashboard
	screenImport
	screenExport
)

type model struct {
	cfg     *config.Config
	svc     *app.Services
	session *session.Session
	mirror  *mirror.Mirror

	snapshots  <-chan []transaction.Transaction
	identities <-chan *auth.Identity

	identity *auth.Identity
	current  screen
	width    int
	height   int

	loginView     view.LoginModel
	dashboardView view.DashboardModel
	importView    view.ImportModel
	exportView    view.ExportModel
}

func newModel(cfg *config.Config, svc *app.Services, sess *session.Session, m *mirror.Mirror) model {
	snapshots, _ := m.Watch()
	identities, _ := sess.Watch()

	return model{
		cfg:        cfg,
		svc:        svc,
		session:    sess,
		mirror:     m,
		snapshots:  snapshots,
		identities: identities,
		current:    screenLogin,
		loginView:  view.NewLoginModel(sess),
	}
}

func waitForSnapshot(ch <-chan []transaction.Transaction) tea.Cmd {
	return func() tea.Msg {
		txs, ok := <-ch
		if !ok {
			return nil
		}

		return view.SnapshotMsg{Txs: txs}
	}
}

func waitForIdentity(ch <-chan *auth.Identity) tea.Cmd {
	return func() tea.Msg {
		id, ok := <-ch
		if !ok {
			return nil
		}

		return view.IdentityMsg{Identity: id}
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.loginView.Init(),
		waitForSnapshot(m.snapshots),
		waitForIdentity(m.identities),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}

		if m.current == screenDashboard && !m.dashboardView.Capturing() {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "L":
				m.session.Logout()
				return m, nil
			}
		}

	case view.IdentityMsg:
		return m.onIdentity(msg.Identity)

	case view.SnapshotMsg:
		// The dashboard keeps the latest set even while another screen is open.
		dash, _ := m.dashboardView.Update(msg)
		m.dashboardView = dash.(view.DashboardModel)

		return m, waitForSnapshot(m.snapshots)

	case view.OpenImportMsg:
		m.importView = view.NewImportModel(m.svc.Importer, m.svc.Transactions, m.identity.ID, m.cfg.Display.Currency)
		m.current = screenImport

		return m, m.importView.Init()

	case view.OpenExportMsg:
		m.exportView = view.NewExportModel(m.svc.Export, msg.Txs, m.cfg.TUI.ExportDir)
		m.current = screenExport

		return m, m.exportView.Init()

	case view.BackMsg:
		if m.current != screenLogin {
			m.current = screenDashboard
		}

		return m, nil
	}

	return m.updateCurrent(msg)
}

func (m model) onIdentity(id *auth.Identity) (tea.Model, tea.Cmd) {
	m.identity = id
	next := waitForIdentity(m.identities)

	if id == nil {
		removeToken(m.cfg.TUI.TokenFile)

		m.loginView = view.NewLoginModel(m.session)
		m.current = screenLogin

		return m, tea.Batch(next, m.loginView.Init())
	}

	saveToken(m.cfg.TUI.TokenFile, m.session.Token())

	m.dashboardView = view.NewDashboardModel(m.mirror, m.svc.Matching, id, m.cfg.Display.Currency, m.cfg.Display.SavingsGoal)
	m.current = screenDashboard

	// Replay the current set so a mirror that synced before sign-in completed
	// is not missed.
	txs, _, synced := m.mirror.Current()
	if synced {
		dash, _ := m.dashboardView.Update(view.SnapshotMsg{Txs: txs})
		m.dashboardView = dash.(view.DashboardModel)
	}

	if m.width > 0 {
		dash, _ := m.dashboardView.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
		m.dashboardView = dash.(view.DashboardModel)
	}

	return m, tea.Batch(next, m.dashboardView.Init())
}

func (m model) updateCurrent(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.current {
	case screenLogin:
		var next tea.Model
		next, cmd = m.loginView.Update(msg)
		m.loginView = next.(view.LoginModel)
	case screenDashboard:
		var next tea.Model
		next, cmd = m.dashboardView.Update(msg)
		m.dashboardView = next.(view.DashboardModel)
	case screenImport:
		var next tea.Model
		next, cmd = m.importView.Update(msg)
		m.importView = next.(view.ImportModel)
	case screenExport:
		var next tea.Model
		next, cmd = m.exportView.Update(msg)
		m.exportView = next.(view.ExportModel)
	}

	return m, cmd
}

func (m model) active() view.View {
	switch m.current {
	case screenDashboard:
		return m.dashboardView
	case screenImport:
		return m.importView
	case screenExport:
		return m.exportView
	}

	return m.loginView
}

func (m model) View() string {
	v := m.active()

	title := lipgloss.NewStyle().Bold(true).Render(v.Title())

	who := ""
	if m.identity != nil {
		who = lipgloss.NewStyle().Faint(true).Render(fmt.Sprintf("  %s (%s) | %s", m.identity.DisplayName, m.identity.Email, m.mirror.State()))
	}

	help := lipgloss.NewStyle().Faint(true).Render(v.ShortHelp())

	return lipgloss.JoinVertical(lipgloss.Left, title+who, v.View(), help)
}

func saveToken(path, token string) {
	if path == "" || token == "" {
		return
	}

	if err := os.WriteFile(path, []byte(token), 0o600); err != nil {
		slog.Error("failed to save session token", "path", path, "error", err)
	}
}

func removeToken(path string) {
	if path == "" {
		return
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Error("failed to remove session token", "path", path, "error", err)
	}
}

// resume signs back in with the token left by a previous run, if any.
func resume(sess *session.Session, path string) {
	if path == "" {
		return
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Error("failed to read session token", "path", path, "error", err)
		}

		return
	}

	if _, err := sess.Resume(strings.TrimSpace(string(raw))); err != nil {
		slog.Info("stored session expired", "error", err)
		removeToken(path)
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, err := app.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening services: %w", err)
	}
	defer svc.Close()

	sess := session.New(svc.Auth)

	m := mirror.New(svc.Transactions)
	defer m.Close()

	go func() {
		if err := m.Follow(ctx, sess); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("mirror stopped following session", "error", err)
		}
	}()

	resume(sess, cfg.TUI.TokenFile)

	p := tea.NewProgram(newModel(cfg, svc, sess, m), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}

	return nil
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logFile, err := os.OpenFile(cfg.TUI.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	logging.Setup(logFile, cfg.Log.Level, cfg.Log.Format)

	if err := run(cfg); err != nil {
		slog.Error("tui exited", "error", err)
		logFile.Close()
		os.Exit(1)
	}
}
