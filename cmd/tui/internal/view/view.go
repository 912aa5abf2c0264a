package view

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/MrJamesThe3rd/pocketbook/internal/auth"
	"github.com/MrJamesThe3rd/pocketbook/internal/transaction"
)

// View is the interface that all TUI screens implement.
type View interface {
	tea.Model
	Title() string
	ShortHelp() string
}

// CommonModel is embedded by all views.
type CommonModel struct {
	Width  int
	Height int
}

type BackMsg struct{}

func Back() tea.Msg {
	return BackMsg{}
}

// SnapshotMsg carries a new transaction set from the live mirror.
type SnapshotMsg struct {
	Txs []transaction.Transaction
}

// IdentityMsg reports a sign-in or sign-out. Identity is nil when signed out.
type IdentityMsg struct {
	Identity *auth.Identity
}

// OpenImportMsg and OpenExportMsg ask the root model to switch screens.
type OpenImportMsg struct{}

type OpenExportMsg struct {
	Txs []transaction.Transaction
}
