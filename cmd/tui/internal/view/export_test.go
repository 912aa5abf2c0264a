package view

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/MrJamesThe3rd/pocketbook/internal/transaction"
)

// ImportedMsg builds the message the import command sends when it finishes.
func ImportedMsg(result *transaction.ImportResult) tea.Msg {
	return importedMsg{result: result}
}
