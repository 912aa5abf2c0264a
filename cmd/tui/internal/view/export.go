package view

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/pocketbook/internal/export"
	"github.com/MrJamesThe3rd/pocketbook/internal/transaction"
)

type exportState int

const (
	exportStateForm exportState = iota
	exportStateExporting
	exportStateResult
)

// ExportModel writes the rows the dashboard was showing to a file.
type ExportModel struct {
	CommonModel
	exportService *export.Service
	txs           []transaction.Transaction
	now           func() time.Time

	state   exportState
	err     error
	form    *huh.Form
	spinner spinner.Model
	written string

	opts *exportOptions
}

type exportOptions struct {
	format export.Format
	dir    string
}

func NewExportModel(svc *export.Service, txs []transaction.Transaction, dir string) ExportModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(accentColor)

	m := ExportModel{
		exportService: svc,
		txs:           txs,
		now:           time.Now,
		spinner:       s,
		opts:          &exportOptions{format: export.FormatCSV, dir: dir},
	}
	m.form = m.buildForm()

	return m
}

func (m ExportModel) Title() string { return "Export Transactions" }

func (m ExportModel) ShortHelp() string {
	switch m.state {
	case exportStateResult:
		return "Esc: back to dashboard"
	case exportStateExporting:
		return "Exporting..."
	}
	return "Esc: back | Enter: confirm"
}

func (m ExportModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m ExportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m.state {
	case exportStateForm:
		return m.updateForm(msg)
	case exportStateExporting:
		return m.updateExporting(msg)
	case exportStateResult:
		return m.updateResult(msg)
	}

	return m, nil
}

func (m ExportModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		return m, Back
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.state = exportStateExporting
	m.err = nil

	return m, tea.Batch(m.spinner.Tick, m.runExportCmd(*m.opts))
}

func (m ExportModel) updateExporting(msg tea.Msg) (tea.Model, tea.Cmd) {
	if result, ok := msg.(exportResultMsg); ok {
		m.state = exportStateResult
		m.err = result.err
		m.written = result.path

		return m, nil
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)

	return m, cmd
}

func (m ExportModel) updateResult(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		return m, Back
	}

	return m, nil
}

func (m ExportModel) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[export.Format]().
				Title("Format").
				Options(
					huh.NewOption("CSV (re-importable)", export.FormatCSV),
					huh.NewOption("Text report", export.FormatText),
				).
				Value(&m.opts.format),
			huh.NewInput().
				Title("Output directory").
				Description("Directory will be created if it doesn't exist").
				Placeholder("exports").
				Value(&m.opts.dir),
		),
	).WithWidth(50).WithShowHelp(false)
}

func (m ExportModel) View() string {
	switch m.state {
	case exportStateForm:
		return lipgloss.NewStyle().Padding(1).Render(
			fmt.Sprintf("Exporting %d transactions from the current view\n\n%s", len(m.txs), m.form.View()),
		)

	case exportStateExporting:
		return lipgloss.NewStyle().Padding(1).Render(
			fmt.Sprintf("%s Writing file...", m.spinner.View()),
		)

	case exportStateResult:
		return m.viewResult()
	}

	return ""
}

func (m ExportModel) viewResult() string {
	if m.err != nil {
		return lipgloss.NewStyle().Padding(1).Render(errorStyle(fmt.Sprintf("Error: %v", m.err)))
	}

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(incomeColor).
		Render("Export Complete!")

	return lipgloss.NewStyle().Padding(1).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header,
			"",
			fmt.Sprintf("Wrote %d transactions to %s", len(m.txs), m.written),
		),
	)
}

type exportResultMsg struct {
	path string
	err  error
}

func (m ExportModel) runExportCmd(opts exportOptions) tea.Cmd {
	txs := m.txs
	day := m.now()

	return func() tea.Msg {
		path, err := writeExport(m.exportService, opts, txs, day)
		return exportResultMsg{path: path, err: err}
	}
}

func writeExport(svc *export.Service, opts exportOptions, txs []transaction.Transaction, day time.Time) (string, error) {
	dir := opts.dir
	if dir == "" {
		dir = "."
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}

	path := filepath.Join(dir, export.Filename(opts.format, day))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating export file: %w", err)
	}

	if err := svc.Write(f, opts.format, txs); err != nil {
		f.Close()
		return "", fmt.Errorf("writing export: %w", err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing export file: %w", err)
	}

	return path, nil
}
