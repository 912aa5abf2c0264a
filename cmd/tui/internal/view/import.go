package view

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/pocketbook/internal/importer"
	"github.com/MrJamesThe3rd/pocketbook/internal/transaction"
)

const importTimeout = 2 * time.Minute

// Importer turns a file into transactions for a user.
type Importer interface {
	Import(ctx context.Context, userID string, format importer.Format, r io.Reader) ([]transaction.CreateParams, error)
}

// BatchWriter stores imported rows. *transaction.Service satisfies it.
type BatchWriter interface {
	ImportBatch(ctx context.Context, userID string, params []transaction.CreateParams) (*transaction.ImportResult, error)
	CreateBatch(ctx context.Context, userID string, params []transaction.CreateParams) ([]*transaction.Transaction, error)
}

type importStep int

const (
	importStepFormat importStep = iota
	importStepFile
	importStepRunning
	importStepReview
	importStepDone
)

type ImportModel struct {
	CommonModel
	parser   Importer
	writer   BatchWriter
	userID   string
	currency string

	step   importStep
	form   *huh.Form
	format *importer.Format
	picker filepicker.Model

	pending   []transaction.CreateParams
	conflicts []transaction.Conflict
	keep      []bool
	review    table.Model

	imported int
	err      error
}

func NewImportModel(parser Importer, writer BatchWriter, userID, currencyCode string) ImportModel {
	picker := filepicker.New()
	picker.CurrentDirectory, _ = os.Getwd()
	picker.AllowedTypes = []string{".csv", ".txt"}
	picker.SetHeight(15)

	m := ImportModel{
		parser:   parser,
		writer:   writer,
		userID:   userID,
		currency: currencyCode,
		format:   new(importer.FormatNative),
		picker:   picker,
	}
	m.form = m.buildForm()

	return m
}

func (m ImportModel) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[importer.Format]().
				Title("What kind of file?").
				Options(
					huh.NewOption("Pocketbook export (CSV)", importer.FormatNative),
					huh.NewOption("Bank statement (CSV)", importer.FormatStatement),
				).
				Value(m.format),
		),
	).WithWidth(50).WithShowHelp(false)
}

func (m ImportModel) Title() string { return "Import Transactions" }

func (m ImportModel) ShortHelp() string {
	switch m.step {
	case importStepReview:
		return "Space: keep/skip duplicate | a: keep all | n: skip all | Enter: import | Esc: cancel"
	case importStepRunning:
		return "Importing..."
	}

	return "Esc: back | Enter: select"
}

func (m ImportModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.back()
		}

	case importedMsg:
		return m.onImported(msg), nil

	case confirmedMsg:
		m.step = importStepDone
		m.imported, m.err = msg.count, msg.err

		return m, nil
	}

	switch m.step {
	case importStepFormat:
		return m.updateForm(msg)
	case importStepFile:
		return m.updatePicker(msg)
	case importStepReview:
		return m.updateReview(msg)
	}

	return m, nil
}

func (m ImportModel) back() (tea.Model, tea.Cmd) {
	switch m.step {
	case importStepFormat, importStepDone:
		return m, Back
	case importStepRunning:
		return m, nil
	}

	// Start over from the format choice.
	m.step = importStepFormat
	m.pending, m.conflicts, m.keep = nil, nil, nil
	m.form = m.buildForm()

	return m, m.form.Init()
}

func (m ImportModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.step = importStepFile

	return m, m.picker.Init()
}

func (m ImportModel) updatePicker(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	if ok, path := m.picker.DidSelectFile(msg); ok {
		m.step = importStepRunning
		return m, m.importCmd(path)
	}

	return m, cmd
}

func (m ImportModel) onImported(msg importedMsg) ImportModel {
	if msg.err != nil {
		m.step = importStepDone
		m.err = msg.err

		return m
	}

	if len(msg.result.Conflicts) == 0 {
		m.step = importStepDone
		m.imported = len(msg.result.Imported)

		return m
	}

	m.step = importStepReview
	m.pending = msg.result.New
	m.conflicts = msg.result.Conflicts
	m.keep = make([]bool, len(m.conflicts))
	m.review = m.buildReview()

	return m
}

func (m ImportModel) buildReview() table.Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Keep", Width: 5},
			{Title: "Date", Width: 12},
			{Title: "Incoming", Width: 26},
			{Title: "Amount", Width: 14},
			{Title: "Already stored as", Width: 26},
		}),
		table.WithFocused(true),
		table.WithHeight(min(len(m.conflicts)+1, 15)),
	)
	t.SetRows(m.reviewRows())

	return t
}

func (m ImportModel) reviewRows() []table.Row {
	rows := make([]table.Row, len(m.conflicts))

	for i, c := range m.conflicts {
		mark := "[ ]"
		if m.keep[i] {
			mark = "[x]"
		}

		rows[i] = table.Row{
			mark,
			FormatDate(c.Incoming.Date),
			c.Incoming.Title,
			FormatAmount(c.Incoming.Amount, m.currency),
			fmt.Sprintf("%s (%s)", c.Existing.Title, c.Existing.Category),
		}
	}

	return rows
}

func (m ImportModel) updateReview(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case " ":
			if i := m.review.Cursor(); i >= 0 && i < len(m.keep) {
				m.keep = append([]bool(nil), m.keep...)
				m.keep[i] = !m.keep[i]
			}

			m.review.SetRows(m.reviewRows())

			return m, nil
		case "a", "n":
			m.keep = make([]bool, len(m.conflicts))
			for i := range m.keep {
				m.keep[i] = keyMsg.String() == "a"
			}

			m.review.SetRows(m.reviewRows())

			return m, nil
		case "enter":
			m.step = importStepRunning
			return m, m.confirmCmd(KeptParams(m.pending, m.conflicts, m.keep))
		}
	}

	var cmd tea.Cmd
	m.review, cmd = m.review.Update(msg)

	return m, cmd
}

// Pending returns the rows waiting on review: the non-duplicates and the
// possible duplicates.
func (m ImportModel) Pending() ([]transaction.CreateParams, []transaction.Conflict) {
	return m.pending, m.conflicts
}

// Result reports how many rows the finished import stored.
func (m ImportModel) Result() (int, error) {
	return m.imported, m.err
}

// KeptParams returns the rows to store after review: every non-duplicate plus
// the duplicates the user chose to keep.
func KeptParams(fresh []transaction.CreateParams, conflicts []transaction.Conflict, keep []bool) []transaction.CreateParams {
	out := make([]transaction.CreateParams, 0, len(fresh)+len(conflicts))
	out = append(out, fresh...)

	for i, c := range conflicts {
		if i < len(keep) && keep[i] {
			out = append(out, c.Incoming)
		}
	}

	return out
}

func (m ImportModel) View() string {
	style := lipgloss.NewStyle().Padding(1)

	switch m.step {
	case importStepFormat:
		return style.Render(m.form.View())
	case importStepFile:
		return style.Render(fmt.Sprintf("Pick a %s file:\n\n%s", *m.format, m.picker.View()))
	case importStepRunning:
		return style.Render("Importing...")
	case importStepReview:
		header := fmt.Sprintf("%d rows are new. %d look like transactions you already have; choose which to import anyway.",
			len(m.pending), len(m.conflicts))

		return style.Render(lipgloss.JoinVertical(lipgloss.Left, header, "", m.review.View()))
	}

	if m.err != nil {
		return style.Render(errorStyle(fmt.Sprintf("Import failed: %v", m.err)) + "\n\n(Esc to go back)")
	}

	done := lipgloss.NewStyle().Foreground(incomeColor).Render(fmt.Sprintf("Imported %d transactions.", m.imported))

	return style.Render(done + "\n\n(Esc to go back)")
}

type importedMsg struct {
	result *transaction.ImportResult
	err    error
}

type confirmedMsg struct {
	count int
	err   error
}

func (m ImportModel) importCmd(path string) tea.Cmd {
	format := *m.format

	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return importedMsg{err: err}
		}
		defer f.Close()

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		result, err := RunImport(ctx, m.parser, m.writer, m.userID, format, f)

		return importedMsg{result: result, err: err}
	}
}

// RunImport parses r and stores every row that does not look like a
// duplicate. Possible duplicates come back in the result for review.
func RunImport(ctx context.Context, parser Importer, writer BatchWriter, userID string, format importer.Format, r io.Reader) (*transaction.ImportResult, error) {
	params, err := parser.Import(ctx, userID, format, r)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	result, err := writer.ImportBatch(ctx, userID, params)
	if err != nil {
		return nil, fmt.Errorf("storing rows: %w", err)
	}

	return result, nil
}

func (m ImportModel) confirmCmd(params []transaction.CreateParams) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		txs, err := m.writer.CreateBatch(ctx, m.userID, params)

		return confirmedMsg{count: len(txs), err: err}
	}
}
