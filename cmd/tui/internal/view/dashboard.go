package view

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/pocketbook/internal/auth"
	"github.com/MrJamesThe3rd/pocketbook/internal/transaction"
)

// Store is the live transaction set the dashboard reads from and writes to.
// *mirror.Mirror satisfies it.
type Store interface {
	Add(ctx context.Context, params transaction.CreateParams) error
	Update(ctx context.Context, id uuid.UUID, patch transaction.Patch) error
	Remove(ctx context.Context, id uuid.UUID) error
}

type Suggester interface {
	SuggestOrDefault(ctx context.Context, userID, title string) transaction.Category
}

type dashState int

const (
	dashStateBrowse dashState = iota
	dashStateSearch
	dashStateAddTitle
	dashStateAddDetails
	dashStateEdit
	dashStateConfirmDelete
	dashStateGoal
)

const chartMonths = 6

var (
	categoryFilters = append([]transaction.Category{transaction.CategoryAll}, transaction.Categories()...)
	typeFilters     = []transaction.Type{transaction.TypeAll, transaction.TypeIncome, transaction.TypeExpense}
	sortOptions     = transaction.SortOptions()
)

type DashboardModel struct {
	CommonModel
	store     Store
	suggester Suggester
	identity  *auth.Identity
	currency  string
	goal      decimal.Decimal
	now       func() time.Time

	state  dashState
	table  table.Model
	search textinput.Model
	bar    progress.Model
	form   *huh.Form

	txs     []transaction.Transaction
	visible []transaction.Transaction
	synced  bool

	categoryIdx int
	typeIdx     int
	sortIdx     int

	status string
	err    error

	// Form bindings, shared between model copies.
	draft *draft
}

type draft struct {
	id          uuid.UUID
	title       string
	amount      string
	typ         transaction.Type
	category    transaction.Category
	description string
	date        string
	goal        string
}

func NewDashboardModel(store Store, suggester Suggester, id *auth.Identity, currencyCode string, goal decimal.Decimal) DashboardModel {
	columns := []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Title", Width: 28},
		{Title: "Category", Width: 18},
		{Title: "Type", Width: 8},
		{Title: "Amount", Width: 16},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(mutedColor).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	search := textinput.New()
	search.Placeholder = "search titles"
	search.Prompt = "/ "
	search.Width = 30

	return DashboardModel{
		store:     store,
		suggester: suggester,
		identity:  id,
		currency:  currencyCode,
		goal:      goal,
		now:       time.Now,
		table:     t,
		search:    search,
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		draft:     &draft{},
	}
}

func (m DashboardModel) Title() string { return "Dashboard" }

func (m DashboardModel) ShortHelp() string {
	switch m.state {
	case dashStateSearch:
		return "Type to filter | Enter/Esc: done"
	case dashStateAddTitle, dashStateAddDetails, dashStateEdit, dashStateGoal:
		return "Navigate form | Esc: cancel"
	case dashStateConfirmDelete:
		return "y: delete | any other key: cancel"
	}

	return "a: add | e: edit | d: delete | /: search | g: goal | c: category | t: type | s: sort | i: import | x: export | L: log out | q: quit"
}

func (m DashboardModel) Init() tea.Cmd {
	return nil
}

// Filters returns the filters currently selected.
func (m DashboardModel) Filters() transaction.Filters {
	return transaction.Filters{
		Search:   m.search.Value(),
		Category: categoryFilters[m.categoryIdx],
		Type:     typeFilters[m.typeIdx],
	}
}

func (m DashboardModel) Sort() transaction.SortOption {
	return sortOptions[m.sortIdx]
}

// Capturing reports whether keys are going to a form or the search box, so
// global shortcuts must not fire.
func (m DashboardModel) Capturing() bool {
	return m.state != dashStateBrowse
}

// Goal returns the savings goal the progress bar measures against.
func (m DashboardModel) Goal() decimal.Decimal {
	return m.goal
}

// SetGoal replaces the savings goal for the rest of the session.
func (m DashboardModel) SetGoal(s string) (DashboardModel, error) {
	goal, err := transaction.ParseAmount(s)
	if err != nil {
		return m, err
	}

	m.goal = goal
	m.status = "Savings goal set to " + FormatAmount(goal, m.currency)

	return m, nil
}

// Visible returns the rows as currently shown.
func (m DashboardModel) Visible() []transaction.Transaction {
	return m.visible
}

type opResultMsg struct {
	status string
	err    error
}

type suggestionMsg struct {
	category transaction.Category
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case SnapshotMsg:
		m.txs = msg.Txs
		m.synced = true
		m.refresh()

		return m, nil

	case opResultMsg:
		m.err = msg.err
		m.status = msg.status

		return m, nil

	case suggestionMsg:
		if m.state != dashStateAddTitle {
			return m, nil
		}

		m.draft.category = msg.category
		m.form = m.buildDetailsForm()
		m.state = dashStateAddDetails

		return m, m.form.Init()

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.table.SetHeight(max(msg.Height-30, 5))

		return m, nil

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		if b, ok := bar.(progress.Model); ok {
			m.bar = b
		}

		return m, cmd
	}

	switch m.state {
	case dashStateSearch:
		return m.updateSearch(msg)
	case dashStateAddTitle, dashStateAddDetails, dashStateEdit, dashStateGoal:
		return m.updateForm(msg)
	case dashStateConfirmDelete:
		return m.updateConfirmDelete(msg)
	}

	return m.updateBrowse(msg)
}

func (m DashboardModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if ok {
		switch keyMsg.String() {
		case "/":
			m.state = dashStateSearch
			m.table.Blur()

			return m, m.search.Focus()
		case "c":
			m.categoryIdx = (m.categoryIdx + 1) % len(categoryFilters)
			m.refresh()

			return m, nil
		case "t":
			m.typeIdx = (m.typeIdx + 1) % len(typeFilters)
			m.refresh()

			return m, nil
		case "s":
			m.sortIdx = (m.sortIdx + 1) % len(sortOptions)
			m.refresh()

			return m, nil
		case "r":
			m.search.SetValue("")
			m.categoryIdx, m.typeIdx, m.sortIdx = 0, 0, 0
			m.refresh()

			return m, nil
		case "g":
			return m.startGoal()
		case "a":
			return m.startAdd()
		case "e":
			return m.startEdit()
		case "d":
			if _, ok := m.selected(); ok {
				m.state = dashStateConfirmDelete
			}

			return m, nil
		case "i":
			return m, func() tea.Msg { return OpenImportMsg{} }
		case "x":
			txs := m.visible
			return m, func() tea.Msg { return OpenExportMsg{Txs: txs} }
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m DashboardModel) updateSearch(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyEnter, tea.KeyEsc:
			m.state = dashStateBrowse
			m.search.Blur()
			m.table.Focus()

			return m, nil
		}
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.refresh()

	return m, cmd
}

func (m DashboardModel) updateConfirmDelete(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	m.state = dashStateBrowse

	tx, ok := m.selected()
	if !ok || keyMsg.String() != "y" {
		return m, nil
	}

	return m, m.removeCmd(tx)
}

func (m DashboardModel) selected() (transaction.Transaction, bool) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.visible) {
		return transaction.Transaction{}, false
	}

	return m.visible[idx], true
}

// refresh recomputes the visible rows from the last snapshot.
func (m *DashboardModel) refresh() {
	m.visible = transaction.View(m.txs, m.Filters(), m.Sort())

	rows := make([]table.Row, 0, len(m.visible))
	for _, tx := range m.visible {
		sign := "-"
		if tx.Type == transaction.TypeIncome {
			sign = "+"
		}

		rows = append(rows, table.Row{
			FormatDate(tx.Date),
			tx.Title,
			tx.Category.Icon() + " " + string(tx.Category),
			strings.ToLower(string(tx.Type)),
			sign + FormatAmount(tx.Amount, m.currency),
		})
	}

	m.table.SetRows(rows)

	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

func (m DashboardModel) startAdd() (tea.Model, tea.Cmd) {
	*m.draft = draft{typ: transaction.TypeExpense, date: FormatDate(m.now())}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(&m.draft.title).
				Validate(requireText("title")),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = dashStateAddTitle
	m.table.Blur()

	return m, m.form.Init()
}

func (m DashboardModel) startGoal() (tea.Model, tea.Cmd) {
	m.draft.goal = m.goal.StringFixed(2)

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Savings goal").
				Placeholder("0.00").
				Value(&m.draft.goal).
				Validate(func(s string) error {
					_, err := transaction.ParseAmount(s)
					return err
				}),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = dashStateGoal
	m.table.Blur()

	return m, m.form.Init()
}

func (m DashboardModel) startEdit() (tea.Model, tea.Cmd) {
	tx, ok := m.selected()
	if !ok {
		return m, nil
	}

	*m.draft = draft{
		id:          tx.ID,
		title:       tx.Title,
		amount:      tx.Amount.String(),
		typ:         tx.Type,
		category:    tx.Category,
		description: tx.Description,
		date:        FormatDate(tx.Date),
	}

	m.form = m.buildDetailsForm()
	m.state = dashStateEdit
	m.table.Blur()

	return m, m.form.Init()
}

// buildDetailsForm asks for everything but the title, which the add flow
// collects first to look up a category suggestion.
func (m DashboardModel) buildDetailsForm() *huh.Form {
	d := m.draft

	categories := make([]huh.Option[transaction.Category], 0, len(transaction.Categories()))
	for _, c := range transaction.Categories() {
		categories = append(categories, huh.NewOption(c.Icon()+" "+string(c), c))
	}

	fields := []huh.Field{
		huh.NewInput().
			Title("Amount").
			Placeholder("0.00").
			Value(&d.amount).
			Validate(func(s string) error {
				_, err := transaction.ParseAmount(s)
				return err
			}),
	}

	if d.id == uuid.Nil {
		fields = append(fields, huh.NewSelect[transaction.Type]().
			Title("Type").
			Options(
				huh.NewOption("Expense", transaction.TypeExpense),
				huh.NewOption("Income", transaction.TypeIncome),
			).
			Value(&d.typ))
	}

	fields = append(fields,
		huh.NewSelect[transaction.Category]().
			Title("Category").
			Options(categories...).
			Value(&d.category),
		huh.NewInput().
			Title("Description").
			Value(&d.description),
		huh.NewInput().
			Title("Date").
			Placeholder("YYYY-MM-DD").
			Value(&d.date).
			Validate(func(s string) error {
				if _, err := time.Parse(time.DateOnly, s); err != nil {
					return fmt.Errorf("use YYYY-MM-DD")
				}
				return nil
			}),
	)

	if d.id != uuid.Nil {
		fields = append([]huh.Field{
			huh.NewInput().
				Title("Title").
				Value(&d.title).
				Validate(requireText("title")),
		}, fields...)
	}

	return huh.NewForm(huh.NewGroup(fields...)).WithWidth(45).WithShowHelp(false)
}

func requireText(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s cannot be empty", field)
		}
		return nil
	}
}

func (m DashboardModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		return m.closeForm(), nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	switch m.state {
	case dashStateAddTitle:
		return m, m.suggestCmd(m.draft.title)
	case dashStateAddDetails:
		params, err := m.draft.createParams()
		m = m.closeForm()

		if err != nil {
			m.err = err
			return m, nil
		}

		return m, m.addCmd(params)
	case dashStateEdit:
		id := m.draft.id
		patch, err := m.draft.patch()
		m = m.closeForm()

		if err != nil {
			m.err = err
			return m, nil
		}

		return m, m.updateCmd(id, patch)
	case dashStateGoal:
		input := m.draft.goal
		m = m.closeForm()

		next, err := m.SetGoal(input)
		next.err = err

		return next, nil
	}

	return m, cmd
}

func (m DashboardModel) closeForm() DashboardModel {
	m.state = dashStateBrowse
	m.form = nil
	m.table.Focus()

	return m
}

func (d draft) createParams() (transaction.CreateParams, error) {
	amount, err := transaction.ParseAmount(d.amount)
	if err != nil {
		return transaction.CreateParams{}, err
	}

	date, err := time.Parse(time.DateOnly, d.date)
	if err != nil {
		return transaction.CreateParams{}, &transaction.ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}

	return transaction.CreateParams{
		Title:       d.title,
		Amount:      amount,
		Type:        d.typ,
		Category:    d.category,
		Description: d.description,
		Date:        date,
	}, nil
}

func (d draft) patch() (transaction.Patch, error) {
	p, err := d.createParams()
	if err != nil {
		return transaction.Patch{}, err
	}

	return transaction.Patch{
		Title:       &p.Title,
		Amount:      &p.Amount,
		Category:    &p.Category,
		Description: &p.Description,
		Date:        &p.Date,
	}, nil
}

// Commands

func (m DashboardModel) suggestCmd(title string) tea.Cmd {
	userID := m.identity.ID

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		return suggestionMsg{category: m.suggester.SuggestOrDefault(ctx, userID, title)}
	}
}

func (m DashboardModel) addCmd(params transaction.CreateParams) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		if err := m.store.Add(ctx, params); err != nil {
			return opResultMsg{err: err}
		}

		return opResultMsg{status: fmt.Sprintf("Added %q", strings.TrimSpace(params.Title))}
	}
}

func (m DashboardModel) updateCmd(id uuid.UUID, patch transaction.Patch) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		if err := m.store.Update(ctx, id, patch); err != nil {
			return opResultMsg{err: err}
		}

		return opResultMsg{status: "Saved"}
	}
}

func (m DashboardModel) removeCmd(tx transaction.Transaction) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		if err := m.store.Remove(ctx, tx.ID); err != nil {
			return opResultMsg{err: err}
		}

		return opResultMsg{status: fmt.Sprintf("Deleted %q", tx.Title)}
	}
}

// Rendering

func (m DashboardModel) View() string {
	name := "signed out"
	if m.identity != nil {
		name = m.identity.DisplayName
	}

	header := lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("Pocketbook") +
		lipgloss.NewStyle().Foreground(mutedColor).Render("  "+name)

	if !m.synced {
		return lipgloss.NewStyle().Padding(1).Render(header + "\n\nLoading transactions...")
	}

	metrics := transaction.Summarize(m.txs)

	sections := []string{
		header,
		renderCards(metrics, m.currency),
		m.renderGoal(metrics),
		renderMonthly(transaction.MonthlyTotals(m.txs, m.now(), chartMonths), m.currency),
		m.renderFilters(),
		lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(mutedColor).
			Render(m.table.View()),
	}

	if len(m.visible) == 0 {
		sections = append(sections, lipgloss.NewStyle().Faint(true).Render("No transactions match the current filters."))
	}

	switch {
	case m.err != nil:
		sections = append(sections, errorStyle(fmt.Sprintf("Error: %v", m.err)))
	case m.status != "":
		sections = append(sections, lipgloss.NewStyle().Faint(true).Render(m.status))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	if panel := m.renderPanel(); panel != "" {
		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m DashboardModel) renderFilters() string {
	search := m.search.Value()
	if m.state == dashStateSearch {
		search = m.search.View()
	} else if search == "" {
		search = "-"
	}

	return lipgloss.NewStyle().PaddingTop(1).Render(fmt.Sprintf(
		"[/] Search: %s | [c] Category: %s | [t] Type: %s | [s] Sort: %s",
		activeStyle(search),
		activeStyle(string(categoryFilters[m.categoryIdx])),
		activeStyle(string(typeFilters[m.typeIdx])),
		activeStyle(string(sortOptions[m.sortIdx])),
	))
}

func (m DashboardModel) renderGoal(metrics transaction.Metrics) string {
	pct := transaction.GoalProgress(metrics.TotalBalance, m.goal)

	return fmt.Sprintf("Savings goal %s  %s %d%%",
		FormatAmount(m.goal, m.currency),
		m.bar.ViewAs(float64(pct)/100),
		pct,
	)
}

func (m DashboardModel) renderPanel() string {
	var title, body string

	switch m.state {
	case dashStateAddTitle, dashStateAddDetails:
		title, body = "Add Transaction", m.form.View()
		if m.state == dashStateAddDetails {
			title = fmt.Sprintf("Add Transaction\n\n%s", m.draft.title)
		}
	case dashStateEdit:
		title, body = "Edit Transaction", m.form.View()
	case dashStateGoal:
		title, body = "Savings Goal", m.form.View()
	case dashStateConfirmDelete:
		tx, ok := m.selected()
		if !ok {
			return ""
		}

		title = "Delete Transaction"
		body = fmt.Sprintf("%s  %s\n\nDelete it? (y/N)", tx.Title, FormatAmount(tx.Amount, m.currency))
	default:
		return ""
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Width(48).
		Render(title + "\n\n" + body)
}
