package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/pocketbook/internal/currency"
	"github.com/MrJamesThe3rd/pocketbook/internal/transaction"
)

const barWidth = 30

var cardStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.RoundedBorder()).
	BorderForeground(mutedColor).
	Padding(0, 2).
	Width(30)

func renderCards(m transaction.Metrics, code string) string {
	balance := card("Balance", FormatAmount(m.TotalBalance, code),
		fmt.Sprintf("%d%% of reference", m.BalanceTrend), balanceColor(m.TotalBalance))

	income := card("Income", FormatAmount(m.TotalIncome, code),
		fmt.Sprintf("%d sources · %d%%", m.UniqueIncomeCategories, m.IncomeTrend), incomeColor)

	expense := card("Expenses", FormatAmount(m.TotalExpense, code),
		fmt.Sprintf("%d entries · %d%% of income", m.ExpenseCount, m.ExpenseTrend), expenseColor)

	return lipgloss.JoinHorizontal(lipgloss.Top, balance, income, expense)
}

func balanceColor(balance decimal.Decimal) lipgloss.Color {
	if balance.IsNegative() {
		return expenseColor
	}

	return incomeColor
}

func card(title, value, detail string, color lipgloss.Color) string {
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Faint(true).Render(title),
		lipgloss.NewStyle().Bold(true).Foreground(color).Render(value),
		lipgloss.NewStyle().Faint(true).Render(detail),
	))
}

// renderMonthly draws one income and one expense bar per month, scaled to
// the largest figure shown.
func renderMonthly(months []transaction.MonthTotal, code string) string {
	peak := decimal.Zero
	for _, mt := range months {
		peak = decimal.Max(peak, mt.Income, mt.Expense)
	}

	var sb strings.Builder

	sb.WriteString(lipgloss.NewStyle().Faint(true).Render("Last months"))
	sb.WriteString("\n")

	for _, mt := range months {
		fmt.Fprintf(&sb, "%s %s %s\n",
			mt.Month.Format("Jan 06"),
			bar(mt.Income, peak, incomeColor),
			currency.Compact(mt.Income, code),
		)
		fmt.Fprintf(&sb, "       %s %s\n",
			bar(mt.Expense, peak, expenseColor),
			currency.Compact(mt.Expense, code),
		)
	}

	return lipgloss.NewStyle().PaddingTop(1).Render(strings.TrimRight(sb.String(), "\n"))
}

func bar(v, peak decimal.Decimal, color lipgloss.Color) string {
	n := 0
	if peak.IsPositive() {
		n = int(v.Div(peak).Mul(decimal.NewFromInt(barWidth)).Round(0).IntPart())
	}

	if n == 0 && v.IsPositive() {
		n = 1
	}

	return lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", n)) +
		strings.Repeat(" ", barWidth-n)
}
