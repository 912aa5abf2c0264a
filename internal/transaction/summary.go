package transaction

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reference scales for the dashboard trend badges. They are fixed placeholders,
// not historical comparisons.
var (
	balanceTrendScale = decimal.NewFromInt(100000)
	incomeTrendScale  = decimal.NewFromInt(150000)

	hundred = decimal.NewFromInt(100)
)

// DefaultSavingsGoal is the goal shown before the user sets one.
var DefaultSavingsGoal = decimal.NewFromInt(100000)

// Metrics are the summary figures shown on the dashboard cards.
type Metrics struct {
	TotalIncome            decimal.Decimal
	TotalExpense           decimal.Decimal
	TotalBalance           decimal.Decimal
	UniqueIncomeCategories int
	ExpenseCount           int

	// Trend percentages are presentation heuristics against fixed scales.
	BalanceTrend int64
	IncomeTrend  int64
	ExpenseTrend int64
}

// Summarize computes the dashboard metrics for a transaction set.
func Summarize(txs []Transaction) Metrics {
	m := Metrics{
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
	}

	incomeCategories := make(map[Category]struct{})

	for _, tx := range txs {
		switch tx.Type {
		case TypeIncome:
			m.TotalIncome = m.TotalIncome.Add(tx.Amount)
			incomeCategories[tx.Category] = struct{}{}
		case TypeExpense:
			m.TotalExpense = m.TotalExpense.Add(tx.Amount)
			m.ExpenseCount++
		}
	}

	m.TotalBalance = m.TotalIncome.Sub(m.TotalExpense)
	m.UniqueIncomeCategories = len(incomeCategories)

	if m.TotalBalance.IsPositive() {
		m.BalanceTrend = min(percent(m.TotalBalance, balanceTrendScale), 100)
	}

	if m.TotalIncome.IsPositive() {
		m.IncomeTrend = percent(m.TotalIncome, incomeTrendScale)
		m.ExpenseTrend = percent(m.TotalExpense, m.TotalIncome)
	}

	return m
}

// GoalProgress is the share of the savings goal covered by the balance, in
// [0, 100]. A negative balance reads as 0%.
func GoalProgress(balance, goal decimal.Decimal) int64 {
	if !goal.IsPositive() {
		return 0
	}

	return max(min(percent(balance, goal), 100), 0)
}

func percent(part, whole decimal.Decimal) int64 {
	return part.Div(whole).Mul(hundred).Round(0).IntPart()
}

// MonthTotal holds the income and expense booked in one calendar month.
type MonthTotal struct {
	Month   time.Time
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// MonthlyTotals buckets transactions by the month of their date, for the
// given number of months ending with the month containing end.
func MonthlyTotals(txs []Transaction, end time.Time, months int) []MonthTotal {
	if months <= 0 {
		return nil
	}

	last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
	first := last.AddDate(0, -(months - 1), 0)

	out := make([]MonthTotal, months)
	for i := range out {
		out[i] = MonthTotal{
			Month:   first.AddDate(0, i, 0),
			Income:  decimal.Zero,
			Expense: decimal.Zero,
		}
	}

	for _, tx := range txs {
		d := tx.Date.UTC()
		idx := (d.Year()-first.Year())*12 + int(d.Month()) - int(first.Month())

		if idx < 0 || idx >= months {
			continue
		}

		switch tx.Type {
		case TypeIncome:
			out[idx].Income = out[idx].Income.Add(tx.Amount)
		case TypeExpense:
			out[idx].Expense = out[idx].Expense.Add(tx.Amount)
		}
	}

	return out
}
