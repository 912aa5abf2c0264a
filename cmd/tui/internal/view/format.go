package view

import (
	"context"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/pocketbook/internal/currency"
)

const dbTimeout = 5 * time.Second

var (
	incomeColor  = lipgloss.Color("42")
	expenseColor = lipgloss.Color("203")
	accentColor  = lipgloss.Color("205")
	mutedColor   = lipgloss.Color("240")
	errorColor   = lipgloss.Color("196")
)

// FormatAmount formats an amount in the display currency.
func FormatAmount(amount decimal.Decimal, code string) string {
	return currency.Format(amount, code)
}

// FormatDate formats a time.Time into YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

// DbCtx returns a context with a standard timeout for database operations.
func DbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}

func activeStyle(s string) string {
	return lipgloss.NewStyle().Foreground(accentColor).Render(s)
}

func errorStyle(s string) string {
	return lipgloss.NewStyle().Foreground(errorColor).Render(s)
}
