package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/pocketbook/internal/currency"
	"github.com/MrJamesThe3rd/pocketbook/internal/transaction"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatText Format = "text"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatText:
		return f, nil
	}

	return "", fmt.Errorf("unknown export format %q", s)
}

// Columns is the header of exported CSV files. The native importer reads the
// same layout back.
var Columns = []string{"date", "title", "type", "category", "amount", "description"}

// Lister is the part of the transaction service exports read from.
type Lister interface {
	List(ctx context.Context, userID string) ([]transaction.Transaction, error)
}

type Service struct {
	transactions Lister
	currency     string
	goal         decimal.Decimal
}

func NewService(transactions Lister, currencyCode string, goal decimal.Decimal) *Service {
	return &Service{transactions: transactions, currency: currencyCode, goal: goal}
}

// Export returns the user's transactions as the given view would show them.
func (s *Service) Export(ctx context.Context, userID string, filters transaction.Filters, sortOpt transaction.SortOption) ([]transaction.Transaction, error) {
	txs, err := s.transactions.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	return transaction.View(txs, filters, sortOpt), nil
}

// Write renders txs in the requested format.
func (s *Service) Write(w io.Writer, format Format, txs []transaction.Transaction) error {
	if format == FormatText {
		_, err := io.WriteString(w, s.Report(txs))
		return err
	}

	return WriteCSV(w, txs)
}

func WriteCSV(w io.Writer, txs []transaction.Transaction) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, tx := range txs {
		record := []string{
			tx.Date.Format(time.DateOnly),
			tx.Title,
			string(tx.Type),
			string(tx.Category),
			tx.Amount.StringFixed(2),
			tx.Description,
		}

		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// Report is a plain-text statement of txs followed by their totals.
func (s *Service) Report(txs []transaction.Transaction) string {
	var sb strings.Builder

	for _, tx := range txs {
		sign := "-"
		if tx.Type == transaction.TypeIncome {
			sign = "+"
		}

		fmt.Fprintf(&sb, "* %s | %s %s | %s%s\n",
			tx.Date.Format(time.DateOnly),
			tx.Category.Icon(),
			tx.Title,
			sign,
			currency.Format(tx.Amount, s.currency),
		)
	}

	m := transaction.Summarize(txs)

	if len(txs) > 0 {
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "Income:   %s\n", currency.Format(m.TotalIncome, s.currency))
	fmt.Fprintf(&sb, "Expenses: %s (%d)\n", currency.Format(m.TotalExpense, s.currency), m.ExpenseCount)
	fmt.Fprintf(&sb, "Balance:  %s\n", currency.Format(m.TotalBalance, s.currency))
	fmt.Fprintf(&sb, "Savings goal: %d%% of %s\n", transaction.GoalProgress(m.TotalBalance, s.goal), currency.Format(s.goal, s.currency))

	return sb.String()
}

// Filename names an export file for the given day.
func Filename(format Format, day time.Time) string {
	ext := "csv"
	if format == FormatText {
		ext = "txt"
	}

	return fmt.Sprintf("transactions_%s.%s", day.Format("20060102"), ext)
}
