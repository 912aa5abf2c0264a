package export_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/pocketbook/internal/export"
	"github.com/MrJamesThe3rd/pocketbook/internal/transaction"
)

type listerFunc func(ctx context.Context, userID string) ([]transaction.Transaction, error)

func (f listerFunc) List(ctx context.Context, userID string) ([]transaction.Transaction, error) {
	return f(ctx, userID)
}

func fixtures() []transaction.Transaction {
	return []transaction.Transaction{
		{
			Title: "Rent", Amount: decimal.NewFromInt(1000), Type: transaction.TypeExpense,
			Category: transaction.CategoryRent, Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			CreatedAt: time.Unix(1, 0),
		},
		{
			Title: "Pay, March", Amount: decimal.NewFromInt(5000), Type: transaction.TypeIncome,
			Category: transaction.CategorySalary, Description: "net", Date: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
			CreatedAt: time.Unix(2, 0),
		},
	}
}

func newService(list listerFunc) *export.Service {
	return export.NewService(list, "USD", decimal.NewFromInt(100000))
}

func TestService_ExportAppliesView(t *testing.T) {
	svc := newService(func(_ context.Context, userID string) ([]transaction.Transaction, error) {
		assert.Equal(t, "alice", userID)
		return fixtures(), nil
	})

	filters := transaction.DefaultFilters()
	filters.Type = transaction.TypeIncome

	got, err := svc.Export(context.Background(), "alice", filters, transaction.SortNewest)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Pay, March", got[0].Title)
}

func TestService_ExportError(t *testing.T) {
	svc := newService(func(context.Context, string) ([]transaction.Transaction, error) {
		return nil, transaction.ErrAuthRequired
	})

	_, err := svc.Export(context.Background(), "", transaction.DefaultFilters(), transaction.SortNewest)
	assert.True(t, errors.Is(err, transaction.ErrAuthRequired))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, fixtures()))

	want := "date,title,type,category,amount,description\n" +
		"2024-03-01,Rent,EXPENSE,Rent,1000.00,\n" +
		"2024-03-02,\"Pay, March\",INCOME,Salary,5000.00,net\n"
	assert.Equal(t, want, buf.String())
}

func TestService_Report(t *testing.T) {
	report := newService(nil).Report(fixtures())

	assert.Contains(t, report, "* 2024-03-01 | 🏠 Rent | -$1,000.00\n")
	assert.Contains(t, report, "* 2024-03-02 | 💰 Pay, March | +$5,000.00\n")
	assert.Contains(t, report, "Balance:  $4,000.00\n")
	assert.Contains(t, report, "Savings goal: 4% of $100,000.00\n")
}

func TestParseFormat(t *testing.T) {
	f, err := export.ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, export.FormatCSV, f)

	f, err = export.ParseFormat("TEXT")
	require.NoError(t, err)
	assert.Equal(t, export.FormatText, f)

	_, err = export.ParseFormat("pdf")
	assert.Error(t, err)

	assert.Equal(t, "transactions_20240309.txt", export.Filename(export.FormatText, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)))
}
