package view_test

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/pocketbook/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/pocketbook/internal/importer"
	"github.com/MrJamesThe3rd/pocketbook/internal/matching"
	"github.com/MrJamesThe3rd/pocketbook/internal/transaction"
	"github.com/MrJamesThe3rd/pocketbook/internal/transaction/memstore"
)

const nativeCSV = "date,title,type,category,amount,description\n" +
	"2024-03-01,Rent,EXPENSE,Rent,1000,\n" +
	"2024-03-02,Pay,INCOME,Salary,5000,March\n"

func TestKeptParams(t *testing.T) {
	fresh := []transaction.CreateParams{{Title: "a"}}
	conflicts := []transaction.Conflict{
		{Incoming: transaction.CreateParams{Title: "b"}},
		{Incoming: transaction.CreateParams{Title: "c"}},
	}

	type testCase struct {
		name string
		keep []bool
		want []string
	}

	tests := []testCase{
		{name: "SkipAll", keep: []bool{false, false}, want: []string{"a"}},
		{name: "KeepOne", keep: []bool{false, true}, want: []string{"a", "c"}},
		{name: "KeepAll", keep: []bool{true, true}, want: []string{"a", "b", "c"}},
		{name: "ShortKeep", keep: nil, want: []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := view.KeptParams(fresh, conflicts, tt.keep)

			titles := make([]string, len(got))
			for i, p := range got {
				titles[i] = p.Title
			}

			assert.Equal(t, tt.want, titles)
		})
	}
}

func TestRunImport(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	txSvc := transaction.NewService(store)
	impSvc := importer.NewService(matching.NewService(store))

	result, err := view.RunImport(ctx, impSvc, txSvc, "alice", importer.FormatNative, strings.NewReader(nativeCSV))
	require.NoError(t, err)
	assert.Len(t, result.Imported, 2)
	assert.Empty(t, result.Conflicts)

	// The same file again is all duplicates.
	result, err = view.RunImport(ctx, impSvc, txSvc, "alice", importer.FormatNative, strings.NewReader(nativeCSV))
	require.NoError(t, err)
	assert.Empty(t, result.Imported)
	require.Len(t, result.Conflicts, 2)

	_, err = view.RunImport(ctx, impSvc, txSvc, "alice", importer.FormatNative, strings.NewReader("nope\n"))
	assert.ErrorContains(t, err, "reading file")

	_, err = view.RunImport(ctx, impSvc, txSvc, "", importer.FormatNative, strings.NewReader(nativeCSV))
	assert.ErrorIs(t, err, transaction.ErrAuthRequired)
}

type fakeWriter struct {
	result  *transaction.ImportResult
	created [][]transaction.CreateParams
}

func (w *fakeWriter) ImportBatch(context.Context, string, []transaction.CreateParams) (*transaction.ImportResult, error) {
	return w.result, nil
}

func (w *fakeWriter) CreateBatch(_ context.Context, _ string, params []transaction.CreateParams) ([]*transaction.Transaction, error) {
	w.created = append(w.created, params)
	return make([]*transaction.Transaction, len(params)), nil
}

func TestImportModel_ReviewDuplicates(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	dup := transaction.CreateParams{Title: "Rent", Amount: decimal.NewFromInt(1000), Type: transaction.TypeExpense, Category: transaction.CategoryRent, Date: day}

	writer := &fakeWriter{result: &transaction.ImportResult{
		New: []transaction.CreateParams{{Title: "Pay", Amount: decimal.NewFromInt(5000), Type: transaction.TypeIncome, Category: transaction.CategorySalary, Date: day}},
		Conflicts: []transaction.Conflict{
			{Incoming: dup, Existing: transaction.Transaction{Title: "Rent", Category: transaction.CategoryRent, Date: day}},
		},
	}}

	m := view.NewImportModel(nil, writer, "alice", "INR")

	next, _ := m.Update(view.ImportedMsg(writer.result))
	m = next.(view.ImportModel)

	fresh, conflicts := m.Pending()
	assert.Len(t, fresh, 1)
	require.Len(t, conflicts, 1)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	m = next.(view.ImportModel)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	cmd()

	require.Len(t, writer.created, 1)
	assert.Len(t, writer.created[0], 2)
}
