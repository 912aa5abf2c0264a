package statement_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/MrJamesThe3rd/pocketbook/internal/importer/statement"
	"github.com/MrJamesThe3rd/pocketbook/internal/transaction"
)

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestParser_Layouts(t *testing.T) {
	type want struct {
		date   time.Time
		title  string
		amount string
		typ    transaction.Type
	}

	type testCase struct {
		name  string
		input string
		want  []want
	}

	tests := []testCase{
		{
			name: "AccountWithPreamble",
			input: `Consultar saldos e movimentos à ordem - 31-01-2026;"=""0000"""
Nome cliente;JOHN DOE

Data mov.;Data-valor;Descrição;Montante;Saldo contabilístico após movimento
30-01-2026;30-01-2026;INSTITUTO GESTAO FINA;-588,74;48.825,46
09-01-2026;09-01-2026;TFI Wise;8.608,52;52.532,78
`,
			want: []want{
				{day(2026, 1, 30), "INSTITUTO GESTAO FINA", "588.74", transaction.TypeExpense},
				{day(2026, 1, 9), "TFI Wise", "8608.52", transaction.TypeIncome},
			},
		},
		{
			name: "ExtratoPaddedHeaders",
			input: `Data mov. ;Data valor ;Origem ;Descrição ;Movimento ;Estorno ;
13-02-2026;13-02-2026;"=""0003""";PAGAMENTO TSU ;-608,13;  ;
`,
			want: []want{
				{day(2026, 2, 13), "PAGAMENTO TSU", "608.13", transaction.TypeExpense},
			},
		},
		{
			name: "CardDebitAndCredit",
			input: `Data ;Data valor ;Descrição ;Débito ;Crédito ;
16-12-2025 ;14-12-2025 ;UBER   *TRIP ;47,91 ; ;
17-12-2025 ;15-12-2025 ;REFUND AMAZON ;  ;25,00 ;
 ; ; ; ;Página 1/2 ;
`,
			want: []want{
				{day(2025, 12, 16), "UBER   *TRIP", "47.91", transaction.TypeExpense},
				{day(2025, 12, 17), "REFUND AMAZON", "25", transaction.TypeIncome},
			},
		},
		{
			name: "EnglishAccount",
			input: `Date;Description;Amount
2024-03-01;Salary March;2500.00
01/03/2024;Coffee;-3.20
`,
			want: []want{
				{day(2024, 3, 1), "Salary March", "2500", transaction.TypeIncome},
				{day(2024, 3, 1), "Coffee", "3.2", transaction.TypeExpense},
			},
		},
		{
			name: "LargeAmount",
			input: `Data mov.;Descrição;Montante
30-01-2026;BIG TRANSFER;-1.234.567,89
`,
			want: []want{
				{day(2026, 1, 30), "BIG TRANSFER", "1234567.89", transaction.TypeExpense},
			},
		},
		{
			name: "SkipsFootersAndZeroRows",
			input: `Data mov.;Descrição;Montante
30-01-2026;TEST;-10,00
31-01-2026;NOTHING;0,00
Totais;;;;
`,
			want: []want{
				{day(2026, 1, 30), "TEST", "10", transaction.TypeExpense},
			},
		},
		{
			name:  "HeaderOnly",
			input: `Data mov.;Data-valor;Descrição;Montante`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := statement.NewParser().Parse(strings.NewReader(tt.input))
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))

			for i, w := range tt.want {
				assert.Equal(t, w.date, got[i].Date)
				assert.Equal(t, w.title, got[i].Title)
				assert.True(t, amt(w.amount).Equal(got[i].Amount), "row %d amount %s", i, got[i].Amount)
				assert.Equal(t, w.typ, got[i].Type)
				assert.Empty(t, got[i].Category)
			}
		})
	}
}

func TestParser_Latin1(t *testing.T) {
	latin1, err := charmap.Windows1252.NewEncoder().Bytes([]byte("Data mov.;Descrição;Montante\n30-01-2026;CAFÉ CENTRAL;-10,00\n"))
	require.NoError(t, err)

	got, err := statement.NewParser().Parse(bytes.NewReader(latin1))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "CAFÉ CENTRAL", got[0].Title)
}

func TestParser_Errors(t *testing.T) {
	_, err := statement.NewParser().Parse(strings.NewReader(""))
	assert.ErrorIs(t, err, statement.ErrUnknownLayout)

	_, err = statement.NewParser().Parse(strings.NewReader("Data mov.;Descrição;Montante\n30-01-2026;;-10,00\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2: missing description")
}
