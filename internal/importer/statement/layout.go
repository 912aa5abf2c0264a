package statement

// amountStyle is how a layout encodes the money column(s).
type amountStyle int

const (
	// signedAmount is one column where negative values are debits.
	signedAmount amountStyle = iota
	// debitCredit is a pair of unsigned columns, one filled per row.
	debitCredit
)

// Layout names the columns of one bank statement export.
type Layout struct {
	Name      string
	DateCol   string
	TitleCol  string
	Style     amountStyle
	AmountCol string
	DebitCol  string
	CreditCol string
}

func (l Layout) columns() []string {
	cols := []string{l.DateCol, l.TitleCol}
	if l.Style == debitCredit {
		return append(cols, l.DebitCol, l.CreditCol)
	}

	return append(cols, l.AmountCol)
}

// layouts is tried in order; put layouts whose columns are a superset of
// another's first.
var layouts = []Layout{
	{
		Name:      "card",
		DateCol:   "Date",
		TitleCol:  "Description",
		Style:     debitCredit,
		DebitCol:  "Debit",
		CreditCol: "Credit",
	},
	{
		Name:      "account",
		DateCol:   "Date",
		TitleCol:  "Description",
		AmountCol: "Amount",
	},
	{
		Name:      "cartão",
		DateCol:   "Data",
		TitleCol:  "Descrição",
		Style:     debitCredit,
		DebitCol:  "Débito",
		CreditCol: "Crédito",
	},
	{
		Name:      "extrato",
		DateCol:   "Data mov.",
		TitleCol:  "Descrição",
		AmountCol: "Movimento",
	},
	{
		Name:      "conta",
		DateCol:   "Data mov.",
		TitleCol:  "Descrição",
		AmountCol: "Montante",
	},
}
