// Package statement reads bank statement CSV exports. The column layout is
// detected from the header row, which may follow any number of preamble rows.
package statement

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	enc "github.com/MrJamesThe3rd/pocketbook/internal/encoding"
	"github.com/MrJamesThe3rd/pocketbook/internal/transaction"
)

var ErrUnknownLayout = errors.New("no known statement layout found")

var dateLayouts = []string{"02-01-2006", "02/01/2006", time.DateOnly}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse returns one CreateParams per statement row. Category is left empty
// for the caller to fill in.
func (p *Parser) Parse(r io.Reader) ([]transaction.CreateParams, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detecting encoding: %w", err)
	}

	reader := csv.NewReader(utf8r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}

	layout, cols, header := findLayout(rows)
	if layout == nil {
		return nil, ErrUnknownLayout
	}

	return readRows(layout, cols, rows[header+1:], header+1)
}

type columnIndex map[string]int

func findLayout(rows [][]string) (*Layout, columnIndex, int) {
	for n, row := range rows {
		cols := make(columnIndex, len(row))

		for i, cell := range row {
			if name := strings.TrimSpace(cell); name != "" {
				cols[name] = i
			}
		}

		for i := range layouts {
			if hasColumns(cols, layouts[i].columns()) {
				return &layouts[i], cols, n
			}
		}
	}

	return nil, nil, 0
}

func hasColumns(cols columnIndex, names []string) bool {
	for _, name := range names {
		if _, ok := cols[name]; !ok {
			return false
		}
	}

	return true
}

// readRows skips rows without a parseable date or amount, which covers
// footers and page markers. firstRow is the 0-based file index of rows[0].
func readRows(l *Layout, cols columnIndex, rows [][]string, firstRow int) ([]transaction.CreateParams, error) {
	var params []transaction.CreateParams

	for i, row := range rows {
		date, ok := parseDate(cell(row, cols[l.DateCol]))
		if !ok {
			continue
		}

		title := cell(row, cols[l.TitleCol])
		if title == "" {
			return nil, fmt.Errorf("row %d: missing description", firstRow+i+1)
		}

		amount, typ, ok := readAmount(l, cols, row)
		if !ok {
			continue
		}

		params = append(params, transaction.CreateParams{
			Title:  title,
			Amount: amount,
			Type:   typ,
			Date:   date,
		})
	}

	return params, nil
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

func readAmount(l *Layout, cols columnIndex, row []string) (decimal.Decimal, transaction.Type, bool) {
	if l.Style == debitCredit {
		if d, ok := nonZero(cell(row, cols[l.DebitCol])); ok {
			return d.Abs(), transaction.TypeExpense, true
		}

		if d, ok := nonZero(cell(row, cols[l.CreditCol])); ok {
			return d.Abs(), transaction.TypeIncome, true
		}

		return decimal.Zero, "", false
	}

	d, ok := nonZero(cell(row, cols[l.AmountCol]))
	if !ok {
		return decimal.Zero, "", false
	}

	if d.IsNegative() {
		return d.Neg(), transaction.TypeExpense, true
	}

	return d, transaction.TypeIncome, true
}

func nonZero(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, false
	}

	d, err := parseAmount(s)
	if err != nil || d.IsZero() {
		return decimal.Zero, false
	}

	return d, true
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[i])
}
