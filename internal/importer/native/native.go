// Package native reads back the CSV files this app exports.
package native

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	enc "github.com/MrJamesThe3rd/pocketbook/internal/encoding"
	"github.com/MrJamesThe3rd/pocketbook/internal/export"
	"github.com/MrJamesThe3rd/pocketbook/internal/transaction"
)

var ErrBadHeader = errors.New("header does not match the export layout")

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(r io.Reader) ([]transaction.CreateParams, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detecting encoding: %w", err)
	}

	reader := csv.NewReader(utf8r)
	reader.FieldsPerRecord = len(export.Columns)

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrBadHeader
		}

		return nil, fmt.Errorf("reading header: %w", err)
	}

	for i, name := range export.Columns {
		if !strings.EqualFold(strings.TrimSpace(header[i]), name) {
			return nil, ErrBadHeader
		}
	}

	var params []transaction.CreateParams

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", line, err)
		}

		p, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}

		params = append(params, p)
	}

	return params, nil
}

func parseRecord(record []string) (transaction.CreateParams, error) {
	date, err := time.Parse(time.DateOnly, strings.TrimSpace(record[0]))
	if err != nil {
		return transaction.CreateParams{}, &transaction.ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}

	typ, ok := transaction.ParseType(record[2])
	if !ok {
		return transaction.CreateParams{}, &transaction.ValidationError{Field: "type", Reason: "must be INCOME or EXPENSE"}
	}

	amount, err := transaction.ParseAmount(record[4])
	if err != nil {
		return transaction.CreateParams{}, err
	}

	// Unknown categories are left for the caller to suggest one.
	category, _ := transaction.ParseCategory(record[3])

	return transaction.CreateParams{
		Title:       strings.TrimSpace(record[1]),
		Amount:      amount,
		Type:        typ,
		Category:    category,
		Description: record[5],
		Date:        date,
	}, nil
}
