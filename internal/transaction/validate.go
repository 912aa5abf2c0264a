package transaction

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses user input into a non-negative amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, &ValidationError{Field: "amount", Reason: "is required"}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: "amount", Reason: "must be a number"}
	}

	if err := validateAmount(d); err != nil {
		return decimal.Zero, err
	}

	return d, nil
}

// Amounts are stored as NUMERIC(14, 2).
const amountPlaces = 2

var maxAmount = decimal.New(1, 12)

func validateAmount(d decimal.Decimal) error {
	if d.IsNegative() {
		return &ValidationError{Field: "amount", Reason: "must not be negative"}
	}

	if !d.Equal(d.Truncate(amountPlaces)) {
		return &ValidationError{Field: "amount", Reason: "must have at most 2 decimal places"}
	}

	if d.GreaterThanOrEqual(maxAmount) {
		return &ValidationError{Field: "amount", Reason: "must be less than " + maxAmount.String()}
	}

	return nil
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}

	return nil
}

func validateCategory(c Category) error {
	if _, ok := ParseCategory(string(c)); !ok || c == CategoryAll {
		return &ValidationError{Field: "category", Reason: "unknown category " + string(c)}
	}

	return nil
}

// canonical returns p with its category spelled the way it is declared.
func (p CreateParams) canonical() CreateParams {
	if c, ok := ParseCategory(string(p.Category)); ok {
		p.Category = c
	}

	return p
}

func (p Patch) canonical() Patch {
	if p.Category == nil {
		return p
	}

	if c, ok := ParseCategory(string(*p.Category)); ok {
		p.Category = &c
	}

	return p
}

// Validate checks the params of a new transaction.
func (p CreateParams) Validate() error {
	if err := validateTitle(p.Title); err != nil {
		return err
	}

	if err := validateAmount(p.Amount); err != nil {
		return err
	}

	if p.Type != TypeIncome && p.Type != TypeExpense {
		return &ValidationError{Field: "type", Reason: "must be INCOME or EXPENSE"}
	}

	return validateCategory(p.Category)
}

// Validate checks the fields a patch sets.
func (p Patch) Validate() error {
	if p.IsEmpty() {
		return &ValidationError{Field: "patch", Reason: "no fields to update"}
	}

	if p.Title != nil {
		if err := validateTitle(*p.Title); err != nil {
			return err
		}
	}

	if p.Amount != nil {
		if err := validateAmount(*p.Amount); err != nil {
			return err
		}
	}

	if p.Category != nil {
		if err := validateCategory(*p.Category); err != nil {
			return err
		}
	}

	if p.Date != nil && p.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "must be set"}
	}

	return nil
}
