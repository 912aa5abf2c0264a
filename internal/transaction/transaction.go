package transaction

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type represents the type of transaction (income or expense).
type Type string

const (
	TypeIncome  Type = "INCOME"
	TypeExpense Type = "EXPENSE"

	// TypeAll is only meaningful as a filter value.
	TypeAll Type = "ALL"
)

// ParseType accepts the type names case-insensitively.
func ParseType(s string) (Type, bool) {
	switch Type(strings.ToUpper(strings.TrimSpace(s))) {
	case TypeIncome:
		return TypeIncome, true
	case TypeExpense:
		return TypeExpense, true
	}

	return "", false
}

// Category is one of a fixed set of spending and earning buckets.
type Category string

const (
	CategorySalary        Category = "Salary"
	CategoryDining        Category = "Dining"
	CategoryRent          Category = "Rent"
	CategoryShopping      Category = "Shopping"
	CategoryGroceries     Category = "Groceries"
	CategoryEntertainment Category = "Entertainment"
	CategoryTransport     Category = "Transport"
	CategoryHealth        Category = "Health"
	CategoryOther         Category = "Other"

	// CategoryAll is only meaningful as a filter value.
	CategoryAll Category = "ALL"
)

var categories = []Category{
	CategorySalary,
	CategoryDining,
	CategoryRent,
	CategoryShopping,
	CategoryGroceries,
	CategoryEntertainment,
	CategoryTransport,
	CategoryHealth,
	CategoryOther,
}

// Categories returns the selectable categories in display order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// ParseCategory matches a category name case-insensitively.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range categories {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}

	return "", false
}

// Icon returns the emoji shown next to the category.
func (c Category) Icon() string {
	switch c {
	case CategorySalary:
		return "💰"
	case CategoryDining:
		return "🍴"
	case CategoryRent:
		return "🏠"
	case CategoryShopping:
		return "🛍️"
	case CategoryGroceries:
		return "🛒"
	case CategoryEntertainment:
		return "🎬"
	case CategoryTransport:
		return "🚗"
	case CategoryHealth:
		return "💊"
	}

	return "📦"
}

// Transaction represents a financial transaction owned by a single user.
type Transaction struct {
	ID          uuid.UUID
	UserID      string
	Title       string
	Amount      decimal.Decimal
	Type        Type
	Category    Category
	Description string
	Date        time.Time
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// CreateParams holds the user-supplied fields of a new transaction.
type CreateParams struct {
	Title       string
	Amount      decimal.Decimal
	Type        Type
	Category    Category
	Description string
	Date        time.Time
}

// Patch is a partial update. Nil fields are left untouched; the type of a
// transaction cannot be changed.
type Patch struct {
	Title       *string
	Amount      *decimal.Decimal
	Category    *Category
	Description *string
	Date        *time.Time
}

// Apply merges the patch into tx.
func (p Patch) Apply(tx *Transaction) {
	if p.Title != nil {
		tx.Title = strings.TrimSpace(*p.Title)
	}

	if p.Amount != nil {
		tx.Amount = *p.Amount
	}

	if p.Category != nil {
		tx.Category = *p.Category
	}

	if p.Description != nil {
		tx.Description = *p.Description
	}

	if p.Date != nil {
		tx.Date = *p.Date
	}
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Amount == nil && p.Category == nil && p.Description == nil && p.Date == nil
}
