package transaction

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// SortOption selects the display order of a view.
type SortOption string

const (
	SortNewest     SortOption = "newest"
	SortAmountHigh SortOption = "amount-high"
	SortAmountLow  SortOption = "amount-low"
)

// SortOptions lists the supported orders.
func SortOptions() []SortOption {
	return []SortOption{SortNewest, SortAmountHigh, SortAmountLow}
}

func ParseSortOption(s string) (SortOption, error) {
	switch opt := SortOption(strings.ToLower(strings.TrimSpace(s))); opt {
	case "":
		return SortNewest, nil
	case SortNewest, SortAmountHigh, SortAmountLow:
		return opt, nil
	}

	return "", &ValidationError{Field: "sort", Reason: fmt.Sprintf("unknown option %q", s)}
}

// Filters narrow a view. Empty Category and Type behave like ALL.
type Filters struct {
	Search   string
	Category Category
	Type     Type
}

func DefaultFilters() Filters {
	return Filters{Category: CategoryAll, Type: TypeAll}
}

// ParseFilters builds filters from raw user input.
func ParseFilters(search, category, typ string) (Filters, error) {
	f := DefaultFilters()
	f.Search = search

	if category != "" && !strings.EqualFold(category, string(CategoryAll)) {
		c, ok := ParseCategory(category)
		if !ok {
			return Filters{}, &ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", category)}
		}

		f.Category = c
	}

	if typ != "" && !strings.EqualFold(typ, string(TypeAll)) {
		t, ok := ParseType(typ)
		if !ok {
			return Filters{}, &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown type %q", typ)}
		}

		f.Type = t
	}

	return f, nil
}

// View returns the transactions matching the filters in the requested order.
// The input slice is never modified.
func View(txs []Transaction, filters Filters, sortOpt SortOption) []Transaction {
	fold := cases.Fold()
	search := fold.String(filters.Search)

	out := make([]Transaction, 0, len(txs))

	for _, tx := range txs {
		if search != "" && !strings.Contains(fold.String(tx.Title), search) {
			continue
		}

		if filters.Category != "" && filters.Category != CategoryAll && tx.Category != filters.Category {
			continue
		}

		if filters.Type != "" && filters.Type != TypeAll && tx.Type != filters.Type {
			continue
		}

		out = append(out, tx)
	}

	switch sortOpt {
	case SortNewest:
		slices.SortStableFunc(out, func(a, b Transaction) int {
			return createdAtOrEpoch(b).Compare(createdAtOrEpoch(a))
		})
	case SortAmountHigh:
		slices.SortStableFunc(out, func(a, b Transaction) int {
			return b.Amount.Cmp(a.Amount)
		})
	case SortAmountLow:
		slices.SortStableFunc(out, func(a, b Transaction) int {
			return a.Amount.Cmp(b.Amount)
		})
	}

	return out
}

var epoch = time.Unix(0, 0)

func createdAtOrEpoch(tx Transaction) time.Time {
	if tx.CreatedAt.IsZero() {
		return epoch
	}

	return tx.CreatedAt
}
