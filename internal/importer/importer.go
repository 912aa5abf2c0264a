package importer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/MrJamesThe3rd/pocketbook/internal/importer/native"
	"github.com/MrJamesThe3rd/pocketbook/internal/importer/statement"
	"github.com/MrJamesThe3rd/pocketbook/internal/transaction"
)

type Format string

const (
	FormatNative    Format = "native"
	FormatStatement Format = "statement"
)

type Parser interface {
	Parse(r io.Reader) ([]transaction.CreateParams, error)
}

// Categorizer picks a category for rows whose file did not carry one.
type Categorizer interface {
	SuggestOrDefault(ctx context.Context, userID, title string) transaction.Category
}

type Service struct {
	parsers     map[Format]Parser
	categorizer Categorizer
}

func NewService(categorizer Categorizer) *Service {
	return &Service{
		parsers: map[Format]Parser{
			FormatNative:    native.NewParser(),
			FormatStatement: statement.NewParser(),
		},
		categorizer: categorizer,
	}
}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatNative:
		return FormatNative, nil
	case FormatStatement:
		return f, nil
	}

	return "", fmt.Errorf("unknown import format %q", s)
}

// Import parses r and fills in missing categories for userID.
func (s *Service) Import(ctx context.Context, userID string, format Format, r io.Reader) ([]transaction.CreateParams, error) {
	parser, ok := s.parsers[format]
	if !ok {
		return nil, fmt.Errorf("unknown import format %q", format)
	}

	params, err := parser.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing %s file: %w", format, err)
	}

	for i := range params {
		if params[i].Category == "" {
			params[i].Category = s.categorizer.SuggestOrDefault(ctx, userID, params[i].Title)
		}
	}

	return params, nil
}
