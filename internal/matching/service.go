package matching

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrJamesThe3rd/pocketbook/internal/transaction"
)

// Repository looks up the category a user previously gave to a similar title.
type Repository interface {
	FindCategory(ctx context.Context, userID, title string) (transaction.Category, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Suggest returns the category of the user's closest past transaction for the
// title. ok is false when nothing matches.
func (s *Service) Suggest(ctx context.Context, userID, title string) (transaction.Category, bool, error) {
	if userID == "" {
		return "", false, transaction.ErrAuthRequired
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return "", false, nil
	}

	c, err := s.repo.FindCategory(ctx, userID, title)
	if err != nil {
		return "", false, fmt.Errorf("suggesting category: %w", err)
	}

	if c == "" {
		return "", false, nil
	}

	return c, true, nil
}

// SuggestOrDefault falls back to CategoryOther when there is no suggestion.
// Lookup failures also fall back, since a suggestion is never required.
func (s *Service) SuggestOrDefault(ctx context.Context, userID, title string) transaction.Category {
	c, ok, err := s.Suggest(ctx, userID, title)
	if err != nil || !ok {
		return transaction.CategoryOther
	}

	return c
}
