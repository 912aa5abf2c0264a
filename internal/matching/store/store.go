package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrJamesThe3rd/pocketbook/internal/transaction"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) FindCategory(ctx context.Context, userID, title string) (transaction.Category, error) {
	query := `
		SELECT category
		FROM transactions
		WHERE user_id = $1 AND title <> '' AND $2 ILIKE '%' || title || '%'
		ORDER BY LENGTH(title) DESC, created_at DESC
		LIMIT 1
	`

	var category string

	err := s.db.QueryRowContext(ctx, query, userID, title).Scan(&category)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}

		return "", fmt.Errorf("finding category: %w", err)
	}

	return transaction.Category(category), nil
}
