package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/pocketbook/internal/transaction"
)

// NotifyChannel is the channel the transactions trigger publishes the owning
// user id on.
const NotifyChannel = "transactions_changed"

type Store struct {
	db     *sql.DB
	broker *Broker
}

// New returns a store whose subscriptions share one LISTEN connection.
func New(db *sql.DB) *Store {
	return NewWithBroker(db, NewBroker(NewPGListener(db, NotifyChannel)))
}

func NewWithBroker(db *sql.DB, broker *Broker) *Store {
	return &Store{db: db, broker: broker}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanTransaction reads a transaction row from the scanner.
// Expected column order matches selectTransactionColumns.
func scanTransaction(s scanner) (transaction.Transaction, error) {
	var tx transaction.Transaction

	var typeStr, categoryStr string

	if err := s.Scan(
		&tx.ID, &tx.UserID, &tx.Title, &tx.Amount, &typeStr, &categoryStr, &tx.Description,
		&tx.Date, &tx.CreatedAt, &tx.UpdatedAt,
	); err != nil {
		return transaction.Transaction{}, err
	}

	tx.Type = transaction.Type(typeStr)
	tx.Category = transaction.Category(categoryStr)

	return tx, nil
}

const selectTransactionColumns = `
	id, user_id, title, amount, type, category, description, date, created_at, updated_at
`

const insertTransaction = `
	INSERT INTO transactions (user_id, title, amount, type, category, description, date, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	RETURNING id, created_at
`

func (s *Store) CreateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	err := s.db.QueryRowContext(ctx, insertTransaction,
		tx.UserID,
		tx.Title,
		tx.Amount,
		tx.Type,
		tx.Category,
		tx.Description,
		tx.Date,
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating transaction: %w", err)
	}

	return nil
}

func (s *Store) GetTransaction(ctx context.Context, userID string, id uuid.UUID) (*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions
		WHERE user_id = $1 AND id = $2`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, userID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transaction.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return &tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string) ([]transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	txs := []transaction.Transaction{}

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transaction rows: %w", err)
	}

	return txs, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, userID string, id uuid.UUID, patch transaction.Patch) error {
	query := `
		UPDATE transactions
		SET title = COALESCE($3, title),
			amount = COALESCE($4, amount),
			category = COALESCE($5, category),
			description = COALESCE($6, description),
			date = COALESCE($7::date, date),
			updated_at = NOW()
		WHERE user_id = $1 AND id = $2
	`

	res, err := s.db.ExecContext(ctx, query,
		userID,
		id,
		patch.Title,
		patch.Amount,
		patch.Category,
		patch.Description,
		patch.Date,
	)
	if err != nil {
		return fmt.Errorf("updating transaction: %w", err)
	}

	return expectOneRow(res)
}

func (s *Store) DeleteTransaction(ctx context.Context, userID string, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}

	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}

	if n == 0 {
		return transaction.ErrNotFound
	}

	return nil
}

// WatchTransactions re-reads the user's transactions whenever the broker
// reports a change for them. It holds no connection between reads.
func (s *Store) WatchTransactions(ctx context.Context, userID string) (<-chan []transaction.Transaction, error) {
	kick, stop := s.broker.Subscribe(userID)

	initial, err := s.ListTransactions(ctx, userID)
	if err != nil {
		stop()
		return nil, err
	}

	out := make(chan []transaction.Transaction, 1)
	out <- initial

	go func() {
		defer close(out)
		defer stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-kick:
			}

			txs, err := s.ListTransactions(ctx, userID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}

				slog.Warn("refreshing transactions", "user_id", userID, "error", err)

				continue
			}

			transaction.SendLatest(out, txs)
		}
	}()

	return out, nil
}

func importLockKey(userID string) int64 {
	h := fnv.New64a()
	h.Write([]byte("import"))
	h.Write([]byte{0})
	h.Write([]byte(userID))

	return int64(h.Sum64())
}

type importTx struct {
	tx     *sql.Tx
	userID string
}

// BeginImport opens a database transaction holding the user's import lock, so
// concurrent imports for the same user see each other's rows.
func (s *Store) BeginImport(ctx context.Context, userID string) (transaction.ImportTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning import tx: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", importLockKey(userID)); err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("acquiring import lock: %w", err)
	}

	return &importTx{tx: dbTx, userID: userID}, nil
}

func (itx *importTx) Commit() error   { return itx.tx.Commit() }
func (itx *importTx) Rollback() error { return itx.tx.Rollback() }

func (itx *importTx) FindDuplicates(ctx context.Context, params []transaction.CreateParams) ([]transaction.Transaction, error) {
	if len(params) == 0 {
		return nil, nil
	}

	minDate := params[0].Date
	maxDate := params[0].Date
	keySet := make(map[transaction.DuplicateKey]struct{}, len(params))

	for _, p := range params {
		if p.Date.Before(minDate) {
			minDate = p.Date
		}

		if p.Date.After(maxDate) {
			maxDate = p.Date
		}

		keySet[transaction.NewDuplicateKey(p.Date, p.Amount, p.Type, p.Title)] = struct{}{}
	}

	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions
		WHERE user_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC`

	rows, err := itx.tx.QueryContext(ctx, query, itx.userID, minDate, maxDate)
	if err != nil {
		return nil, fmt.Errorf("finding duplicates: %w", err)
	}
	defer rows.Close()

	var duplicates []transaction.Transaction

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		if _, found := keySet[transaction.NewDuplicateKey(tx.Date, tx.Amount, tx.Type, tx.Title)]; !found {
			continue
		}

		duplicates = append(duplicates, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating duplicate rows: %w", err)
	}

	return duplicates, nil
}

func (itx *importTx) CreateTransactions(ctx context.Context, txs []*transaction.Transaction) error {
	for _, tx := range txs {
		err := itx.tx.QueryRowContext(ctx, insertTransaction,
			tx.UserID,
			tx.Title,
			tx.Amount,
			tx.Type,
			tx.Category,
			tx.Description,
			tx.Date,
		).Scan(&tx.ID, &tx.CreatedAt)
		if err != nil {
			return fmt.Errorf("creating transaction: %w", err)
		}
	}

	return nil
}
