package transaction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, userID string, id uuid.UUID) (*Transaction, error)
	UpdateTransaction(ctx context.Context, userID string, id uuid.UUID, patch Patch) error
	DeleteTransaction(ctx context.Context, userID string, id uuid.UUID) error
	ListTransactions(ctx context.Context, userID string) ([]Transaction, error)

	// WatchTransactions emits the user's full transaction set immediately and
	// again after every change. The channel is closed once ctx is done.
	WatchTransactions(ctx context.Context, userID string) (<-chan []Transaction, error)

	BeginImport(ctx context.Context, userID string) (ImportTx, error)
}

type ImportTx interface {
	FindDuplicates(ctx context.Context, params []CreateParams) ([]Transaction, error)
	CreateTransactions(ctx context.Context, txs []*Transaction) error
	Commit() error
	Rollback() error
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithClock replaces the clock used to default transaction dates.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Create(ctx context.Context, userID string, params CreateParams) (*Transaction, error) {
	if userID == "" {
		return nil, ErrAuthRequired
	}

	params = params.canonical()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	tx := s.newTransaction(userID, params)
	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, storeErr("create transaction", err)
	}

	return tx, nil
}

func (s *Service) Get(ctx context.Context, userID string, id uuid.UUID) (*Transaction, error) {
	if userID == "" {
		return nil, ErrAuthRequired
	}

	tx, err := s.repo.GetTransaction(ctx, userID, id)
	if err != nil {
		return nil, storeErr("get transaction", err)
	}

	return tx, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Transaction, error) {
	if userID == "" {
		return nil, ErrAuthRequired
	}

	txs, err := s.repo.ListTransactions(ctx, userID)
	if err != nil {
		return nil, storeErr("list transactions", err)
	}

	return txs, nil
}

func (s *Service) Update(ctx context.Context, userID string, id uuid.UUID, patch Patch) error {
	if userID == "" {
		return ErrAuthRequired
	}

	patch = patch.canonical()
	if err := patch.Validate(); err != nil {
		return err
	}

	return storeErr("update transaction", s.repo.UpdateTransaction(ctx, userID, id, patch))
}

func (s *Service) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	if userID == "" {
		return ErrAuthRequired
	}

	return storeErr("delete transaction", s.repo.DeleteTransaction(ctx, userID, id))
}

func (s *Service) Subscribe(ctx context.Context, userID string) (<-chan []Transaction, error) {
	if userID == "" {
		return nil, ErrAuthRequired
	}

	ch, err := s.repo.WatchTransactions(ctx, userID)
	if err != nil {
		return nil, storeErr("subscribe to transactions", err)
	}

	return ch, nil
}

type ImportResult struct {
	Imported  []*Transaction
	New       []CreateParams
	Conflicts []Conflict
}

type Conflict struct {
	Incoming CreateParams
	Existing Transaction
}

// DuplicateKey identifies rows that are considered the same transaction on import.
type DuplicateKey struct {
	Date   string
	Amount string
	Type   Type
	Title  string
}

func NewDuplicateKey(date time.Time, amount decimal.Decimal, typ Type, title string) DuplicateKey {
	return DuplicateKey{
		Date:   date.Format(time.DateOnly),
		Amount: amount.String(),
		Type:   typ,
		Title:  strings.ToLower(strings.TrimSpace(title)),
	}
}

func (s *Service) ImportBatch(ctx context.Context, userID string, params []CreateParams) (*ImportResult, error) {
	if userID == "" {
		return nil, ErrAuthRequired
	}

	if len(params) == 0 {
		return &ImportResult{}, nil
	}

	params = s.prepare(params)
	for i, p := range params {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
	}

	itx, err := s.repo.BeginImport(ctx, userID)
	if err != nil {
		return nil, storeErr("begin import", err)
	}
	defer itx.Rollback()

	duplicates, err := itx.FindDuplicates(ctx, params)
	if err != nil {
		return nil, storeErr("find duplicates", err)
	}

	lookup := make(map[DuplicateKey]Transaction, len(duplicates))
	for _, d := range duplicates {
		lookup[NewDuplicateKey(d.Date, d.Amount, d.Type, d.Title)] = d
	}

	var newParams []CreateParams

	var conflicts []Conflict

	for _, p := range params {
		existing, found := lookup[NewDuplicateKey(p.Date, p.Amount, p.Type, p.Title)]
		if found {
			conflicts = append(conflicts, Conflict{Incoming: p, Existing: existing})
			continue
		}

		newParams = append(newParams, p)
	}

	if len(conflicts) > 0 {
		return &ImportResult{New: newParams, Conflicts: conflicts}, nil
	}

	txs := s.paramsToTransactions(userID, newParams)
	if err := itx.CreateTransactions(ctx, txs); err != nil {
		return nil, storeErr("create transactions", err)
	}

	if err := itx.Commit(); err != nil {
		return nil, storeErr("commit import", err)
	}

	return &ImportResult{Imported: txs}, nil
}

func (s *Service) CreateBatch(ctx context.Context, userID string, params []CreateParams) ([]*Transaction, error) {
	if userID == "" {
		return nil, ErrAuthRequired
	}

	if len(params) == 0 {
		return nil, nil
	}

	params = s.prepare(params)
	for i, p := range params {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
	}

	itx, err := s.repo.BeginImport(ctx, userID)
	if err != nil {
		return nil, storeErr("begin import", err)
	}
	defer itx.Rollback()

	txs := s.paramsToTransactions(userID, params)
	if err := itx.CreateTransactions(ctx, txs); err != nil {
		return nil, storeErr("create transactions", err)
	}

	if err := itx.Commit(); err != nil {
		return nil, storeErr("commit import", err)
	}

	return txs, nil
}

func (s *Service) today() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Service) prepare(params []CreateParams) []CreateParams {
	out := make([]CreateParams, len(params))
	for i, p := range params {
		p = p.canonical()
		if p.Date.IsZero() {
			p.Date = s.today()
		}

		out[i] = p
	}

	return out
}

func (s *Service) newTransaction(userID string, p CreateParams) *Transaction {
	date := p.Date
	if date.IsZero() {
		date = s.today()
	}

	return &Transaction{
		UserID:      userID,
		Title:       strings.TrimSpace(p.Title),
		Amount:      p.Amount,
		Type:        p.Type,
		Category:    p.Category,
		Description: p.Description,
		Date:        date,
	}
}

func (s *Service) paramsToTransactions(userID string, params []CreateParams) []*Transaction {
	txs := make([]*Transaction, len(params))
	for i, p := range params {
		txs[i] = s.newTransaction(userID, p)
	}

	return txs
}
