// Package memstore keeps transactions in process memory. It backs local runs
// without a database and the end-to-end tests of the live mirror.
package memstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/MrJamesThe3rd/pocketbook/internal/transaction"
)

type Store struct {
	mu       sync.Mutex
	byUser   map[string][]transaction.Transaction
	watchers map[string]map[chan []transaction.Transaction]struct{}
	locks    map[string]*sync.Mutex
	now      func() time.Time
}

func New() *Store {
	return &Store{
		byUser:   make(map[string][]transaction.Transaction),
		watchers: make(map[string]map[chan []transaction.Transaction]struct{}),
		locks:    make(map[string]*sync.Mutex),
		now:      time.Now,
	}
}

// WithClock replaces the clock used for CreatedAt and UpdatedAt.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) CreateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.insertLocked(tx)
	s.notifyLocked(tx.UserID)

	return nil
}

func (s *Store) insertLocked(tx *transaction.Transaction) {
	tx.ID = uuid.New()
	tx.CreatedAt = s.now().UTC()
	tx.UpdatedAt = nil

	s.byUser[tx.UserID] = append(s.byUser[tx.UserID], *tx)
}

func (s *Store) GetTransaction(ctx context.Context, userID string, id uuid.UUID) (*transaction.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(userID, id)
	if i < 0 {
		return nil, transaction.ErrNotFound
	}

	tx := s.byUser[userID][i]

	return &tx, nil
}

// ListTransactions returns the user's transactions newest first.
func (s *Store) ListTransactions(ctx context.Context, userID string) ([]transaction.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.listLocked(userID), nil
}

func (s *Store) listLocked(userID string) []transaction.Transaction {
	txs := s.byUser[userID]
	out := make([]transaction.Transaction, len(txs))

	for i, tx := range txs {
		out[len(txs)-1-i] = tx
	}

	return out
}

func (s *Store) UpdateTransaction(ctx context.Context, userID string, id uuid.UUID, patch transaction.Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(userID, id)
	if i < 0 {
		return transaction.ErrNotFound
	}

	tx := &s.byUser[userID][i]
	patch.Apply(tx)
	tx.UpdatedAt = new(s.now().UTC())

	s.notifyLocked(userID)

	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, userID string, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(userID, id)
	if i < 0 {
		return transaction.ErrNotFound
	}

	txs := s.byUser[userID]
	s.byUser[userID] = append(txs[:i:i], txs[i+1:]...)

	s.notifyLocked(userID)

	return nil
}

func (s *Store) indexLocked(userID string, id uuid.UUID) int {
	for i, tx := range s.byUser[userID] {
		if tx.ID == id {
			return i
		}
	}

	return -1
}

// WatchTransactions registers a watcher that receives the user's full set now
// and after every change. Slow readers only ever see the latest set.
func (s *Store) WatchTransactions(ctx context.Context, userID string) (<-chan []transaction.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := make(chan []transaction.Transaction, 1)

	s.mu.Lock()

	if s.watchers[userID] == nil {
		s.watchers[userID] = make(map[chan []transaction.Transaction]struct{})
	}

	s.watchers[userID][ch] = struct{}{}
	ch <- s.listLocked(userID)

	s.mu.Unlock()

	go func() {
		<-ctx.Done()

		s.mu.Lock()
		defer s.mu.Unlock()

		delete(s.watchers[userID], ch)

		if len(s.watchers[userID]) == 0 {
			delete(s.watchers, userID)
		}

		close(ch)
	}()

	return ch, nil
}

// Watchers reports how many live subscriptions the user has.
func (s *Store) Watchers(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.watchers[userID])
}

// notifyLocked fans the user's current set out to every watcher. Sends only
// happen with s.mu held, which keeps each channel single-sender.
func (s *Store) notifyLocked(userID string) {
	for ch := range s.watchers[userID] {
		transaction.SendLatest(ch, s.listLocked(userID))
	}
}

// FindCategory returns the category of the user's most recent transaction
// whose title occurs in title, preferring the longest match.
func (s *Store) FindCategory(ctx context.Context, userID, title string) (transaction.Category, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(title))

	if needle == "" {
		return "", nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		best    transaction.Category
		bestLen int
	)

	// Newest first, so ties keep the most recent entry.
	for _, tx := range s.listLocked(userID) {
		known := fold.String(tx.Title)
		if known == "" || !strings.Contains(needle, known) {
			continue
		}

		if len(known) > bestLen {
			best, bestLen = tx.Category, len(known)
		}
	}

	return best, nil
}

func (s *Store) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}

	return l
}

type importTx struct {
	store   *Store
	userID  string
	lock    *sync.Mutex
	pending []*transaction.Transaction
	done    bool
}

// BeginImport takes the user's import lock. Created rows stay invisible until
// Commit, which publishes them in one change.
func (s *Store) BeginImport(ctx context.Context, userID string) (transaction.ImportTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lock := s.userLock(userID)
	lock.Lock()

	return &importTx{store: s, userID: userID, lock: lock}, nil
}

func (itx *importTx) FindDuplicates(ctx context.Context, params []transaction.CreateParams) ([]transaction.Transaction, error) {
	if len(params) == 0 {
		return nil, nil
	}

	keys := make(map[transaction.DuplicateKey]struct{}, len(params))
	for _, p := range params {
		keys[transaction.NewDuplicateKey(p.Date, p.Amount, p.Type, p.Title)] = struct{}{}
	}

	existing, err := itx.store.ListTransactions(ctx, itx.userID)
	if err != nil {
		return nil, err
	}

	var duplicates []transaction.Transaction

	for _, tx := range existing {
		if _, found := keys[transaction.NewDuplicateKey(tx.Date, tx.Amount, tx.Type, tx.Title)]; found {
			duplicates = append(duplicates, tx)
		}
	}

	return duplicates, nil
}

func (itx *importTx) CreateTransactions(ctx context.Context, txs []*transaction.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	itx.pending = append(itx.pending, txs...)

	return nil
}

func (itx *importTx) Commit() error {
	if itx.done {
		return nil
	}

	itx.done = true
	defer itx.lock.Unlock()

	if len(itx.pending) == 0 {
		return nil
	}

	s := itx.store

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tx := range itx.pending {
		s.insertLocked(tx)
	}

	s.notifyLocked(itx.userID)

	return nil
}

func (itx *importTx) Rollback() error {
	if itx.done {
		return nil
	}

	itx.done = true
	itx.pending = nil
	itx.lock.Unlock()

	return nil
}
