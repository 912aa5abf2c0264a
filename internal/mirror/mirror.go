// Package mirror keeps an in-memory copy of one identity's transactions in
// sync with the store through a live subscription.
//
// The mirror never edits its set in place. Writes go to the backend and the
// set changes only when the subscription delivers the resulting snapshot,
// which replaces it wholesale.
package mirror

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/pocketbook/internal/auth"
	"github.com/MrJamesThe3rd/pocketbook/internal/transaction"
)

// ErrClosed is returned by SetIdentity after Close.
var ErrClosed = errors.New("mirror closed")

type State int

const (
	Unsubscribed State = iota
	Subscribing
	Subscribed
)

func (s State) String() string {
	switch s {
	case Subscribing:
		return "subscribing"
	case Subscribed:
		return "subscribed"
	}

	return "unsubscribed"
}

// Backend is the identity-scoped transaction API the mirror runs against.
// *transaction.Service satisfies it.
type Backend interface {
	Subscribe(ctx context.Context, userID string) (<-chan []transaction.Transaction, error)
	Create(ctx context.Context, userID string, params transaction.CreateParams) (*transaction.Transaction, error)
	Update(ctx context.Context, userID string, id uuid.UUID, patch transaction.Patch) error
	Delete(ctx context.Context, userID string, id uuid.UUID) error
}

// IdentitySource publishes identity transitions, starting with the current one.
// A nil identity means signed out.
type IdentitySource interface {
	Watch() (<-chan *auth.Identity, func())
}

type Mirror struct {
	backend Backend

	// transition serializes SetIdentity and Close.
	transition sync.Mutex

	mu       sync.Mutex
	state    State
	identity string
	txs      []transaction.Transaction
	synced   bool
	version  uint64
	gen      uint64
	cancel   context.CancelFunc
	done     chan struct{}
	watchers map[chan []transaction.Transaction]struct{}
	closed   bool
}

func New(backend Backend) *Mirror {
	return &Mirror{
		backend:  backend,
		watchers: make(map[chan []transaction.Transaction]struct{}),
	}
}

// SetIdentity points the mirror at userID. Setting the identity it is already
// subscribed for does nothing. Any other value first releases the current
// subscription and waits for it to wind down, then subscribes for the new
// identity, or stays unsubscribed when userID is empty.
//
// The subscription outlives ctx; only the next SetIdentity or Close ends it.
func (m *Mirror) SetIdentity(ctx context.Context, userID string) error {
	m.transition.Lock()
	defer m.transition.Unlock()

	m.mu.Lock()

	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}

	if userID == m.identity && (m.state == Subscribed || userID == "") {
		m.mu.Unlock()
		return nil
	}

	prev := m.releaseLocked()
	m.identity = userID

	if userID == "" {
		m.state = Unsubscribed
		m.mu.Unlock()
		wait(prev)

		return nil
	}

	m.state = Subscribing
	gen := m.gen
	m.mu.Unlock()
	wait(prev)

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	ch, err := m.backend.Subscribe(subCtx, userID)
	if err != nil {
		cancel()

		m.mu.Lock()
		m.state = Unsubscribed
		m.mu.Unlock()

		slog.Error("subscribing to transactions", "user_id", userID, "error", err)

		return err
	}

	done := make(chan struct{})

	m.mu.Lock()
	m.cancel = cancel
	m.done = done
	m.state = Subscribed
	m.mu.Unlock()

	go m.pump(ch, gen, done)

	return nil
}

// releaseLocked cancels the active subscription and clears the set. The
// returned channel closes once the old pump has exited.
func (m *Mirror) releaseLocked() <-chan struct{} {
	done := m.done

	if m.cancel != nil {
		m.cancel()
	}

	m.cancel = nil
	m.done = nil
	m.gen++
	m.synced = false

	if m.txs != nil {
		m.txs = nil
		m.publishLocked()
	}

	return done
}

func wait(done <-chan struct{}) {
	if done != nil {
		<-done
	}
}

func (m *Mirror) pump(ch <-chan []transaction.Transaction, gen uint64, done chan struct{}) {
	defer close(done)

	for txs := range ch {
		m.mu.Lock()

		if m.gen == gen {
			m.txs = transaction.Clone(txs)
			m.synced = true
			m.version++
			m.publishLocked()
		}

		m.mu.Unlock()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen != gen {
		return
	}

	// The backend ended the subscription on its own. Keep the identity so the
	// next SetIdentity with it subscribes again.
	m.cancel()
	m.cancel = nil
	m.done = nil
	m.gen++
	m.state = Unsubscribed

	slog.Warn("transaction subscription ended", "user_id", m.identity)
}

func (m *Mirror) publishLocked() {
	for ch := range m.watchers {
		transaction.SendLatest(ch, transaction.Clone(m.txs))
	}
}

// Follow drives SetIdentity from src until ctx is done or src stops.
func (m *Mirror) Follow(ctx context.Context, src IdentitySource) error {
	ch, stop := src.Watch()
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case id, ok := <-ch:
			if !ok {
				return nil
			}

			userID := ""
			if id != nil {
				userID = id.ID
			}

			if err := m.SetIdentity(ctx, userID); err != nil {
				if errors.Is(err, ErrClosed) {
					return err
				}

				slog.Error("following identity", "user_id", userID, "error", err)
			}
		}
	}
}

func (m *Mirror) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

func (m *Mirror) Identity() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.identity
}

// Synced reports whether the current subscription has delivered at least one
// snapshot. Before that the set is empty regardless of what the store holds.
func (m *Mirror) Synced() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.synced
}

// Current returns the set together with a version that grows with every
// snapshot the store delivers. synced is false until the current subscription
// has delivered one.
func (m *Mirror) Current() (txs []transaction.Transaction, version uint64, synced bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return transaction.Clone(m.txs), m.version, m.synced
}

// Snapshot returns a copy of the current set, in the order the store
// delivered it.
func (m *Mirror) Snapshot() []transaction.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	return transaction.Clone(m.txs)
}

// View returns the current set filtered and sorted.
func (m *Mirror) View(filters transaction.Filters, sortOpt transaction.SortOption) []transaction.Transaction {
	return transaction.View(m.Snapshot(), filters, sortOpt)
}

// Metrics summarizes the current set.
func (m *Mirror) Metrics() transaction.Metrics {
	return transaction.Summarize(m.Snapshot())
}

// Watch returns a channel carrying the current set immediately and after
// every replacement. A slow reader only sees the latest set. Call the
// returned func to stop watching.
func (m *Mirror) Watch() (<-chan []transaction.Transaction, func()) {
	ch := make(chan []transaction.Transaction, 1)

	m.mu.Lock()
	if m.closed {
		close(ch)
		m.mu.Unlock()

		return ch, func() {}
	}

	m.watchers[ch] = struct{}{}
	ch <- transaction.Clone(m.txs)
	m.mu.Unlock()

	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		if _, ok := m.watchers[ch]; ok {
			delete(m.watchers, ch)
			close(ch)
		}
	}
}

// Add creates a transaction for the current identity. It shows up in the
// set once the store reports it back.
func (m *Mirror) Add(ctx context.Context, params transaction.CreateParams) error {
	userID := m.Identity()
	if userID == "" {
		return transaction.ErrAuthRequired
	}

	_, err := m.backend.Create(ctx, userID, params)

	return err
}

func (m *Mirror) Update(ctx context.Context, id uuid.UUID, patch transaction.Patch) error {
	userID := m.Identity()
	if userID == "" {
		return transaction.ErrAuthRequired
	}

	return m.backend.Update(ctx, userID, id, patch)
}

// Remove deletes a transaction. Removing one that is already gone succeeds.
func (m *Mirror) Remove(ctx context.Context, id uuid.UUID) error {
	userID := m.Identity()
	if userID == "" {
		return transaction.ErrAuthRequired
	}

	err := m.backend.Delete(ctx, userID, id)
	if errors.Is(err, transaction.ErrNotFound) {
		return nil
	}

	return err
}

// Close releases the subscription and closes every watcher.
func (m *Mirror) Close() {
	m.transition.Lock()
	defer m.transition.Unlock()

	m.mu.Lock()

	if m.closed {
		m.mu.Unlock()
		return
	}

	prev := m.releaseLocked()
	m.closed = true
	m.state = Unsubscribed
	m.identity = ""

	for ch := range m.watchers {
		delete(m.watchers, ch)
		close(ch)
	}

	m.mu.Unlock()
	wait(prev)
}
