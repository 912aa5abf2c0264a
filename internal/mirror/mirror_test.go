package mirror_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/pocketbook/internal/auth"
	authmem "github.com/MrJamesThe3rd/pocketbook/internal/auth/memstore"
	"github.com/MrJamesThe3rd/pocketbook/internal/mirror"
	"github.com/MrJamesThe3rd/pocketbook/internal/session"
	"github.com/MrJamesThe3rd/pocketbook/internal/transaction"
	"github.com/MrJamesThe3rd/pocketbook/internal/transaction/memstore"
)

const (
	alice = "alice"
	bob   = "bob"
)

func setup(t *testing.T) (*mirror.Mirror, *memstore.Store, *transaction.Service) {
	t.Helper()

	store := memstore.New()
	svc := transaction.NewService(store)
	m := mirror.New(svc)
	t.Cleanup(m.Close)

	return m, store, svc
}

func params(title string, amount int64, typ transaction.Type) transaction.CreateParams {
	category := transaction.CategoryRent
	if typ == transaction.TypeIncome {
		category = transaction.CategorySalary
	}

	return transaction.CreateParams{
		Title:    title,
		Amount:   decimal.NewFromInt(amount),
		Type:     typ,
		Category: category,
	}
}

// waitFor reads snapshots until one satisfies ok.
func waitFor(t *testing.T, ch <-chan []transaction.Transaction, ok func([]transaction.Transaction) bool) []transaction.Transaction {
	t.Helper()

	timeout := time.After(2 * time.Second)

	for {
		select {
		case txs, open := <-ch:
			require.True(t, open, "watch channel closed")

			if ok(txs) {
				return txs
			}
		case <-timeout:
			t.Fatal("timed out waiting for snapshot")
			return nil
		}
	}
}

func hasLen(n int) func([]transaction.Transaction) bool {
	return func(txs []transaction.Transaction) bool { return len(txs) == n }
}

func TestMirror_AddWithoutIdentity(t *testing.T) {
	m, store, _ := setup(t)

	err := m.Add(context.Background(), params("Rent", 1000, transaction.TypeExpense))
	require.ErrorIs(t, err, transaction.ErrAuthRequired)

	assert.Empty(t, m.Snapshot())
	assert.Equal(t, mirror.Unsubscribed, m.State())

	txs, err := store.ListTransactions(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, txs)

	assert.ErrorIs(t, m.Remove(context.Background(), uuid.New()), transaction.ErrAuthRequired)
	assert.ErrorIs(t, m.Update(context.Background(), uuid.New(), transaction.Patch{}), transaction.ErrAuthRequired)
}

func TestMirror_WritesArriveThroughSubscription(t *testing.T) {
	m, _, _ := setup(t)
	ctx := context.Background()

	ch, stop := m.Watch()
	defer stop()

	require.NoError(t, m.SetIdentity(ctx, alice))
	assert.Equal(t, mirror.Subscribed, m.State())
	assert.Equal(t, alice, m.Identity())

	require.NoError(t, m.Add(ctx, params("Rent", 1000, transaction.TypeExpense)))
	require.NoError(t, m.Add(ctx, params("Pay", 5000, transaction.TypeIncome)))

	txs := waitFor(t, ch, hasLen(2))
	assert.True(t, m.Synced())

	current, version, synced := m.Current()
	assert.True(t, synced)
	assert.Len(t, current, 2)
	assert.Positive(t, version)

	for _, tx := range txs {
		assert.Equal(t, alice, tx.UserID)
	}

	metrics := m.Metrics()
	assert.True(t, decimal.NewFromInt(4000).Equal(metrics.TotalBalance))

	filters := transaction.DefaultFilters()
	filters.Search = "re"
	view := m.View(filters, transaction.SortNewest)
	require.Len(t, view, 1)
	assert.Equal(t, "Rent", view[0].Title)

	title := "Monthly rent"
	require.NoError(t, m.Update(ctx, view[0].ID, transaction.Patch{Title: &title}))

	waitFor(t, ch, func(txs []transaction.Transaction) bool {
		for _, tx := range txs {
			if tx.Title == title {
				return true
			}
		}

		return false
	})
}

func TestMirror_AddFailureLeavesSetAlone(t *testing.T) {
	m, _, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, m.SetIdentity(ctx, alice))

	err := m.Add(ctx, transaction.CreateParams{Title: "", Amount: decimal.NewFromInt(5), Type: transaction.TypeExpense, Category: transaction.CategoryRent})

	var ve *transaction.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Empty(t, m.Snapshot())
}

func TestMirror_RemoveMissingSucceeds(t *testing.T) {
	m, _, _ := setup(t)
	ctx := context.Background()

	ch, stop := m.Watch()
	defer stop()

	require.NoError(t, m.SetIdentity(ctx, alice))
	require.NoError(t, m.Add(ctx, params("Rent", 1000, transaction.TypeExpense)))

	txs := waitFor(t, ch, hasLen(1))

	require.NoError(t, m.Remove(ctx, uuid.New()))
	assert.Len(t, m.Snapshot(), 1)

	require.NoError(t, m.Remove(ctx, txs[0].ID))
	waitFor(t, ch, hasLen(0))

	require.NoError(t, m.Remove(ctx, txs[0].ID))
	assert.Empty(t, m.Snapshot())
}

func TestMirror_IdentitySwitchReleasesOldSubscription(t *testing.T) {
	m, store, svc := setup(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, bob, params("Bob's pay", 10, transaction.TypeIncome))
	require.NoError(t, err)

	ch, stop := m.Watch()
	defer stop()

	require.NoError(t, m.SetIdentity(ctx, alice))
	assert.Equal(t, 1, store.Watchers(alice))

	require.NoError(t, m.SetIdentity(ctx, alice))
	assert.Equal(t, 1, store.Watchers(alice), "same identity must not subscribe twice")

	require.NoError(t, m.SetIdentity(ctx, bob))
	assert.Zero(t, store.Watchers(alice))
	assert.Equal(t, 1, store.Watchers(bob))

	txs := waitFor(t, ch, hasLen(1))
	assert.Equal(t, bob, txs[0].UserID)

	// Alice's later writes never reach bob's mirror.
	_, err = svc.Create(ctx, alice, params("Alice's rent", 10, transaction.TypeExpense))
	require.NoError(t, err)

	for _, tx := range m.Snapshot() {
		assert.Equal(t, bob, tx.UserID)
	}

	require.NoError(t, m.SetIdentity(ctx, ""))
	assert.Equal(t, mirror.Unsubscribed, m.State())
	assert.Empty(t, m.Identity())
	assert.Empty(t, m.Snapshot())
	assert.False(t, m.Synced())
	assert.Zero(t, store.Watchers(bob))
}

func TestMirror_SubscriptionOutlivesCallerContext(t *testing.T) {
	m, store, _ := setup(t)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.SetIdentity(ctx, alice))
	cancel()

	assert.Equal(t, mirror.Subscribed, m.State())
	assert.Equal(t, 1, store.Watchers(alice))
}

type stubBackend struct {
	mirror.Backend

	subscribe func(ctx context.Context, userID string) (<-chan []transaction.Transaction, error)
}

func (b stubBackend) Subscribe(ctx context.Context, userID string) (<-chan []transaction.Transaction, error) {
	return b.subscribe(ctx, userID)
}

func TestMirror_SubscribeFailure(t *testing.T) {
	storeErr := &transaction.StoreError{Op: "subscribe to transactions", Err: errors.New("connection refused")}

	m := mirror.New(stubBackend{
		subscribe: func(context.Context, string) (<-chan []transaction.Transaction, error) {
			return nil, storeErr
		},
	})
	defer m.Close()

	err := m.SetIdentity(context.Background(), alice)
	require.ErrorIs(t, err, storeErr)
	assert.Equal(t, mirror.Unsubscribed, m.State())
	assert.Equal(t, alice, m.Identity())
}

func TestMirror_BackendEndsSubscription(t *testing.T) {
	feed := make(chan []transaction.Transaction, 1)
	subscribed := 0

	m := mirror.New(stubBackend{
		subscribe: func(ctx context.Context, _ string) (<-chan []transaction.Transaction, error) {
			subscribed++
			if subscribed > 1 {
				again := make(chan []transaction.Transaction)
				go func() {
					<-ctx.Done()
					close(again)
				}()

				return again, nil
			}

			return feed, nil
		},
	})
	defer m.Close()

	ch, stop := m.Watch()
	defer stop()

	require.NoError(t, m.SetIdentity(context.Background(), alice))

	feed <- []transaction.Transaction{{Title: "Rent", UserID: alice}}
	waitFor(t, ch, hasLen(1))

	close(feed)
	require.Eventually(t, func() bool {
		return m.State() == mirror.Unsubscribed
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, alice, m.Identity())

	require.NoError(t, m.SetIdentity(context.Background(), alice))
	assert.Equal(t, mirror.Subscribed, m.State())
	assert.Equal(t, 2, subscribed)
}

func TestMirror_FollowsSession(t *testing.T) {
	m, store, _ := setup(t)
	sess := session.New(auth.NewService(authmem.New(), "secret", time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	followDone := make(chan error, 1)
	go func() { followDone <- m.Follow(ctx, sess) }()

	id, err := sess.Register(context.Background(), "ana@example.com", "secret1", "Ana")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return m.State() == mirror.Subscribed && m.Identity() == id.ID
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, m.Add(context.Background(), params("Rent", 1000, transaction.TypeExpense)))
	require.Eventually(t, func() bool { return len(m.Snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	sess.Logout()

	require.Eventually(t, func() bool {
		return m.State() == mirror.Unsubscribed && len(m.Snapshot()) == 0
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, store.Watchers(id.ID))

	cancel()
	assert.ErrorIs(t, <-followDone, context.Canceled)
}

func TestMirror_Close(t *testing.T) {
	store := memstore.New()
	m := mirror.New(transaction.NewService(store))

	ch, stop := m.Watch()
	require.NoError(t, m.SetIdentity(context.Background(), alice))

	m.Close()
	m.Close()
	stop()

	assert.Zero(t, store.Watchers(alice))
	assert.ErrorIs(t, m.SetIdentity(context.Background(), alice), mirror.ErrClosed)

	for range ch {
	}

	late, _ := m.Watch()
	_, open := <-late
	assert.False(t, open)
}
