package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
)

const (
	minRetry = 250 * time.Millisecond
	maxRetry = 30 * time.Second
)

// Listener delivers change notifications. Listen calls ready once it is
// receiving and notify with each payload, until ctx ends or it fails.
type Listener interface {
	Listen(ctx context.Context, ready func(), notify func(payload string)) error
}

// Broker shares one Listener between every live subscription in the
// process and routes notifications by user id. The listener runs only while
// someone is subscribed and reconnects with backoff when it fails.
type Broker struct {
	listener Listener

	mu     sync.Mutex
	subs   map[string]map[chan struct{}]struct{}
	count  int
	cancel context.CancelFunc
}

func NewBroker(l Listener) *Broker {
	return &Broker{listener: l, subs: make(map[string]map[chan struct{}]struct{})}
}

// Subscribe returns a channel that receives a signal whenever userID's
// transactions may have changed, including after the listener (re)connects
// since changes may have been missed meanwhile. Signals coalesce.
func (b *Broker) Subscribe(userID string) (<-chan struct{}, func()) {
	kick := make(chan struct{}, 1)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[userID] == nil {
		b.subs[userID] = make(map[chan struct{}]struct{})
	}

	b.subs[userID][kick] = struct{}{}
	b.count++

	if b.count == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		b.cancel = cancel

		go b.run(ctx)
	}

	var once sync.Once

	return kick, func() {
		once.Do(func() { b.unsubscribe(userID, kick) })
	}
}

func (b *Broker) unsubscribe(userID string, kick chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subs[userID], kick)
	if len(b.subs[userID]) == 0 {
		delete(b.subs, userID)
	}

	b.count--
	if b.count == 0 {
		b.cancel()
		b.cancel = nil
	}
}

// Subscribers reports the number of live subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.count
}

func (b *Broker) run(ctx context.Context) {
	retry := minRetry

	for {
		connected := false

		err := b.listener.Listen(ctx, func() {
			connected = true
			b.kickAll()
		}, b.kickUser)
		if ctx.Err() != nil {
			return
		}

		if connected {
			retry = minRetry
		}

		slog.Warn("transaction listener stopped, reconnecting", "error", err, "retry_in", retry)

		select {
		case <-ctx.Done():
			return
		case <-time.After(retry):
		}

		retry = min(retry*2, maxRetry)
	}
}

func (b *Broker) kickUser(userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for kick := range b.subs[userID] {
		signal(kick)
	}
}

func (b *Broker) kickAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, kicks := range b.subs {
		for kick := range kicks {
			signal(kick)
		}
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// PGListener runs LISTEN on a dedicated connection. The connection is
// discarded afterwards so the registration never returns to the pool.
type PGListener struct {
	db      *sql.DB
	channel string
}

func NewPGListener(db *sql.DB, channel string) *PGListener {
	return &PGListener{db: db, channel: channel}
}

func (l *PGListener) Listen(ctx context.Context, ready func(), notify func(payload string)) error {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquiring listener connection: %w", err)
	}
	defer discard(conn)

	if _, err := conn.ExecContext(ctx, "LISTEN "+l.channel); err != nil {
		return fmt.Errorf("listening on %s: %w", l.channel, err)
	}

	ready()

	return conn.Raw(func(driverConn any) error {
		pgConn := driverConn.(*stdlib.Conn).Conn()

		for {
			n, err := pgConn.WaitForNotification(ctx)
			if err != nil {
				return fmt.Errorf("waiting for notification: %w", err)
			}

			notify(n.Payload)
		}
	})
}

// discard closes conn as broken so the pool does not reuse it.
func discard(conn *sql.Conn) {
	_ = conn.Raw(func(any) error { return driver.ErrBadConn })
	conn.Close()
}
