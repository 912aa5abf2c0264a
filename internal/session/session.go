// Package session tracks who is signed in on this client and tells
// interested parties when that changes.
package session

import (
	"context"
	"sync"

	"github.com/MrJamesThe3rd/pocketbook/internal/auth"
	"github.com/MrJamesThe3rd/pocketbook/internal/transaction"
)

type Session struct {
	auth *auth.Service

	mu       sync.Mutex
	current  *auth.Identity
	token    string
	watchers map[chan *auth.Identity]struct{}
}

func New(svc *auth.Service) *Session {
	return &Session{
		auth:     svc,
		watchers: make(map[chan *auth.Identity]struct{}),
	}
}

// Current returns the signed-in identity, or nil.
func (s *Session) Current() *auth.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()

	return copyIdentity(s.current)
}

// Token returns the bearer token of the signed-in identity.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.token
}

func (s *Session) Register(ctx context.Context, email, password, displayName string) (*auth.Identity, error) {
	id, err := s.auth.Register(ctx, email, password, displayName)
	if err != nil {
		return nil, err
	}

	return s.signIn(id)
}

func (s *Session) Login(ctx context.Context, email, password string) (*auth.Identity, error) {
	id, err := s.auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	return s.signIn(id)
}

// Resume signs in with a previously issued token.
func (s *Session) Resume(token string) (*auth.Identity, error) {
	id, err := s.auth.VerifyToken(token)
	if err != nil {
		return nil, err
	}

	s.set(id, token)

	return copyIdentity(id), nil
}

func (s *Session) signIn(id *auth.Identity) (*auth.Identity, error) {
	token, err := s.auth.IssueToken(*id)
	if err != nil {
		return nil, err
	}

	s.set(id, token)

	return copyIdentity(id), nil
}

func (s *Session) Logout() {
	s.set(nil, "")
}

func (s *Session) set(id *auth.Identity, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := !sameIdentity(s.current, id)

	s.current = copyIdentity(id)
	s.token = token

	if !changed {
		return
	}

	for ch := range s.watchers {
		transaction.SendLatest(ch, copyIdentity(s.current))
	}
}

// Watch streams identity transitions, starting with the current identity.
// Readers that fall behind only see the latest one.
func (s *Session) Watch() (<-chan *auth.Identity, func()) {
	ch := make(chan *auth.Identity, 1)

	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	ch <- copyIdentity(s.current)
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if _, ok := s.watchers[ch]; ok {
			delete(s.watchers, ch)
			close(ch)
		}
	}
}

func sameIdentity(a, b *auth.Identity) bool {
	if a == nil || b == nil {
		return a == b
	}

	return a.ID == b.ID
}

func copyIdentity(id *auth.Identity) *auth.Identity {
	if id == nil {
		return nil
	}

	return new(*id)
}
