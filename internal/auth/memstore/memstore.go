package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/pocketbook/internal/auth"
)

type Store struct {
	mu      sync.RWMutex
	byEmail map[string]auth.User
}

func New() *Store {
	return &Store{byEmail: make(map[string]auth.User)}
}

func (s *Store) CreateUser(_ context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[user.Email]; ok {
		return auth.ErrEmailTaken
	}

	user.ID = uuid.NewString()
	user.CreatedAt = time.Now().UTC()
	s.byEmail[user.Email] = *user

	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byEmail[email]
	if !ok {
		return nil, auth.ErrUserNotFound
	}

	return &user, nil
}
