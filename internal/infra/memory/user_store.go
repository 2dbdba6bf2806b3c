package memory

import (
	"context"
	"sync"

	"quiz-room-service/internal/domain"
)

// UserStore is an in-memory implementation of app.UserStore.
type UserStore struct {
	mu     sync.RWMutex
	byName map[string]domain.User
}

func NewUserStore() *UserStore {
	return &UserStore{byName: make(map[string]domain.User)}
}

func (s *UserStore) CreateUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byName[user.Username]; ok {
		return domain.ErrUserExists
	}
	s.byName[user.Username] = user
	return nil
}

func (s *UserStore) UserByName(_ context.Context, username string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.byName[username]; ok {
		return user, nil
	}
	return domain.User{}, domain.ErrUserNotFound
}
