package memory

import (
	"context"
	"sync"

	"quizctl/internal/domain"
)

// IdentityStore holds the signed-in user in process. A nil user is anonymous.
type IdentityStore struct {
	mu   sync.RWMutex
	user *domain.User
}

func NewIdentityStore(user *domain.User) *IdentityStore {
	return &IdentityStore{user: user}
}

func (s *IdentityStore) CurrentUser(context.Context) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil, nil
	}
	u := *s.user
	return &u, nil
}

// SetUser replaces the signed-in user; nil signs out.
func (s *IdentityStore) SetUser(user *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}
