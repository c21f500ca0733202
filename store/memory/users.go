package memory

import (
	"context"
	"sync"

	"github.com/adeilh/digitally/users"
)

// Users is an in-memory users.Store keyed by ID with a unique email index.
type Users struct {
	mu      sync.RWMutex
	byID    map[string]users.User
	byEmail map[string]string
	opts    options
}

var _ users.Store = (*Users)(nil)

func NewUsers(opts ...Option) *Users {
	return &Users{
		byID:    make(map[string]users.User),
		byEmail: make(map[string]string),
		opts:    apply(opts),
	}
}

func (s *Users) Create(_ context.Context, u users.User) (users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[u.Email]; ok {
		return users.User{}, users.ErrEmailInUse
	}
	now := s.opts.now()
	u.ID = newID()
	u.CreatedAt, u.UpdatedAt = now, now
	s.byID[u.ID] = u
	s.byEmail[u.Email] = u.ID
	return u, nil
}

func (s *Users) GetByID(_ context.Context, id string) (users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return u, nil
}

func (s *Users) GetByEmail(_ context.Context, email string) (users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return s.byID[id], nil
}

func (s *Users) Update(_ context.Context, u users.User) (users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.byID[u.ID]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	if u.Email != cur.Email {
		if _, taken := s.byEmail[u.Email]; taken {
			return users.User{}, users.ErrEmailInUse
		}
		delete(s.byEmail, cur.Email)
		s.byEmail[u.Email] = u.ID
	}
	u.CreatedAt = cur.CreatedAt
	u.UpdatedAt = s.opts.now()
	s.byID[u.ID] = u
	return u, nil
}

func (s *Users) AdjustCredits(_ context.Context, id string, delta int) (users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	u.Credits += delta
	u.UpdatedAt = s.opts.now()
	s.byID[id] = u
	return u, nil
}

func (s *Users) SpendCredit(_ context.Context, id string) (users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	if u.Credits <= 0 {
		return users.User{}, users.ErrNoCredits
	}
	u.Credits--
	u.UpdatedAt = s.opts.now()
	s.byID[id] = u
	return u, nil
}
