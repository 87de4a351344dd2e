package repository

import (
	"context"
	"sync"

	"authledger/internal/user/domain"
)

// MemoryRepository is an in-process user directory.
type MemoryRepository struct {
	mu         sync.RWMutex
	byID       map[string]*domain.User
	byUsername map[string]*domain.User
}

// NewMemoryRepository returns an empty in-memory directory.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:       make(map[string]*domain.User),
		byUsername: make(map[string]*domain.User),
	}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyUser(r.byID[id]), nil
}

func (r *MemoryRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyUser(r.byUsername[username]), nil
}

func (r *MemoryRepository) Create(ctx context.Context, u *domain.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byUsername[u.Username]; ok {
		return ErrDuplicateUsername
	}
	stored := copyUser(u)
	r.byID[u.ID] = stored
	r.byUsername[u.Username] = stored
	return nil
}

func copyUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
