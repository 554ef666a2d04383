package users

import (
	"context"
	"sync"
	"time"

	"github.com/rayyanshah04/flexpay/internal/shared"
)

// MemoryRepository keeps users in process memory. Returned users are copies.
type MemoryRepository struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]User
	byPhone map[string]int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		nextID:  1,
		byID:    make(map[int64]User),
		byPhone: make(map[string]int64),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, user *User) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byPhone[user.Phone]; ok {
		return nil, shared.ErrorAlreadyExists
	}

	u := *user
	u.ID = r.nextID
	u.CreatedAt = time.Now()
	r.nextID++

	r.byID[u.ID] = u
	r.byPhone[u.Phone] = u.ID
	return &u, nil
}

func (r *MemoryRepository) GetUserByPhone(ctx context.Context, phone string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byPhone[phone]
	if !ok {
		return nil, shared.ErrorNotFound
	}
	u := r.byID[id]
	return &u, nil
}

func (r *MemoryRepository) GetUserByID(ctx context.Context, id int64) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrorNotFound
	}
	return &u, nil
}

func (r *MemoryRepository) Update(ctx context.Context, id int64, fn func(*User) error) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrorNotFound
	}
	if err := fn(&u); err != nil {
		return nil, err
	}
	u.ID = id
	r.byID[id] = u
	return &u, nil
}
