package user

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu    sync.RWMutex
	users map[string]User // keyed by ID
}

// NewMemoryRepository builds an in-memory store for tests and credential-
// less development runs. It enforces the same mobile/email uniqueness as
// the Postgres schema.
func NewMemoryRepository() Repository {
	return &memoryRepository{users: make(map[string]User)}
}

func (r *memoryRepository) Create(_ context.Context, u User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.MobileNumber == u.MobileNumber {
			return ErrDuplicate
		}
		if u.Email != "" && existing.Email == u.Email {
			return ErrDuplicate
		}
	}
	r.users[u.ID] = clone(u)
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return clone(u), nil
}

func (r *memoryRepository) FindByMobile(_ context.Context, mobile string) (User, error) {
	return r.findBy(func(u User) bool { return u.MobileNumber == mobile })
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (User, error) {
	if email == "" {
		return User{}, ErrNotFound
	}
	return r.findBy(func(u User) bool { return u.Email == email })
}

func (r *memoryRepository) FindByMedipassID(_ context.Context, medipassID string) (User, error) {
	return r.findBy(func(u User) bool { return u.MedipassID == medipassID })
}

func (r *memoryRepository) Update(_ context.Context, u User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return ErrNotFound
	}
	r.users[u.ID] = clone(u)
	return nil
}

func (r *memoryRepository) findBy(match func(User) bool) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if match(u) {
			return clone(u), nil
		}
	}
	return User{}, ErrNotFound
}

// clone deep-copies the record so callers never alias stored state.
func clone(u User) User {
	if u.OTP != nil {
		challenge := *u.OTP
		u.OTP = &challenge
	}
	if u.LockUntil != nil {
		until := *u.LockUntil
		u.LockUntil = &until
	}
	if u.LastLogin != nil {
		last := *u.LastLogin
		u.LastLogin = &last
	}
	return u
}
