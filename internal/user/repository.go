package user

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates no record matched the lookup key.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate indicates a uniqueness constraint (mobile number or
	// email) rejected the write.
	ErrDuplicate = errors.New("user already exists")
)

// Repository persists credential records. Uniqueness of mobile number and
// email is enforced by the implementation, not by callers.
type Repository interface {
	Create(ctx context.Context, u User) error
	FindByID(ctx context.Context, id string) (User, error)
	FindByMobile(ctx context.Context, mobile string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByMedipassID(ctx context.Context, medipassID string) (User, error)
	Update(ctx context.Context, u User) error
}
