package users

import (
	"context"
)

type Repository interface {
	Create(ctx context.Context, user *User) (*User, error)
	GetUserByPhone(ctx context.Context, phone string) (*User, error)
	GetUserByID(ctx context.Context, id int64) (*User, error)
	// Update applies fn to the stored user atomically and returns the result.
	// Nothing is stored when fn fails.
	Update(ctx context.Context, id int64, fn func(*User) error) (*User, error)
}
