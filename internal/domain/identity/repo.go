package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned by repositories when no user has the given id.
var ErrNotFound = errors.New("user not found")

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	UpdateDisplayName(ctx context.Context, id uuid.UUID, name string) error
	ListByRole(ctx context.Context, role Role) ([]*User, error)
}
