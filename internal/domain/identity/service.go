package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrNotPatient is returned when a user exists but does not hold the PATIENT role.
var ErrNotPatient = errors.New("user is not a patient")

type Service struct {
	users UserRepository
}

func NewService(users UserRepository) *Service {
	return &Service{users: users}
}

func (s *Service) CreateUser(ctx context.Context, u *User) error {
	if !u.Role.Valid() {
		return fmt.Errorf("invalid role: %q", u.Role)
	}
	u.DisplayName = strings.TrimSpace(u.DisplayName)
	if u.DisplayName == "" {
		return fmt.Errorf("display_name is required")
	}
	if !strings.Contains(u.Email, "@") {
		return fmt.Errorf("a valid email is required")
	}
	return s.users.Create(ctx, u)
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

// GetPatient returns the user only when it holds the PATIENT role.
func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role != RolePatient {
		return nil, ErrNotPatient
	}
	return u, nil
}

// Rename changes the display name, the only mutable user attribute.
func (s *Service) Rename(ctx context.Context, id uuid.UUID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("display_name is required")
	}
	return s.users.UpdateDisplayName(ctx, id, name)
}

func (s *Service) ListByRole(ctx context.Context, role Role) ([]*User, error) {
	return s.users.ListByRole(ctx, role)
}
