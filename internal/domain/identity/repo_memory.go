package identity

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type userRepoMemory struct {
	mu    sync.RWMutex
	users map[uuid.UUID]User
}

// NewUserRepoMemory returns a process-local UserRepository.
func NewUserRepoMemory() UserRepository {
	return &userRepoMemory{users: make(map[uuid.UUID]User)}
}

func (r *userRepoMemory) Create(_ context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now

	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = *u
	return nil
}

func (r *userRepoMemory) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *userRepoMemory) UpdateDisplayName(_ context.Context, id uuid.UUID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	u.DisplayName = name
	u.UpdatedAt = time.Now()
	r.users[id] = u
	return nil
}

func (r *userRepoMemory) ListByRole(_ context.Context, role Role) ([]*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*User
	for _, u := range r.users {
		if u.Role == role {
			u := u
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	return out, nil
}
