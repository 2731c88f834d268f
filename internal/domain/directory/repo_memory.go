package directory

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type doctorRepoMemory struct {
	mu      sync.RWMutex
	order   []uuid.UUID
	doctors map[uuid.UUID]Doctor
}

// NewDoctorRepoMemory returns an in-process catalog seeded with doctors in the
// given order.
func NewDoctorRepoMemory(seed ...Doctor) DoctorRepository {
	r := &doctorRepoMemory{doctors: make(map[uuid.UUID]Doctor, len(seed))}
	for i := range seed {
		d := seed[i]
		_ = r.Upsert(context.Background(), &d)
	}
	return r
}

func (r *doctorRepoMemory) Upsert(_ context.Context, d *Doctor) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.doctors[d.ID]; !ok {
		r.order = append(r.order, d.ID)
	}
	r.doctors[d.ID] = *d
	return nil
}

func (r *doctorRepoMemory) GetByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (r *doctorRepoMemory) List(_ context.Context) ([]Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Doctor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.doctors[id])
	}
	return out, nil
}
