package scheduling

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type appointmentRepoMemory struct {
	mu      sync.RWMutex
	appts   map[uuid.UUID]Appointment
	history map[uuid.UUID][]StatusChange
}

// NewAppointmentRepoMemory returns a process-local AppointmentRepository.
func NewAppointmentRepoMemory() AppointmentRepository {
	return &appointmentRepoMemory{
		appts:   make(map[uuid.UUID]Appointment),
		history: make(map[uuid.UUID][]StatusChange),
	}
}

func (r *appointmentRepoMemory) Get(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.appts[id]
	if !ok {
		return nil, ErrNoRecord
	}
	return &a, nil
}

func (r *appointmentRepoMemory) Save(_ context.Context, a *Appointment, change StatusChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.appts[a.ID]
	switch {
	case a.VersionID == 0 && exists:
		return ErrVersionConflict
	case a.VersionID != 0 && !exists:
		return ErrNoRecord
	case exists && stored.VersionID != a.VersionID:
		return ErrVersionConflict
	}

	a.VersionID++
	r.appts[a.ID] = *a
	r.history[a.ID] = append(r.history[a.ID], change)
	return nil
}

func (r *appointmentRepoMemory) List(_ context.Context, f AppointmentFilter) ([]*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Appointment
	for _, a := range r.appts {
		a := a
		if f.Match(&a) {
			out = append(out, &a)
		}
	}
	return out, nil
}

func (r *appointmentRepoMemory) History(_ context.Context, appointmentID uuid.UUID) ([]StatusChange, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h := r.history[appointmentID]
	out := make([]StatusChange, len(h))
	copy(out, h)
	return out, nil
}
