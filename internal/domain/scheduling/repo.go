package scheduling

import (
	"context"

	"github.com/google/uuid"
)

// AppointmentRepository is the persistence collaborator. Every mutation goes
// through Save.
//
// Save inserts a when a.VersionID is zero. Otherwise it updates the row only
// if the stored version still equals a.VersionID, returning ErrVersionConflict
// when it does not. change is recorded in the same unit of work. On success
// a.VersionID holds the new version; on failure nothing is written.
type AppointmentRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Save(ctx context.Context, a *Appointment, change StatusChange) error
	List(ctx context.Context, f AppointmentFilter) ([]*Appointment, error)
	History(ctx context.Context, appointmentID uuid.UUID) ([]StatusChange, error)
}
