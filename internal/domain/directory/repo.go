package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("doctor not found")

// DoctorRepository is the catalog store. List returns doctors in catalog
// order, which is the order Search preserves.
type DoctorRepository interface {
	Upsert(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	List(ctx context.Context) ([]Doctor, error)
}
