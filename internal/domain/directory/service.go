package directory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	doctors DoctorRepository
}

func NewService(doctors DoctorRepository) *Service {
	return &Service{doctors: doctors}
}

func (s *Service) AddDoctor(ctx context.Context, d *Doctor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	return s.doctors.Upsert(ctx, d)
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) Catalog(ctx context.Context) ([]Doctor, error) {
	return s.doctors.List(ctx)
}

// Search filters the current catalog and applies the ranker, if any.
func (s *Service) Search(ctx context.Context, q Query, rank Ranker) ([]Doctor, error) {
	catalog, err := s.doctors.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return Rank(Search(catalog, q), rank), nil
}

func (s *Service) Facets(ctx context.Context) (*Facets, error) {
	catalog, err := s.doctors.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	specialties := Specialties(catalog)
	seen := make(map[string]bool, len(specialties))
	for _, sp := range specialties {
		seen[sp] = true
	}
	for _, sp := range KnownSpecialties {
		if !seen[sp] {
			specialties = append(specialties, sp)
		}
	}
	return &Facets{Specialties: specialties, Locations: Locations(catalog)}, nil
}

// Seed writes every doctor in catalog, keeping existing ids.
func (s *Service) Seed(ctx context.Context, catalog []Doctor) error {
	for i := range catalog {
		if err := s.AddDoctor(ctx, &catalog[i]); err != nil {
			return fmt.Errorf("seed %s: %w", catalog[i].Name, err)
		}
	}
	return nil
}
