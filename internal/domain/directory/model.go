package directory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Doctor is a catalog entry. Rating, ExperienceYears and NextAvailableSlot are
// optional and nil when unknown.
type Doctor struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	Name              string     `db:"name" json:"name"`
	Specialization    string     `db:"specialization" json:"specialization"`
	ClinicName        string     `db:"clinic_name" json:"clinic_name"`
	Location          string     `db:"location" json:"location"`
	Rating            *float64   `db:"rating" json:"rating,omitempty"`
	ExperienceYears   *int       `db:"experience_years" json:"experience_years,omitempty"`
	AvailableToday    bool       `db:"available_today" json:"available_today"`
	NextAvailableSlot *time.Time `db:"next_available_slot" json:"next_available_slot,omitempty"`
}

func (d *Doctor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(d.Specialization) == "" {
		return fmt.Errorf("specialization is required")
	}
	if d.Rating != nil && (*d.Rating < 0 || *d.Rating > 5) {
		return fmt.Errorf("rating must be between 0 and 5, got %v", *d.Rating)
	}
	if d.ExperienceYears != nil && *d.ExperienceYears < 0 {
		return fmt.Errorf("experience_years must not be negative")
	}
	return nil
}

// Query holds the optional search criteria. Blank fields do not filter.
type Query struct {
	Text      string `query:"q" json:"text,omitempty"`
	Specialty string `query:"specialty" json:"specialty,omitempty"`
	Location  string `query:"location" json:"location,omitempty"`
}

// IsEmpty reports whether q would filter nothing out.
func (q Query) IsEmpty() bool {
	return strings.TrimSpace(q.Text) == "" && q.Specialty == "" && q.Location == ""
}

// Facets are the distinct filter values a catalog offers.
type Facets struct {
	Specialties []string `json:"specialties"`
	Locations   []string `json:"locations"`
}
