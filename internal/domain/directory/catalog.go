package directory

import (
	"time"

	"github.com/google/uuid"
)

// KnownSpecialties are the specializations offered in search forms, including
// ones no seeded doctor practises yet.
var KnownSpecialties = []string{
	"Cardiologist",
	"Dermatologist",
	"General Practitioner",
	"Orthopedic Surgeon",
	"Pediatrician",
	"Neurologist",
	"Psychiatrist",
	"Ophthalmologist",
}

// Stable ids for the seeded doctors so that tokens minted for them survive a
// restart of the memory store.
var (
	SarahJohnsonID  = uuid.MustParse("d0c70000-0000-4000-8000-000000000001")
	MichaelChenID   = uuid.MustParse("d0c70000-0000-4000-8000-000000000002")
	EmilyDavisID    = uuid.MustParse("d0c70000-0000-4000-8000-000000000003")
	RobertWilsonID  = uuid.MustParse("d0c70000-0000-4000-8000-000000000004")
	LisaThompsonID  = uuid.MustParse("d0c70000-0000-4000-8000-000000000005")
	DavidMartinezID = uuid.MustParse("d0c70000-0000-4000-8000-000000000006")
)

// DefaultCatalog returns the six seeded doctors with slots relative to now.
func DefaultCatalog(now time.Time) []Doctor {
	at := func(day time.Time, hour, min int) *time.Time {
		t := time.Date(day.Year(), day.Month(), day.Day(), hour, min, 0, 0, now.Location())
		return &t
	}
	tomorrow := now.AddDate(0, 0, 1)

	return []Doctor{
		{
			ID: SarahJohnsonID, Name: "Sarah Johnson", Specialization: "Cardiologist",
			ClinicName: "Heart Care Medical Center", Location: "Downtown Medical District",
			Rating: rating(4.9), ExperienceYears: years(15),
			AvailableToday: true, NextAvailableSlot: at(now, 15, 0),
		},
		{
			ID: MichaelChenID, Name: "Michael Chen", Specialization: "Dermatologist",
			ClinicName: "Skin Health Clinic", Location: "Westside Plaza",
			Rating: rating(4.8), ExperienceYears: years(12),
			NextAvailableSlot: at(tomorrow, 10, 0),
		},
		{
			ID: EmilyDavisID, Name: "Emily Davis", Specialization: "General Practitioner",
			ClinicName: "Family Health Center", Location: "Central Avenue",
			Rating: rating(4.7), ExperienceYears: years(8),
			AvailableToday: true, NextAvailableSlot: at(now, 16, 30),
		},
		{
			ID: RobertWilsonID, Name: "Robert Wilson", Specialization: "Orthopedic Surgeon",
			ClinicName: "Bone & Joint Institute", Location: "Medical Park",
			Rating: rating(4.9), ExperienceYears: years(20),
			NextAvailableSlot: at(nextWeekday(now, time.Monday), 9, 0),
		},
		{
			ID: LisaThompsonID, Name: "Lisa Thompson", Specialization: "Pediatrician",
			ClinicName: "Children's Health Clinic", Location: "Family Care District",
			Rating: rating(4.8), ExperienceYears: years(10),
			AvailableToday: true, NextAvailableSlot: at(now, 14, 15),
		},
		{
			ID: DavidMartinezID, Name: "David Martinez", Specialization: "Neurologist",
			ClinicName: "Brain & Spine Center", Location: "Specialist Medical Tower",
			Rating: rating(4.7), ExperienceYears: years(18),
			NextAvailableSlot: at(nextWeekday(now, time.Wednesday), 11, 0),
		},
	}
}

// nextWeekday returns the first day strictly after now that falls on wd.
func nextWeekday(now time.Time, wd time.Weekday) time.Time {
	days := (int(wd) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return now.AddDate(0, 0, days)
}

func rating(v float64) *float64 { return &v }

func years(v int) *int { return &v }
