package directory

import (
	"sort"
	"strings"
)

// Ranker reports whether a should be listed before b.
type Ranker func(a, b *Doctor) bool

// Rank returns a stably sorted copy of doctors. A nil ranker returns doctors
// unchanged.
func Rank(doctors []Doctor, less Ranker) []Doctor {
	if less == nil {
		return doctors
	}
	out := make([]Doctor, len(doctors))
	copy(out, doctors)
	sort.SliceStable(out, func(i, j int) bool { return less(&out[i], &out[j]) })
	return out
}

// ByAvailability puts doctors available today first, then orders by the
// earliest next slot. Doctors without a known slot come last.
func ByAvailability(a, b *Doctor) bool {
	if a.AvailableToday != b.AvailableToday {
		return a.AvailableToday
	}
	switch {
	case a.NextAvailableSlot == nil:
		return false
	case b.NextAvailableSlot == nil:
		return true
	}
	return a.NextAvailableSlot.Before(*b.NextAvailableSlot)
}

// ByRating orders by rating descending with unrated doctors last, breaking
// ties on experience.
func ByRating(a, b *Doctor) bool {
	switch {
	case a.Rating == nil && b.Rating == nil:
	case a.Rating == nil:
		return false
	case b.Rating == nil:
		return true
	case *a.Rating != *b.Rating:
		return *a.Rating > *b.Rating
	}
	return experience(a) > experience(b)
}

func experience(d *Doctor) int {
	if d.ExperienceYears == nil {
		return -1
	}
	return *d.ExperienceYears
}

// RankerFor maps a sort mode name to a Ranker. Unknown or empty modes return
// nil, meaning catalog order.
func RankerFor(mode string) Ranker {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "availability":
		return ByAvailability
	case "rating":
		return ByRating
	default:
		return nil
	}
}
