// Package dashboard derives per-role views from the appointment set a user is
// allowed to see. Every figure is recomputed from appointments; nothing here
// is persisted.
package dashboard

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/medibook/booking/internal/domain/scheduling"
	"github.com/medibook/booking/internal/platform/clock"
)

func Total(items []*scheduling.Appointment) int { return len(items) }

// StatusCount counts appointments in status.
func StatusCount(items []*scheduling.Appointment, status scheduling.Status) int {
	n := 0
	for _, a := range items {
		if a.Status == status {
			n++
		}
	}
	return n
}

func PendingCount(items []*scheduling.Appointment) int {
	return StatusCount(items, scheduling.StatusPending)
}

// TodaysSchedule returns approved appointments on today, earliest first.
func TodaysSchedule(items []*scheduling.Appointment, today time.Time) []*scheduling.Appointment {
	day := clock.DateOf(today)
	out := filter(items, func(a *scheduling.Appointment) bool {
		return a.Status == scheduling.StatusApproved && clock.DateOf(a.Date).Equal(day)
	})
	sortChronological(out)
	return out
}

// Upcoming returns approved appointments on or after today, soonest first.
func Upcoming(items []*scheduling.Appointment, today time.Time) []*scheduling.Appointment {
	day := clock.DateOf(today)
	out := filter(items, func(a *scheduling.Appointment) bool {
		return a.Status == scheduling.StatusApproved && !clock.DateOf(a.Date).Before(day)
	})
	sortChronological(out)
	return out
}

// Pending returns pending appointments, soonest first.
func Pending(items []*scheduling.Appointment) []*scheduling.Appointment {
	out := filter(items, func(a *scheduling.Appointment) bool {
		return a.Status == scheduling.StatusPending
	})
	sortChronological(out)
	return out
}

func DistinctPatientCount(items []*scheduling.Appointment) int {
	seen := make(map[uuid.UUID]struct{}, len(items))
	for _, a := range items {
		seen[a.PatientID] = struct{}{}
	}
	return len(seen)
}

func filter(items []*scheduling.Appointment, keep func(*scheduling.Appointment) bool) []*scheduling.Appointment {
	out := []*scheduling.Appointment{}
	for _, a := range items {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

// sortChronological orders by date then time ascending, ties by id.
func sortChronological(items []*scheduling.Appointment) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.ID.String() < b.ID.String()
	})
}
