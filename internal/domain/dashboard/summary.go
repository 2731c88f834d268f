package dashboard

import (
	"context"
	"time"

	"github.com/medibook/booking/internal/domain/identity"
	"github.com/medibook/booking/internal/domain/scheduling"
	"github.com/medibook/booking/internal/platform/clock"
)

// Summary is the dashboard for one user. DistinctPatients is only set for
// doctors and admins.
type Summary struct {
	Role             identity.Role             `json:"role"`
	Date             string                    `json:"date"`
	Total            int                       `json:"total"`
	PendingCount     int                       `json:"pending_count"`
	ApprovedCount    int                       `json:"approved_count"`
	TodayCount       int                       `json:"today_count"`
	UpcomingCount    int                       `json:"upcoming_count"`
	DistinctPatients *int                      `json:"distinct_patients,omitempty"`
	Pending          []*scheduling.Appointment `json:"pending"`
	TodaysSchedule   []*scheduling.Appointment `json:"todays_schedule"`
	Upcoming         []*scheduling.Appointment `json:"upcoming"`
	GeneratedAt      time.Time                 `json:"generated_at"`
}

// Build derives a Summary from the appointments visible to a user with role.
func Build(role identity.Role, items []*scheduling.Appointment, now time.Time) *Summary {
	today := clock.DateOf(now)
	s := &Summary{
		Role:           role,
		Date:           today.Format(scheduling.DateLayout),
		Total:          Total(items),
		PendingCount:   PendingCount(items),
		ApprovedCount:  StatusCount(items, scheduling.StatusApproved),
		Pending:        Pending(items),
		TodaysSchedule: TodaysSchedule(items, today),
		Upcoming:       Upcoming(items, today),
		GeneratedAt:    now,
	}
	s.TodayCount = len(s.TodaysSchedule)
	s.UpcomingCount = len(s.Upcoming)
	if role == identity.RoleDoctor || role == identity.RoleAdmin {
		n := DistinctPatientCount(items)
		s.DistinctPatients = &n
	}
	return s
}

// AppointmentLister supplies the user-scoped appointment set.
type AppointmentLister interface {
	ListForUser(ctx context.Context, actor identity.Actor) ([]*scheduling.Appointment, error)
}

type Aggregator struct {
	appts AppointmentLister
	clock clock.Clock
	cache *Cache
}

// NewAggregator builds an aggregator. cache may be nil.
func NewAggregator(appts AppointmentLister, clk clock.Clock, cache *Cache) *Aggregator {
	return &Aggregator{appts: appts, clock: clk, cache: cache}
}

func (g *Aggregator) Summary(ctx context.Context, actor identity.Actor) (*Summary, error) {
	var gen uint64
	if g.cache != nil {
		if s, ok := g.cache.Get(actor); ok {
			return s, nil
		}
		gen = g.cache.Generation()
	}

	items, err := g.appts.ListForUser(ctx, actor)
	if err != nil {
		return nil, err
	}
	s := Build(actor.Role, items, g.clock.Now())

	if g.cache != nil {
		g.cache.Put(actor, s, gen)
	}
	return s, nil
}
