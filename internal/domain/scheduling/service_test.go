package scheduling

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medibook/booking/internal/domain/directory"
	"github.com/medibook/booking/internal/domain/identity"
	"github.com/medibook/booking/internal/platform/clock"
)

// 2026-03-11 10:00 UTC
var testNow = time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	repo     AppointmentRepository
	clock    *clock.Fixed
	users    *identity.Service
	patient  identity.Actor
	patient2 identity.Actor
	doctor   identity.Actor
	doctor2  identity.Actor
	admin    identity.Actor
	events   *recordingListener
}

type recordingListener struct {
	mu      sync.Mutex
	changes []StatusChange
}

func (l *recordingListener) AppointmentChanged(_ context.Context, _ Appointment, change StatusChange) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.changes = append(l.changes, change)
}

func (l *recordingListener) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.changes)
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithRepo(t, func(r AppointmentRepository) AppointmentRepository { return r })
}

func newFixtureWithRepo(t *testing.T, wrap func(AppointmentRepository) AppointmentRepository) *fixture {
	t.Helper()
	ctx := context.Background()
	users := identity.NewService(identity.NewUserRepoMemory())
	mkUser := func(role identity.Role, name string) identity.Actor {
		u := &identity.User{Role: role, DisplayName: name, Email: name + "@example.com"}
		if err := users.CreateUser(ctx, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
		return u.Actor()
	}

	doctors := directory.NewService(directory.NewDoctorRepoMemory(directory.DefaultCatalog(testNow)...))
	f := &fixture{
		repo:     NewAppointmentRepoMemory(),
		clock:    clock.NewFixed(testNow),
		users:    users,
		patient:  mkUser(identity.RolePatient, "john"),
		patient2: mkUser(identity.RolePatient, "jane"),
		doctor:   identity.Actor{ID: directory.SarahJohnsonID, Role: identity.RoleDoctor},
		doctor2:  identity.Actor{ID: directory.MichaelChenID, Role: identity.RoleDoctor},
		admin:    mkUser(identity.RoleAdmin, "root"),
		events:   &recordingListener{},
	}
	f.svc = NewService(wrap(f.repo), doctors, users, f.clock, zerolog.Nop(), f.events)
	return f
}

func (f *fixture) book(t *testing.T, patient identity.Actor, doctorID uuid.UUID, daysAhead int, at TimeOfDay) *Appointment {
	t.Helper()
	a, err := f.svc.CreateAppointment(context.Background(), patient.ID, doctorID,
		clock.DateOf(testNow).AddDate(0, 0, daysAhead), at, "checkup")
	if err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	return a
}

func TestCreateAppointment(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, f.patient, f.doctor.ID, 1, NewTimeOfDay(9, 0))

	if a.Status != StatusPending {
		t.Errorf("expected PENDING, got %s", a.Status)
	}
	if a.VersionID != 1 {
		t.Errorf("expected version 1, got %d", a.VersionID)
	}
	if !a.CreatedAt.Equal(testNow) || !a.UpdatedAt.Equal(testNow) {
		t.Errorf("unexpected timestamps %v / %v", a.CreatedAt, a.UpdatedAt)
	}
	h, _ := f.svc.History(context.Background(), a.ID, f.patient)
	if len(h) != 1 || h[0].From != "" || h[0].To != StatusPending || h[0].ActorID != f.patient.ID {
		t.Errorf("unexpected history %+v", h)
	}
	if f.events.count() != 1 {
		t.Errorf("expected 1 event, got %d", f.events.count())
	}
}

func TestCreateAppointment_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	today := clock.DateOf(testNow)
	yesterday := today.AddDate(0, 0, -1)

	tests := []struct {
		name    string
		patient uuid.UUID
		doctor  uuid.UUID
		date    time.Time
		at      TimeOfDay
		reason  string
	}{
		{"yesterday", f.patient.ID, f.doctor.ID, yesterday, NewTimeOfDay(15, 0), "checkup"},
		{"earlier today", f.patient.ID, f.doctor.ID, today, NewTimeOfDay(9, 59), "checkup"},
		{"empty reason", f.patient.ID, f.doctor.ID, today.AddDate(0, 0, 1), NewTimeOfDay(9, 0), "   "},
		{"unknown doctor", f.patient.ID, uuid.New(), today.AddDate(0, 0, 1), NewTimeOfDay(9, 0), "checkup"},
		{"unknown patient", uuid.New(), f.doctor.ID, today.AddDate(0, 0, 1), NewTimeOfDay(9, 0), "checkup"},
		{"admin as patient", f.admin.ID, f.doctor.ID, today.AddDate(0, 0, 1), NewTimeOfDay(9, 0), "checkup"},
		{"zero date", f.patient.ID, f.doctor.ID, time.Time{}, NewTimeOfDay(9, 0), "checkup"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateAppointment(ctx, tt.patient, tt.doctor, tt.date, tt.at, tt.reason)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}

	all, _ := f.svc.ListForUser(ctx, f.admin)
	if len(all) != 0 {
		t.Errorf("expected nothing stored, got %d", len(all))
	}
}

func TestCreateAppointment_NowIsNotPast(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.CreateAppointment(context.Background(), f.patient.ID, f.doctor.ID,
		clock.DateOf(testNow), NewTimeOfDay(10, 0), "now"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateAppointment_PastCheckUsesClockLocation(t *testing.T) {
	f := newFixture(t)
	// 10:00 UTC is 12:00 in UTC+2, so 11:00 local on the same day is past.
	f.clock.Set(testNow.In(time.FixedZone("UTC+2", 2*3600)))
	_, err := f.svc.CreateAppointment(context.Background(), f.patient.ID, f.doctor.ID,
		clock.DateOf(testNow), NewTimeOfDay(11, 0), "checkup")
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestRequestAppointment_OnlyPatients(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tomorrow := clock.DateOf(testNow).AddDate(0, 0, 1)

	for _, actor := range []identity.Actor{f.doctor, f.admin} {
		_, err := f.svc.RequestAppointment(ctx, actor, f.doctor.ID, tomorrow, NewTimeOfDay(9, 0), "x")
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("%s: expected ErrUnauthorized, got %v", actor.Role, err)
		}
	}
	a, err := f.svc.RequestAppointment(ctx, f.patient, f.doctor.ID, tomorrow, NewTimeOfDay(9, 0), "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.PatientID != f.patient.ID {
		t.Errorf("expected appointment owned by acting patient")
	}
}

func TestApproveThenCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, f.patient, f.doctor.ID, 2, NewTimeOfDay(11, 0))

	f.clock.Advance(time.Hour)
	approved, err := f.svc.Approve(ctx, a.ID, f.doctor)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != StatusApproved {
		t.Errorf("expected APPROVED, got %s", approved.Status)
	}
	if !approved.UpdatedAt.After(a.UpdatedAt) {
		t.Errorf("expected updated_at to advance: %v -> %v", a.UpdatedAt, approved.UpdatedAt)
	}

	f.clock.Advance(time.Hour)
	cancelled, err := f.svc.Cancel(ctx, a.ID, f.patient)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Errorf("expected CANCELLED, got %s", cancelled.Status)
	}
	if cancelled.VersionID != 3 {
		t.Errorf("expected version 3, got %d", cancelled.VersionID)
	}

	h, err := f.svc.History(ctx, a.ID, f.admin)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	want := []struct{ from, to Status }{
		{"", StatusPending},
		{StatusPending, StatusApproved},
		{StatusApproved, StatusCancelled},
	}
	if len(h) != len(want) {
		t.Fatalf("expected %d history rows, got %d", len(want), len(h))
	}
	for i, w := range want {
		if h[i].From != w.from || h[i].To != w.to {
			t.Errorf("row %d: got %s->%s, want %s->%s", i, h[i].From, h[i].To, w.from, w.to)
		}
	}
	if h[1].ActorRole != identity.RoleDoctor || h[2].ActorID != f.patient.ID {
		t.Errorf("unexpected actors in history %+v", h)
	}
}

func TestTransition_UpdatedAtAdvancesWithFrozenClock(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, f.patient, f.doctor.ID, 1, NewTimeOfDay(9, 0))
	got, err := f.svc.Reject(context.Background(), a.ID, f.admin)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if !got.UpdatedAt.After(a.UpdatedAt) {
		t.Errorf("expected updated_at to advance")
	}
}

func TestTransition_Unauthorized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, f.patient, f.doctor.ID, 1, NewTimeOfDay(9, 0))

	tests := []struct {
		name   string
		actor  identity.Actor
		action Action
	}{
		{"patient approves", f.patient, ActionApprove},
		{"patient rejects", f.patient, ActionReject},
		{"doctor cancels", f.doctor, ActionCancel},
		{"admin cancels", f.admin, ActionCancel},
		{"other doctor approves", f.doctor2, ActionApprove},
		{"other doctor rejects", f.doctor2, ActionReject},
		{"other patient cancels", f.patient2, ActionCancel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Transition(ctx, a.ID, tt.actor, tt.action)
			if !errors.Is(err, ErrUnauthorized) {
				t.Errorf("expected ErrUnauthorized, got %v", err)
			}
		})
	}

	got, _ := f.svc.Get(ctx, a.ID, f.admin)
	if got.Status != StatusPending || got.VersionID != 1 {
		t.Errorf("expected untouched appointment, got %s v%d", got.Status, got.VersionID)
	}
}

func TestTransition_UnauthorizedRegardlessOfState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, f.patient, f.doctor.ID, 1, NewTimeOfDay(9, 0))
	if _, err := f.svc.Reject(ctx, a.ID, f.doctor); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := f.svc.Approve(ctx, a.ID, f.patient); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := f.svc.Cancel(ctx, a.ID, f.admin); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestTransition_InvalidTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	approved := f.book(t, f.patient, f.doctor.ID, 1, NewTimeOfDay(9, 0))
	if _, err := f.svc.Approve(ctx, approved.ID, f.doctor); err != nil {
		t.Fatalf("approve: %v", err)
	}
	rejected := f.book(t, f.patient, f.doctor.ID, 1, NewTimeOfDay(10, 0))
	if _, err := f.svc.Reject(ctx, rejected.ID, f.doctor); err != nil {
		t.Fatalf("reject: %v", err)
	}
	cancelled := f.book(t, f.patient, f.doctor.ID, 1, NewTimeOfDay(11, 0))
	if _, err := f.svc.Cancel(ctx, cancelled.ID, f.patient); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	tests := []struct {
		name   string
		id     uuid.UUID
		actor  identity.Actor
		action Action
	}{
		{"reject approved", approved.ID, f.doctor, ActionReject},
		{"approve approved", approved.ID, f.admin, ActionApprove},
		{"approve rejected", rejected.ID, f.doctor, ActionApprove},
		{"cancel rejected", rejected.ID, f.patient, ActionCancel},
		{"approve cancelled", cancelled.ID, f.admin, ActionApprove},
		{"cancel cancelled", cancelled.ID, f.patient, ActionCancel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Transition(ctx, tt.id, tt.actor, tt.action)
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("expected ErrInvalidTransition, got %v", err)
			}
		})
	}
}

func TestTransition_NotFound(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Approve(context.Background(), uuid.New(), f.admin); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTransition_UnknownAction(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, f.patient, f.doctor.ID, 1, NewTimeOfDay(9, 0))
	if _, err := f.svc.Transition(context.Background(), a.ID, f.admin, "complete"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestConcurrentApprove_ExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, f.patient, f.doctor.ID, 1, NewTimeOfDay(9, 0))

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		actor := f.doctor
		if i%2 == 1 {
			actor = f.admin
		}
		wg.Add(1)
		go func(actor identity.Actor) {
			defer wg.Done()
			<-start
			_, err := f.svc.Approve(context.Background(), a.ID, actor)
			errs <- err
		}(actor)
	}
	close(start)
	wg.Wait()
	close(errs)

	var ok, lost int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInvalidTransition):
			lost++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || lost != workers-1 {
		t.Errorf("expected 1 winner and %d losers, got %d and %d", workers-1, ok, lost)
	}

	h, _ := f.svc.History(context.Background(), a.ID, f.admin)
	if len(h) != 2 {
		t.Errorf("expected 2 history rows, got %d", len(h))
	}
}

func TestConcurrentApproveReject_OneOutcome(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, f.patient, f.doctor.ID, 1, NewTimeOfDay(9, 0))

	var wg sync.WaitGroup
	results := make([]error, 2)
	wg.Add(2)
	go func() { defer wg.Done(); _, results[0] = f.svc.Approve(context.Background(), a.ID, f.doctor) }()
	go func() { defer wg.Done(); _, results[1] = f.svc.Reject(context.Background(), a.ID, f.admin) }()
	wg.Wait()

	if (results[0] == nil) == (results[1] == nil) {
		t.Fatalf("expected exactly one success, got %v / %v", results[0], results[1])
	}
	got, _ := f.svc.Get(context.Background(), a.ID, f.admin)
	if results[0] == nil && got.Status != StatusApproved {
		t.Errorf("expected APPROVED, got %s", got.Status)
	}
	if results[1] == nil && got.Status != StatusRejected {
		t.Errorf("expected REJECTED, got %s", got.Status)
	}
}

// conflictingRepo simulates a writer in another process committing between
// the engine's read and its save.
type conflictingRepo struct {
	AppointmentRepository
	failSave error
}

func (r *conflictingRepo) Save(ctx context.Context, a *Appointment, change StatusChange) error {
	if a.VersionID > 0 && r.failSave != nil {
		return r.failSave
	}
	return r.AppointmentRepository.Save(ctx, a, change)
}

func TestTransition_VersionConflictIsInvalidTransition(t *testing.T) {
	var repo *conflictingRepo
	f := newFixtureWithRepo(t, func(r AppointmentRepository) AppointmentRepository {
		repo = &conflictingRepo{AppointmentRepository: r}
		return repo
	})
	a := f.book(t, f.patient, f.doctor.ID, 1, NewTimeOfDay(9, 0))
	repo.failSave = ErrVersionConflict

	if _, err := f.svc.Approve(context.Background(), a.ID, f.doctor); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestTransition_StorageFailureLeavesStateIntact(t *testing.T) {
	var repo *conflictingRepo
	f := newFixtureWithRepo(t, func(r AppointmentRepository) AppointmentRepository {
		repo = &conflictingRepo{AppointmentRepository: r}
		return repo
	})
	ctx := context.Background()
	a := f.book(t, f.patient, f.doctor.ID, 1, NewTimeOfDay(9, 0))
	repo.failSave = errors.New("connection reset")

	_, err := f.svc.Approve(ctx, a.ID, f.doctor)
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrNotFound) {
		t.Errorf("storage error should carry a single kind: %v", err)
	}

	stored, _ := f.repo.Get(ctx, a.ID)
	if stored.Status != StatusPending || stored.VersionID != 1 {
		t.Errorf("expected PENDING v1, got %s v%d", stored.Status, stored.VersionID)
	}
	h, _ := f.repo.History(ctx, a.ID)
	if len(h) != 1 {
		t.Errorf("expected only the creation row, got %d", len(h))
	}
	if f.events.count() != 1 {
		t.Errorf("expected no event for failed save, got %d events", f.events.count())
	}

	repo.failSave = nil
	if _, err := f.svc.Approve(ctx, a.ID, f.doctor); err != nil {
		t.Errorf("retry after recovery: %v", err)
	}
}

func TestListForUser_Scoping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, f.patient, f.doctor.ID, 1, NewTimeOfDay(9, 0))
	f.book(t, f.patient, f.doctor2.ID, 2, NewTimeOfDay(9, 0))
	f.book(t, f.patient2, f.doctor.ID, 3, NewTimeOfDay(9, 0))

	tests := []struct {
		name  string
		actor identity.Actor
		want  int
	}{
		{"patient", f.patient, 2},
		{"patient2", f.patient2, 1},
		{"doctor", f.doctor, 2},
		{"doctor2", f.doctor2, 1},
		{"admin", f.admin, 3},
	}
	for _, tt := range tests {
		items, err := f.svc.ListForUser(ctx, tt.actor)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if len(items) != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.name, tt.want, len(items))
		}
		for _, a := range items {
			if tt.actor.Role == identity.RolePatient && a.PatientID != tt.actor.ID {
				t.Errorf("%s: saw another patient's appointment", tt.name)
			}
			if tt.actor.Role == identity.RoleDoctor && a.DoctorID != tt.actor.ID {
				t.Errorf("%s: saw another doctor's appointment", tt.name)
			}
		}
	}

	if _, err := f.svc.ListForUser(ctx, identity.Actor{ID: uuid.New(), Role: "NURSE"}); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for unknown role, got %v", err)
	}
}

func TestListForUser_Ordering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	late := f.book(t, f.patient, f.doctor.ID, 5, NewTimeOfDay(9, 0))
	early := f.book(t, f.patient, f.doctor.ID, 1, NewTimeOfDay(16, 0))
	sameDayLater := f.book(t, f.patient, f.doctor.ID, 5, NewTimeOfDay(14, 0))
	tieA := f.book(t, f.patient, f.doctor.ID, 3, NewTimeOfDay(10, 0))
	tieB := f.book(t, f.patient, f.doctor.ID, 3, NewTimeOfDay(10, 0))

	items, err := f.svc.ListForUser(ctx, f.patient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, second := tieA.ID, tieB.ID
	if second.String() < first.String() {
		first, second = second, first
	}
	want := []uuid.UUID{sameDayLater.ID, late.ID, first, second, early.ID}
	for i, id := range want {
		if items[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, items[i].ID, id)
		}
	}
}

func TestGet_OutOfScopeIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, f.patient, f.doctor.ID, 1, NewTimeOfDay(9, 0))

	for _, actor := range []identity.Actor{f.patient2, f.doctor2} {
		if _, err := f.svc.Get(ctx, a.ID, actor); !errors.Is(err, ErrNotFound) {
			t.Errorf("%s: expected ErrNotFound, got %v", actor.Role, err)
		}
		if _, err := f.svc.History(ctx, a.ID, actor); !errors.Is(err, ErrNotFound) {
			t.Errorf("%s history: expected ErrNotFound, got %v", actor.Role, err)
		}
	}
	for _, actor := range []identity.Actor{f.patient, f.doctor, f.admin} {
		if _, err := f.svc.Get(ctx, a.ID, actor); err != nil {
			t.Errorf("%s: unexpected error: %v", actor.Role, err)
		}
	}
}

func TestStatusPathsFollowTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actors := []identity.Actor{f.patient, f.patient2, f.doctor, f.doctor2, f.admin}
	actions := []Action{ActionApprove, ActionReject, ActionCancel}

	a := f.book(t, f.patient, f.doctor.ID, 1, NewTimeOfDay(9, 0))
	for round := 0; round < 3; round++ {
		for _, actor := range actors {
			for _, action := range actions {
				_, _ = f.svc.Transition(ctx, a.ID, actor, action)
			}
		}
	}

	h, _ := f.svc.History(ctx, a.ID, f.admin)
	for _, row := range h {
		if row.From == "" {
			continue
		}
		if _, ok := transitions[permission{row.ActorRole, row.From, actionFor(row.To)}]; !ok {
			t.Errorf("history contains illegal move %s -> %s by %s", row.From, row.To, row.ActorRole)
		}
	}
	if last := h[len(h)-1].To; !last.Terminal() && last != StatusApproved {
		t.Errorf("expected settled status, got %s", last)
	}
}

func actionFor(to Status) Action {
	switch to {
	case StatusApproved:
		return ActionApprove
	case StatusRejected:
		return ActionReject
	default:
		return ActionCancel
	}
}
