package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medibook/booking/internal/domain/directory"
	"github.com/medibook/booking/internal/domain/identity"
	"github.com/medibook/booking/internal/platform/clock"
)

// DoctorLookup resolves doctor references.
type DoctorLookup interface {
	GetDoctor(ctx context.Context, id uuid.UUID) (*directory.Doctor, error)
}

// PatientLookup resolves patient references.
type PatientLookup interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

// ChangeListener is told about every committed mutation, after the commit.
// Implementations must not block.
type ChangeListener interface {
	AppointmentChanged(ctx context.Context, a Appointment, change StatusChange)
}

// Service is the appointment lifecycle engine. It decides transition legality
// and authorization; collaborators only store, resolve and present.
type Service struct {
	appts     AppointmentRepository
	doctors   DoctorLookup
	patients  PatientLookup
	clock     clock.Clock
	logger    zerolog.Logger
	listeners []ChangeListener
	locks     *keyedMutex
}

func NewService(appts AppointmentRepository, doctors DoctorLookup, patients PatientLookup,
	clk clock.Clock, logger zerolog.Logger, listeners ...ChangeListener) *Service {
	return &Service{
		appts:     appts,
		doctors:   doctors,
		patients:  patients,
		clock:     clk,
		logger:    logger.With().Str("component", "lifecycle").Logger(),
		listeners: listeners,
		locks:     newKeyedMutex(),
	}
}

// AddListener registers l. Call it before serving requests.
func (s *Service) AddListener(l ChangeListener) {
	s.listeners = append(s.listeners, l)
}

// CreateAppointment books a PENDING appointment for patientID. The patient is
// recorded as the actor of the creating history entry.
func (s *Service) CreateAppointment(ctx context.Context, patientID, doctorID uuid.UUID,
	date time.Time, at TimeOfDay, reason string) (*Appointment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrValidation)
	}
	if date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrValidation)
	}
	if at < 0 || at >= 24*60 {
		return nil, fmt.Errorf("%w: time out of range", ErrValidation)
	}

	if _, err := s.doctors.GetDoctor(ctx, doctorID); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, fmt.Errorf("%w: doctor %s does not exist", ErrValidation, doctorID)
		}
		return nil, s.storageError("get doctor", err)
	}
	if _, err := s.patients.GetPatient(ctx, patientID); err != nil {
		if errors.Is(err, identity.ErrNotFound) || errors.Is(err, identity.ErrNotPatient) {
			return nil, fmt.Errorf("%w: patient %s does not exist", ErrValidation, patientID)
		}
		return nil, s.storageError("get patient", err)
	}

	now := s.clock.Now()
	a := &Appointment{
		ID:        uuid.New(),
		PatientID: patientID,
		DoctorID:  doctorID,
		Date:      clock.DateOf(date),
		Time:      at,
		Reason:    reason,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if a.StartsAt(now.Location()).Before(now) {
		return nil, fmt.Errorf("%w: %s %s is in the past", ErrValidation, a.Date.Format(DateLayout), a.Time)
	}

	change := StatusChange{
		ID:            uuid.New(),
		AppointmentID: a.ID,
		To:            StatusPending,
		ActorID:       patientID,
		ActorRole:     identity.RolePatient,
		ChangedAt:     now,
	}
	if err := s.appts.Save(ctx, a, change); err != nil {
		return nil, s.storageError("save appointment", err)
	}

	s.logger.Info().
		Str("appointment_id", a.ID.String()).
		Str("to", string(StatusPending)).
		Str("actor_id", patientID.String()).
		Msg("appointment requested")
	s.notify(ctx, a, change)
	return a, nil
}

// RequestAppointment is CreateAppointment on behalf of the acting patient.
func (s *Service) RequestAppointment(ctx context.Context, actor identity.Actor, doctorID uuid.UUID,
	date time.Time, at TimeOfDay, reason string) (*Appointment, error) {
	if err := Authorize(actor, nil, ActionRequest); err != nil {
		return nil, err
	}
	return s.CreateAppointment(ctx, actor.ID, doctorID, date, at, reason)
}

func (s *Service) Approve(ctx context.Context, id uuid.UUID, actor identity.Actor) (*Appointment, error) {
	return s.transition(ctx, id, actor, ActionApprove)
}

func (s *Service) Reject(ctx context.Context, id uuid.UUID, actor identity.Actor) (*Appointment, error) {
	return s.transition(ctx, id, actor, ActionReject)
}

// Cancel is allowed only for the patient who owns the appointment.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actor identity.Actor) (*Appointment, error) {
	return s.transition(ctx, id, actor, ActionCancel)
}

// Transition dispatches a named action.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, actor identity.Actor, action Action) (*Appointment, error) {
	switch action {
	case ActionApprove, ActionReject, ActionCancel:
		return s.transition(ctx, id, actor, action)
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrValidation, action)
	}
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, actor identity.Actor, action Action) (*Appointment, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(actor, current, action); err != nil {
		return nil, err
	}
	to, err := NextStatus(actor.Role, current.Status, action)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if !now.After(current.UpdatedAt) {
		now = current.UpdatedAt.Add(time.Microsecond)
	}
	next := *current
	next.Status = to
	next.UpdatedAt = now

	change := StatusChange{
		ID:            uuid.New(),
		AppointmentID: id,
		From:          current.Status,
		To:            to,
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
		ChangedAt:     now,
	}
	if err := s.appts.Save(ctx, &next, change); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return nil, fmt.Errorf("%w: appointment changed concurrently", ErrInvalidTransition)
		}
		if errors.Is(err, ErrNoRecord) {
			return nil, fmt.Errorf("%w: appointment %s", ErrNotFound, id)
		}
		return nil, s.storageError("save appointment", err)
	}

	s.logger.Info().
		Str("appointment_id", id.String()).
		Str("from", string(current.Status)).
		Str("to", string(to)).
		Str("actor_id", actor.ID.String()).
		Str("actor_role", string(actor.Role)).
		Msg("appointment transitioned")
	s.notify(ctx, &next, change)
	return &next, nil
}

// ListForUser returns the appointments actor may see, most recent first.
func (s *Service) ListForUser(ctx context.Context, actor identity.Actor) ([]*Appointment, error) {
	f, err := FilterFor(actor)
	if err != nil {
		return nil, err
	}
	items, err := s.appts.List(ctx, f)
	if err != nil {
		return nil, s.storageError("list appointments", err)
	}
	SortMostRecentFirst(items)
	return items, nil
}

// Get returns one appointment if actor may see it. Appointments outside the
// actor's scope are reported as not found.
func (s *Service) Get(ctx context.Context, id uuid.UUID, actor identity.Actor) (*Appointment, error) {
	f, err := FilterFor(actor)
	if err != nil {
		return nil, err
	}
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !f.Match(a) {
		return nil, fmt.Errorf("%w: appointment %s", ErrNotFound, id)
	}
	return a, nil
}

// History returns the audit trail of an appointment visible to actor, oldest
// first.
func (s *Service) History(ctx context.Context, id uuid.UUID, actor identity.Actor) ([]StatusChange, error) {
	if _, err := s.Get(ctx, id, actor); err != nil {
		return nil, err
	}
	h, err := s.appts.History(ctx, id)
	if err != nil {
		return nil, s.storageError("load history", err)
	}
	return h, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.appts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNoRecord) {
			return nil, fmt.Errorf("%w: appointment %s", ErrNotFound, id)
		}
		return nil, s.storageError("get appointment", err)
	}
	return a, nil
}

func (s *Service) storageError(op string, err error) error {
	s.logger.Error().Err(err).Str("op", op).Msg("storage failure")
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}

func (s *Service) notify(ctx context.Context, a *Appointment, change StatusChange) {
	for _, l := range s.listeners {
		l.AppointmentChanged(ctx, *a, change)
	}
}

// SortMostRecentFirst orders by date then time descending, ties by id.
func SortMostRecentFirst(items []*Appointment) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if a.Time != b.Time {
			return a.Time > b.Time
		}
		return a.ID.String() < b.ID.String()
	})
}
