package scheduling

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medibook/booking/internal/domain/identity"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
)

var validStatuses = map[Status]bool{
	StatusPending: true, StatusApproved: true, StatusRejected: true, StatusCancelled: true,
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !validStatuses[st] {
		return "", fmt.Errorf("unknown status: %q", s)
	}
	return st, nil
}

func (s Status) Valid() bool { return validStatuses[s] }

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCancelled
}

// Action is a requested lifecycle move.
type Action string

const (
	ActionRequest Action = "request"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionCancel  Action = "cancel"
)

const DateLayout = "2006-01-02"

// ParseDate reads a calendar date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return d, nil
}

// TimeOfDay is a wall-clock time in minutes after midnight.
type TimeOfDay int

var timeLayouts = []string{"15:04", "15:04:05", "3:04 PM", "3:04PM"}

// ParseTimeOfDay accepts "14:30", "14:30:00" and "2:30 PM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay(t.Hour()*60 + t.Minute()), nil
		}
	}
	return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
}

// NewTimeOfDay panics on out-of-range input; it is meant for literals.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		panic(fmt.Sprintf("scheduling: invalid time of day %02d:%02d", hour, minute))
	}
	return TimeOfDay(hour*60 + minute)
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Appointment maps to the appointment table. VersionID increments on every
// committed save and guards concurrent writers.
type Appointment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Date      time.Time `db:"appointment_date" json:"date"`
	Time      TimeOfDay `db:"appointment_time" json:"time"`
	Reason    string    `db:"reason" json:"reason"`
	Status    Status    `db:"status" json:"status"`
	VersionID int64     `db:"version_id" json:"version_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StartsAt is the instant the appointment begins when read in loc.
func (a *Appointment) StartsAt(loc *time.Location) time.Time {
	return time.Date(a.Date.Year(), a.Date.Month(), a.Date.Day(), a.Time.Hour(), a.Time.Minute(), 0, 0, loc)
}

func (a Appointment) MarshalJSON() ([]byte, error) {
	type alias Appointment
	return json.Marshal(struct {
		alias
		Date string `json:"date"`
	}{alias(a), a.Date.Format(DateLayout)})
}

func (a *Appointment) UnmarshalJSON(b []byte) error {
	type alias Appointment
	aux := struct {
		*alias
		Date string `json:"date"`
	}{alias: (*alias)(a)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.Date == "" {
		return nil
	}
	d, err := ParseDate(aux.Date)
	if err != nil {
		return err
	}
	a.Date = d
	return nil
}

// StatusChange is one row of an appointment's audit trail. From is empty for
// the creating entry.
type StatusChange struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	AppointmentID uuid.UUID     `db:"appointment_id" json:"appointment_id"`
	From          Status        `db:"from_status" json:"from,omitempty"`
	To            Status        `db:"to_status" json:"to"`
	ActorID       uuid.UUID     `db:"actor_id" json:"actor_id"`
	ActorRole     identity.Role `db:"actor_role" json:"actor_role"`
	ChangedAt     time.Time     `db:"changed_at" json:"changed_at"`
}

// AppointmentFilter selects appointments. Zero fields match everything.
type AppointmentFilter struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Statuses  []Status
}

func (f AppointmentFilter) Match(a *Appointment) bool {
	if f.PatientID != uuid.Nil && a.PatientID != f.PatientID {
		return false
	}
	if f.DoctorID != uuid.Nil && a.DoctorID != f.DoctorID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if a.Status == s {
			return true
		}
	}
	return false
}

// FilterFor scopes the appointment set to what actor may see.
func FilterFor(actor identity.Actor) (AppointmentFilter, error) {
	switch actor.Role {
	case identity.RolePatient:
		return AppointmentFilter{PatientID: actor.ID}, nil
	case identity.RoleDoctor:
		return AppointmentFilter{DoctorID: actor.ID}, nil
	case identity.RoleAdmin:
		return AppointmentFilter{}, nil
	default:
		return AppointmentFilter{}, fmt.Errorf("%w: unknown role %q", ErrUnauthorized, actor.Role)
	}
}
