package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

const apptCols = `id, patient_id, doctor_id, appointment_date, appointment_time,
	reason, status, version_id, created_at, updated_at`

const historyCols = `id, appointment_id, COALESCE(from_status, ''), to_status,
	actor_id, actor_role, changed_at`

func (r *appointmentRepoPG) scanAppt(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var at pgtype.Time
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.Date, &at,
		&a.Reason, &a.Status, &a.VersionID, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoRecord
	}
	if err != nil {
		return nil, err
	}
	a.Time = timeOfDayFromPG(at)
	return &a, nil
}

func timeOfDayToPG(t TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t) * 60 * 1_000_000, Valid: true}
}

func timeOfDayFromPG(t pgtype.Time) TimeOfDay {
	return TimeOfDay(t.Microseconds / (60 * 1_000_000))
}

func nullableStatus(s Status) *string {
	if s == "" {
		return nil
	}
	v := string(s)
	return &v
}

func (r *appointmentRepoPG) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.scanAppt(r.pool.QueryRow(ctx, `SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
}

func (r *appointmentRepoPG) Save(ctx context.Context, a *Appointment, change StatusChange) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if a.VersionID == 0 {
			_, err := tx.Exec(ctx, `
				INSERT INTO appointment (id, patient_id, doctor_id, appointment_date, appointment_time,
					reason, status, version_id, created_at, updated_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,1,$8,$9)`,
				a.ID, a.PatientID, a.DoctorID, a.Date, timeOfDayToPG(a.Time),
				a.Reason, a.Status, a.CreatedAt, a.UpdatedAt)
			if err != nil {
				return err
			}
		} else {
			tag, err := tx.Exec(ctx, `
				UPDATE appointment SET status=$2, updated_at=$3, version_id=version_id+1
				WHERE id = $1 AND version_id = $4`,
				a.ID, a.Status, a.UpdatedAt, a.VersionID)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				var exists bool
				if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM appointment WHERE id = $1)`, a.ID).Scan(&exists); err != nil {
					return err
				}
				if !exists {
					return ErrNoRecord
				}
				return ErrVersionConflict
			}
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO appointment_status_history (id, appointment_id, from_status, to_status,
				actor_id, actor_role, changed_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			change.ID, change.AppointmentID, nullableStatus(change.From), change.To,
			change.ActorID, change.ActorRole, change.ChangedAt)
		return err
	})
	if err != nil {
		return err
	}
	a.VersionID++
	return nil
}

func (r *appointmentRepoPG) List(ctx context.Context, f AppointmentFilter) ([]*Appointment, error) {
	query := `SELECT ` + apptCols + ` FROM appointment WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.PatientID != uuid.Nil {
		query += fmt.Sprintf(` AND patient_id = $%d`, idx)
		args = append(args, f.PatientID)
		idx++
	}
	if f.DoctorID != uuid.Nil {
		query += fmt.Sprintf(` AND doctor_id = $%d`, idx)
		args = append(args, f.DoctorID)
		idx++
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		query += fmt.Sprintf(` AND status = ANY($%d)`, idx)
		args = append(args, statuses)
	}
	query += ` ORDER BY appointment_date DESC, appointment_time DESC, id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppt(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *appointmentRepoPG) History(ctx context.Context, appointmentID uuid.UUID) ([]StatusChange, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+historyCols+` FROM appointment_status_history
		WHERE appointment_id = $1 ORDER BY changed_at, id`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []StatusChange
	for rows.Next() {
		var h StatusChange
		if err := rows.Scan(&h.ID, &h.AppointmentID, &h.From, &h.To,
			&h.ActorID, &h.ActorRole, &h.ChangedAt); err != nil {
			return nil, err
		}
		items = append(items, h)
	}
	return items, rows.Err()
}
