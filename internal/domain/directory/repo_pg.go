package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type doctorRepoPG struct{ pool *pgxpool.Pool }

func NewDoctorRepoPG(pool *pgxpool.Pool) DoctorRepository { return &doctorRepoPG{pool: pool} }

const doctorCols = `id, name, specialization, clinic_name, location,
	rating, experience_years, available_today, next_available_slot`

func (r *doctorRepoPG) scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.Name, &d.Specialization, &d.ClinicName, &d.Location,
		&d.Rating, &d.ExperienceYears, &d.AvailableToday, &d.NextAvailableSlot)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &d, err
}

func (r *doctorRepoPG) Upsert(ctx context.Context, d *Doctor) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO doctor (id, name, specialization, clinic_name, location,
			rating, experience_years, available_today, next_available_slot)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
			name=EXCLUDED.name, specialization=EXCLUDED.specialization,
			clinic_name=EXCLUDED.clinic_name, location=EXCLUDED.location,
			rating=EXCLUDED.rating, experience_years=EXCLUDED.experience_years,
			available_today=EXCLUDED.available_today,
			next_available_slot=EXCLUDED.next_available_slot,
			updated_at=NOW()`,
		d.ID, d.Name, d.Specialization, d.ClinicName, d.Location,
		d.Rating, d.ExperienceYears, d.AvailableToday, d.NextAvailableSlot)
	return err
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return r.scanDoctor(r.pool.QueryRow(ctx, `SELECT `+doctorCols+` FROM doctor WHERE id = $1`, id))
}

// List orders by catalog_pos so Postgres returns the same order the catalog
// was seeded in.
func (r *doctorRepoPG) List(ctx context.Context) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+doctorCols+` FROM doctor ORDER BY catalog_pos, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Doctor
	for rows.Next() {
		d, err := r.scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	return items, rows.Err()
}
