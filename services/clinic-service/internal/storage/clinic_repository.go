package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dentora/dentora/libs/db"
	"github.com/dentora/dentora/services/clinic-service/internal/model"
)

type ClinicRepository struct {
	pool *db.Pool
}

func NewClinicRepository(pool *db.Pool) *ClinicRepository {
	return &ClinicRepository{pool: pool}
}

func (r *ClinicRepository) GetProfile(ctx context.Context, clinicID string) (model.ClinicProfile, error) {
	var p model.ClinicProfile
	err := r.pool.QueryRow(ctx, `
		SELECT clinic_id::text, name, timezone, COALESCE(address, ''), COALESCE(phone, ''), updated_at
		FROM clinic_profiles
		WHERE clinic_id = $1
	`, clinicID).Scan(&p.ClinicID, &p.Name, &p.Timezone, &p.Address, &p.Phone, &p.UpdatedAt)
	if err != nil {
		return model.ClinicProfile{}, err
	}
	return p, nil
}

func (r *ClinicRepository) UpsertProfile(ctx context.Context, p model.ClinicProfile) (model.ClinicProfile, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO clinic_profiles (clinic_id, name, timezone, address, phone)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (clinic_id) DO UPDATE
		SET name = EXCLUDED.name,
			timezone = EXCLUDED.timezone,
			address = EXCLUDED.address,
			phone = EXCLUDED.phone,
			updated_at = now()
		RETURNING clinic_id::text, name, timezone, COALESCE(address, ''), COALESCE(phone, ''), updated_at
	`, p.ClinicID, p.Name, p.Timezone, p.Address, p.Phone).Scan(
		&p.ClinicID, &p.Name, &p.Timezone, &p.Address, &p.Phone, &p.UpdatedAt)
	if err != nil {
		return model.ClinicProfile{}, err
	}
	return p, nil
}

func (r *ClinicRepository) CreateService(ctx context.Context, svc model.Service) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO clinic_services (clinic_id, name, duration_minutes, price_cents)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text
	`, svc.ClinicID, svc.Name, svc.DurationMinutes, svc.PriceCents).Scan(&id)
	return id, err
}

func (r *ClinicRepository) ListServices(ctx context.Context, clinicID string) ([]model.Service, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, clinic_id::text, name, duration_minutes, COALESCE(price_cents, 0), created_at
		FROM clinic_services
		WHERE clinic_id = $1
		ORDER BY name ASC
	`, clinicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []model.Service
	for rows.Next() {
		var svc model.Service
		if err := rows.Scan(&svc.ID, &svc.ClinicID, &svc.Name, &svc.DurationMinutes, &svc.PriceCents, &svc.CreatedAt); err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return services, nil
}

// ServiceDurationByName resolves the catalog duration for a service name.
// The second return reports whether the name exists; the caller decides the
// default for unknown names.
func (r *ClinicRepository) ServiceDurationByName(ctx context.Context, clinicID, name string) (int, bool, error) {
	var minutes int
	err := r.pool.QueryRow(ctx, `
		SELECT duration_minutes
		FROM clinic_services
		WHERE clinic_id = $1 AND name = $2
	`, clinicID, name).Scan(&minutes)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return minutes, true, nil
}

// CreatePractitioner inserts the practitioner and seeds their schedule in
// one transaction so a practitioner row never exists without a schedule row.
func (r *ClinicRepository) CreatePractitioner(ctx context.Context, p model.Practitioner, scheduleDoc []byte) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	var id string
	err = tx.QueryRow(ctx, `
		INSERT INTO practitioners (clinic_id, name, specialty)
		VALUES ($1, $2, $3)
		RETURNING id::text
	`, p.ClinicID, p.Name, p.Specialty).Scan(&id)
	if err != nil {
		return "", err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO practitioner_schedules (practitioner_id, clinic_id, config)
		VALUES ($1, $2, $3)
	`, id, p.ClinicID, scheduleDoc)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (r *ClinicRepository) ListPractitioners(ctx context.Context, clinicID string) ([]model.Practitioner, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, clinic_id::text, name, COALESCE(specialty, ''), created_at
		FROM practitioners
		WHERE clinic_id = $1
		ORDER BY name ASC
	`, clinicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var practitioners []model.Practitioner
	for rows.Next() {
		var p model.Practitioner
		if err := rows.Scan(&p.ID, &p.ClinicID, &p.Name, &p.Specialty, &p.CreatedAt); err != nil {
			return nil, err
		}
		practitioners = append(practitioners, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return practitioners, nil
}

func (r *ClinicRepository) PractitionerExists(ctx context.Context, clinicID, practitionerID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM practitioners WHERE id = $1 AND clinic_id = $2
		)
	`, practitionerID, clinicID).Scan(&exists)
	return exists, err
}

// GetSchedule returns the raw schedule document. Missing rows are not an
// error: (nil, false, nil) means the practitioner has no saved schedule and
// the caller falls back to default hours.
func (r *ClinicRepository) GetSchedule(ctx context.Context, clinicID, practitionerID string) ([]byte, bool, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx, `
		SELECT config
		FROM practitioner_schedules
		WHERE practitioner_id = $1 AND clinic_id = $2
	`, practitionerID, clinicID).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

func (r *ClinicRepository) PutSchedule(ctx context.Context, clinicID, practitionerID string, doc []byte) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO practitioner_schedules (practitioner_id, clinic_id, config)
		VALUES ($1, $2, $3)
		ON CONFLICT (practitioner_id) DO UPDATE
		SET config = EXCLUDED.config,
			updated_at = now()
	`, practitionerID, clinicID, doc)
	return err
}

func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
