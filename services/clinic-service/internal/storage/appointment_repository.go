package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dentora/dentora/libs/db"
	"github.com/dentora/dentora/services/clinic-service/internal/model"
)

type AppointmentRepository struct {
	pool *db.Pool
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

func (r *AppointmentRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *AppointmentRepository) Create(ctx context.Context, tx pgx.Tx, appt *model.Appointment) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO appointments
			(clinic_id, practitioner_id, service_name, patient_name, patient_email, patient_phone, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id::text
	`, appt.ClinicID, appt.PractitionerID, appt.ServiceName, appt.PatientName, appt.PatientEmail, appt.PatientPhone,
		appt.StartTime, appt.EndTime, appt.Status).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *AppointmentRepository) GetAppointmentForUpdate(ctx context.Context, tx pgx.Tx, clinicID, appointmentID string) (model.Appointment, error) {
	var appt model.Appointment
	var cancelledAt *time.Time
	err := tx.QueryRow(ctx, `
		SELECT id::text, clinic_id::text, practitioner_id::text, service_name,
			patient_name, patient_email, COALESCE(patient_phone, ''),
			start_time, end_time, status, cancelled_at, COALESCE(cancellation_reason, ''), created_at
		FROM appointments
		WHERE id = $1 AND clinic_id = $2
		FOR UPDATE
	`, appointmentID, clinicID).Scan(
		&appt.ID,
		&appt.ClinicID,
		&appt.PractitionerID,
		&appt.ServiceName,
		&appt.PatientName,
		&appt.PatientEmail,
		&appt.PatientPhone,
		&appt.StartTime,
		&appt.EndTime,
		&appt.Status,
		&cancelledAt,
		&appt.CancelReason,
		&appt.CreatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.CancelledAt = cancelledAt
	return appt, nil
}

func (r *AppointmentRepository) Cancel(ctx context.Context, tx pgx.Tx, clinicID, appointmentID, reason string) (time.Time, error) {
	var cancelledAt time.Time
	err := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
			cancelled_at = now(),
			cancellation_reason = $3
		WHERE id = $1 AND clinic_id = $2
		RETURNING cancelled_at
	`, appointmentID, clinicID, reason).Scan(&cancelledAt)
	return cancelledAt, err
}

// bookedSpansQuery reads occupied time only. The public booking surface
// shares it with the staff calendar, so patient columns never feed an
// availability check.
const bookedSpansQuery = `
	SELECT start_time, end_time
	FROM appointments
	WHERE clinic_id = $1
		AND practitioner_id = $2
		AND status = 'booked'
		AND start_time < $4
		AND end_time > $3
		AND ($5 = '' OR id::text <> $5)
	ORDER BY start_time ASC`

type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ListBookedSpans returns the committed spans touching the [start, end)
// window. Cancelled rows never count. A non-empty excludeID drops that
// appointment from the result, which lets a reschedule flow offer the
// appointment's own slot back.
func (r *AppointmentRepository) ListBookedSpans(ctx context.Context, clinicID, practitionerID string, start, end time.Time, excludeID string) ([]model.BookedSpan, error) {
	return queryBookedSpans(ctx, r.pool, clinicID, practitionerID, start, end, excludeID)
}

// ListBookedSpansTx runs the same read on an open transaction so the booking
// overlap check and the insert share one snapshot.
func (r *AppointmentRepository) ListBookedSpansTx(ctx context.Context, tx pgx.Tx, clinicID, practitionerID string, start, end time.Time) ([]model.BookedSpan, error) {
	return queryBookedSpans(ctx, tx, clinicID, practitionerID, start, end, "")
}

func queryBookedSpans(ctx context.Context, q rowQuerier, clinicID, practitionerID string, start, end time.Time, excludeID string) ([]model.BookedSpan, error) {
	rows, err := q.Query(ctx, bookedSpansQuery, clinicID, practitionerID, start, end, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var spans []model.BookedSpan
	for rows.Next() {
		var span model.BookedSpan
		if err := rows.Scan(&span.Start, &span.End); err != nil {
			return nil, err
		}
		spans = append(spans, span)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return spans, nil
}

func (r *AppointmentRepository) ListByClinic(ctx context.Context, clinicID string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, clinic_id::text, practitioner_id::text, service_name,
			patient_name, patient_email, COALESCE(patient_phone, ''),
			start_time, end_time, status, cancelled_at, COALESCE(cancellation_reason, ''), created_at
		FROM appointments
		WHERE clinic_id = $1
		ORDER BY start_time DESC
		LIMIT $2
	`, clinicID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAppointments(rows)
}

func scanAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	var appts []model.Appointment
	for rows.Next() {
		var appt model.Appointment
		var cancelledAt *time.Time
		if err := rows.Scan(
			&appt.ID,
			&appt.ClinicID,
			&appt.PractitionerID,
			&appt.ServiceName,
			&appt.PatientName,
			&appt.PatientEmail,
			&appt.PatientPhone,
			&appt.StartTime,
			&appt.EndTime,
			&appt.Status,
			&cancelledAt,
			&appt.CancelReason,
			&appt.CreatedAt,
		); err != nil {
			return nil, err
		}
		appt.CancelledAt = cancelledAt
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}
