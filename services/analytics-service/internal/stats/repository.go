package stats

import (
	"context"
	"time"

	"github.com/dentora/dentora/libs/db"
)

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// RecordAppointmentEvent stores the raw event row and bumps the daily
// counters in one transaction. The event row's unique event_id makes replays
// harmless even if the inbox was bypassed.
func (r *Repository) RecordAppointmentEvent(ctx context.Context, eventID, eventType, clinicID, appointmentID string, startTime time.Time, booked, cancelled int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		INSERT INTO appointment_events (event_id, event_type, clinic_id, appointment_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id) DO NOTHING
	`, eventID, eventType, clinicID, appointmentID, startTime.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO appointment_daily_stats (clinic_id, day, booked_count, cancelled_count)
		VALUES ($1, $2::date, $3, $4)
		ON CONFLICT (clinic_id, day)
		DO UPDATE SET booked_count = appointment_daily_stats.booked_count + EXCLUDED.booked_count,
		              cancelled_count = appointment_daily_stats.cancelled_count + EXCLUDED.cancelled_count,
		              updated_at = now()
	`, clinicID, startTime.UTC(), booked, cancelled); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type DailyStat struct {
	Day            time.Time
	BookedCount    int
	CancelledCount int
}

func (r *Repository) DailyStats(ctx context.Context, clinicID string, from, to time.Time) ([]DailyStat, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT day, booked_count, cancelled_count
		FROM appointment_daily_stats
		WHERE clinic_id = $1 AND day >= $2::date AND day <= $3::date
		ORDER BY day ASC
	`, clinicID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailyStat
	for rows.Next() {
		var s DailyStat
		if err := rows.Scan(&s.Day, &s.BookedCount, &s.CancelledCount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
