package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// isUniqueViolation reports a 23505 on the partial index guarding booked
// slots.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var email *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.Email = email
	return &p, nil
}

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	var specialty *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&specialty,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, err
	}

	p.Specialty = specialty
	return &p, nil
}

func scanWindow(row pgx.Row) (*AvailabilityWindow, error) {
	var w AvailabilityWindow

	err := row.Scan(
		&w.ID,
		&w.ProviderID,
		&w.Date,
		&w.StartTime,
		&w.EndTime,
		&w.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &w, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.ProviderID,
		&a.Date,
		&a.SlotTime,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func scanTreatment(row pgx.Row) (*Treatment, error) {
	var t Treatment

	err := row.Scan(
		&t.AppointmentID,
		&t.Diagnosis,
		&t.Prescription,
		&t.Notes,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTreatmentNotFound
		}
		return nil, err
	}

	return &t, nil
}

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, created_at, updated_at
		FROM providers
		WHERE id = $1
	`, id)
	return scanProvider(row)
}

func (r *PgRepository) CreateWindow(ctx context.Context, providerID uuid.UUID, date time.Time, startTime, endTime string) (*AvailabilityWindow, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO availability_windows (id, provider_id, date, start_time, end_time, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, provider_id, date, start_time, end_time, created_at
	`, id, providerID, date, startTime, endTime)

	return scanWindow(row)
}

func (r *PgRepository) ListWindows(ctx context.Context, providerID uuid.UUID, date time.Time) ([]AvailabilityWindow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, provider_id, date, start_time, end_time, created_at
		FROM availability_windows
		WHERE provider_id = $1 AND date = $2
	`, providerID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectWindows(rows)
}

func (r *PgRepository) ListWindowsInRange(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]AvailabilityWindow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, provider_id, date, start_time, end_time, created_at
		FROM availability_windows
		WHERE provider_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date, start_time
	`, providerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectWindows(rows)
}

func collectWindows(rows pgx.Rows) ([]AvailabilityWindow, error) {
	var result []AvailabilityWindow
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *w)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) BookedTimes(ctx context.Context, providerID uuid.UUID, date time.Time, exclude uuid.UUID) (map[string]struct{}, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT slot_time
		FROM appointments
		WHERE provider_id = $1
		  AND date = $2
		  AND status = 'Booked'
		  AND id <> $3
	`, providerID, date, exclude)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	booked := make(map[string]struct{})
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		booked[t] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return booked, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, patient_id, provider_id, date, slot_time, status, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	appt, err := r.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &AppointmentDetail{Appointment: *appt}

	if p, err := r.GetPatientByID(ctx, appt.PatientID); err == nil {
		detail.Patient = p
	} else if !errors.Is(err, ErrPatientNotFound) {
		return nil, err
	}

	if p, err := r.GetProviderByID(ctx, appt.ProviderID); err == nil {
		detail.Provider = p
	} else if !errors.Is(err, ErrProviderNotFound) {
		return nil, err
	}

	if t, err := r.GetTreatmentByAppointment(ctx, appt.ID); err == nil {
		detail.Treatment = t
	} else if !errors.Is(err, ErrTreatmentNotFound) {
		return nil, err
	}

	return detail, nil
}

func (r *PgRepository) CreateBookedAppointment(ctx context.Context, patientID, providerID uuid.UUID, date time.Time, slot string) (*Appointment, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, provider_id, date, slot_time, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'Booked', now(), now())
		RETURNING id, patient_id, provider_id, date, slot_time, status, created_at, updated_at
	`, id, patientID, providerID, date, slot)

	appt, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotUnavailable
		}
		return nil, err
	}

	return appt, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING id, patient_id, provider_id, date, slot_time, status, created_at, updated_at
	`, id, to, from)

	return scanAppointment(row)
}

func (r *PgRepository) MoveAppointment(ctx context.Context, id uuid.UUID, newDate time.Time, newSlot string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET date = $2,
		    slot_time = $3,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'Booked'
		RETURNING id, patient_id, provider_id, date, slot_time, status, created_at, updated_at
	`, id, newDate, newSlot)

	appt, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotUnavailable
		}
		return nil, err
	}

	return appt, nil
}

func (r *PgRepository) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, provider_id, date, slot_time, status, created_at, updated_at
		FROM appointments
		WHERE patient_id = $1
		ORDER BY date DESC, slot_time DESC
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) ListAppointmentsByProvider(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, provider_id, date, slot_time, status, created_at, updated_at
		FROM appointments
		WHERE provider_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date, slot_time
	`, providerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) UpsertTreatment(ctx context.Context, t Treatment) (*Treatment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO treatments (appointment_id, diagnosis, prescription, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (appointment_id) DO UPDATE
		SET diagnosis = EXCLUDED.diagnosis,
		    prescription = EXCLUDED.prescription,
		    notes = EXCLUDED.notes,
		    updated_at = now()
		RETURNING appointment_id, diagnosis, prescription, notes, created_at, updated_at
	`, t.AppointmentID, t.Diagnosis, t.Prescription, t.Notes)

	return scanTreatment(row)
}

func (r *PgRepository) GetTreatmentByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Treatment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT appointment_id, diagnosis, prescription, notes, created_at, updated_at
		FROM treatments
		WHERE appointment_id = $1
	`, appointmentID)
	return scanTreatment(row)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
