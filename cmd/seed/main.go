package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/clinic-scheduling/internal/db"
	"github.com/clinicdesk/clinic-scheduling/internal/schedule"
)

// The partial unique index is the system's core consistency guarantee: at
// most one Booked appointment per (provider, date, slot_time). Everything
// else in the schema exists to feed or record slot decisions.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS patients (
	id uuid PRIMARY KEY,
	name text NOT NULL,
	email text,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS providers (
	id uuid PRIMARY KEY,
	name text NOT NULL,
	specialty text,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS availability_windows (
	id uuid PRIMARY KEY,
	provider_id uuid NOT NULL REFERENCES providers(id),
	date date NOT NULL,
	start_time char(5) NOT NULL,
	end_time char(5) NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_windows_provider_date
	ON availability_windows (provider_id, date);

CREATE TABLE IF NOT EXISTS appointments (
	id uuid PRIMARY KEY,
	patient_id uuid NOT NULL REFERENCES patients(id),
	provider_id uuid NOT NULL REFERENCES providers(id),
	date date NOT NULL,
	slot_time char(5) NOT NULL,
	status text NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS uniq_booked_slot
	ON appointments (provider_id, date, slot_time)
	WHERE status = 'Booked';

CREATE INDEX IF NOT EXISTS idx_appointments_patient
	ON appointments (patient_id);

CREATE TABLE IF NOT EXISTS treatments (
	appointment_id uuid PRIMARY KEY REFERENCES appointments(id),
	diagnosis text NOT NULL DEFAULT '',
	prescription text NOT NULL DEFAULT '',
	notes text NOT NULL DEFAULT '',
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS event_logs (
	id bigserial PRIMARY KEY,
	event_type text NOT NULL,
	appointment_id uuid,
	payload jsonb,
	created_at timestamptz NOT NULL DEFAULT now()
);
`

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn, 4, 1)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(context.Background(), schemaDDL); err != nil {
		log.Fatalf("create schema: %v", err)
	}
	log.Println("schema ready")

	gofakeit.Seed(time.Now().UnixNano())

	providerIDs, err := seedProviders(context.Background(), pool, 50)
	if err != nil {
		log.Fatalf("seed providers: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 2000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedAvailability(context.Background(), pool, providerIDs); err != nil {
		log.Fatalf("seed availability: %v", err)
	}

	log.Println("seed complete")
}

func seedProviders(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d providers", count)

	specialties := []string{
		"Cardiology",
		"Oncology",
		"Neurology",
		"Orthopedics",
		"Pediatrics",
		"Gynecology",
		"Dermatology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO providers (id, name, specialty, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, name, spec)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("providers seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, id, name, email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}

// seedAvailability gives every provider a morning and an afternoon window on
// each day of the coming week.
func seedAvailability(ctx context.Context, pool *pgxpool.Pool, providerIDs []uuid.UUID) error {
	log.Printf("seeding availability for %d providers", len(providerIDs))

	windows := [][2]string{
		{"09:00", "12:00"},
		{"14:00", "17:30"},
	}

	today := time.Now().Truncate(24 * time.Hour)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, providerID := range providerIDs {
		for day := 0; day < 7; day++ {
			date := today.AddDate(0, 0, day)
			for _, w := range windows {
				if err := schedule.ValidateWindow(w[0], w[1], 30); err != nil {
					return err
				}
				_, err := tx.Exec(ctx, `
					INSERT INTO availability_windows (id, provider_id, date, start_time, end_time, created_at)
					VALUES ($1, $2, $3, $4, $5, now())
				`, uuid.New(), providerID, date, w[0], w[1])
				if err != nil {
					return err
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("availability seeded")
	return nil
}
