package schedule

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusBooked    AppointmentStatus = "Booked"
	StatusCompleted AppointmentStatus = "Completed"
	StatusCancelled AppointmentStatus = "Cancelled"
)

type Role string

const (
	RolePatient  Role = "patient"
	RoleProvider Role = "provider"
)

// Actor identifies who is requesting a transition. Identity is always an
// explicit argument; the engine never reads it from ambient state.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Provider struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AvailabilityWindow is a provider's declared open interval on one calendar
// date. Start and end are zero-padded "HH:MM" labels, end exclusive.
// Windows are immutable once created.
type AvailabilityWindow struct {
	ID         uuid.UUID
	ProviderID uuid.UUID
	Date       time.Time
	StartTime  string
	EndTime    string
	CreatedAt  time.Time
}

// Appointment occupies one derived slot: the (provider, date, slot_time)
// triple. At most one Booked appointment may hold a triple at any instant.
type Appointment struct {
	ID         uuid.UUID
	PatientID  uuid.UUID
	ProviderID uuid.UUID
	Date       time.Time
	SlotTime   string
	Status     AppointmentStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Treatment annotates a completed appointment, 1:1.
type Treatment struct {
	AppointmentID uuid.UUID
	Diagnosis     string
	Prescription  string
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

type AppointmentDetail struct {
	Appointment
	Patient   *Patient
	Provider  *Provider
	Treatment *Treatment
}

// DaySheet is one resolved day of the booking horizon.
type DaySheet struct {
	Date  time.Time
	Slots []string
}
