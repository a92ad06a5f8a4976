package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrProviderNotFound    = errors.New("provider not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrTreatmentNotFound   = errors.New("treatment not found")
)

// Repository contains all DB interactions needed by the resolver and service.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error)

	// Availability windows
	CreateWindow(ctx context.Context, providerID uuid.UUID, date time.Time, startTime, endTime string) (*AvailabilityWindow, error)
	ListWindows(ctx context.Context, providerID uuid.UUID, date time.Time) ([]AvailabilityWindow, error)
	ListWindowsInRange(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]AvailabilityWindow, error)

	// BookedTimes returns the slot labels held by Booked appointments for the
	// provider on the date. A non-nil exclude id leaves that appointment's own
	// slot out, which is how a reschedule avoids blocking itself.
	BookedTimes(ctx context.Context, providerID uuid.UUID, date time.Time, exclude uuid.UUID) (map[string]struct{}, error)

	// Appointment lifecycle
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error)
	CreateBookedAppointment(ctx context.Context, patientID, providerID uuid.UUID, date time.Time, slot string) (*Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)
	MoveAppointment(ctx context.Context, id uuid.UUID, newDate time.Time, newSlot string) (*Appointment, error)
	ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error)
	ListAppointmentsByProvider(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]Appointment, error)

	// Treatments
	UpsertTreatment(ctx context.Context, t Treatment) (*Treatment, error)
	GetTreatmentByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Treatment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
