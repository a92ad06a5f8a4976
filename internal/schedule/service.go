package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinic-scheduling/internal/config"
	redisclient "github.com/clinicdesk/clinic-scheduling/internal/redis"
)

const (
	EventAppointmentBooked      = "APPOINTMENT_BOOKED"
	EventAppointmentCompleted   = "APPOINTMENT_COMPLETED"
	EventAppointmentCancelled   = "APPOINTMENT_CANCELLED"
	EventAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
	EventAvailabilityDeclared   = "AVAILABILITY_DECLARED"
)

var (
	ErrSlotUnavailable   = errors.New("slot is not available for booking")
	ErrSlotBeingBooked   = errors.New("slot is currently being booked, please retry")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotOwner          = errors.New("actor does not own this appointment")
	ErrInvalidWindow     = errors.New("invalid availability window")
)

// Service is the booking state machine. Booked is the only live state;
// Completed and Cancelled are terminal. Reschedule mutates date and time on a
// Booked record without changing state.
type Service struct {
	repo     Repository
	locker   redisclient.Locker
	resolver *Resolver
	cfg      config.Config
}

func NewService(repo Repository, locker redisclient.Locker, resolver *Resolver, cfg config.Config) *Service {
	return &Service{
		repo:     repo,
		locker:   locker,
		resolver: resolver,
		cfg:      cfg,
	}
}

// DeclareAvailability records an open window for a provider on a date.
// Windows are immutable; overlapping declarations are allowed and collapse at
// resolution time.
func (s *Service) DeclareAvailability(ctx context.Context, providerID uuid.UUID, date time.Time, startTime, endTime string) (*AvailabilityWindow, error) {
	if _, err := s.repo.GetProviderByID(ctx, providerID); err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load provider: %w", err)
	}

	if err := ValidateWindow(startTime, endTime, s.cfg.SlotStepMinutes); err != nil {
		return nil, err
	}

	w, err := s.repo.CreateWindow(ctx, providerID, date, startTime, endTime)
	if err != nil {
		return nil, fmt.Errorf("create availability window: %w", err)
	}

	s.logEvent(ctx, nil, EventAvailabilityDeclared, map[string]any{
		"provider_id": providerID.String(),
		"date":        date.Format("2006-01-02"),
		"start_time":  startTime,
		"end_time":    endTime,
	})

	return w, nil
}

// ListAvailability returns a provider's declared windows over a date range.
func (s *Service) ListAvailability(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]AvailabilityWindow, error) {
	windows, err := s.repo.ListWindowsInRange(ctx, providerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list availability windows: %w", err)
	}
	return windows, nil
}

// Book creates a Booked appointment for the patient if the requested slot is
// currently resolvable. The availability check is re-run inside a per-slot
// lock, and the insert is guarded by the partial unique index on booked
// slots, so two concurrent attempts on the same slot cannot both succeed.
func (s *Service) Book(ctx context.Context, patientID, providerID uuid.UUID, date time.Time, slot string) (*Appointment, error) {
	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if _, err := s.repo.GetProviderByID(ctx, providerID); err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load provider: %w", err)
	}
	if _, err := ParseClock(slot); err != nil {
		return nil, ErrSlotUnavailable
	}

	var created *Appointment

	err := s.locker.WithSlotLock(ctx, providerID, date, slot, func(lockCtx context.Context) error {
		// Inside the critical section re-check that the slot still resolves
		ok, err := s.resolver.Contains(lockCtx, providerID, date, slot)
		if err != nil {
			return fmt.Errorf("resolve slot availability: %w", err)
		}
		if !ok {
			return ErrSlotUnavailable
		}

		appt, err := s.repo.CreateBookedAppointment(lockCtx, patientID, providerID, date, slot)
		if err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}

		created = appt

		s.logEvent(lockCtx, &appt.ID, EventAppointmentBooked, map[string]any{
			"patient_id":  patientID.String(),
			"provider_id": providerID.String(),
			"date":        date.Format("2006-01-02"),
			"slot_time":   slot,
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	return created, nil
}

// Complete moves a Booked appointment to Completed and upserts its Treatment.
// Only the appointment's provider may complete it. The treatment is written
// before the status flips, so a failed call leaves the appointment Booked and
// retryable; the upsert keeps the 1:1 invariant across retries. Re-submitting
// against an already Completed record is an invalid transition.
func (s *Service) Complete(ctx context.Context, id, providerID uuid.UUID, diagnosis, prescription, notes string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if appt.ProviderID != providerID {
		return nil, ErrNotOwner
	}
	if appt.Status != StatusBooked {
		return nil, ErrInvalidTransition
	}

	if _, err := s.repo.UpsertTreatment(ctx, Treatment{
		AppointmentID: appt.ID,
		Diagnosis:     diagnosis,
		Prescription:  prescription,
		Notes:         notes,
	}); err != nil {
		return nil, fmt.Errorf("record treatment: %w", err)
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, StatusBooked, StatusCompleted)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost a race with another transition from Booked.
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("complete appointment: %w", err)
	}

	s.logEvent(ctx, &updated.ID, EventAppointmentCompleted, map[string]any{})

	return updated, nil
}

// Cancel moves a Booked appointment to Cancelled. The owning patient or the
// appointment's provider may cancel; the slot is resolvable again as soon as
// the status flips, because resolution only subtracts Booked rows.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actor Actor) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	switch actor.Role {
	case RolePatient:
		if appt.PatientID != actor.ID {
			return nil, ErrNotOwner
		}
	case RoleProvider:
		if appt.ProviderID != actor.ID {
			return nil, ErrNotOwner
		}
	default:
		return nil, ErrNotOwner
	}

	if appt.Status != StatusBooked {
		return nil, ErrInvalidTransition
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, StatusBooked, StatusCancelled)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.logEvent(ctx, &updated.ID, EventAppointmentCancelled, map[string]any{
		"actor_role": string(actor.Role),
	})

	return updated, nil
}

// Reschedule moves a Booked appointment to a new date and time in place. The
// new slot is validated against the resolved set with the appointment's own
// booking excluded, so moving to the slot it already holds is a no-op
// success and the old slot is released by the same atomic update that claims
// the new one.
func (s *Service) Reschedule(ctx context.Context, id, patientID uuid.UUID, newDate time.Time, newSlot string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if appt.PatientID != patientID {
		return nil, ErrNotOwner
	}
	if appt.Status != StatusBooked {
		return nil, ErrInvalidTransition
	}
	if sameDay(appt.Date, newDate) && appt.SlotTime == newSlot {
		return appt, nil
	}
	if _, err := ParseClock(newSlot); err != nil {
		return nil, ErrSlotUnavailable
	}

	var moved *Appointment

	err = s.locker.WithSlotLock(ctx, appt.ProviderID, newDate, newSlot, func(lockCtx context.Context) error {
		ok, err := s.resolver.contains(lockCtx, appt.ProviderID, newDate, newSlot, appt.ID)
		if err != nil {
			return fmt.Errorf("resolve slot availability: %w", err)
		}
		if !ok {
			return ErrSlotUnavailable
		}

		updated, err := s.repo.MoveAppointment(lockCtx, appt.ID, newDate, newSlot)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				return ErrInvalidTransition
			}
			return fmt.Errorf("move appointment: %w", err)
		}

		moved = updated

		s.logEvent(lockCtx, &updated.ID, EventAppointmentRescheduled, map[string]any{
			"old_date": appt.Date.Format("2006-01-02"),
			"old_time": appt.SlotTime,
			"new_date": newDate.Format("2006-01-02"),
			"new_time": newSlot,
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	return moved, nil
}

// GetAppointment retrieves a fully hydrated appointment by ID
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	detail, err := s.repo.GetAppointmentDetail(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return detail, nil
}

// ListPatientAppointments retrieves a patient's history, newest first.
func (s *Service) ListPatientAppointments(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	appointments, err := s.repo.ListAppointmentsByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	return appointments, nil
}

// ListProviderAppointments retrieves a provider's appointments over a date range.
func (s *Service) ListProviderAppointments(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	appointments, err := s.repo.ListAppointmentsByProvider(ctx, providerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list appointments by provider: %w", err)
	}
	return appointments, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID *uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: appointmentID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		log.Printf("failed to insert event log %s: %v", eventType, err)
	}
}
