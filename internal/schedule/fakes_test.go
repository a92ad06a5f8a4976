package schedule

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/clinicdesk/clinic-scheduling/internal/redis"
)

// memRepo is an in-memory Repository double. Its create and move paths
// enforce the same one-Booked-per-slot rule the partial unique index does, so
// conflict translation can be exercised without Postgres.
type memRepo struct {
	mu         sync.Mutex
	patients   map[uuid.UUID]Patient
	providers  map[uuid.UUID]Provider
	windows    []AvailabilityWindow
	appts      map[uuid.UUID]Appointment
	treatments map[uuid.UUID]Treatment
	events     []EventLog
}

func newMemRepo() *memRepo {
	return &memRepo{
		patients:   make(map[uuid.UUID]Patient),
		providers:  make(map[uuid.UUID]Provider),
		appts:      make(map[uuid.UUID]Appointment),
		treatments: make(map[uuid.UUID]Treatment),
	}
}

func dkey(t time.Time) string {
	return t.Format("2006-01-02")
}

func (m *memRepo) addPatient(name string) Patient {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := Patient{ID: uuid.New(), Name: name, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.patients[p.ID] = p
	return p
}

func (m *memRepo) addProvider(name string) Provider {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := Provider{ID: uuid.New(), Name: name, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.providers[p.ID] = p
	return p
}

func (m *memRepo) addWindow(providerID uuid.UUID, date time.Time, start, end string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windows = append(m.windows, AvailabilityWindow{
		ID:         uuid.New(),
		ProviderID: providerID,
		Date:       date,
		StartTime:  start,
		EndTime:    end,
		CreatedAt:  time.Now(),
	})
}

func (m *memRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (m *memRepo) GetProviderByID(_ context.Context, id uuid.UUID) (*Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.providers[id]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return &p, nil
}

func (m *memRepo) CreateWindow(_ context.Context, providerID uuid.UUID, date time.Time, startTime, endTime string) (*AvailabilityWindow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := AvailabilityWindow{
		ID:         uuid.New(),
		ProviderID: providerID,
		Date:       date,
		StartTime:  startTime,
		EndTime:    endTime,
		CreatedAt:  time.Now(),
	}
	m.windows = append(m.windows, w)
	return &w, nil
}

func (m *memRepo) ListWindows(_ context.Context, providerID uuid.UUID, date time.Time) ([]AvailabilityWindow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []AvailabilityWindow
	for _, w := range m.windows {
		if w.ProviderID == providerID && dkey(w.Date) == dkey(date) {
			result = append(result, w)
		}
	}
	return result, nil
}

func (m *memRepo) ListWindowsInRange(_ context.Context, providerID uuid.UUID, from, to time.Time) ([]AvailabilityWindow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []AvailabilityWindow
	for _, w := range m.windows {
		if w.ProviderID == providerID && dkey(w.Date) >= dkey(from) && dkey(w.Date) <= dkey(to) {
			result = append(result, w)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].StartTime < result[j].StartTime
	})
	return result, nil
}

func (m *memRepo) BookedTimes(_ context.Context, providerID uuid.UUID, date time.Time, exclude uuid.UUID) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	booked := make(map[string]struct{})
	for _, a := range m.appts {
		if a.ProviderID == providerID && dkey(a.Date) == dkey(date) && a.Status == StatusBooked && a.ID != exclude {
			booked[a.SlotTime] = struct{}{}
		}
	}
	return booked, nil
}

func (m *memRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (m *memRepo) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	appt, err := m.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &AppointmentDetail{Appointment: *appt}
	if p, err := m.GetPatientByID(ctx, appt.PatientID); err == nil {
		detail.Patient = p
	}
	if p, err := m.GetProviderByID(ctx, appt.ProviderID); err == nil {
		detail.Provider = p
	}
	if t, err := m.GetTreatmentByAppointment(ctx, appt.ID); err == nil {
		detail.Treatment = t
	}
	return detail, nil
}

func (m *memRepo) bookedSlotTakenLocked(providerID uuid.UUID, date time.Time, slot string, exclude uuid.UUID) bool {
	for _, a := range m.appts {
		if a.ProviderID == providerID && dkey(a.Date) == dkey(date) && a.SlotTime == slot && a.Status == StatusBooked && a.ID != exclude {
			return true
		}
	}
	return false
}

func (m *memRepo) CreateBookedAppointment(_ context.Context, patientID, providerID uuid.UUID, date time.Time, slot string) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bookedSlotTakenLocked(providerID, date, slot, uuid.Nil) {
		return nil, ErrSlotUnavailable
	}
	a := Appointment{
		ID:         uuid.New(),
		PatientID:  patientID,
		ProviderID: providerID,
		Date:       date,
		SlotTime:   slot,
		Status:     StatusBooked,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	m.appts[a.ID] = a
	return &a, nil
}

func (m *memRepo) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	m.appts[id] = a
	return &a, nil
}

func (m *memRepo) MoveAppointment(_ context.Context, id uuid.UUID, newDate time.Time, newSlot string) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok || a.Status != StatusBooked {
		return nil, ErrAppointmentNotFound
	}
	if m.bookedSlotTakenLocked(a.ProviderID, newDate, newSlot, a.ID) {
		return nil, ErrSlotUnavailable
	}
	a.Date = newDate
	a.SlotTime = newSlot
	a.UpdatedAt = time.Now()
	m.appts[id] = a
	return &a, nil
}

func (m *memRepo) ListAppointmentsByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Appointment
	for _, a := range m.appts {
		if a.PatientID == patientID {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if dkey(result[i].Date) != dkey(result[j].Date) {
			return dkey(result[i].Date) > dkey(result[j].Date)
		}
		return result[i].SlotTime > result[j].SlotTime
	})
	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *memRepo) ListAppointmentsByProvider(_ context.Context, providerID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Appointment
	for _, a := range m.appts {
		if a.ProviderID == providerID && dkey(a.Date) >= dkey(from) && dkey(a.Date) <= dkey(to) {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if dkey(result[i].Date) != dkey(result[j].Date) {
			return dkey(result[i].Date) < dkey(result[j].Date)
		}
		return result[i].SlotTime < result[j].SlotTime
	})
	return result, nil
}

func (m *memRepo) UpsertTreatment(_ context.Context, t Treatment) (*Treatment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.treatments[t.AppointmentID]
	if ok {
		existing.Diagnosis = t.Diagnosis
		existing.Prescription = t.Prescription
		existing.Notes = t.Notes
		existing.UpdatedAt = time.Now()
		m.treatments[t.AppointmentID] = existing
		return &existing, nil
	}
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	m.treatments[t.AppointmentID] = t
	return &t, nil
}

func (m *memRepo) GetTreatmentByAppointment(_ context.Context, appointmentID uuid.UUID) (*Treatment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.treatments[appointmentID]
	if !ok {
		return nil, ErrTreatmentNotFound
	}
	return &t, nil
}

func (m *memRepo) InsertEvent(_ context.Context, ev EventLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev.ID = int64(len(m.events) + 1)
	m.events = append(m.events, ev)
	return nil
}

func (m *memRepo) eventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, 0, len(m.events))
	for _, ev := range m.events {
		types = append(types, ev.EventType)
	}
	return types
}

// memLocker runs the critical section inline. Set busy to simulate a
// contended lock.
type memLocker struct {
	busy bool
}

func (l *memLocker) WithSlotLock(ctx context.Context, _ uuid.UUID, _ time.Time, _ string, fn func(ctx context.Context) error) error {
	if l.busy {
		return redisclient.ErrLockNotAcquired
	}
	return fn(ctx)
}
