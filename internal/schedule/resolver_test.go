package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicdesk/clinic-scheduling/internal/config"
)

func testConfig() config.Config {
	return config.Config{
		SlotStepMinutes: 30,
		HorizonDays:     7,
		GridStart:       "06:00",
		GridEnd:         "24:00",
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestResolver_OverlappingWindowsUnion(t *testing.T) {
	repo := newMemRepo()
	provider := repo.addProvider("Dr. Osei")
	date := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)

	repo.addWindow(provider.ID, date, "09:00", "10:00")
	repo.addWindow(provider.ID, date, "09:30", "11:00")

	r := NewResolver(repo, testConfig(), fixedClock(time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)))

	slots, err := r.DaySlots(context.Background(), provider.ID, date)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:30", "10:00", "10:30"}, slots)
}

func TestResolver_NoWindowsMeansEmpty(t *testing.T) {
	repo := newMemRepo()
	r := NewResolver(repo, testConfig(), fixedClock(time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)))

	slots, err := r.DaySlots(context.Background(), uuid.New(), time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestResolver_BookedSlotsRemoved(t *testing.T) {
	repo := newMemRepo()
	provider := repo.addProvider("Dr. Osei")
	patient := repo.addPatient("Ada")
	date := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)

	repo.addWindow(provider.ID, date, "09:00", "11:00")

	appt, err := repo.CreateBookedAppointment(context.Background(), patient.ID, provider.ID, date, "10:00")
	require.NoError(t, err)

	r := NewResolver(repo, testConfig(), fixedClock(time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)))

	slots, err := r.DaySlots(context.Background(), provider.ID, date)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:30", "10:30"}, slots)

	// Cancelling reclaims the slot on the next resolution.
	_, err = repo.UpdateAppointmentStatus(context.Background(), appt.ID, StatusBooked, StatusCancelled)
	require.NoError(t, err)

	slots, err = r.DaySlots(context.Background(), provider.ID, date)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:30", "10:00", "10:30"}, slots)
}

func TestResolver_TodayFiltersPastSlots(t *testing.T) {
	repo := newMemRepo()
	provider := repo.addProvider("Dr. Osei")
	today := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	repo.addWindow(provider.ID, today, "09:00", "11:00")

	// 09:15 wall clock: 09:00 is gone, 09:30 still offered.
	r := NewResolver(repo, testConfig(), fixedClock(time.Date(2026, 9, 1, 9, 15, 0, 0, time.UTC)))

	slots, err := r.DaySlots(context.Background(), provider.ID, today)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:30", "10:00", "10:30"}, slots)
}

func TestResolver_FutureDateNotClockFiltered(t *testing.T) {
	repo := newMemRepo()
	provider := repo.addProvider("Dr. Osei")
	tomorrow := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)

	repo.addWindow(provider.ID, tomorrow, "09:00", "10:00")

	r := NewResolver(repo, testConfig(), fixedClock(time.Date(2026, 9, 1, 23, 45, 0, 0, time.UTC)))

	slots, err := r.DaySlots(context.Background(), provider.ID, tomorrow)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:30"}, slots)
}

func TestResolver_WeekSlots(t *testing.T) {
	repo := newMemRepo()
	provider := repo.addProvider("Dr. Osei")
	start := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

	// Windows on days 0 and 3 only.
	repo.addWindow(provider.ID, start, "09:00", "10:00")
	repo.addWindow(provider.ID, start.AddDate(0, 0, 3), "14:00", "15:00")

	r := NewResolver(repo, testConfig(), fixedClock(time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)))

	sheets, err := r.WeekSlots(context.Background(), provider.ID, start)
	require.NoError(t, err)
	require.Len(t, sheets, 7)

	for i, sheet := range sheets {
		assert.Equal(t, start.AddDate(0, 0, i).Format("2006-01-02"), sheet.Date.Format("2006-01-02"))
	}

	assert.Equal(t, []string{"09:00", "09:30"}, sheets[0].Slots)
	assert.Empty(t, sheets[1].Slots)
	assert.Empty(t, sheets[2].Slots)
	assert.Equal(t, []string{"14:00", "14:30"}, sheets[3].Slots)
}

func TestResolver_GridOptions(t *testing.T) {
	repo := newMemRepo()
	r := NewResolver(repo, testConfig(), nil)

	labels, err := r.GridOptions()
	require.NoError(t, err)
	require.Len(t, labels, 36)
	assert.Equal(t, "06:00", labels[0])
	assert.Equal(t, "23:30", labels[len(labels)-1])
}

func TestResolver_Contains(t *testing.T) {
	repo := newMemRepo()
	provider := repo.addProvider("Dr. Osei")
	date := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)

	repo.addWindow(provider.ID, date, "09:00", "10:00")

	r := NewResolver(repo, testConfig(), fixedClock(time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)))

	ok, err := r.Contains(context.Background(), provider.ID, date, "09:30")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Contains(context.Background(), provider.ID, date, "10:00")
	require.NoError(t, err)
	assert.False(t, ok, "end bound is exclusive")
}
