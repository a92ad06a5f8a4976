package schedule

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinic-scheduling/internal/config"
)

// Resolver derives the bookable slot set for a provider and date from
// declared availability windows and live bookings. Slots are never stored;
// every query recomputes them.
type Resolver struct {
	repo Repository
	cfg  config.Config
	now  func() time.Time
}

// NewResolver builds a resolver. A nil now falls back to time.Now; tests
// inject a fixed clock.
func NewResolver(repo Repository, cfg config.Config, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{
		repo: repo,
		cfg:  cfg,
		now:  now,
	}
}

// CandidateSlots unions the grid runs of every availability window for the
// provider on the date. Overlapping windows collapse into unique labels.
// Zero windows means the provider declared no availability; that is an empty
// set, not an error.
func (r *Resolver) CandidateSlots(ctx context.Context, providerID uuid.UUID, date time.Time) (map[string]struct{}, error) {
	windows, err := r.repo.ListWindows(ctx, providerID, date)
	if err != nil {
		return nil, fmt.Errorf("list availability windows: %w", err)
	}

	candidates := make(map[string]struct{})
	for _, w := range windows {
		labels, err := GridLabels(w.StartTime, w.EndTime, r.cfg.SlotStepMinutes)
		if err != nil {
			return nil, fmt.Errorf("window %s has bad bounds: %w", w.ID, err)
		}
		for _, l := range labels {
			candidates[l] = struct{}{}
		}
	}
	return candidates, nil
}

// DaySlots resolves the final bookable sequence for one day: candidates minus
// booked slots, minus past-of-today labels, in chronological order.
func (r *Resolver) DaySlots(ctx context.Context, providerID uuid.UUID, date time.Time) ([]string, error) {
	return r.daySlots(ctx, providerID, date, uuid.Nil)
}

func (r *Resolver) daySlots(ctx context.Context, providerID uuid.UUID, date time.Time, exclude uuid.UUID) ([]string, error) {
	candidates, err := r.CandidateSlots(ctx, providerID, date)
	if err != nil {
		return nil, err
	}

	booked, err := r.repo.BookedTimes(ctx, providerID, date, exclude)
	if err != nil {
		return nil, fmt.Errorf("list booked times: %w", err)
	}
	for t := range booked {
		delete(candidates, t)
	}

	// Only "today" is clock-filtered. Past dates resolve from the raw
	// candidate set; callers gate those out of the UI.
	now := r.now()
	if sameDay(date, now) {
		nowMin := now.Hour()*60 + now.Minute()
		for label := range candidates {
			min, err := ParseClock(label)
			if err != nil {
				continue
			}
			if min < nowMin {
				delete(candidates, label)
			}
		}
	}

	slots := make([]string, 0, len(candidates))
	for label := range candidates {
		slots = append(slots, label)
	}
	sort.Strings(slots)
	return slots, nil
}

// GridOptions returns every label a window bound may sit on, spanning the
// configured input grid. This feeds availability pickers; it is not filtered
// by bookings.
func (r *Resolver) GridOptions() ([]string, error) {
	return GridLabels(r.cfg.GridStart, r.cfg.GridEnd, r.cfg.SlotStepMinutes)
}

// WeekSlots resolves HorizonDays consecutive days starting at startDate, each
// day independently.
func (r *Resolver) WeekSlots(ctx context.Context, providerID uuid.UUID, startDate time.Time) ([]DaySheet, error) {
	sheets := make([]DaySheet, 0, r.cfg.HorizonDays)
	for i := 0; i < r.cfg.HorizonDays; i++ {
		day := startDate.AddDate(0, 0, i)
		slots, err := r.DaySlots(ctx, providerID, day)
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, DaySheet{Date: day, Slots: slots})
	}
	return sheets, nil
}

// Contains reports whether the slot is currently resolvable for booking.
func (r *Resolver) Contains(ctx context.Context, providerID uuid.UUID, date time.Time, slot string) (bool, error) {
	return r.contains(ctx, providerID, date, slot, uuid.Nil)
}

func (r *Resolver) contains(ctx context.Context, providerID uuid.UUID, date time.Time, slot string, exclude uuid.UUID) (bool, error) {
	slots, err := r.daySlots(ctx, providerID, date, exclude)
	if err != nil {
		return false, err
	}
	for _, s := range slots {
		if s == slot {
			return true, nil
		}
	}
	return false, nil
}

func sameDay(a, b time.Time) bool {
	return a.Format("2006-01-02") == b.Format("2006-01-02")
}
