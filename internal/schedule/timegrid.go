package schedule

import (
	"fmt"
	"strconv"
	"strings"
)

const minutesPerDay = 24 * 60

// ParseClock converts a zero-padded "HH:MM" label to minutes past midnight.
// "24:00" is accepted as the exclusive end-of-day bound.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("invalid clock label %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid clock label %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("invalid clock label %q", s)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("clock label %q out of range", s)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes past midnight as a zero-padded "HH:MM" label.
// Zero padding keeps label equality and ordering stable across windows.
func FormatClock(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// SlotsBetween generates slot labels at start, start+step, ... strictly less
// than end. An empty or inverted range yields no labels, and generation never
// runs past the end of the day regardless of step.
func SlotsBetween(start, end, step int) []string {
	if step <= 0 {
		return nil
	}
	if end > minutesPerDay {
		end = minutesPerDay
	}

	var labels []string
	for cur := start; cur < end; cur += step {
		labels = append(labels, FormatClock(cur))
	}
	return labels
}

// GridLabels is SlotsBetween over "HH:MM" bounds.
func GridLabels(start, end string, step int) ([]string, error) {
	st, err := ParseClock(start)
	if err != nil {
		return nil, err
	}
	en, err := ParseClock(end)
	if err != nil {
		return nil, err
	}
	return SlotsBetween(st, en, step), nil
}
