package schedule

import "fmt"

// ValidateWindow checks a declared availability interval before it is stored:
// both bounds must parse, start must precede end, and both must sit on the
// slot grid so generated labels line up across windows.
func ValidateWindow(startTime, endTime string, stepMinutes int) error {
	st, err := ParseClock(startTime)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWindow, err)
	}
	en, err := ParseClock(endTime)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWindow, err)
	}
	if st >= en {
		return fmt.Errorf("%w: start %s must be before end %s", ErrInvalidWindow, startTime, endTime)
	}
	if stepMinutes > 0 && (st%stepMinutes != 0 || en%stepMinutes != 0) {
		return fmt.Errorf("%w: bounds must align to the %d minute grid", ErrInvalidWindow, stepMinutes)
	}
	return nil
}
