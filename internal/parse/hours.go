package parse

import (
	"fmt"
	"time"
)

// Clinic opening hours. Slots start on the half hour between open and close.
const (
	ClinicOpen        = "09:00"
	ClinicClose       = "18:00"
	SlotMinutes       = 30
	SearchHorizonDays = 14
)

// Slot is a bookable date and time pair.
type Slot struct {
	Date string
	Time string
}

// IsClinicClosed reports whether the clinic is shut on the given day and a
// reason that can be read to the caller.
func IsClinicClosed(d time.Time) (bool, string) {
	switch d.Weekday() {
	case time.Saturday:
		return true, "The clinic is closed on Saturdays. We're open Monday to Friday."
	case time.Sunday:
		return true, "The clinic is closed on Sundays. We're open Monday to Friday."
	}
	return false, ""
}

// WithinClinicHours reports whether an HH:MM time falls inside opening hours.
// Closing time itself counts as inside.
func WithinClinicHours(hhmm string) bool {
	if !IsClockTime(hhmm) {
		return false
	}
	return hhmm >= ClinicOpen && hhmm <= ClinicClose
}

// NextAvailableSlot walks forward from the given date and time in 30 minute
// steps and returns the first open slot not present in booked.
func NextAvailableSlot(from time.Time, fromTime string, booked map[Slot]bool) (Slot, bool) {
	day := StartOfDay(from)
	start := toMinutes(ClinicOpen)
	if IsClockTime(fromTime) && toMinutes(fromTime) > start {
		start = toMinutes(fromTime)
	}
	closing := toMinutes(ClinicClose)

	for i := 0; i < SearchHorizonDays; i++ {
		if closed, _ := IsClinicClosed(day); !closed {
			for m := start; m < closing; m += SlotMinutes {
				s := Slot{Date: day.Format(DateLayout), Time: fromMinutes(m)}
				if !booked[s] {
					return s, true
				}
			}
		}
		day = day.AddDate(0, 0, 1)
		start = toMinutes(ClinicOpen)
	}
	return Slot{}, false
}

func toMinutes(hhmm string) int {
	t, err := time.Parse(TimeLayout, hhmm)
	if err != nil {
		return 0
	}
	return t.Hour()*60 + t.Minute()
}

func fromMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
