package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Storage layouts shared by the executors and the portal.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
	DOBLayout  = "02-01-2006"
)

var orderedWeekdays = []struct {
	name string
	day  time.Weekday
}{
	{"monday", time.Monday},
	{"tuesday", time.Tuesday},
	{"wednesday", time.Wednesday},
	{"thursday", time.Thursday},
	{"friday", time.Friday},
	{"saturday", time.Saturday},
	{"sunday", time.Sunday},
}

var monthPrefixes = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var dateLayouts = []string{
	DateLayout,
	"02/01/2006",
	"2/1/2006",
	DOBLayout,
	"2-1-2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2 2006",
	"Jan 2 2006",
}

var (
	inDaysRe   = regexp.MustCompile(`\bin (\d+) days?\b`)
	ordinalRe  = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)
	dayMonthRe = regexp.MustCompile(`^(\d{1,2})\s+([a-zA-Z]+)$`)
	monthDayRe = regexp.MustCompile(`^([a-zA-Z]+)\s+(\d{1,2})$`)
	clockRe    = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?(?:\s*([ap])\.?m)?\b`)
)

// maxDaysAhead bounds "in N days" so the date arithmetic cannot overflow.
const maxDaysAhead = 3660

// Date converts a spoken or written date into YYYY-MM-DD relative to now.
// Input that cannot be understood is returned unchanged.
func Date(s string, now time.Time) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	today := StartOfDay(now)
	lower := strings.ToLower(trimmed)

	switch {
	case strings.Contains(lower, "today"):
		return today.Format(DateLayout)
	case strings.Contains(lower, "day after tomorrow"):
		return today.AddDate(0, 0, 2).Format(DateLayout)
	case strings.Contains(lower, "tomorrow"):
		return today.AddDate(0, 0, 1).Format(DateLayout)
	}

	if m := inDaysRe.FindStringSubmatch(lower); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n > maxDaysAhead {
			return s
		}
		return today.AddDate(0, 0, n).Format(DateLayout)
	}

	for _, wd := range orderedWeekdays {
		if strings.Contains(lower, wd.name) {
			diff := (int(wd.day) - int(today.Weekday()) + 7) % 7
			if diff == 0 {
				// the same weekday means next week
				diff = 7
			}
			return today.AddDate(0, 0, diff).Format(DateLayout)
		}
	}

	cleaned := strings.Join(strings.Fields(ordinalRe.ReplaceAllString(trimmed, "$1")), " ")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.ReplaceAll(cleaned, " of ", " ")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t.Format(DateLayout)
		}
	}

	if d, ok := dayAndMonth(cleaned, today); ok {
		return d.Format(DateLayout)
	}
	return s
}

// dayAndMonth handles "20 Feb" and "Feb 20", rolling into next year once the
// date has already passed.
func dayAndMonth(s string, today time.Time) (time.Time, bool) {
	var dayStr, monthStr string
	if m := dayMonthRe.FindStringSubmatch(s); m != nil {
		dayStr, monthStr = m[1], m[2]
	} else if m := monthDayRe.FindStringSubmatch(s); m != nil {
		dayStr, monthStr = m[2], m[1]
	} else {
		return time.Time{}, false
	}
	if len(monthStr) < 3 {
		return time.Time{}, false
	}
	month, ok := monthPrefixes[strings.ToLower(monthStr[:3])]
	if !ok {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(dayStr)
	d := time.Date(today.Year(), month, day, 0, 0, 0, 0, today.Location())
	if d.Day() != day {
		return time.Time{}, false
	}
	if d.Before(today) {
		d = d.AddDate(1, 0, 0)
	}
	return d, true
}

// Time converts a spoken time into 24h HH:MM. The first number in the phrase
// is the hour and an am/pm marker wins over a period word. A bare hour from 1
// to 8 is pm. A phrase with no number falls back to 09:00, 14:00 or 17:00 for
// its period. Input that cannot be understood is returned unchanged.
func Time(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	if lower == "" {
		return s
	}

	period := ""
	switch {
	case strings.Contains(lower, "morning"):
		period = "a"
	case strings.Contains(lower, "afternoon"), strings.Contains(lower, "evening"), strings.Contains(lower, "night"):
		period = "p"
	}

	m := clockRe.FindStringSubmatch(lower)
	if m == nil {
		switch {
		case strings.Contains(lower, "morning"):
			return "09:00"
		case strings.Contains(lower, "afternoon"):
			return "14:00"
		case strings.Contains(lower, "evening"):
			return "17:00"
		}
		return s
	}

	h, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	meridiem := m[3]
	if meridiem != "" && (h < 1 || h > 12) {
		return s
	}
	if meridiem == "" {
		meridiem = period
	}

	switch {
	case meridiem == "p" && h < 12:
		h += 12
	case meridiem == "a" && h == 12:
		h = 0
	case meridiem == "" && h >= 1 && h < 9:
		h += 12
	}
	if h > 23 || minute > 59 {
		return s
	}
	return fmt.Sprintf("%02d:%02d", h, minute)
}

// IsISODate reports whether s is already a YYYY-MM-DD date.
func IsISODate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// IsClockTime reports whether s is already a HH:MM time.
func IsClockTime(s string) bool {
	_, err := time.Parse(TimeLayout, s)
	return err == nil && len(s) == 5
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DateForSpeech renders an ISO date as "Friday, 20 February 2026".
func DateForSpeech(iso string) string {
	t, err := time.Parse(DateLayout, iso)
	if err != nil {
		return iso
	}
	return t.Format("Monday, 2 January 2006")
}

// TimeForSpeech renders HH:MM as "4:30 PM".
func TimeForSpeech(hhmm string) string {
	t, err := time.Parse(TimeLayout, hhmm)
	if err != nil {
		return hhmm
	}
	return t.Format("3:04 PM")
}
