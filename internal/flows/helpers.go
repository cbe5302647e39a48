package flows

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"dental-receptionist-server/internal/executors"
	"dental-receptionist-server/internal/parse"
)

func wordsRe(words ...string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
}

var (
	yesRe = wordsRe("yes", "yeah", "yep", "yup", "correct", "right", "sure", "ok", "okay", "go ahead",
		"confirmed", "that's correct", "that is correct", "sounds good", "affirmative")
	noRe = wordsRe("no", "nope", "nah", "don't", "do not", "not right", "incorrect", "wrong",
		"cancel", "stop", "not correct")
	negationRe   = wordsRe("no", "nope", "nah", "not", "don't", "incorrect", "wrong")
	cancelFlowRe = wordsRe("don't want to book", "cancel the booking", "forget it", "never mind", "nevermind",
		"stop booking", "don't want an appointment", "don't want appointment", "not anymore")
	bookingTriggerRe = wordsRe("book", "booking", "appointment", "schedule", "make an appointment", "see a dentist", "see the dentist")
)

// isYes ignores affirmative words under a negation, so "that's not right"
// is not a yes.
func isYes(text string) bool { return yesRe.MatchString(text) && !negationRe.MatchString(text) }

// isNo is checked after isYes, so "yes, cancel it" counts as yes.
func isNo(text string) bool { return noRe.MatchString(text) }

func wantsToCancelFlow(text string) bool { return cancelFlowRe.MatchString(text) }

// isInitialTrigger reports a short "I want to book" with no treatment in it.
func isInitialTrigger(text string) bool {
	return bookingTriggerRe.MatchString(text) && len(strings.Fields(text)) < 8 && extractTreatment(text) == ""
}

// Treatments are matched in order, so more specific keywords come first.
var treatments = []struct {
	keywords []string
	name     string
}{
	{[]string{"scale", "deep clean"}, "Scale & Clean (Deep Clean)"},
	{[]string{"root canal"}, "Root Canal Treatment"},
	{[]string{"wisdom"}, "Wisdom Teeth Removal"},
	{[]string{"emergency"}, "Emergency Dental Consultation"},
	{[]string{"children", "child", "kids", "my son", "my daughter"}, "Children's Dentistry"},
	{[]string{"filling"}, "Dental Fillings"},
	{[]string{"crown"}, "Dental Crowns"},
	{[]string{"implant"}, "Dental Implants"},
	{[]string{"denture"}, "Dentures"},
	{[]string{"bridge"}, "Dental Bridges"},
	{[]string{"whitening", "whiten"}, "Teeth Whitening"},
	{[]string{"veneer"}, "Dental Veneers"},
	{[]string{"invisalign", "aligner", "braces"}, "Clear Aligners / Invisalign"},
	{[]string{"extraction", "extract", "remove tooth", "pull a tooth", "pulled"}, "Tooth Extraction"},
	{[]string{"gum", "periodon"}, "Gum Disease Treatment"},
	{[]string{"check-up", "check up", "checkup", "general check", "clean", "consultation"}, "General Check-Up & Clean"},
	{[]string{"root"}, "Root Canal Treatment"},
}

// extractTreatment maps free text onto a treatment name, or "".
func extractTreatment(text string) string {
	t := strings.ToLower(text)
	for _, tr := range treatments {
		for _, kw := range tr.keywords {
			if strings.Contains(t, kw) {
				return tr.name
			}
		}
	}
	return ""
}

const anyDentist = "any"

var anyDentistRe = wordsRe("any", "anyone", "anybody", "whoever", "no preference", "don't mind",
	"doesn't matter", "any available", "any dentist", "available", "first available")

// extractDentist returns a dentist from names mentioned in text, "any" for
// no preference, or "".
func extractDentist(text string, names []string) string {
	t := strings.ToLower(text)
	for _, name := range names {
		for _, part := range strings.Fields(strings.ToLower(name)) {
			part = strings.Trim(part, ".")
			if len(part) > 2 && part != "dr" && strings.Contains(t, part) {
				return name
			}
		}
	}
	if anyDentistRe.MatchString(t) {
		return anyDentist
	}
	return ""
}

var (
	timeRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(\d{1,2}:\d{2}\s*(?:a\.?m\.?|p\.?m\.?))`),
		regexp.MustCompile(`(?i)\b(\d{1,2}\s*(?:a\.?m\.?|p\.?m\.?))`),
		regexp.MustCompile(`(?i)\b(\d{1,2}:\d{2})\b`),
		regexp.MustCompile(`(?i)\b(\d{1,2}(?::\d{2})?\s+in\s+the\s+(?:morning|afternoon|evening))\b`),
		regexp.MustCompile(`(?i)\b(morning|afternoon|evening)\b`),
	}
	dateRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(day after tomorrow|tomorrow|today)\b`),
		regexp.MustCompile(`(?i)\b((?:next|coming|this)\s+(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday))\b`),
		regexp.MustCompile(`(?i)\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`),
		regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`),
		regexp.MustCompile(`\b(\d{1,2}[-/]\d{1,2}[-/]\d{4})\b`),
		regexp.MustCompile(`(?i)\b(\d{1,2}(?:st|nd|rd|th)?(?:\s+of)?\s+(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*)\b`),
		regexp.MustCompile(`(?i)\b((?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+\d{1,2}(?:st|nd|rd|th)?)\b`),
		regexp.MustCompile(`(?i)\b(in\s+\d+\s+days?)\b`),
	}
)

// extractDateTime pulls a date and a time out of a sentence and normalises
// them to YYYY-MM-DD and HH:MM. Either may be "".
func extractDateTime(text string, now time.Time) (date, clock string) {
	lower := strings.ToLower(text)
	for _, re := range dateRes {
		if m := re.FindStringSubmatch(lower); m != nil {
			if d := parse.Date(m[1], now); parse.IsISODate(d) {
				date = d
				break
			}
		}
	}
	for _, re := range timeRes {
		if m := re.FindStringSubmatch(lower); m != nil {
			if c := parse.Time(m[1]); parse.IsClockTime(c) {
				clock = c
				break
			}
		}
	}
	return date, clock
}

var (
	cancelActionRe = wordsRe("cancel", "remove", "delete", "don't need", "do not need", "call off")
	updateActionRe = wordsRe("update", "change", "reschedule", "modify", "move", "different")
)

const (
	actionCancel = "cancel"
	actionUpdate = "update"
)

func detectAction(text string) string {
	switch {
	case cancelActionRe.MatchString(text):
		return actionCancel
	case updateActionRe.MatchString(text):
		return actionUpdate
	}
	return ""
}

var (
	ordinalWords = []struct {
		re    *regexp.Regexp
		index int
	}{
		{wordsRe("first", "1st"), 0},
		{wordsRe("second", "2nd"), 1},
		{wordsRe("third", "3rd"), 2},
		{wordsRe("fourth", "4th"), 3},
		{wordsRe("last", "latest"), -1},
	}
	// tried last, so "the second one" and "the one with Dr Nguyen" resolve
	// by ordinal and dentist first
	numberWords = []struct {
		re    *regexp.Regexp
		index int
	}{
		{wordsRe("one"), 0},
		{wordsRe("two"), 1},
		{wordsRe("three"), 2},
		{wordsRe("four"), 3},
	}
	digitRe = regexp.MustCompile(`\b(\d)\b`)
)

// matchAppointment picks an appointment by position, treatment or dentist.
func matchAppointment(text string, appts []executors.AppointmentSummary) (executors.AppointmentSummary, bool) {
	if len(appts) == 0 {
		return executors.AppointmentSummary{}, false
	}
	t := strings.ToLower(text)

	for _, o := range ordinalWords {
		if o.re.MatchString(t) {
			i := o.index
			if i < 0 {
				i = len(appts) - 1
			}
			if i < len(appts) {
				return appts[i], true
			}
		}
	}
	if m := digitRe.FindStringSubmatch(t); m != nil {
		if n, _ := strconv.Atoi(m[1]); n >= 1 && n <= len(appts) {
			return appts[n-1], true
		}
	}
	if tr := extractTreatment(t); tr != "" {
		for _, a := range appts {
			if a.Treatment == tr {
				return a, true
			}
		}
	}
	for _, a := range appts {
		for _, w := range strings.Fields(strings.ToLower(a.Treatment)) {
			if len(w) > 3 && strings.Contains(t, w) {
				return a, true
			}
		}
	}
	for _, a := range appts {
		for _, part := range strings.Fields(strings.ToLower(a.Dentist)) {
			part = strings.Trim(part, ".")
			if len(part) > 2 && part != "dr" && strings.Contains(t, part) {
				return a, true
			}
		}
	}
	for _, n := range numberWords {
		if n.re.MatchString(t) && n.index < len(appts) {
			return appts[n.index], true
		}
	}
	return executors.AppointmentSummary{}, false
}

// describeAppointment reads an appointment back for speech.
func describeAppointment(a executors.AppointmentSummary) string {
	return a.Treatment + " appointment on " + parse.DateForSpeech(a.Date) +
		" at " + parse.TimeForSpeech(a.Time) + " with " + a.Dentist
}
