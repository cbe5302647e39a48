package flows

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"dental-receptionist-server/internal/executors"
	"dental-receptionist-server/internal/models"
)

// Monday 2 March 2026, 10:30
var fixedNow = time.Date(2026, time.March, 2, 10, 30, 0, 0, time.UTC)

func testClock() time.Time { return fixedNow }

var dentists = []string{"Dr. Emily Carter", "Dr. James Nguyen", "Dr. Sarah Mitchell"}

func TestYesNo(t *testing.T) {
	for _, s := range []string{"yes please", "Yeah, go ahead", "that's correct", "sure", "OK"} {
		assert.True(t, isYes(s), s)
	}
	for _, s := range []string{"that's not right", "no", "nope, wrong day", "yesterday"} {
		assert.False(t, isYes(s), s)
	}
	assert.True(t, isNo("no thanks"))
	assert.True(t, isNo("Nah"))
	assert.False(t, isNo("I know"), "no as part of a word")
}

func TestWantsToCancelFlow(t *testing.T) {
	assert.True(t, wantsToCancelFlow("actually never mind"))
	assert.True(t, wantsToCancelFlow("I don't want to book anymore"))
	assert.False(t, wantsToCancelFlow("Thursday please"))
}

func TestIsInitialTrigger(t *testing.T) {
	assert.True(t, isInitialTrigger("I'd like to book an appointment"))
	assert.False(t, isInitialTrigger("I'd like to book a filling"))
	assert.False(t, isInitialTrigger("Thursday at 3pm"))
}

func TestExtractTreatment(t *testing.T) {
	tests := map[string]string{
		"I think I need a root canal":   "Root Canal Treatment",
		"can I get a deep clean":        "Scale & Clean (Deep Clean)",
		"just a check up please":        "General Check-Up & Clean",
		"my wisdom tooth is killing me": "Wisdom Teeth Removal",
		"I'd like my teeth whitened":    "Teeth Whitening",
		"interested in Invisalign":      "Clear Aligners / Invisalign",
		"hello there":                   "",
	}
	for in, want := range tests {
		assert.Equal(t, want, extractTreatment(in), in)
	}
}

func TestExtractDentist(t *testing.T) {
	assert.Equal(t, "Dr. Emily Carter", extractDentist("with Dr Carter please", dentists))
	assert.Equal(t, "Dr. James Nguyen", extractDentist("James", dentists))
	assert.Equal(t, anyDentist, extractDentist("anyone is fine", dentists))
	assert.Equal(t, anyDentist, extractDentist("I don't mind", dentists))
	assert.Empty(t, extractDentist("hmm", dentists))
}

func TestExtractDateTime(t *testing.T) {
	tests := []struct {
		in         string
		date, time string
	}{
		{"next Thursday at 3pm", "2026-03-05", "15:00"},
		{"tomorrow morning", "2026-03-03", "09:00"},
		{"20 March at 10:30am", "2026-03-20", "10:30"},
		{"March 20th", "2026-03-20", ""},
		{"in 3 days at 14:00", "2026-03-05", "14:00"},
		{"at 4 pm", "", "16:00"},
		{"Thursday, 3 in the afternoon", "2026-03-05", "15:00"},
		{"whenever", "", ""},
	}
	for _, tt := range tests {
		date, clock := extractDateTime(tt.in, fixedNow)
		assert.Equal(t, tt.date, date, tt.in)
		assert.Equal(t, tt.time, clock, tt.in)
	}
}

func TestDetectAction(t *testing.T) {
	assert.Equal(t, actionCancel, detectAction("I need to cancel"))
	assert.Equal(t, actionUpdate, detectAction("can I reschedule"))
	assert.Empty(t, detectAction("hello"))
}

func TestMatchAppointment(t *testing.T) {
	appts := []executors.AppointmentSummary{
		{ID: 1, Treatment: "Dental Fillings", Date: "2026-03-10", Time: "10:00", Dentist: "Dr. Emily Carter"},
		{ID: 2, Treatment: "Teeth Whitening", Date: "2026-03-12", Time: "14:00", Dentist: "Dr. James Nguyen"},
		{ID: 3, Treatment: "Dental Crowns", Date: "2026-03-20", Time: "09:30", Dentist: "Dr. Sarah Mitchell"},
	}
	tests := map[string]uint{
		"the second one":       2,
		"the first":            1,
		"the last one":         3,
		"number 3":             3,
		"the filling":          1,
		"the whitening please": 2,
		"the one with Nguyen":  2,
	}
	for in, want := range tests {
		a, ok := matchAppointment(in, appts)
		if assert.True(t, ok, in) {
			assert.Equal(t, want, a.ID, in)
		}
	}

	_, ok := matchAppointment("hmm not sure", appts)
	assert.False(t, ok)
	_, ok = matchAppointment("the first", nil)
	assert.False(t, ok)
}

func TestComplaintHelpers(t *testing.T) {
	assert.Equal(t, models.ComplaintTreatment, classifyComplaint("my filling fell out two days after the treatment"))
	assert.Equal(t, models.ComplaintGeneral, classifyComplaint("the receptionist was rude and I was left waiting"))
	assert.Equal(t, models.ComplaintGeneral, classifyComplaint("something"))

	assert.False(t, hasDescription("I want to make a complaint"))
	assert.False(t, hasDescription("it was bad"))
	assert.True(t, hasDescription("I waited over an hour past my appointment time and nobody told me why"))

	assert.True(t, notSure("I'm not sure"))
	assert.True(t, notSure("can't remember"))
	assert.False(t, notSure("Dr Carter"))
}

func TestVerificationHelpers(t *testing.T) {
	assert.Equal(t, "new", detectNewOrExisting("I'm a new patient"))
	assert.Equal(t, "new", detectNewOrExisting("I've never been there"))
	assert.Equal(t, "existing", detectNewOrExisting("I've been before"))
	assert.Empty(t, detectNewOrExisting("hello"))

	assert.Equal(t, "Doe", cleanName("my last name is doe."))
	assert.Equal(t, "Jane", cleanName("It's Jane"))
	assert.Equal(t, "Van Der Berg", cleanName("van der berg"))

	dob, ok := validDOB("it's the 14th of March 1990")
	assert.True(t, ok)
	assert.Equal(t, "14-03-1990", dob)
	dob, ok = validDOB("01/02/1990")
	assert.True(t, ok)
	assert.Equal(t, "01-02-1990", dob)
	_, ok = validDOB("a while ago")
	assert.False(t, ok)
}
