package parse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Monday 2 March 2026, mid-morning.
var fixedNow = time.Date(2026, time.March, 2, 10, 30, 0, 0, time.UTC)

func TestDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"today", "2026-03-02"},
		{"tomorrow", "2026-03-03"},
		{"the day after tomorrow", "2026-03-04"},
		{"in 3 days", "2026-03-05"},
		{"in 1 day", "2026-03-03"},
		{"next Thursday", "2026-03-05"},
		{"Monday", "2026-03-09"},
		{"sunday", "2026-03-08"},
		{"2026-04-10", "2026-04-10"},
		{"10/04/2026", "2026-04-10"},
		{"5/4/2026", "2026-04-05"},
		{"10-04-2026", "2026-04-10"},
		{"20 February 2027", "2027-02-20"},
		{"20th Feb 2027", "2027-02-20"},
		{"March 5", "2026-03-05"},
		{"5th of March", "2026-03-05"},
		{"1 Feb", "2027-02-01"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Date(tt.in, fixedNow))
		})
	}
}

func TestDateUnrecognisedIsUnchanged(t *testing.T) {
	for _, in := range []string{"", "whenever suits", "sometime soon", "31 Feb", "in 99999999999999999999 days", "in 999999999 days"} {
		assert.Equal(t, in, Date(in, fixedNow))
	}
}

func TestTime(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"3pm", "15:00"},
		{"3 pm", "15:00"},
		{"3:30 p.m.", "15:30"},
		{"12pm", "12:00"},
		{"12am", "00:00"},
		{"9am", "09:00"},
		{"9:05", "09:05"},
		{"14:00", "14:00"},
		{"in the morning", "09:00"},
		{"afternoon", "14:00"},
		{"evening please", "17:00"},
		{"3 in the afternoon", "15:00"},
		{"at 3pm", "15:00"},
		{"3pm tomorrow", "15:00"},
		{"around 4:30 in the afternoon", "16:30"},
		{"10 in the morning", "10:00"},
		{"7 in the evening", "19:00"},
		{"3", "15:00"},
		{"6", "18:00"},
		{"11", "11:00"},
		{"8pm", "20:00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Time(tt.in))
		})
	}
}

func TestTimeUnrecognisedIsUnchanged(t *testing.T) {
	for _, in := range []string{"", "whenever", "25:00", "13pm", "9:75", "at 100"} {
		assert.Equal(t, in, Time(in))
	}
}

func TestSpeechFormatting(t *testing.T) {
	assert.Equal(t, "Friday, 20 February 2026", DateForSpeech("2026-02-20"))
	assert.Equal(t, "not a date", DateForSpeech("not a date"))
	assert.Equal(t, "4:30 PM", TimeForSpeech("16:30"))
	assert.Equal(t, "9:00 AM", TimeForSpeech("09:00"))
}

func TestFormatChecks(t *testing.T) {
	assert.True(t, IsISODate("2026-03-02"))
	assert.False(t, IsISODate("02-03-2026"))
	assert.True(t, IsClockTime("09:30"))
	assert.False(t, IsClockTime("9:30"))
	assert.False(t, IsClockTime("3pm"))
}
