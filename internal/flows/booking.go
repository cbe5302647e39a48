package flows

import (
	"context"
	"fmt"

	"dental-receptionist-server/internal/executors"
	"dental-receptionist-server/internal/parse"
	"dental-receptionist-server/internal/session"
)

// Booking steps
const (
	stepAskTreatment       = "ask_treatment"
	stepAskDateTime        = "ask_datetime"
	stepAskDentist         = "ask_dentist"
	stepCheckAvailability  = "check_availability"
	stepConfirmDetails     = "confirm_details"
	stepConfirmAlternative = "confirm_alternative"
	stepExecuteBooking     = "execute_booking"
)

// BookingFlow collects treatment, date, time and dentist, checks the slot
// and books it for the verified patient.
type BookingFlow struct {
	appts *executors.AppointmentExecutor
	clock Clock
	steps map[string]step
}

func NewBookingFlow(appts *executors.AppointmentExecutor, clock Clock) *BookingFlow {
	f := &BookingFlow{appts: appts, clock: clock}
	f.steps = map[string]step{
		stepAskTreatment:       f.askTreatment,
		stepAskDateTime:        f.askDateTime,
		stepAskDentist:         f.askDentist,
		stepCheckAvailability:  f.checkAvailability,
		stepConfirmDetails:     f.confirmDetails,
		stepConfirmAlternative: f.confirmAlternative,
		stepExecuteBooking:     f.executeBooking,
	}
	return f
}

// Start opens the flow, keeping whatever details the opening sentence
// already carries.
func (f *BookingFlow) Start(ctx context.Context, s *session.Session, text string) Reply {
	s.EndFlow()
	s.Flow = session.FlowBooking
	s.Booking.Step = stepAskTreatment
	if !isInitialTrigger(text) {
		f.fill(ctx, s, text)
	}
	return f.advance(ctx, s)
}

// Handle continues the flow with the next user turn.
func (f *BookingFlow) Handle(ctx context.Context, s *session.Session, text string) Reply {
	if wantsToCancelFlow(text) {
		s.EndFlow()
		return done("No problem, I won't book anything." + anythingElse)
	}
	h, ok := f.steps[s.Booking.Step]
	if !ok {
		s.Booking = session.BookingState{Step: stepAskTreatment}
		return say("Let's start your booking. What treatment would you like today?")
	}
	return h(ctx, s, text)
}

// fill copies any booking details found in text into empty fields.
func (f *BookingFlow) fill(ctx context.Context, s *session.Session, text string) bool {
	b := &s.Booking
	changed := false
	if b.Treatment == "" {
		if t := extractTreatment(text); t != "" {
			b.Treatment, changed = t, true
		}
	}
	date, clock := extractDateTime(text, f.clock.now())
	if b.Date == "" && date != "" {
		b.Date, changed = date, true
	}
	if b.Time == "" && clock != "" {
		b.Time, changed = clock, true
	}
	if b.Dentist == "" {
		if d := extractDentist(text, f.appts.DentistNames(ctx)); d != "" && (d != anyDentist || b.Treatment != "") {
			b.Dentist, changed = d, true
		}
	}
	return changed
}

// advance asks for the first missing detail, or checks the slot once all
// four are known.
func (f *BookingFlow) advance(ctx context.Context, s *session.Session) Reply {
	b := &s.Booking
	switch {
	case b.Treatment == "":
		b.Step = stepAskTreatment
		return say("What treatment would you like to book?")
	case b.Date == "" && b.Time == "":
		b.Step = stepAskDateTime
		return say(fmt.Sprintf("Great, a %s. What date and time would suit you?", b.Treatment))
	case b.Date == "":
		b.Step = stepAskDateTime
		return say(fmt.Sprintf("What date would you prefer for %s?", parse.TimeForSpeech(b.Time)))
	case b.Time == "":
		b.Step = stepAskDateTime
		return say(fmt.Sprintf("And what time would you prefer on %s?", parse.DateForSpeech(b.Date)))
	case b.Dentist == "":
		b.Step = stepAskDentist
		return say(fmt.Sprintf("Do you have a preferred dentist? We have %s, or I can find whoever is available.",
			joinOr(f.appts.DentistNames(ctx))))
	}
	b.Step = stepCheckAvailability
	return f.checkAvailability(ctx, s, "")
}

func (f *BookingFlow) askTreatment(ctx context.Context, s *session.Session, text string) Reply {
	if extractTreatment(text) == "" {
		return say("Sorry, I didn't catch the treatment. We offer check-ups and cleans, fillings, whitening, crowns, implants and more. What would you like?")
	}
	f.fill(ctx, s, text)
	return f.advance(ctx, s)
}

func (f *BookingFlow) askDateTime(ctx context.Context, s *session.Session, text string) Reply {
	if !f.fill(ctx, s, text) {
		return say("Sorry, I didn't catch that. Could you tell me the day and time, for example Thursday at 2 pm?")
	}
	return f.advance(ctx, s)
}

func (f *BookingFlow) askDentist(ctx context.Context, s *session.Session, text string) Reply {
	d := extractDentist(text, f.appts.DentistNames(ctx))
	if d == "" {
		if isNo(text) {
			d = anyDentist
		} else {
			return say(fmt.Sprintf("Sorry, which dentist would you like? We have %s, or I can find whoever is available.",
				joinOr(f.appts.DentistNames(ctx))))
		}
	}
	s.Booking.Dentist = d
	return f.advance(ctx, s)
}

// checkAvailability runs without user input once every detail is known.
func (f *BookingFlow) checkAvailability(ctx context.Context, s *session.Session, _ string) Reply {
	b := &s.Booking
	var res executors.Result
	if executors.IsAnyDentist(b.Dentist) {
		res = f.appts.FindAvailableDentist(ctx, b.Date, b.Time)
	} else {
		res = f.appts.CheckAvailability(ctx, b.Date, b.Time, b.Dentist)
	}

	switch res.Status() {
	case executors.StatusAvailable:
		b.Date, b.Time, b.Dentist = res.String("date"), res.String("time"), res.String("dentist")
		b.Step = stepConfirmDetails
		return say(fmt.Sprintf("Good news, that's available. Just to confirm, a %s on %s at %s with %s. Shall I book it?",
			b.Treatment, parse.DateForSpeech(b.Date), parse.TimeForSpeech(b.Time), b.Dentist))

	case executors.StatusUnavailable, executors.StatusNoneAvailableSuggest:
		alt := res.String("suggested_date")
		if alt == "" {
			b.Date, b.Time = "", ""
			b.Step = stepAskDateTime
			return say(fmt.Sprintf("I'm sorry, %s has no free times around then. Could you suggest another day?", b.Dentist))
		}
		b.AltDate, b.AltTime = alt, res.String("suggested_time")
		b.AltDentist = res.String("suggested_dentist")
		if b.AltDentist == "" {
			b.AltDentist = res.String("dentist")
		}
		b.Step = stepConfirmAlternative
		return say(fmt.Sprintf("I'm sorry, that time is taken. The earliest I have is %s at %s with %s. Would that work for you?",
			parse.DateForSpeech(b.AltDate), parse.TimeForSpeech(b.AltTime), b.AltDentist))

	case executors.StatusNotAvailable:
		b.Date, b.Time = "", ""
		b.Step = stepAskDateTime
		return say("I'm sorry, we're fully booked around then. Could you suggest a date a little further out?")

	case executors.StatusInvalid:
		b.Date, b.Time = "", ""
		b.Step = stepAskDateTime
		return say(res.Message())
	}

	b.Step = stepConfirmDetails
	return say(res.Message() + " Would you like me to try again?")
}

func (f *BookingFlow) confirmDetails(ctx context.Context, s *session.Session, text string) Reply {
	switch {
	case isYes(text):
		return f.executeBooking(ctx, s, text)
	case isNo(text):
		b := &s.Booking
		if t := extractTreatment(text); t != "" {
			b.Treatment = t
		}
		date, clock := extractDateTime(text, f.clock.now())
		if d := extractDentist(text, f.appts.DentistNames(ctx)); d != "" {
			b.Dentist = d
		}
		if date == "" && clock == "" {
			b.Date, b.Time = "", ""
			b.Step = stepAskDateTime
			return say("No problem. What date and time would suit you better?")
		}
		if date != "" {
			b.Date = date
		}
		if clock != "" {
			b.Time = clock
		}
		return f.advance(ctx, s)
	}
	return say("Sorry, shall I go ahead and book that? Please say yes or no.")
}

func (f *BookingFlow) confirmAlternative(ctx context.Context, s *session.Session, text string) Reply {
	b := &s.Booking
	switch {
	case isYes(text):
		b.Date, b.Time, b.Dentist = b.AltDate, b.AltTime, b.AltDentist
		b.AltDate, b.AltTime, b.AltDentist = "", "", ""
		return f.executeBooking(ctx, s, text)
	case isNo(text):
		b.Date, b.Time = "", ""
		b.AltDate, b.AltTime, b.AltDentist = "", "", ""
		if date, clock := extractDateTime(text, f.clock.now()); date != "" || clock != "" {
			b.Date, b.Time = date, clock
			return f.advance(ctx, s)
		}
		b.Step = stepAskDateTime
		return say("No problem. What other date and time would suit you?")
	}
	if date, clock := extractDateTime(text, f.clock.now()); date != "" || clock != "" {
		b.AltDate, b.AltTime, b.AltDentist = "", "", ""
		if date != "" {
			b.Date = date
		}
		if clock != "" {
			b.Time = clock
		}
		return f.advance(ctx, s)
	}
	return say("Would the time I suggested work for you? Please say yes or no.")
}

func (f *BookingFlow) executeBooking(ctx context.Context, s *session.Session, _ string) Reply {
	b := s.Booking
	res := f.appts.Book(ctx, executors.BookingRequest{
		PatientID: s.PatientID(),
		Treatment: b.Treatment,
		Date:      b.Date,
		Time:      b.Time,
		Dentist:   b.Dentist,
	})

	switch res.Status() {
	case executors.StatusBooked:
		s.EndFlow()
		r := done(fmt.Sprintf("You're all booked, %s! Your %s is on %s at %s with %s.",
			s.FirstName(), res.String("treatment"), parse.DateForSpeech(res.String("date")),
			parse.TimeForSpeech(res.String("time")), res.String("dentist")) + anythingElse)
		r.Booked = true
		return r
	case executors.StatusUnavailable, executors.StatusNoneAvailableSuggest, executors.StatusNotAvailable:
		return f.checkAvailability(ctx, s, "")
	}

	s.Booking.Step = stepConfirmDetails
	return say(fmt.Sprintf("I'm sorry, I encountered an issue while booking: %s Would you like to try again?", res.Message()))
}

func joinOr(names []string) string {
	switch len(names) {
	case 0:
		return "several dentists"
	case 1:
		return names[0]
	}
	out := ""
	for i, n := range names {
		switch {
		case i == 0:
			out = n
		case i == len(names)-1:
			out += " and " + n
		default:
			out += ", " + n
		}
	}
	return out
}
