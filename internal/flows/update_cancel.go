package flows

import (
	"context"
	"fmt"
	"strings"

	"dental-receptionist-server/internal/executors"
	"dental-receptionist-server/internal/parse"
	"dental-receptionist-server/internal/session"
)

// Update/cancel steps
const (
	stepFetchAppointments = "fetch_appointments"
	stepSelectAppointment = "select_appointment"
	stepAskWhatToChange   = "ask_what_to_change"
	stepConfirmCancel     = "confirm_cancel"
)

// UpdateCancelFlow lets a verified patient pick one of their appointments
// and change or cancel it.
type UpdateCancelFlow struct {
	appts *executors.AppointmentExecutor
	clock Clock
	steps map[string]step
}

func NewUpdateCancelFlow(appts *executors.AppointmentExecutor, clock Clock) *UpdateCancelFlow {
	f := &UpdateCancelFlow{appts: appts, clock: clock}
	f.steps = map[string]step{
		stepFetchAppointments: f.fetchAppointments,
		stepSelectAppointment: f.selectAppointment,
		stepAskWhatToChange:   f.askWhatToChange,
		stepConfirmCancel:     f.confirmCancel,
	}
	return f
}

func (f *UpdateCancelFlow) Start(ctx context.Context, s *session.Session, text string) Reply {
	s.EndFlow()
	s.Flow = session.FlowUpdateCancel
	s.UpdateCancel.Step = stepFetchAppointments
	s.UpdateCancel.Action = detectAction(text)
	return f.fetchAppointments(ctx, s, text)
}

func (f *UpdateCancelFlow) Handle(ctx context.Context, s *session.Session, text string) Reply {
	h, ok := f.steps[s.UpdateCancel.Step]
	if !ok {
		return f.Start(ctx, s, text)
	}
	return h(ctx, s, text)
}

func (f *UpdateCancelFlow) fetchAppointments(ctx context.Context, s *session.Session, text string) Reply {
	res := f.appts.ListForPatient(ctx, s.PatientID())
	if !res.Is(executors.StatusSuccess) {
		s.EndFlow()
		return done(res.Message())
	}
	appts := res.Summaries()
	s.Appointments = appts
	uc := &s.UpdateCancel

	switch len(appts) {
	case 0:
		s.EndFlow()
		return done("I couldn't find any appointments under your name. Would you like to book one?")
	case 1:
		a := appts[0]
		uc.Selected = &a
		return f.afterSelect(s, "I found your "+describeAppointment(a)+".")
	}

	if a, ok := matchAppointment(text, appts); ok && mentionsAppointment(text, a) {
		uc.Selected = &a
		return f.afterSelect(s, "Got it, your "+describeAppointment(a)+".")
	}
	uc.Step = stepSelectAppointment
	verb := "change"
	if uc.Action == actionCancel {
		verb = "cancel"
	}
	return say(fmt.Sprintf("You have %d appointments. %s Which one would you like to %s?", len(appts), listAppointments(appts), verb))
}

// mentionsAppointment guards the opening sentence against ordinal words
// like "one" in "cancel one of my appointments".
func mentionsAppointment(text string, a executors.AppointmentSummary) bool {
	t := strings.ToLower(text)
	if tr := extractTreatment(t); tr != "" && tr == a.Treatment {
		return true
	}
	for _, part := range strings.Fields(strings.ToLower(a.Dentist)) {
		part = strings.Trim(part, ".")
		if len(part) > 2 && part != "dr" && strings.Contains(t, part) {
			return true
		}
	}
	return false
}

func listAppointments(appts []executors.AppointmentSummary) string {
	var b strings.Builder
	for i, a := range appts {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%d. Your %s.", i+1, describeAppointment(a))
	}
	return b.String()
}

func (f *UpdateCancelFlow) selectAppointment(_ context.Context, s *session.Session, text string) Reply {
	a, ok := matchAppointment(text, s.Appointments)
	if !ok {
		return say("I'm sorry, I didn't quite catch that. Which appointment? " + listAppointments(s.Appointments))
	}
	uc := &s.UpdateCancel
	uc.Selected = &a
	if uc.Action == "" {
		uc.Action = detectAction(text)
	}
	return f.afterSelect(s, "Got it, your "+describeAppointment(a)+".")
}

func (f *UpdateCancelFlow) afterSelect(s *session.Session, lead string) Reply {
	uc := &s.UpdateCancel
	switch uc.Action {
	case actionCancel:
		uc.Step = stepConfirmCancel
		return say(lead + " Are you sure you'd like to cancel it? Please say yes or no.")
	case actionUpdate:
		uc.Step = stepAskWhatToChange
		return say(lead + " What would you like to change, the date, time, dentist, or treatment?")
	}
	uc.Step = stepAskWhatToChange
	return say(lead + " Would you like to change it or cancel it?")
}

func (f *UpdateCancelFlow) askWhatToChange(ctx context.Context, s *session.Session, text string) Reply {
	uc := &s.UpdateCancel
	if uc.Selected == nil {
		return f.Start(ctx, s, text)
	}

	var ch executors.Changes
	ch.Treatment = extractTreatment(text)
	ch.Date, ch.Time = extractDateTime(text, f.clock.now())
	if d := extractDentist(text, f.appts.DentistNames(ctx)); d != anyDentist {
		ch.Dentist = d
	}
	if ch == (executors.Changes{}) {
		if detectAction(text) == actionCancel {
			uc.Action = actionCancel
			uc.Step = stepConfirmCancel
			return say("Are you sure you'd like to cancel your " + describeAppointment(*uc.Selected) + "? Please say yes or no.")
		}
		uc.Action = actionUpdate
		return say(askForChange(text))
	}

	res := f.appts.Update(ctx, uc.Selected.ID, ch)
	switch res.Status() {
	case executors.StatusUpdated:
		s.EndFlow()
		s.Appointments = nil
		return done(fmt.Sprintf("Done. Your %s is now on %s at %s with %s.",
			res.String("treatment"), parse.DateForSpeech(res.String("date")),
			parse.TimeForSpeech(res.String("time")), res.String("dentist")) + anythingElse)
	case executors.StatusUnavailable:
		return say("I'm sorry, that slot is already taken. Would another date or time work?")
	case executors.StatusInvalid:
		return say(res.Message())
	}
	return say(fmt.Sprintf("I'm sorry, I couldn't update that: %s. Would you like to try again?", strings.TrimSuffix(res.Message(), ".")))
}

// askForChange asks for the value of a field the caller named without
// giving one.
func askForChange(text string) string {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "date") || strings.Contains(t, "day"):
		return "Sure. What new date would you like?"
	case strings.Contains(t, "time"):
		return "Sure. What new time would you like?"
	case strings.Contains(t, "dentist") || strings.Contains(t, "doctor"):
		return "Sure. Which dentist would you like to see instead?"
	case strings.Contains(t, "treatment"):
		return "Sure. Which treatment would you like instead?"
	}
	return "What would you like to change, the date, time, dentist, or treatment?"
}

func (f *UpdateCancelFlow) confirmCancel(ctx context.Context, s *session.Session, text string) Reply {
	uc := &s.UpdateCancel
	switch {
	case isYes(text):
		if uc.Selected == nil {
			return f.Start(ctx, s, text)
		}
		a := *uc.Selected
		res := f.appts.Cancel(ctx, a.ID, "Cancelled by patient")
		if !res.Is(executors.StatusCancelled) {
			return say(fmt.Sprintf("I'm sorry, I couldn't cancel that: %s. Would you like to try again?", strings.TrimSuffix(res.Message(), ".")))
		}
		s.EndFlow()
		s.Appointments = nil
		return done(fmt.Sprintf("Your %s appointment on %s has been cancelled.", a.Treatment, parse.DateForSpeech(a.Date)) + anythingElse)
	case isNo(text):
		s.EndFlow()
		return done("No problem, I've left your appointment as it is." + anythingElse)
	}
	return say("Sorry, would you like me to cancel it? Please say yes or no.")
}
