package flows

import (
	"context"
	"fmt"
	"strings"

	"dental-receptionist-server/internal/executors"
	"dental-receptionist-server/internal/models"
	"dental-receptionist-server/internal/parse"
	"dental-receptionist-server/internal/session"
)

// Complaint steps
const (
	stepOpenEmpathy         = "open_empathy"
	stepCollectDescription  = "collect_description"
	stepTreatmentAskWhich   = "treatment_ask_which"
	stepTreatmentAskDentist = "treatment_ask_dentist"
	stepTreatmentAskDate    = "treatment_ask_date"
	stepConfirmComplaint    = "confirm_complaint"
	stepExecuteSave         = "execute_save"
)

var (
	treatmentComplaintWords = []string{
		"filling", "crown", "implant", "root canal", "extraction", "whitening", "veneer", "aligner",
		"invisalign", "denture", "bridge", "cleaning", "scale", "treatment", "procedure", "dentist did",
		"after the", "during the", "tooth hurts", "pain after", "still hurts", "came loose", "fell out",
		"cracked", "broke", "sensitive after", "dr.", "doctor", "gum bleed", "swelling after", "infection after",
	}
	generalComplaintWords = []string{
		"wait", "waiting", "too long", "reception", "receptionist", "staff", "rude", "unhelpful", "billing",
		"invoice", "charged", "overcharged", "appointment", "cancelled on me", "no show", "parking",
		"location", "hours", "closed", "phone", "call back", "never called", "hygiene", "cleanliness", "dirty",
	}
	complaintTriggerRe = wordsRe("complaint", "complain", "not happy", "unhappy", "issue", "problem",
		"concern", "feedback", "disappointed")
	notSureRe = wordsRe("not sure", "unsure", "don't know", "dont know", "don't remember", "can't remember",
		"cannot remember", "no idea", "skip", "i forget")
)

// classifyComplaint counts keywords of each kind. Ties are general.
func classifyComplaint(text string) models.ComplaintCategory {
	t := strings.ToLower(text)
	count := func(words []string) int {
		n := 0
		for _, w := range words {
			if strings.Contains(t, w) {
				n++
			}
		}
		return n
	}
	if count(treatmentComplaintWords) > count(generalComplaintWords) {
		return models.ComplaintTreatment
	}
	return models.ComplaintGeneral
}

// hasDescription reports whether the caller already said what went wrong
// rather than just asking to complain.
func hasDescription(text string) bool {
	n := len(strings.Fields(text))
	if complaintTriggerRe.MatchString(text) && n <= 5 {
		return false
	}
	return n > 8
}

func notSure(text string) bool { return notSureRe.MatchString(text) }

// ComplaintFlow takes a complaint from a verified patient, asks for the
// treatment details when it concerns a treatment, reads it back and saves it.
type ComplaintFlow struct {
	complaints *executors.ComplaintExecutor
	appts      *executors.AppointmentExecutor
	clock      Clock
	steps      map[string]step
}

func NewComplaintFlow(complaints *executors.ComplaintExecutor, appts *executors.AppointmentExecutor, clock Clock) *ComplaintFlow {
	f := &ComplaintFlow{complaints: complaints, appts: appts, clock: clock}
	f.steps = map[string]step{
		stepOpenEmpathy:         f.openEmpathy,
		stepCollectDescription:  f.collectDescription,
		stepTreatmentAskWhich:   f.treatmentAskWhich,
		stepTreatmentAskDentist: f.treatmentAskDentist,
		stepTreatmentAskDate:    f.treatmentAskDate,
		stepConfirmComplaint:    f.confirmComplaint,
		stepExecuteSave:         f.executeSave,
	}
	return f
}

func (f *ComplaintFlow) Start(ctx context.Context, s *session.Session, text string) Reply {
	s.EndFlow()
	s.Flow = session.FlowComplaint
	s.Complaint.Step = stepOpenEmpathy
	return f.openEmpathy(ctx, s, text)
}

func (f *ComplaintFlow) Handle(ctx context.Context, s *session.Session, text string) Reply {
	h, ok := f.steps[s.Complaint.Step]
	if !ok {
		s.Complaint = session.ComplaintState{Step: stepCollectDescription}
		return say("Could you please tell me what happened?")
	}
	return h(ctx, s, text)
}

func (f *ComplaintFlow) openEmpathy(ctx context.Context, s *session.Session, text string) Reply {
	c := &s.Complaint
	if !hasDescription(text) {
		c.Step = stepCollectDescription
		return say(fmt.Sprintf("I'm so sorry to hear you're having a concern, %s. I sincerely apologise for any inconvenience. Could you please tell me what happened?", s.FirstName()))
	}
	c.Text = strings.TrimSpace(text)
	c.Category = classifyComplaint(text)
	if c.Category == models.ComplaintTreatment {
		return f.askTreatment(s, fmt.Sprintf("I'm so sorry to hear that, %s. I sincerely apologise.", s.FirstName()))
	}
	return f.readBack(s, fmt.Sprintf("I'm so sorry to hear that, %s. I sincerely apologise for the inconvenience.", s.FirstName()))
}

func (f *ComplaintFlow) collectDescription(_ context.Context, s *session.Session, text string) Reply {
	text = strings.TrimSpace(text)
	if len(text) < 5 {
		return say("Could you tell me a little more about what happened?")
	}
	c := &s.Complaint
	c.Text = text
	c.Category = classifyComplaint(text)
	if c.Category == models.ComplaintTreatment {
		return f.askTreatment(s, "Thank you for letting me know.")
	}
	return f.readBack(s, "Thank you for letting me know.")
}

// askTreatment skips the question when the description already names one.
func (f *ComplaintFlow) askTreatment(s *session.Session, lead string) Reply {
	c := &s.Complaint
	if t := extractTreatment(c.Text); t != "" {
		c.TreatmentName = t
		c.Step = stepTreatmentAskDentist
		return say(lead + " Do you remember which dentist treated you? If not, just say 'not sure'.")
	}
	c.Step = stepTreatmentAskWhich
	return say(lead + " Could you tell me which treatment this was regarding?")
}

func (f *ComplaintFlow) treatmentAskWhich(_ context.Context, s *session.Session, text string) Reply {
	c := &s.Complaint
	switch {
	case notSure(text):
		c.TreatmentName = ""
	case extractTreatment(text) != "":
		c.TreatmentName = extractTreatment(text)
	default:
		c.TreatmentName = parse.TitleCase(strings.TrimSpace(text))
	}
	c.Step = stepTreatmentAskDentist
	return say("Do you remember which dentist treated you? If not, just say 'not sure'.")
}

func (f *ComplaintFlow) treatmentAskDentist(ctx context.Context, s *session.Session, text string) Reply {
	c := &s.Complaint
	c.DentistName = ""
	if !notSure(text) {
		if d := extractDentist(text, f.appts.DentistNames(ctx)); d != anyDentist {
			c.DentistName = d
		}
	}
	c.Step = stepTreatmentAskDate
	return say("And roughly when was the treatment? If you're not sure, that's fine.")
}

func (f *ComplaintFlow) treatmentAskDate(_ context.Context, s *session.Session, text string) Reply {
	c := &s.Complaint
	c.TreatmentDate = ""
	if !notSure(text) {
		if d, _ := extractDateTime(text, f.clock.now()); d != "" {
			c.TreatmentDate = d
		} else if !isNo(text) {
			c.TreatmentDate = strings.TrimSpace(text)
		}
	}
	return f.readBack(s, "Thank you.")
}

func (f *ComplaintFlow) readBack(s *session.Session, lead string) Reply {
	c := &s.Complaint
	c.Step = stepConfirmComplaint

	var b strings.Builder
	b.WriteString(lead + " Let me read that back to you.")
	if s.Patient != nil {
		fmt.Fprintf(&b, " Name: %s.", s.Patient.FullName())
		if s.Patient.ContactNumber != "" {
			fmt.Fprintf(&b, " Contact: %s.", parse.PhoneForSpeech(s.Patient.ContactNumber))
		}
	}
	fmt.Fprintf(&b, " Type: %s complaint.", c.Category)
	if c.Category == models.ComplaintTreatment {
		fmt.Fprintf(&b, " Treatment: %s.", orNotSure(c.TreatmentName))
		fmt.Fprintf(&b, " Dentist: %s.", orNotSure(c.DentistName))
		date := c.TreatmentDate
		if parse.IsISODate(date) {
			date = parse.DateForSpeech(date)
		}
		fmt.Fprintf(&b, " Date: %s.", orNotSure(date))
	}
	fmt.Fprintf(&b, " Complaint: %s. Is everything correct?", strings.TrimRight(c.Text, "."))
	return say(b.String())
}

func orNotSure(s string) string {
	if s == "" {
		return "not sure"
	}
	return s
}

func (f *ComplaintFlow) confirmComplaint(ctx context.Context, s *session.Session, text string) Reply {
	switch {
	case isYes(text):
		return f.executeSave(ctx, s, text)
	case isNo(text):
		s.Complaint = session.ComplaintState{Step: stepCollectDescription}
		return say("Of course, let's go over it again. Could you please describe your concern?")
	}
	return say("Is everything I read back correct? Please say yes or no.")
}

func (f *ComplaintFlow) executeSave(ctx context.Context, s *session.Session, text string) Reply {
	c := s.Complaint
	if c.Step == stepExecuteSave && isNo(text) && !isYes(text) {
		s.EndFlow()
		return done("I understand. I'm sorry we couldn't record it just now." + anythingElse)
	}

	req := executors.ComplaintRequest{
		Category:      string(c.Category),
		Text:          c.Text,
		TreatmentName: c.TreatmentName,
		DentistName:   c.DentistName,
		TreatmentDate: c.TreatmentDate,
	}
	if c.TreatmentDate != "" && !parse.IsISODate(c.TreatmentDate) {
		req.TreatmentDate = ""
		req.AdditionalInfo = "Treatment date given as: " + c.TreatmentDate
	}
	if p := s.Patient; p != nil {
		id := p.PatientID
		req.PatientID = &id
		req.PatientName = p.FullName()
		req.ContactNumber = p.ContactNumber
		req.DateOfBirth = p.DateOfBirth
	}

	res := f.complaints.Save(ctx, req)
	if !res.Is(executors.StatusSaved) {
		s.Complaint.Step = stepExecuteSave
		return say(fmt.Sprintf("I'm sorry, I wasn't able to save your complaint: %s Would you like me to try again?", res.Message()))
	}
	s.EndFlow()
	return done(fmt.Sprintf("Your complaint has been recorded, %s. Our management team will review this carefully and reach out to you on %s within 2 business days. I sincerely apologise for the experience.",
		s.FirstName(), parse.PhoneForSpeech(req.ContactNumber)) + anythingElse)
}
