package flows

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"dental-receptionist-server/internal/executors"
	"dental-receptionist-server/internal/models"
	"dental-receptionist-server/internal/parse"
	"dental-receptionist-server/internal/session"
)

// Verification steps
const (
	stepAskNewOrExisting     = "ask_new_or_existing"
	stepExistingAskLastName  = "existing_ask_lastname"
	stepExistingAskDOB       = "existing_ask_dob"
	stepExistingDisambiguate = "existing_disambiguate_contact"
	stepNewAskFirstName      = "new_ask_firstname"
	stepNewAskLastName       = "new_ask_lastname"
	stepNewAskDOB            = "new_ask_dob"
	stepNewAskContact        = "new_ask_contact"
	stepNewConfirmContact    = "new_confirm_contact"
	stepNewAskInsurance      = "new_ask_insurance"
)

const (
	askNewOrExisting             = "Are you a new patient or an existing patient with us?"
	verificationNotUnderstood    = "I'm sorry, I didn't quite catch that. " + askNewOrExisting
	verificationCreationFailed   = "I'm sorry, there was an issue creating your account. Could we try again from the beginning? " + askNewOrExisting
	verificationDOBNotUnderstood = "Sorry, I didn't catch that date of birth. Could you say it like 14 March 1990?"
)

var (
	newPatientRe = wordsRe("new", "never", "first time", "first visit", "don't have", "do not have",
		"no account", "haven't been", "new patient", "register")
	existingPatientRe = wordsRe("existing", "old", "been before", "visited", "already", "have account",
		"have an account", "returning", "been there", "came before", "i have", "try again")
	namePrefixRe = regexp.MustCompile(`(?i)^(my\s+)?(first\s+|last\s+|sur|family\s+)?(name\s+is|name's)\s+|^(it's|it is|i'm|i am|this is|sure,?|yes,?)\s+`)
	dobFormatRe  = regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`)
	dobInTextRe  = regexp.MustCompile(`(?i)\d{1,2}(?:st|nd|rd|th)?(?:\s+of)?[\s/.\-]+(?:\d{1,2}|[a-z]+),?[\s/.\-]+\d{4}|[a-z]+\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}|\d{4}-\d{2}-\d{2}`)
)

// detectNewOrExisting returns "new", "existing" or "".
func detectNewOrExisting(text string) string {
	switch {
	case newPatientRe.MatchString(text):
		return "new"
	case existingPatientRe.MatchString(text):
		return "existing"
	}
	return ""
}

// cleanName strips lead-ins like "my last name is" and keeps at most three words.
func cleanName(text string) string {
	t := strings.TrimSpace(text)
	for {
		stripped := namePrefixRe.ReplaceAllString(t, "")
		if stripped == t {
			break
		}
		t = stripped
	}
	t = strings.Map(func(r rune) rune {
		if r == '.' || r == ',' || r == '!' || r == '?' {
			return -1
		}
		return r
	}, t)
	words := strings.Fields(t)
	if len(words) > 3 {
		words = words[:3]
	}
	return parse.TitleCase(strings.Join(words, " "))
}

// validDOB finds a date of birth in text and returns it as DD-MM-YYYY.
func validDOB(text string) (string, bool) {
	candidates := []string{text}
	candidates = append(candidates, dobInTextRe.FindAllString(text, -1)...)
	for _, c := range candidates {
		c = strings.ReplaceAll(c, " of ", " ")
		if dob := parse.DOBToDBFormat(c); dobFormatRe.MatchString(dob) {
			return dob, true
		}
	}
	return "", false
}

// VerificationFlow identifies an existing patient or registers a new one,
// then hands back to the flow that needed a verified patient.
type VerificationFlow struct {
	verify *executors.VerificationExecutor
	steps  map[string]step
}

func NewVerificationFlow(verify *executors.VerificationExecutor) *VerificationFlow {
	f := &VerificationFlow{verify: verify}
	f.steps = map[string]step{
		stepAskNewOrExisting:     f.askNewOrExisting,
		stepExistingAskLastName:  f.existingAskLastName,
		stepExistingAskDOB:       f.existingAskDOB,
		stepExistingDisambiguate: f.existingDisambiguate,
		stepNewAskFirstName:      f.newAskFirstName,
		stepNewAskLastName:       f.newAskLastName,
		stepNewAskDOB:            f.newAskDOB,
		stepNewAskContact:        f.newAskContact,
		stepNewConfirmContact:    f.newConfirmContact,
		stepNewAskInsurance:      f.newAskInsurance,
	}
	return f
}

// Begin starts verification on behalf of resume, which runs with the
// caller's original request once they are verified.
func (f *VerificationFlow) Begin(ctx context.Context, s *session.Session, resume, text string) Reply {
	s.EndFlow()
	s.Flow = session.FlowVerification
	s.Verification = session.VerificationState{Step: stepAskNewOrExisting, Resume: resume, ResumeInput: text}
	// "a new appointment" says nothing about the caller
	if strings.Contains(strings.ToLower(text), "patient") && detectNewOrExisting(text) != "" {
		return f.askNewOrExisting(ctx, s, text)
	}
	return say("Before I can help with that, I just need to confirm who I'm speaking with. " + askNewOrExisting)
}

func (f *VerificationFlow) Start(ctx context.Context, s *session.Session, text string) Reply {
	return f.Begin(ctx, s, "", text)
}

func (f *VerificationFlow) Handle(ctx context.Context, s *session.Session, text string) Reply {
	h, ok := f.steps[s.Verification.Step]
	if !ok {
		s.Verification.Step = stepAskNewOrExisting
		return say(askNewOrExisting)
	}
	return h(ctx, s, text)
}

func (f *VerificationFlow) askNewOrExisting(_ context.Context, s *session.Session, text string) Reply {
	v := &s.Verification
	switch detectNewOrExisting(text) {
	case "new":
		v.Step = stepNewAskFirstName
		return say("Welcome! Let's get you set up. What's your first name?")
	case "existing":
		v.Step = stepExistingAskLastName
		return say("Great. Could I have your last name, please?")
	}
	return say(verificationNotUnderstood)
}

func (f *VerificationFlow) existingAskLastName(_ context.Context, s *session.Session, text string) Reply {
	name := cleanName(text)
	if name == "" {
		return say("Sorry, could you tell me your last name?")
	}
	s.Verification.LastName = name
	s.Verification.Step = stepExistingAskDOB
	return say("Thanks. And your date of birth?")
}

func (f *VerificationFlow) existingAskDOB(ctx context.Context, s *session.Session, text string) Reply {
	v := &s.Verification
	dob, ok := validDOB(text)
	if !ok {
		return say(verificationDOBNotUnderstood)
	}
	v.DOB = dob

	res := f.verify.VerifyByLastNameDOB(ctx, v.LastName, dob)
	switch res.Status() {
	case executors.StatusVerified:
		return f.finish(s, res.Patient(), fmt.Sprintf("Thank you, %s, you're verified.", res.String("first_name")))
	case executors.StatusMultipleFound:
		v.Step = stepExistingDisambiguate
		return say("I found more than one record with those details. Could you please tell me your contact number?")
	case executors.StatusNotFound:
		v.Step = stepAskNewOrExisting
		return say("I couldn't find an account with those details. Would you like to try again, or register as a new patient?")
	}
	return say(res.Message())
}

func (f *VerificationFlow) existingDisambiguate(ctx context.Context, s *session.Session, text string) Reply {
	v := &s.Verification
	phone := parse.ExtractPhone(text)
	if len(phone) < 8 {
		return say("Sorry, I didn't catch the full number. Could you say your contact number again?")
	}
	res := f.verify.VerifyByContact(ctx, v.LastName, v.DOB, phone)
	if res.Is(executors.StatusVerified) {
		return f.finish(s, res.Patient(), fmt.Sprintf("Thank you, %s, you're verified.", res.String("first_name")))
	}
	v.Step = stepAskNewOrExisting
	return say("I'm sorry, I couldn't verify those details. Let's start again. " + askNewOrExisting)
}

func (f *VerificationFlow) newAskFirstName(_ context.Context, s *session.Session, text string) Reply {
	name := cleanName(text)
	if name == "" {
		return say("Sorry, what's your first name?")
	}
	s.Verification.NewFirstName = name
	s.Verification.Step = stepNewAskLastName
	return say(fmt.Sprintf("Thanks, %s. And your last name?", name))
}

func (f *VerificationFlow) newAskLastName(_ context.Context, s *session.Session, text string) Reply {
	name := cleanName(text)
	if name == "" {
		return say("Sorry, what's your last name?")
	}
	s.Verification.NewLastName = name
	s.Verification.Step = stepNewAskDOB
	return say("And what's your date of birth?")
}

func (f *VerificationFlow) newAskDOB(_ context.Context, s *session.Session, text string) Reply {
	dob, ok := validDOB(text)
	if !ok {
		return say(verificationDOBNotUnderstood)
	}
	s.Verification.NewDOB = dob
	s.Verification.Step = stepNewAskContact
	return say("And what's the best contact number for you?")
}

func (f *VerificationFlow) newAskContact(_ context.Context, s *session.Session, text string) Reply {
	phone := parse.ExtractPhone(text)
	if len(phone) < 8 {
		return say("Sorry, I didn't catch the full number. Could you say your contact number again?")
	}
	s.Verification.NewContact = phone
	s.Verification.Step = stepNewConfirmContact
	return say(fmt.Sprintf("Just to confirm, is %s your contact number? Please say yes or no.", parse.PhoneForSpeech(phone)))
}

func (f *VerificationFlow) newConfirmContact(_ context.Context, s *session.Session, text string) Reply {
	v := &s.Verification
	switch {
	case isYes(text):
		v.Step = stepNewAskInsurance
		return say("Do you have private health insurance? If so, which provider? Otherwise just say no.")
	case isNo(text):
		v.NewContact = ""
		v.Step = stepNewAskContact
		return say("No problem. What's the correct contact number?")
	}
	return say(fmt.Sprintf("Just to confirm, is %s your contact number? Please say yes or no.", parse.PhoneForSpeech(v.NewContact)))
}

func (f *VerificationFlow) newAskInsurance(ctx context.Context, s *session.Session, text string) Reply {
	v := &s.Verification
	insurance := strings.TrimSpace(text)
	if isNo(text) || strings.Contains(strings.ToLower(text), "none") {
		insurance = ""
	}

	res := f.verify.CreatePatient(ctx, executors.NewPatient{
		FirstName:     v.NewFirstName,
		LastName:      v.NewLastName,
		DateOfBirth:   v.NewDOB,
		ContactNumber: v.NewContact,
		InsuranceInfo: insurance,
	})
	if !res.Is(executors.StatusCreated) {
		resume, input := v.Resume, v.ResumeInput
		s.Verification = session.VerificationState{Step: stepAskNewOrExisting, Resume: resume, ResumeInput: input}
		return say(verificationCreationFailed)
	}
	return f.finish(s, res.Patient(), fmt.Sprintf("Your account has been created successfully, %s!", res.String("first_name")))
}

// finish marks the session verified and tells the router which flow to resume.
func (f *VerificationFlow) finish(s *session.Session, p *models.Patient, lead string) Reply {
	resume, input := s.Verification.Resume, s.Verification.ResumeInput
	s.Verify(p)
	s.EndFlow()
	if resume == "" {
		return done(lead + " How can I help you today?")
	}
	return Reply{Response: lead, resume: resume, resumeInput: input}
}
