package flows

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"dental-receptionist-server/internal/executors"
	"dental-receptionist-server/internal/models"
	"dental-receptionist-server/internal/parse"
	"dental-receptionist-server/internal/session"
)

// resumeEnquiry is the verification resume target for GENERAL_ENQUIRY,
// which answers in one turn and has no flow of its own.
const resumeEnquiry = "general_enquiry"

// Router continues the active flow or classifies the turn and starts one.
type Router struct {
	ex         *executors.Set
	classifier Classifier
	clock      Clock
	log        *zap.Logger

	verification *VerificationFlow
	business     *BusinessFlow
	flows        map[string]flow
}

func NewRouter(ex *executors.Set, classifier Classifier, clock Clock, log *zap.Logger) *Router {
	if classifier == nil {
		classifier = KeywordClassifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	r := &Router{
		ex:           ex,
		classifier:   classifier,
		clock:        clock,
		log:          log.Named("router"),
		verification: NewVerificationFlow(ex.Verification),
		business:     NewBusinessFlow(ex.Business),
	}
	r.flows = map[string]flow{
		session.FlowBooking:      NewBookingFlow(ex.Appointments, clock),
		session.FlowUpdateCancel: NewUpdateCancelFlow(ex.Appointments, clock),
		session.FlowComplaint:    NewComplaintFlow(ex.Complaints, ex.Appointments, clock),
		session.FlowVerification: r.verification,
		session.FlowBusiness:     r.business,
	}
	return r
}

// Handle answers one user turn and records both sides in the session history.
func (r *Router) Handle(ctx context.Context, s *session.Session, text string) Reply {
	text = strings.TrimSpace(text)
	s.AddTurn(models.TranscriptUser, text, r.clock.now())

	reply := r.handle(ctx, s, text)

	s.AddTurn(models.TranscriptAssistant, reply.Response, r.clock.now())
	return reply
}

func (r *Router) handle(ctx context.Context, s *session.Session, text string) Reply {
	if text == "" {
		return say("Sorry, I didn't catch that. Could you say that again?")
	}

	if f, ok := r.flows[s.Flow]; ok {
		reply := f.Handle(ctx, s, text)
		if reply.resume != "" {
			return r.resume(ctx, s, reply)
		}
		return reply
	}

	c := r.classifier.Classify(ctx, text, s.Recent(4))
	r.log.Debug("classified turn", zap.String("session", s.ID), zap.String("intent", string(c.Intent)), zap.Float64("confidence", c.Confidence))
	return r.route(ctx, s, c.Intent, text)
}

// resume starts the flow that was waiting on verification.
func (r *Router) resume(ctx context.Context, s *session.Session, verified Reply) Reply {
	next := r.start(ctx, s, verified.resume, verified.resumeInput)
	next.Response = verified.Response + " " + next.Response
	return next
}

func (r *Router) route(ctx context.Context, s *session.Session, intent Intent, text string) Reply {
	who := s.Asker()
	info := r.ex.Information

	switch intent {
	case IntentAppointment:
		return r.start(ctx, s, session.FlowBooking, text)
	case IntentUpdateCancel:
		return r.start(ctx, s, session.FlowUpdateCancel, text)
	case IntentComplaint:
		return r.start(ctx, s, session.FlowComplaint, text)
	case IntentGeneralEnquiry:
		return r.start(ctx, s, resumeEnquiry, text)
	case IntentBusiness:
		return r.business.Start(ctx, s, text)
	case IntentInsurance:
		return done(info.Insurance(ctx, text, who).String("response"))
	case IntentWarranty:
		return done(info.Warranty(ctx, text, who).String("response"))
	case IntentBusinessInfo:
		return done(info.BusinessInfo(ctx, text, who).String("response"))
	}
	return done(info.AnswerDentalQuestion(ctx, text, who).String("response"))
}

// start runs a flow, sending unverified callers through verification first.
func (r *Router) start(ctx context.Context, s *session.Session, name, text string) Reply {
	if !s.Verified {
		return r.verification.Begin(ctx, s, name, text)
	}
	if name == resumeEnquiry {
		return r.enquiry(ctx, s, text)
	}
	f, ok := r.flows[name]
	if !ok {
		return done("How can I help you today?")
	}
	return f.Start(ctx, s, text)
}

// enquiry reads back the patient's orders or upcoming appointments.
func (r *Router) enquiry(ctx context.Context, s *session.Session, text string) Reply {
	t := strings.ToLower(text)
	if strings.Contains(t, "order") {
		res := r.ex.Business.OrdersForPatient(ctx, s.PatientID())
		if !res.Is(executors.StatusSuccess) {
			return done(lookupFailed)
		}
		orders, _ := res["orders"].([]executors.OrderView)
		if len(orders) == 0 {
			return done("I can't see any orders for you at the moment." + anythingElse)
		}
		parts := make([]string, len(orders))
		for i, o := range orders {
			parts[i] = fmt.Sprintf("your %s is %s", o.Product, o.Status)
		}
		return done("Here's what I have: " + strings.Join(parts, "; ") + "." + anythingElse)
	}

	if strings.Contains(t, "history") || strings.Contains(t, "past") || strings.Contains(t, "last") {
		res := r.ex.Appointments.History(ctx, s.PatientID(), 5)
		if !res.Is(executors.StatusSuccess) {
			return done(lookupFailed)
		}
		appts := res.Summaries()
		if len(appts) == 0 {
			return done("I can't see any past treatments on your record." + anythingElse)
		}
		parts := make([]string, len(appts))
		for i, a := range appts {
			parts[i] = fmt.Sprintf("%s on %s with %s", a.Treatment, parse.DateForSpeech(a.Date), a.Dentist)
		}
		return done("Your recent treatments were: " + strings.Join(parts, "; ") + "." + anythingElse)
	}

	res := r.ex.Appointments.Upcoming(ctx, s.PatientID())
	if !res.Is(executors.StatusSuccess) {
		return done(lookupFailed)
	}
	appts := res.Summaries()
	if len(appts) == 0 {
		return done("You don't have any upcoming appointments. Would you like to book one?")
	}
	parts := make([]string, len(appts))
	for i, a := range appts {
		parts[i] = "your " + describeAppointment(a)
	}
	return done("You have " + strings.Join(parts, "; ") + "." + anythingElse)
}
