package flows

import (
	"context"
	"regexp"
	"strings"

	"dental-receptionist-server/internal/executors"
	"dental-receptionist-server/internal/models"
	"dental-receptionist-server/internal/parse"
	"dental-receptionist-server/internal/session"
)

var callerNameRe = regexp.MustCompile(`(?i)\b(?:my name is|this is|it's|i'm|i am)\s+([a-z]+(?:\s+[a-z]+)?)(?:\s+(?:from|at|with|calling)\b|[,.]|$)`)

var notNames = map[string]bool{"calling": true, "ringing": true, "phoning": true, "just": true, "here": true, "from": true, "with": true}

// extractCallerName finds "this is Tom from ..." style introductions.
func extractCallerName(text string) string {
	m := callerNameRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	first := strings.ToLower(strings.Fields(m[1])[0])
	if notNames[first] {
		return ""
	}
	return parse.TitleCase(m[1])
}

var businessReplies = map[string]string{
	models.PurposeOrderReady: "Thank you for letting us know the order is ready. I've logged your call and our team will arrange collection.",
	models.PurposeInvoice:    "Thank you. I've logged your billing enquiry and our accounts team will get back to you.",
	models.PurposePromotion:  "Thanks for reaching out. I've passed your details to our practice manager, who will be in touch if we're interested.",
	models.PurposeGeneral:    "Thank you for calling. I've logged your message for our team.",
}

// BusinessFlow handles a supplier, lab or agent call in a single turn: it
// classifies the call, recognises known suppliers and logs it.
type BusinessFlow struct {
	business *executors.BusinessExecutor
}

func NewBusinessFlow(business *executors.BusinessExecutor) *BusinessFlow {
	return &BusinessFlow{business: business}
}

func (f *BusinessFlow) Start(ctx context.Context, s *session.Session, text string) Reply {
	s.EndFlow()
	sup := &s.Supplier
	if name := extractCallerName(text); name != "" {
		sup.CallerName = name
	}
	if res := f.business.CheckSupplier(ctx, text); res.Is(executors.StatusFound) {
		sup.CompanyName = res.String("company_name")
		sup.Known = true
	}
	if phone := parse.ExtractPhone(text); len(phone) >= 8 {
		sup.ContactNumber = phone
	}

	purpose := executors.ClassifyCall(text)
	res := f.business.LogCall(ctx, executors.BusinessCall{
		CallerName:    sup.CallerName,
		CompanyName:   sup.CompanyName,
		ContactNumber: sup.ContactNumber,
		Purpose:       purpose,
		Notes:         strings.TrimSpace(text),
	})
	if !res.Is(executors.StatusLogged) {
		return done(res.Message())
	}
	return done(businessReplies[purpose] + anythingElse)
}

// Handle only runs if a session was left in the business flow; every
// business turn is logged on its own.
func (f *BusinessFlow) Handle(ctx context.Context, s *session.Session, text string) Reply {
	return f.Start(ctx, s, text)
}
