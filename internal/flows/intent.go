package flows

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"dental-receptionist-server/internal/executors"
)

// Intent is what the caller wants from this turn.
type Intent string

// Intents
const (
	IntentAppointment    Intent = "APPOINTMENT"
	IntentUpdateCancel   Intent = "UPDATE_CANCEL"
	IntentGeneralEnquiry Intent = "GENERAL_ENQUIRY"
	IntentComplaint      Intent = "COMPLAINT"
	IntentBusiness       Intent = "BUSINESS"
	IntentKB             Intent = "KB"
	IntentInsurance      Intent = "INSURANCE"
	IntentWarranty       Intent = "WARRANTY"
	IntentBusinessInfo   Intent = "BUSINESS_INFO"
)

var intents = map[Intent]bool{
	IntentAppointment: true, IntentUpdateCancel: true, IntentGeneralEnquiry: true,
	IntentComplaint: true, IntentBusiness: true, IntentKB: true,
	IntentInsurance: true, IntentWarranty: true, IntentBusinessInfo: true,
}

// Classification is the classifier's answer.
type Classification struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Classifier maps a user turn to an intent.
type Classifier interface {
	Classify(ctx context.Context, text string, recent []string) Classification
}

// Keyword rules are tried in order.
var keywordIntents = []struct {
	intent Intent
	words  []string
}{
	{IntentComplaint, []string{"complaint", "complain", "not happy", "unhappy", "disappointed", "terrible", "rude", "unacceptable"}},
	{IntentBusiness, []string{"supplier", "calling from", "on behalf of", "invoice", "sales rep", "representative", "our company", "the lab", "order is ready", "order for", "partnership"}},
	{IntentUpdateCancel, []string{"cancel", "reschedule", "change my appointment", "move my appointment", "update my appointment", "change the time", "change the date"}},
	{IntentGeneralEnquiry, []string{"my appointments", "my next appointment", "when is my", "upcoming", "my order", "order status", "treatment history", "past appointments"}},
	{IntentInsurance, []string{"insurance", "health fund", "bupa", "medibank", "hcf", "nib", "rebate", "covered", "claim"}},
	{IntentWarranty, []string{"warranty", "guarantee", "guaranteed"}},
	{IntentAppointment, []string{"book", "appointment", "schedule", "see a dentist", "see the dentist", "check-up", "checkup", "available"}},
	{IntentBusinessInfo, []string{"opening hours", "open", "close", "hours", "address", "located", "location", "parking", "price", "cost", "how much", "payment", "pay", "afterpay"}},
}

// KeywordClassifier matches keyword lists and falls back to KB.
type KeywordClassifier struct{}

func (KeywordClassifier) Classify(_ context.Context, text string, _ []string) Classification {
	t := strings.ToLower(text)
	for _, rule := range keywordIntents {
		for _, w := range rule.words {
			if strings.Contains(t, w) {
				return Classification{Intent: rule.intent, Confidence: 0.8}
			}
		}
	}
	return Classification{Intent: IntentKB, Confidence: 0.5}
}

const intentPrompt = `You classify what a caller to a dental clinic wants. Reply with one JSON object:
{"intent": "<INTENT>", "confidence": <0.0 to 1.0>}

Intents:
APPOINTMENT - book a new appointment
UPDATE_CANCEL - change or cancel an existing appointment
GENERAL_ENQUIRY - ask about their own appointments, orders or treatment history
COMPLAINT - complain about the clinic, staff or a treatment
BUSINESS - a supplier, lab or sales call
KB - a general dental question
INSURANCE - insurance, health fund cover or rebates
WARRANTY - warranties or guarantees on treatments
BUSINESS_INFO - opening hours, location, prices, payment

Recent conversation:
%s`

// LLMClassifier asks a chat model in JSON mode and falls back to keywords
// when the call fails or the answer is unusable.
type LLMClassifier struct {
	answerer executors.Answerer
	fallback Classifier
	log      *zap.Logger
}

func NewLLMClassifier(answerer executors.Answerer, log *zap.Logger) *LLMClassifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &LLMClassifier{answerer: answerer, fallback: KeywordClassifier{}, log: log.Named("intent")}
}

func (c *LLMClassifier) Classify(ctx context.Context, text string, recent []string) Classification {
	if len(recent) > 4 {
		recent = recent[len(recent)-4:]
	}
	convo := strings.Join(recent, "\n")
	if convo == "" {
		convo = "(none)"
	}

	got, err := c.classify(ctx, text, convo)
	if err != nil {
		c.log.Warn("intent classification fell back to keywords", zap.Error(err))
		return c.fallback.Classify(ctx, text, recent)
	}
	return got
}

func (c *LLMClassifier) classify(ctx context.Context, text, convo string) (Classification, error) {
	if c.answerer == nil {
		return Classification{}, errors.New("no answerer configured")
	}
	raw, err := c.answerer.Answer(ctx, executors.AnswerRequest{
		System:      strings.Replace(intentPrompt, "%s", convo, 1),
		Question:    text,
		Temperature: 0.1,
		MaxTokens:   100,
		JSON:        true,
	})
	if err != nil {
		return Classification{}, err
	}

	var out Classification
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return Classification{}, errors.Wrap(err, "decode intent")
	}
	out.Intent = Intent(strings.ToUpper(strings.TrimSpace(string(out.Intent))))
	if !intents[out.Intent] {
		return Classification{}, errors.Errorf("unknown intent %q", out.Intent)
	}
	return out, nil
}
