package executors

import (
	"context"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

//go:embed rules/*.txt
var embeddedRules embed.FS

// Rules file names
const (
	BusinessRulesFile  = "business_rules.txt"
	InsuranceRulesFile = "insurance_warranty_rules.txt"
	KBRulesFile        = "kb_rules.txt"
)

// Answer sources
const (
	SourceBusinessRules  = "business_rules"
	SourceInsuranceRules = "insurance_rules"
	SourceWarrantyRules  = "warranty_rules"
	SourceKB             = "kb_rules"
	SourceOutOfScope     = "out_of_scope"
	SourceEmptyInput     = "empty_input"
)

// Answerer completes a single system + user prompt.
type Answerer interface {
	Answer(ctx context.Context, req AnswerRequest) (string, error)
}

// AnswerRequest is one constrained completion.
type AnswerRequest struct {
	System      string
	Question    string
	Temperature float32
	MaxTokens   int
	// JSON asks the model for a single JSON object.
	JSON bool
}

// OpenAIAnswerer answers with the chat completions API.
type OpenAIAnswerer struct {
	client *openai.Client
	model  string
}

func NewOpenAIAnswerer(apiKey, model string) *OpenAIAnswerer {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIAnswerer{client: openai.NewClient(apiKey), model: model}
}

func (a *OpenAIAnswerer) Answer(ctx context.Context, req AnswerRequest) (string, error) {
	creq := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Question},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSON {
		creq.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	resp, err := a.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return "", errors.Wrap(err, "chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Rules holds the text the information answers are restricted to.
type Rules struct {
	Business          string
	InsuranceWarranty string
	KB                string
}

// LoadRules reads the rules files from dir, falling back to the built-in
// copy for any file that is missing. An empty dir uses the built-in copy.
func LoadRules(dir string, log *zap.Logger) Rules {
	read := func(name string) string {
		if dir != "" {
			b, err := os.ReadFile(filepath.Join(dir, name))
			if err == nil {
				return string(b)
			}
			log.Warn("rules file unavailable, using built-in copy", zap.String("file", name), zap.Error(err))
		}
		b, err := embeddedRules.ReadFile("rules/" + name)
		if err != nil {
			return fmt.Sprintf("[Rules file not found: %s]", name)
		}
		return string(b)
	}
	return Rules{
		Business:          read(BusinessRulesFile),
		InsuranceWarranty: read(InsuranceRulesFile),
		KB:                read(KBRulesFile),
	}
}

// Asker is who is asking and what was said just before.
type Asker struct {
	FirstName string
	Recent    []string
}

// InformationExecutor answers clinic, insurance, warranty and dental
// questions strictly from the rules text.
type InformationExecutor struct {
	answerer Answerer
	rules    Rules
	log      *zap.Logger
}

func NewInformationExecutor(answerer Answerer, rules Rules, log *zap.Logger) *InformationExecutor {
	if log == nil {
		log = zap.NewNop()
	}
	return &InformationExecutor{answerer: answerer, rules: rules, log: log.Named("information")}
}

const notCoveredReply = "I'm sorry, I don't have that specific information right now. Please call us during business hours and our team will assist you."

const (
	insuranceReferral = "For more detailed information on this, I'd recommend speaking directly with your dentist or contacting your insurance provider, as they'll be able to give you the most accurate guidance."
	warrantyReferral  = "For more detailed information on this, I'd recommend speaking directly with your dentist who will be able to guide you better based on your specific situation."
)

func (e *InformationExecutor) ask(ctx context.Context, source, fallback string, req AnswerRequest) Result {
	if e.answerer == nil {
		return Result{"status": StatusError, "response": fallback, "source": source}
	}
	answer, err := e.answerer.Answer(ctx, req)
	if err != nil || answer == "" {
		e.log.Warn("information answer failed", zap.String("source", source), zap.Error(err))
		return Result{"status": StatusError, "response": fallback, "source": source}
	}
	return Result{"status": StatusSuccess, "response": answer, "source": source}
}

// BusinessInfo answers questions about hours, dentists, prices, payments and offers.
func (e *InformationExecutor) BusinessInfo(ctx context.Context, query string, who Asker) Result {
	system := fmt.Sprintf(`You are Sarah, a warm dental clinic receptionist on a phone call.
Answer using ONLY the business rules below. Never add information that is not in them.

BUSINESS RULES:
%s

Keep the answer to one to four short spoken sentences.
Use the caller's first name if one is given: %q.
Never mention internal ids.
If the rules do not cover the question, say: %q`, e.rules.Business, who.FirstName, notCoveredReply)

	return e.ask(ctx, SourceBusinessRules,
		"I'm sorry, I'm having trouble retrieving that information right now. Please call us during business hours and our team will help you.",
		AnswerRequest{System: system, Question: query, Temperature: 0.3, MaxTokens: 300})
}

// Insurance answers from the [INSURANCE] section only.
func (e *InformationExecutor) Insurance(ctx context.Context, query string, who Asker) Result {
	system := fmt.Sprintf(`You are Sarah, a warm dental clinic receptionist on a phone call.
Answer the insurance question using ONLY the [INSURANCE] section below.

INSURANCE AND WARRANTY RULES:
%s

If the caller asks for anything more specific than what is written, such as rebate amounts,
eligibility under their plan or coverage percentages, say exactly: %q
Keep the answer short and conversational. Use the caller's first name if given: %q.`,
		e.rules.InsuranceWarranty, insuranceReferral, who.FirstName)

	return e.ask(ctx, SourceInsuranceRules,
		"I'm sorry, I'm having difficulty retrieving that information. I'd recommend speaking with your dentist directly for insurance guidance.",
		AnswerRequest{System: system, Question: query, Temperature: 0.2, MaxTokens: 250})
}

// Warranty answers from the [WARRANTY] section only.
func (e *InformationExecutor) Warranty(ctx context.Context, query string, who Asker) Result {
	system := fmt.Sprintf(`You are Sarah, a warm dental clinic receptionist on a phone call.
Answer the warranty question using ONLY the [WARRANTY] section below.

INSURANCE AND WARRANTY RULES:
%s

If the caller asks whether their exact situation qualifies, the warranty period of a specific
treatment not listed, or how to escalate a claim, say exactly: %q
Keep the answer short and conversational. Use the caller's first name if given: %q.`,
		e.rules.InsuranceWarranty, warrantyReferral, who.FirstName)

	return e.ask(ctx, SourceWarrantyRules,
		"I'm sorry, I'm having difficulty retrieving that information. I'd recommend speaking with your dentist directly for warranty guidance.",
		AnswerRequest{System: system, Question: query, Temperature: 0.2, MaxTokens: 250})
}

var scopeGuards = []struct {
	keywords []string
	reply    string
}{
	{
		[]string{"insurance", "medibank", "bupa", "hcf", "nib", "cbhs", "hbf", "ahm", "health fund",
			"health insurance", "rebate", "claim", "hicaps", "cover", "coverage", "covered"},
		"For insurance-related questions, I can share some general information. Would you like me to do that, or shall I continue with your other question?",
	},
	{
		[]string{"warranty", "guarantee", "warranted"},
		"For warranty-related questions, I can share some general information about our warranty policy. Would you like that?",
	},
	{
		[]string{"medication", "medicine", "drug", "tablet", "antibiotic", "painkiller", "ibuprofen",
			"paracetamol", "prescription", "dosage", "dose", "take how many"},
		"I'm sorry, I'm not able to provide medication advice. For specific medication recommendations, please consult your dentist directly. They'll be able to guide you best.",
	},
	{
		[]string{"do i have", "is this", "am i", "diagnose", "diagnosis", "what disease", "what condition",
			"what infection", "what is wrong with", "should i be worried about"},
		"I'm sorry, I'm not able to provide a diagnosis. For any specific concerns about your dental health, I'd strongly recommend booking an appointment with one of our dentists so they can properly assess and advise you.",
	},
}

// OutOfScope reports whether a dental question must be redirected instead
// of answered, and the redirect to speak.
func OutOfScope(query string) (bool, string) {
	q := strings.ToLower(query)
	for _, g := range scopeGuards {
		for _, kw := range g.keywords {
			if strings.Contains(q, kw) {
				return true, g.reply
			}
		}
	}
	return false, ""
}

// AnswerDentalQuestion answers treatment and dental health questions from
// the knowledge base. Insurance, warranty, medication and diagnosis
// questions are redirected before the model is asked.
func (e *InformationExecutor) AnswerDentalQuestion(ctx context.Context, query string, who Asker) Result {
	if strings.TrimSpace(query) == "" {
		return Result{
			"status":   StatusSuccess,
			"response": "Could you please repeat your question? I want to make sure I give you the right information.",
			"source":   SourceEmptyInput,
		}
	}
	if out, reply := OutOfScope(query); out {
		return Result{"status": StatusSuccess, "response": reply, "source": SourceOutOfScope}
	}

	recent := who.Recent
	if len(recent) > 6 {
		recent = recent[len(recent)-6:]
	}
	convo := "(none)"
	if len(recent) > 0 {
		convo = strings.Join(recent, "\n")
	}

	system := fmt.Sprintf(`You are Sarah, a warm dental clinic receptionist on a phone call.
Answer using ONLY the knowledge base below. Do not use any outside knowledge.

KNOWLEDGE BASE:
%s

Rules:
1. If the question is not covered, say: "I'm sorry, I don't have specific information on that. I'd recommend consulting your dentist directly for the most accurate advice."
2. Never name medications or doses, and never give a diagnosis.
3. Never answer insurance or warranty questions.
4. Keep the answer to two to five short spoken sentences.
5. Use the caller's first name if given: %q.
6. Answer follow-up questions in the context of the earlier turns.

RECENT CONVERSATION:
%s`, e.rules.KB, who.FirstName, convo)

	return e.ask(ctx, SourceKB,
		"I'm sorry, I'm having trouble finding that information right now. I'd recommend asking your dentist at your next visit.",
		AnswerRequest{System: system, Question: query, Temperature: 0.3, MaxTokens: 350})
}
