package executors

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dental-receptionist-server/internal/events"
	"dental-receptionist-server/internal/models"
)

type fakeAnswerer struct {
	answer   string
	err      error
	requests []AnswerRequest
}

func (f *fakeAnswerer) Answer(_ context.Context, req AnswerRequest) (string, error) {
	f.requests = append(f.requests, req)
	return f.answer, f.err
}

func TestAnswerDentalQuestion(t *testing.T) {
	ctx := context.Background()
	fake := &fakeAnswerer{answer: "Whitening usually lasts one to three years."}
	ex := NewInformationExecutor(fake, LoadRules("", zap.NewNop()), nil)

	res := ex.AnswerDentalQuestion(ctx, "How long does whitening last?", Asker{FirstName: "Jane", Recent: []string{"user: hi"}})
	require.Equal(t, StatusSuccess, res.Status())
	assert.Equal(t, SourceKB, res["source"])
	assert.Equal(t, fake.answer, res["response"])
	require.Len(t, fake.requests, 1)
	assert.Contains(t, fake.requests[0].System, "[TEETH WHITENING]")
	assert.Contains(t, fake.requests[0].System, `"Jane"`)
	assert.Contains(t, fake.requests[0].System, "user: hi")
}

func TestDentalQuestionScopeGuard(t *testing.T) {
	fake := &fakeAnswerer{answer: "unused"}
	ex := NewInformationExecutor(fake, LoadRules("", zap.NewNop()), nil)

	for _, q := range []string{
		"Can I take ibuprofen after an extraction?",
		"Does my health fund cover a crown?",
		"Is there a warranty on veneers?",
		"Do I have gum disease?",
	} {
		res := ex.AnswerDentalQuestion(context.Background(), q, Asker{})
		assert.Equal(t, SourceOutOfScope, res["source"], q)
	}
	assert.Empty(t, fake.requests)

	res := ex.AnswerDentalQuestion(context.Background(), "  ", Asker{})
	assert.Equal(t, SourceEmptyInput, res["source"])
}

func TestInformationFallsBackOnError(t *testing.T) {
	fake := &fakeAnswerer{err: errors.New("rate limited")}
	ex := NewInformationExecutor(fake, LoadRules("", zap.NewNop()), nil)

	res := ex.Insurance(context.Background(), "Do you take Bupa?", Asker{})
	assert.Equal(t, StatusError, res.Status())
	assert.Contains(t, res["response"], "insurance guidance")
	assert.Contains(t, fake.requests[0].System, "[INSURANCE]")

	res = ex.Warranty(context.Background(), "How long is the crown warranty?", Asker{})
	assert.Contains(t, res["response"], "warranty guidance")

	res = NewInformationExecutor(nil, Rules{}, nil).BusinessInfo(context.Background(), "When are you open?", Asker{})
	assert.Equal(t, StatusError, res.Status())
}

func TestLoadRulesPrefersDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, BusinessRulesFile), []byte("Open on Sundays"), 0o644))

	rules := LoadRules(dir, zap.NewNop())
	assert.Equal(t, "Open on Sundays", rules.Business)
	assert.Contains(t, rules.KB, "[FILLINGS]")
	assert.Contains(t, rules.InsuranceWarranty, "[WARRANTY]")
}

func TestComplaints(t *testing.T) {
	ctx := context.Background()
	deps, mem := testDeps(t)
	ex := NewComplaintExecutor(deps)

	assert.Equal(t, StatusMissingInfo, ex.Save(ctx, ComplaintRequest{Text: "  "}).Status())

	res := ex.Save(ctx, ComplaintRequest{Category: "General", Text: "Waited 40 minutes", PatientName: "jane doe", ContactNumber: "0412 345 678"})
	require.Equal(t, StatusSaved, res.Status())
	assert.Contains(t, res.Message(), "0 4 1 2 3 4 5 6 7 8")

	pid := uint(7)
	res = ex.Save(ctx, ComplaintRequest{
		Category:      "treatment",
		Text:          "Filling fell out",
		PatientID:     &pid,
		PatientName:   "Jane Doe",
		TreatmentName: "Dental Fillings",
		DentistName:   "Dr. Emily Carter",
		TreatmentDate: "2026-02-10",
		TreatmentTime: "2pm",
	})
	require.Equal(t, StatusSaved, res.Status())

	var saved models.Complaint
	require.NoError(t, deps.DB.Where("complaint_category = ?", models.ComplaintTreatment).First(&saved).Error)
	assert.Equal(t, "14:00", saved.TreatmentTime)
	assert.Equal(t, models.ComplaintPending, saved.Status)

	list := ex.ListByName(ctx, "DOE")
	assert.Equal(t, 2, list["count"])
	assert.Equal(t, 0, ex.ListByName(ctx, "nobody")["count"])
	assert.Equal(t, []string{events.ComplaintFiled, events.ComplaintFiled}, mem.Types())
}
