package executors

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"dental-receptionist-server/internal/events"
	"dental-receptionist-server/internal/models"
	"dental-receptionist-server/internal/parse"
)

// ComplaintRequest is a complaint as captured on a call. Treatment
// complaints carry the verified patient and the treatment details.
type ComplaintRequest struct {
	Category       string
	Text           string
	PatientID      *uint
	AppointmentID  *uint
	PatientName    string
	ContactNumber  string
	DateOfBirth    string
	TreatmentName  string
	DentistName    string
	TreatmentDate  string
	TreatmentTime  string
	AdditionalInfo string
}

// ComplaintExecutor saves and searches complaints.
type ComplaintExecutor struct {
	base
}

func NewComplaintExecutor(d Deps) *ComplaintExecutor {
	return &ComplaintExecutor{base: newBase(d, "complaints")}
}

// NormalizeCategory maps anything other than "treatment" onto "general".
func NormalizeCategory(category string) models.ComplaintCategory {
	if strings.EqualFold(strings.TrimSpace(category), string(models.ComplaintTreatment)) {
		return models.ComplaintTreatment
	}
	return models.ComplaintGeneral
}

// Save records a complaint for the team to review.
func (e *ComplaintExecutor) Save(ctx context.Context, req ComplaintRequest) Result {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return statusResult(StatusMissingInfo, "Please describe the complaint.")
	}

	c := models.Complaint{
		ComplaintCategory: NormalizeCategory(req.Category),
		PatientName:       parse.TitleCase(req.PatientName),
		ContactNumber:     parse.NormalizePhone(req.ContactNumber),
		PatientID:         req.PatientID,
		AppointmentID:     req.AppointmentID,
		DateOfBirth:       req.DateOfBirth,
		TreatmentName:     strings.TrimSpace(req.TreatmentName),
		DentistName:       strings.TrimSpace(req.DentistName),
		TreatmentDate:     req.TreatmentDate,
		TreatmentTime:     req.TreatmentTime,
		AdditionalInfo:    strings.TrimSpace(req.AdditionalInfo),
		ComplaintText:     text,
		Status:            models.ComplaintPending,
	}
	if c.TreatmentDate != "" {
		c.TreatmentDate = parse.Date(c.TreatmentDate, e.now())
	}
	if c.TreatmentTime != "" {
		c.TreatmentTime = parse.Time(c.TreatmentTime)
	}

	if err := e.db.WithContext(ctx).Create(&c).Error; err != nil {
		return e.dbFailure("save complaint", err)
	}

	e.emit(ctx, events.ComplaintFiled, map[string]any{
		"complaint_id": c.ComplaintID,
		"category":     string(c.ComplaintCategory),
	})

	msg := "Your complaint has been recorded and our team will review it."
	if c.ContactNumber != "" {
		msg = fmt.Sprintf("Your complaint has been recorded. Our team will review it and contact you on %s.",
			parse.PhoneForSpeech(c.ContactNumber))
	}
	return Result{"status": StatusSaved, "message": msg}
}

// ComplaintView is a complaint as listed in the portal.
type ComplaintView struct {
	ComplaintID   uint   `json:"complaintId"`
	Category      string `json:"category"`
	PatientName   string `json:"patientName"`
	ContactNumber string `json:"contactNumber"`
	ComplaintText string `json:"complaintText"`
	TreatmentName string `json:"treatmentName,omitempty"`
	DentistName   string `json:"dentistName,omitempty"`
	TreatmentDate string `json:"treatmentDate,omitempty"`
	Status        string `json:"status"`
	CreatedAt     string `json:"createdAt"`
}

// ListByName finds complaints whose patient name contains the search text.
func (e *ComplaintExecutor) ListByName(ctx context.Context, patientName string) Result {
	var rows []models.Complaint
	err := e.db.WithContext(ctx).
		Where("LOWER(patient_name) LIKE ?", "%"+strings.ToLower(strings.TrimSpace(patientName))+"%").
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return e.dbFailure("list complaints", err)
	}
	views := lo.Map(rows, func(c models.Complaint, _ int) ComplaintView {
		return ComplaintView{
			ComplaintID:   c.ComplaintID,
			Category:      string(c.ComplaintCategory),
			PatientName:   c.PatientName,
			ContactNumber: c.ContactNumber,
			ComplaintText: c.ComplaintText,
			TreatmentName: c.TreatmentName,
			DentistName:   c.DentistName,
			TreatmentDate: c.TreatmentDate,
			Status:        string(c.Status),
			CreatedAt:     c.CreatedAt.Format("2006-01-02 15:04"),
		}
	})
	return Result{"status": StatusSuccess, "complaints": views, "count": len(views)}
}
