package executors

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"dental-receptionist-server/internal/events"
	"dental-receptionist-server/internal/models"
	"dental-receptionist-server/internal/parse"
)

// NewPatient is a registration captured over the phone.
type NewPatient struct {
	FirstName     string
	LastName      string
	DateOfBirth   string
	ContactNumber string
	InsuranceInfo string
}

// VerificationExecutor identifies existing patients and registers new ones.
type VerificationExecutor struct {
	base
}

func NewVerificationExecutor(d Deps) *VerificationExecutor {
	return &VerificationExecutor{base: newBase(d, "verification")}
}

func patientResult(status string, p models.Patient) Result {
	return Result{
		"status":         status,
		"patient_id":     p.PatientID,
		"first_name":     parse.TitleCase(p.FirstName),
		"last_name":      parse.TitleCase(p.LastName),
		"date_of_birth":  p.DateOfBirth,
		"contact_number": p.ContactNumber,
		"insurance_info": p.InsuranceInfo,
	}
}

// Patient rebuilds the patient carried by a VERIFIED, CREATED or FOUND result.
func (r Result) Patient() *models.Patient {
	id, ok := r["patient_id"].(uint)
	if !ok {
		return nil
	}
	return &models.Patient{
		PatientID:     id,
		FirstName:     r.String("first_name"),
		LastName:      r.String("last_name"),
		DateOfBirth:   r.String("date_of_birth"),
		ContactNumber: r.String("contact_number"),
		InsuranceInfo: r.String("insurance_info"),
	}
}

// VerifyByLastNameDOB looks a patient up by last name and date of birth.
// Several matches ask the caller for their contact number.
func (e *VerificationExecutor) VerifyByLastNameDOB(ctx context.Context, lastName, dob string) Result {
	last := parse.NormalizeName(lastName)
	birth := parse.DOBToDBFormat(dob)
	if last == "" || birth == "" {
		return statusResult(StatusMissingInfo, "Last name and date of birth are required.")
	}

	var rows []models.Patient
	err := e.db.WithContext(ctx).
		Where("LOWER(last_name) = ? AND date_of_birth = ?", last, birth).
		Limit(2).
		Find(&rows).Error
	if err != nil {
		return e.dbFailure("verify patient", err)
	}

	switch len(rows) {
	case 0:
		return statusResult(StatusNotFound, "No account found.")
	case 1:
		return patientResult(StatusVerified, rows[0])
	}
	return statusResult(StatusMultipleFound, "Multiple records found. Please provide contact number.")
}

// VerifyByContact narrows a multiple match with the contact number.
func (e *VerificationExecutor) VerifyByContact(ctx context.Context, lastName, dob, contact string) Result {
	last := parse.NormalizeName(lastName)
	birth := parse.DOBToDBFormat(dob)
	phone := parse.NormalizePhone(contact)
	if last == "" || birth == "" || phone == "" {
		return statusResult(StatusMissingInfo, "Last name, date of birth and contact number are required.")
	}

	var p models.Patient
	err := e.db.WithContext(ctx).
		Where("LOWER(last_name) = ? AND date_of_birth = ? AND contact_number = ?", last, birth, phone).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return statusResult(StatusNotFound, "Could not verify.")
	}
	if err != nil {
		return e.dbFailure("verify patient by contact", err)
	}
	return patientResult(StatusVerified, p)
}

// CreatePatient registers a new patient.
func (e *VerificationExecutor) CreatePatient(ctx context.Context, np NewPatient) Result {
	p := models.Patient{
		FirstName:     parse.TitleCase(strings.TrimSpace(np.FirstName)),
		LastName:      parse.TitleCase(strings.TrimSpace(np.LastName)),
		DateOfBirth:   parse.DOBToDBFormat(np.DateOfBirth),
		ContactNumber: parse.NormalizePhone(np.ContactNumber),
		InsuranceInfo: strings.TrimSpace(np.InsuranceInfo),
	}

	var missing []string
	if p.FirstName == "" {
		missing = append(missing, "first name")
	}
	if p.LastName == "" {
		missing = append(missing, "last name")
	}
	if p.DateOfBirth == "" {
		missing = append(missing, "date of birth")
	}
	if p.ContactNumber == "" {
		missing = append(missing, "contact number")
	}
	if len(missing) > 0 {
		return statusResult(StatusMissingInfo, "Missing details: "+strings.Join(missing, ", ")+".")
	}

	if err := e.db.WithContext(ctx).Create(&p).Error; err != nil {
		return e.dbFailure("create patient", err)
	}

	e.emit(ctx, events.PatientCreated, map[string]any{"patient_id": p.PatientID})
	res := patientResult(StatusCreated, p)
	res["message"] = "Account created. Patient verified and ready to book."
	return res
}

// PatientByID is an internal lookup used after verification.
func (e *VerificationExecutor) PatientByID(ctx context.Context, patientID uint) Result {
	var p models.Patient
	err := e.db.WithContext(ctx).First(&p, patientID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return statusResult(StatusNotFound, "Patient not found.")
	}
	if err != nil {
		return e.dbFailure("load patient", err)
	}
	return patientResult(StatusFound, p)
}
