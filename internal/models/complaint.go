package models

import "time"

type ComplaintCategory string

const (
	ComplaintGeneral   ComplaintCategory = "general"
	ComplaintTreatment ComplaintCategory = "treatment"
)

type ComplaintStatus string

const (
	ComplaintPending  ComplaintStatus = "pending"
	ComplaintReviewed ComplaintStatus = "reviewed"
	ComplaintResolved ComplaintStatus = "resolved"
)

// Valid reports whether s is a known complaint status.
func (s ComplaintStatus) Valid() bool {
	return s == ComplaintPending || s == ComplaintReviewed || s == ComplaintResolved
}

// Complaint is a caller complaint, optionally tied to a treatment they received
type Complaint struct {
	ComplaintID       uint              `gorm:"primaryKey;column:complaint_id" json:"complaintId"`
	ComplaintCategory ComplaintCategory `gorm:"size:20;index" json:"complaintCategory"`
	PatientName       string            `gorm:"size:200" json:"patientName"`
	ContactNumber     string            `gorm:"size:10" json:"contactNumber"`
	PatientID         *uint             `gorm:"index" json:"patientId,omitempty"`
	AppointmentID     *uint             `json:"appointmentId,omitempty"`
	DateOfBirth       string            `gorm:"size:10" json:"dateOfBirth,omitempty"`
	TreatmentName     string            `gorm:"size:100" json:"treatmentName,omitempty"`
	DentistName       string            `gorm:"size:100" json:"dentistName,omitempty"`
	TreatmentDate     string            `gorm:"size:10" json:"treatmentDate,omitempty"`
	TreatmentTime     string            `gorm:"size:5" json:"treatmentTime,omitempty"`
	AdditionalInfo    string            `gorm:"type:text" json:"additionalInfo,omitempty"`
	ComplaintText     string            `gorm:"type:text;not null" json:"complaintText"`
	Status            ComplaintStatus   `gorm:"size:20;default:'pending';index" json:"status"`
	CreatedAt         time.Time         `json:"createdAt"`
}

func (Complaint) TableName() string { return "complaints" }
