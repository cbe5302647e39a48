package models

import (
	"strings"
	"time"
)

// Patient is a clinic patient. Rows are created on registration and never deleted.
type Patient struct {
	PatientID     uint      `gorm:"primaryKey;column:patient_id" json:"patientId"`
	FirstName     string    `gorm:"size:100;not null" json:"firstName"`
	LastName      string    `gorm:"size:100;not null;index" json:"lastName"`
	DateOfBirth   string    `gorm:"size:10;not null" json:"dateOfBirth"` // DD-MM-YYYY
	ContactNumber string    `gorm:"size:10" json:"contactNumber"`
	InsuranceInfo string    `gorm:"size:255" json:"insuranceInfo,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (Patient) TableName() string { return "patients" }

// FullName joins the first and last names.
func (p Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}
