package models

import (
	"time"

	"gorm.io/datatypes"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
)

// Valid reports whether s is a known appointment status.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Appointment is a booked visit. Patient details are copied onto the row so the
// portal can list appointments without a join. Cancelling only flips the status.
type Appointment struct {
	AppointmentID      uint              `gorm:"primaryKey;column:appointment_id" json:"appointmentId"`
	PatientID          uint              `gorm:"index;not null" json:"patientId"`
	FirstName          string            `gorm:"size:100" json:"firstName"`
	LastName           string            `gorm:"size:100" json:"lastName"`
	DateOfBirth        string            `gorm:"size:10" json:"dateOfBirth"`
	ContactNumber      string            `gorm:"size:10" json:"contactNumber"`
	PreferredTreatment string            `gorm:"size:100" json:"preferredTreatment"`
	PreferredDate      string            `gorm:"size:10;index:idx_appointment_slot" json:"preferredDate"` // YYYY-MM-DD
	PreferredTime      string            `gorm:"size:5;index:idx_appointment_slot" json:"preferredTime"`  // HH:MM
	PreferredDentist   string            `gorm:"size:100;index:idx_appointment_slot" json:"preferredDentist"`
	Status             AppointmentStatus `gorm:"size:20;default:'confirmed'" json:"status"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`

	// Relations
	Patient *Patient `gorm:"foreignKey:PatientID;references:PatientID" json:"-"`
}

func (Appointment) TableName() string { return "appointments" }

// AppointmentUpdate records which columns changed on each update
type AppointmentUpdate struct {
	UpdateID      uint              `gorm:"primaryKey;column:update_id" json:"updateId"`
	AppointmentID uint              `gorm:"index;not null" json:"appointmentId"`
	UpdatedFields datatypes.JSONMap `json:"updatedFields"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

func (AppointmentUpdate) TableName() string { return "appointment_updates" }

// Cancellation records why an appointment was cancelled
type Cancellation struct {
	CancellationID uint      `gorm:"primaryKey;column:cancellation_id" json:"cancellationId"`
	AppointmentID  uint      `gorm:"index;not null" json:"appointmentId"`
	Reason         string    `gorm:"size:255" json:"reason"`
	CancelledAt    time.Time `gorm:"autoCreateTime" json:"cancelledAt"`
}

func (Cancellation) TableName() string { return "cancellations" }
