package models

// Dentist is a practitioner that appointments can be booked with
type Dentist struct {
	DentistID   uint   `gorm:"primaryKey;column:dentist_id" json:"dentistId"`
	DentistName string `gorm:"size:100;uniqueIndex;not null" json:"dentistName"`
	Specialty   string `gorm:"size:100" json:"specialty"`
	IsActive    bool   `gorm:"default:true" json:"isActive"`
}

func (Dentist) TableName() string { return "dentists" }
