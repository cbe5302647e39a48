package models

import "time"

// OrderStatus tracks a patient product order from placement to pickup
type OrderStatus string

const (
	OrderPlaced    OrderStatus = "placed"
	OrderReady     OrderStatus = "ready"
	OrderDelivered OrderStatus = "delivered"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	return s == OrderPlaced || s == OrderReady || s == OrderDelivered
}

// Order is a product ordered for a patient, usually from a supplier lab
type Order struct {
	OrderID       uint        `gorm:"primaryKey;column:order_id" json:"orderId"`
	PatientID     uint        `gorm:"index;not null" json:"patientId"`
	FirstName     string      `gorm:"size:100" json:"firstName"`
	LastName      string      `gorm:"size:100;index" json:"lastName"`
	ContactNumber string      `gorm:"size:10" json:"contactNumber"`
	ProductName   string      `gorm:"size:200;not null" json:"productName"`
	OrderStatus   OrderStatus `gorm:"size:20;default:'placed';index" json:"orderStatus"`
	Notes         string      `gorm:"type:text" json:"notes,omitempty"`
	PlacedBy      string      `gorm:"size:100;default:'management'" json:"placedBy"`
	PlacedAt      time.Time   `gorm:"autoCreateTime" json:"placedAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`

	// Relations
	Patient *Patient `gorm:"foreignKey:PatientID;references:PatientID" json:"-"`
}

func (Order) TableName() string { return "patient_orders" }
