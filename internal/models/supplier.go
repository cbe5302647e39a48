package models

import "time"

// Supplier is a known lab or vendor that calls the clinic
type Supplier struct {
	SupplierID    uint      `gorm:"primaryKey;column:supplier_id" json:"supplierId"`
	CompanyName   string    `gorm:"size:200;uniqueIndex;not null" json:"companyName"`
	Specialty     string    `gorm:"size:200" json:"specialty"`
	ContactNumber string    `gorm:"size:10" json:"contactNumber,omitempty"`
	Email         string    `gorm:"size:200" json:"email,omitempty"`
	IsActive      bool      `gorm:"default:true" json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (Supplier) TableName() string { return "suppliers" }

// Business call purposes
const (
	PurposeOrderReady = "order_ready"
	PurposeInvoice    = "invoice_billing"
	PurposePromotion  = "promotion_partnership"
	PurposeGeneral    = "general_business"
)

// BusinessLog is an append-only record of a call from a business caller
type BusinessLog struct {
	LogID         uint      `gorm:"primaryKey;column:log_id" json:"logId"`
	CallerName    string    `gorm:"size:200" json:"callerName"`
	CompanyName   string    `gorm:"size:200;index" json:"companyName"`
	ContactNumber string    `gorm:"size:10" json:"contactNumber"`
	Purpose       string    `gorm:"size:100;index" json:"purpose"`
	FullCallNotes string    `gorm:"type:text" json:"fullCallNotes"`
	LoggedAt      time.Time `gorm:"autoCreateTime" json:"loggedAt"`
}

func (BusinessLog) TableName() string { return "business_logs" }
