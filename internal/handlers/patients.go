package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"dental-receptionist-server/internal/models"
	"dental-receptionist-server/internal/utils"
)

// PatientHandler serves the patient list and detail pages.
type PatientHandler struct {
	DB  *gorm.DB
	Log *zap.Logger
}

func NewPatientHandler(db *gorm.DB, log *zap.Logger) *PatientHandler {
	return &PatientHandler{DB: db, Log: log.Named("patients")}
}

// ListPatients searches by first name, last name or contact number.
func (h *PatientHandler) ListPatients(c *gin.Context) {
	q := h.DB.WithContext(c.Request.Context()).Model(&models.Patient{})
	if search := c.Query("search"); search != "" {
		p := likePattern(search)
		q = q.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR contact_number LIKE ?", p, p, p)
	}

	var rows []models.Patient
	if err := q.Order("last_name, first_name").Limit(listLimit).Find(&rows).Error; err != nil {
		h.Log.Error("list patients", zap.Error(err))
		utils.InternalServerError(c, "Failed to fetch patients")
		return
	}
	utils.List(c, "Patients fetched successfully", rows, len(rows), listLimit)
}

// PatientDetail is a patient with everything the clinic holds for them.
type PatientDetail struct {
	Patient      models.Patient       `json:"patient"`
	Appointments []models.Appointment `json:"appointments"`
	Orders       []models.Order       `json:"orders"`
	Complaints   []models.Complaint   `json:"complaints"`
}

// GetPatient returns one patient with their appointments, orders and complaints.
// Complaints are matched by patient id or, for ones filed before
// verification, by name.
func (h *PatientHandler) GetPatient(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	db := h.DB.WithContext(c.Request.Context())

	var d PatientDetail
	if err := db.First(&d.Patient, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error")
		}
		return
	}

	err := db.Where("patient_id = ?", id).Order("preferred_date DESC").Find(&d.Appointments).Error
	if err == nil {
		err = db.Where("patient_id = ?", id).Order("placed_at DESC").Find(&d.Orders).Error
	}
	if err == nil {
		err = db.Where("patient_id = ? OR LOWER(patient_name) = LOWER(?)", id, d.Patient.FullName()).
			Order("created_at DESC").Find(&d.Complaints).Error
	}
	if err != nil {
		h.Log.Error("load patient detail", zap.Uint("patient_id", id), zap.Error(err))
		utils.InternalServerError(c, "Failed to load patient detail")
		return
	}

	utils.Success(c, "Patient fetched successfully", d)
}
