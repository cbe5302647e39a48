package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"dental-receptionist-server/internal/models"
	"dental-receptionist-server/internal/utils"
)

// listLimit caps every portal list.
const listLimit = 200

func likePattern(s string) string {
	return "%" + strings.ToLower(strings.TrimSpace(s)) + "%"
}

// idParam parses a numeric :id. A bad id answers 400.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.BadRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// AppointmentHandler lists and updates appointments for clinic staff.
type AppointmentHandler struct {
	DB  *gorm.DB
	Log *zap.Logger
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(db *gorm.DB, log *zap.Logger) *AppointmentHandler {
	return &AppointmentHandler{DB: db, Log: log.Named("appointments")}
}

// AppointmentFilter is the query string of the appointment list.
type AppointmentFilter struct {
	Search  string                   `form:"search"`
	Dentist string                   `form:"dentist"`
	Status  models.AppointmentStatus `form:"status" binding:"omitempty,oneof=pending confirmed cancelled completed"`
	Date    string                   `form:"date" binding:"omitempty,isodate"`
}

// ListAppointments returns the newest appointments matching the filters.
func (h *AppointmentHandler) ListAppointments(c *gin.Context) {
	var f AppointmentFilter
	if !utils.BindQuery(c, &f) {
		return
	}

	q := h.DB.WithContext(c.Request.Context()).Model(&models.Appointment{})
	if f.Search != "" {
		p := likePattern(f.Search)
		q = q.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?", p, p)
	}
	if f.Dentist != "" {
		q = q.Where("LOWER(preferred_dentist) LIKE ?", likePattern(f.Dentist))
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Date != "" {
		q = q.Where("preferred_date = ?", f.Date)
	}

	var rows []models.Appointment
	if err := q.Order("preferred_date DESC, preferred_time DESC").Limit(listLimit).Find(&rows).Error; err != nil {
		h.Log.Error("list appointments", zap.Error(err))
		utils.InternalServerError(c, "Failed to fetch appointments")
		return
	}
	utils.List(c, "Appointments fetched successfully", rows, len(rows), listLimit)
}

// UpdateAppointmentStatusRequest represents the request body for updating an appointment's status.
type UpdateAppointmentStatusRequest struct {
	Status models.AppointmentStatus `json:"status" binding:"required,oneof=pending confirmed cancelled completed"`
	Reason string                   `json:"reason"`
}

// UpdateAppointmentStatus sets an appointment's status. Cancelling also
// records a cancellation row.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req UpdateAppointmentStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var appt models.Appointment
	err := models.WithTx(c.Request.Context(), h.DB, func(tx *gorm.DB) error {
		if err := tx.First(&appt, id).Error; err != nil {
			return err
		}
		if appt.Status == req.Status {
			return nil
		}
		if err := tx.Model(&appt).Update("status", req.Status).Error; err != nil {
			return err
		}
		if req.Status != models.StatusCancelled {
			return nil
		}
		reason := strings.TrimSpace(req.Reason)
		if reason == "" {
			reason = "Cancelled by clinic staff"
		}
		return tx.Create(&models.Cancellation{AppointmentID: appt.AppointmentID, Reason: reason}).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.NotFound(c, "Appointment not found")
		return
	}
	if err != nil {
		h.Log.Error("update appointment status", zap.Uint("appointment_id", id), zap.Error(err))
		utils.InternalServerError(c, "Failed to update appointment status")
		return
	}

	appt.Status = req.Status
	utils.Success(c, "Appointment status updated successfully", appt)
}
