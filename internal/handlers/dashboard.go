package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"dental-receptionist-server/internal/models"
	"dental-receptionist-server/internal/utils"
)

// DashboardHandler serves the portal landing page.
type DashboardHandler struct {
	DB  *gorm.DB
	Now func() time.Time
	Log *zap.Logger
}

func NewDashboardHandler(db *gorm.DB, now func() time.Time, log *zap.Logger) *DashboardHandler {
	if now == nil {
		now = time.Now
	}
	return &DashboardHandler{DB: db, Now: now, Log: log.Named("dashboard")}
}

type DashboardCounts struct {
	Patients           int64 `json:"patients"`
	ActiveAppointments int64 `json:"activeAppointments"`
	TodayAppointments  int64 `json:"todayAppointments"`
	PendingComplaints  int64 `json:"pendingComplaints"`
	ReadyOrders        int64 `json:"readyOrders"`
}

type Dashboard struct {
	Date              string               `json:"date"`
	Counts            DashboardCounts      `json:"counts"`
	TodayAppointments []models.Appointment `json:"todayAppointments"`
	PendingComplaints []models.Complaint   `json:"pendingComplaints"`
	ReadyOrders       []models.Order       `json:"readyOrders"`
}

// GetDashboard returns the clinic's counts and today's work.
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	db := h.DB.WithContext(c.Request.Context())
	d := Dashboard{Date: h.Now().Format("2006-01-02")}

	counts := []struct {
		dst   *int64
		model interface{}
		where string
		args  []interface{}
	}{
		{&d.Counts.Patients, &models.Patient{}, "1 = 1", nil},
		{&d.Counts.ActiveAppointments, &models.Appointment{}, "status <> ?", []interface{}{models.StatusCancelled}},
		{&d.Counts.TodayAppointments, &models.Appointment{}, "preferred_date = ? AND status <> ?", []interface{}{d.Date, models.StatusCancelled}},
		{&d.Counts.PendingComplaints, &models.Complaint{}, "status = ?", []interface{}{models.ComplaintPending}},
		{&d.Counts.ReadyOrders, &models.Order{}, "order_status = ?", []interface{}{models.OrderReady}},
	}
	for _, q := range counts {
		if err := db.Model(q.model).Where(q.where, q.args...).Count(q.dst).Error; err != nil {
			h.Log.Error("dashboard count", zap.Error(err))
			utils.InternalServerError(c, "Failed to load dashboard")
			return
		}
	}

	err := db.Where("preferred_date = ? AND status <> ?", d.Date, models.StatusCancelled).
		Order("preferred_time").Find(&d.TodayAppointments).Error
	if err == nil {
		err = db.Where("status = ?", models.ComplaintPending).
			Order("created_at DESC").Limit(5).Find(&d.PendingComplaints).Error
	}
	if err == nil {
		err = db.Where("order_status = ?", models.OrderReady).
			Order("updated_at DESC").Limit(5).Find(&d.ReadyOrders).Error
	}
	if err != nil {
		h.Log.Error("dashboard lists", zap.Error(err))
		utils.InternalServerError(c, "Failed to load dashboard")
		return
	}

	utils.Success(c, "Dashboard fetched successfully", d)
}
