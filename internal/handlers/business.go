package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"dental-receptionist-server/internal/models"
	"dental-receptionist-server/internal/utils"
)

// BusinessHandler exposes the supplier directory and the business call log.
type BusinessHandler struct {
	DB  *gorm.DB
	Log *zap.Logger
}

func NewBusinessHandler(db *gorm.DB, log *zap.Logger) *BusinessHandler {
	return &BusinessHandler{DB: db, Log: log.Named("business")}
}

type BusinessLogFilter struct {
	Search  string `form:"search"`
	Purpose string `form:"purpose" binding:"omitempty,oneof=order_ready invoice_billing promotion_partnership general_business"`
}

// ListBusinessLogs returns logged business calls, newest first.
func (h *BusinessHandler) ListBusinessLogs(c *gin.Context) {
	var f BusinessLogFilter
	if !utils.BindQuery(c, &f) {
		return
	}

	q := h.DB.WithContext(c.Request.Context()).Model(&models.BusinessLog{})
	if f.Search != "" {
		p := likePattern(f.Search)
		q = q.Where("LOWER(caller_name) LIKE ? OR LOWER(company_name) LIKE ?", p, p)
	}
	if f.Purpose != "" {
		q = q.Where("purpose = ?", f.Purpose)
	}

	var rows []models.BusinessLog
	if err := q.Order("logged_at DESC").Limit(listLimit).Find(&rows).Error; err != nil {
		h.Log.Error("list business logs", zap.Error(err))
		utils.InternalServerError(c, "Failed to fetch business logs")
		return
	}
	utils.List(c, "Business logs fetched successfully", rows, len(rows), listLimit)
}

// ListSuppliers returns the active suppliers.
func (h *BusinessHandler) ListSuppliers(c *gin.Context) {
	var rows []models.Supplier
	err := h.DB.WithContext(c.Request.Context()).
		Where("is_active = ?", true).
		Order("company_name").
		Limit(listLimit).
		Find(&rows).Error
	if err != nil {
		h.Log.Error("list suppliers", zap.Error(err))
		utils.InternalServerError(c, "Failed to fetch suppliers")
		return
	}
	utils.List(c, "Suppliers fetched successfully", rows, len(rows), listLimit)
}
