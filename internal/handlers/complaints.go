package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"dental-receptionist-server/internal/models"
	"dental-receptionist-server/internal/utils"
)

// ComplaintHandler lets staff review complaints.
type ComplaintHandler struct {
	DB  *gorm.DB
	Log *zap.Logger
}

func NewComplaintHandler(db *gorm.DB, log *zap.Logger) *ComplaintHandler {
	return &ComplaintHandler{DB: db, Log: log.Named("complaints")}
}

// ComplaintFilter is the query string of the complaint list.
type ComplaintFilter struct {
	Status   models.ComplaintStatus   `form:"status" binding:"omitempty,oneof=pending reviewed resolved"`
	Category models.ComplaintCategory `form:"category" binding:"omitempty,oneof=general treatment"`
	Search   string                   `form:"search"`
}

func (h *ComplaintHandler) ListComplaints(c *gin.Context) {
	var f ComplaintFilter
	if !utils.BindQuery(c, &f) {
		return
	}

	q := h.DB.WithContext(c.Request.Context()).Model(&models.Complaint{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		q = q.Where("complaint_category = ?", f.Category)
	}
	if f.Search != "" {
		q = q.Where("LOWER(patient_name) LIKE ?", likePattern(f.Search))
	}

	var rows []models.Complaint
	if err := q.Order("created_at DESC").Limit(listLimit).Find(&rows).Error; err != nil {
		h.Log.Error("list complaints", zap.Error(err))
		utils.InternalServerError(c, "Failed to fetch complaints")
		return
	}
	utils.List(c, "Complaints fetched successfully", rows, len(rows), listLimit)
}

type UpdateComplaintStatusRequest struct {
	Status models.ComplaintStatus `json:"status" binding:"required,oneof=pending reviewed resolved"`
}

func (h *ComplaintHandler) UpdateComplaintStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req UpdateComplaintStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	res := h.DB.WithContext(c.Request.Context()).
		Model(&models.Complaint{}).
		Where("complaint_id = ?", id).
		Update("status", req.Status)
	if res.Error != nil {
		h.Log.Error("update complaint status", zap.Uint("complaint_id", id), zap.Error(res.Error))
		utils.InternalServerError(c, "Failed to update complaint status")
		return
	}
	if res.RowsAffected == 0 {
		utils.NotFound(c, "Complaint not found")
		return
	}
	utils.Success(c, "Complaint status updated to "+string(req.Status), gin.H{"complaintId": id, "status": req.Status})
}
