package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"dental-receptionist-server/internal/events"
	"dental-receptionist-server/internal/middleware"
	"dental-receptionist-server/internal/models"
	"dental-receptionist-server/internal/utils"
)

// OrderHandler manages patient product orders.
type OrderHandler struct {
	DB     *gorm.DB
	Events events.Publisher
	Log    *zap.Logger
}

func NewOrderHandler(db *gorm.DB, pub events.Publisher, log *zap.Logger) *OrderHandler {
	return &OrderHandler{DB: db, Events: pub, Log: log.Named("orders")}
}

// OrderFilter is the query string of the order list.
type OrderFilter struct {
	Status models.OrderStatus `form:"status" binding:"omitempty,oneof=placed ready delivered"`
	Search string             `form:"search"`
}

// ListOrders returns the most recently updated orders.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var f OrderFilter
	if !utils.BindQuery(c, &f) {
		return
	}

	q := h.DB.WithContext(c.Request.Context()).Model(&models.Order{})
	if f.Status != "" {
		q = q.Where("order_status = ?", f.Status)
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		q = q.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(product_name) LIKE ?", p, p, p)
	}

	var rows []models.Order
	if err := q.Order("updated_at DESC").Limit(listLimit).Find(&rows).Error; err != nil {
		h.Log.Error("list orders", zap.Error(err))
		utils.InternalServerError(c, "Failed to fetch orders")
		return
	}
	utils.List(c, "Orders fetched successfully", rows, len(rows), listLimit)
}

// CreateOrderRequest places an order for a patient.
type CreateOrderRequest struct {
	PatientID   uint   `json:"patientId" binding:"required"`
	ProductName string `json:"productName" binding:"required,max=200"`
	Notes       string `json:"notes"`
}

// CreateOrder places an order. Patient details are copied onto the order.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	db := h.DB.WithContext(c.Request.Context())

	var p models.Patient
	if err := db.First(&p, req.PatientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error")
		}
		return
	}

	placedBy := "management"
	if userID, ok := middleware.GetUserIDFromContext(c); ok {
		var u models.PortalUser
		if db.Select("username").First(&u, "id = ?", userID).Error == nil {
			placedBy = u.Username
		}
	}

	order := models.Order{
		PatientID:     p.PatientID,
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		ContactNumber: p.ContactNumber,
		ProductName:   strings.TrimSpace(req.ProductName),
		OrderStatus:   models.OrderPlaced,
		Notes:         req.Notes,
		PlacedBy:      placedBy,
	}
	if err := db.Create(&order).Error; err != nil {
		h.Log.Error("create order", zap.Error(err))
		utils.InternalServerError(c, "Failed to create order")
		return
	}
	utils.Created(c, "Order placed successfully", order)
}

type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required,oneof=placed ready delivered"`
	Notes  *string            `json:"notes"`
}

// UpdateOrderStatus moves an order along. Marking it ready publishes an
// order.ready event.
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req UpdateOrderStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ctx := c.Request.Context()

	var order models.Order
	if err := h.DB.WithContext(ctx).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Order not found")
		} else {
			utils.InternalServerError(c, "Database error")
		}
		return
	}

	changes := map[string]interface{}{"order_status": req.Status}
	if req.Notes != nil {
		changes["notes"] = *req.Notes
	}
	if err := h.DB.WithContext(ctx).Model(&order).Updates(changes).Error; err != nil {
		h.Log.Error("update order status", zap.Uint("order_id", id), zap.Error(err))
		utils.InternalServerError(c, "Failed to update order status")
		return
	}

	order.OrderStatus = req.Status
	if req.Notes != nil {
		order.Notes = *req.Notes
	}

	if req.Status == models.OrderReady {
		events.Emit(ctx, h.Events, h.Log, events.New(events.OrderReady, map[string]any{
			"order_id":   order.OrderID,
			"patient_id": order.PatientID,
			"product":    order.ProductName,
		}))
	}
	utils.Success(c, "Order status updated successfully", order)
}
