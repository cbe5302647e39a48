package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"dental-receptionist-server/internal/middleware"
	"dental-receptionist-server/internal/models"
	"dental-receptionist-server/internal/utils"
)

// UserHandler manages portal accounts. Admin only.
type UserHandler struct {
	DB  *gorm.DB
	Log *zap.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(db *gorm.DB, log *zap.Logger) *UserHandler {
	return &UserHandler{DB: db, Log: log.Named("users")}
}

// CreateUserRequest represents the request body for creating a portal user.
type CreateUserRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=100"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"displayName" binding:"max=200"`
	Role        string `json:"role" binding:"required,oneof=admin staff"`
}

// CreateUser adds a portal account.
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	db := h.DB.WithContext(c.Request.Context())

	var existing models.PortalUser
	if err := db.Where("username = ?", req.Username).First(&existing).Error; err == nil {
		utils.Conflict(c, "User with this username already exists")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.InternalServerError(c, "Database error")
		return
	}

	user := models.PortalUser{
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Role:        models.Role(req.Role),
	}
	if err := user.SetPassword(req.Password); err != nil {
		utils.InternalServerError(c, "Failed to hash password")
		return
	}
	if err := db.Create(&user).Error; err != nil {
		h.Log.Error("create portal user", zap.String("username", req.Username), zap.Error(err))
		utils.InternalServerError(c, "Failed to create user")
		return
	}

	h.Log.Info("portal user created", zap.String("username", user.Username), zap.String("role", string(user.Role)))
	utils.Created(c, "User created successfully", user.Sanitize())
}

// GetUsers lists every portal account.
func (h *UserHandler) GetUsers(c *gin.Context) {
	var users []models.PortalUser
	if err := h.DB.WithContext(c.Request.Context()).Order("username").Find(&users).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch users")
		return
	}

	sanitized := lo.Map(users, func(u models.PortalUser, _ int) models.PortalUserSanitized {
		return u.Sanitize()
	})
	utils.Success(c, "Users fetched successfully", sanitized)
}

// DeleteUser removes a portal account and its refresh tokens. Admins cannot
// delete themselves.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	userID := c.Param("id")
	if self, _ := middleware.GetUserIDFromContext(c); self == userID {
		utils.BadRequest(c, "You cannot delete your own account")
		return
	}

	err := models.WithTx(c.Request.Context(), h.DB, func(tx *gorm.DB) error {
		var user models.PortalUser
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.PortalUser{}, "id = ?", userID).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.NotFound(c, "User not found")
		return
	}
	if err != nil {
		h.Log.Error("delete portal user", zap.String("user_id", userID), zap.Error(err))
		utils.InternalServerError(c, "Failed to delete user")
		return
	}

	utils.Success(c, "User deleted successfully", nil)
}
