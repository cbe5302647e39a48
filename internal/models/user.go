package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role enum
type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// PortalUser is a clinic staff member who signs in to the management portal
type PortalUser struct {
	BaseModel
	Username    string `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Password    string `gorm:"size:255;not null" json:"-"` // Never send password in JSON
	DisplayName string `gorm:"size:200" json:"displayName"`
	Role        Role   `gorm:"size:20;default:'staff'" json:"role"`

	// Relations (not always preloaded)
	RefreshTokens []RefreshToken `gorm:"foreignKey:UserID" json:"-"`
}

func (PortalUser) TableName() string { return "portal_users" }

// PortalUserSanitized is the portal user data that is safe to send in API responses.
type PortalUserSanitized struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SetPassword hashes a password and sets it on the user
func (u *PortalUser) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a password with the user's hashed password
func (u *PortalUser) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// Sanitize strips the password hash.
func (u *PortalUser) Sanitize() PortalUserSanitized {
	return PortalUserSanitized{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
