package models

import (
	"time"

	"github.com/amirphl/Lovelify-Dash/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRole is a member's role inside its workspace
type UserRole string

const (
	UserRoleOwner  UserRole = "owner"
	UserRoleAdmin  UserRole = "admin"
	UserRoleMember UserRole = "member"
)

// Valid checks if the role is valid
func (r UserRole) Valid() bool {
	return r == UserRoleOwner || r == UserRoleAdmin || r == UserRoleMember
}

// CanManage reports whether the role may change workspace settings and campaign status
func (r UserRole) CanManage() bool {
	return r == UserRoleOwner || r == UserRoleAdmin
}

type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UUID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_users_uuid" json:"uuid"`
	WorkspaceID  uint       `gorm:"not null;index:idx_users_workspace_id" json:"workspace_id"`
	Workspace    *Workspace `gorm:"foreignKey:WorkspaceID;references:ID;constraint:OnDelete:CASCADE" json:"workspace,omitempty"`
	Email        string     `gorm:"size:255;not null;uniqueIndex:uk_users_email" json:"email"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"` // Never serialize password hash
	FullName     string     `gorm:"size:255;not null" json:"full_name"`
	Role         UserRole   `gorm:"size:20;not null;default:'member'" json:"role"`
	IsActive     *bool      `gorm:"default:true;index:idx_users_is_active" json:"is_active"`
	LastLoginAt  *time.Time `gorm:"index:idx_users_last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_users_created_at" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate is called before creating a new record
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UUID == uuid.Nil {
		u.UUID = uuid.New()
	}
	if u.Role == "" {
		u.Role = UserRoleMember
	}
	if u.IsActive == nil {
		u.IsActive = utils.ToPtr(true)
	}
	now := utils.UTCNow()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate is called before updating a record
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = utils.UTCNow()
	return nil
}

// UserFilter represents filter criteria for user queries
type UserFilter struct {
	ID          *uint
	UUID        *uuid.UUID
	WorkspaceID *uint
	Email       *string
	Role        *UserRole
	IsActive    *bool
}
