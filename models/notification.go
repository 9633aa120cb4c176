package models

import (
	"time"

	"github.com/amirphl/Lovelify-Dash/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationTypeInfo    NotificationType = "info"
	NotificationTypeSuccess NotificationType = "success"
	NotificationTypeWarning NotificationType = "warning"
	NotificationTypeError   NotificationType = "error"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTypeInfo, NotificationTypeSuccess, NotificationTypeWarning, NotificationTypeError:
		return true
	default:
		return false
	}
}

type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "low"
	NotificationPriorityMedium NotificationPriority = "medium"
	NotificationPriorityHigh   NotificationPriority = "high"
	NotificationPriorityUrgent NotificationPriority = "urgent"
)

func (p NotificationPriority) Valid() bool {
	switch p {
	case NotificationPriorityLow, NotificationPriorityMedium, NotificationPriorityHigh, NotificationPriorityUrgent:
		return true
	default:
		return false
	}
}

type NotificationCategory string

const (
	NotificationCategoryCampaign NotificationCategory = "campaign"
	NotificationCategorySync     NotificationCategory = "sync"
	NotificationCategoryBilling  NotificationCategory = "billing"
	NotificationCategorySystem   NotificationCategory = "system"
)

func (c NotificationCategory) Valid() bool {
	switch c {
	case NotificationCategoryCampaign, NotificationCategorySync, NotificationCategoryBilling, NotificationCategorySystem:
		return true
	default:
		return false
	}
}

// Notification is a message shown in a workspace's notification center.
// A nil UserID addresses every member of the workspace.
type Notification struct {
	ID          uint                 `gorm:"primaryKey" json:"id"`
	UUID        uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:uk_notifications_uuid" json:"uuid"`
	WorkspaceID uint                 `gorm:"not null;index:idx_notifications_workspace_created,priority:1" json:"workspace_id"`
	UserID      *uint                `gorm:"index:idx_notifications_user_id" json:"user_id,omitempty"`
	Title       string               `gorm:"size:255;not null" json:"title"`
	Message     string               `gorm:"type:text;not null" json:"message"`
	Type        NotificationType     `gorm:"size:20;not null;default:'info'" json:"type"`
	Priority    NotificationPriority `gorm:"size:20;not null;default:'medium'" json:"priority"`
	Category    NotificationCategory `gorm:"size:20;not null;default:'system';index:idx_notifications_category" json:"category"`
	Read        bool                 `gorm:"not null;default:false;index:idx_notifications_read" json:"read"`
	ReadAt      *time.Time           `json:"read_at,omitempty"`
	ActionURL   *string              `gorm:"size:2048" json:"action_url,omitempty"`
	CreatedAt   time.Time            `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_notifications_workspace_created,priority:2" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// BeforeCreate is called before creating a new record
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.UUID == uuid.Nil {
		n.UUID = uuid.New()
	}
	if n.Type == "" {
		n.Type = NotificationTypeInfo
	}
	if n.Priority == "" {
		n.Priority = NotificationPriorityMedium
	}
	if n.Category == "" {
		n.Category = NotificationCategorySystem
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = utils.UTCNow()
	}
	return nil
}

// VisibleTo reports whether userID may see the notification
func (n *Notification) VisibleTo(userID uint) bool {
	return n.UserID == nil || *n.UserID == userID
}

// NotificationFilter represents filter criteria for notification queries.
// VisibleToUserID matches rows addressed to that user or to the whole workspace.
type NotificationFilter struct {
	ID              *uint
	UUID            *uuid.UUID
	WorkspaceID     *uint
	VisibleToUserID *uint
	Read            *bool
	Category        *NotificationCategory
	CreatedAfter    *time.Time
}
