package models

import (
	"encoding/json"
	"time"
)

type AuditLog struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	WorkspaceID  *uint           `gorm:"index:idx_audit_workspace_id" json:"workspace_id,omitempty"`
	UserID       *uint           `gorm:"index:idx_audit_user_id" json:"user_id,omitempty"`
	Action       string          `gorm:"size:64;not null;index:idx_audit_action" json:"action"`
	Description  *string         `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string         `gorm:"size:64;index:idx_audit_ip_address" json:"ip_address,omitempty"`
	UserAgent    *string         `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID    *string         `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata     json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	Success      *bool           `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionRegister           = "register"
	AuditActionLoginSuccess       = "login_success"
	AuditActionLoginFailed        = "login_failed"
	AuditActionLogout             = "logout"
	AuditActionTokenRefreshed     = "token_refreshed"
	AuditActionCampaignCreated    = "campaign_created"
	AuditActionCampaignUpdated    = "campaign_updated"
	AuditActionCampaignDeleted    = "campaign_deleted"
	AuditActionCampaignStatus     = "campaign_status_changed"
	AuditActionCampaignCompleted  = "campaign_completed"
	AuditActionAdSetCreated       = "ad_set_created"
	AuditActionAdSetUpdated       = "ad_set_updated"
	AuditActionAdSetStatus        = "ad_set_status_changed"
	AuditActionAdCreated          = "ad_created"
	AuditActionAdUpdated          = "ad_updated"
	AuditActionAdStatus           = "ad_status_changed"
	AuditActionCreativeUploaded   = "creative_uploaded"
	AuditActionCreativeDeleted    = "creative_deleted"
	AuditActionMetricsIngested    = "metrics_ingested"
	AuditActionSyncRequested      = "sync_requested"
	AuditActionSyncCancelled      = "sync_cancelled"
	AuditActionSyncCompleted      = "sync_completed"
	AuditActionSyncFailed         = "sync_failed"
	AuditActionNotificationDelete = "notification_deleted"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	WorkspaceID   *uint
	UserID        *uint
	Action        *string
	Success       *bool
	IPAddress     *string
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}

func (a *AuditLog) IsSecurityEvent() bool {
	securityActions := map[string]bool{
		AuditActionRegister:     true,
		AuditActionLoginSuccess: true,
		AuditActionLoginFailed:  true,
		AuditActionLogout:       true,
	}
	return securityActions[a.Action]
}
