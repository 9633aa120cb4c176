package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/amirphl/Lovelify-Dash/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SyncType is the scope of a data refresh
type SyncType string

const (
	SyncTypeFull      SyncType = "full"
	SyncTypeCampaigns SyncType = "campaigns"
	SyncTypeMetrics   SyncType = "metrics"
)

// AllSyncTypes returns every sync type
func AllSyncTypes() []SyncType {
	return []SyncType{SyncTypeFull, SyncTypeCampaigns, SyncTypeMetrics}
}

func (t SyncType) Valid() bool {
	return t == SyncTypeFull || t == SyncTypeCampaigns || t == SyncTypeMetrics
}

// SyncJobStatus represents the status of a sync job
type SyncJobStatus string

const (
	SyncJobStatusPending   SyncJobStatus = "pending"
	SyncJobStatusRunning   SyncJobStatus = "running"
	SyncJobStatusCompleted SyncJobStatus = "completed"
	SyncJobStatusFailed    SyncJobStatus = "failed"
	SyncJobStatusCancelled SyncJobStatus = "cancelled"
)

// String returns the string representation of the status
func (s SyncJobStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s SyncJobStatus) Valid() bool {
	switch s {
	case SyncJobStatusPending, SyncJobStatusRunning, SyncJobStatusCompleted,
		SyncJobStatusFailed, SyncJobStatusCancelled:
		return true
	default:
		return false
	}
}

// IsActive reports whether the job is queued or in progress
func (s SyncJobStatus) IsActive() bool {
	return s == SyncJobStatusPending || s == SyncJobStatusRunning
}

// IsFinished reports whether the job reached a final state
func (s SyncJobStatus) IsFinished() bool {
	return s == SyncJobStatusCompleted || s == SyncJobStatusFailed || s == SyncJobStatusCancelled
}

// Scan implements the sql.Scanner interface for SyncJobStatus
func (s *SyncJobStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = SyncJobStatus(v)
	case []byte:
		*s = SyncJobStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into SyncJobStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for SyncJobStatus
func (s SyncJobStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid SyncJobStatus: %s", s)
	}
	return string(s), nil
}

// SyncJob tracks one request to refresh a workspace's campaign and metric data
type SyncJob struct {
	ID               uint          `gorm:"primaryKey" json:"id"`
	UUID             uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:uk_sync_jobs_uuid" json:"uuid"`
	WorkspaceID      uint          `gorm:"not null;index:idx_sync_jobs_workspace_type,priority:1" json:"workspace_id"`
	RequestedBy      *uint         `json:"requested_by,omitempty"`
	SyncType         SyncType      `gorm:"size:20;not null;index:idx_sync_jobs_workspace_type,priority:2" json:"sync_type"`
	Platform         *Platform     `gorm:"size:20" json:"platform,omitempty"`
	Status           SyncJobStatus `gorm:"size:20;not null;default:'pending';index:idx_sync_jobs_status" json:"status"`
	RecordsProcessed int           `gorm:"not null;default:0" json:"records_processed"`
	RecordsCreated   int           `gorm:"not null;default:0" json:"records_created"`
	RecordsUpdated   int           `gorm:"not null;default:0" json:"records_updated"`
	RecordsFailed    int           `gorm:"not null;default:0" json:"records_failed"`
	ErrorMessage     *string       `gorm:"type:text" json:"error_message,omitempty"`
	Attempts         int           `gorm:"not null;default:0" json:"attempts"`
	StartedAt        *time.Time    `json:"started_at,omitempty"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty"`
	CreatedAt        time.Time     `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_sync_jobs_created_at" json:"created_at"`
	UpdatedAt        time.Time     `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (SyncJob) TableName() string {
	return "sync_jobs"
}

// BeforeCreate is called before creating a new record
func (j *SyncJob) BeforeCreate(tx *gorm.DB) error {
	if j.UUID == uuid.Nil {
		j.UUID = uuid.New()
	}
	if j.Status == "" {
		j.Status = SyncJobStatusPending
	}
	now := utils.UTCNow()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	j.UpdatedAt = now
	return nil
}

// BeforeUpdate is called before updating a record
func (j *SyncJob) BeforeUpdate(tx *gorm.DB) error {
	j.UpdatedAt = utils.UTCNow()
	return nil
}

// Duration returns how long the job ran, or zero if it has not finished
func (j *SyncJob) Duration() time.Duration {
	if j.StartedAt == nil || j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.Sub(*j.StartedAt)
}

// SyncJobFilter represents filter criteria for sync job queries
type SyncJobFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	WorkspaceID   *uint
	SyncType      *SyncType
	Status        *SyncJobStatus
	Statuses      []SyncJobStatus
	StartedBefore *time.Time
	CreatedAfter  *time.Time
}
