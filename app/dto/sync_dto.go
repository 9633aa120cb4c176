package dto

import "time"

// RequestSyncRequest starts a data refresh
type RequestSyncRequest struct {
	WorkspaceID uint    `json:"-"`
	UserID      uint    `json:"-"`
	SyncType    string  `json:"sync_type" validate:"required,oneof=full campaigns metrics" example:"metrics"`
	Platform    *string `json:"platform,omitempty" validate:"omitempty,oneof=meta google tiktok"`
}

// SyncJobResponse represents a sync job in responses
type SyncJobResponse struct {
	UUID             string     `json:"uuid"`
	SyncType         string     `json:"sync_type"`
	Platform         *string    `json:"platform,omitempty"`
	Status           string     `json:"status"`
	RecordsProcessed int        `json:"records_processed"`
	RecordsCreated   int        `json:"records_created"`
	RecordsUpdated   int        `json:"records_updated"`
	RecordsFailed    int        `json:"records_failed"`
	ErrorMessage     *string    `json:"error_message,omitempty"`
	Attempts         int        `json:"attempts"`
	DurationSeconds  float64    `json:"duration_seconds,omitempty"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// RequestSyncResponse returns the job and whether an existing active job was reused
type RequestSyncResponse struct {
	Job    SyncJobResponse `json:"job"`
	Reused bool            `json:"reused"`
}

// ListSyncJobsRequest filters and pages the sync history
type ListSyncJobsRequest struct {
	WorkspaceID uint   `json:"-" query:"-"`
	Status      string `query:"status" validate:"omitempty,oneof=pending running completed failed cancelled"`
	SyncType    string `query:"sync_type" validate:"omitempty,oneof=full campaigns metrics"`
	PageRequest
}

// ListSyncJobsResponse is one page of sync jobs
type ListSyncJobsResponse struct {
	Items      []SyncJobResponse `json:"items"`
	Pagination PaginationInfo    `json:"pagination"`
}

// SyncStatusResponse summarizes the latest job of every sync type
type SyncStatusResponse struct {
	IsSyncing    bool                        `json:"is_syncing"`
	LastSyncedAt *time.Time                  `json:"last_synced_at,omitempty"`
	Latest       map[string]*SyncJobResponse `json:"latest"`
}
