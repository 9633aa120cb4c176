// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/amirphl/Lovelify-Dash/models"
	"github.com/shopspring/decimal"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// WorkspaceRepository defines operations for workspaces
type WorkspaceRepository interface {
	Repository[models.Workspace, models.WorkspaceFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Workspace, error)
	BySlug(ctx context.Context, slug string) (*models.Workspace, error)
	ListActive(ctx context.Context) ([]*models.Workspace, error)
}

// UserRepository defines operations for users
type UserRepository interface {
	Repository[models.User, models.UserFilter]
	ByUUID(ctx context.Context, uuid string) (*models.User, error)
	ByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, userID uint, at time.Time) error
}

// CampaignRepository defines operations for campaigns
type CampaignRepository interface {
	Repository[models.Campaign, models.CampaignFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Campaign, error)
	Update(ctx context.Context, campaign *models.Campaign) error
	// UpdateStatus moves a campaign from one status to another and reports whether the row matched
	UpdateStatus(ctx context.Context, id uint, from, to models.DeliveryStatus) (bool, error)
	Delete(ctx context.Context, id uint) error
	ListEnded(ctx context.Context, workspaceID *uint, day time.Time) ([]*models.Campaign, error)
	AdSetCounts(ctx context.Context, campaignIDs []uint) (map[uint]int64, error)
}

// AdSetRepository defines operations for ad sets
type AdSetRepository interface {
	Repository[models.AdSet, models.AdSetFilter]
	ByUUID(ctx context.Context, uuid string) (*models.AdSet, error)
	Update(ctx context.Context, adSet *models.AdSet) error
	UpdateStatus(ctx context.Context, id uint, from, to models.DeliveryStatus) (bool, error)
}

// AdRepository defines operations for ads
type AdRepository interface {
	Repository[models.Ad, models.AdFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Ad, error)
	Update(ctx context.Context, ad *models.Ad) error
	UpdateStatus(ctx context.Context, id uint, from, to models.DeliveryStatus) (bool, error)
}

// CreativeRepository defines operations for creatives
type CreativeRepository interface {
	Repository[models.Creative, models.CreativeFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Creative, error)
	Delete(ctx context.Context, id uint) error
}

// MetricTotals is one aggregated row of metric sums
type MetricTotals struct {
	Impressions int64
	Clicks      int64
	Conversions int64
	Reach       int64
	Spend       decimal.Decimal
	Revenue     decimal.Decimal
}

// DailyMetricTotals is MetricTotals for a single date
type DailyMetricTotals struct {
	Date time.Time
	MetricTotals
}

// CampaignMetricTotals is MetricTotals for a single campaign
type CampaignMetricTotals struct {
	CampaignID uint
	MetricTotals
}

// UpsertResult reports how many rows an upsert inserted and how many it overwrote
type UpsertResult struct {
	Created int
	Updated int
}

// MetricRecordRepository defines operations for metric records.
// Aggregations read campaign-level rows only (ad_set_id = 0 and ad_id = 0).
type MetricRecordRepository interface {
	Repository[models.MetricRecord, models.MetricRecordFilter]
	Upsert(ctx context.Context, records []*models.MetricRecord) (UpsertResult, error)
	Totals(ctx context.Context, filter models.MetricRecordFilter) (MetricTotals, error)
	DailyTotals(ctx context.Context, filter models.MetricRecordFilter) ([]DailyMetricTotals, error)
	TotalsByCampaign(ctx context.Context, filter models.MetricRecordFilter) ([]CampaignMetricTotals, error)
	// DetailRows returns ad-set and ad level rows, the inputs of a campaign roll-up
	DetailRows(ctx context.Context, filter models.MetricRecordFilter) ([]*models.MetricRecord, error)
}

// NotificationRepository defines operations for notifications
type NotificationRepository interface {
	Repository[models.Notification, models.NotificationFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Notification, error)
	MarkRead(ctx context.Context, id uint, at time.Time) error
	MarkAllRead(ctx context.Context, workspaceID, userID uint, at time.Time) (int64, error)
	Delete(ctx context.Context, id uint) error
}

// SyncJobRepository defines operations for sync jobs
type SyncJobRepository interface {
	Repository[models.SyncJob, models.SyncJobFilter]
	ByUUID(ctx context.Context, uuid string) (*models.SyncJob, error)
	// Claim atomically moves a pending job to running and reports whether this caller won it
	Claim(ctx context.Context, id uint, at time.Time) (bool, error)
	// Cancel atomically moves a pending job to cancelled and reports whether it was still pending
	Cancel(ctx context.Context, id uint, at time.Time) (bool, error)
	// Finish stores the outcome of a job only while it is still running
	Finish(ctx context.Context, job *models.SyncJob) (bool, error)
	ActiveByType(ctx context.Context, workspaceID uint, syncType models.SyncType) (*models.SyncJob, error)
	LatestByType(ctx context.Context, workspaceID uint) (map[models.SyncType]*models.SyncJob, error)
	// FailStale marks running jobs started before the cutoff as failed and returns them
	FailStale(ctx context.Context, startedBefore time.Time, message string) ([]*models.SyncJob, error)
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByWorkspace(ctx context.Context, workspaceID uint, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}
