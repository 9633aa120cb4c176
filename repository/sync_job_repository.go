package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/Lovelify-Dash/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SyncJobRepositoryImpl implements SyncJobRepository
type SyncJobRepositoryImpl struct {
	*BaseRepository[models.SyncJob, models.SyncJobFilter]
}

// NewSyncJobRepository creates a new sync job repository
func NewSyncJobRepository(db *gorm.DB) SyncJobRepository {
	return &SyncJobRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SyncJob, models.SyncJobFilter](db),
	}
}

// Claim moves a pending job to running. Only one concurrent caller can win.
func (r *SyncJobRepositoryImpl) Claim(ctx context.Context, id uint, at time.Time) (bool, error) {
	return r.transition(ctx, id, models.SyncJobStatusPending, map[string]any{
		"status":     models.SyncJobStatusRunning,
		"started_at": at,
		"attempts":   gorm.Expr("attempts + 1"),
		"updated_at": at,
	})
}

// Cancel moves a pending job to cancelled
func (r *SyncJobRepositoryImpl) Cancel(ctx context.Context, id uint, at time.Time) (bool, error) {
	return r.transition(ctx, id, models.SyncJobStatusPending, map[string]any{
		"status":       models.SyncJobStatusCancelled,
		"completed_at": at,
		"updated_at":   at,
	})
}

// Finish stores the outcome of a running job. It reports false when the job stopped
// running meanwhile, for example because it was failed as stale.
func (r *SyncJobRepositoryImpl) Finish(ctx context.Context, job *models.SyncJob) (bool, error) {
	completedAt := time.Now().UTC()
	if job.CompletedAt != nil {
		completedAt = *job.CompletedAt
	}
	return r.transition(ctx, job.ID, models.SyncJobStatusRunning, map[string]any{
		"status":            job.Status,
		"records_processed": job.RecordsProcessed,
		"records_created":   job.RecordsCreated,
		"records_updated":   job.RecordsUpdated,
		"records_failed":    job.RecordsFailed,
		"error_message":     job.ErrorMessage,
		"completed_at":      completedAt,
		"updated_at":        completedAt,
	})
}

func (r *SyncJobRepositoryImpl) transition(ctx context.Context, id uint, from models.SyncJobStatus, updates map[string]any) (bool, error) {
	var won bool
	err := r.write(ctx, func(db *gorm.DB) error {
		res := db.Model(&models.SyncJob{}).
			Where("id = ? AND status = ?", id, from).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		won = res.RowsAffected == 1
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to transition sync job %d: %w", id, err)
	}
	return won, nil
}

// ActiveByType returns the oldest pending or running job of the given type, if any
func (r *SyncJobRepositoryImpl) ActiveByType(ctx context.Context, workspaceID uint, syncType models.SyncType) (*models.SyncJob, error) {
	db := r.getDB(ctx)
	var job models.SyncJob
	err := db.Where("workspace_id = ? AND sync_type = ? AND status IN ?", workspaceID, syncType,
		[]models.SyncJobStatus{models.SyncJobStatusPending, models.SyncJobStatusRunning}).
		Order("created_at ASC").
		First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find active sync job: %w", err)
	}
	return &job, nil
}

// LatestByType returns the most recent job of each sync type in the workspace
func (r *SyncJobRepositoryImpl) LatestByType(ctx context.Context, workspaceID uint) (map[models.SyncType]*models.SyncJob, error) {
	db := r.getDB(ctx)
	var jobs []*models.SyncJob
	err := db.Raw(`SELECT DISTINCT ON (sync_type) * FROM sync_jobs
		WHERE workspace_id = ?
		ORDER BY sync_type, created_at DESC, id DESC`, workspaceID).
		Scan(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load latest sync jobs: %w", err)
	}

	out := make(map[models.SyncType]*models.SyncJob, len(jobs))
	for _, j := range jobs {
		out[j.SyncType] = j
	}
	return out, nil
}

// FailStale marks running jobs started before the cutoff as failed
func (r *SyncJobRepositoryImpl) FailStale(ctx context.Context, startedBefore time.Time, message string) ([]*models.SyncJob, error) {
	var failed []*models.SyncJob
	err := r.write(ctx, func(db *gorm.DB) error {
		now := time.Now().UTC()
		return db.Model(&failed).
			Clauses(clause.Returning{}).
			Where("status = ? AND started_at < ?", models.SyncJobStatusRunning, startedBefore).
			Updates(map[string]any{
				"status":        models.SyncJobStatusFailed,
				"error_message": message,
				"completed_at":  now,
				"updated_at":    now,
			}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fail stale sync jobs: %w", err)
	}
	return failed, nil
}

// ByFilter retrieves sync jobs based on filter criteria
func (r *SyncJobRepositoryImpl) ByFilter(ctx context.Context, filter models.SyncJobFilter, orderBy string, limit, offset int) ([]*models.SyncJob, error) {
	db := r.getDB(ctx)
	var jobs []*models.SyncJob
	if err := paginate(r.applyFilter(db, filter), orderBy, limit, offset).Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to find sync jobs: %w", err)
	}
	return jobs, nil
}

// Count returns the number of sync jobs matching the filter
func (r *SyncJobRepositoryImpl) Count(ctx context.Context, filter models.SyncJobFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := r.applyFilter(db.Model(&models.SyncJob{}), filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count sync jobs: %w", err)
	}
	return count, nil
}

// Exists checks if any sync job matches the filter
func (r *SyncJobRepositoryImpl) Exists(ctx context.Context, filter models.SyncJobFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *SyncJobRepositoryImpl) applyFilter(db *gorm.DB, filter models.SyncJobFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.WorkspaceID != nil {
		db = db.Where("workspace_id = ?", *filter.WorkspaceID)
	}
	if filter.SyncType != nil {
		db = db.Where("sync_type = ?", *filter.SyncType)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if len(filter.Statuses) > 0 {
		db = db.Where("status IN ?", filter.Statuses)
	}
	if filter.StartedBefore != nil {
		db = db.Where("started_at < ?", *filter.StartedBefore)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at > ?", *filter.CreatedAfter)
	}
	return db
}
