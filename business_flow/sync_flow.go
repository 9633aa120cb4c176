package businessflow

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/Lovelify-Dash/app/dto"
	"github.com/amirphl/Lovelify-Dash/app/services"
	"github.com/amirphl/Lovelify-Dash/models"
	"github.com/amirphl/Lovelify-Dash/repository"
	"github.com/amirphl/Lovelify-Dash/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const syncRequestLockTTL = 10 * time.Second

// SyncFlow handles sync requests and the sync history of a workspace
type SyncFlow interface {
	RequestSync(ctx context.Context, req *dto.RequestSyncRequest, metadata *ClientMetadata) (*dto.RequestSyncResponse, error)
	GetSyncJob(ctx context.Context, workspaceID uint, jobUUID string) (*dto.SyncJobResponse, error)
	ListSyncJobs(ctx context.Context, req *dto.ListSyncJobsRequest) (*dto.ListSyncJobsResponse, error)
	CancelSyncJob(ctx context.Context, workspaceID, userID uint, jobUUID string, metadata *ClientMetadata) (*dto.SyncJobResponse, error)
	Status(ctx context.Context, workspaceID uint) (*dto.SyncStatusResponse, error)
}

// SyncFlowImpl implements the sync business flow
type SyncFlowImpl struct {
	syncJobRepo repository.SyncJobRepository
	auditRepo   repository.AuditLogRepository
	queue       services.SyncQueue
	locks       *services.DashboardCache
	logger      *zap.Logger
	db          *gorm.DB
}

// NewSyncFlow creates a new sync flow instance. locks may be nil, which disables the request lock.
func NewSyncFlow(
	syncJobRepo repository.SyncJobRepository,
	auditRepo repository.AuditLogRepository,
	queue services.SyncQueue,
	locks *services.DashboardCache,
	logger *zap.Logger,
	db *gorm.DB,
) SyncFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncFlowImpl{
		syncJobRepo: syncJobRepo,
		auditRepo:   auditRepo,
		queue:       queue,
		locks:       locks,
		logger:      logger,
		db:          db,
	}
}

func syncLockKey(workspaceID uint, syncType models.SyncType) string {
	return fmt.Sprintf("%s%d:%s", utils.SyncRequestLockPrefix, workspaceID, syncType)
}

// RequestSync queues a sync job, or returns the pending or running job of the same type
func (sf *SyncFlowImpl) RequestSync(ctx context.Context, req *dto.RequestSyncRequest, metadata *ClientMetadata) (*dto.RequestSyncResponse, error) {
	syncType := models.SyncType(req.SyncType)
	if !syncType.Valid() {
		return nil, NewBusinessError("REQUEST_SYNC_FAILED", "Failed to request sync", fmt.Errorf("unknown sync type %q", req.SyncType))
	}
	var platform *models.Platform
	if req.Platform != nil && *req.Platform != "" {
		p := models.Platform(*req.Platform)
		if !p.Valid() {
			return nil, NewBusinessError("REQUEST_SYNC_FAILED", "Failed to request sync", fmt.Errorf("unknown platform %q", *req.Platform))
		}
		platform = &p
	}

	if sf.locks != nil {
		key := syncLockKey(req.WorkspaceID, syncType)
		acquired, err := sf.locks.AcquireLock(ctx, key, syncRequestLockTTL)
		if err != nil {
			return nil, NewBusinessError("REQUEST_SYNC_FAILED", "Failed to request sync", err)
		}
		if !acquired {
			active, err := sf.syncJobRepo.ActiveByType(ctx, req.WorkspaceID, syncType)
			if err != nil {
				return nil, NewBusinessError("REQUEST_SYNC_FAILED", "Failed to request sync", err)
			}
			if active == nil {
				return nil, NewBusinessError("REQUEST_SYNC_FAILED", "Failed to request sync", ErrSyncInProgress)
			}
			return &dto.RequestSyncResponse{Job: ToSyncJobResponse(active), Reused: true}, nil
		}
		defer func() {
			if err := sf.locks.ReleaseLock(context.WithoutCancel(ctx), key); err != nil {
				sf.logger.Warn("Failed to release sync request lock", zap.String("key", key), zap.Error(err))
			}
		}()
	}

	var (
		job    *models.SyncJob
		reused bool
	)
	err := repository.WithTransaction(ctx, sf.db, func(txCtx context.Context) error {
		active, err := sf.syncJobRepo.ActiveByType(txCtx, req.WorkspaceID, syncType)
		if err != nil {
			return err
		}
		if active != nil {
			job, reused = active, true
			return nil
		}

		job = &models.SyncJob{
			WorkspaceID: req.WorkspaceID,
			RequestedBy: &req.UserID,
			SyncType:    syncType,
			Platform:    platform,
			Status:      models.SyncJobStatusPending,
		}
		if err := sf.syncJobRepo.Save(txCtx, job); err != nil {
			return err
		}

		return createAuditLog(txCtx, sf.auditRepo, auditEntry{
			WorkspaceID: &req.WorkspaceID,
			UserID:      &req.UserID,
			Action:      models.AuditActionSyncRequested,
			Description: fmt.Sprintf("Requested %s sync", syncType),
			Success:     true,
			Details:     map[string]any{"sync_job_uuid": job.UUID.String()},
		}, metadata)
	})
	if err != nil {
		_ = createAuditLog(ctx, sf.auditRepo, failureEntry(&req.WorkspaceID, &req.UserID,
			models.AuditActionSyncRequested, "Sync request failed", err), metadata)
		return nil, NewBusinessError("REQUEST_SYNC_FAILED", "Failed to request sync", err)
	}

	// A lost message is picked up by the scheduler's pending poll
	if !reused && sf.queue != nil {
		if err := sf.queue.Publish(ctx, job.ID); err != nil {
			sf.logger.Warn("Failed to publish sync job",
				zap.Uint("sync_job_id", job.ID), zap.Error(err))
		}
	}

	return &dto.RequestSyncResponse{Job: ToSyncJobResponse(job), Reused: reused}, nil
}

func (sf *SyncFlowImpl) findJob(ctx context.Context, workspaceID uint, id string) (*models.SyncJob, error) {
	return findInWorkspace(ctx, sf.syncJobRepo, id, workspaceID,
		func(j *models.SyncJob) uint { return j.WorkspaceID }, ErrSyncJobNotFound)
}

// GetSyncJob returns one job of the workspace
func (sf *SyncFlowImpl) GetSyncJob(ctx context.Context, workspaceID uint, jobUUID string) (*dto.SyncJobResponse, error) {
	job, err := sf.findJob(ctx, workspaceID, jobUUID)
	if err != nil {
		return nil, NewBusinessError("GET_SYNC_JOB_FAILED", "Failed to get sync job", err)
	}
	resp := ToSyncJobResponse(job)
	return &resp, nil
}

// ListSyncJobs returns the sync history, newest first
func (sf *SyncFlowImpl) ListSyncJobs(ctx context.Context, req *dto.ListSyncJobsRequest) (*dto.ListSyncJobsResponse, error) {
	filter := models.SyncJobFilter{WorkspaceID: &req.WorkspaceID}
	if req.Status != "" {
		status := models.SyncJobStatus(req.Status)
		filter.Status = &status
	}
	if req.SyncType != "" {
		syncType := models.SyncType(req.SyncType)
		filter.SyncType = &syncType
	}

	page, pageSize, offset := pageParams(req.PageRequest)
	total, err := sf.syncJobRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("LIST_SYNC_JOBS_FAILED", "Failed to list sync jobs", err)
	}
	jobs, err := sf.syncJobRepo.ByFilter(ctx, filter, "created_at DESC, id DESC", pageSize, offset)
	if err != nil {
		return nil, NewBusinessError("LIST_SYNC_JOBS_FAILED", "Failed to list sync jobs", err)
	}

	items := make([]dto.SyncJobResponse, 0, len(jobs))
	for _, j := range jobs {
		items = append(items, ToSyncJobResponse(j))
	}
	return &dto.ListSyncJobsResponse{Items: items, Pagination: newPagination(page, pageSize, total)}, nil
}

// CancelSyncJob cancels a job that has not started yet
func (sf *SyncFlowImpl) CancelSyncJob(ctx context.Context, workspaceID, userID uint, jobUUID string, metadata *ClientMetadata) (*dto.SyncJobResponse, error) {
	var job *models.SyncJob
	err := repository.WithTransaction(ctx, sf.db, func(txCtx context.Context) error {
		var err error
		job, err = sf.findJob(txCtx, workspaceID, jobUUID)
		if err != nil {
			return err
		}

		now := utils.UTCNow()
		cancelled, err := sf.syncJobRepo.Cancel(txCtx, job.ID, now)
		if err != nil {
			return err
		}
		if !cancelled {
			return ErrSyncJobNotCancellable
		}
		job.Status = models.SyncJobStatusCancelled
		job.CompletedAt = &now

		return createAuditLog(txCtx, sf.auditRepo, auditEntry{
			WorkspaceID: &workspaceID,
			UserID:      &userID,
			Action:      models.AuditActionSyncCancelled,
			Description: fmt.Sprintf("Cancelled %s sync", job.SyncType),
			Success:     true,
			Details:     map[string]any{"sync_job_uuid": job.UUID.String()},
		}, metadata)
	})
	if err != nil {
		_ = createAuditLog(ctx, sf.auditRepo, failureEntry(&workspaceID, &userID,
			models.AuditActionSyncCancelled, "Sync cancellation failed", err), metadata)
		return nil, NewBusinessError("CANCEL_SYNC_JOB_FAILED", "Failed to cancel sync job", err)
	}
	resp := ToSyncJobResponse(job)
	return &resp, nil
}

// Status reports the latest job per sync type. LastSyncedAt is the newest completion among completed jobs.
func (sf *SyncFlowImpl) Status(ctx context.Context, workspaceID uint) (*dto.SyncStatusResponse, error) {
	latest, err := sf.syncJobRepo.LatestByType(ctx, workspaceID)
	if err != nil {
		return nil, NewBusinessError("SYNC_STATUS_FAILED", "Failed to load sync status", err)
	}

	resp := &dto.SyncStatusResponse{Latest: make(map[string]*dto.SyncJobResponse, len(latest))}
	for _, syncType := range models.AllSyncTypes() {
		job, ok := latest[syncType]
		if !ok {
			resp.Latest[string(syncType)] = nil
			continue
		}
		r := ToSyncJobResponse(job)
		resp.Latest[string(syncType)] = &r
		if job.Status.IsActive() {
			resp.IsSyncing = true
		}
		if job.Status == models.SyncJobStatusCompleted && job.CompletedAt != nil &&
			(resp.LastSyncedAt == nil || job.CompletedAt.After(*resp.LastSyncedAt)) {
			resp.LastSyncedAt = job.CompletedAt
		}
	}
	return resp, nil
}
