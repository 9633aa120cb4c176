// Package scheduler runs background work: sync jobs from the queue and the campaign lifecycle tick
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/amirphl/Lovelify-Dash/app/dto"
	"github.com/amirphl/Lovelify-Dash/app/services"
	businessflow "github.com/amirphl/Lovelify-Dash/business_flow"
	"github.com/amirphl/Lovelify-Dash/config"
	"github.com/amirphl/Lovelify-Dash/models"
	"github.com/amirphl/Lovelify-Dash/repository"
	"github.com/amirphl/Lovelify-Dash/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// rollupWindowDays bounds how far back a metrics sync re-aggregates detail rows
	rollupWindowDays = 90
	// pendingBatchSize caps how many pending jobs one poll picks up
	pendingBatchSize = 50
	staleJobMessage  = "sync job timed out"
)

var (
	syncJobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_jobs_processed_total",
			Help: "Total number of sync jobs that reached a final state",
		},
		[]string{"sync_type", "status"},
	)

	syncJobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_job_duration_seconds",
			Help:    "Time spent running sync jobs",
			Buckets: prometheus.DefBuckets,
		},
	)

	campaignsCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campaigns_completed_total",
			Help: "Total number of campaigns moved to COMPLETED by the lifecycle tick",
		},
	)
)

var errCampaignNotActive = errors.New("campaign is no longer active")

// SyncScheduler consumes sync jobs, recovers jobs whose queue message was lost and completes ended campaigns
type SyncScheduler struct {
	syncJobRepo  repository.SyncJobRepository
	campaignRepo repository.CampaignRepository
	metricRepo   repository.MetricRecordRepository
	auditRepo    repository.AuditLogRepository
	notifier     *businessflow.Notifier
	queue        services.SyncQueue
	cache        *services.DashboardCache
	db           *gorm.DB
	logger       *zap.Logger
	cfg          config.SchedulerConfig
	now          func() time.Time
}

// syncStats counts what one job touched
type syncStats struct {
	processed int
	created   int
	updated   int
	failed    int
}

func (s *syncStats) add(o syncStats) {
	s.processed += o.processed
	s.created += o.created
	s.updated += o.updated
	s.failed += o.failed
}

func NewSyncScheduler(
	syncJobRepo repository.SyncJobRepository,
	campaignRepo repository.CampaignRepository,
	metricRepo repository.MetricRecordRepository,
	auditRepo repository.AuditLogRepository,
	notifier *businessflow.Notifier,
	queue services.SyncQueue,
	cache *services.DashboardCache,
	db *gorm.DB,
	logger *zap.Logger,
	cfg config.SchedulerConfig,
) *SyncScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SyncPollInterval <= 0 {
		cfg.SyncPollInterval = 30 * time.Second
	}
	if cfg.SyncJobTimeout <= 0 {
		cfg.SyncJobTimeout = 15 * time.Minute
	}
	if cfg.LifecycleInterval <= 0 {
		cfg.LifecycleInterval = time.Hour
	}
	return &SyncScheduler{
		syncJobRepo:  syncJobRepo,
		campaignRepo: campaignRepo,
		metricRepo:   metricRepo,
		auditRepo:    auditRepo,
		notifier:     notifier,
		queue:        queue,
		cache:        cache,
		db:           db,
		logger:       logger.Named("scheduler"),
		cfg:          cfg,
		now:          utils.UTCNow,
	}
}

// Start launches the consumer, the pending poller and the lifecycle tick. The returned
// function stops them and waits until they have returned.
func (s *SyncScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)
	var wg sync.WaitGroup

	if s.queue != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.queue.Consume(ctx, s.HandleJob); err != nil && ctx.Err() == nil {
				s.logger.Error("Sync queue consumer stopped", zap.Error(err))
			}
		}()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		s.loop(ctx, s.cfg.SyncPollInterval, func(ctx context.Context) {
			s.FailStaleJobs(ctx)
			s.ProcessPending(ctx)
		})
	}()
	go func() {
		defer wg.Done()
		s.loop(ctx, s.cfg.LifecycleInterval, func(ctx context.Context) {
			if _, err := s.CompleteEndedCampaigns(ctx, nil); err != nil {
				s.logger.Error("Lifecycle tick failed", zap.Error(err))
			}
		})
	}()

	return func() {
		cancel()
		wg.Wait()
	}
}

func (s *SyncScheduler) loop(ctx context.Context, interval time.Duration, run func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run(ctx)
		}
	}
}

// ProcessPending runs pending jobs directly, covering messages the queue lost
func (s *SyncScheduler) ProcessPending(ctx context.Context) {
	status := models.SyncJobStatusPending
	jobs, err := s.syncJobRepo.ByFilter(ctx, models.SyncJobFilter{Status: &status}, "id ASC", pendingBatchSize, 0)
	if err != nil {
		s.logger.Error("List pending sync jobs failed", zap.Error(err))
		return
	}
	for _, job := range jobs {
		if ctx.Err() != nil {
			return
		}
		if err := s.HandleJob(ctx, job.ID); err != nil {
			s.logger.Error("Pending sync job failed", zap.Uint("job_id", job.ID), zap.Error(err))
		}
	}
}

// FailStaleJobs fails running jobs that exceeded the configured timeout
func (s *SyncScheduler) FailStaleJobs(ctx context.Context) {
	cutoff := s.now().Add(-s.cfg.SyncJobTimeout)
	jobs, err := s.syncJobRepo.FailStale(ctx, cutoff, staleJobMessage)
	if err != nil {
		s.logger.Error("Fail stale sync jobs failed", zap.Error(err))
		return
	}
	for _, job := range jobs {
		s.logger.Warn("Sync job timed out", zap.Uint("job_id", job.ID), zap.Uint("workspace_id", job.WorkspaceID))
		syncJobsProcessed.WithLabelValues(string(job.SyncType), string(models.SyncJobStatusFailed)).Inc()
		s.finish(ctx, job, errors.New(staleJobMessage))
	}
}

// HandleJob claims and runs one sync job. Jobs another worker already claimed are skipped.
// Errors are returned only when the job could not be claimed or stored, so the queue may retry.
func (s *SyncScheduler) HandleJob(ctx context.Context, jobID uint) error {
	job, err := s.syncJobRepo.ByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load sync job: %w", err)
	}
	if job == nil {
		s.logger.Warn("Sync job not found", zap.Uint("job_id", jobID))
		return nil
	}

	startedAt := s.now()
	claimed, err := s.syncJobRepo.Claim(ctx, job.ID, startedAt)
	if err != nil {
		return fmt.Errorf("claim sync job: %w", err)
	}
	if !claimed {
		s.logger.Debug("Sync job already claimed or finished", zap.Uint("job_id", job.ID))
		return nil
	}
	job.Status = models.SyncJobStatusRunning
	job.StartedAt = &startedAt
	job.Attempts++

	log := s.logger.With(
		zap.Uint("job_id", job.ID),
		zap.Uint("workspace_id", job.WorkspaceID),
		zap.String("sync_type", string(job.SyncType)))
	log.Info("Sync job started")

	stats, runErr := s.run(ctx, job)
	if runErr == nil {
		if err := s.cache.InvalidateWorkspace(ctx, job.WorkspaceID); err != nil {
			log.Warn("Dashboard cache invalidation failed", zap.Error(err))
		}
	}

	completedAt := s.now()
	job.CompletedAt = &completedAt
	job.RecordsProcessed = stats.processed
	job.RecordsCreated = stats.created
	job.RecordsUpdated = stats.updated
	job.RecordsFailed = stats.failed
	job.Status = models.SyncJobStatusCompleted
	job.ErrorMessage = nil
	if runErr != nil {
		job.Status = models.SyncJobStatusFailed
		job.ErrorMessage = utils.ToPtr(runErr.Error())
	}
	finished, err := s.syncJobRepo.Finish(ctx, job)
	if err != nil {
		return fmt.Errorf("store sync job result: %w", err)
	}
	if !finished {
		// FailStaleJobs already failed, audited and announced it
		log.Warn("Sync job stopped running before it finished; result discarded",
			zap.String("result", string(job.Status)))
		return nil
	}

	syncJobsProcessed.WithLabelValues(string(job.SyncType), string(job.Status)).Inc()
	syncJobDuration.Observe(job.Duration().Seconds())
	if runErr != nil {
		log.Error("Sync job failed", zap.Error(runErr))
	} else {
		log.Info("Sync job completed",
			zap.Int("records_processed", stats.processed),
			zap.Int("records_created", stats.created),
			zap.Int("records_updated", stats.updated),
			zap.Duration("duration", job.Duration()))
	}

	s.finish(ctx, job, runErr)
	return nil
}

func (s *SyncScheduler) run(ctx context.Context, job *models.SyncJob) (syncStats, error) {
	var stats syncStats
	switch job.SyncType {
	case models.SyncTypeMetrics:
		return s.rollUpMetrics(ctx, job)
	case models.SyncTypeCampaigns:
		return s.refreshCampaigns(ctx, job)
	case models.SyncTypeFull:
		campaigns, err := s.refreshCampaigns(ctx, job)
		stats.add(campaigns)
		if err != nil {
			return stats, err
		}
		metrics, err := s.rollUpMetrics(ctx, job)
		stats.add(metrics)
		return stats, err
	default:
		return stats, fmt.Errorf("unknown sync type %q", job.SyncType)
	}
}

// rollUpMetrics rebuilds campaign-level rows from the workspace's ad-set and ad rows
func (s *SyncScheduler) rollUpMetrics(ctx context.Context, job *models.SyncJob) (syncStats, error) {
	var stats syncStats
	from := utils.DateOnly(s.now()).AddDate(0, 0, -(rollupWindowDays - 1))
	filter := models.MetricRecordFilter{WorkspaceID: &job.WorkspaceID, DateFrom: &from}

	if job.Platform != nil {
		campaigns, err := s.campaignRepo.ByFilter(ctx, models.CampaignFilter{
			WorkspaceID: &job.WorkspaceID,
			Platform:    job.Platform,
		}, "id ASC", 0, 0)
		if err != nil {
			return stats, err
		}
		if len(campaigns) == 0 {
			return stats, nil
		}
		filter.CampaignIDs = make([]uint, 0, len(campaigns))
		for _, c := range campaigns {
			filter.CampaignIDs = append(filter.CampaignIDs, c.ID)
		}
	}

	rows, err := s.metricRepo.DetailRows(ctx, filter)
	if err != nil {
		return stats, err
	}
	records, skipped := RollUpDetailRows(rows)
	stats.processed = len(rows)
	stats.failed = skipped
	if len(records) == 0 {
		return stats, nil
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		result, err := s.metricRepo.Upsert(txCtx, records)
		if err != nil {
			return err
		}
		stats.created = result.Created
		stats.updated = result.Updated
		return nil
	})
	return stats, err
}

// refreshCampaigns runs the lifecycle check for the job's workspace
func (s *SyncScheduler) refreshCampaigns(ctx context.Context, job *models.SyncJob) (syncStats, error) {
	completed, err := s.CompleteEndedCampaigns(ctx, &job.WorkspaceID)
	return syncStats{processed: completed, updated: completed}, err
}

// CompleteEndedCampaigns moves ACTIVE campaigns whose end date has passed to COMPLETED.
// A nil workspace checks every workspace. It returns how many campaigns were completed.
func (s *SyncScheduler) CompleteEndedCampaigns(ctx context.Context, workspaceID *uint) (int, error) {
	campaigns, err := s.campaignRepo.ListEnded(ctx, workspaceID, s.now())
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, campaign := range campaigns {
		if ctx.Err() != nil {
			return completed, ctx.Err()
		}
		if err := s.completeCampaign(ctx, campaign); err != nil {
			if !errors.Is(err, errCampaignNotActive) {
				s.logger.Error("Complete campaign failed", zap.Uint("campaign_id", campaign.ID), zap.Error(err))
			}
			continue
		}
		completed++
	}
	if completed > 0 {
		s.logger.Info("Ended campaigns completed", zap.Int("count", completed))
	}
	return completed, nil
}

func (s *SyncScheduler) completeCampaign(ctx context.Context, campaign *models.Campaign) error {
	var notification *models.Notification
	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		ok, err := s.campaignRepo.UpdateStatus(txCtx, campaign.ID, models.DeliveryStatusActive, models.DeliveryStatusCompleted)
		if err != nil {
			return err
		}
		if !ok {
			return errCampaignNotActive
		}

		if err := s.audit(txCtx, campaign.WorkspaceID, models.AuditActionCampaignCompleted,
			fmt.Sprintf("Campaign %q reached its end date", campaign.Name), nil,
			map[string]any{"campaign_uuid": campaign.UUID.String()}); err != nil {
			return err
		}

		if s.notifier == nil {
			return nil
		}
		actionURL := "/campaigns/" + campaign.UUID.String()
		notification, err = s.notifier.Notify(txCtx, dto.CreateNotificationRequest{
			WorkspaceID: campaign.WorkspaceID,
			Title:       "Campaign completed",
			Message:     fmt.Sprintf("Campaign %q reached its end date and is now completed.", campaign.Name),
			Type:        string(models.NotificationTypeInfo),
			Priority:    string(models.NotificationPriorityMedium),
			Category:    string(models.NotificationCategoryCampaign),
			ActionURL:   &actionURL,
		})
		return err
	})
	if err != nil {
		return err
	}

	campaign.Status = models.DeliveryStatusCompleted
	campaignsCompleted.Inc()
	if s.cache != nil {
		if err := s.cache.InvalidateWorkspace(ctx, campaign.WorkspaceID); err != nil {
			s.logger.Warn("Dashboard cache invalidation failed", zap.Uint("workspace_id", campaign.WorkspaceID), zap.Error(err))
		}
	}
	if s.notifier != nil {
		s.notifier.Publish(ctx, notification)
	}
	return nil
}

// finish audits the job outcome and notifies the requester, or the workspace when nobody asked
func (s *SyncScheduler) finish(ctx context.Context, job *models.SyncJob, runErr error) {
	action := models.AuditActionSyncCompleted
	description := fmt.Sprintf("Sync job %s (%s) completed", job.UUID, job.SyncType)
	var errMsg *string
	if runErr != nil {
		action = models.AuditActionSyncFailed
		description = fmt.Sprintf("Sync job %s (%s) failed", job.UUID, job.SyncType)
		errMsg = utils.ToPtr(runErr.Error())
	}
	if err := s.audit(ctx, job.WorkspaceID, action, description, errMsg, map[string]any{
		"job_uuid":          job.UUID.String(),
		"records_processed": job.RecordsProcessed,
		"records_failed":    job.RecordsFailed,
	}); err != nil {
		s.logger.Warn("Sync audit failed", zap.Uint("job_id", job.ID), zap.Error(err))
	}

	if s.notifier == nil {
		return
	}
	req := dto.CreateNotificationRequest{
		WorkspaceID: job.WorkspaceID,
		UserID:      job.RequestedBy,
		Title:       "Sync completed",
		Message:     fmt.Sprintf("The %s sync finished. %d records processed.", job.SyncType, job.RecordsProcessed),
		Type:        string(models.NotificationTypeSuccess),
		Priority:    string(models.NotificationPriorityLow),
		Category:    string(models.NotificationCategorySync),
	}
	if runErr != nil {
		req.Title = "Sync failed"
		req.Message = fmt.Sprintf("The %s sync failed: %s", job.SyncType, runErr.Error())
		req.Type = string(models.NotificationTypeError)
		req.Priority = string(models.NotificationPriorityHigh)
	}
	if _, err := s.notifier.NotifyAndPublish(ctx, req); err != nil {
		s.logger.Warn("Sync notification failed", zap.Uint("job_id", job.ID), zap.Error(err))
	}
}

func (s *SyncScheduler) audit(ctx context.Context, workspaceID uint, action, description string, errMsg *string, details map[string]any) error {
	entry := &models.AuditLog{
		WorkspaceID:  &workspaceID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(errMsg == nil),
		ErrorMessage: errMsg,
	}
	if len(details) > 0 {
		if raw, err := json.Marshal(details); err == nil {
			entry.Metadata = raw
		}
	}
	return s.auditRepo.Save(ctx, entry)
}

type rollupKey struct {
	campaignID uint
	adSetID    uint
	day        int64
}

// RollUpDetailRows folds ad-set and ad rows into one campaign-level row per campaign and day.
// An ad set's own row wins over the rows of its ads; ad rows count only for ad sets without one.
// Ad rows that name no ad set cannot be attributed and are reported as skipped.
func RollUpDetailRows(rows []*models.MetricRecord) ([]*models.MetricRecord, int) {
	adSetRows := make(map[rollupKey]*models.MetricRecord)
	adRows := make(map[rollupKey]*models.MetricRecord)
	skipped := 0

	for _, r := range rows {
		day := utils.DateOnly(r.Date)
		key := rollupKey{campaignID: r.CampaignID, adSetID: r.AdSetID, day: day.Unix()}
		switch {
		case r.AdSetID == 0:
			skipped++
			continue
		case r.AdID == 0:
			accumulate(adSetRows, key, r, day)
		default:
			accumulate(adRows, key, r, day)
		}
	}
	for key, r := range adRows {
		if _, ok := adSetRows[key]; !ok {
			adSetRows[key] = r
		}
	}

	campaigns := make(map[rollupKey]*models.MetricRecord)
	for key, r := range adSetRows {
		accumulate(campaigns, rollupKey{campaignID: key.campaignID, day: key.day}, r, r.Date)
	}

	out := make([]*models.MetricRecord, 0, len(campaigns))
	for _, r := range campaigns {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CampaignID != out[j].CampaignID {
			return out[i].CampaignID < out[j].CampaignID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, skipped
}

func accumulate(into map[rollupKey]*models.MetricRecord, key rollupKey, r *models.MetricRecord, day time.Time) {
	acc, ok := into[key]
	if !ok {
		acc = &models.MetricRecord{
			WorkspaceID: r.WorkspaceID,
			CampaignID:  r.CampaignID,
			AdSetID:     key.adSetID,
			Date:        day,
		}
		into[key] = acc
	}
	acc.Impressions += r.Impressions
	acc.Clicks += r.Clicks
	acc.Conversions += r.Conversions
	acc.Reach += r.Reach
	acc.Spend = acc.Spend.Add(r.Spend)
	acc.Revenue = acc.Revenue.Add(r.Revenue)
}
