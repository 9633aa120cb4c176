package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/Lovelify-Dash/app/scheduler"
	"github.com/amirphl/Lovelify-Dash/app/services"
	businessflow "github.com/amirphl/Lovelify-Dash/business_flow"
	"github.com/amirphl/Lovelify-Dash/config"
	"github.com/amirphl/Lovelify-Dash/models"
	"github.com/amirphl/Lovelify-Dash/repository"
	testingutil "github.com/amirphl/Lovelify-Dash/testing"
	"github.com/amirphl/Lovelify-Dash/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type harness struct {
	tdb          *testingutil.TestDB
	fx           *testingutil.TestFixtures
	syncJobRepo  repository.SyncJobRepository
	campaignRepo repository.CampaignRepository
	metricRepo   repository.MetricRecordRepository
	notifyRepo   repository.NotificationRepository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	if !testingutil.Available() {
		t.Skip("PostgreSQL test database is not reachable")
	}
	tdb, err := testingutil.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = tdb.TeardownTestDB() })

	return &harness{
		tdb:          tdb,
		fx:           testingutil.NewTestFixtures(tdb),
		syncJobRepo:  repository.NewSyncJobRepository(tdb.DB),
		campaignRepo: repository.NewCampaignRepository(tdb.DB),
		metricRepo:   repository.NewMetricRecordRepository(tdb.DB),
		notifyRepo:   repository.NewNotificationRepository(tdb.DB),
	}
}

func (h *harness) scheduler(queue services.SyncQueue, cfg config.SchedulerConfig) *scheduler.SyncScheduler {
	return h.schedulerWith(h.syncJobRepo, queue, cfg)
}

func (h *harness) schedulerWith(jobs repository.SyncJobRepository, queue services.SyncQueue, cfg config.SchedulerConfig) *scheduler.SyncScheduler {
	return scheduler.NewSyncScheduler(
		jobs,
		h.campaignRepo,
		h.metricRepo,
		repository.NewAuditLogRepository(h.tdb.DB),
		businessflow.NewNotifier(h.notifyRepo, nil, zap.NewNop()),
		queue,
		services.NewDashboardCache(nil, time.Minute),
		h.tdb.DB,
		zap.NewNop(),
		cfg,
	)
}

func TestHandleJobRollsUpMetrics(t *testing.T) {
	h := newHarness(t)
	ctx := testingutil.CreateTestContext()
	s := h.scheduler(nil, config.SchedulerConfig{})

	ws, err := h.fx.CreateTestWorkspace()
	require.NoError(t, err)
	user, err := h.fx.CreateTestUser(ws.ID, models.UserRoleOwner)
	require.NoError(t, err)
	campaign, err := h.fx.CreateTestCampaign(ws.ID, "Roll-up", models.DeliveryStatusActive)
	require.NoError(t, err)
	withRow, err := h.fx.CreateTestAdSet(campaign, "With row")
	require.NoError(t, err)
	adsOnly, err := h.fx.CreateTestAdSet(campaign, "Ads only")
	require.NoError(t, err)

	today := utils.DateOnly(time.Now())
	rows := []*models.MetricRecord{
		{WorkspaceID: ws.ID, CampaignID: campaign.ID, AdSetID: withRow.ID, Date: today, Impressions: 100, Spend: decimal.RequireFromString("10")},
		{WorkspaceID: ws.ID, CampaignID: campaign.ID, AdSetID: adsOnly.ID, AdID: 1, Date: today, Impressions: 40, Spend: decimal.RequireFromString("2")},
		{WorkspaceID: ws.ID, CampaignID: campaign.ID, AdSetID: adsOnly.ID, AdID: 2, Date: today, Impressions: 60, Spend: decimal.RequireFromString("3")},
	}
	require.NoError(t, h.tdb.DB.Create(&rows).Error)

	job := &models.SyncJob{WorkspaceID: ws.ID, RequestedBy: &user.ID, SyncType: models.SyncTypeMetrics}
	require.NoError(t, h.syncJobRepo.Save(ctx, job))

	require.NoError(t, s.HandleJob(ctx, job.ID))

	stored, err := h.syncJobRepo.ByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncJobStatusCompleted, stored.Status)
	assert.Equal(t, 3, stored.RecordsProcessed)
	assert.Equal(t, 1, stored.RecordsCreated)
	assert.Equal(t, 1, stored.Attempts)
	require.NotNil(t, stored.CompletedAt)
	assert.Nil(t, stored.ErrorMessage)

	totals, err := h.metricRepo.Totals(ctx, models.MetricRecordFilter{WorkspaceID: &ws.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(200), totals.Impressions)
	assert.True(t, decimal.RequireFromString("15").Equal(totals.Spend), totals.Spend.String())

	category := models.NotificationCategorySync
	notes, err := h.notifyRepo.ByFilter(ctx, models.NotificationFilter{WorkspaceID: &ws.ID, Category: &category}, "", 0, 0)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.NotNil(t, notes[0].UserID)
	assert.Equal(t, user.ID, *notes[0].UserID)
	assert.Equal(t, "Sync completed", notes[0].Title)

	t.Run("SecondDeliveryIsIgnored", func(t *testing.T) {
		require.NoError(t, s.HandleJob(ctx, job.ID))
		again, err := h.syncJobRepo.ByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, again.Attempts)
	})

	t.Run("UnknownJobIsIgnored", func(t *testing.T) {
		assert.NoError(t, s.HandleJob(ctx, 999999))
	})
}

func TestCompleteEndedCampaigns(t *testing.T) {
	h := newHarness(t)
	ctx := testingutil.CreateTestContext()
	s := h.scheduler(nil, config.SchedulerConfig{})

	ws, err := h.fx.CreateTestWorkspace()
	require.NoError(t, err)
	yesterday := utils.DateOnly(time.Now()).AddDate(0, 0, -1)
	tomorrow := utils.DateOnly(time.Now()).AddDate(0, 0, 1)

	ended, err := h.fx.CreateTestCampaign(ws.ID, "Ended", models.DeliveryStatusActive)
	require.NoError(t, err)
	require.NoError(t, h.tdb.DB.Model(ended).Update("end_date", yesterday).Error)

	running, err := h.fx.CreateTestCampaign(ws.ID, "Running", models.DeliveryStatusActive)
	require.NoError(t, err)
	require.NoError(t, h.tdb.DB.Model(running).Update("end_date", tomorrow).Error)

	paused, err := h.fx.CreateTestCampaign(ws.ID, "Paused", models.DeliveryStatusPaused)
	require.NoError(t, err)
	require.NoError(t, h.tdb.DB.Model(paused).Update("end_date", yesterday).Error)

	count, err := s.CompleteEndedCampaigns(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	statusOf := func(id uint) models.DeliveryStatus {
		c, err := h.campaignRepo.ByID(ctx, id)
		require.NoError(t, err)
		return c.Status
	}
	assert.Equal(t, models.DeliveryStatusCompleted, statusOf(ended.ID))
	assert.Equal(t, models.DeliveryStatusActive, statusOf(running.ID))
	assert.Equal(t, models.DeliveryStatusPaused, statusOf(paused.ID))

	category := models.NotificationCategoryCampaign
	notes, err := h.notifyRepo.ByFilter(ctx, models.NotificationFilter{WorkspaceID: &ws.ID, Category: &category}, "", 0, 0)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0].Message, "Ended")

	count, err = s.CompleteEndedCampaigns(ctx, &ws.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestFailStaleJobs(t *testing.T) {
	h := newHarness(t)
	ctx := testingutil.CreateTestContext()
	s := h.scheduler(nil, config.SchedulerConfig{SyncJobTimeout: time.Minute})

	ws, err := h.fx.CreateTestWorkspace()
	require.NoError(t, err)

	startedLongAgo := time.Now().UTC().Add(-time.Hour)
	stale := &models.SyncJob{WorkspaceID: ws.ID, SyncType: models.SyncTypeFull, Status: models.SyncJobStatusRunning, StartedAt: &startedLongAgo}
	require.NoError(t, h.syncJobRepo.Save(ctx, stale))

	startedNow := time.Now().UTC()
	fresh := &models.SyncJob{WorkspaceID: ws.ID, SyncType: models.SyncTypeMetrics, Status: models.SyncJobStatusRunning, StartedAt: &startedNow}
	require.NoError(t, h.syncJobRepo.Save(ctx, fresh))

	s.FailStaleJobs(ctx)

	got, err := h.syncJobRepo.ByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncJobStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "sync job timed out", *got.ErrorMessage)

	got, err = h.syncJobRepo.ByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncJobStatusRunning, got.Status)
}

// staleAfterClaim lets the stale sweep fail a job right after a worker claims it
type staleAfterClaim struct {
	repository.SyncJobRepository
}

func (r staleAfterClaim) Claim(ctx context.Context, id uint, at time.Time) (bool, error) {
	won, err := r.SyncJobRepository.Claim(ctx, id, at)
	if err != nil || !won {
		return won, err
	}
	_, err = r.FailStale(ctx, at.Add(time.Second), "sync job timed out")
	return true, err
}

func TestHandleJobKeepsStaleFailure(t *testing.T) {
	h := newHarness(t)
	ctx := testingutil.CreateTestContext()
	s := h.schedulerWith(staleAfterClaim{h.syncJobRepo}, nil, config.SchedulerConfig{})

	ws, err := h.fx.CreateTestWorkspace()
	require.NoError(t, err)
	user, err := h.fx.CreateTestUser(ws.ID, models.UserRoleOwner)
	require.NoError(t, err)

	job := &models.SyncJob{WorkspaceID: ws.ID, RequestedBy: &user.ID, SyncType: models.SyncTypeCampaigns}
	require.NoError(t, h.syncJobRepo.Save(ctx, job))

	require.NoError(t, s.HandleJob(ctx, job.ID))

	stored, err := h.syncJobRepo.ByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncJobStatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Equal(t, "sync job timed out", *stored.ErrorMessage)
	assert.Zero(t, stored.RecordsProcessed)

	category := models.NotificationCategorySync
	notes, err := h.notifyRepo.ByFilter(ctx, models.NotificationFilter{WorkspaceID: &ws.ID, Category: &category}, "", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, notes, "the discarded result is not announced")
}

func TestStartProcessesQueuedJobs(t *testing.T) {
	h := newHarness(t)
	ctx := testingutil.CreateTestContext()

	queue := services.NewInMemorySyncQueue(8, 1, 0, zap.NewNop())
	defer func() { _ = queue.Close() }()
	s := h.scheduler(queue, config.SchedulerConfig{
		SyncPollInterval:  time.Hour,
		LifecycleInterval: time.Hour,
	})

	stop := s.Start(ctx)
	defer stop()

	ws, err := h.fx.CreateTestWorkspace()
	require.NoError(t, err)
	job := &models.SyncJob{WorkspaceID: ws.ID, SyncType: models.SyncTypeCampaigns}
	require.NoError(t, h.syncJobRepo.Save(ctx, job))
	require.NoError(t, queue.Publish(ctx, job.ID))

	assert.Eventually(t, func() bool {
		got, err := h.syncJobRepo.ByID(ctx, job.ID)
		return err == nil && got != nil && got.Status == models.SyncJobStatusCompleted
	}, 5*time.Second, 20*time.Millisecond)
}
