package businessflow_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/amirphl/Lovelify-Dash/app/dto"
	"github.com/amirphl/Lovelify-Dash/app/services"
	businessflow "github.com/amirphl/Lovelify-Dash/business_flow"
	"github.com/amirphl/Lovelify-Dash/models"
	"github.com/amirphl/Lovelify-Dash/repository"
	testingutil "github.com/amirphl/Lovelify-Dash/testing"
	"github.com/amirphl/Lovelify-Dash/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingQueue remembers published job ids without running them
type recordingQueue struct {
	mu  sync.Mutex
	ids []uint
}

func (q *recordingQueue) Publish(ctx context.Context, jobID uint) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, jobID)
	return nil
}

func (q *recordingQueue) Consume(ctx context.Context, handler services.SyncJobHandler) error {
	<-ctx.Done()
	return nil
}

func (q *recordingQueue) Close() error { return nil }

func (q *recordingQueue) published() []uint {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]uint(nil), q.ids...)
}

func TestSyncFlow(t *testing.T) {
	tdb, fx := setupDB(t)
	ctx := testingutil.CreateTestContext()

	syncJobRepo := repository.NewSyncJobRepository(tdb.DB)
	queue := &recordingQueue{}
	flow := businessflow.NewSyncFlow(
		syncJobRepo,
		repository.NewAuditLogRepository(tdb.DB),
		queue,
		services.NewDashboardCache(nil, time.Minute),
		zap.NewNop(),
		tdb.DB,
	)

	ws, err := fx.CreateTestWorkspace()
	require.NoError(t, err)
	user, err := fx.CreateTestUser(ws.ID, models.UserRoleAdmin)
	require.NoError(t, err)
	other, err := fx.CreateTestWorkspace()
	require.NoError(t, err)

	request := func(syncType string) *dto.RequestSyncResponse {
		resp, err := flow.RequestSync(ctx, &dto.RequestSyncRequest{
			WorkspaceID: ws.ID,
			UserID:      user.ID,
			SyncType:    syncType,
			Platform:    utils.ToPtr("meta"),
		}, testMetadata())
		require.NoError(t, err)
		return resp
	}

	var metricsJob *dto.RequestSyncResponse

	t.Run("RequestQueuesJob", func(t *testing.T) {
		metricsJob = request("metrics")
		assert.False(t, metricsJob.Reused)
		assert.Equal(t, "pending", metricsJob.Job.Status)
		require.NotNil(t, metricsJob.Job.Platform)
		assert.Equal(t, "meta", *metricsJob.Job.Platform)
		assert.Len(t, queue.published(), 1)
	})

	t.Run("RequestReusesActiveJob", func(t *testing.T) {
		again := request("metrics")
		assert.True(t, again.Reused)
		assert.Equal(t, metricsJob.Job.UUID, again.Job.UUID)
		assert.Len(t, queue.published(), 1, "a reused job is not published twice")
	})

	t.Run("StatusReportsSyncing", func(t *testing.T) {
		status, err := flow.Status(ctx, ws.ID)
		require.NoError(t, err)
		assert.True(t, status.IsSyncing)
		require.NotNil(t, status.Latest["metrics"])
		assert.Equal(t, metricsJob.Job.UUID, status.Latest["metrics"].UUID)
		assert.Nil(t, status.Latest["full"])
		assert.Nil(t, status.LastSyncedAt)
	})

	t.Run("CancelPendingOnly", func(t *testing.T) {
		cancelled, err := flow.CancelSyncJob(ctx, ws.ID, user.ID, metricsJob.Job.UUID, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, "cancelled", cancelled.Status)

		_, err = flow.CancelSyncJob(ctx, ws.ID, user.ID, metricsJob.Job.UUID, testMetadata())
		assert.ErrorIs(t, err, businessflow.ErrSyncJobNotCancellable)

		status, err := flow.Status(ctx, ws.ID)
		require.NoError(t, err)
		assert.False(t, status.IsSyncing)
	})

	t.Run("GetIsWorkspaceScoped", func(t *testing.T) {
		got, err := flow.GetSyncJob(ctx, ws.ID, metricsJob.Job.UUID)
		require.NoError(t, err)
		assert.Equal(t, metricsJob.Job.UUID, got.UUID)

		_, err = flow.GetSyncJob(ctx, other.ID, metricsJob.Job.UUID)
		assert.True(t, businessflow.IsNotFound(err))
	})

	t.Run("ListFiltersByStatus", func(t *testing.T) {
		request("full")

		all, err := flow.ListSyncJobs(ctx, &dto.ListSyncJobsRequest{WorkspaceID: ws.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(2), all.Pagination.TotalCount)
		assert.Equal(t, "full", all.Items[0].SyncType, "newest first")

		pending, err := flow.ListSyncJobs(ctx, &dto.ListSyncJobsRequest{WorkspaceID: ws.ID, Status: "pending"})
		require.NoError(t, err)
		require.Len(t, pending.Items, 1)
		assert.Equal(t, "full", pending.Items[0].SyncType)
	})

	t.Run("HeldLockWithoutActiveJob", func(t *testing.T) {
		cache := services.NewDashboardCache(nil, time.Minute)
		locked := businessflow.NewSyncFlow(syncJobRepo, repository.NewAuditLogRepository(tdb.DB), queue, cache, zap.NewNop(), tdb.DB)

		ws2, err := fx.CreateTestWorkspace()
		require.NoError(t, err)
		ok, err := cache.AcquireLock(ctx, fmt.Sprintf("%s%d:campaigns", utils.SyncRequestLockPrefix, ws2.ID), time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		_, err = locked.RequestSync(ctx, &dto.RequestSyncRequest{WorkspaceID: ws2.ID, UserID: user.ID, SyncType: "campaigns"}, testMetadata())
		assert.True(t, businessflow.IsSyncInProgress(err))
	})
}
