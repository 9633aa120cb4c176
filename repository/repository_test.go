package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/amirphl/Lovelify-Dash/models"
	"github.com/amirphl/Lovelify-Dash/repository"
	testingutil "github.com/amirphl/Lovelify-Dash/testing"
	"github.com/amirphl/Lovelify-Dash/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) (*testingutil.TestDB, *testingutil.TestFixtures) {
	t.Helper()
	if !testingutil.Available() {
		t.Skip("PostgreSQL test database is not reachable")
	}
	tdb, err := testingutil.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = tdb.TeardownTestDB() })
	return tdb, testingutil.NewTestFixtures(tdb)
}

func TestCampaignRepository(t *testing.T) {
	tdb, fx := setupDB(t)
	ctx := testingutil.CreateTestContext()
	repo := repository.NewCampaignRepository(tdb.DB)

	ws, err := fx.CreateTestWorkspace()
	require.NoError(t, err)
	other, err := fx.CreateTestWorkspace()
	require.NoError(t, err)

	draft, err := fx.CreateTestCampaign(ws.ID, "Spring Sale", models.DeliveryStatusDraft)
	require.NoError(t, err)
	_, err = fx.CreateTestCampaign(ws.ID, "Summer Launch", models.DeliveryStatusActive)
	require.NoError(t, err)
	_, err = fx.CreateTestCampaign(other.ID, "Spring Sale", models.DeliveryStatusDraft)
	require.NoError(t, err)

	t.Run("ByUUID", func(t *testing.T) {
		got, err := repo.ByUUID(ctx, draft.UUID.String())
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, draft.ID, got.ID)
		assert.True(t, got.Budget.Equal(decimal.NewFromInt(100)))
	})

	t.Run("ByUUIDNotFound", func(t *testing.T) {
		got, err := repo.ByUUID(ctx, "8b0a3c56-5f0e-4c52-9a4c-3e1fd0e0b0aa")
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ByFilterIsWorkspaceScoped", func(t *testing.T) {
		name := "spring"
		got, err := repo.ByFilter(ctx, models.CampaignFilter{WorkspaceID: &ws.ID, Name: &name}, "id ASC", 0, 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, draft.ID, got[0].ID)

		count, err := repo.Count(ctx, models.CampaignFilter{WorkspaceID: &ws.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("UpdateStatusCompareAndSet", func(t *testing.T) {
		ok, err := repo.UpdateStatus(ctx, draft.ID, models.DeliveryStatusDraft, models.DeliveryStatusActive)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.UpdateStatus(ctx, draft.ID, models.DeliveryStatusDraft, models.DeliveryStatusPaused)
		require.NoError(t, err)
		assert.False(t, ok, "second transition from a stale status must not match")

		got, err := repo.ByID(ctx, draft.ID)
		require.NoError(t, err)
		assert.Equal(t, models.DeliveryStatusActive, got.Status)
	})

	t.Run("AdSetCounts", func(t *testing.T) {
		_, err := fx.CreateTestAdSet(draft, "Broad")
		require.NoError(t, err)
		_, err = fx.CreateTestAdSet(draft, "Lookalike")
		require.NoError(t, err)

		counts, err := repo.AdSetCounts(ctx, []uint{draft.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(2), counts[draft.ID])
	})

	t.Run("ListEnded", func(t *testing.T) {
		ended, err := fx.CreateTestCampaign(ws.ID, "Winter", models.DeliveryStatusActive)
		require.NoError(t, err)
		yesterday := utils.DateOnly(time.Now().AddDate(0, 0, -1))
		require.NoError(t, tdb.DB.Model(ended).Update("end_date", yesterday).Error)

		got, err := repo.ListEnded(ctx, &ws.ID, time.Now())
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, ended.ID, got[0].ID)
	})
}

func TestWithTransactionRollsBack(t *testing.T) {
	tdb, fx := setupDB(t)
	ctx := context.Background()
	repo := repository.NewCampaignRepository(tdb.DB)

	ws, err := fx.CreateTestWorkspace()
	require.NoError(t, err)

	err = repository.WithTransaction(ctx, tdb.DB, func(txCtx context.Context) error {
		c := &models.Campaign{
			WorkspaceID: ws.ID,
			Name:        "Doomed",
			Platform:    models.PlatformGoogle,
			Objective:   "sales",
			Budget:      decimal.NewFromInt(10),
			StartDate:   utils.DateOnly(time.Now()),
		}
		if err := repo.Save(txCtx, c); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	count, err := repo.Count(ctx, models.CampaignFilter{WorkspaceID: &ws.ID})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMetricRecordRepository(t *testing.T) {
	tdb, fx := setupDB(t)
	ctx := context.Background()
	repo := repository.NewMetricRecordRepository(tdb.DB)

	ws, err := fx.CreateTestWorkspace()
	require.NoError(t, err)
	c1, err := fx.CreateTestCampaign(ws.ID, "One", models.DeliveryStatusActive)
	require.NoError(t, err)
	c2, err := fx.CreateTestCampaign(ws.ID, "Two", models.DeliveryStatusActive)
	require.NoError(t, err)

	day1 := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	rec := func(c *models.Campaign, d time.Time, imps, clicks int64, spend string) *models.MetricRecord {
		return &models.MetricRecord{
			WorkspaceID: ws.ID, CampaignID: c.ID, Date: d,
			Impressions: imps, Clicks: clicks, Spend: decimal.RequireFromString(spend),
		}
	}

	t.Run("UpsertCreatesThenUpdates", func(t *testing.T) {
		res, err := repo.Upsert(ctx, []*models.MetricRecord{
			rec(c1, day1, 1000, 10, "5.00"),
			rec(c1, day2, 2000, 20, "10.00"),
			rec(c2, day1, 500, 5, "2.50"),
		})
		require.NoError(t, err)
		assert.Equal(t, repository.UpsertResult{Created: 3, Updated: 0}, res)

		res, err = repo.Upsert(ctx, []*models.MetricRecord{
			rec(c1, day1, 1500, 15, "7.50"),
			rec(c1, day1, 1200, 12, "6.00"),
		})
		require.NoError(t, err)
		assert.Equal(t, repository.UpsertResult{Created: 0, Updated: 1}, res)

		count, err := repo.Count(ctx, models.MetricRecordFilter{WorkspaceID: &ws.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("Totals", func(t *testing.T) {
		totals, err := repo.Totals(ctx, models.MetricRecordFilter{WorkspaceID: &ws.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(1200+2000+500), totals.Impressions)
		assert.Equal(t, int64(12+20+5), totals.Clicks)
		assert.True(t, totals.Spend.Equal(decimal.RequireFromString("18.50")), totals.Spend.String())
	})

	t.Run("DailyTotalsRespectDateBounds", func(t *testing.T) {
		rows, err := repo.DailyTotals(ctx, models.MetricRecordFilter{WorkspaceID: &ws.ID, DateFrom: &day2, DateTo: &day2})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, int64(2000), rows[0].Impressions)
	})

	t.Run("TotalsByCampaign", func(t *testing.T) {
		rows, err := repo.TotalsByCampaign(ctx, models.MetricRecordFilter{WorkspaceID: &ws.ID})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, c1.ID, rows[0].CampaignID)
		assert.Equal(t, int64(3200), rows[0].Impressions)
		assert.Equal(t, c2.ID, rows[1].CampaignID)
	})

	t.Run("DetailRowsAreExcludedFromTotals", func(t *testing.T) {
		adSet, err := fx.CreateTestAdSet(c2, "Detail")
		require.NoError(t, err)
		detail := rec(c2, day1, 99999, 999, "99.00")
		detail.AdSetID = adSet.ID
		_, err = repo.Upsert(ctx, []*models.MetricRecord{detail})
		require.NoError(t, err)

		totals, err := repo.Totals(ctx, models.MetricRecordFilter{CampaignID: &c2.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(500), totals.Impressions)

		rows, err := repo.DetailRows(ctx, models.MetricRecordFilter{CampaignID: &c2.ID})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, adSet.ID, rows[0].AdSetID)
	})
}

func TestNotificationRepository(t *testing.T) {
	tdb, fx := setupDB(t)
	ctx := context.Background()
	repo := repository.NewNotificationRepository(tdb.DB)

	ws, err := fx.CreateTestWorkspace()
	require.NoError(t, err)
	alice, err := fx.CreateTestUser(ws.ID, models.UserRoleOwner)
	require.NoError(t, err)
	bob, err := fx.CreateTestUser(ws.ID, models.UserRoleMember)
	require.NoError(t, err)

	require.NoError(t, repo.SaveBatch(ctx, []*models.Notification{
		{WorkspaceID: ws.ID, Title: "Broadcast", Message: "to everyone"},
		{WorkspaceID: ws.ID, UserID: &alice.ID, Title: "Alice", Message: "only alice"},
		{WorkspaceID: ws.ID, UserID: &bob.ID, Title: "Bob", Message: "only bob"},
	}))

	unread := false
	count, err := repo.Count(ctx, models.NotificationFilter{WorkspaceID: &ws.ID, VisibleToUserID: &alice.ID, Read: &unread})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	marked, err := repo.MarkAllRead(ctx, ws.ID, alice.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(2), marked)

	count, err = repo.Count(ctx, models.NotificationFilter{WorkspaceID: &ws.ID, VisibleToUserID: &bob.ID, Read: &unread})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "bob still has his own unread notification")
}

func TestSyncJobRepository(t *testing.T) {
	tdb, fx := setupDB(t)
	ctx := context.Background()
	repo := repository.NewSyncJobRepository(tdb.DB)

	ws, err := fx.CreateTestWorkspace()
	require.NoError(t, err)

	job := &models.SyncJob{WorkspaceID: ws.ID, SyncType: models.SyncTypeMetrics}
	require.NoError(t, repo.Save(ctx, job))

	t.Run("ActiveByType", func(t *testing.T) {
		active, err := repo.ActiveByType(ctx, ws.ID, models.SyncTypeMetrics)
		require.NoError(t, err)
		require.NotNil(t, active)
		assert.Equal(t, job.ID, active.ID)

		none, err := repo.ActiveByType(ctx, ws.ID, models.SyncTypeFull)
		require.NoError(t, err)
		assert.Nil(t, none)
	})

	t.Run("ClaimHasSingleWinner", func(t *testing.T) {
		var wg sync.WaitGroup
		var mu sync.Mutex
		wins := 0
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := repo.Claim(ctx, job.ID, time.Now().UTC())
				assert.NoError(t, err)
				if ok {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, wins)

		got, err := repo.ByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SyncJobStatusRunning, got.Status)
		assert.Equal(t, 1, got.Attempts)
		assert.NotNil(t, got.StartedAt)
	})

	t.Run("CancelOnlyPending", func(t *testing.T) {
		ok, err := repo.Cancel(ctx, job.ID, time.Now().UTC())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("FailStale", func(t *testing.T) {
		failed, err := repo.FailStale(ctx, time.Now().UTC().Add(time.Minute), "timed out")
		require.NoError(t, err)
		require.Len(t, failed, 1)
		assert.Equal(t, job.ID, failed[0].ID)

		got, err := repo.ByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SyncJobStatusFailed, got.Status)
		require.NotNil(t, got.ErrorMessage)
		assert.Equal(t, "timed out", *got.ErrorMessage)
	})

	t.Run("FinishOnlyRunning", func(t *testing.T) {
		// the job was failed as stale above, so a late result must not overwrite it
		late := *job
		late.Status = models.SyncJobStatusCompleted
		late.RecordsProcessed = 7
		late.ErrorMessage = nil
		ok, err := repo.Finish(ctx, &late)
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := repo.ByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SyncJobStatusFailed, got.Status)
		assert.Zero(t, got.RecordsProcessed)

		running := &models.SyncJob{WorkspaceID: ws.ID, SyncType: models.SyncTypeCampaigns}
		require.NoError(t, repo.Save(ctx, running))
		won, err := repo.Claim(ctx, running.ID, time.Now().UTC())
		require.NoError(t, err)
		require.True(t, won)

		running.Status = models.SyncJobStatusCompleted
		running.RecordsProcessed = 3
		ok, err = repo.Finish(ctx, running)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err = repo.ByID(ctx, running.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SyncJobStatusCompleted, got.Status)
		assert.Equal(t, 3, got.RecordsProcessed)
		assert.NotNil(t, got.CompletedAt)
	})

	t.Run("LatestByType", func(t *testing.T) {
		newer := &models.SyncJob{WorkspaceID: ws.ID, SyncType: models.SyncTypeMetrics}
		require.NoError(t, repo.Save(ctx, newer))
		full := &models.SyncJob{WorkspaceID: ws.ID, SyncType: models.SyncTypeFull}
		require.NoError(t, repo.Save(ctx, full))

		latest, err := repo.LatestByType(ctx, ws.ID)
		require.NoError(t, err)
		assert.Len(t, latest, 3)
		assert.Equal(t, newer.ID, latest[models.SyncTypeMetrics].ID)
		assert.Equal(t, full.ID, latest[models.SyncTypeFull].ID)
	})
}

func TestAuditLogRepository(t *testing.T) {
	tdb, fx := setupDB(t)
	ctx := context.Background()
	repo := repository.NewAuditLogRepository(tdb.DB)

	ws, err := fx.CreateTestWorkspace()
	require.NoError(t, err)

	_, err = fx.CreateTestAuditLog(&ws.ID, models.AuditActionLoginSuccess, true)
	require.NoError(t, err)
	_, err = fx.CreateTestAuditLog(&ws.ID, models.AuditActionLoginFailed, false)
	require.NoError(t, err)

	logs, err := repo.ListByWorkspace(ctx, ws.ID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	failed, err := repo.ListFailedActions(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, models.AuditActionLoginFailed, failed[0].Action)
}
