package businessflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/Lovelify-Dash/app/dto"
	businessflow "github.com/amirphl/Lovelify-Dash/business_flow"
	"github.com/amirphl/Lovelify-Dash/models"
	"github.com/amirphl/Lovelify-Dash/repository"
	testingutil "github.com/amirphl/Lovelify-Dash/testing"
	"github.com/amirphl/Lovelify-Dash/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
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

func testMetadata() *businessflow.ClientMetadata {
	return businessflow.NewClientMetadata("127.0.0.1", "Test User Agent")
}

// summaryRecorder records which workspaces had their dashboard summaries dropped
type summaryRecorder struct {
	workspaces []uint
}

func (r *summaryRecorder) InvalidateWorkspace(_ context.Context, workspaceID uint) error {
	r.workspaces = append(r.workspaces, workspaceID)
	return nil
}

func (r *summaryRecorder) take() []uint {
	out := r.workspaces
	r.workspaces = nil
	return out
}

func TestCampaignFlow(t *testing.T) {
	tdb, fx := setupDB(t)
	ctx := testingutil.CreateTestContext()

	campaignRepo := repository.NewCampaignRepository(tdb.DB)
	workspaceRepo := repository.NewWorkspaceRepository(tdb.DB)
	metricRepo := repository.NewMetricRecordRepository(tdb.DB)
	auditRepo := repository.NewAuditLogRepository(tdb.DB)
	notificationRepo := repository.NewNotificationRepository(tdb.DB)
	notifier := businessflow.NewNotifier(notificationRepo, nil, zap.NewNop())

	summaries := &summaryRecorder{}
	flow := businessflow.NewCampaignFlow(campaignRepo, workspaceRepo, metricRepo, auditRepo, notifier, summaries, zap.NewNop(), tdb.DB)

	ws, err := fx.CreateTestWorkspace()
	require.NoError(t, err)
	owner, err := fx.CreateTestUser(ws.ID, models.UserRoleOwner)
	require.NoError(t, err)
	member, err := fx.CreateTestUser(ws.ID, models.UserRoleMember)
	require.NoError(t, err)
	other, err := fx.CreateTestWorkspace()
	require.NoError(t, err)

	createReq := func(name string, budget float64) *dto.CreateCampaignRequest {
		return &dto.CreateCampaignRequest{
			WorkspaceID: ws.ID,
			UserID:      owner.ID,
			Name:        name,
			Platform:    "meta",
			Objective:   "traffic",
			Budget:      budget,
			StartDate:   "2025-05-01",
			EndDate:     utils.ToPtr("2025-05-31"),
		}
	}

	t.Run("CreateCampaign", func(t *testing.T) {
		resp, err := flow.CreateCampaign(ctx, createReq("Spring Sale", 150), testMetadata())
		require.NoError(t, err)
		assert.Equal(t, "Spring Sale", resp.Name)
		assert.Equal(t, "DRAFT", resp.Status.Value)
		assert.Equal(t, "Meta Ads", resp.PlatformName)
		assert.Equal(t, "2025-05-01", resp.StartDate)
		require.NotNil(t, resp.EndDate)
		assert.Equal(t, "2025-05-31", *resp.EndDate)
	})

	t.Run("RejectsEmptyNameWithoutWrite", func(t *testing.T) {
		before, err := campaignRepo.Count(ctx, models.CampaignFilter{WorkspaceID: &ws.ID})
		require.NoError(t, err)

		_, err = flow.CreateCampaign(ctx, createReq("   ", 150), testMetadata())
		require.Error(t, err)
		assert.True(t, businessflow.IsInvalidInput(err))

		_, err = flow.CreateCampaign(ctx, createReq("Zero Budget", 0), testMetadata())
		require.Error(t, err)
		assert.True(t, businessflow.IsInvalidInput(err))

		after, err := campaignRepo.Count(ctx, models.CampaignFilter{WorkspaceID: &ws.ID})
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("RejectsObjectiveOfAnotherPlatform", func(t *testing.T) {
		req := createReq("TikTok only", 10)
		req.Objective = "video_views"
		_, err := flow.CreateCampaign(ctx, req, testMetadata())
		assert.ErrorIs(t, err, businessflow.ErrInvalidObjective)
	})

	t.Run("ChangeStatusAndNotify", func(t *testing.T) {
		created, err := flow.CreateCampaign(ctx, createReq("Launch", 50), testMetadata())
		require.NoError(t, err)
		summaries.take()

		resp, err := flow.ChangeStatus(ctx, &dto.ChangeStatusRequest{
			WorkspaceID: ws.ID,
			UserID:      owner.ID,
			Role:        string(owner.Role),
			UUID:        created.UUID,
			Status:      "ACTIVE",
		}, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, "ACTIVE", resp.Status.Value)
		// the cached summary counts active campaigns
		assert.Equal(t, []uint{ws.ID}, summaries.take())

		category := models.NotificationCategoryCampaign
		notifications, err := notificationRepo.ByFilter(ctx, models.NotificationFilter{
			WorkspaceID: &ws.ID,
			Category:    &category,
		}, "id DESC", 0, 0)
		require.NoError(t, err)
		require.NotEmpty(t, notifications)
		assert.Nil(t, notifications[0].UserID)
		assert.Contains(t, notifications[0].Message, "Launch")

		transitions, err := flow.Transitions(ctx, ws.ID, created.UUID)
		require.NoError(t, err)
		assert.Equal(t, "ACTIVE", transitions.Current.Value)
		require.Len(t, transitions.Available, len(models.AvailableTransitions(models.DeliveryStatusActive)))
	})

	t.Run("ChangeStatusRequiresManager", func(t *testing.T) {
		created, err := flow.CreateCampaign(ctx, createReq("Members only", 50), testMetadata())
		require.NoError(t, err)

		_, err = flow.ChangeStatus(ctx, &dto.ChangeStatusRequest{
			WorkspaceID: ws.ID,
			UserID:      member.ID,
			Role:        string(member.Role),
			UUID:        created.UUID,
			Status:      "ACTIVE",
		}, testMetadata())
		assert.True(t, businessflow.IsForbidden(err))
		assert.Empty(t, summaries.take())
	})

	t.Run("DisallowedTransition", func(t *testing.T) {
		created, err := flow.CreateCampaign(ctx, createReq("Straight to done", 50), testMetadata())
		require.NoError(t, err)

		_, err = flow.ChangeStatus(ctx, &dto.ChangeStatusRequest{
			WorkspaceID: ws.ID,
			UserID:      owner.ID,
			Role:        string(owner.Role),
			UUID:        created.UUID,
			Status:      "COMPLETED",
		}, testMetadata())
		assert.True(t, businessflow.IsInvalidStatusTransition(err))
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		created, err := flow.CreateCampaign(ctx, createReq("Private", 50), testMetadata())
		require.NoError(t, err)

		_, err = flow.GetCampaign(ctx, other.ID, created.UUID)
		assert.True(t, businessflow.IsCampaignNotFound(err))

		_, err = flow.GetCampaign(ctx, ws.ID, "not-a-uuid")
		assert.True(t, businessflow.IsCampaignNotFound(err))
	})

	t.Run("UpdateAndDelete", func(t *testing.T) {
		created, err := flow.CreateCampaign(ctx, createReq("Editable", 50), testMetadata())
		require.NoError(t, err)

		updated, err := flow.UpdateCampaign(ctx, &dto.UpdateCampaignRequest{
			WorkspaceID:  ws.ID,
			UserID:       owner.ID,
			UUID:         created.UUID,
			Name:         utils.ToPtr("Edited"),
			ClearEndDate: true,
		}, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, "Edited", updated.Name)
		assert.Nil(t, updated.EndDate)

		_, err = flow.UpdateCampaign(ctx, &dto.UpdateCampaignRequest{WorkspaceID: ws.ID, UUID: created.UUID}, testMetadata())
		assert.ErrorIs(t, err, businessflow.ErrCampaignUpdateRequired)

		summaries.take()
		require.NoError(t, flow.DeleteCampaign(ctx, ws.ID, owner.ID, created.UUID, testMetadata()))
		assert.Equal(t, []uint{ws.ID}, summaries.take())
		_, err = flow.GetCampaign(ctx, ws.ID, created.UUID)
		assert.True(t, businessflow.IsNotFound(err))
	})

	t.Run("ListCampaigns", func(t *testing.T) {
		resp, err := flow.ListCampaigns(ctx, &dto.ListCampaignsRequest{
			WorkspaceID: ws.ID,
			Search:      "spring",
			OrderBy:     "name",
		})
		require.NoError(t, err)
		require.Len(t, resp.Items, 1)
		assert.Equal(t, "Spring Sale", resp.Items[0].Name)
		assert.Equal(t, int64(1), resp.Pagination.TotalCount)
	})

	t.Run("Performance", func(t *testing.T) {
		perfWS, err := fx.CreateTestWorkspace()
		require.NoError(t, err)
		cheap, err := fx.CreateTestCampaign(perfWS.ID, "Cheap", models.DeliveryStatusActive)
		require.NoError(t, err)
		pricey, err := fx.CreateTestCampaign(perfWS.ID, "Pricey", models.DeliveryStatusActive)
		require.NoError(t, err)

		today := utils.DateOnly(time.Now())
		_, err = fx.CreateTestMetric(cheap, today, 1000, 10, "5.00")
		require.NoError(t, err)
		_, err = fx.CreateTestMetric(pricey, today, 2000, 40, "80.00")
		require.NoError(t, err)

		resp, err := flow.Performance(ctx, &dto.CampaignPerformanceRequest{WorkspaceID: perfWS.ID, Preset: "last_7_days"})
		require.NoError(t, err)
		require.Len(t, resp.Items, 2)
		assert.Equal(t, "Pricey", resp.Items[0].Name, "default sort is spend descending")
		assert.InDelta(t, 85.0, resp.Totals.Spend, 0.001)
		assert.InDelta(t, 2.0, resp.Items[0].CTR, 0.001)

		asc, err := flow.Performance(ctx, &dto.CampaignPerformanceRequest{
			WorkspaceID: perfWS.ID, Preset: "last_7_days", SortBy: "clicks", Direction: "asc",
		})
		require.NoError(t, err)
		assert.Equal(t, "Cheap", asc.Items[0].Name)

		searched, err := flow.Performance(ctx, &dto.CampaignPerformanceRequest{
			WorkspaceID: perfWS.ID, Preset: "last_7_days", Search: "pric",
		})
		require.NoError(t, err)
		require.Len(t, searched.Items, 1)
		assert.EqualValues(t, 1, searched.Pagination.TotalCount)
		assert.InDelta(t, 80.0, searched.Totals.Spend, 0.001, "totals follow the search")
		assert.EqualValues(t, 40, searched.Totals.Clicks)

		paged, err := flow.Performance(ctx, &dto.CampaignPerformanceRequest{
			WorkspaceID: perfWS.ID, Preset: "last_7_days", PageRequest: dto.PageRequest{Page: 2, PageSize: 1},
		})
		require.NoError(t, err)
		require.Len(t, paged.Items, 1)
		assert.InDelta(t, 85.0, paged.Totals.Spend, 0.001, "totals span every page")
	})
}
