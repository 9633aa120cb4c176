package handlers_test

import (
	"context"

	"github.com/amirphl/Lovelify-Dash/app/dto"
	businessflow "github.com/amirphl/Lovelify-Dash/business_flow"
	"github.com/amirphl/Lovelify-Dash/models"
	"github.com/stretchr/testify/mock"
)

type mockCampaignFlow struct {
	mock.Mock
}

func (m *mockCampaignFlow) CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest, md *businessflow.ClientMetadata) (*dto.CampaignResponse, error) {
	args := m.Called(ctx, req, md)
	resp, _ := args.Get(0).(*dto.CampaignResponse)
	return resp, args.Error(1)
}

func (m *mockCampaignFlow) UpdateCampaign(ctx context.Context, req *dto.UpdateCampaignRequest, md *businessflow.ClientMetadata) (*dto.CampaignResponse, error) {
	args := m.Called(ctx, req, md)
	resp, _ := args.Get(0).(*dto.CampaignResponse)
	return resp, args.Error(1)
}

func (m *mockCampaignFlow) GetCampaign(ctx context.Context, workspaceID uint, campaignUUID string) (*dto.CampaignResponse, error) {
	args := m.Called(ctx, workspaceID, campaignUUID)
	resp, _ := args.Get(0).(*dto.CampaignResponse)
	return resp, args.Error(1)
}

func (m *mockCampaignFlow) ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest) (*dto.ListCampaignsResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*dto.ListCampaignsResponse)
	return resp, args.Error(1)
}

func (m *mockCampaignFlow) ChangeStatus(ctx context.Context, req *dto.ChangeStatusRequest, md *businessflow.ClientMetadata) (*dto.CampaignResponse, error) {
	args := m.Called(ctx, req, md)
	resp, _ := args.Get(0).(*dto.CampaignResponse)
	return resp, args.Error(1)
}

func (m *mockCampaignFlow) Transitions(ctx context.Context, workspaceID uint, campaignUUID string) (*dto.TransitionsResponse, error) {
	args := m.Called(ctx, workspaceID, campaignUUID)
	resp, _ := args.Get(0).(*dto.TransitionsResponse)
	return resp, args.Error(1)
}

func (m *mockCampaignFlow) DeleteCampaign(ctx context.Context, workspaceID, userID uint, campaignUUID string, md *businessflow.ClientMetadata) error {
	args := m.Called(ctx, workspaceID, userID, campaignUUID, md)
	return args.Error(0)
}

func (m *mockCampaignFlow) Options(ctx context.Context) *dto.PlatformOptionsResponse {
	args := m.Called(ctx)
	resp, _ := args.Get(0).(*dto.PlatformOptionsResponse)
	return resp
}

func (m *mockCampaignFlow) Performance(ctx context.Context, req *dto.CampaignPerformanceRequest) (*dto.CampaignPerformanceResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*dto.CampaignPerformanceResponse)
	return resp, args.Error(1)
}

type mockMetricsFlow struct {
	mock.Mock
}

func (m *mockMetricsFlow) IngestMetrics(ctx context.Context, req *dto.IngestMetricsRequest, md *businessflow.ClientMetadata) (*dto.IngestMetricsResponse, error) {
	args := m.Called(ctx, req, md)
	resp, _ := args.Get(0).(*dto.IngestMetricsResponse)
	return resp, args.Error(1)
}

func (m *mockMetricsFlow) Summary(ctx context.Context, query *dto.DashboardQuery) (*dto.DashboardSummaryResponse, error) {
	args := m.Called(ctx, query)
	resp, _ := args.Get(0).(*dto.DashboardSummaryResponse)
	return resp, args.Error(1)
}

func (m *mockMetricsFlow) Timeseries(ctx context.Context, query *dto.DashboardQuery) (*dto.TimeseriesResponse, error) {
	args := m.Called(ctx, query)
	resp, _ := args.Get(0).(*dto.TimeseriesResponse)
	return resp, args.Error(1)
}

func (m *mockMetricsFlow) Export(ctx context.Context, query *dto.DashboardQuery) (*dto.ExportFile, error) {
	args := m.Called(ctx, query)
	resp, _ := args.Get(0).(*dto.ExportFile)
	return resp, args.Error(1)
}

type mockSyncFlow struct {
	mock.Mock
}

func (m *mockSyncFlow) RequestSync(ctx context.Context, req *dto.RequestSyncRequest, md *businessflow.ClientMetadata) (*dto.RequestSyncResponse, error) {
	args := m.Called(ctx, req, md)
	resp, _ := args.Get(0).(*dto.RequestSyncResponse)
	return resp, args.Error(1)
}

func (m *mockSyncFlow) GetSyncJob(ctx context.Context, workspaceID uint, jobUUID string) (*dto.SyncJobResponse, error) {
	args := m.Called(ctx, workspaceID, jobUUID)
	resp, _ := args.Get(0).(*dto.SyncJobResponse)
	return resp, args.Error(1)
}

func (m *mockSyncFlow) ListSyncJobs(ctx context.Context, req *dto.ListSyncJobsRequest) (*dto.ListSyncJobsResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*dto.ListSyncJobsResponse)
	return resp, args.Error(1)
}

func (m *mockSyncFlow) CancelSyncJob(ctx context.Context, workspaceID, userID uint, jobUUID string, md *businessflow.ClientMetadata) (*dto.SyncJobResponse, error) {
	args := m.Called(ctx, workspaceID, userID, jobUUID, md)
	resp, _ := args.Get(0).(*dto.SyncJobResponse)
	return resp, args.Error(1)
}

func (m *mockSyncFlow) Status(ctx context.Context, workspaceID uint) (*dto.SyncStatusResponse, error) {
	args := m.Called(ctx, workspaceID)
	resp, _ := args.Get(0).(*dto.SyncStatusResponse)
	return resp, args.Error(1)
}

type mockNotificationFlow struct {
	mock.Mock
}

func (m *mockNotificationFlow) Create(ctx context.Context, req dto.CreateNotificationRequest) (*dto.NotificationResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*dto.NotificationResponse)
	return resp, args.Error(1)
}

func (m *mockNotificationFlow) List(ctx context.Context, req *dto.ListNotificationsRequest) (*dto.ListNotificationsResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*dto.ListNotificationsResponse)
	return resp, args.Error(1)
}

func (m *mockNotificationFlow) UnreadCount(ctx context.Context, workspaceID, userID uint) (*dto.UnreadCountResponse, error) {
	args := m.Called(ctx, workspaceID, userID)
	resp, _ := args.Get(0).(*dto.UnreadCountResponse)
	return resp, args.Error(1)
}

func (m *mockNotificationFlow) MarkRead(ctx context.Context, workspaceID, userID uint, notificationUUID string) (*dto.NotificationResponse, error) {
	args := m.Called(ctx, workspaceID, userID, notificationUUID)
	resp, _ := args.Get(0).(*dto.NotificationResponse)
	return resp, args.Error(1)
}

func (m *mockNotificationFlow) MarkAllRead(ctx context.Context, workspaceID, userID uint) (*dto.MarkAllReadResponse, error) {
	args := m.Called(ctx, workspaceID, userID)
	resp, _ := args.Get(0).(*dto.MarkAllReadResponse)
	return resp, args.Error(1)
}

func (m *mockNotificationFlow) Delete(ctx context.Context, workspaceID, userID uint, notificationUUID string, md *businessflow.ClientMetadata) error {
	args := m.Called(ctx, workspaceID, userID, notificationUUID, md)
	return args.Error(0)
}

func (m *mockNotificationFlow) Poll(ctx context.Context, req *dto.PollNotificationsRequest) (*dto.PollNotificationsResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*dto.PollNotificationsResponse)
	return resp, args.Error(1)
}

func (m *mockNotificationFlow) Subscribe(workspaceID, userID uint) (<-chan *models.Notification, func()) {
	args := m.Called(workspaceID, userID)
	ch, _ := args.Get(0).(<-chan *models.Notification)
	cancel, _ := args.Get(1).(func())
	return ch, cancel
}
