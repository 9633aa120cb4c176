package handlers_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/amirphl/Lovelify-Dash/app/dto"
	"github.com/amirphl/Lovelify-Dash/app/handlers"
	"github.com/amirphl/Lovelify-Dash/app/middleware"
	businessflow "github.com/amirphl/Lovelify-Dash/business_flow"
	"github.com/amirphl/Lovelify-Dash/models"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const campaignUUID = "5b0c7f8e-3d1a-4c2b-9f6e-1a2b3c4d5e6f"

var owner = &businessflow.Principal{UserID: 3, WorkspaceID: 7, Role: models.UserRoleOwner}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Details any    `json:"details"`
	} `json:"error"`
}

// newTestApp stands in for the auth middleware by placing the principal in locals
func newTestApp(principal *businessflow.Principal, machine bool, register func(app *fiber.App)) *fiber.App {
	app := fiber.New()
	app.Use(func(c fiber.Ctx) error {
		if principal != nil {
			c.Locals(middleware.LocalPrincipal, *principal)
		}
		if machine {
			c.Locals(middleware.LocalMachine, true)
		}
		return c.Next()
	})
	register(app)
	return app
}

func do(t *testing.T, app *fiber.App, method, target, body string) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp, env
}

func campaignApp(flow *mockCampaignFlow, principal *businessflow.Principal) *fiber.App {
	h := handlers.NewCampaignHandler(flow, zap.NewNop())
	return newTestApp(principal, false, func(app *fiber.App) {
		app.Post("/campaigns", h.CreateCampaign)
		app.Get("/campaigns/:uuid", h.GetCampaign)
		app.Delete("/campaigns/:uuid", h.DeleteCampaign)
		app.Post("/campaigns/:uuid/status", h.ChangeStatus)
		app.Get("/campaigns", h.ListCampaigns)
	})
}

func TestCreateCampaign(t *testing.T) {
	valid := `{"name":"Spring Sale","platform":"meta","objective":"traffic","budget":150,"budget_type":"daily","start_date":"2025-05-01","end_date":"2025-05-31"}`

	t.Run("CreatesInCallersWorkspace", func(t *testing.T) {
		flow := new(mockCampaignFlow)
		flow.On("CreateCampaign", mock.Anything, mock.MatchedBy(func(req *dto.CreateCampaignRequest) bool {
			return req.WorkspaceID == 7 && req.UserID == 3 && req.Name == "Spring Sale" && req.Budget == 150
		}), mock.Anything).Return(&dto.CampaignResponse{UUID: campaignUUID, Name: "Spring Sale"}, nil)

		resp, env := do(t, campaignApp(flow, owner), http.MethodPost, "/campaigns", valid)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.True(t, env.Success)
		assert.Contains(t, string(env.Data), campaignUUID)
		flow.AssertExpectations(t)
	})

	rejected := []struct {
		name string
		body string
	}{
		{"EmptyName", `{"name":"","platform":"meta","objective":"traffic","budget":150,"start_date":"2025-05-01"}`},
		{"ZeroBudget", `{"name":"Spring Sale","platform":"meta","objective":"traffic","budget":0,"start_date":"2025-05-01"}`},
		{"NegativeBudget", `{"name":"Spring Sale","platform":"meta","objective":"traffic","budget":-5,"start_date":"2025-05-01"}`},
		{"UnknownPlatform", `{"name":"Spring Sale","platform":"myspace","objective":"traffic","budget":10,"start_date":"2025-05-01"}`},
		{"ObjectiveOfAnotherPlatform", `{"name":"Spring Sale","platform":"meta","objective":"video_views","budget":10,"start_date":"2025-05-01"}`},
		{"EndBeforeStart", `{"name":"Spring Sale","platform":"meta","objective":"traffic","budget":10,"start_date":"2025-05-10","end_date":"2025-05-01"}`},
		{"MalformedJSON", `{"name":`},
	}
	for _, tc := range rejected {
		t.Run(tc.name, func(t *testing.T) {
			flow := new(mockCampaignFlow)

			resp, env := do(t, campaignApp(flow, owner), http.MethodPost, "/campaigns", tc.body)

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.False(t, env.Success)
			flow.AssertNotCalled(t, "CreateCampaign", mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("ObjectiveMessageNamesPlatform", func(t *testing.T) {
		flow := new(mockCampaignFlow)
		_, env := do(t, campaignApp(flow, owner), http.MethodPost, "/campaigns",
			`{"name":"Spring Sale","platform":"google","objective":"traffic","budget":10,"start_date":"2025-05-01"}`)

		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
		assert.Contains(t, env.Error.Details, "Objective is not available for platform google")
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		flow := new(mockCampaignFlow)

		resp, env := do(t, campaignApp(flow, nil), http.MethodPost, "/campaigns", valid)

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "AUTHENTICATION_REQUIRED", env.Error.Code)
		flow.AssertNotCalled(t, "CreateCampaign", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCampaignErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"NotFound", businessflow.NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", businessflow.ErrCampaignNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"Forbidden", businessflow.NewBusinessError("FORBIDDEN", "Only owners and admins can change status", businessflow.ErrForbidden), http.StatusForbidden, "FORBIDDEN"},
		{"TransitionNotAllowed", businessflow.NewBusinessError("INVALID_STATUS_TRANSITION", "Transition not allowed", businessflow.ErrInvalidStatusTransition), http.StatusConflict, "CONFLICT"},
		{"ConcurrentChange", businessflow.NewBusinessError("STATUS_CHANGED", "Status changed", businessflow.ErrStatusChanged), http.StatusConflict, "CONFLICT"},
		{"Unclassified", errors.New("connection reset"), http.StatusInternalServerError, "CHANGE_STATUS_FAILED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			flow := new(mockCampaignFlow)
			flow.On("ChangeStatus", mock.Anything, mock.Anything, mock.Anything).Return(nil, tc.err)

			resp, env := do(t, campaignApp(flow, owner), http.MethodPost, "/campaigns/"+campaignUUID+"/status", `{"status":"ACTIVE"}`)

			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.code, env.Error.Code)
		})
	}

	t.Run("PassesRoleAndPathUUID", func(t *testing.T) {
		flow := new(mockCampaignFlow)
		flow.On("ChangeStatus", mock.Anything, mock.MatchedBy(func(req *dto.ChangeStatusRequest) bool {
			return req.UUID == campaignUUID && req.Role == "owner" && req.Status == "PAUSED" && req.WorkspaceID == 7
		}), mock.Anything).Return(&dto.CampaignResponse{UUID: campaignUUID}, nil)

		resp, _ := do(t, campaignApp(flow, owner), http.MethodPost, "/campaigns/"+campaignUUID+"/status", `{"status":"PAUSED"}`)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		flow.AssertExpectations(t)
	})

	t.Run("UnknownStatusIsRejected", func(t *testing.T) {
		flow := new(mockCampaignFlow)

		resp, _ := do(t, campaignApp(flow, owner), http.MethodPost, "/campaigns/"+campaignUUID+"/status", `{"status":"FLYING"}`)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		flow.AssertNotCalled(t, "ChangeStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("OtherWorkspaceLooksMissing", func(t *testing.T) {
		flow := new(mockCampaignFlow)
		flow.On("GetCampaign", mock.Anything, uint(7), campaignUUID).
			Return(nil, businessflow.NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", businessflow.ErrCampaignNotFound))

		resp, env := do(t, campaignApp(flow, owner), http.MethodGet, "/campaigns/"+campaignUUID, "")

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "campaign not found", env.Message)
	})
}

func TestListCampaignsQueryValidation(t *testing.T) {
	t.Run("BindsFilters", func(t *testing.T) {
		flow := new(mockCampaignFlow)
		flow.On("ListCampaigns", mock.Anything, mock.MatchedBy(func(req *dto.ListCampaignsRequest) bool {
			return req.WorkspaceID == 7 && req.Status == "ACTIVE" && req.Platform == "tiktok" && req.Page == 2 && req.PageSize == 10
		})).Return(&dto.ListCampaignsResponse{}, nil)

		resp, _ := do(t, campaignApp(flow, owner), http.MethodGet, "/campaigns?status=ACTIVE&platform=tiktok&page=2&page_size=10", "")

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		flow.AssertExpectations(t)
	})

	t.Run("PageSizeOverLimit", func(t *testing.T) {
		flow := new(mockCampaignFlow)

		resp, _ := do(t, campaignApp(flow, owner), http.MethodGet, "/campaigns?page_size=1000", "")

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		flow.AssertNotCalled(t, "ListCampaigns", mock.Anything, mock.Anything)
	})
}

func dashboardApp(flow *mockMetricsFlow, principal *businessflow.Principal, machine bool) *fiber.App {
	h := handlers.NewDashboardHandler(flow, zap.NewNop())
	return newTestApp(principal, machine, func(app *fiber.App) {
		app.Post("/metrics", h.Ingest)
		app.Get("/dashboard/summary", h.Summary)
		app.Get("/dashboard/export", h.Export)
	})
}

func TestIngestMetrics(t *testing.T) {
	body := `{"records":[{"campaign_uuid":"` + campaignUUID + `","date":"2025-05-01","impressions":100,"clicks":5,"spend":12.5}]}`

	t.Run("MachineClientHasNoWorkspaceScope", func(t *testing.T) {
		flow := new(mockMetricsFlow)
		flow.On("IngestMetrics", mock.Anything, mock.MatchedBy(func(req *dto.IngestMetricsRequest) bool {
			return req.WorkspaceID == 0 && req.UserID == nil && len(req.Records) == 1
		}), mock.Anything).Return(&dto.IngestMetricsResponse{Received: 1, Created: 1}, nil)

		resp, _ := do(t, dashboardApp(flow, nil, true), http.MethodPost, "/metrics", body)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		flow.AssertExpectations(t)
	})

	t.Run("UserIsScopedToWorkspace", func(t *testing.T) {
		flow := new(mockMetricsFlow)
		flow.On("IngestMetrics", mock.Anything, mock.MatchedBy(func(req *dto.IngestMetricsRequest) bool {
			return req.WorkspaceID == 7 && req.UserID != nil && *req.UserID == 3
		}), mock.Anything).Return(&dto.IngestMetricsResponse{Received: 1, Updated: 1}, nil)

		resp, _ := do(t, dashboardApp(flow, owner, false), http.MethodPost, "/metrics", body)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		flow.AssertExpectations(t)
	})

	t.Run("NegativeCounterRejected", func(t *testing.T) {
		flow := new(mockMetricsFlow)
		bad := `{"records":[{"campaign_uuid":"` + campaignUUID + `","date":"2025-05-01","impressions":-1}]}`

		resp, _ := do(t, dashboardApp(flow, owner, false), http.MethodPost, "/metrics", bad)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		flow.AssertNotCalled(t, "IngestMetrics", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("EmptyBatchRejected", func(t *testing.T) {
		flow := new(mockMetricsFlow)

		resp, _ := do(t, dashboardApp(flow, owner, false), http.MethodPost, "/metrics", `{"records":[]}`)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		flow.AssertNotCalled(t, "IngestMetrics", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDashboardSummary(t *testing.T) {
	t.Run("UnknownPresetRejected", func(t *testing.T) {
		flow := new(mockMetricsFlow)

		resp, _ := do(t, dashboardApp(flow, owner, false), http.MethodGet, "/dashboard/summary?preset=last_century", "")

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		flow.AssertNotCalled(t, "Summary", mock.Anything, mock.Anything)
	})

	t.Run("CustomRange", func(t *testing.T) {
		flow := new(mockMetricsFlow)
		flow.On("Summary", mock.Anything, mock.MatchedBy(func(q *dto.DashboardQuery) bool {
			return q.WorkspaceID == 7 && q.Preset == "custom" && q.StartDate == "2025-05-01" && q.EndDate == "2025-05-07"
		})).Return(&dto.DashboardSummaryResponse{Currency: "USD"}, nil)

		resp, env := do(t, dashboardApp(flow, owner, false), http.MethodGet,
			"/dashboard/summary?preset=custom&start_date=2025-05-01&end_date=2025-05-07", "")

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(env.Data), `"currency":"USD"`)
		flow.AssertExpectations(t)
	})

	t.Run("InvalidRangeFromFlow", func(t *testing.T) {
		flow := new(mockMetricsFlow)
		flow.On("Summary", mock.Anything, mock.Anything).
			Return(nil, businessflow.NewBusinessError("INVALID_DATE_RANGE", "Invalid date range", businessflow.ErrInvalidDateRange))

		resp, env := do(t, dashboardApp(flow, owner, false), http.MethodGet,
			"/dashboard/summary?preset=custom&start_date=2025-05-07&end_date=2025-05-01", "")

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_INPUT", env.Error.Code)
	})
}

func TestDashboardExport(t *testing.T) {
	flow := new(mockMetricsFlow)
	flow.On("Export", mock.Anything, mock.Anything).Return(&dto.ExportFile{
		Filename:    "report_2025-05-01_2025-05-07.xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Content:     []byte("PK"),
	}, nil)

	resp, _ := do(t, dashboardApp(flow, owner, false), http.MethodGet, "/dashboard/export?preset=last_7_days", "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "report_2025-05-01_2025-05-07.xlsx")
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", resp.Header.Get("Content-Type"))
}

func syncApp(flow *mockSyncFlow) *fiber.App {
	h := handlers.NewSyncHandler(flow, zap.NewNop())
	return newTestApp(owner, false, func(app *fiber.App) {
		app.Post("/sync-jobs", h.Request)
		app.Post("/sync-jobs/:uuid/cancel", h.Cancel)
	})
}

func TestRequestSync(t *testing.T) {
	t.Run("Queued", func(t *testing.T) {
		flow := new(mockSyncFlow)
		flow.On("RequestSync", mock.Anything, mock.MatchedBy(func(req *dto.RequestSyncRequest) bool {
			return req.SyncType == "metrics" && req.WorkspaceID == 7
		}), mock.Anything).Return(&dto.RequestSyncResponse{Job: dto.SyncJobResponse{Status: "pending"}}, nil)

		resp, _ := do(t, syncApp(flow), http.MethodPost, "/sync-jobs", `{"sync_type":"metrics"}`)

		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
		flow.AssertExpectations(t)
	})

	t.Run("ActiveJobReused", func(t *testing.T) {
		flow := new(mockSyncFlow)
		flow.On("RequestSync", mock.Anything, mock.Anything, mock.Anything).
			Return(&dto.RequestSyncResponse{Job: dto.SyncJobResponse{Status: "running"}, Reused: true}, nil)

		resp, env := do(t, syncApp(flow), http.MethodPost, "/sync-jobs", `{"sync_type":"full"}`)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(env.Data), `"reused":true`)
	})

	t.Run("LockHeld", func(t *testing.T) {
		flow := new(mockSyncFlow)
		flow.On("RequestSync", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, businessflow.NewBusinessError("SYNC_IN_PROGRESS", "Sync in progress", businessflow.ErrSyncInProgress))

		resp, env := do(t, syncApp(flow), http.MethodPost, "/sync-jobs", `{"sync_type":"full"}`)

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "SYNC_IN_PROGRESS", env.Error.Code)
	})

	t.Run("UnknownType", func(t *testing.T) {
		flow := new(mockSyncFlow)

		resp, _ := do(t, syncApp(flow), http.MethodPost, "/sync-jobs", `{"sync_type":"everything"}`)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		flow.AssertNotCalled(t, "RequestSync", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("CancelFinishedJob", func(t *testing.T) {
		flow := new(mockSyncFlow)
		flow.On("CancelSyncJob", mock.Anything, uint(7), uint(3), "job-1", mock.Anything).
			Return(nil, businessflow.NewBusinessError("SYNC_JOB_NOT_CANCELLABLE", "Not cancellable", businessflow.ErrSyncJobNotCancellable))

		resp, _ := do(t, syncApp(flow), http.MethodPost, "/sync-jobs/job-1/cancel", "")

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})
}

func TestPollNotifications(t *testing.T) {
	flow := new(mockNotificationFlow)
	h := handlers.NewNotificationHandler(flow, zap.NewNop())
	app := newTestApp(owner, false, func(app *fiber.App) {
		app.Get("/notifications/poll", h.Poll)
	})

	t.Run("PassesCursor", func(t *testing.T) {
		flow.On("Poll", mock.Anything, mock.MatchedBy(func(req *dto.PollNotificationsRequest) bool {
			return req.Since == "2025-05-01T10:00:00Z" && req.UserID == 3 && req.WorkspaceID == 7
		})).Return(&dto.PollNotificationsResponse{Cursor: "2025-05-01T10:05:00Z"}, nil).Once()

		resp, env := do(t, app, http.MethodGet, "/notifications/poll?since=2025-05-01T10:00:00Z", "")

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(env.Data), "2025-05-01T10:05:00Z")
	})

	t.Run("BadCursor", func(t *testing.T) {
		flow.On("Poll", mock.Anything, mock.Anything).
			Return(nil, businessflow.NewBusinessError("INVALID_CURSOR", "Invalid cursor", businessflow.ErrInvalidCursor)).Once()

		resp, _ := do(t, app, http.MethodGet, "/notifications/poll?since=yesterday", "")

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
