package handlers

import (
	"time"

	"github.com/amirphl/Lovelify-Dash/app/dto"
	"github.com/amirphl/Lovelify-Dash/app/middleware"
	businessflow "github.com/amirphl/Lovelify-Dash/business_flow"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

const exportTimeout = 2 * time.Minute

// DashboardHandler serves metric ingestion and the reporting endpoints
type DashboardHandler struct {
	baseHandler
	metricsFlow businessflow.MetricsFlow
}

func NewDashboardHandler(metricsFlow businessflow.MetricsFlow, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		baseHandler: newBaseHandler(logger),
		metricsFlow: metricsFlow,
	}
}

// Ingest upserts a batch of daily metric rows.
// Service-key clients may write to any workspace; users only to their own.
// @Summary Ingest metrics
// @Tags Metrics
// @Accept json
// @Produce json
// @Param request body dto.IngestMetricsRequest true "Metric rows"
// @Success 200 {object} dto.APIResponse{data=dto.IngestMetricsResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "Unknown campaign, ad set or ad"
// @Router /api/v1/metrics [post]
func (h *DashboardHandler) Ingest(c fiber.Ctx) error {
	var req dto.IngestMetricsRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}
	if !middleware.IsMachineClient(c) {
		principal, ok := h.principal(c)
		if !ok {
			return h.unauthenticated(c)
		}
		userID := principal.UserID
		req.WorkspaceID = principal.WorkspaceID
		req.UserID = &userID
	}

	ctx, cancel := requestContext(c, "/api/v1/metrics")
	defer cancel()

	result, err := h.metricsFlow.IngestMetrics(ctx, &req, metadataFrom(c))
	if err != nil {
		return h.handleFlowError(c, err, "Failed to ingest metrics", "METRICS_INGEST_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Metrics ingested successfully", result)
}

// query binds the shared dashboard query of the caller's workspace
func (h *DashboardHandler) query(c fiber.Ctx) (*dto.DashboardQuery, bool, error) {
	principal, ok := h.principal(c)
	if !ok {
		return nil, false, h.unauthenticated(c)
	}

	var q dto.DashboardQuery
	if ok, err := h.bindQuery(c, &q); !ok {
		return nil, false, err
	}
	q.WorkspaceID = principal.WorkspaceID
	return &q, true, nil
}

// Summary returns the KPI cards with the previous-period comparison
// @Summary Dashboard summary
// @Tags Dashboard
// @Produce json
// @Param preset query string false "Date range preset"
// @Param start_date query string false "Custom range start (YYYY-MM-DD)"
// @Param end_date query string false "Custom range end (YYYY-MM-DD)"
// @Param campaign_uuid query string false "Limit to one campaign"
// @Success 200 {object} dto.APIResponse{data=dto.DashboardSummaryResponse}
// @Router /api/v1/dashboard/summary [get]
func (h *DashboardHandler) Summary(c fiber.Ctx) error {
	q, ok, err := h.query(c)
	if !ok {
		return err
	}

	ctx, cancel := requestContext(c, "/api/v1/dashboard/summary")
	defer cancel()

	result, err := h.metricsFlow.Summary(ctx, q)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to load dashboard summary", "DASHBOARD_SUMMARY_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Dashboard summary retrieved successfully", result)
}

// Timeseries returns one zero-filled point per day of the range
func (h *DashboardHandler) Timeseries(c fiber.Ctx) error {
	q, ok, err := h.query(c)
	if !ok {
		return err
	}

	ctx, cancel := requestContext(c, "/api/v1/dashboard/timeseries")
	defer cancel()

	result, err := h.metricsFlow.Timeseries(ctx, q)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to load timeseries", "DASHBOARD_TIMESERIES_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Timeseries retrieved successfully", result)
}

// Export streams the range as an xlsx workbook
// @Summary Export report
// @Tags Dashboard
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param preset query string false "Date range preset"
// @Success 200 {string} string "Workbook"
// @Router /api/v1/dashboard/export [get]
func (h *DashboardHandler) Export(c fiber.Ctx) error {
	q, ok, err := h.query(c)
	if !ok {
		return err
	}

	ctx, cancel := requestContextWithTimeout(c, "/api/v1/dashboard/export", exportTimeout)
	defer cancel()

	file, err := h.metricsFlow.Export(ctx, q)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to export report", "DASHBOARD_EXPORT_FAILED")
	}

	c.Attachment(file.Filename)
	c.Set("Content-Type", file.ContentType)
	return c.Send(file.Content)
}
