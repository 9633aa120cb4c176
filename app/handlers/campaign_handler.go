package handlers

import (
	"github.com/amirphl/Lovelify-Dash/app/dto"
	businessflow "github.com/amirphl/Lovelify-Dash/business_flow"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// CampaignHandlerInterface defines the contract for campaign handlers
type CampaignHandlerInterface interface {
	CreateCampaign(c fiber.Ctx) error
	UpdateCampaign(c fiber.Ctx) error
	GetCampaign(c fiber.Ctx) error
	ListCampaigns(c fiber.Ctx) error
	DeleteCampaign(c fiber.Ctx) error
	ChangeStatus(c fiber.Ctx) error
	Transitions(c fiber.Ctx) error
	Performance(c fiber.Ctx) error
	PlatformOptions(c fiber.Ctx) error
}

// CampaignHandler handles campaign-related HTTP requests
type CampaignHandler struct {
	baseHandler
	campaignFlow businessflow.CampaignFlow
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(campaignFlow businessflow.CampaignFlow, logger *zap.Logger) *CampaignHandler {
	return &CampaignHandler{
		baseHandler:  newBaseHandler(logger),
		campaignFlow: campaignFlow,
	}
}

// CreateCampaign handles the campaign creation process
// @Summary Create Campaign
// @Description Create a draft campaign. The objective must belong to the platform.
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param request body dto.CreateCampaignRequest true "Campaign creation data"
// @Success 201 {object} dto.APIResponse{data=dto.CampaignResponse} "Campaign created successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns [post]
func (h *CampaignHandler) CreateCampaign(c fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return h.unauthenticated(c)
	}

	var req dto.CreateCampaignRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}
	req.WorkspaceID = principal.WorkspaceID
	req.UserID = principal.UserID

	ctx, cancel := requestContext(c, "/api/v1/campaigns")
	defer cancel()

	result, err := h.campaignFlow.CreateCampaign(ctx, &req, metadataFrom(c))
	if err != nil {
		return h.handleFlowError(c, err, "Campaign creation failed", "CAMPAIGN_CREATION_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Campaign created successfully", result)
}

// UpdateCampaign handles partial campaign updates
// @Summary Update Campaign
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Param request body dto.UpdateCampaignRequest true "Campaign update data"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignResponse} "Campaign updated successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 409 {object} dto.APIResponse "Campaign is not editable in its status"
// @Router /api/v1/campaigns/{uuid} [put]
func (h *CampaignHandler) UpdateCampaign(c fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return h.unauthenticated(c)
	}

	var req dto.UpdateCampaignRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}
	req.WorkspaceID = principal.WorkspaceID
	req.UserID = principal.UserID
	req.UUID = c.Params("uuid")

	ctx, cancel := requestContext(c, "/api/v1/campaigns/:uuid")
	defer cancel()

	result, err := h.campaignFlow.UpdateCampaign(ctx, &req, metadataFrom(c))
	if err != nil {
		return h.handleFlowError(c, err, "Campaign update failed", "CAMPAIGN_UPDATE_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Campaign updated successfully", result)
}

// GetCampaign returns one campaign of the caller's workspace
func (h *CampaignHandler) GetCampaign(c fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return h.unauthenticated(c)
	}

	ctx, cancel := requestContext(c, "/api/v1/campaigns/:uuid")
	defer cancel()

	result, err := h.campaignFlow.GetCampaign(ctx, principal.WorkspaceID, c.Params("uuid"))
	if err != nil {
		return h.handleFlowError(c, err, "Failed to get campaign", "GET_CAMPAIGN_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Campaign retrieved successfully", result)
}

// ListCampaigns lists the workspace's campaigns
// @Summary List Campaigns
// @Tags Campaigns
// @Produce json
// @Param status query string false "Delivery status"
// @Param platform query string false "meta, google or tiktok"
// @Param search query string false "Name search"
// @Param order_by query string false "newest, oldest, name or budget"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.ListCampaignsResponse}
// @Router /api/v1/campaigns [get]
func (h *CampaignHandler) ListCampaigns(c fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return h.unauthenticated(c)
	}

	var req dto.ListCampaignsRequest
	if ok, err := h.bindQuery(c, &req); !ok {
		return err
	}
	req.WorkspaceID = principal.WorkspaceID

	ctx, cancel := requestContext(c, "/api/v1/campaigns")
	defer cancel()

	result, err := h.campaignFlow.ListCampaigns(ctx, &req)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to list campaigns", "LIST_CAMPAIGNS_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Campaigns retrieved successfully", result)
}

// DeleteCampaign deletes a draft campaign
func (h *CampaignHandler) DeleteCampaign(c fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return h.unauthenticated(c)
	}

	ctx, cancel := requestContext(c, "/api/v1/campaigns/:uuid")
	defer cancel()

	if err := h.campaignFlow.DeleteCampaign(ctx, principal.WorkspaceID, principal.UserID, c.Params("uuid"), metadataFrom(c)); err != nil {
		return h.handleFlowError(c, err, "Campaign deletion failed", "CAMPAIGN_DELETION_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Campaign deleted successfully", nil)
}

// ChangeStatus moves a campaign to another delivery status
// @Summary Change Campaign Status
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Param request body dto.ChangeStatusRequest true "Target status"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignResponse}
// @Failure 403 {object} dto.APIResponse "Only owners and admins change status"
// @Failure 409 {object} dto.APIResponse "Transition not allowed"
// @Router /api/v1/campaigns/{uuid}/status [post]
func (h *CampaignHandler) ChangeStatus(c fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return h.unauthenticated(c)
	}

	var req dto.ChangeStatusRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}
	req.WorkspaceID = principal.WorkspaceID
	req.UserID = principal.UserID
	req.Role = string(principal.Role)
	req.UUID = c.Params("uuid")

	ctx, cancel := requestContext(c, "/api/v1/campaigns/:uuid/status")
	defer cancel()

	result, err := h.campaignFlow.ChangeStatus(ctx, &req, metadataFrom(c))
	if err != nil {
		return h.handleFlowError(c, err, "Status change failed", "CHANGE_STATUS_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Campaign status changed", result)
}

// Transitions lists the statuses the campaign may move to
func (h *CampaignHandler) Transitions(c fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return h.unauthenticated(c)
	}

	ctx, cancel := requestContext(c, "/api/v1/campaigns/:uuid/transitions")
	defer cancel()

	result, err := h.campaignFlow.Transitions(ctx, principal.WorkspaceID, c.Params("uuid"))
	if err != nil {
		return h.handleFlowError(c, err, "Failed to get transitions", "GET_TRANSITIONS_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Transitions retrieved successfully", result)
}

// Performance returns the sortable campaign table with metric totals over a date range
// @Summary Campaign Performance
// @Tags Campaigns
// @Produce json
// @Param preset query string false "Date range preset"
// @Param start_date query string false "Custom range start (YYYY-MM-DD)"
// @Param end_date query string false "Custom range end (YYYY-MM-DD)"
// @Param sort_by query string false "Column to sort by"
// @Param direction query string false "asc or desc"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignPerformanceResponse}
// @Router /api/v1/campaigns/performance [get]
func (h *CampaignHandler) Performance(c fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return h.unauthenticated(c)
	}

	var req dto.CampaignPerformanceRequest
	if ok, err := h.bindQuery(c, &req); !ok {
		return err
	}
	req.WorkspaceID = principal.WorkspaceID

	ctx, cancel := requestContext(c, "/api/v1/campaigns/performance")
	defer cancel()

	result, err := h.campaignFlow.Performance(ctx, &req)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to load campaign performance", "CAMPAIGN_PERFORMANCE_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Campaign performance retrieved successfully", result)
}

// PlatformOptions returns the static select options of the campaign forms
func (h *CampaignHandler) PlatformOptions(c fiber.Ctx) error {
	ctx, cancel := requestContext(c, "/api/v1/options/platforms")
	defer cancel()

	return h.SuccessResponse(c, fiber.StatusOK, "Options retrieved successfully", h.campaignFlow.Options(ctx))
}
