package handlers

import (
	"github.com/amirphl/Lovelify-Dash/app/dto"
	businessflow "github.com/amirphl/Lovelify-Dash/business_flow"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// AdSetHandler handles ad set and ad requests
type AdSetHandler struct {
	baseHandler
	adSetFlow businessflow.AdSetFlow
	adFlow    businessflow.AdFlow
}

// NewAdSetHandler creates a new ad set handler
func NewAdSetHandler(adSetFlow businessflow.AdSetFlow, adFlow businessflow.AdFlow, logger *zap.Logger) *AdSetHandler {
	return &AdSetHandler{
		baseHandler: newBaseHandler(logger),
		adSetFlow:   adSetFlow,
		adFlow:      adFlow,
	}
}

// CreateAdSet creates an ad set under the campaign in the path
// @Summary Create Ad Set
// @Tags Ad Sets
// @Accept json
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Param request body dto.CreateAdSetRequest true "Ad set data"
// @Success 201 {object} dto.APIResponse{data=dto.AdSetResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /api/v1/campaigns/{uuid}/ad-sets [post]
func (h *AdSetHandler) CreateAdSet(c fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return h.unauthenticated(c)
	}

	var req dto.CreateAdSetRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}
	req.WorkspaceID = principal.WorkspaceID
	req.UserID = principal.UserID
	req.CampaignUUID = c.Params("uuid")

	ctx, cancel := requestContext(c, "/api/v1/campaigns/:uuid/ad-sets")
	defer cancel()

	result, err := h.adSetFlow.CreateAdSet(ctx, &req, metadataFrom(c))
	if err != nil {
		return h.handleFlowError(c, err, "Ad set creation failed", "AD_SET_CREATION_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Ad set created successfully", result)
}

func (h *AdSetHandler) ListAdSets(c fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return h.unauthenticated(c)
	}

	var page dto.PageRequest
	if ok, err := h.bindQuery(c, &page); !ok {
		return err
	}

	ctx, cancel := requestContext(c, "/api/v1/campaigns/:uuid/ad-sets")
	defer cancel()

	result, err := h.adSetFlow.ListAdSets(ctx, principal.WorkspaceID, c.Params("uuid"), page)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to list ad sets", "LIST_AD_SETS_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Ad sets retrieved successfully", result)
}

func (h *AdSetHandler) UpdateAdSet(c fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return h.unauthenticated(c)
	}

	var req dto.UpdateAdSetRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}
	req.WorkspaceID = principal.WorkspaceID
	req.UserID = principal.UserID
	req.UUID = c.Params("uuid")

	ctx, cancel := requestContext(c, "/api/v1/ad-sets/:uuid")
	defer cancel()

	result, err := h.adSetFlow.UpdateAdSet(ctx, &req, metadataFrom(c))
	if err != nil {
		return h.handleFlowError(c, err, "Ad set update failed", "AD_SET_UPDATE_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Ad set updated successfully", result)
}

func (h *AdSetHandler) ChangeAdSetStatus(c fiber.Ctx) error {
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

	ctx, cancel := requestContext(c, "/api/v1/ad-sets/:uuid/status")
	defer cancel()

	result, err := h.adSetFlow.ChangeStatus(ctx, &req, metadataFrom(c))
	if err != nil {
		return h.handleFlowError(c, err, "Status change failed", "CHANGE_STATUS_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Ad set status changed", result)
}

// CreateAd creates an ad under the ad set in the path
// @Summary Create Ad
// @Tags Ads
// @Accept json
// @Produce json
// @Param uuid path string true "Ad set UUID"
// @Param request body dto.CreateAdRequest true "Ad data"
// @Success 201 {object} dto.APIResponse{data=dto.AdResponse}
// @Router /api/v1/ad-sets/{uuid}/ads [post]
func (h *AdSetHandler) CreateAd(c fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return h.unauthenticated(c)
	}

	var req dto.CreateAdRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}
	req.WorkspaceID = principal.WorkspaceID
	req.UserID = principal.UserID
	req.AdSetUUID = c.Params("uuid")

	ctx, cancel := requestContext(c, "/api/v1/ad-sets/:uuid/ads")
	defer cancel()

	result, err := h.adFlow.CreateAd(ctx, &req, metadataFrom(c))
	if err != nil {
		return h.handleFlowError(c, err, "Ad creation failed", "AD_CREATION_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Ad created successfully", result)
}

func (h *AdSetHandler) ListAds(c fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return h.unauthenticated(c)
	}

	var page dto.PageRequest
	if ok, err := h.bindQuery(c, &page); !ok {
		return err
	}

	ctx, cancel := requestContext(c, "/api/v1/ad-sets/:uuid/ads")
	defer cancel()

	result, err := h.adFlow.ListAds(ctx, principal.WorkspaceID, c.Params("uuid"), page)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to list ads", "LIST_ADS_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Ads retrieved successfully", result)
}

func (h *AdSetHandler) UpdateAd(c fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return h.unauthenticated(c)
	}

	var req dto.UpdateAdRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}
	req.WorkspaceID = principal.WorkspaceID
	req.UserID = principal.UserID
	req.UUID = c.Params("uuid")

	ctx, cancel := requestContext(c, "/api/v1/ads/:uuid")
	defer cancel()

	result, err := h.adFlow.UpdateAd(ctx, &req, metadataFrom(c))
	if err != nil {
		return h.handleFlowError(c, err, "Ad update failed", "AD_UPDATE_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Ad updated successfully", result)
}

func (h *AdSetHandler) ChangeAdStatus(c fiber.Ctx) error {
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

	ctx, cancel := requestContext(c, "/api/v1/ads/:uuid/status")
	defer cancel()

	result, err := h.adFlow.ChangeStatus(ctx, &req, metadataFrom(c))
	if err != nil {
		return h.handleFlowError(c, err, "Status change failed", "CHANGE_STATUS_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Ad status changed", result)
}
