package handlers

import (
	"github.com/amirphl/Lovelify-Dash/app/dto"
	businessflow "github.com/amirphl/Lovelify-Dash/business_flow"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// SyncHandler starts and inspects data refresh jobs
type SyncHandler struct {
	baseHandler
	syncFlow businessflow.SyncFlow
}

func NewSyncHandler(syncFlow businessflow.SyncFlow, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{
		baseHandler: newBaseHandler(logger),
		syncFlow:    syncFlow,
	}
}

// Request queues a sync job, or returns the active job of the same type
// @Summary Request sync
// @Tags Sync
// @Accept json
// @Produce json
// @Param request body dto.RequestSyncRequest true "Sync type"
// @Success 202 {object} dto.APIResponse{data=dto.RequestSyncResponse} "Job queued"
// @Success 200 {object} dto.APIResponse{data=dto.RequestSyncResponse} "Active job reused"
// @Failure 409 {object} dto.APIResponse "A sync is already starting"
// @Router /api/v1/sync-jobs [post]
func (h *SyncHandler) Request(c fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return h.unauthenticated(c)
	}

	var req dto.RequestSyncRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}
	req.WorkspaceID = principal.WorkspaceID
	req.UserID = principal.UserID

	ctx, cancel := requestContext(c, "/api/v1/sync-jobs")
	defer cancel()

	result, err := h.syncFlow.RequestSync(ctx, &req, metadataFrom(c))
	if err != nil {
		if businessflow.IsSyncInProgress(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "A sync is already in progress", "SYNC_IN_PROGRESS", nil)
		}
		return h.handleFlowError(c, err, "Failed to request sync", "SYNC_REQUEST_FAILED")
	}
	if result.Reused {
		return h.SuccessResponse(c, fiber.StatusOK, "Sync already in progress", result)
	}
	return h.SuccessResponse(c, fiber.StatusAccepted, "Sync queued", result)
}

func (h *SyncHandler) List(c fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return h.unauthenticated(c)
	}

	var req dto.ListSyncJobsRequest
	if ok, err := h.bindQuery(c, &req); !ok {
		return err
	}
	req.WorkspaceID = principal.WorkspaceID

	ctx, cancel := requestContext(c, "/api/v1/sync-jobs")
	defer cancel()

	result, err := h.syncFlow.ListSyncJobs(ctx, &req)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to list sync jobs", "LIST_SYNC_JOBS_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Sync jobs retrieved successfully", result)
}

// Status summarizes the latest job of each sync type
func (h *SyncHandler) Status(c fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return h.unauthenticated(c)
	}

	ctx, cancel := requestContext(c, "/api/v1/sync-jobs/status")
	defer cancel()

	result, err := h.syncFlow.Status(ctx, principal.WorkspaceID)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to load sync status", "SYNC_STATUS_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Sync status retrieved successfully", result)
}

func (h *SyncHandler) Get(c fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return h.unauthenticated(c)
	}

	ctx, cancel := requestContext(c, "/api/v1/sync-jobs/:uuid")
	defer cancel()

	result, err := h.syncFlow.GetSyncJob(ctx, principal.WorkspaceID, c.Params("uuid"))
	if err != nil {
		return h.handleFlowError(c, err, "Failed to get sync job", "GET_SYNC_JOB_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Sync job retrieved successfully", result)
}

// Cancel stops a pending or running job
func (h *SyncHandler) Cancel(c fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return h.unauthenticated(c)
	}

	ctx, cancel := requestContext(c, "/api/v1/sync-jobs/:uuid/cancel")
	defer cancel()

	result, err := h.syncFlow.CancelSyncJob(ctx, principal.WorkspaceID, principal.UserID, c.Params("uuid"), metadataFrom(c))
	if err != nil {
		return h.handleFlowError(c, err, "Failed to cancel sync job", "CANCEL_SYNC_JOB_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Sync job cancelled", result)
}
