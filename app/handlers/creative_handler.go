package handlers

import (
	"os"
	"strings"
	"time"

	"github.com/amirphl/Lovelify-Dash/app/dto"
	businessflow "github.com/amirphl/Lovelify-Dash/business_flow"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

const uploadTimeout = 2 * time.Minute

// CreativeHandler handles the creative library
type CreativeHandler struct {
	baseHandler
	creativeFlow businessflow.CreativeFlow
}

func NewCreativeHandler(creativeFlow businessflow.CreativeFlow, logger *zap.Logger) *CreativeHandler {
	return &CreativeHandler{
		baseHandler:  newBaseHandler(logger),
		creativeFlow: creativeFlow,
	}
}

// Upload stores an image or video in the workspace's creative library.
// @Summary Upload creative
// @Description Upload an image or video (jpg/jpeg/png/gif/webp/mp4/mov/webm). Images get a thumbnail.
// @Tags Creatives
// @Accept mpfd
// @Produce json
// @Param file formData file true "Creative file"
// @Param name formData string false "Display name, defaults to the filename"
// @Param tags formData string false "Comma separated tags"
// @Success 201 {object} dto.APIResponse{data=dto.CreativeResponse} "Upload successful"
// @Failure 400 {object} dto.APIResponse "Invalid request or file"
// @Failure 413 {object} dto.APIResponse "File too large"
// @Failure 415 {object} dto.APIResponse "Unsupported media type"
// @Router /api/v1/creatives [post]
func (h *CreativeHandler) Upload(c fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return h.unauthenticated(c)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil || fileHeader == nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "file is required", "INVALID_FILE", nil)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "invalid file", "INVALID_FILE", err.Error())
	}
	defer file.Close()

	req := dto.UploadCreativeRequest{
		WorkspaceID: principal.WorkspaceID,
		UserID:      principal.UserID,
		Name:        strings.TrimSpace(c.FormValue("name")),
		Tags:        splitTags(c.FormValue("tags")),
		Filename:    fileHeader.Filename,
		Size:        fileHeader.Size,
		File:        file,
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := requestContextWithTimeout(c, "/api/v1/creatives", uploadTimeout)
	defer cancel()

	result, err := h.creativeFlow.UploadCreative(ctx, &req, metadataFrom(c))
	if err != nil {
		return h.handleFlowError(c, err, "Failed to upload creative", "UPLOAD_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Upload successful", result)
}

// splitTags parses a comma separated form value, dropping blanks
func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func (h *CreativeHandler) List(c fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return h.unauthenticated(c)
	}

	var req dto.ListCreativesRequest
	if ok, err := h.bindQuery(c, &req); !ok {
		return err
	}
	req.WorkspaceID = principal.WorkspaceID

	ctx, cancel := requestContext(c, "/api/v1/creatives")
	defer cancel()

	result, err := h.creativeFlow.ListCreatives(ctx, &req)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to list creatives", "LIST_CREATIVES_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Creatives retrieved successfully", result)
}

func (h *CreativeHandler) Get(c fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return h.unauthenticated(c)
	}

	ctx, cancel := requestContext(c, "/api/v1/creatives/:uuid")
	defer cancel()

	result, err := h.creativeFlow.GetCreative(ctx, principal.WorkspaceID, c.Params("uuid"))
	if err != nil {
		return h.handleFlowError(c, err, "Failed to get creative", "GET_CREATIVE_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Creative retrieved successfully", result)
}

// Delete removes a creative that no ad references
// @Summary Delete creative
// @Tags Creatives
// @Produce json
// @Param uuid path string true "Creative UUID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse "Not found"
// @Failure 409 {object} dto.APIResponse "Creative is used by an ad"
// @Router /api/v1/creatives/{uuid} [delete]
func (h *CreativeHandler) Delete(c fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return h.unauthenticated(c)
	}

	ctx, cancel := requestContext(c, "/api/v1/creatives/:uuid")
	defer cancel()

	if err := h.creativeFlow.DeleteCreative(ctx, principal.WorkspaceID, principal.UserID, c.Params("uuid"), metadataFrom(c)); err != nil {
		return h.handleFlowError(c, err, "Failed to delete creative", "DELETE_CREATIVE_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Creative deleted successfully", nil)
}

// Download streams the original file
// @Summary Download creative
// @Tags Creatives
// @Produce application/octet-stream
// @Param uuid path string true "Creative UUID"
// @Success 200 {string} string "Binary file"
// @Failure 404 {object} dto.APIResponse "Not found"
// @Router /api/v1/creatives/{uuid}/download [get]
func (h *CreativeHandler) Download(c fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return h.unauthenticated(c)
	}

	ctx, cancel := requestContext(c, "/api/v1/creatives/:uuid/download")
	defer cancel()

	file, err := h.creativeFlow.DownloadCreative(ctx, principal.WorkspaceID, c.Params("uuid"))
	if err != nil {
		return h.handleFlowError(c, err, "Failed to download creative", "DOWNLOAD_FAILED")
	}
	return h.sendFile(c, file, "attachment")
}

// Thumbnail streams the generated preview of an image creative
func (h *CreativeHandler) Thumbnail(c fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return h.unauthenticated(c)
	}

	ctx, cancel := requestContext(c, "/api/v1/creatives/:uuid/thumbnail")
	defer cancel()

	file, err := h.creativeFlow.CreativeThumbnail(ctx, principal.WorkspaceID, c.Params("uuid"))
	if err != nil {
		return h.handleFlowError(c, err, "Failed to load thumbnail", "THUMBNAIL_FAILED")
	}
	return h.sendFile(c, file, "inline")
}

// sendFile streams a stored file. The body stream is closed by fasthttp once written.
func (h *CreativeHandler) sendFile(c fiber.Ctx, file *dto.CreativeFile, disposition string) error {
	f, err := os.Open(file.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "File is missing from storage", "FILE_MISSING", nil)
		}
		h.logger.Error("Failed to open creative file", zap.String("path", file.Path), zap.Error(err))
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to read file", "FILE_READ_FAILED", nil)
	}

	if file.ContentType != "" {
		c.Set("Content-Type", file.ContentType)
	}
	c.Set("Content-Disposition", disposition+"; filename=\""+strings.ReplaceAll(file.Filename, "\"", "")+"\"")
	c.Set("Cache-Control", "private, max-age=3600")
	return c.SendStream(f, int(file.Size))
}
