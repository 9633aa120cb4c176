package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amirphl/Lovelify-Dash/app/dto"
	businessflow "github.com/amirphl/Lovelify-Dash/business_flow"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

const streamKeepAlive = 25 * time.Second

// NotificationHandler serves the notification center
type NotificationHandler struct {
	baseHandler
	notificationFlow businessflow.NotificationFlow
	keepAlive        time.Duration
}

func NewNotificationHandler(notificationFlow businessflow.NotificationFlow, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		baseHandler:      newBaseHandler(logger),
		notificationFlow: notificationFlow,
		keepAlive:        streamKeepAlive,
	}
}

// List returns the caller's notifications newest first
// @Summary List notifications
// @Tags Notifications
// @Produce json
// @Param unread_only query bool false "Only unread"
// @Param category query string false "campaign, sync, billing or system"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.ListNotificationsResponse}
// @Router /api/v1/notifications [get]
func (h *NotificationHandler) List(c fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return h.unauthenticated(c)
	}

	var req dto.ListNotificationsRequest
	if ok, err := h.bindQuery(c, &req); !ok {
		return err
	}
	req.WorkspaceID = principal.WorkspaceID
	req.UserID = principal.UserID

	ctx, cancel := requestContext(c, "/api/v1/notifications")
	defer cancel()

	result, err := h.notificationFlow.List(ctx, &req)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to list notifications", "LIST_NOTIFICATIONS_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Notifications retrieved successfully", result)
}

func (h *NotificationHandler) UnreadCount(c fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return h.unauthenticated(c)
	}

	ctx, cancel := requestContext(c, "/api/v1/notifications/unread-count")
	defer cancel()

	result, err := h.notificationFlow.UnreadCount(ctx, principal.WorkspaceID, principal.UserID)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to count notifications", "UNREAD_COUNT_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Unread count retrieved successfully", result)
}

// Poll returns notifications created after the since cursor
// @Summary Poll notifications
// @Tags Notifications
// @Produce json
// @Param since query string false "Cursor returned by the previous poll"
// @Success 200 {object} dto.APIResponse{data=dto.PollNotificationsResponse}
// @Router /api/v1/notifications/poll [get]
func (h *NotificationHandler) Poll(c fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return h.unauthenticated(c)
	}

	var req dto.PollNotificationsRequest
	if ok, err := h.bindQuery(c, &req); !ok {
		return err
	}
	req.WorkspaceID = principal.WorkspaceID
	req.UserID = principal.UserID

	ctx, cancel := requestContext(c, "/api/v1/notifications/poll")
	defer cancel()

	result, err := h.notificationFlow.Poll(ctx, &req)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to poll notifications", "POLL_NOTIFICATIONS_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Notifications retrieved successfully", result)
}

func (h *NotificationHandler) MarkRead(c fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return h.unauthenticated(c)
	}

	ctx, cancel := requestContext(c, "/api/v1/notifications/:uuid/read")
	defer cancel()

	result, err := h.notificationFlow.MarkRead(ctx, principal.WorkspaceID, principal.UserID, c.Params("uuid"))
	if err != nil {
		return h.handleFlowError(c, err, "Failed to mark notification read", "MARK_READ_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Notification marked as read", result)
}

func (h *NotificationHandler) MarkAllRead(c fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return h.unauthenticated(c)
	}

	ctx, cancel := requestContext(c, "/api/v1/notifications/read-all")
	defer cancel()

	result, err := h.notificationFlow.MarkAllRead(ctx, principal.WorkspaceID, principal.UserID)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to mark notifications read", "MARK_ALL_READ_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Notifications marked as read", result)
}

func (h *NotificationHandler) Delete(c fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return h.unauthenticated(c)
	}

	ctx, cancel := requestContext(c, "/api/v1/notifications/:uuid")
	defer cancel()

	if err := h.notificationFlow.Delete(ctx, principal.WorkspaceID, principal.UserID, c.Params("uuid"), metadataFrom(c)); err != nil {
		return h.handleFlowError(c, err, "Failed to delete notification", "DELETE_NOTIFICATION_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Notification deleted successfully", nil)
}

// Stream pushes new notifications as server-sent events until the client goes away.
// @Summary Notification stream
// @Description Server-sent events. Pass the access token as access_token when headers cannot be set.
// @Tags Notifications
// @Produce text/event-stream
// @Router /api/v1/notifications/stream [get]
func (h *NotificationHandler) Stream(c fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return h.unauthenticated(c)
	}

	events, unsubscribe := h.notificationFlow.Subscribe(principal.WorkspaceID, principal.UserID)
	logger := h.logger.With(zap.Uint("workspace_id", principal.WorkspaceID), zap.Uint("user_id", principal.UserID))
	keepAlive := h.keepAlive

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	// c must not be touched inside the writer, it runs after the handler returns
	return c.SendStreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		if _, err := fmt.Fprint(w, "retry: 5000\n\n"); err != nil || w.Flush() != nil {
			return
		}

		for {
			select {
			case n, ok := <-events:
				if !ok {
					return
				}
				payload, err := json.Marshal(businessflow.ToNotificationResponse(n))
				if err != nil {
					logger.Warn("Failed to encode notification event", zap.Error(err))
					continue
				}
				if _, err := fmt.Fprintf(w, "id: %s\nevent: notification\ndata: %s\n\n", n.UUID, payload); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					logger.Debug("Notification stream closed", zap.Error(err))
					return
				}
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					logger.Debug("Notification stream closed", zap.Error(err))
					return
				}
			}
		}
	})
}
