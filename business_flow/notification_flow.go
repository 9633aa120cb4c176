package businessflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/amirphl/Lovelify-Dash/app/dto"
	"github.com/amirphl/Lovelify-Dash/app/services"
	"github.com/amirphl/Lovelify-Dash/models"
	"github.com/amirphl/Lovelify-Dash/repository"
	"github.com/amirphl/Lovelify-Dash/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// maxPollItems caps one poll response; the cursor lets the client fetch the rest
const maxPollItems = 100

// NotificationFlow handles the notification center of a workspace member
type NotificationFlow interface {
	Create(ctx context.Context, req dto.CreateNotificationRequest) (*dto.NotificationResponse, error)
	List(ctx context.Context, req *dto.ListNotificationsRequest) (*dto.ListNotificationsResponse, error)
	UnreadCount(ctx context.Context, workspaceID, userID uint) (*dto.UnreadCountResponse, error)
	MarkRead(ctx context.Context, workspaceID, userID uint, notificationUUID string) (*dto.NotificationResponse, error)
	MarkAllRead(ctx context.Context, workspaceID, userID uint) (*dto.MarkAllReadResponse, error)
	Delete(ctx context.Context, workspaceID, userID uint, notificationUUID string, metadata *ClientMetadata) error
	Poll(ctx context.Context, req *dto.PollNotificationsRequest) (*dto.PollNotificationsResponse, error)
	Subscribe(workspaceID, userID uint) (<-chan *models.Notification, func())
}

// NotificationFlowImpl implements the notification business flow
type NotificationFlowImpl struct {
	notificationRepo repository.NotificationRepository
	auditRepo        repository.AuditLogRepository
	notifier         *Notifier
	hub              services.NotificationService
	db               *gorm.DB
}

// NewNotificationFlow creates a new notification flow instance
func NewNotificationFlow(
	notificationRepo repository.NotificationRepository,
	auditRepo repository.AuditLogRepository,
	notifier *Notifier,
	hub services.NotificationService,
	db *gorm.DB,
) NotificationFlow {
	return &NotificationFlowImpl{
		notificationRepo: notificationRepo,
		auditRepo:        auditRepo,
		notifier:         notifier,
		hub:              hub,
		db:               db,
	}
}

// Create stores a notification and pushes it to live subscribers
func (nf *NotificationFlowImpl) Create(ctx context.Context, req dto.CreateNotificationRequest) (*dto.NotificationResponse, error) {
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Message) == "" {
		return nil, NewBusinessError("CREATE_NOTIFICATION_FAILED", "Failed to create notification",
			fmt.Errorf("title and message are required"))
	}
	if req.Type != "" && !models.NotificationType(req.Type).Valid() {
		return nil, NewBusinessError("CREATE_NOTIFICATION_FAILED", "Failed to create notification",
			fmt.Errorf("unknown notification type %q", req.Type))
	}
	if req.Category != "" && !models.NotificationCategory(req.Category).Valid() {
		return nil, NewBusinessError("CREATE_NOTIFICATION_FAILED", "Failed to create notification",
			fmt.Errorf("unknown notification category %q", req.Category))
	}
	if req.Priority != "" && !models.NotificationPriority(req.Priority).Valid() {
		return nil, NewBusinessError("CREATE_NOTIFICATION_FAILED", "Failed to create notification",
			fmt.Errorf("unknown notification priority %q", req.Priority))
	}

	n, err := nf.notifier.NotifyAndPublish(ctx, req)
	if err != nil {
		return nil, NewBusinessError("CREATE_NOTIFICATION_FAILED", "Failed to create notification", err)
	}
	resp := ToNotificationResponse(n)
	return &resp, nil
}

func visibleFilter(workspaceID, userID uint) models.NotificationFilter {
	return models.NotificationFilter{WorkspaceID: &workspaceID, VisibleToUserID: &userID}
}

func (nf *NotificationFlowImpl) unread(ctx context.Context, workspaceID, userID uint) (int64, error) {
	f := visibleFilter(workspaceID, userID)
	f.Read = utils.ToPtr(false)
	return nf.notificationRepo.Count(ctx, f)
}

// List returns the newest notifications first
func (nf *NotificationFlowImpl) List(ctx context.Context, req *dto.ListNotificationsRequest) (*dto.ListNotificationsResponse, error) {
	filter := visibleFilter(req.WorkspaceID, req.UserID)
	if req.UnreadOnly {
		filter.Read = utils.ToPtr(false)
	}
	if req.Category != "" {
		category := models.NotificationCategory(req.Category)
		filter.Category = &category
	}

	page, pageSize, offset := pageParams(req.PageRequest)
	total, err := nf.notificationRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("LIST_NOTIFICATIONS_FAILED", "Failed to list notifications", err)
	}
	rows, err := nf.notificationRepo.ByFilter(ctx, filter, "created_at DESC, id DESC", pageSize, offset)
	if err != nil {
		return nil, NewBusinessError("LIST_NOTIFICATIONS_FAILED", "Failed to list notifications", err)
	}
	unread, err := nf.unread(ctx, req.WorkspaceID, req.UserID)
	if err != nil {
		return nil, NewBusinessError("LIST_NOTIFICATIONS_FAILED", "Failed to list notifications", err)
	}

	items := make([]dto.NotificationResponse, 0, len(rows))
	for _, n := range rows {
		items = append(items, ToNotificationResponse(n))
	}
	return &dto.ListNotificationsResponse{
		Items:       items,
		UnreadCount: unread,
		Pagination:  newPagination(page, pageSize, total),
	}, nil
}

// UnreadCount returns the badge count
func (nf *NotificationFlowImpl) UnreadCount(ctx context.Context, workspaceID, userID uint) (*dto.UnreadCountResponse, error) {
	count, err := nf.unread(ctx, workspaceID, userID)
	if err != nil {
		return nil, NewBusinessError("UNREAD_COUNT_FAILED", "Failed to count unread notifications", err)
	}
	return &dto.UnreadCountResponse{UnreadCount: count}, nil
}

func (nf *NotificationFlowImpl) findVisible(ctx context.Context, workspaceID, userID uint, id string) (*models.Notification, error) {
	n, err := findInWorkspace(ctx, nf.notificationRepo, id, workspaceID,
		func(n *models.Notification) uint { return n.WorkspaceID }, ErrNotificationNotFound)
	if err != nil {
		return nil, err
	}
	if !n.VisibleTo(userID) {
		return nil, ErrNotificationNotFound
	}
	return n, nil
}

// MarkRead flags one notification as read. Marking a read notification again is a no-op.
func (nf *NotificationFlowImpl) MarkRead(ctx context.Context, workspaceID, userID uint, notificationUUID string) (*dto.NotificationResponse, error) {
	n, err := nf.findVisible(ctx, workspaceID, userID, notificationUUID)
	if err != nil {
		return nil, NewBusinessError("MARK_NOTIFICATION_READ_FAILED", "Failed to mark notification read", err)
	}
	if !n.Read {
		now := utils.UTCNow()
		if err := nf.notificationRepo.MarkRead(ctx, n.ID, now); err != nil {
			return nil, NewBusinessError("MARK_NOTIFICATION_READ_FAILED", "Failed to mark notification read", err)
		}
		n.Read = true
		n.ReadAt = &now
	}
	resp := ToNotificationResponse(n)
	return &resp, nil
}

// MarkAllRead flags every unread notification visible to the user
func (nf *NotificationFlowImpl) MarkAllRead(ctx context.Context, workspaceID, userID uint) (*dto.MarkAllReadResponse, error) {
	updated, err := nf.notificationRepo.MarkAllRead(ctx, workspaceID, userID, utils.UTCNow())
	if err != nil {
		return nil, NewBusinessError("MARK_ALL_READ_FAILED", "Failed to mark notifications read", err)
	}
	return &dto.MarkAllReadResponse{Updated: updated}, nil
}

// Delete removes a notification visible to the user
func (nf *NotificationFlowImpl) Delete(ctx context.Context, workspaceID, userID uint, notificationUUID string, metadata *ClientMetadata) error {
	err := repository.WithTransaction(ctx, nf.db, func(txCtx context.Context) error {
		n, err := nf.findVisible(txCtx, workspaceID, userID, notificationUUID)
		if err != nil {
			return err
		}
		if err := nf.notificationRepo.Delete(txCtx, n.ID); err != nil {
			return err
		}
		return createAuditLog(txCtx, nf.auditRepo, auditEntry{
			WorkspaceID: &workspaceID,
			UserID:      &userID,
			Action:      models.AuditActionNotificationDelete,
			Description: fmt.Sprintf("Deleted notification %s", n.UUID),
			Success:     true,
		}, metadata)
	})
	if err != nil {
		_ = createAuditLog(ctx, nf.auditRepo, failureEntry(&workspaceID, &userID,
			models.AuditActionNotificationDelete, "Notification deletion failed", err), metadata)
		return NewBusinessError("DELETE_NOTIFICATION_FAILED", "Failed to delete notification", err)
	}
	return nil
}

// Poll returns notifications the client has not seen yet, oldest first.
// Without a cursor it returns the latest page so a fresh client can seed its list.
// Each poll looks pollGraceWindow behind the cursor mark, skipping rows the cursor
// lists as delivered, so rows committed late are still returned exactly once.
func (nf *NotificationFlowImpl) Poll(ctx context.Context, req *dto.PollNotificationsRequest) (*dto.PollNotificationsResponse, error) {
	filter := visibleFilter(req.WorkspaceID, req.UserID)

	var (
		rows  []*models.Notification
		err   error
		cur   = pollCursor{Mark: utils.UTCNow(), Seen: map[uuid.UUID]bool{}}
		limit = maxPollItems
	)
	if strings.TrimSpace(req.Since) != "" {
		cur, err = parsePollCursor(req.Since)
		if err != nil {
			return nil, NewBusinessError("POLL_NOTIFICATIONS_FAILED", "Failed to poll notifications", ErrInvalidCursor)
		}
		floor := cur.Mark.Add(-pollGraceWindow)
		filter.CreatedAfter = &floor
		limit += len(cur.Seen)
		rows, err = nf.notificationRepo.ByFilter(ctx, filter, "created_at ASC, id ASC", limit, 0)
	} else {
		rows, err = nf.notificationRepo.ByFilter(ctx, filter, "created_at DESC, id DESC", limit, 0)
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	}
	if err != nil {
		return nil, NewBusinessError("POLL_NOTIFICATIONS_FAILED", "Failed to poll notifications", err)
	}

	unread, err := nf.unread(ctx, req.WorkspaceID, req.UserID)
	if err != nil {
		return nil, NewBusinessError("POLL_NOTIFICATIONS_FAILED", "Failed to poll notifications", err)
	}

	delivered := make(map[uuid.UUID]bool, len(cur.Seen)+len(rows))
	fetched := make(map[uuid.UUID]bool, len(rows))
	items := make([]dto.NotificationResponse, 0, len(rows))
	mark := cur.Mark
	for _, n := range rows {
		fetched[n.UUID] = true
		if cur.Seen[n.UUID] {
			delivered[n.UUID] = true
			continue
		}
		if len(items) == maxPollItems {
			continue
		}
		items = append(items, ToNotificationResponse(n))
		delivered[n.UUID] = true
		if n.CreatedAt.After(mark) {
			mark = n.CreatedAt.UTC()
		}
	}

	// a truncated page may have cut off rows the client already has; keep their ids
	if len(rows) == limit {
		for id := range cur.Seen {
			if !fetched[id] {
				rows = append(rows, &models.Notification{UUID: id, CreatedAt: mark})
				delivered[id] = true
			}
		}
	}
	return &dto.PollNotificationsResponse{Items: items, UnreadCount: unread, Cursor: encodePollCursor(mark, rows, delivered)}, nil
}

// Subscribe registers a live listener. Without a hub the channel is closed on unsubscribe and never receives.
func (nf *NotificationFlowImpl) Subscribe(workspaceID, userID uint) (<-chan *models.Notification, func()) {
	if nf.hub == nil {
		ch := make(chan *models.Notification)
		return ch, func() { close(ch) }
	}
	return nf.hub.Subscribe(workspaceID, userID)
}
