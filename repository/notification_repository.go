package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/Lovelify-Dash/models"
	"gorm.io/gorm"
)

// NotificationRepositoryImpl implements NotificationRepository
type NotificationRepositoryImpl struct {
	*BaseRepository[models.Notification, models.NotificationFilter]
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &NotificationRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Notification, models.NotificationFilter](db),
	}
}

// MarkRead flags a single notification as read. Already-read rows keep their original read_at.
func (r *NotificationRepositoryImpl) MarkRead(ctx context.Context, id uint, at time.Time) error {
	return r.write(ctx, func(db *gorm.DB) error {
		return db.Model(&models.Notification{}).
			Where("id = ? AND read = ?", id, false).
			Updates(map[string]any{"read": true, "read_at": at}).Error
	})
}

// MarkAllRead flags every unread notification visible to the user as read
func (r *NotificationRepositoryImpl) MarkAllRead(ctx context.Context, workspaceID, userID uint, at time.Time) (int64, error) {
	var affected int64
	err := r.write(ctx, func(db *gorm.DB) error {
		unread := false
		filter := models.NotificationFilter{WorkspaceID: &workspaceID, VisibleToUserID: &userID, Read: &unread}
		res := r.applyFilter(db.Model(&models.Notification{}), filter).
			Updates(map[string]any{"read": true, "read_at": at})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return affected, nil
}

// ByFilter retrieves notifications based on filter criteria
func (r *NotificationRepositoryImpl) ByFilter(ctx context.Context, filter models.NotificationFilter, orderBy string, limit, offset int) ([]*models.Notification, error) {
	db := r.getDB(ctx)
	var notifications []*models.Notification
	if err := paginate(r.applyFilter(db, filter), orderBy, limit, offset).Find(&notifications).Error; err != nil {
		return nil, fmt.Errorf("failed to find notifications: %w", err)
	}
	return notifications, nil
}

// Count returns the number of notifications matching the filter
func (r *NotificationRepositoryImpl) Count(ctx context.Context, filter models.NotificationFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := r.applyFilter(db.Model(&models.Notification{}), filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

// Exists checks if any notification matches the filter
func (r *NotificationRepositoryImpl) Exists(ctx context.Context, filter models.NotificationFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *NotificationRepositoryImpl) applyFilter(db *gorm.DB, filter models.NotificationFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.WorkspaceID != nil {
		db = db.Where("workspace_id = ?", *filter.WorkspaceID)
	}
	if filter.VisibleToUserID != nil {
		db = db.Where("(user_id IS NULL OR user_id = ?)", *filter.VisibleToUserID)
	}
	if filter.Read != nil {
		db = db.Where("read = ?", *filter.Read)
	}
	if filter.Category != nil {
		db = db.Where("category = ?", *filter.Category)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at > ?", *filter.CreatedAfter)
	}
	return db
}
