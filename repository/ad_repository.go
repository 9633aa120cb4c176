package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/Lovelify-Dash/models"
	"github.com/amirphl/Lovelify-Dash/utils"
	"gorm.io/gorm"
)

// AdRepositoryImpl implements the AdRepository interface
type AdRepositoryImpl struct {
	*BaseRepository[models.Ad, models.AdFilter]
}

// NewAdRepository creates a new ad repository
func NewAdRepository(db *gorm.DB) AdRepository {
	return &AdRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Ad, models.AdFilter](db),
	}
}

// UpdateStatus updates only the status of an ad, guarded by its current status
func (r *AdRepositoryImpl) UpdateStatus(ctx context.Context, id uint, from, to models.DeliveryStatus) (bool, error) {
	var matched bool
	err := r.write(ctx, func(db *gorm.DB) error {
		res := db.Model(&models.Ad{}).
			Where("id = ? AND status = ?", id, from).
			Updates(map[string]any{"status": to, "updated_at": utils.UTCNow()})
		if res.Error != nil {
			return res.Error
		}
		matched = res.RowsAffected == 1
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to update ad status: %w", err)
	}
	return matched, nil
}

// ByFilter retrieves ads based on filter criteria
func (r *AdRepositoryImpl) ByFilter(ctx context.Context, filter models.AdFilter, orderBy string, limit, offset int) ([]*models.Ad, error) {
	db := r.getDB(ctx)

	var ads []*models.Ad
	query := paginate(r.applyFilter(db, filter), orderBy, limit, offset).Preload("Creative")

	if err := query.Find(&ads).Error; err != nil {
		return nil, err
	}

	return ads, nil
}

// Count returns the number of ads matching the filter
func (r *AdRepositoryImpl) Count(ctx context.Context, filter models.AdFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	if err := r.applyFilter(db.Model(&models.Ad{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if an ad exists based on filter criteria
func (r *AdRepositoryImpl) Exists(ctx context.Context, filter models.AdFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *AdRepositoryImpl) applyFilter(query *gorm.DB, filter models.AdFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.WorkspaceID != nil {
		query = query.Where("workspace_id = ?", *filter.WorkspaceID)
	}
	if filter.AdSetID != nil {
		query = query.Where("ad_set_id = ?", *filter.AdSetID)
	}
	if filter.CreativeID != nil {
		query = query.Where("creative_id = ?", *filter.CreativeID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Name != nil && *filter.Name != "" {
		query = query.Where("name ILIKE ?", "%"+*filter.Name+"%")
	}
	return query
}
