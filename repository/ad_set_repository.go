package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/Lovelify-Dash/models"
	"github.com/amirphl/Lovelify-Dash/utils"
	"gorm.io/gorm"
)

// AdSetRepositoryImpl implements the AdSetRepository interface
type AdSetRepositoryImpl struct {
	*BaseRepository[models.AdSet, models.AdSetFilter]
}

// NewAdSetRepository creates a new ad set repository
func NewAdSetRepository(db *gorm.DB) AdSetRepository {
	return &AdSetRepositoryImpl{
		BaseRepository: NewBaseRepository[models.AdSet, models.AdSetFilter](db),
	}
}

// UpdateStatus updates only the status of an ad set, guarded by its current status
func (r *AdSetRepositoryImpl) UpdateStatus(ctx context.Context, id uint, from, to models.DeliveryStatus) (bool, error) {
	var matched bool
	err := r.write(ctx, func(db *gorm.DB) error {
		res := db.Model(&models.AdSet{}).
			Where("id = ? AND status = ?", id, from).
			Updates(map[string]any{"status": to, "updated_at": utils.UTCNow()})
		if res.Error != nil {
			return res.Error
		}
		matched = res.RowsAffected == 1
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to update ad set status: %w", err)
	}
	return matched, nil
}

// ByFilter retrieves ad sets based on filter criteria
func (r *AdSetRepositoryImpl) ByFilter(ctx context.Context, filter models.AdSetFilter, orderBy string, limit, offset int) ([]*models.AdSet, error) {
	db := r.getDB(ctx)

	var adSets []*models.AdSet
	query := paginate(r.applyFilter(db, filter), orderBy, limit, offset)

	if err := query.Find(&adSets).Error; err != nil {
		return nil, err
	}

	return adSets, nil
}

// Count returns the number of ad sets matching the filter
func (r *AdSetRepositoryImpl) Count(ctx context.Context, filter models.AdSetFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	if err := r.applyFilter(db.Model(&models.AdSet{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if an ad set exists based on filter criteria
func (r *AdSetRepositoryImpl) Exists(ctx context.Context, filter models.AdSetFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *AdSetRepositoryImpl) applyFilter(query *gorm.DB, filter models.AdSetFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.WorkspaceID != nil {
		query = query.Where("workspace_id = ?", *filter.WorkspaceID)
	}
	if filter.CampaignID != nil {
		query = query.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Name != nil && *filter.Name != "" {
		query = query.Where("name ILIKE ?", "%"+*filter.Name+"%")
	}
	return query
}
