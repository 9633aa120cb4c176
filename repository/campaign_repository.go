package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/Lovelify-Dash/models"
	"github.com/amirphl/Lovelify-Dash/utils"
	"gorm.io/gorm"
)

// CampaignRepositoryImpl implements the CampaignRepository interface
type CampaignRepositoryImpl struct {
	*BaseRepository[models.Campaign, models.CampaignFilter]
}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository(db *gorm.DB) CampaignRepository {
	return &CampaignRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Campaign, models.CampaignFilter](db),
	}
}

// UpdateStatus updates only the status of a campaign, guarded by its current status
func (r *CampaignRepositoryImpl) UpdateStatus(ctx context.Context, id uint, from, to models.DeliveryStatus) (bool, error) {
	var matched bool
	err := r.write(ctx, func(db *gorm.DB) error {
		res := db.Model(&models.Campaign{}).
			Where("id = ? AND status = ?", id, from).
			Updates(map[string]any{
				"status":     to,
				"updated_at": utils.UTCNow(),
			})
		if res.Error != nil {
			return res.Error
		}
		matched = res.RowsAffected == 1
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to update campaign status: %w", err)
	}
	return matched, nil
}

// ListEnded retrieves ACTIVE campaigns whose end date is before day
func (r *CampaignRepositoryImpl) ListEnded(ctx context.Context, workspaceID *uint, day time.Time) ([]*models.Campaign, error) {
	status := models.DeliveryStatusActive
	cutoff := utils.DateOnly(day)
	filter := models.CampaignFilter{
		WorkspaceID: workspaceID,
		Status:      &status,
		EndedBefore: &cutoff,
	}
	return r.ByFilter(ctx, filter, "id ASC", 0, 0)
}

// AdSetCounts returns a map of campaign_id -> number of ad sets
func (r *CampaignRepositoryImpl) AdSetCounts(ctx context.Context, campaignIDs []uint) (map[uint]int64, error) {
	out := make(map[uint]int64)
	if len(campaignIDs) == 0 {
		return out, nil
	}
	type row struct {
		CampaignID uint
		AdSets     int64
	}
	var rows []row
	db := r.getDB(ctx)
	if err := db.Model(&models.AdSet{}).
		Select("campaign_id, COUNT(*) AS ad_sets").
		Where("campaign_id IN ?", campaignIDs).
		Group("campaign_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.CampaignID] = r.AdSets
	}
	return out, nil
}

// ByFilter retrieves campaigns based on filter criteria
func (r *CampaignRepositoryImpl) ByFilter(ctx context.Context, filter models.CampaignFilter, orderBy string, limit, offset int) ([]*models.Campaign, error) {
	db := r.getDB(ctx)

	var campaigns []*models.Campaign
	query := paginate(r.applyFilter(db, filter), orderBy, limit, offset)

	if err := query.Find(&campaigns).Error; err != nil {
		return nil, err
	}

	return campaigns, nil
}

// Count returns the number of campaigns matching the filter
func (r *CampaignRepositoryImpl) Count(ctx context.Context, filter models.CampaignFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Campaign{}), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if a campaign exists based on filter criteria
func (r *CampaignRepositoryImpl) Exists(ctx context.Context, filter models.CampaignFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies filter conditions to the query
func (r *CampaignRepositoryImpl) applyFilter(query *gorm.DB, filter models.CampaignFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.WorkspaceID != nil {
		query = query.Where("workspace_id = ?", *filter.WorkspaceID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Platform != nil {
		query = query.Where("platform = ?", *filter.Platform)
	}
	if filter.Name != nil && *filter.Name != "" {
		query = query.Where("name ILIKE ?", "%"+*filter.Name+"%")
	}
	if filter.EndedBefore != nil {
		query = query.Where("end_date IS NOT NULL AND end_date < ?", *filter.EndedBefore)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at <= ?", *filter.CreatedBefore)
	}
	if filter.MinBudget != nil {
		query = query.Where("budget >= ?", *filter.MinBudget)
	}
	if filter.MaxBudget != nil {
		query = query.Where("budget <= ?", *filter.MaxBudget)
	}

	return query
}
