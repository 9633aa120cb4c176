package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/Lovelify-Dash/models"
	"gorm.io/gorm"
)

// CreativeRepositoryImpl implements CreativeRepository
type CreativeRepositoryImpl struct {
	*BaseRepository[models.Creative, models.CreativeFilter]
}

// NewCreativeRepository creates a new creative repository
func NewCreativeRepository(db *gorm.DB) CreativeRepository {
	return &CreativeRepositoryImpl{BaseRepository: NewBaseRepository[models.Creative, models.CreativeFilter](db)}
}

func (r *CreativeRepositoryImpl) ByFilter(ctx context.Context, filter models.CreativeFilter, orderBy string, limit, offset int) ([]*models.Creative, error) {
	db := r.getDB(ctx)
	var creatives []*models.Creative
	query := paginate(r.applyFilter(db, filter), orderBy, limit, offset)
	if err := query.Find(&creatives).Error; err != nil {
		return nil, fmt.Errorf("failed to find creatives: %w", err)
	}
	return creatives, nil
}

func (r *CreativeRepositoryImpl) Count(ctx context.Context, filter models.CreativeFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := r.applyFilter(db.Model(&models.Creative{}), filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count creatives: %w", err)
	}
	return count, nil
}

func (r *CreativeRepositoryImpl) Exists(ctx context.Context, filter models.CreativeFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *CreativeRepositoryImpl) applyFilter(db *gorm.DB, filter models.CreativeFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.WorkspaceID != nil {
		db = db.Where("workspace_id = ?", *filter.WorkspaceID)
	}
	if filter.Type != nil {
		db = db.Where("type = ?", *filter.Type)
	}
	if filter.Name != nil && *filter.Name != "" {
		db = db.Where("name ILIKE ?", "%"+*filter.Name+"%")
	}
	if filter.Tag != nil && *filter.Tag != "" {
		db = db.Where("? = ANY(tags)", *filter.Tag)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return db
}
