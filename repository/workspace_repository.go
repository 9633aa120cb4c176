package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/Lovelify-Dash/models"
	"github.com/amirphl/Lovelify-Dash/utils"
	"gorm.io/gorm"
)

// WorkspaceRepositoryImpl implements WorkspaceRepository interface
type WorkspaceRepositoryImpl struct {
	*BaseRepository[models.Workspace, models.WorkspaceFilter]
}

// NewWorkspaceRepository creates a new workspace repository
func NewWorkspaceRepository(db *gorm.DB) WorkspaceRepository {
	return &WorkspaceRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Workspace, models.WorkspaceFilter](db),
	}
}

// BySlug retrieves a workspace by slug
func (r *WorkspaceRepositoryImpl) BySlug(ctx context.Context, slug string) (*models.Workspace, error) {
	workspaces, err := r.ByFilter(ctx, models.WorkspaceFilter{Slug: &slug}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(workspaces) == 0 {
		return nil, nil
	}
	return workspaces[0], nil
}

// ListActive retrieves every active workspace
func (r *WorkspaceRepositoryImpl) ListActive(ctx context.Context) ([]*models.Workspace, error) {
	return r.ByFilter(ctx, models.WorkspaceFilter{IsActive: utils.ToPtr(true)}, "id ASC", 0, 0)
}

// ByFilter retrieves workspaces based on filter criteria
func (r *WorkspaceRepositoryImpl) ByFilter(ctx context.Context, filter models.WorkspaceFilter, orderBy string, limit, offset int) ([]*models.Workspace, error) {
	db := r.getDB(ctx)

	var workspaces []*models.Workspace
	query := paginate(r.applyFilter(db, filter), orderBy, limit, offset)

	if err := query.Find(&workspaces).Error; err != nil {
		return nil, fmt.Errorf("failed to find workspaces by filter: %w", err)
	}

	return workspaces, nil
}

// Count returns the number of workspaces matching the filter
func (r *WorkspaceRepositoryImpl) Count(ctx context.Context, filter models.WorkspaceFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	if err := r.applyFilter(db.Model(&models.Workspace{}), filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count workspaces: %w", err)
	}

	return count, nil
}

// Exists checks if any workspace matching the filter exists
func (r *WorkspaceRepositoryImpl) Exists(ctx context.Context, filter models.WorkspaceFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *WorkspaceRepositoryImpl) applyFilter(db *gorm.DB, filter models.WorkspaceFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.Slug != nil {
		db = db.Where("slug = ?", *filter.Slug)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}
	return db
}
