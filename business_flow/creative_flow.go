package businessflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/amirphl/Lovelify-Dash/app/dto"
	"github.com/amirphl/Lovelify-Dash/app/services"
	"github.com/amirphl/Lovelify-Dash/models"
	"github.com/amirphl/Lovelify-Dash/repository"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// CreativeStore is the file storage behind creatives
type CreativeStore interface {
	Save(reader io.Reader, filename string) (*services.StoredFile, error)
	Open(rel string) (string, error)
	Remove(paths ...string) error
}

// CreativeFlow handles the creative library
type CreativeFlow interface {
	UploadCreative(ctx context.Context, req *dto.UploadCreativeRequest, metadata *ClientMetadata) (*dto.CreativeResponse, error)
	ListCreatives(ctx context.Context, req *dto.ListCreativesRequest) (*dto.ListCreativesResponse, error)
	GetCreative(ctx context.Context, workspaceID uint, creativeUUID string) (*dto.CreativeResponse, error)
	DeleteCreative(ctx context.Context, workspaceID, userID uint, creativeUUID string, metadata *ClientMetadata) error
	DownloadCreative(ctx context.Context, workspaceID uint, creativeUUID string) (*dto.CreativeFile, error)
	CreativeThumbnail(ctx context.Context, workspaceID uint, creativeUUID string) (*dto.CreativeFile, error)
}

// CreativeFlowImpl implements the creative business flow
type CreativeFlowImpl struct {
	creativeRepo repository.CreativeRepository
	adRepo       repository.AdRepository
	auditRepo    repository.AuditLogRepository
	storage      CreativeStore
	db           *gorm.DB
}

// NewCreativeFlow creates a new creative flow instance
func NewCreativeFlow(
	creativeRepo repository.CreativeRepository,
	adRepo repository.AdRepository,
	auditRepo repository.AuditLogRepository,
	storage CreativeStore,
	db *gorm.DB,
) CreativeFlow {
	return &CreativeFlowImpl{
		creativeRepo: creativeRepo,
		adRepo:       adRepo,
		auditRepo:    auditRepo,
		storage:      storage,
		db:           db,
	}
}

// UploadCreative stores the file, then records it. The file is removed again if the record cannot be saved.
func (cf *CreativeFlowImpl) UploadCreative(ctx context.Context, req *dto.UploadCreativeRequest, metadata *ClientMetadata) (*dto.CreativeResponse, error) {
	stored, err := cf.storage.Save(req.File, req.Filename)
	if err != nil {
		err = mapStorageError(err)
		_ = createAuditLog(ctx, cf.auditRepo, failureEntry(&req.WorkspaceID, &req.UserID,
			models.AuditActionCreativeUploaded, fmt.Sprintf("Upload of %s failed", req.Filename), err), metadata)
		return nil, NewBusinessError("UPLOAD_CREATIVE_FAILED", "Failed to upload creative", err)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(req.Filename), filepath.Ext(req.Filename))
	}

	creative := &models.Creative{
		WorkspaceID:      req.WorkspaceID,
		Name:             name,
		Type:             stored.Type,
		Format:           stored.ContentType,
		OriginalFilename: filepath.Base(req.Filename),
		Width:            stored.Width,
		Height:           stored.Height,
		SizeBytes:        stored.Size,
		StoredPath:       stored.Path,
		ThumbnailPath:    stored.ThumbnailPath,
		Tags:             pq.StringArray(normalizeTags(req.Tags)),
		UploadedBy:       &req.UserID,
	}

	err = repository.WithTransaction(ctx, cf.db, func(txCtx context.Context) error {
		if err := cf.creativeRepo.Save(txCtx, creative); err != nil {
			return err
		}
		return createAuditLog(txCtx, cf.auditRepo, auditEntry{
			WorkspaceID: &req.WorkspaceID,
			UserID:      &req.UserID,
			Action:      models.AuditActionCreativeUploaded,
			Description: fmt.Sprintf("Creative %q uploaded", creative.Name),
			Success:     true,
			Details: map[string]any{
				"creative_uuid": creative.UUID.String(),
				"type":          creative.Type,
				"size_bytes":    creative.SizeBytes,
			},
		}, metadata)
	})
	if err != nil {
		_ = cf.storage.Remove(storedPaths(stored.Path, stored.ThumbnailPath)...)
		_ = createAuditLog(ctx, cf.auditRepo, failureEntry(&req.WorkspaceID, &req.UserID,
			models.AuditActionCreativeUploaded, fmt.Sprintf("Upload of %s failed", req.Filename), err), metadata)
		return nil, NewBusinessError("UPLOAD_CREATIVE_FAILED", "Failed to upload creative", err)
	}

	resp := ToCreativeResponse(creative)
	return &resp, nil
}

// ListCreatives pages the workspace's creatives, newest first
func (cf *CreativeFlowImpl) ListCreatives(ctx context.Context, req *dto.ListCreativesRequest) (*dto.ListCreativesResponse, error) {
	filter := models.CreativeFilter{WorkspaceID: &req.WorkspaceID}
	if req.Type != "" {
		t := models.CreativeType(req.Type)
		filter.Type = &t
	}
	if search := strings.TrimSpace(req.Search); search != "" {
		filter.Name = &search
	}
	if tag := strings.ToLower(strings.TrimSpace(req.Tag)); tag != "" {
		filter.Tag = &tag
	}
	page, pageSize, offset := pageParams(req.PageRequest)

	total, err := cf.creativeRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("LIST_CREATIVES_FAILED", "Failed to list creatives", err)
	}
	creatives, err := cf.creativeRepo.ByFilter(ctx, filter, "created_at DESC, id DESC", pageSize, offset)
	if err != nil {
		return nil, NewBusinessError("LIST_CREATIVES_FAILED", "Failed to list creatives", err)
	}

	items := make([]dto.CreativeResponse, 0, len(creatives))
	for _, c := range creatives {
		items = append(items, ToCreativeResponse(c))
	}
	return &dto.ListCreativesResponse{Items: items, Pagination: newPagination(page, pageSize, total)}, nil
}

// GetCreative returns one creative
func (cf *CreativeFlowImpl) GetCreative(ctx context.Context, workspaceID uint, creativeUUID string) (*dto.CreativeResponse, error) {
	creative, err := cf.findCreative(ctx, workspaceID, creativeUUID)
	if err != nil {
		return nil, NewBusinessError("GET_CREATIVE_FAILED", "Failed to get creative", err)
	}
	resp := ToCreativeResponse(creative)
	return &resp, nil
}

// DeleteCreative removes a creative no ad references, then its files
func (cf *CreativeFlowImpl) DeleteCreative(ctx context.Context, workspaceID, userID uint, creativeUUID string, metadata *ClientMetadata) error {
	var creative *models.Creative
	err := repository.WithTransaction(ctx, cf.db, func(txCtx context.Context) error {
		var err error
		creative, err = cf.findCreative(txCtx, workspaceID, creativeUUID)
		if err != nil {
			return err
		}

		inUse, err := cf.adRepo.Exists(txCtx, models.AdFilter{WorkspaceID: &workspaceID, CreativeID: &creative.ID})
		if err != nil {
			return err
		}
		if inUse {
			return ErrCreativeInUse
		}

		if err := cf.creativeRepo.Delete(txCtx, creative.ID); err != nil {
			return err
		}
		return createAuditLog(txCtx, cf.auditRepo, auditEntry{
			WorkspaceID: &workspaceID,
			UserID:      &userID,
			Action:      models.AuditActionCreativeDeleted,
			Description: fmt.Sprintf("Creative %q deleted", creative.Name),
			Success:     true,
			Details:     map[string]any{"creative_uuid": creative.UUID.String()},
		}, metadata)
	})
	if err != nil {
		_ = createAuditLog(ctx, cf.auditRepo, failureEntry(&workspaceID, &userID,
			models.AuditActionCreativeDeleted, fmt.Sprintf("Deletion of creative %s failed", creativeUUID), err), metadata)
		return NewBusinessError("DELETE_CREATIVE_FAILED", "Failed to delete creative", err)
	}

	// the row is gone, so a leftover file is only wasted disk
	_ = cf.storage.Remove(storedPaths(creative.StoredPath, creative.ThumbnailPath)...)
	return nil
}

// DownloadCreative resolves the original file of a creative
func (cf *CreativeFlowImpl) DownloadCreative(ctx context.Context, workspaceID uint, creativeUUID string) (*dto.CreativeFile, error) {
	creative, err := cf.findCreative(ctx, workspaceID, creativeUUID)
	if err != nil {
		return nil, NewBusinessError("DOWNLOAD_CREATIVE_FAILED", "Failed to download creative", err)
	}
	file, err := cf.open(creative.StoredPath, creative.Format, creative.OriginalFilename, ErrCreativeNotFound)
	if err != nil {
		return nil, NewBusinessError("DOWNLOAD_CREATIVE_FAILED", "Failed to download creative", err)
	}
	return file, nil
}

// CreativeThumbnail resolves the JPEG thumbnail of an image creative
func (cf *CreativeFlowImpl) CreativeThumbnail(ctx context.Context, workspaceID uint, creativeUUID string) (*dto.CreativeFile, error) {
	creative, err := cf.findCreative(ctx, workspaceID, creativeUUID)
	if err != nil {
		return nil, NewBusinessError("GET_THUMBNAIL_FAILED", "Failed to get thumbnail", err)
	}
	if !creative.HasThumbnail() {
		return nil, NewBusinessError("GET_THUMBNAIL_FAILED", "Failed to get thumbnail", ErrThumbnailNotAvailable)
	}

	base := strings.TrimSuffix(creative.OriginalFilename, filepath.Ext(creative.OriginalFilename))
	file, err := cf.open(*creative.ThumbnailPath, "image/jpeg", base+"_thumb.jpg", ErrThumbnailNotAvailable)
	if err != nil {
		return nil, NewBusinessError("GET_THUMBNAIL_FAILED", "Failed to get thumbnail", err)
	}
	return file, nil
}

func (cf *CreativeFlowImpl) open(rel, contentType, filename string, missing error) (*dto.CreativeFile, error) {
	path, err := cf.storage.Open(rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, services.ErrInvalidPath) {
			return nil, fmt.Errorf("%w: %v", missing, err)
		}
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", missing, err)
	}
	return &dto.CreativeFile{
		Path:        path,
		ContentType: contentType,
		Filename:    filename,
		Size:        info.Size(),
	}, nil
}

func (cf *CreativeFlowImpl) findCreative(ctx context.Context, workspaceID uint, creativeUUID string) (*models.Creative, error) {
	return findInWorkspace(ctx, cf.creativeRepo, creativeUUID, workspaceID,
		func(c *models.Creative) uint { return c.WorkspaceID }, ErrCreativeNotFound)
}

// mapStorageError turns storage failures into the flow's sentinel errors
func mapStorageError(err error) error {
	switch {
	case errors.Is(err, services.ErrFileTooLarge):
		return fmt.Errorf("%w: %v", ErrFileTooLarge, err)
	case errors.Is(err, services.ErrUnsupportedMedia), errors.Is(err, services.ErrEmptyFile):
		return fmt.Errorf("%w: %v", ErrUnsupportedMedia, err)
	default:
		return err
	}
}

func storedPaths(path string, thumbnail *string) []string {
	paths := []string{path}
	if thumbnail != nil && *thumbnail != "" {
		paths = append(paths, *thumbnail)
	}
	return paths
}

// normalizeTags lowercases, trims and de-duplicates tags, keeping their first-seen order
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
