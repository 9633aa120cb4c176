package businessflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/amirphl/Lovelify-Dash/app/dto"
	"github.com/amirphl/Lovelify-Dash/models"
	"github.com/amirphl/Lovelify-Dash/repository"
	"gorm.io/gorm"
)

// AdFlow handles ads under an ad set
type AdFlow interface {
	CreateAd(ctx context.Context, req *dto.CreateAdRequest, metadata *ClientMetadata) (*dto.AdResponse, error)
	UpdateAd(ctx context.Context, req *dto.UpdateAdRequest, metadata *ClientMetadata) (*dto.AdResponse, error)
	ListAds(ctx context.Context, workspaceID uint, adSetUUID string, page dto.PageRequest) (*dto.ListAdsResponse, error)
	ChangeStatus(ctx context.Context, req *dto.ChangeStatusRequest, metadata *ClientMetadata) (*dto.AdResponse, error)
}

// AdFlowImpl implements the ad business flow
type AdFlowImpl struct {
	adSetRepo    repository.AdSetRepository
	adRepo       repository.AdRepository
	creativeRepo repository.CreativeRepository
	auditRepo    repository.AuditLogRepository
	db           *gorm.DB
}

// NewAdFlow creates a new ad flow instance
func NewAdFlow(
	adSetRepo repository.AdSetRepository,
	adRepo repository.AdRepository,
	creativeRepo repository.CreativeRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) AdFlow {
	return &AdFlowImpl{
		adSetRepo:    adSetRepo,
		adRepo:       adRepo,
		creativeRepo: creativeRepo,
		auditRepo:    auditRepo,
		db:           db,
	}
}

// CreateAd adds a DRAFT ad to an ad set that is not archived
func (af *AdFlowImpl) CreateAd(ctx context.Context, req *dto.CreateAdRequest, metadata *ClientMetadata) (*dto.AdResponse, error) {
	var (
		adSet    *models.AdSet
		ad       *models.Ad
		creative *models.Creative
	)
	err := repository.WithTransaction(ctx, af.db, func(txCtx context.Context) error {
		var err error
		adSet, err = findInWorkspace(txCtx, af.adSetRepo, req.AdSetUUID, req.WorkspaceID,
			func(a *models.AdSet) uint { return a.WorkspaceID }, ErrAdSetNotFound)
		if err != nil {
			return err
		}
		if adSet.Status == models.DeliveryStatusArchived {
			return fmt.Errorf("%w: ad set %s", ErrParentArchived, adSet.UUID)
		}

		ad = &models.Ad{
			WorkspaceID:    adSet.WorkspaceID,
			AdSetID:        adSet.ID,
			Name:           strings.TrimSpace(req.Name),
			Headline:       strings.TrimSpace(req.Headline),
			PrimaryText:    req.PrimaryText,
			DestinationURL: req.DestinationURL,
			CallToAction:   req.CallToAction,
			Status:         models.DeliveryStatusDraft,
		}
		if req.CreativeUUID != nil && *req.CreativeUUID != "" {
			creative, err = af.findCreative(txCtx, adSet.WorkspaceID, *req.CreativeUUID)
			if err != nil {
				return err
			}
			ad.CreativeID = &creative.ID
		}

		if err := af.adRepo.Save(txCtx, ad); err != nil {
			return err
		}

		return createAuditLog(txCtx, af.auditRepo, auditEntry{
			WorkspaceID: &req.WorkspaceID,
			UserID:      &req.UserID,
			Action:      models.AuditActionAdCreated,
			Description: fmt.Sprintf("Ad %q created in ad set %q", ad.Name, adSet.Name),
			Success:     true,
			Details:     map[string]any{"ad_uuid": ad.UUID.String(), "ad_set_uuid": adSet.UUID.String()},
		}, metadata)
	})
	if err != nil {
		_ = createAuditLog(ctx, af.auditRepo, failureEntry(&req.WorkspaceID, &req.UserID,
			models.AuditActionAdCreated, fmt.Sprintf("Ad creation in ad set %s failed", req.AdSetUUID), err), metadata)
		return nil, NewBusinessError("CREATE_AD_FAILED", "Failed to create ad", err)
	}

	resp := ToAdResponse(ad, adSet.UUID.String(), creative)
	return &resp, nil
}

// UpdateAd applies a partial update to an editable ad
func (af *AdFlowImpl) UpdateAd(ctx context.Context, req *dto.UpdateAdRequest, metadata *ClientMetadata) (*dto.AdResponse, error) {
	if req.Name == nil && req.Headline == nil && req.PrimaryText == nil && req.CreativeUUID == nil &&
		req.DestinationURL == nil && req.CallToAction == nil {
		return nil, NewBusinessError("AD_VALIDATION_FAILED", "Ad validation failed", ErrCampaignUpdateRequired)
	}

	var (
		ad        *models.Ad
		adSetUUID string
		creative  *models.Creative
	)
	err := repository.WithTransaction(ctx, af.db, func(txCtx context.Context) error {
		var err error
		ad, err = af.findAd(txCtx, req.WorkspaceID, req.UUID)
		if err != nil {
			return err
		}
		if !ad.Status.IsEditable() {
			return ErrAdNotEditable
		}

		if req.Name != nil {
			ad.Name = strings.TrimSpace(*req.Name)
		}
		if req.Headline != nil {
			ad.Headline = strings.TrimSpace(*req.Headline)
		}
		if req.PrimaryText != nil {
			ad.PrimaryText = req.PrimaryText
		}
		if req.DestinationURL != nil {
			ad.DestinationURL = *req.DestinationURL
		}
		if req.CallToAction != nil {
			ad.CallToAction = req.CallToAction
		}
		if req.CreativeUUID != nil {
			if *req.CreativeUUID == "" {
				ad.CreativeID = nil
			} else {
				creative, err = af.findCreative(txCtx, ad.WorkspaceID, *req.CreativeUUID)
				if err != nil {
					return err
				}
				ad.CreativeID = &creative.ID
			}
		} else if ad.CreativeID != nil {
			creative, err = af.creativeRepo.ByID(txCtx, *ad.CreativeID)
			if err != nil {
				return err
			}
		}

		if err := af.adRepo.Update(txCtx, ad); err != nil {
			return err
		}

		adSet, err := af.adSetRepo.ByID(txCtx, ad.AdSetID)
		if err != nil {
			return err
		}
		if adSet != nil {
			adSetUUID = adSet.UUID.String()
		}

		return createAuditLog(txCtx, af.auditRepo, auditEntry{
			WorkspaceID: &req.WorkspaceID,
			UserID:      &req.UserID,
			Action:      models.AuditActionAdUpdated,
			Description: fmt.Sprintf("Ad %q updated", ad.Name),
			Success:     true,
			Details:     map[string]any{"ad_uuid": ad.UUID.String()},
		}, metadata)
	})
	if err != nil {
		_ = createAuditLog(ctx, af.auditRepo, failureEntry(&req.WorkspaceID, &req.UserID,
			models.AuditActionAdUpdated, fmt.Sprintf("Update of ad %s failed", req.UUID), err), metadata)
		return nil, NewBusinessError("UPDATE_AD_FAILED", "Failed to update ad", err)
	}

	resp := ToAdResponse(ad, adSetUUID, creative)
	return &resp, nil
}

// ListAds pages the ads of one ad set, newest first, with their creatives
func (af *AdFlowImpl) ListAds(ctx context.Context, workspaceID uint, adSetUUID string, req dto.PageRequest) (*dto.ListAdsResponse, error) {
	adSet, err := findInWorkspace(ctx, af.adSetRepo, adSetUUID, workspaceID,
		func(a *models.AdSet) uint { return a.WorkspaceID }, ErrAdSetNotFound)
	if err != nil {
		return nil, NewBusinessError("LIST_ADS_FAILED", "Failed to list ads", err)
	}

	filter := models.AdFilter{WorkspaceID: &adSet.WorkspaceID, AdSetID: &adSet.ID}
	page, pageSize, offset := pageParams(req)

	total, err := af.adRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("LIST_ADS_FAILED", "Failed to list ads", err)
	}
	ads, err := af.adRepo.ByFilter(ctx, filter, "created_at DESC, id DESC", pageSize, offset)
	if err != nil {
		return nil, NewBusinessError("LIST_ADS_FAILED", "Failed to list ads", err)
	}

	creatives := make(map[uint]*models.Creative)
	for _, ad := range ads {
		if ad.CreativeID == nil {
			continue
		}
		if _, ok := creatives[*ad.CreativeID]; ok {
			continue
		}
		creative, err := af.creativeRepo.ByID(ctx, *ad.CreativeID)
		if err != nil {
			return nil, NewBusinessError("LIST_ADS_FAILED", "Failed to list ads", err)
		}
		creatives[*ad.CreativeID] = creative
	}

	items := make([]dto.AdResponse, 0, len(ads))
	for _, ad := range ads {
		var creative *models.Creative
		if ad.CreativeID != nil {
			creative = creatives[*ad.CreativeID]
		}
		items = append(items, ToAdResponse(ad, adSet.UUID.String(), creative))
	}
	return &dto.ListAdsResponse{Items: items, Pagination: newPagination(page, pageSize, total)}, nil
}

// ChangeStatus moves an ad along the delivery lifecycle
func (af *AdFlowImpl) ChangeStatus(ctx context.Context, req *dto.ChangeStatusRequest, metadata *ClientMetadata) (*dto.AdResponse, error) {
	var (
		ad       *models.Ad
		adSet    *models.AdSet
		creative *models.Creative
	)
	err := repository.WithTransaction(ctx, af.db, func(txCtx context.Context) error {
		to, err := checkStatusChange(req)
		if err != nil {
			return err
		}

		ad, err = af.findAd(txCtx, req.WorkspaceID, req.UUID)
		if err != nil {
			return err
		}
		adSet, err = af.adSetRepo.ByID(txCtx, ad.AdSetID)
		if err != nil {
			return err
		}
		if adSet == nil {
			return ErrAdSetNotFound
		}
		if to == models.DeliveryStatusActive && adSet.Status == models.DeliveryStatusArchived {
			return fmt.Errorf("%w: ad set %s", ErrParentArchived, adSet.UUID)
		}

		from := ad.Status
		if !from.CanTransitionTo(to) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, from, to)
		}
		ok, err := af.adRepo.UpdateStatus(txCtx, ad.ID, from, to)
		if err != nil {
			return err
		}
		if !ok {
			return ErrStatusChanged
		}
		ad.Status = to

		if ad.CreativeID != nil {
			creative, err = af.creativeRepo.ByID(txCtx, *ad.CreativeID)
			if err != nil {
				return err
			}
		}

		return createAuditLog(txCtx, af.auditRepo, auditEntry{
			WorkspaceID: &req.WorkspaceID,
			UserID:      &req.UserID,
			Action:      models.AuditActionAdStatus,
			Description: fmt.Sprintf("Ad %q moved from %s to %s", ad.Name, from, to),
			Success:     true,
			Details:     map[string]any{"ad_uuid": ad.UUID.String(), "from": from, "to": to},
		}, metadata)
	})
	if err != nil {
		_ = createAuditLog(ctx, af.auditRepo, failureEntry(&req.WorkspaceID, &req.UserID,
			models.AuditActionAdStatus, fmt.Sprintf("Status change of ad %s failed", req.UUID), err), metadata)
		return nil, NewBusinessError("CHANGE_AD_STATUS_FAILED", "Failed to change ad status", err)
	}

	resp := ToAdResponse(ad, adSet.UUID.String(), creative)
	return &resp, nil
}

func (af *AdFlowImpl) findAd(ctx context.Context, workspaceID uint, adUUID string) (*models.Ad, error) {
	return findInWorkspace(ctx, af.adRepo, adUUID, workspaceID,
		func(a *models.Ad) uint { return a.WorkspaceID }, ErrAdNotFound)
}

func (af *AdFlowImpl) findCreative(ctx context.Context, workspaceID uint, creativeUUID string) (*models.Creative, error) {
	return findInWorkspace(ctx, af.creativeRepo, creativeUUID, workspaceID,
		func(c *models.Creative) uint { return c.WorkspaceID }, ErrCreativeNotFound)
}
