package businessflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/amirphl/Lovelify-Dash/app/dto"
	"github.com/amirphl/Lovelify-Dash/models"
	"github.com/amirphl/Lovelify-Dash/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AdSetFlow handles ad sets under a campaign
type AdSetFlow interface {
	CreateAdSet(ctx context.Context, req *dto.CreateAdSetRequest, metadata *ClientMetadata) (*dto.AdSetResponse, error)
	UpdateAdSet(ctx context.Context, req *dto.UpdateAdSetRequest, metadata *ClientMetadata) (*dto.AdSetResponse, error)
	ListAdSets(ctx context.Context, workspaceID uint, campaignUUID string, page dto.PageRequest) (*dto.ListAdSetsResponse, error)
	ChangeStatus(ctx context.Context, req *dto.ChangeStatusRequest, metadata *ClientMetadata) (*dto.AdSetResponse, error)
}

// AdSetFlowImpl implements the ad set business flow
type AdSetFlowImpl struct {
	campaignRepo repository.CampaignRepository
	adSetRepo    repository.AdSetRepository
	auditRepo    repository.AuditLogRepository
	notifier     *Notifier
	db           *gorm.DB
}

// NewAdSetFlow creates a new ad set flow instance
func NewAdSetFlow(
	campaignRepo repository.CampaignRepository,
	adSetRepo repository.AdSetRepository,
	auditRepo repository.AuditLogRepository,
	notifier *Notifier,
	db *gorm.DB,
) AdSetFlow {
	return &AdSetFlowImpl{
		campaignRepo: campaignRepo,
		adSetRepo:    adSetRepo,
		auditRepo:    auditRepo,
		notifier:     notifier,
		db:           db,
	}
}

// CreateAdSet adds a DRAFT ad set to a campaign that is not archived
func (af *AdSetFlowImpl) CreateAdSet(ctx context.Context, req *dto.CreateAdSetRequest, metadata *ClientMetadata) (*dto.AdSetResponse, error) {
	var (
		campaign *models.Campaign
		adSet    *models.AdSet
	)
	err := repository.WithTransaction(ctx, af.db, func(txCtx context.Context) error {
		var err error
		campaign, err = findInWorkspace(txCtx, af.campaignRepo, req.CampaignUUID, req.WorkspaceID,
			func(c *models.Campaign) uint { return c.WorkspaceID }, ErrCampaignNotFound)
		if err != nil {
			return err
		}
		if campaign.Status == models.DeliveryStatusArchived {
			return fmt.Errorf("%w: campaign %s", ErrParentArchived, campaign.UUID)
		}

		targeting := toTargeting(req.Targeting)
		if err := targeting.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidTargeting, err)
		}
		if req.Budget <= 0 {
			return ErrInvalidBudget
		}

		strategy := models.BidStrategy(req.BidStrategy)
		if strategy == "" {
			strategy = models.BidStrategyLowestCost
		}
		bidAmount, err := checkBid(strategy, req.BidAmount)
		if err != nil {
			return err
		}

		adSet = &models.AdSet{
			WorkspaceID: campaign.WorkspaceID,
			CampaignID:  campaign.ID,
			Name:        strings.TrimSpace(req.Name),
			Targeting:   targeting,
			Budget:      decimal.NewFromFloat(req.Budget).Round(2),
			BidStrategy: strategy,
			BidAmount:   bidAmount,
			Status:      models.DeliveryStatusDraft,
		}
		if err := af.adSetRepo.Save(txCtx, adSet); err != nil {
			return err
		}

		return createAuditLog(txCtx, af.auditRepo, auditEntry{
			WorkspaceID: &req.WorkspaceID,
			UserID:      &req.UserID,
			Action:      models.AuditActionAdSetCreated,
			Description: fmt.Sprintf("Ad set %q created in campaign %q", adSet.Name, campaign.Name),
			Success:     true,
			Details:     map[string]any{"ad_set_uuid": adSet.UUID.String(), "campaign_uuid": campaign.UUID.String()},
		}, metadata)
	})
	if err != nil {
		_ = createAuditLog(ctx, af.auditRepo, failureEntry(&req.WorkspaceID, &req.UserID,
			models.AuditActionAdSetCreated, fmt.Sprintf("Ad set creation in campaign %s failed", req.CampaignUUID), err), metadata)
		return nil, NewBusinessError("CREATE_AD_SET_FAILED", "Failed to create ad set", err)
	}

	resp := ToAdSetResponse(adSet, campaign.UUID.String())
	return &resp, nil
}

// UpdateAdSet applies a partial update to an editable ad set
func (af *AdSetFlowImpl) UpdateAdSet(ctx context.Context, req *dto.UpdateAdSetRequest, metadata *ClientMetadata) (*dto.AdSetResponse, error) {
	if req.Name == nil && req.Budget == nil && req.BidStrategy == nil && req.BidAmount == nil && req.Targeting == nil {
		return nil, NewBusinessError("AD_SET_VALIDATION_FAILED", "Ad set validation failed", ErrCampaignUpdateRequired)
	}

	var (
		adSet        *models.AdSet
		campaignUUID string
	)
	err := repository.WithTransaction(ctx, af.db, func(txCtx context.Context) error {
		var err error
		adSet, err = af.findAdSet(txCtx, req.WorkspaceID, req.UUID)
		if err != nil {
			return err
		}
		if !adSet.Status.IsEditable() {
			return ErrAdSetNotEditable
		}

		if req.Name != nil {
			adSet.Name = strings.TrimSpace(*req.Name)
		}
		if req.Budget != nil {
			if *req.Budget <= 0 {
				return ErrInvalidBudget
			}
			adSet.Budget = decimal.NewFromFloat(*req.Budget).Round(2)
		}
		if req.Targeting != nil {
			targeting := toTargeting(*req.Targeting)
			if err := targeting.Validate(); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidTargeting, err)
			}
			adSet.Targeting = targeting
		}
		if req.BidStrategy != nil || req.BidAmount != nil {
			strategy := adSet.BidStrategy
			if req.BidStrategy != nil {
				strategy = models.BidStrategy(*req.BidStrategy)
			}
			var amount *float64
			if req.BidAmount != nil {
				amount = req.BidAmount
			} else if adSet.BidAmount != nil {
				current := adSet.BidAmount.InexactFloat64()
				amount = &current
			}
			bidAmount, err := checkBid(strategy, amount)
			if err != nil {
				return err
			}
			adSet.BidStrategy = strategy
			adSet.BidAmount = bidAmount
		}

		if err := af.adSetRepo.Update(txCtx, adSet); err != nil {
			return err
		}

		campaign, err := af.campaignRepo.ByID(txCtx, adSet.CampaignID)
		if err != nil {
			return err
		}
		if campaign != nil {
			campaignUUID = campaign.UUID.String()
		}

		return createAuditLog(txCtx, af.auditRepo, auditEntry{
			WorkspaceID: &req.WorkspaceID,
			UserID:      &req.UserID,
			Action:      models.AuditActionAdSetUpdated,
			Description: fmt.Sprintf("Ad set %q updated", adSet.Name),
			Success:     true,
			Details:     map[string]any{"ad_set_uuid": adSet.UUID.String()},
		}, metadata)
	})
	if err != nil {
		_ = createAuditLog(ctx, af.auditRepo, failureEntry(&req.WorkspaceID, &req.UserID,
			models.AuditActionAdSetUpdated, fmt.Sprintf("Update of ad set %s failed", req.UUID), err), metadata)
		return nil, NewBusinessError("UPDATE_AD_SET_FAILED", "Failed to update ad set", err)
	}

	resp := ToAdSetResponse(adSet, campaignUUID)
	return &resp, nil
}

// ListAdSets pages the ad sets of one campaign, newest first
func (af *AdSetFlowImpl) ListAdSets(ctx context.Context, workspaceID uint, campaignUUID string, req dto.PageRequest) (*dto.ListAdSetsResponse, error) {
	campaign, err := findInWorkspace(ctx, af.campaignRepo, campaignUUID, workspaceID,
		func(c *models.Campaign) uint { return c.WorkspaceID }, ErrCampaignNotFound)
	if err != nil {
		return nil, NewBusinessError("LIST_AD_SETS_FAILED", "Failed to list ad sets", err)
	}

	filter := models.AdSetFilter{WorkspaceID: &campaign.WorkspaceID, CampaignID: &campaign.ID}
	page, pageSize, offset := pageParams(req)

	total, err := af.adSetRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("LIST_AD_SETS_FAILED", "Failed to list ad sets", err)
	}
	adSets, err := af.adSetRepo.ByFilter(ctx, filter, "created_at DESC, id DESC", pageSize, offset)
	if err != nil {
		return nil, NewBusinessError("LIST_AD_SETS_FAILED", "Failed to list ad sets", err)
	}

	items := make([]dto.AdSetResponse, 0, len(adSets))
	for _, a := range adSets {
		items = append(items, ToAdSetResponse(a, campaign.UUID.String()))
	}
	return &dto.ListAdSetsResponse{Items: items, Pagination: newPagination(page, pageSize, total)}, nil
}

// ChangeStatus moves an ad set along the delivery lifecycle
func (af *AdSetFlowImpl) ChangeStatus(ctx context.Context, req *dto.ChangeStatusRequest, metadata *ClientMetadata) (*dto.AdSetResponse, error) {
	var (
		adSet        *models.AdSet
		campaign     *models.Campaign
		notification *models.Notification
	)
	err := repository.WithTransaction(ctx, af.db, func(txCtx context.Context) error {
		to, err := checkStatusChange(req)
		if err != nil {
			return err
		}

		adSet, err = af.findAdSet(txCtx, req.WorkspaceID, req.UUID)
		if err != nil {
			return err
		}
		campaign, err = af.campaignRepo.ByID(txCtx, adSet.CampaignID)
		if err != nil {
			return err
		}
		if campaign == nil {
			return ErrCampaignNotFound
		}
		if to == models.DeliveryStatusActive && campaign.Status == models.DeliveryStatusArchived {
			return fmt.Errorf("%w: campaign %s", ErrParentArchived, campaign.UUID)
		}

		from := adSet.Status
		if !from.CanTransitionTo(to) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, from, to)
		}
		ok, err := af.adSetRepo.UpdateStatus(txCtx, adSet.ID, from, to)
		if err != nil {
			return err
		}
		if !ok {
			return ErrStatusChanged
		}
		adSet.Status = to

		if err := createAuditLog(txCtx, af.auditRepo, auditEntry{
			WorkspaceID: &req.WorkspaceID,
			UserID:      &req.UserID,
			Action:      models.AuditActionAdSetStatus,
			Description: fmt.Sprintf("Ad set %q moved from %s to %s", adSet.Name, from, to),
			Success:     true,
			Details:     map[string]any{"ad_set_uuid": adSet.UUID.String(), "from": from, "to": to},
		}, metadata); err != nil {
			return err
		}

		if af.notifier == nil {
			return nil
		}
		notification, err = af.notifier.Notify(txCtx, statusNotification(req.WorkspaceID, "Ad set", adSet.Name,
			"/campaigns/"+campaign.UUID.String(), from, to))
		return err
	})
	if err != nil {
		_ = createAuditLog(ctx, af.auditRepo, failureEntry(&req.WorkspaceID, &req.UserID,
			models.AuditActionAdSetStatus, fmt.Sprintf("Status change of ad set %s failed", req.UUID), err), metadata)
		return nil, NewBusinessError("CHANGE_AD_SET_STATUS_FAILED", "Failed to change ad set status", err)
	}

	if af.notifier != nil {
		af.notifier.Publish(ctx, notification)
	}

	resp := ToAdSetResponse(adSet, campaign.UUID.String())
	return &resp, nil
}

func (af *AdSetFlowImpl) findAdSet(ctx context.Context, workspaceID uint, adSetUUID string) (*models.AdSet, error) {
	return findInWorkspace(ctx, af.adSetRepo, adSetUUID, workspaceID,
		func(a *models.AdSet) uint { return a.WorkspaceID }, ErrAdSetNotFound)
}

func toTargeting(in dto.TargetingInput) models.Targeting {
	return models.Targeting{
		AgeMin:     in.AgeMin,
		AgeMax:     in.AgeMax,
		Genders:    in.Genders,
		Locations:  in.Locations,
		Placements: in.Placements,
		Interests:  in.Interests,
	}
}

// checkBid enforces a bid amount for strategies that need one and drops it for lowest cost
func checkBid(strategy models.BidStrategy, amount *float64) (*decimal.Decimal, error) {
	if !strategy.Valid() {
		return nil, fmt.Errorf("%w: unknown bid strategy %q", ErrBidAmountRequired, strategy)
	}
	if !strategy.RequiresBidAmount() {
		return nil, nil
	}
	if amount == nil || *amount <= 0 {
		return nil, ErrBidAmountRequired
	}
	d := decimal.NewFromFloat(*amount).Round(2)
	return &d, nil
}
