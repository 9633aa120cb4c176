package businessflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/Lovelify-Dash/analytics"
	"github.com/amirphl/Lovelify-Dash/app/dto"
	"github.com/amirphl/Lovelify-Dash/models"
	"github.com/amirphl/Lovelify-Dash/repository"
	"github.com/amirphl/Lovelify-Dash/tablequery"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SummaryInvalidator drops the cached dashboard summaries of a workspace
type SummaryInvalidator interface {
	InvalidateWorkspace(ctx context.Context, workspaceID uint) error
}

// CampaignFlow handles the campaign level of the hierarchy
type CampaignFlow interface {
	CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CampaignResponse, error)
	UpdateCampaign(ctx context.Context, req *dto.UpdateCampaignRequest, metadata *ClientMetadata) (*dto.CampaignResponse, error)
	GetCampaign(ctx context.Context, workspaceID uint, campaignUUID string) (*dto.CampaignResponse, error)
	ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest) (*dto.ListCampaignsResponse, error)
	ChangeStatus(ctx context.Context, req *dto.ChangeStatusRequest, metadata *ClientMetadata) (*dto.CampaignResponse, error)
	Transitions(ctx context.Context, workspaceID uint, campaignUUID string) (*dto.TransitionsResponse, error)
	DeleteCampaign(ctx context.Context, workspaceID, userID uint, campaignUUID string, metadata *ClientMetadata) error
	Options(ctx context.Context) *dto.PlatformOptionsResponse
	Performance(ctx context.Context, req *dto.CampaignPerformanceRequest) (*dto.CampaignPerformanceResponse, error)
}

// CampaignFlowImpl implements the campaign business flow
type CampaignFlowImpl struct {
	campaignRepo  repository.CampaignRepository
	workspaceRepo repository.WorkspaceRepository
	metricRepo    repository.MetricRecordRepository
	auditRepo     repository.AuditLogRepository
	notifier      *Notifier
	cache         SummaryInvalidator
	logger        *zap.Logger
	db            *gorm.DB
}

// NewCampaignFlow creates a new campaign flow instance; cache may be nil
func NewCampaignFlow(
	campaignRepo repository.CampaignRepository,
	workspaceRepo repository.WorkspaceRepository,
	metricRepo repository.MetricRecordRepository,
	auditRepo repository.AuditLogRepository,
	notifier *Notifier,
	cache SummaryInvalidator,
	logger *zap.Logger,
	db *gorm.DB,
) CampaignFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CampaignFlowImpl{
		campaignRepo:  campaignRepo,
		workspaceRepo: workspaceRepo,
		metricRepo:    metricRepo,
		auditRepo:     auditRepo,
		notifier:      notifier,
		cache:         cache,
		logger:        logger,
		db:            db,
	}
}

var campaignOrderings = map[string]string{
	"newest": "created_at DESC, id DESC",
	"oldest": "created_at ASC, id ASC",
	"name":   "name ASC, id ASC",
	"budget": "budget DESC, id DESC",
}

// CreateCampaign stores a new DRAFT campaign
func (cf *CampaignFlowImpl) CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CampaignResponse, error) {
	campaign, err := cf.buildCampaign(req)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_VALIDATION_FAILED", "Campaign validation failed", err)
	}

	err = repository.WithTransaction(ctx, cf.db, func(txCtx context.Context) error {
		if err := cf.campaignRepo.Save(txCtx, campaign); err != nil {
			return err
		}
		return createAuditLog(txCtx, cf.auditRepo, auditEntry{
			WorkspaceID: &req.WorkspaceID,
			UserID:      &req.UserID,
			Action:      models.AuditActionCampaignCreated,
			Description: fmt.Sprintf("Campaign %q created", campaign.Name),
			Success:     true,
			Details:     map[string]any{"campaign_uuid": campaign.UUID.String(), "platform": campaign.Platform},
		}, metadata)
	})
	if err != nil {
		_ = createAuditLog(ctx, cf.auditRepo, failureEntry(&req.WorkspaceID, &req.UserID,
			models.AuditActionCampaignCreated, "Campaign creation failed", err), metadata)
		return nil, NewBusinessError("CREATE_CAMPAIGN_FAILED", "Failed to create campaign", err)
	}

	resp := ToCampaignResponse(campaign, 0)
	return &resp, nil
}

func (cf *CampaignFlowImpl) buildCampaign(req *dto.CreateCampaignRequest) (*models.Campaign, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrNameRequired
	}
	platform := models.Platform(strings.ToLower(req.Platform))
	if !platform.Valid() {
		return nil, fmt.Errorf("%w: unknown platform %q", ErrInvalidObjective, req.Platform)
	}
	objective := models.Objective(req.Objective)
	if !models.IsValidObjective(platform, objective) {
		return nil, ErrInvalidObjective
	}
	if req.Budget <= 0 {
		return nil, ErrInvalidBudget
	}

	budgetType := models.BudgetType(req.BudgetType)
	if budgetType == "" {
		budgetType = models.BudgetTypeDaily
	}

	start, end, err := parseFlight(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	return &models.Campaign{
		WorkspaceID: req.WorkspaceID,
		Name:        strings.TrimSpace(req.Name),
		Platform:    platform,
		Objective:   objective,
		Budget:      decimal.NewFromFloat(req.Budget).Round(2),
		BudgetType:  budgetType,
		Status:      models.DeliveryStatusDraft,
		StartDate:   start,
		EndDate:     end,
		CreatedBy:   &req.UserID,
	}, nil
}

// parseFlight parses the start and optional end date and checks their order
func parseFlight(startDate string, endDate *string) (time.Time, *time.Time, error) {
	start, err := parseDateIn(startDate, time.UTC)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("%w: start_date %q", ErrInvalidDateRange, startDate)
	}
	if endDate == nil || *endDate == "" {
		return start, nil, nil
	}
	end, err := parseDateIn(*endDate, time.UTC)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("%w: end_date %q", ErrInvalidDateRange, *endDate)
	}
	if end.Before(start) {
		return time.Time{}, nil, ErrEndBeforeStart
	}
	return start, &end, nil
}

// UpdateCampaign applies a partial update to an editable campaign
func (cf *CampaignFlowImpl) UpdateCampaign(ctx context.Context, req *dto.UpdateCampaignRequest, metadata *ClientMetadata) (*dto.CampaignResponse, error) {
	if req.Name == nil && req.Objective == nil && req.Budget == nil && req.BudgetType == nil &&
		req.StartDate == nil && req.EndDate == nil && !req.ClearEndDate {
		return nil, NewBusinessError("CAMPAIGN_VALIDATION_FAILED", "Campaign validation failed", ErrCampaignUpdateRequired)
	}

	var (
		campaign   *models.Campaign
		adSetCount int64
	)
	err := repository.WithTransaction(ctx, cf.db, func(txCtx context.Context) error {
		var err error
		campaign, err = cf.findCampaign(txCtx, req.WorkspaceID, req.UUID)
		if err != nil {
			return err
		}
		if !campaign.IsEditable() {
			return ErrCampaignNotEditable
		}

		if err := applyCampaignUpdate(campaign, req); err != nil {
			return err
		}
		if err := cf.campaignRepo.Update(txCtx, campaign); err != nil {
			return err
		}

		counts, err := cf.campaignRepo.AdSetCounts(txCtx, []uint{campaign.ID})
		if err != nil {
			return err
		}
		adSetCount = counts[campaign.ID]

		return createAuditLog(txCtx, cf.auditRepo, auditEntry{
			WorkspaceID: &req.WorkspaceID,
			UserID:      &req.UserID,
			Action:      models.AuditActionCampaignUpdated,
			Description: fmt.Sprintf("Campaign %q updated", campaign.Name),
			Success:     true,
			Details:     map[string]any{"campaign_uuid": campaign.UUID.String()},
		}, metadata)
	})
	if err != nil {
		_ = createAuditLog(ctx, cf.auditRepo, failureEntry(&req.WorkspaceID, &req.UserID,
			models.AuditActionCampaignUpdated, fmt.Sprintf("Update of campaign %s failed", req.UUID), err), metadata)
		return nil, NewBusinessError("UPDATE_CAMPAIGN_FAILED", "Failed to update campaign", err)
	}

	resp := ToCampaignResponse(campaign, adSetCount)
	return &resp, nil
}

func applyCampaignUpdate(c *models.Campaign, req *dto.UpdateCampaignRequest) error {
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return ErrNameRequired
		}
		c.Name = strings.TrimSpace(*req.Name)
	}
	if req.Objective != nil {
		objective := models.Objective(*req.Objective)
		if !models.IsValidObjective(c.Platform, objective) {
			return ErrInvalidObjective
		}
		c.Objective = objective
	}
	if req.Budget != nil {
		if *req.Budget <= 0 {
			return ErrInvalidBudget
		}
		c.Budget = decimal.NewFromFloat(*req.Budget).Round(2)
	}
	if req.BudgetType != nil {
		c.BudgetType = models.BudgetType(*req.BudgetType)
	}
	if req.StartDate != nil {
		start, err := parseDateIn(*req.StartDate, time.UTC)
		if err != nil {
			return fmt.Errorf("%w: start_date %q", ErrInvalidDateRange, *req.StartDate)
		}
		c.StartDate = start
	}
	if req.ClearEndDate {
		c.EndDate = nil
	} else if req.EndDate != nil {
		end, err := parseDateIn(*req.EndDate, time.UTC)
		if err != nil {
			return fmt.Errorf("%w: end_date %q", ErrInvalidDateRange, *req.EndDate)
		}
		c.EndDate = &end
	}
	if c.EndDate != nil && c.EndDate.Before(c.StartDate) {
		return ErrEndBeforeStart
	}
	return nil
}

// GetCampaign returns one campaign with its ad set count
func (cf *CampaignFlowImpl) GetCampaign(ctx context.Context, workspaceID uint, campaignUUID string) (*dto.CampaignResponse, error) {
	campaign, err := cf.findCampaign(ctx, workspaceID, campaignUUID)
	if err != nil {
		return nil, NewBusinessError("GET_CAMPAIGN_FAILED", "Failed to get campaign", err)
	}
	counts, err := cf.campaignRepo.AdSetCounts(ctx, []uint{campaign.ID})
	if err != nil {
		return nil, NewBusinessError("GET_CAMPAIGN_FAILED", "Failed to get campaign", err)
	}
	resp := ToCampaignResponse(campaign, counts[campaign.ID])
	return &resp, nil
}

// ListCampaigns returns one page of the workspace's campaigns
func (cf *CampaignFlowImpl) ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest) (*dto.ListCampaignsResponse, error) {
	filter := models.CampaignFilter{WorkspaceID: &req.WorkspaceID}
	if req.Status != "" {
		status, err := models.ParseDeliveryStatus(req.Status)
		if err != nil {
			return nil, NewBusinessError("LIST_CAMPAIGNS_FAILED", "Failed to list campaigns", err)
		}
		filter.Status = &status
	}
	if req.Platform != "" {
		platform := models.Platform(req.Platform)
		filter.Platform = &platform
	}
	if search := strings.TrimSpace(req.Search); search != "" {
		filter.Name = &search
	}

	orderBy, ok := campaignOrderings[req.OrderBy]
	if !ok {
		orderBy = campaignOrderings["newest"]
	}
	page, pageSize, offset := pageParams(req.PageRequest)

	total, err := cf.campaignRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("LIST_CAMPAIGNS_FAILED", "Failed to list campaigns", err)
	}
	campaigns, err := cf.campaignRepo.ByFilter(ctx, filter, orderBy, pageSize, offset)
	if err != nil {
		return nil, NewBusinessError("LIST_CAMPAIGNS_FAILED", "Failed to list campaigns", err)
	}

	ids := make([]uint, len(campaigns))
	for i, c := range campaigns {
		ids[i] = c.ID
	}
	counts, err := cf.campaignRepo.AdSetCounts(ctx, ids)
	if err != nil {
		return nil, NewBusinessError("LIST_CAMPAIGNS_FAILED", "Failed to list campaigns", err)
	}

	items := make([]dto.CampaignResponse, 0, len(campaigns))
	for _, c := range campaigns {
		items = append(items, ToCampaignResponse(c, counts[c.ID]))
	}

	return &dto.ListCampaignsResponse{
		Items:      items,
		Pagination: newPagination(page, pageSize, total),
	}, nil
}

// ChangeStatus moves a campaign along the delivery lifecycle and notifies the workspace
func (cf *CampaignFlowImpl) ChangeStatus(ctx context.Context, req *dto.ChangeStatusRequest, metadata *ClientMetadata) (*dto.CampaignResponse, error) {
	var (
		campaign     *models.Campaign
		from         models.DeliveryStatus
		notification *models.Notification
	)
	err := repository.WithTransaction(ctx, cf.db, func(txCtx context.Context) error {
		to, err := checkStatusChange(req)
		if err != nil {
			return err
		}

		campaign, err = cf.findCampaign(txCtx, req.WorkspaceID, req.UUID)
		if err != nil {
			return err
		}
		from = campaign.Status
		if !campaign.CanTransitionTo(to) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, from, to)
		}

		ok, err := cf.campaignRepo.UpdateStatus(txCtx, campaign.ID, from, to)
		if err != nil {
			return err
		}
		if !ok {
			return ErrStatusChanged
		}
		campaign.Status = to

		if err := createAuditLog(txCtx, cf.auditRepo, auditEntry{
			WorkspaceID: &req.WorkspaceID,
			UserID:      &req.UserID,
			Action:      models.AuditActionCampaignStatus,
			Description: fmt.Sprintf("Campaign %q moved from %s to %s", campaign.Name, from, to),
			Success:     true,
			Details:     map[string]any{"campaign_uuid": campaign.UUID.String(), "from": from, "to": to},
		}, metadata); err != nil {
			return err
		}

		if cf.notifier == nil {
			return nil
		}
		notification, err = cf.notifier.Notify(txCtx, statusNotification(req.WorkspaceID, "Campaign", campaign.Name,
			"/campaigns/"+campaign.UUID.String(), from, to))
		return err
	})
	if err != nil {
		_ = createAuditLog(ctx, cf.auditRepo, failureEntry(&req.WorkspaceID, &req.UserID,
			models.AuditActionCampaignStatus, fmt.Sprintf("Status change of campaign %s failed", req.UUID), err), metadata)
		return nil, NewBusinessError("CHANGE_CAMPAIGN_STATUS_FAILED", "Failed to change campaign status", err)
	}

	// the summary counts active campaigns
	cf.invalidateSummaries(ctx, campaign.WorkspaceID)
	if cf.notifier != nil {
		cf.notifier.Publish(ctx, notification)
	}

	counts, err := cf.campaignRepo.AdSetCounts(ctx, []uint{campaign.ID})
	if err != nil {
		counts = map[uint]int64{}
	}
	resp := ToCampaignResponse(campaign, counts[campaign.ID])
	return &resp, nil
}

// checkStatusChange validates the caller's role and the requested target status
func checkStatusChange(req *dto.ChangeStatusRequest) (models.DeliveryStatus, error) {
	if !models.UserRole(req.Role).CanManage() {
		return "", ErrForbidden
	}
	to, err := models.ParseDeliveryStatus(req.Status)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidStatusTransition, err)
	}
	return to, nil
}

// statusNotification builds the workspace-wide notice for a delivery status change
func statusNotification(workspaceID uint, kind, name, actionURL string, from, to models.DeliveryStatus) dto.CreateNotificationRequest {
	notificationType := models.NotificationTypeInfo
	switch to {
	case models.DeliveryStatusActive:
		notificationType = models.NotificationTypeSuccess
	case models.DeliveryStatusPaused:
		notificationType = models.NotificationTypeWarning
	}
	return dto.CreateNotificationRequest{
		WorkspaceID: workspaceID,
		Title:       fmt.Sprintf("%s %s", kind, strings.ToLower(to.GetStatusDisplayName())),
		Message:     fmt.Sprintf("%s %q moved from %s to %s.", kind, name, from.GetStatusDisplayName(), to.GetStatusDisplayName()),
		Type:        string(notificationType),
		Priority:    string(models.NotificationPriorityMedium),
		Category:    string(models.NotificationCategoryCampaign),
		ActionURL:   &actionURL,
	}
}

// Transitions lists the statuses the campaign may move to next
func (cf *CampaignFlowImpl) Transitions(ctx context.Context, workspaceID uint, campaignUUID string) (*dto.TransitionsResponse, error) {
	campaign, err := cf.findCampaign(ctx, workspaceID, campaignUUID)
	if err != nil {
		return nil, NewBusinessError("GET_TRANSITIONS_FAILED", "Failed to get transitions", err)
	}
	return &dto.TransitionsResponse{
		Current:   ToStatusOption(campaign.Status),
		Available: toStatusOptions(models.AvailableTransitions(campaign.Status)),
	}, nil
}

// DeleteCampaign removes a DRAFT campaign together with its ad sets and ads
func (cf *CampaignFlowImpl) DeleteCampaign(ctx context.Context, workspaceID, userID uint, campaignUUID string, metadata *ClientMetadata) error {
	err := repository.WithTransaction(ctx, cf.db, func(txCtx context.Context) error {
		campaign, err := cf.findCampaign(txCtx, workspaceID, campaignUUID)
		if err != nil {
			return err
		}
		if !campaign.IsDeletable() {
			return ErrCampaignNotDeletable
		}
		if err := cf.campaignRepo.Delete(txCtx, campaign.ID); err != nil {
			return err
		}
		return createAuditLog(txCtx, cf.auditRepo, auditEntry{
			WorkspaceID: &workspaceID,
			UserID:      &userID,
			Action:      models.AuditActionCampaignDeleted,
			Description: fmt.Sprintf("Campaign %q deleted", campaign.Name),
			Success:     true,
			Details:     map[string]any{"campaign_uuid": campaign.UUID.String()},
		}, metadata)
	})
	if err != nil {
		_ = createAuditLog(ctx, cf.auditRepo, failureEntry(&workspaceID, &userID,
			models.AuditActionCampaignDeleted, fmt.Sprintf("Deletion of campaign %s failed", campaignUUID), err), metadata)
		return NewBusinessError("DELETE_CAMPAIGN_FAILED", "Failed to delete campaign", err)
	}
	cf.invalidateSummaries(ctx, workspaceID)
	return nil
}

func (cf *CampaignFlowImpl) invalidateSummaries(ctx context.Context, workspaceID uint) {
	if cf.cache == nil {
		return
	}
	if err := cf.cache.InvalidateWorkspace(ctx, workspaceID); err != nil {
		cf.logger.Warn("Failed to invalidate dashboard cache",
			zap.Uint("workspace_id", workspaceID), zap.Error(err))
	}
}

// Options returns the lookup data behind the campaign forms
func (cf *CampaignFlowImpl) Options(ctx context.Context) *dto.PlatformOptionsResponse {
	ctas := make([]string, len(models.CallToActions))
	copy(ctas, models.CallToActions)
	return &dto.PlatformOptionsResponse{
		Platforms:        models.PlatformOptions(),
		BidStrategies:    models.BidStrategies(),
		CallToActions:    ctas,
		DateRangePresets: analytics.AllPresets(),
		Statuses:         toStatusOptions(models.AllDeliveryStatuses()),
	}
}

// Performance joins the campaign list with metric totals over a range and pages it in memory
func (cf *CampaignFlowImpl) Performance(ctx context.Context, req *dto.CampaignPerformanceRequest) (*dto.CampaignPerformanceResponse, error) {
	workspace, err := cf.workspaceRepo.ByID(ctx, req.WorkspaceID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_PERFORMANCE_FAILED", "Failed to load campaign performance", err)
	}
	if workspace == nil {
		return nil, NewBusinessError("CAMPAIGN_PERFORMANCE_FAILED", "Failed to load campaign performance", ErrWorkspaceNotFound)
	}

	r, err := analytics.ResolveRange(req.Preset, req.StartDate, req.EndDate, workspaceNow(workspace))
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_PERFORMANCE_FAILED", "Failed to load campaign performance",
			fmt.Errorf("%w: %v", ErrInvalidDateRange, err))
	}

	filter := models.CampaignFilter{WorkspaceID: &req.WorkspaceID}
	if req.Status != "" {
		status, err := models.ParseDeliveryStatus(req.Status)
		if err != nil {
			return nil, NewBusinessError("CAMPAIGN_PERFORMANCE_FAILED", "Failed to load campaign performance", err)
		}
		filter.Status = &status
	}
	campaigns, err := cf.campaignRepo.ByFilter(ctx, filter, "id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_PERFORMANCE_FAILED", "Failed to load campaign performance", err)
	}

	totals, err := cf.metricRepo.TotalsByCampaign(ctx, metricFilter(req.WorkspaceID, r))
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_PERFORMANCE_FAILED", "Failed to load campaign performance", err)
	}
	byCampaign := make(map[uint]analytics.MetricRow, len(totals))
	for _, t := range totals {
		byCampaign[t.CampaignID] = toMetricRow(t.MetricTotals)
	}

	rows := make([]dto.CampaignPerformanceRow, 0, len(campaigns))
	for _, c := range campaigns {
		metrics := byCampaign[c.ID]
		rows = append(rows, dto.CampaignPerformanceRow{
			UUID:           c.UUID.String(),
			Name:           c.Name,
			Platform:       c.Platform.String(),
			Status:         c.Status.String(),
			Budget:         c.Budget.InexactFloat64(),
			MetricRow:      metrics,
			DerivedMetrics: analytics.Ratios(metrics),
		})
	}

	sortBy := req.SortBy
	direction := tablequery.ParseDirection(req.Direction)
	if _, ok := performanceSorters[sortBy]; !ok {
		sortBy = "spend"
		if req.Direction == "" {
			direction = tablequery.Desc
		}
	}

	schema := tablequery.Schema[dto.CampaignPerformanceRow]{
		SearchFields: func(row dto.CampaignPerformanceRow) []string { return []string{row.Name, row.Platform} },
		Sorters:      performanceSorters,
	}
	// totals cover every row the search leaves, across all pages
	matched := tablequery.Filter(rows, req.Search, schema)
	page := tablequery.Apply(matched, tablequery.Query{
		SortBy:    sortBy,
		Direction: direction,
		Page:      req.Page,
		PageSize:  req.PageSize,
	}, schema)

	metricRows := make([]analytics.MetricRow, 0, len(matched))
	for _, row := range matched {
		metricRows = append(metricRows, row.MetricRow)
	}

	return &dto.CampaignPerformanceResponse{
		Range:     toDateRangeInfo(req.Preset, r),
		Items:     page.Items,
		Totals:    analytics.Totals(metricRows),
		SortBy:    sortBy,
		Direction: string(direction),
		Pagination: dto.PaginationInfo{
			Page:       page.Page,
			PageSize:   page.PageSize,
			TotalCount: page.TotalCount,
			TotalPages: page.TotalPages,
		},
	}, nil
}

type performanceRow = dto.CampaignPerformanceRow

var performanceSorters = map[string]tablequery.Less[performanceRow]{
	"name":     func(a, b performanceRow) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) },
	"platform": func(a, b performanceRow) bool { return a.Platform < b.Platform },
	"status":   func(a, b performanceRow) bool { return a.Status < b.Status },
	"budget":   func(a, b performanceRow) bool { return a.Budget < b.Budget },

	"impressions": func(a, b performanceRow) bool { return a.Impressions < b.Impressions },
	"clicks":      func(a, b performanceRow) bool { return a.Clicks < b.Clicks },
	"conversions": func(a, b performanceRow) bool { return a.Conversions < b.Conversions },
	"reach":       func(a, b performanceRow) bool { return a.Reach < b.Reach },
	"spend":       func(a, b performanceRow) bool { return a.Spend < b.Spend },
	"revenue":     func(a, b performanceRow) bool { return a.Revenue < b.Revenue },

	"ctr":             func(a, b performanceRow) bool { return a.CTR < b.CTR },
	"cpc":             func(a, b performanceRow) bool { return a.CPC < b.CPC },
	"cpm":             func(a, b performanceRow) bool { return a.CPM < b.CPM },
	"roas":            func(a, b performanceRow) bool { return a.ROAS < b.ROAS },
	"cpa":             func(a, b performanceRow) bool { return a.CPA < b.CPA },
	"conversion_rate": func(a, b performanceRow) bool { return a.ConversionRate < b.ConversionRate },
}

func (cf *CampaignFlowImpl) findCampaign(ctx context.Context, workspaceID uint, campaignUUID string) (*models.Campaign, error) {
	return findInWorkspace(ctx, cf.campaignRepo, campaignUUID, workspaceID,
		func(c *models.Campaign) uint { return c.WorkspaceID }, ErrCampaignNotFound)
}
