package businessflow

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/amirphl/Lovelify-Dash/analytics"
	"github.com/amirphl/Lovelify-Dash/app/dto"
	"github.com/amirphl/Lovelify-Dash/app/services"
	"github.com/amirphl/Lovelify-Dash/models"
	"github.com/amirphl/Lovelify-Dash/repository"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// MetricsFlow handles metric ingestion and the dashboard read models
type MetricsFlow interface {
	IngestMetrics(ctx context.Context, req *dto.IngestMetricsRequest, metadata *ClientMetadata) (*dto.IngestMetricsResponse, error)
	Summary(ctx context.Context, query *dto.DashboardQuery) (*dto.DashboardSummaryResponse, error)
	Timeseries(ctx context.Context, query *dto.DashboardQuery) (*dto.TimeseriesResponse, error)
	Export(ctx context.Context, query *dto.DashboardQuery) (*dto.ExportFile, error)
}

// MetricsFlowImpl implements the metrics business flow
type MetricsFlowImpl struct {
	workspaceRepo repository.WorkspaceRepository
	campaignRepo  repository.CampaignRepository
	adSetRepo     repository.AdSetRepository
	adRepo        repository.AdRepository
	metricRepo    repository.MetricRecordRepository
	auditRepo     repository.AuditLogRepository
	cache         *services.DashboardCache
	logger        *zap.Logger
	db            *gorm.DB
}

// NewMetricsFlow creates a new metrics flow instance; cache may be nil
func NewMetricsFlow(
	workspaceRepo repository.WorkspaceRepository,
	campaignRepo repository.CampaignRepository,
	adSetRepo repository.AdSetRepository,
	adRepo repository.AdRepository,
	metricRepo repository.MetricRecordRepository,
	auditRepo repository.AuditLogRepository,
	cache *services.DashboardCache,
	logger *zap.Logger,
	db *gorm.DB,
) MetricsFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetricsFlowImpl{
		workspaceRepo: workspaceRepo,
		campaignRepo:  campaignRepo,
		adSetRepo:     adSetRepo,
		adRepo:        adRepo,
		metricRepo:    metricRepo,
		auditRepo:     auditRepo,
		cache:         cache,
		logger:        logger,
		db:            db,
	}
}

// scopeResolver memoizes the campaign, ad set and ad lookups of one ingest batch
type scopeResolver struct {
	mf          *MetricsFlowImpl
	workspaceID uint
	campaigns   map[string]*models.Campaign
	adSets      map[string]*models.AdSet
	ads         map[string]*models.Ad
}

func (s *scopeResolver) campaign(ctx context.Context, id string) (*models.Campaign, error) {
	if c, ok := s.campaigns[id]; ok {
		return c, nil
	}
	c, err := findInWorkspace(ctx, s.mf.campaignRepo, id, s.workspaceID,
		func(c *models.Campaign) uint { return c.WorkspaceID }, ErrCampaignNotFound)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, id)
	}
	s.campaigns[id] = c
	return c, nil
}

func (s *scopeResolver) adSet(ctx context.Context, id string, campaign *models.Campaign) (*models.AdSet, error) {
	a, ok := s.adSets[id]
	if !ok {
		var err error
		a, err = findInWorkspace(ctx, s.mf.adSetRepo, id, campaign.WorkspaceID,
			func(a *models.AdSet) uint { return a.WorkspaceID }, ErrAdSetNotFound)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", err, id)
		}
		s.adSets[id] = a
	}
	if a.CampaignID != campaign.ID {
		return nil, fmt.Errorf("%w: ad set %s", ErrMetricScope, id)
	}
	return a, nil
}

func (s *scopeResolver) ad(ctx context.Context, id string, campaign *models.Campaign) (*models.Ad, *models.AdSet, error) {
	ad, ok := s.ads[id]
	if !ok {
		var err error
		ad, err = findInWorkspace(ctx, s.mf.adRepo, id, campaign.WorkspaceID,
			func(a *models.Ad) uint { return a.WorkspaceID }, ErrAdNotFound)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s", err, id)
		}
		s.ads[id] = ad
	}
	adSet, err := s.mf.adSetRepo.ByID(ctx, ad.AdSetID)
	if err != nil {
		return nil, nil, err
	}
	if adSet == nil || adSet.CampaignID != campaign.ID {
		return nil, nil, fmt.Errorf("%w: ad %s", ErrMetricScope, id)
	}
	return ad, adSet, nil
}

// IngestMetrics upserts a batch of daily rows. A batch is all or nothing.
func (mf *MetricsFlowImpl) IngestMetrics(ctx context.Context, req *dto.IngestMetricsRequest, metadata *ClientMetadata) (*dto.IngestMetricsResponse, error) {
	var (
		result     repository.UpsertResult
		workspaces = make(map[uint]bool)
	)
	err := repository.WithTransaction(ctx, mf.db, func(txCtx context.Context) error {
		resolver := &scopeResolver{
			mf:          mf,
			workspaceID: req.WorkspaceID,
			campaigns:   make(map[string]*models.Campaign),
			adSets:      make(map[string]*models.AdSet),
			ads:         make(map[string]*models.Ad),
		}

		records := make([]*models.MetricRecord, 0, len(req.Records))
		for i, in := range req.Records {
			record, err := mf.buildRecord(txCtx, resolver, in)
			if err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			workspaces[record.WorkspaceID] = true
			records = append(records, record)
		}

		var err error
		result, err = mf.metricRepo.Upsert(txCtx, records)
		if err != nil {
			return err
		}

		return createAuditLog(txCtx, mf.auditRepo, auditEntry{
			WorkspaceID: optionalID(req.WorkspaceID),
			UserID:      req.UserID,
			Action:      models.AuditActionMetricsIngested,
			Description: fmt.Sprintf("Ingested %d metric rows", len(records)),
			Success:     true,
			Details:     map[string]any{"created": result.Created, "updated": result.Updated},
		}, metadata)
	})
	if err != nil {
		_ = createAuditLog(ctx, mf.auditRepo, failureEntry(optionalID(req.WorkspaceID), req.UserID,
			models.AuditActionMetricsIngested, "Metric ingestion failed", err), metadata)
		return nil, NewBusinessError("INGEST_METRICS_FAILED", "Failed to ingest metrics", err)
	}

	for workspaceID := range workspaces {
		if err := mf.cache.InvalidateWorkspace(ctx, workspaceID); err != nil {
			mf.logger.Warn("Failed to invalidate dashboard cache",
				zap.Uint("workspace_id", workspaceID), zap.Error(err))
		}
	}

	return &dto.IngestMetricsResponse{
		Received: len(req.Records),
		Created:  result.Created,
		Updated:  result.Updated,
	}, nil
}

func (mf *MetricsFlowImpl) buildRecord(ctx context.Context, resolver *scopeResolver, in dto.MetricRecordInput) (*models.MetricRecord, error) {
	campaign, err := resolver.campaign(ctx, in.CampaignUUID)
	if err != nil {
		return nil, err
	}

	date, err := parseDateIn(in.Date, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: date %q", ErrInvalidDateRange, in.Date)
	}

	record := &models.MetricRecord{
		WorkspaceID: campaign.WorkspaceID,
		CampaignID:  campaign.ID,
		Date:        date,
		Impressions: in.Impressions,
		Clicks:      in.Clicks,
		Conversions: in.Conversions,
		Reach:       in.Reach,
		Spend:       decimal.NewFromFloat(in.Spend).Round(2),
		Revenue:     decimal.NewFromFloat(in.Revenue).Round(2),
	}

	if in.AdSetUUID != nil && *in.AdSetUUID != "" {
		adSet, err := resolver.adSet(ctx, *in.AdSetUUID, campaign)
		if err != nil {
			return nil, err
		}
		record.AdSetID = adSet.ID
	}
	if in.AdUUID != nil && *in.AdUUID != "" {
		ad, adSet, err := resolver.ad(ctx, *in.AdUUID, campaign)
		if err != nil {
			return nil, err
		}
		if record.AdSetID != 0 && record.AdSetID != adSet.ID {
			return nil, fmt.Errorf("%w: ad %s is not in the given ad set", ErrMetricScope, *in.AdUUID)
		}
		record.AdSetID = adSet.ID
		record.AdID = ad.ID
	}
	return record, nil
}

// dashboardScope is a resolved dashboard query
type dashboardScope struct {
	workspace *models.Workspace
	campaign  *models.Campaign
	r         analytics.DateRange
	preset    string
}

func (s dashboardScope) filter(r analytics.DateRange) models.MetricRecordFilter {
	f := metricFilter(s.workspace.ID, r)
	if s.campaign != nil {
		f.CampaignID = &s.campaign.ID
	}
	return f
}

func (mf *MetricsFlowImpl) resolveScope(ctx context.Context, query *dto.DashboardQuery) (*dashboardScope, error) {
	workspace, err := mf.workspaceRepo.ByID(ctx, query.WorkspaceID)
	if err != nil {
		return nil, err
	}
	if workspace == nil {
		return nil, ErrWorkspaceNotFound
	}

	r, err := analytics.ResolveRange(query.Preset, query.StartDate, query.EndDate, workspaceNow(workspace))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDateRange, err)
	}

	preset := query.Preset
	if query.StartDate != "" || query.EndDate != "" {
		preset = "custom"
	} else if preset == "" {
		preset = string(analytics.DefaultPreset)
	}

	scope := &dashboardScope{workspace: workspace, r: r, preset: preset}
	if query.CampaignUUID != "" {
		scope.campaign, err = findInWorkspace(ctx, mf.campaignRepo, query.CampaignUUID, workspace.ID,
			func(c *models.Campaign) uint { return c.WorkspaceID }, ErrCampaignNotFound)
		if err != nil {
			return nil, err
		}
	}
	return scope, nil
}

// Summary returns totals for the range and the previous period of the same length.
// Results are cached per resolved range until the next ingestion or sync.
func (mf *MetricsFlowImpl) Summary(ctx context.Context, query *dto.DashboardQuery) (*dto.DashboardSummaryResponse, error) {
	scope, err := mf.resolveScope(ctx, query)
	if err != nil {
		return nil, NewBusinessError("DASHBOARD_SUMMARY_FAILED", "Failed to load dashboard summary", err)
	}

	key := services.SummaryKey(scope.workspace.ID, scope.preset, scope.r.StartDate(), scope.r.EndDate(), query.CampaignUUID)
	var cached dto.DashboardSummaryResponse
	hit, err := mf.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		mf.logger.Warn("Dashboard cache read failed", zap.String("key", key), zap.Error(err))
	}
	if hit {
		return &cached, nil
	}

	prev := analytics.PreviousPeriod(scope.r)
	current, err := mf.metricRepo.Totals(ctx, scope.filter(scope.r))
	if err != nil {
		return nil, NewBusinessError("DASHBOARD_SUMMARY_FAILED", "Failed to load dashboard summary", err)
	}
	previous, err := mf.metricRepo.Totals(ctx, scope.filter(prev))
	if err != nil {
		return nil, NewBusinessError("DASHBOARD_SUMMARY_FAILED", "Failed to load dashboard summary", err)
	}

	active := models.DeliveryStatusActive
	campaignFilter := models.CampaignFilter{WorkspaceID: &scope.workspace.ID, Status: &active}
	if scope.campaign != nil {
		campaignFilter.ID = &scope.campaign.ID
	}
	activeCampaigns, err := mf.campaignRepo.Count(ctx, campaignFilter)
	if err != nil {
		return nil, NewBusinessError("DASHBOARD_SUMMARY_FAILED", "Failed to load dashboard summary", err)
	}

	currentRow, previousRow := toMetricRow(current), toMetricRow(previous)
	resp := &dto.DashboardSummaryResponse{
		Currency:        scope.workspace.Currency,
		Range:           toDateRangeInfo(scope.preset, scope.r),
		PreviousRange:   toDateRangeInfo("", prev),
		Current:         currentRow,
		Previous:        previousRow,
		Ratios:          analytics.Ratios(currentRow),
		PreviousRatios:  analytics.Ratios(previousRow),
		Comparison:      analytics.Compare(currentRow, previousRow),
		ActiveCampaigns: activeCampaigns,
	}

	if err := mf.cache.SetJSON(ctx, key, resp); err != nil {
		mf.logger.Warn("Dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
	return resp, nil
}

// Timeseries returns one zero-filled point per day of the range
func (mf *MetricsFlowImpl) Timeseries(ctx context.Context, query *dto.DashboardQuery) (*dto.TimeseriesResponse, error) {
	scope, err := mf.resolveScope(ctx, query)
	if err != nil {
		return nil, NewBusinessError("DASHBOARD_TIMESERIES_FAILED", "Failed to load timeseries", err)
	}
	points, err := mf.dailySeries(ctx, scope)
	if err != nil {
		return nil, NewBusinessError("DASHBOARD_TIMESERIES_FAILED", "Failed to load timeseries", err)
	}
	return &dto.TimeseriesResponse{Range: toDateRangeInfo(scope.preset, scope.r), Points: points}, nil
}

func (mf *MetricsFlowImpl) dailySeries(ctx context.Context, scope *dashboardScope) ([]dto.TimeseriesPoint, error) {
	daily, err := mf.metricRepo.DailyTotals(ctx, scope.filter(scope.r))
	if err != nil {
		return nil, err
	}
	rows := make([]analytics.DatedRow, 0, len(daily))
	for _, d := range daily {
		rows = append(rows, analytics.DatedRow{Date: d.Date, MetricRow: toMetricRow(d.MetricTotals)})
	}

	series := analytics.DailySeries(rows, scope.r)
	points := make([]dto.TimeseriesPoint, 0, len(series))
	for _, p := range series {
		points = append(points, dto.TimeseriesPoint{
			Date:           p.Date.Format(analytics.DateLayout),
			MetricRow:      p.MetricRow,
			DerivedMetrics: analytics.Ratios(p.MetricRow),
		})
	}
	return points, nil
}

// Export builds an xlsx workbook with Summary, Daily and Campaigns sheets for the range
func (mf *MetricsFlowImpl) Export(ctx context.Context, query *dto.DashboardQuery) (*dto.ExportFile, error) {
	summary, err := mf.Summary(ctx, query)
	if err != nil {
		return nil, err
	}
	scope, err := mf.resolveScope(ctx, query)
	if err != nil {
		return nil, NewBusinessError("DASHBOARD_EXPORT_FAILED", "Failed to export dashboard", err)
	}
	points, err := mf.dailySeries(ctx, scope)
	if err != nil {
		return nil, NewBusinessError("DASHBOARD_EXPORT_FAILED", "Failed to export dashboard", err)
	}
	campaignRows, err := mf.campaignRows(ctx, scope)
	if err != nil {
		return nil, NewBusinessError("DASHBOARD_EXPORT_FAILED", "Failed to export dashboard", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	xl.SetSheetName(xl.GetSheetName(0), "Summary")
	writeSummarySheet(xl, "Summary", summary)

	if _, err := xl.NewSheet("Daily"); err != nil {
		return nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}
	header := []any{"date", "impressions", "clicks", "conversions", "reach", "spend", "revenue", "ctr", "cpc", "cpm", "roas", "cpa", "conversion_rate"}
	_ = xl.SetSheetRow("Daily", "A1", &header)
	for i, p := range points {
		row := append([]any{p.Date}, metricCells(p.MetricRow, p.DerivedMetrics)...)
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		_ = xl.SetSheetRow("Daily", cell, &row)
	}

	if _, err := xl.NewSheet("Campaigns"); err != nil {
		return nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}
	header = append([]any{"campaign", "platform", "status"}, header[1:]...)
	_ = xl.SetSheetRow("Campaigns", "A1", &header)
	for i, c := range campaignRows {
		row := append([]any{c.Name, c.Platform, c.Status}, metricCells(c.MetricRow, c.DerivedMetrics)...)
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		_ = xl.SetSheetRow("Campaigns", cell, &row)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}
	return &dto.ExportFile{
		Filename:    fmt.Sprintf("%s_%s_%s.xlsx", scope.workspace.Slug, scope.r.StartDate(), scope.r.EndDate()),
		ContentType: xlsxContentType,
		Content:     buf.Bytes(),
	}, nil
}

// campaignRows lists campaigns with metric totals in the range, highest spend first
func (mf *MetricsFlowImpl) campaignRows(ctx context.Context, scope *dashboardScope) ([]dto.CampaignPerformanceRow, error) {
	totals, err := mf.metricRepo.TotalsByCampaign(ctx, scope.filter(scope.r))
	if err != nil {
		return nil, err
	}
	if len(totals) == 0 {
		return nil, nil
	}
	ids := make([]uint, 0, len(totals))
	for _, t := range totals {
		ids = append(ids, t.CampaignID)
	}
	campaigns, err := mf.campaignRepo.ByFilter(ctx, models.CampaignFilter{WorkspaceID: &scope.workspace.ID}, "id ASC", 0, 0)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*models.Campaign, len(campaigns))
	for _, c := range campaigns {
		byID[c.ID] = c
	}

	rows := make([]dto.CampaignPerformanceRow, 0, len(totals))
	for _, t := range totals {
		c, ok := byID[t.CampaignID]
		if !ok {
			continue
		}
		m := toMetricRow(t.MetricTotals)
		rows = append(rows, dto.CampaignPerformanceRow{
			UUID:           c.UUID.String(),
			Name:           c.Name,
			Platform:       c.Platform.String(),
			Status:         c.Status.String(),
			Budget:         c.Budget.InexactFloat64(),
			MetricRow:      m,
			DerivedMetrics: analytics.Ratios(m),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Spend > rows[j].Spend })
	return rows, nil
}

func writeSummarySheet(xl *excelize.File, sheet string, s *dto.DashboardSummaryResponse) {
	rows := [][]any{
		{"range", s.Range.StartDate + " to " + s.Range.EndDate},
		{"previous_range", s.PreviousRange.StartDate + " to " + s.PreviousRange.EndDate},
		{"currency", s.Currency},
		{"active_campaigns", s.ActiveCampaigns},
		{},
		{"metric", "current", "previous", "change", "change_percent"},
	}
	c := s.Comparison
	for _, m := range []struct {
		name string
		d    analytics.Delta
	}{
		{"impressions", c.Impressions}, {"clicks", c.Clicks}, {"conversions", c.Conversions},
		{"reach", c.Reach}, {"spend", c.Spend}, {"revenue", c.Revenue},
		{"ctr", c.CTR}, {"cpc", c.CPC}, {"cpm", c.CPM},
		{"roas", c.ROAS}, {"cpa", c.CPA}, {"conversion_rate", c.ConversionRate},
	} {
		rows = append(rows, []any{m.name, m.d.Current, m.d.Previous, m.d.Change, m.d.ChangePercent})
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		_ = xl.SetSheetRow(sheet, cell, &row)
	}
}

func metricCells(m analytics.MetricRow, d analytics.DerivedMetrics) []any {
	return []any{m.Impressions, m.Clicks, m.Conversions, m.Reach, m.Spend, m.Revenue,
		d.CTR, d.CPC, d.CPM, d.ROAS, d.CPA, d.ConversionRate}
}

func optionalID(id uint) *uint {
	if id == 0 {
		return nil
	}
	return &id
}
