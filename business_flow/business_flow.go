// Package businessflow contains the use cases of the dashboard: auth, campaign hierarchy,
// creatives, metrics, notifications and sync jobs.
package businessflow

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/amirphl/Lovelify-Dash/analytics"
	"github.com/amirphl/Lovelify-Dash/app/dto"
	"github.com/amirphl/Lovelify-Dash/app/services"
	"github.com/amirphl/Lovelify-Dash/models"
	"github.com/amirphl/Lovelify-Dash/repository"
	"github.com/amirphl/Lovelify-Dash/tablequery"
	"github.com/amirphl/Lovelify-Dash/utils"
	"go.uber.org/zap"
)

// ClientMetadata holds all client-related information for audit logging
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// auditEntry is one row for the audit log
type auditEntry struct {
	WorkspaceID *uint
	UserID      *uint
	Action      string
	Description string
	Success     bool
	ErrorMsg    *string
	Details     map[string]any
}

// createAuditLog stores an audit row, taking the request id from ctx
func createAuditLog(ctx context.Context, auditRepo repository.AuditLogRepository, entry auditEntry, metadata *ClientMetadata) error {
	ipAddress := ""
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		WorkspaceID:  entry.WorkspaceID,
		UserID:       entry.UserID,
		Action:       entry.Action,
		Description:  &entry.Description,
		Success:      utils.ToPtr(entry.Success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: entry.ErrorMsg,
	}

	if len(entry.Details) > 0 {
		if raw, err := json.Marshal(entry.Details); err == nil {
			audit.Metadata = raw
		}
	}

	// Extract request ID from context if available
	requestID := ctx.Value(utils.RequestIDKey)
	if requestID != nil {
		requestIDStr, ok := requestID.(string)
		if ok {
			audit.RequestID = &requestIDStr
		}
	} else if metadata != nil && metadata.RequestID != "" {
		audit.RequestID = &metadata.RequestID
	}

	return auditRepo.Save(ctx, audit)
}

// failureEntry is auditEntry for a failed action with err as the message
func failureEntry(workspaceID, userID *uint, action, description string, err error) auditEntry {
	errMsg := err.Error()
	return auditEntry{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Action:      action,
		Description: description,
		Success:     false,
		ErrorMsg:    &errMsg,
	}
}

// Notifier stores notifications and pushes them to live subscribers
type Notifier struct {
	repo   repository.NotificationRepository
	hub    services.NotificationService
	logger *zap.Logger
}

// NewNotifier creates a notifier; hub may be nil when nothing listens live
func NewNotifier(repo repository.NotificationRepository, hub services.NotificationService, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{repo: repo, hub: hub, logger: logger}
}

// Notify saves the notification and publishes it after the surrounding transaction, if any, is done by the caller
func (n *Notifier) Notify(ctx context.Context, req dto.CreateNotificationRequest) (*models.Notification, error) {
	notification := &models.Notification{
		WorkspaceID: req.WorkspaceID,
		UserID:      req.UserID,
		Title:       req.Title,
		Message:     req.Message,
		Type:        models.NotificationType(req.Type),
		Priority:    models.NotificationPriority(req.Priority),
		Category:    models.NotificationCategory(req.Category),
		ActionURL:   req.ActionURL,
	}
	if err := n.repo.Save(ctx, notification); err != nil {
		return nil, err
	}
	return notification, nil
}

// Publish pushes an already stored notification to subscribers. Failures are logged only.
func (n *Notifier) Publish(ctx context.Context, notification *models.Notification) {
	if n.hub == nil || notification == nil {
		return
	}
	if err := n.hub.Publish(ctx, notification); err != nil {
		n.logger.Warn("Failed to publish notification",
			zap.Uint("workspace_id", notification.WorkspaceID),
			zap.String("notification_uuid", notification.UUID.String()),
			zap.Error(err))
	}
}

// NotifyAndPublish is Notify followed by Publish, for callers outside a transaction
func (n *Notifier) NotifyAndPublish(ctx context.Context, req dto.CreateNotificationRequest) (*models.Notification, error) {
	notification, err := n.Notify(ctx, req)
	if err != nil {
		return nil, err
	}
	n.Publish(ctx, notification)
	return notification, nil
}

type uuidFinder[T any] interface {
	ByUUID(ctx context.Context, uuid string) (*T, error)
}

// findInWorkspace loads an entity by public UUID. A malformed UUID, a missing row and a row
// owned by another workspace all yield notFound so tenants cannot probe each other's ids.
func findInWorkspace[T any](ctx context.Context, repo uuidFinder[T], id string, workspaceID uint, workspaceOf func(*T) uint, notFound error) (*T, error) {
	if _, err := utils.ParseUUID(id); err != nil {
		return nil, notFound
	}
	entity, err := repo.ByUUID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, notFound
	}
	// zero means the caller is a machine client allowed across workspaces
	if workspaceID != 0 && workspaceOf(entity) != workspaceID {
		return nil, notFound
	}
	return entity, nil
}

// pageParams normalizes paging input to (page, pageSize, offset)
func pageParams(req dto.PageRequest) (int, int, int) {
	q := tablequery.Query{Page: req.Page, PageSize: req.PageSize}.Normalize()
	return q.Page, q.PageSize, q.Offset()
}

func newPagination(page, pageSize int, total int64) dto.PaginationInfo {
	return dto.PaginationInfo{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: tablequery.TotalPages(total, pageSize),
	}
}

// workspaceNow is the current time in the workspace's timezone
func workspaceNow(ws *models.Workspace) time.Time {
	if ws == nil {
		return utils.UTCNow()
	}
	return time.Now().In(ws.Location())
}

func toDateRangeInfo(preset string, r analytics.DateRange) dto.DateRangeInfo {
	return dto.DateRangeInfo{
		Preset:    preset,
		StartDate: r.StartDate(),
		EndDate:   r.EndDate(),
		Days:      r.Days(),
	}
}

// metricFilter scopes metric queries to a workspace and the calendar days of r
func metricFilter(workspaceID uint, r analytics.DateRange) models.MetricRecordFilter {
	from := utils.DateOnly(r.Start)
	to := utils.DateOnly(r.End)
	return models.MetricRecordFilter{
		WorkspaceID: &workspaceID,
		DateFrom:    &from,
		DateTo:      &to,
	}
}

func toMetricRow(t repository.MetricTotals) analytics.MetricRow {
	return analytics.MetricRow{
		Impressions: t.Impressions,
		Clicks:      t.Clicks,
		Conversions: t.Conversions,
		Reach:       t.Reach,
		Spend:       t.Spend.InexactFloat64(),
		Revenue:     t.Revenue.InexactFloat64(),
	}
}

func formatDate(t time.Time) string {
	return t.Format(analytics.DateLayout)
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatDate(*t)
	return &s
}

// parseDateIn parses YYYY-MM-DD as a calendar date
func parseDateIn(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(analytics.DateLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, err
	}
	return utils.DateOnly(t), nil
}

// ToStatusOption renders a delivery status for clients
func ToStatusOption(s models.DeliveryStatus) dto.StatusOption {
	return dto.StatusOption{
		Value: s.String(),
		Label: s.GetStatusDisplayName(),
		Color: s.GetStatusColor(),
	}
}

func toStatusOptions(statuses []models.DeliveryStatus) []dto.StatusOption {
	out := make([]dto.StatusOption, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, ToStatusOption(s))
	}
	return out
}

// ToUserInfo converts a user model for auth responses
func ToUserInfo(user *models.User) dto.UserInfo {
	return dto.UserInfo{
		UUID:        user.UUID.String(),
		Email:       user.Email,
		FullName:    user.FullName,
		Role:        string(user.Role),
		IsActive:    utils.IsTrue(user.IsActive),
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt.Format(time.RFC3339),
	}
}

// ToWorkspaceInfo converts a workspace model for auth responses
func ToWorkspaceInfo(ws *models.Workspace) dto.WorkspaceInfo {
	return dto.WorkspaceInfo{
		UUID:     ws.UUID.String(),
		Name:     ws.Name,
		Slug:     ws.Slug,
		Currency: ws.Currency,
		Timezone: ws.Timezone,
	}
}

// ToCampaignResponse converts a campaign model; adSetCount comes from a separate count query
func ToCampaignResponse(c *models.Campaign, adSetCount int64) dto.CampaignResponse {
	return dto.CampaignResponse{
		UUID:         c.UUID.String(),
		Name:         c.Name,
		Platform:     c.Platform.String(),
		PlatformName: c.Platform.DisplayName(),
		Objective:    string(c.Objective),
		Budget:       c.Budget,
		BudgetType:   string(c.BudgetType),
		Status:       ToStatusOption(c.Status),
		StartDate:    formatDate(c.StartDate),
		EndDate:      formatDatePtr(c.EndDate),
		AdSetCount:   adSetCount,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

// ToAdSetResponse converts an ad set model
func ToAdSetResponse(a *models.AdSet, campaignUUID string) dto.AdSetResponse {
	return dto.AdSetResponse{
		UUID:         a.UUID.String(),
		CampaignUUID: campaignUUID,
		Name:         a.Name,
		Targeting:    a.Targeting,
		Budget:       a.Budget,
		BidStrategy:  string(a.BidStrategy),
		BidAmount:    a.BidAmount,
		Status:       ToStatusOption(a.Status),
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

// ToAdResponse converts an ad model; creative may be nil
func ToAdResponse(a *models.Ad, adSetUUID string, creative *models.Creative) dto.AdResponse {
	resp := dto.AdResponse{
		UUID:           a.UUID.String(),
		AdSetUUID:      adSetUUID,
		Name:           a.Name,
		Headline:       a.Headline,
		PrimaryText:    a.PrimaryText,
		DestinationURL: a.DestinationURL,
		CallToAction:   a.CallToAction,
		Status:         ToStatusOption(a.Status),
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
	if creative != nil {
		c := ToCreativeResponse(creative)
		resp.Creative = &c
	}
	return resp
}

// ToCreativeResponse converts a creative model
func ToCreativeResponse(c *models.Creative) dto.CreativeResponse {
	tags := []string(c.Tags)
	if tags == nil {
		tags = []string{}
	}
	return dto.CreativeResponse{
		UUID:             c.UUID.String(),
		Name:             c.Name,
		Type:             string(c.Type),
		Format:           c.Format,
		OriginalFilename: c.OriginalFilename,
		Width:            c.Width,
		Height:           c.Height,
		SizeBytes:        c.SizeBytes,
		Tags:             tags,
		HasThumbnail:     c.HasThumbnail(),
		CreatedAt:        c.CreatedAt,
	}
}

// ToNotificationResponse converts a notification model
func ToNotificationResponse(n *models.Notification) dto.NotificationResponse {
	return dto.NotificationResponse{
		UUID:      n.UUID.String(),
		Title:     n.Title,
		Message:   n.Message,
		Type:      string(n.Type),
		Priority:  string(n.Priority),
		Category:  string(n.Category),
		Read:      n.Read,
		ReadAt:    n.ReadAt,
		ActionURL: n.ActionURL,
		Broadcast: n.UserID == nil,
		CreatedAt: n.CreatedAt,
	}
}

// ToSyncJobResponse converts a sync job model
func ToSyncJobResponse(j *models.SyncJob) dto.SyncJobResponse {
	resp := dto.SyncJobResponse{
		UUID:             j.UUID.String(),
		SyncType:         string(j.SyncType),
		Status:           j.Status.String(),
		RecordsProcessed: j.RecordsProcessed,
		RecordsCreated:   j.RecordsCreated,
		RecordsUpdated:   j.RecordsUpdated,
		RecordsFailed:    j.RecordsFailed,
		ErrorMessage:     j.ErrorMessage,
		Attempts:         j.Attempts,
		DurationSeconds:  j.Duration().Seconds(),
		StartedAt:        j.StartedAt,
		CompletedAt:      j.CompletedAt,
		CreatedAt:        j.CreatedAt,
	}
	if j.Platform != nil {
		p := j.Platform.String()
		resp.Platform = &p
	}
	return resp
}
