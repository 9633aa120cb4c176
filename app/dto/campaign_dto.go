package dto

import (
	"time"

	"github.com/amirphl/Lovelify-Dash/analytics"
	"github.com/amirphl/Lovelify-Dash/models"
	"github.com/shopspring/decimal"
)

// CreateCampaignRequest represents the request to create a new campaign.
// Objective membership and the date order are checked by a struct-level validation.
type CreateCampaignRequest struct {
	WorkspaceID uint    `json:"-"`
	UserID      uint    `json:"-"`
	Name        string  `json:"name" validate:"required,min=1,max=255" example:"Spring Sale"`
	Platform    string  `json:"platform" validate:"required,oneof=meta google tiktok" example:"meta"`
	Objective   string  `json:"objective" validate:"required,max=64" example:"traffic"`
	Budget      float64 `json:"budget" validate:"required,gt=0" example:"150.00"`
	BudgetType  string  `json:"budget_type" validate:"omitempty,oneof=daily lifetime" example:"daily"`
	StartDate   string  `json:"start_date" validate:"required,datetime=2006-01-02" example:"2025-05-01"`
	EndDate     *string `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02" example:"2025-05-31"`
}

// UpdateCampaignRequest represents a partial campaign update. Platform is immutable.
type UpdateCampaignRequest struct {
	WorkspaceID  uint     `json:"-"`
	UserID       uint     `json:"-"`
	UUID         string   `json:"-"`
	Name         *string  `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Objective    *string  `json:"objective,omitempty" validate:"omitempty,max=64"`
	Budget       *float64 `json:"budget,omitempty" validate:"omitempty,gt=0"`
	BudgetType   *string  `json:"budget_type,omitempty" validate:"omitempty,oneof=daily lifetime"`
	StartDate    *string  `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate      *string  `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ClearEndDate bool     `json:"clear_end_date,omitempty"`
}

// ChangeStatusRequest moves a campaign, ad set or ad to another delivery status
type ChangeStatusRequest struct {
	WorkspaceID uint   `json:"-"`
	UserID      uint   `json:"-"`
	Role        string `json:"-"`
	UUID        string `json:"-"`
	Status      string `json:"status" validate:"required,delivery_status" example:"ACTIVE"`
}

// CampaignResponse represents a campaign in responses
type CampaignResponse struct {
	UUID         string          `json:"uuid"`
	Name         string          `json:"name"`
	Platform     string          `json:"platform"`
	PlatformName string          `json:"platform_name"`
	Objective    string          `json:"objective"`
	Budget       decimal.Decimal `json:"budget"`
	BudgetType   string          `json:"budget_type"`
	Status       StatusOption    `json:"status"`
	StartDate    string          `json:"start_date"`
	EndDate      *string         `json:"end_date,omitempty"`
	AdSetCount   int64           `json:"ad_set_count"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    *time.Time      `json:"updated_at,omitempty"`
}

// ListCampaignsRequest filters and pages the campaign list
type ListCampaignsRequest struct {
	WorkspaceID uint   `json:"-" query:"-"`
	Status      string `query:"status" validate:"omitempty,delivery_status"`
	Platform    string `query:"platform" validate:"omitempty,oneof=meta google tiktok"`
	Search      string `query:"search" validate:"omitempty,max=255"`
	OrderBy     string `query:"order_by" validate:"omitempty,oneof=newest oldest name budget"`
	PageRequest
}

// ListCampaignsResponse is one page of campaigns
type ListCampaignsResponse struct {
	Items      []CampaignResponse `json:"items"`
	Pagination PaginationInfo     `json:"pagination"`
}

// TransitionsResponse lists the statuses a user may move an entity to
type TransitionsResponse struct {
	Current   StatusOption   `json:"current"`
	Available []StatusOption `json:"available"`
}

// PlatformOptionsResponse feeds the platform, objective and bid strategy selects
type PlatformOptionsResponse struct {
	Platforms        []models.PlatformOption `json:"platforms"`
	BidStrategies    []models.Option         `json:"bid_strategies"`
	CallToActions    []string                `json:"call_to_actions"`
	DateRangePresets []analytics.Preset      `json:"date_range_presets"`
	Statuses         []StatusOption          `json:"statuses"`
}

// CampaignPerformanceRequest asks for the campaign table joined with metrics over a range
type CampaignPerformanceRequest struct {
	WorkspaceID uint   `json:"-" query:"-"`
	Preset      string `query:"preset" validate:"omitempty,date_preset"`
	StartDate   string `query:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate     string `query:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Status      string `query:"status" validate:"omitempty,delivery_status"`
	Search      string `query:"search" validate:"omitempty,max=255"`
	SortBy      string `query:"sort_by" validate:"omitempty,max=32"`
	Direction   string `query:"direction" validate:"omitempty,oneof=asc desc"`
	PageRequest
}

// CampaignPerformanceRow is one campaign with its metric totals and ratios
type CampaignPerformanceRow struct {
	UUID     string  `json:"uuid"`
	Name     string  `json:"name"`
	Platform string  `json:"platform"`
	Status   string  `json:"status"`
	Budget   float64 `json:"budget"`
	analytics.MetricRow
	analytics.DerivedMetrics
}

// CampaignPerformanceResponse is one page of the performance table
type CampaignPerformanceResponse struct {
	Range      DateRangeInfo            `json:"range"`
	Items      []CampaignPerformanceRow `json:"items"`
	Totals     analytics.MetricRow      `json:"totals"`
	SortBy     string                   `json:"sort_by"`
	Direction  string                   `json:"direction"`
	Pagination PaginationInfo           `json:"pagination"`
}

// CreateAdSetRequest creates an ad set under a campaign
type CreateAdSetRequest struct {
	WorkspaceID  uint           `json:"-"`
	UserID       uint           `json:"-"`
	CampaignUUID string         `json:"-"`
	Name         string         `json:"name" validate:"required,min=1,max=255"`
	Budget       float64        `json:"budget" validate:"required,gt=0"`
	BidStrategy  string         `json:"bid_strategy" validate:"omitempty,oneof=lowest_cost cost_cap bid_cap target_roas"`
	BidAmount    *float64       `json:"bid_amount,omitempty" validate:"omitempty,gt=0"`
	Targeting    TargetingInput `json:"targeting" validate:"required"`
}

// TargetingInput is the audience definition of an ad set
type TargetingInput struct {
	AgeMin     int      `json:"age_min" validate:"required,min=13,max=65"`
	AgeMax     int      `json:"age_max" validate:"required,min=13,max=65,gtefield=AgeMin"`
	Genders    []string `json:"genders,omitempty" validate:"omitempty,dive,oneof=male female all"`
	Locations  []string `json:"locations,omitempty" validate:"omitempty,max=50,dive,min=2,max=100"`
	Placements []string `json:"placements,omitempty" validate:"omitempty,max=20,dive,max=64"`
	Interests  []string `json:"interests,omitempty" validate:"omitempty,max=50,dive,max=100"`
}

// UpdateAdSetRequest is a partial ad set update
type UpdateAdSetRequest struct {
	WorkspaceID uint            `json:"-"`
	UserID      uint            `json:"-"`
	UUID        string          `json:"-"`
	Name        *string         `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Budget      *float64        `json:"budget,omitempty" validate:"omitempty,gt=0"`
	BidStrategy *string         `json:"bid_strategy,omitempty" validate:"omitempty,oneof=lowest_cost cost_cap bid_cap target_roas"`
	BidAmount   *float64        `json:"bid_amount,omitempty" validate:"omitempty,gt=0"`
	Targeting   *TargetingInput `json:"targeting,omitempty"`
}

// AdSetResponse represents an ad set in responses
type AdSetResponse struct {
	UUID         string           `json:"uuid"`
	CampaignUUID string           `json:"campaign_uuid"`
	Name         string           `json:"name"`
	Targeting    models.Targeting `json:"targeting"`
	Budget       decimal.Decimal  `json:"budget"`
	BidStrategy  string           `json:"bid_strategy"`
	BidAmount    *decimal.Decimal `json:"bid_amount,omitempty"`
	Status       StatusOption     `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    *time.Time       `json:"updated_at,omitempty"`
}

// ListAdSetsResponse is one page of ad sets
type ListAdSetsResponse struct {
	Items      []AdSetResponse `json:"items"`
	Pagination PaginationInfo  `json:"pagination"`
}

// CreateAdRequest creates an ad under an ad set
type CreateAdRequest struct {
	WorkspaceID    uint    `json:"-"`
	UserID         uint    `json:"-"`
	AdSetUUID      string  `json:"-"`
	Name           string  `json:"name" validate:"required,min=1,max=255"`
	Headline       string  `json:"headline" validate:"required,min=1,max=255"`
	PrimaryText    *string `json:"primary_text,omitempty" validate:"omitempty,max=5000"`
	CreativeUUID   *string `json:"creative_uuid,omitempty" validate:"omitempty,uuid"`
	DestinationURL string  `json:"destination_url" validate:"required,url,max=2048"`
	CallToAction   *string `json:"call_to_action,omitempty" validate:"omitempty,call_to_action"`
}

// UpdateAdRequest is a partial ad update
type UpdateAdRequest struct {
	WorkspaceID    uint    `json:"-"`
	UserID         uint    `json:"-"`
	UUID           string  `json:"-"`
	Name           *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Headline       *string `json:"headline,omitempty" validate:"omitempty,min=1,max=255"`
	PrimaryText    *string `json:"primary_text,omitempty" validate:"omitempty,max=5000"`
	CreativeUUID   *string `json:"creative_uuid,omitempty" validate:"omitempty,uuid"`
	DestinationURL *string `json:"destination_url,omitempty" validate:"omitempty,url,max=2048"`
	CallToAction   *string `json:"call_to_action,omitempty" validate:"omitempty,call_to_action"`
}

// AdResponse represents an ad in responses
type AdResponse struct {
	UUID           string            `json:"uuid"`
	AdSetUUID      string            `json:"ad_set_uuid"`
	Name           string            `json:"name"`
	Headline       string            `json:"headline"`
	PrimaryText    *string           `json:"primary_text,omitempty"`
	Creative       *CreativeResponse `json:"creative,omitempty"`
	DestinationURL string            `json:"destination_url"`
	CallToAction   *string           `json:"call_to_action,omitempty"`
	Status         StatusOption      `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      *time.Time        `json:"updated_at,omitempty"`
}

// ListAdsResponse is one page of ads
type ListAdsResponse struct {
	Items      []AdResponse   `json:"items"`
	Pagination PaginationInfo `json:"pagination"`
}
