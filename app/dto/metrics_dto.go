package dto

import (
	"github.com/amirphl/Lovelify-Dash/analytics"
)

// IngestMetricsRequest is a batch of daily metric rows.
// WorkspaceID is zero for machine clients authenticated by API key.
type IngestMetricsRequest struct {
	WorkspaceID uint                `json:"-"`
	UserID      *uint               `json:"-"`
	Records     []MetricRecordInput `json:"records" validate:"required,min=1,max=5000,dive"`
}

// MetricRecordInput is one day of counters for a campaign, ad set or ad
type MetricRecordInput struct {
	CampaignUUID string  `json:"campaign_uuid" validate:"required,uuid"`
	AdSetUUID    *string `json:"ad_set_uuid,omitempty" validate:"omitempty,uuid"`
	AdUUID       *string `json:"ad_uuid,omitempty" validate:"omitempty,uuid"`
	Date         string  `json:"date" validate:"required,datetime=2006-01-02"`
	Impressions  int64   `json:"impressions" validate:"gte=0"`
	Clicks       int64   `json:"clicks" validate:"gte=0"`
	Conversions  int64   `json:"conversions" validate:"gte=0"`
	Reach        int64   `json:"reach" validate:"gte=0"`
	Spend        float64 `json:"spend" validate:"gte=0"`
	Revenue      float64 `json:"revenue" validate:"gte=0"`
}

// IngestMetricsResponse reports how many rows were inserted and how many overwritten
type IngestMetricsResponse struct {
	Received int `json:"received"`
	Created  int `json:"created"`
	Updated  int `json:"updated"`
}

// DashboardQuery selects the reporting window and optional campaign scope
type DashboardQuery struct {
	WorkspaceID  uint   `json:"-" query:"-"`
	Preset       string `query:"preset" validate:"omitempty,date_preset"`
	StartDate    string `query:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate      string `query:"end_date" validate:"omitempty,datetime=2006-01-02"`
	CampaignUUID string `query:"campaign_uuid" validate:"omitempty,uuid"`
}

// DateRangeInfo describes a resolved reporting window
type DateRangeInfo struct {
	Preset    string `json:"preset,omitempty"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Days      int    `json:"days"`
}

// DashboardSummaryResponse holds totals for the range, the previous period and the comparison
type DashboardSummaryResponse struct {
	Currency        string                   `json:"currency"`
	Range           DateRangeInfo            `json:"range"`
	PreviousRange   DateRangeInfo            `json:"previous_range"`
	Current         analytics.MetricRow      `json:"current"`
	Previous        analytics.MetricRow      `json:"previous"`
	Ratios          analytics.DerivedMetrics `json:"ratios"`
	PreviousRatios  analytics.DerivedMetrics `json:"previous_ratios"`
	Comparison      analytics.Comparison     `json:"comparison"`
	ActiveCampaigns int64                    `json:"active_campaigns"`
}

// TimeseriesPoint is one zero-filled day
type TimeseriesPoint struct {
	Date string `json:"date"`
	analytics.MetricRow
	analytics.DerivedMetrics
}

// TimeseriesResponse holds one point per day of the range
type TimeseriesResponse struct {
	Range  DateRangeInfo     `json:"range"`
	Points []TimeseriesPoint `json:"points"`
}

// ExportFile is a generated report ready to be streamed
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}
