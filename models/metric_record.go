package models

import (
	"time"

	"github.com/amirphl/Lovelify-Dash/analytics"
	"github.com/amirphl/Lovelify-Dash/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MetricRecord holds one day of delivery counters for a campaign, optionally narrowed to an ad set or ad.
// AdSetID and AdID are stored as 0 rather than NULL so the unique key also covers campaign-level rows.
type MetricRecord struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UUID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uk_metric_records_uuid" json:"uuid"`
	WorkspaceID uint            `gorm:"not null;index:idx_metric_records_workspace_date,priority:1" json:"workspace_id"`
	CampaignID  uint            `gorm:"not null;uniqueIndex:uk_metric_records_scope_date,priority:1" json:"campaign_id"`
	AdSetID     uint            `gorm:"not null;default:0;uniqueIndex:uk_metric_records_scope_date,priority:2" json:"ad_set_id"`
	AdID        uint            `gorm:"not null;default:0;uniqueIndex:uk_metric_records_scope_date,priority:3" json:"ad_id"`
	Date        time.Time       `gorm:"type:date;not null;uniqueIndex:uk_metric_records_scope_date,priority:4;index:idx_metric_records_workspace_date,priority:2" json:"date"`
	Impressions int64           `gorm:"not null;default:0" json:"impressions"`
	Clicks      int64           `gorm:"not null;default:0" json:"clicks"`
	Conversions int64           `gorm:"not null;default:0" json:"conversions"`
	Reach       int64           `gorm:"not null;default:0" json:"reach"`
	Spend       decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"spend"`
	Revenue     decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"revenue"`
	CreatedAt   time.Time       `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (MetricRecord) TableName() string {
	return "metric_records"
}

// BeforeCreate is called before creating a new record
func (m *MetricRecord) BeforeCreate(tx *gorm.DB) error {
	if m.UUID == uuid.Nil {
		m.UUID = uuid.New()
	}
	m.Date = utils.DateOnly(m.Date)
	now := utils.UTCNow()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	return nil
}

// BeforeUpdate is called before updating a record
func (m *MetricRecord) BeforeUpdate(tx *gorm.DB) error {
	m.UpdatedAt = utils.UTCNow()
	return nil
}

// Row converts the record into the aggregator's representation
func (m *MetricRecord) Row() analytics.MetricRow {
	return analytics.MetricRow{
		Impressions: m.Impressions,
		Clicks:      m.Clicks,
		Conversions: m.Conversions,
		Reach:       m.Reach,
		Spend:       m.Spend.InexactFloat64(),
		Revenue:     m.Revenue.InexactFloat64(),
	}
}

// DatedRow converts the record into a daily aggregator row
func (m *MetricRecord) DatedRow() analytics.DatedRow {
	return analytics.DatedRow{Date: m.Date, MetricRow: m.Row()}
}

// MetricRecordFilter represents filter criteria for metric record queries
type MetricRecordFilter struct {
	WorkspaceID *uint
	CampaignID  *uint
	CampaignIDs []uint
	AdSetID     *uint
	AdID        *uint
	DateFrom    *time.Time
	DateTo      *time.Time
}
