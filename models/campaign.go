package models

import (
	"time"

	"github.com/amirphl/Lovelify-Dash/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Campaign is the top of the Campaign > AdSet > Ad hierarchy
type Campaign struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UUID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uk_campaigns_uuid" json:"uuid"`
	WorkspaceID uint            `gorm:"not null;index:idx_campaigns_workspace_id" json:"workspace_id"`
	Name        string          `gorm:"size:255;not null" json:"name"`
	Platform    Platform        `gorm:"size:20;not null;index:idx_campaigns_platform" json:"platform"`
	Objective   Objective       `gorm:"size:64;not null" json:"objective"`
	Budget      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"budget"`
	BudgetType  BudgetType      `gorm:"size:20;not null;default:'daily'" json:"budget_type"`
	Status      DeliveryStatus  `gorm:"size:20;not null;default:'DRAFT';index:idx_campaigns_status" json:"status"`
	StartDate   time.Time       `gorm:"type:date;not null" json:"start_date"`
	EndDate     *time.Time      `gorm:"type:date;index:idx_campaigns_end_date" json:"end_date,omitempty"`
	CreatedBy   *uint           `json:"created_by,omitempty"`
	CreatedAt   time.Time       `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_campaigns_created_at" json:"created_at"`
	UpdatedAt   *time.Time      `gorm:"index:idx_campaigns_updated_at" json:"updated_at,omitempty"`

	// Relations
	Workspace *Workspace `gorm:"foreignKey:WorkspaceID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	AdSets    []AdSet    `gorm:"foreignKey:CampaignID" json:"ad_sets,omitempty"`
}

// TableName returns the table name for the model
func (Campaign) TableName() string {
	return "campaigns"
}

// BeforeCreate is called before creating a new record
func (c *Campaign) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.Status == "" {
		c.Status = DeliveryStatusDraft
	}
	if c.BudgetType == "" {
		c.BudgetType = BudgetTypeDaily
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Campaign) BeforeUpdate(tx *gorm.DB) error {
	c.UpdatedAt = utils.UTCNowPtr()
	return nil
}

// IsEditable checks if the campaign can be edited
func (c *Campaign) IsEditable() bool {
	return c.Status.IsEditable()
}

// IsDeletable checks if the campaign can be deleted
func (c *Campaign) IsDeletable() bool {
	return c.Status == DeliveryStatusDraft
}

// CanTransitionTo checks if the campaign can transition to the given status
func (c *Campaign) CanTransitionTo(newStatus DeliveryStatus) bool {
	return c.Status.CanTransitionTo(newStatus)
}

// HasEnded reports whether the campaign's end date lies strictly before the day of now
func (c *Campaign) HasEnded(now time.Time) bool {
	if c.EndDate == nil {
		return false
	}
	return utils.DateOnly(*c.EndDate).Before(utils.DateOnly(now))
}

// CampaignFilter represents filter criteria for campaigns
type CampaignFilter struct {
	ID            *uint           `json:"id,omitempty"`
	UUID          *uuid.UUID      `json:"uuid,omitempty"`
	WorkspaceID   *uint           `json:"workspace_id,omitempty"`
	Status        *DeliveryStatus `json:"status,omitempty"`
	Platform      *Platform       `json:"platform,omitempty"`
	Name          *string         `json:"name,omitempty"`
	EndedBefore   *time.Time      `json:"ended_before,omitempty"`
	CreatedAfter  *time.Time      `json:"created_after,omitempty"`
	CreatedBefore *time.Time      `json:"created_before,omitempty"`
	MinBudget     *decimal.Decimal
	MaxBudget     *decimal.Decimal
}
