package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amirphl/Lovelify-Dash/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Targeting age bounds accepted by every supported platform
const (
	MinTargetingAge = 13
	MaxTargetingAge = 65
)

// Targeting represents the JSON audience definition of an ad set
type Targeting struct {
	AgeMin     int      `json:"age_min"`
	AgeMax     int      `json:"age_max"`
	Genders    []string `json:"genders,omitempty"`
	Locations  []string `json:"locations,omitempty"`
	Placements []string `json:"placements,omitempty"`
	Interests  []string `json:"interests,omitempty"`
}

// Value implements the driver.Valuer interface for Targeting
func (t Targeting) Value() (driver.Value, error) {
	return json.Marshal(t)
}

// Scan implements the sql.Scanner interface for Targeting
func (t *Targeting) Scan(value any) error {
	if value == nil {
		*t = Targeting{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Targeting", value)
	}

	return json.Unmarshal(bytes, t)
}

// Validate checks the age range
func (t Targeting) Validate() error {
	if t.AgeMin < MinTargetingAge || t.AgeMin > MaxTargetingAge {
		return fmt.Errorf("age_min must be between %d and %d", MinTargetingAge, MaxTargetingAge)
	}
	if t.AgeMax < MinTargetingAge || t.AgeMax > MaxTargetingAge {
		return fmt.Errorf("age_max must be between %d and %d", MinTargetingAge, MaxTargetingAge)
	}
	if t.AgeMax < t.AgeMin {
		return fmt.Errorf("age_max must not be less than age_min")
	}
	return nil
}

// AdSet groups ads that share targeting, budget and bidding under a campaign
type AdSet struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	UUID        uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:uk_ad_sets_uuid" json:"uuid"`
	WorkspaceID uint             `gorm:"not null;index:idx_ad_sets_workspace_id" json:"workspace_id"`
	CampaignID  uint             `gorm:"not null;index:idx_ad_sets_campaign_id" json:"campaign_id"`
	Name        string           `gorm:"size:255;not null" json:"name"`
	Targeting   Targeting        `gorm:"type:jsonb;not null" json:"targeting"`
	Budget      decimal.Decimal  `gorm:"type:numeric(14,2);not null" json:"budget"`
	BidStrategy BidStrategy      `gorm:"size:20;not null;default:'lowest_cost'" json:"bid_strategy"`
	BidAmount   *decimal.Decimal `gorm:"type:numeric(14,2)" json:"bid_amount,omitempty"`
	Status      DeliveryStatus   `gorm:"size:20;not null;default:'DRAFT';index:idx_ad_sets_status" json:"status"`
	CreatedAt   time.Time        `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_ad_sets_created_at" json:"created_at"`
	UpdatedAt   *time.Time       `json:"updated_at,omitempty"`

	// Relations
	Campaign *Campaign `gorm:"foreignKey:CampaignID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	Ads      []Ad      `gorm:"foreignKey:AdSetID" json:"ads,omitempty"`
}

func (AdSet) TableName() string {
	return "ad_sets"
}

// BeforeCreate is called before creating a new record
func (a *AdSet) BeforeCreate(tx *gorm.DB) error {
	if a.UUID == uuid.Nil {
		a.UUID = uuid.New()
	}
	if a.Status == "" {
		a.Status = DeliveryStatusDraft
	}
	if a.BidStrategy == "" {
		a.BidStrategy = BidStrategyLowestCost
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (a *AdSet) BeforeUpdate(tx *gorm.DB) error {
	a.UpdatedAt = utils.UTCNowPtr()
	return nil
}

// AdSetFilter represents filter criteria for ad set queries
type AdSetFilter struct {
	ID          *uint
	UUID        *uuid.UUID
	WorkspaceID *uint
	CampaignID  *uint
	Status      *DeliveryStatus
	Name        *string
}
