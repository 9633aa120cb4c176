package models

import (
	"time"

	"github.com/amirphl/Lovelify-Dash/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CallToAction values offered for ads
var CallToActions = []string{
	"learn_more", "shop_now", "sign_up", "download", "book_now",
	"contact_us", "get_quote", "subscribe", "watch_more", "apply_now",
}

// Ad is a single creative placement inside an ad set
type Ad struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	UUID           uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_ads_uuid" json:"uuid"`
	WorkspaceID    uint           `gorm:"not null;index:idx_ads_workspace_id" json:"workspace_id"`
	AdSetID        uint           `gorm:"not null;index:idx_ads_ad_set_id" json:"ad_set_id"`
	Name           string         `gorm:"size:255;not null" json:"name"`
	Headline       string         `gorm:"size:255;not null" json:"headline"`
	PrimaryText    *string        `gorm:"type:text" json:"primary_text,omitempty"`
	CreativeID     *uint          `gorm:"index:idx_ads_creative_id" json:"creative_id,omitempty"`
	DestinationURL string         `gorm:"size:2048;not null" json:"destination_url"`
	CallToAction   *string        `gorm:"size:32" json:"call_to_action,omitempty"`
	Status         DeliveryStatus `gorm:"size:20;not null;default:'DRAFT';index:idx_ads_status" json:"status"`
	CreatedAt      time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_ads_created_at" json:"created_at"`
	UpdatedAt      *time.Time     `json:"updated_at,omitempty"`

	// Relations
	AdSet    *AdSet    `gorm:"foreignKey:AdSetID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	Creative *Creative `gorm:"foreignKey:CreativeID;references:ID;constraint:OnDelete:SET NULL" json:"creative,omitempty"`
}

func (Ad) TableName() string {
	return "ads"
}

// BeforeCreate is called before creating a new record
func (a *Ad) BeforeCreate(tx *gorm.DB) error {
	if a.UUID == uuid.Nil {
		a.UUID = uuid.New()
	}
	if a.Status == "" {
		a.Status = DeliveryStatusDraft
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (a *Ad) BeforeUpdate(tx *gorm.DB) error {
	a.UpdatedAt = utils.UTCNowPtr()
	return nil
}

// IsValidCallToAction reports whether cta is one of CallToActions
func IsValidCallToAction(cta string) bool {
	for _, v := range CallToActions {
		if v == cta {
			return true
		}
	}
	return false
}

// AdFilter represents filter criteria for ad queries
type AdFilter struct {
	ID          *uint
	UUID        *uuid.UUID
	WorkspaceID *uint
	AdSetID     *uint
	CreativeID  *uint
	Status      *DeliveryStatus
	Name        *string
}
