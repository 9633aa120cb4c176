package models

import (
	"time"

	"github.com/amirphl/Lovelify-Dash/utils"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// CreativeType classifies the media behind a creative
type CreativeType string

const (
	CreativeTypeImage    CreativeType = "image"
	CreativeTypeVideo    CreativeType = "video"
	CreativeTypeCarousel CreativeType = "carousel"
)

// Valid checks if the creative type is valid
func (t CreativeType) Valid() bool {
	return t == CreativeTypeImage || t == CreativeTypeVideo || t == CreativeTypeCarousel
}

// Creative is an uploaded image or video stored on disk and referenced by ads
type Creative struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	UUID             uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_creatives_uuid" json:"uuid"`
	WorkspaceID      uint           `gorm:"not null;index:idx_creatives_workspace_id" json:"workspace_id"`
	Name             string         `gorm:"size:255;not null" json:"name"`
	Type             CreativeType   `gorm:"size:20;not null;index:idx_creatives_type" json:"type"`
	Format           string         `gorm:"size:100;not null" json:"format"` // mime type
	OriginalFilename string         `gorm:"size:255;not null" json:"original_filename"`
	Width            *int           `json:"width,omitempty"`
	Height           *int           `json:"height,omitempty"`
	SizeBytes        int64          `gorm:"not null" json:"size_bytes"`
	StoredPath       string         `gorm:"type:text;not null" json:"-"`
	ThumbnailPath    *string        `gorm:"type:text" json:"-"`
	Tags             pq.StringArray `gorm:"type:text[];not null;default:'{}'" json:"tags"`
	UploadedBy       *uint          `json:"uploaded_by,omitempty"`
	CreatedAt        time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_creatives_created_at" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (Creative) TableName() string { return "creatives" }

// BeforeCreate ensures UUID and timestamps are set.
func (c *Creative) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.Tags == nil {
		c.Tags = pq.StringArray{}
	}
	now := utils.UTCNow()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = now
	}
	return nil
}

// HasThumbnail reports whether a thumbnail was generated at upload time
func (c *Creative) HasThumbnail() bool {
	return c.ThumbnailPath != nil && *c.ThumbnailPath != ""
}

// CreativeFilter represents filter criteria for creative queries.
type CreativeFilter struct {
	ID            *uint         `json:"id,omitempty"`
	UUID          *uuid.UUID    `json:"uuid,omitempty"`
	WorkspaceID   *uint         `json:"workspace_id,omitempty"`
	Type          *CreativeType `json:"type,omitempty"`
	Name          *string       `json:"name,omitempty"`
	Tag           *string       `json:"tag,omitempty"`
	CreatedAfter  *time.Time    `json:"created_after,omitempty"`
	CreatedBefore *time.Time    `json:"created_before,omitempty"`
}
