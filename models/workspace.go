package models

import (
	"time"

	"github.com/amirphl/Lovelify-Dash/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Workspace is a tenant. Every other entity is scoped to exactly one workspace.
type Workspace struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UUID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_workspaces_uuid" json:"uuid"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Slug      string    `gorm:"size:255;not null;uniqueIndex:uk_workspaces_slug" json:"slug"`
	Currency  string    `gorm:"size:3;not null;default:'USD'" json:"currency"`
	Timezone  string    `gorm:"size:64;not null;default:'UTC'" json:"timezone"`
	IsActive  *bool     `gorm:"default:true;index:idx_workspaces_is_active" json:"is_active"`
	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_workspaces_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	Users []User `gorm:"foreignKey:WorkspaceID" json:"-"`
}

func (Workspace) TableName() string {
	return "workspaces"
}

// BeforeCreate is called before creating a new record
func (w *Workspace) BeforeCreate(tx *gorm.DB) error {
	if w.UUID == uuid.Nil {
		w.UUID = uuid.New()
	}
	if w.Slug == "" {
		w.Slug = utils.Slugify(w.Name)
	}
	if w.Currency == "" {
		w.Currency = utils.DefaultCurrency
	}
	if w.Timezone == "" {
		w.Timezone = "UTC"
	}
	if w.IsActive == nil {
		w.IsActive = utils.ToPtr(true)
	}
	now := utils.UTCNow()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	w.UpdatedAt = now
	return nil
}

// BeforeUpdate is called before updating a record
func (w *Workspace) BeforeUpdate(tx *gorm.DB) error {
	w.UpdatedAt = utils.UTCNow()
	return nil
}

// Location returns the workspace's reporting time zone, falling back to UTC
func (w *Workspace) Location() *time.Location {
	if w == nil || w.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(w.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WorkspaceFilter represents filter criteria for workspace queries
type WorkspaceFilter struct {
	ID       *uint
	UUID     *uuid.UUID
	Slug     *string
	IsActive *bool
}
