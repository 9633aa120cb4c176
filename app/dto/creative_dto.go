package dto

import (
	"io"
	"time"
)

// UploadCreativeRequest carries one multipart upload
type UploadCreativeRequest struct {
	WorkspaceID uint      `json:"-"`
	UserID      uint      `json:"-"`
	Name        string    `json:"name" form:"name" validate:"omitempty,max=255"`
	Tags        []string  `json:"tags" form:"tags" validate:"omitempty,max=20,dive,min=1,max=64"`
	Filename    string    `json:"-" validate:"required,max=255"`
	Size        int64     `json:"-" validate:"gt=0"`
	File        io.Reader `json:"-"`
}

// CreativeResponse represents a creative in responses
type CreativeResponse struct {
	UUID             string    `json:"uuid"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	Format           string    `json:"format"`
	OriginalFilename string    `json:"original_filename"`
	Width            *int      `json:"width,omitempty"`
	Height           *int      `json:"height,omitempty"`
	SizeBytes        int64     `json:"size_bytes"`
	Tags             []string  `json:"tags"`
	HasThumbnail     bool      `json:"has_thumbnail"`
	CreatedAt        time.Time `json:"created_at"`
}

// ListCreativesRequest filters and pages the creative library
type ListCreativesRequest struct {
	WorkspaceID uint   `json:"-" query:"-"`
	Type        string `query:"type" validate:"omitempty,oneof=image video carousel"`
	Search      string `query:"search" validate:"omitempty,max=255"`
	Tag         string `query:"tag" validate:"omitempty,max=64"`
	PageRequest
}

// ListCreativesResponse is one page of creatives
type ListCreativesResponse struct {
	Items      []CreativeResponse `json:"items"`
	Pagination PaginationInfo     `json:"pagination"`
}

// CreativeFile is a stored creative opened for download
type CreativeFile struct {
	Path        string
	ContentType string
	Filename    string
	Size        int64
}
