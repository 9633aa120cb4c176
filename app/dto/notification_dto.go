package dto

import "time"

// NotificationResponse represents a notification in responses
type NotificationResponse struct {
	UUID      string     `json:"uuid"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Type      string     `json:"type"`
	Priority  string     `json:"priority"`
	Category  string     `json:"category"`
	Read      bool       `json:"read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	ActionURL *string    `json:"action_url,omitempty"`
	Broadcast bool       `json:"broadcast"`
	CreatedAt time.Time  `json:"created_at"`
}

// ListNotificationsRequest filters and pages a user's notifications
type ListNotificationsRequest struct {
	WorkspaceID uint   `json:"-" query:"-"`
	UserID      uint   `json:"-" query:"-"`
	UnreadOnly  bool   `query:"unread_only"`
	Category    string `query:"category" validate:"omitempty,oneof=campaign sync billing system"`
	PageRequest
}

// ListNotificationsResponse is one page of notifications plus the unread badge count
type ListNotificationsResponse struct {
	Items       []NotificationResponse `json:"items"`
	UnreadCount int64                  `json:"unread_count"`
	Pagination  PaginationInfo         `json:"pagination"`
}

// PollNotificationsRequest asks for notifications created after a cursor
type PollNotificationsRequest struct {
	WorkspaceID uint   `json:"-" query:"-"`
	UserID      uint   `json:"-" query:"-"`
	Since       string `query:"since" validate:"omitempty,max=16384"`
}

// PollNotificationsResponse returns new notifications and the cursor for the next poll
type PollNotificationsResponse struct {
	Items       []NotificationResponse `json:"items"`
	UnreadCount int64                  `json:"unread_count"`
	Cursor      string                 `json:"cursor"`
}

// UnreadCountResponse is the notification badge count
type UnreadCountResponse struct {
	UnreadCount int64 `json:"unread_count"`
}

// MarkAllReadResponse reports how many notifications were marked read
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

// CreateNotificationRequest is used internally by flows and the scheduler
type CreateNotificationRequest struct {
	WorkspaceID uint
	UserID      *uint
	Title       string
	Message     string
	Type        string
	Priority    string
	Category    string
	ActionURL   *string
}
