package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the default time-to-live for access tokens
	AccessTokenTTL = 24 * time.Hour

	// RefreshTokenTTL is the default time-to-live for refresh tokens
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Pagination defaults shared by list endpoints
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Redis key prefixes
const (
	DashboardSummaryKeyPrefix = "dash:summary:"
	NotificationChannelPrefix = "dash:notifications:"
	SyncRequestLockPrefix     = "dash:sync-lock:"
	RevokedTokenKeyPrefix     = "dash:revoked:"
)

// DefaultCurrency is used for new workspaces without an explicit currency
const DefaultCurrency = "USD"
