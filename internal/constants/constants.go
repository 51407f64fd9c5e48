package constants

import "time"

// Session and context keys
const (
	SessionCookieName   = "blokt_session"
	ContextKeyUserID    = "user_id"
	ContextKeyUser      = "user"
	ContextKeyRequestID = "request_id"
)

// Validation limits
const (
	MinPasswordLength = 8
	MaxNameLength     = 255

	// RemovedUserEmailDomain receives the rewritten email of removed members
	RemovedUserEmailDomain = "removed.invalid"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Uploads
const (
	DefaultMaxUploadBytes int64 = 10 << 30 // 10 GiB
	SimpleUploadMaxBytes  int64 = 512 << 20
	UploadFormField             = "file"
)

// Dashboard and analytics
const (
	DashboardCacheTTL     = 30 * time.Second
	DashboardCachePurge   = 5 * time.Minute
	DashboardRecentLimit  = 10
	DefaultAnalyticsWeeks = 8
	MaxAnalyticsWeeks     = 52
)

// Device tokens
const (
	DeviceTokenTTL = 30 * 24 * time.Hour
)
