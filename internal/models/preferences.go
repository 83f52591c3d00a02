package models

import (
	"time"
)

// UserPreferences holds per-user notification settings. Rows are created
// lazily with defaults on first access.
type UserPreferences struct {
	ID             string
	UserID         string
	EmailOnLogin   bool
	EmailOnComment bool
	EmailDigest    bool
	UpdatedAt      time.Time
}

// PreferencesUpdate carries a partial preferences update. Nil fields are not touched.
type PreferencesUpdate struct {
	EmailOnLogin   *bool
	EmailOnComment *bool
	EmailDigest    *bool
}
