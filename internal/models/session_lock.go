package models

import "time"

// SessionLock is the exclusivity record ensuring one active client per
// account. At most one row exists per user; claims overwrite it atomically
// when the current holder is the same session, stale, or inactive.
type SessionLock struct {
	UserID      uint   `gorm:"primaryKey"`
	SessionID   string `gorm:"size:64;not null"`
	LastSeenAt  int64  `gorm:"not null"` // unix millis, bumped by heartbeats
	DeviceLabel string `gorm:"size:255"`
	Origin      string `gorm:"size:255"`
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Age returns how long ago the holder was last seen.
func (l *SessionLock) Age(now time.Time) time.Duration {
	return time.Duration(now.UnixMilli()-l.LastSeenAt) * time.Millisecond
}
