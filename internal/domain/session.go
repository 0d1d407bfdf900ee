package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Session is one authenticated device. (UserID, UserAgentHash) is unique: a
// new login from the same device replaces the previous row. The raw
// User-Agent has no length bound, so the index sits on its digest.
type Session struct {
	ID               int64     `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	UserID           int64     `gorm:"not null;uniqueIndex:idx_sessions_user_device,priority:1" json:"user_id,string"`
	UserAgent        string    `gorm:"type:text;not null" json:"user_agent"`
	UserAgentHash    string    `gorm:"column:user_agent_sha256;size:64;not null;uniqueIndex:idx_sessions_user_device,priority:2" json:"-"`
	RefreshTokenHash string    `gorm:"size:256;not null" json:"-"`
	ExpiresAt        time.Time `gorm:"index;not null" json:"expires_at"`
	CreatedAt        time.Time `json:"created_at"`
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// DeviceDigest is the hex SHA-256 of a device fingerprint.
func DeviceDigest(userAgent string) string {
	sum := sha256.Sum256([]byte(userAgent))
	return hex.EncodeToString(sum[:])
}
