package domain

import "time"

const ProviderGoogle = "google"

type OAuthLink struct {
	ID             int64     `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	UserID         int64     `gorm:"index;not null" json:"user_id,string"`
	Provider       string    `gorm:"size:32;not null;uniqueIndex:idx_oauth_links_provider_user,priority:1" json:"provider"`
	ProviderUserID string    `gorm:"size:255;not null;uniqueIndex:idx_oauth_links_provider_user,priority:2" json:"provider_user_id"`
	AccessToken    string    `gorm:"size:2048" json:"-"`
	RefreshToken   string    `gorm:"size:2048" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
