package domain

import "time"

// Credential holds the local password of a user. OAuth-only accounts have no row.
type Credential struct {
	UserID       int64     `gorm:"primaryKey;autoIncrement:false" json:"user_id,string"`
	PasswordHash *string   `gorm:"size:1024" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (c *Credential) HasPassword() bool {
	return c != nil && c.PasswordHash != nil && *c.PasswordHash != ""
}
