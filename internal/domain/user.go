package domain

import "time"

const (
	RoleVerified int64 = 1 << 0
)

type User struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	Email     string    `gorm:"size:320;uniqueIndex;not null" json:"email"`
	Username  *string   `gorm:"size:64" json:"username"`
	Roles     int64     `gorm:"not null;default:0" json:"roles"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) IsVerified() bool {
	return HasRole(u.Roles, RoleVerified)
}

func HasRole(roles, role int64) bool {
	return roles&role != 0
}

// Identity is the projection of a user that the auth gate hands to
// downstream handlers.
type Identity struct {
	ID    int64  `json:"id,string"`
	Email string `json:"email"`
	Roles int64  `json:"roles"`
}

func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Email: u.Email, Roles: u.Roles}
}
